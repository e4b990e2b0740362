package fast

// Reader is a cursor over an immutable byte slice.
// Out-of-bounds reads panic; callers are expected to guard lengths
// (the sigma codec turns such panics into decoding errors).
type Reader struct {
	buf    []byte
	offset int
}

// Writer accumulates bytes by appending to a slice.
type Writer struct {
	buf []byte
}

func NewReader(bb []byte) *Reader {
	return &Reader{
		buf:    bb,
		offset: 0,
	}
}

// NewWriter wraps an initial slice, usually make([]byte, 0, capacity).
func NewWriter(bb []byte) *Writer {
	return &Writer{
		buf: bb,
	}
}

func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Read consumes the next n bytes. The returned slice shares memory
// with the underlying buffer.
func (b *Reader) Read(n int) []byte {
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position returns the number of consumed bytes.
func (b *Reader) Position() int {
	return b.offset
}

// Remaining returns the number of unread bytes.
func (b *Reader) Remaining() int {
	return len(b.buf) - b.offset
}

func (b *Reader) Bytes() []byte {
	return b.buf
}

func (b *Writer) Bytes() []byte {
	return b.buf
}

func (b *Reader) Empty() bool {
	return len(b.buf) == b.offset
}
