// Package sigma implements the canonical byte encoding of ledger register
// values. Every value has exactly one valid encoding: varints are minimal,
// and a decoded value must consume its input exactly. Contracts compare
// register bytes positionally, so a non-canonical encoding is a rejected
// spend, not a tolerable variant.
package sigma

import (
	"errors"
	"math"

	"github.com/oraclesuite/go-oraclepool/utils/fast"
)

var (
	ErrNonCanonicalEncoding = errors.New("non canonical encoded value")
	ErrMalformedEncoding    = errors.New("malformed encoded value")
	ErrUnsupportedType      = errors.New("unsupported value type")
)

// MaxAlloc bounds a single decoded byte collection. A register value can
// never exceed the ledger's box size.
const MaxAlloc = 4 * 1024

// Writer accumulates the canonical encoding of a value.
type Writer struct {
	BytesW *fast.Writer
}

// Reader decodes a canonical encoding. Malformed or non-canonical input
// makes the Reader panic with one of the errors above; the adapter in
// binary.go converts such panics into returned errors.
type Reader struct {
	BytesR *fast.Reader
}

func NewWriter() *Writer {
	return &Writer{
		BytesW: fast.NewWriter(make([]byte, 0, 32)),
	}
}

func NewReader(raw []byte) *Reader {
	return &Reader{
		BytesR: fast.NewReader(raw),
	}
}

// U8 writes a raw byte.
func (w *Writer) U8(v uint8) {
	w.BytesW.WriteByte(v)
}

// U8 reads a raw byte.
func (r *Reader) U8() uint8 {
	return r.BytesR.ReadByte()
}

// Bool writes a boolean as a full byte, 0x00 or 0x01.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// Bool reads a boolean byte. Any value other than 0x00/0x01 is
// non-canonical.
func (r *Reader) Bool() bool {
	b := r.U8()
	if b > 1 {
		panic(ErrNonCanonicalEncoding)
	}
	return b != 0
}

// VarUint writes v in unsigned VLQ form: 7 bits per byte, least
// significant group first, high bit set while more groups follow.
func (w *Writer) VarUint(v uint64) {
	for v >= 0x80 {
		w.BytesW.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.BytesW.WriteByte(byte(v))
}

// VarUint reads an unsigned VLQ value, rejecting paddings and overflows.
func (r *Reader) VarUint() uint64 {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift > 63 {
			panic(ErrMalformedEncoding)
		}
		b := r.BytesR.ReadByte()
		if shift == 63 && b&0x7f > 1 {
			panic(ErrMalformedEncoding)
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if b == 0 && shift != 0 {
				panic(ErrNonCanonicalEncoding)
			}
			return v
		}
	}
}

// Int64 writes a signed value as VLQ of its zigzag form.
func (w *Writer) Int64(v int64) {
	w.VarUint(zigzag64(v))
}

func (r *Reader) Int64() int64 {
	return unzigzag64(r.VarUint())
}

// Int32 writes a 32-bit signed value; its zigzag form fits 32 bits.
func (w *Writer) Int32(v int32) {
	w.VarUint(uint64(zigzag32(v)))
}

func (r *Reader) Int32() int32 {
	u := r.VarUint()
	if u > math.MaxUint32 {
		panic(ErrMalformedEncoding)
	}
	return unzigzag32(uint32(u))
}

// Int16 covers the ledger's short type.
func (w *Writer) Int16(v int16) {
	w.VarUint(uint64(zigzag32(int32(v))))
}

func (r *Reader) Int16() int16 {
	u := r.VarUint()
	if u > math.MaxUint32 {
		panic(ErrMalformedEncoding)
	}
	v := unzigzag32(uint32(u))
	if v < math.MinInt16 || v > math.MaxInt16 {
		panic(ErrMalformedEncoding)
	}
	return int16(v)
}

// FixedBytes writes raw bytes with no length prefix.
func (w *Writer) FixedBytes(v []byte) {
	w.BytesW.Write(v)
}

// FixedBytes reads exactly n raw bytes. The returned slice shares memory
// with the input.
func (r *Reader) FixedBytes(n int) []byte {
	if n > MaxAlloc {
		panic(ErrMalformedEncoding)
	}
	if n > r.BytesR.Remaining() {
		panic(ErrMalformedEncoding)
	}
	return r.BytesR.Read(n)
}

// SliceBytes writes a length-prefixed byte collection.
func (w *Writer) SliceBytes(v []byte) {
	w.VarUint(uint64(len(v)))
	w.FixedBytes(v)
}

// SliceBytes reads a length-prefixed byte collection of at most maxLen
// bytes.
func (r *Reader) SliceBytes(maxLen int) []byte {
	n := r.VarUint()
	if n > uint64(maxLen) {
		panic(ErrMalformedEncoding)
	}
	return r.FixedBytes(int(n))
}

func zigzag64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func unzigzag64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

func zigzag32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

func unzigzag32(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}
