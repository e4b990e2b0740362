package sigma

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReaderFromWriter(w *Writer) *Reader {
	return NewReader(w.BytesW.Bytes())
}

func TestIntegersRoundtrip(t *testing.T) {
	w := NewWriter()

	varVals := []uint64{0, 1, 127, 128, 0xFFFF, 0xFFFFFFFF, math.MaxUint64}
	i64Vals := []int64{0, 1, -1, 63, -64, math.MinInt64, math.MaxInt64}
	i32Vals := []int32{0, 1, -1, 30, 5, math.MinInt32, math.MaxInt32}
	i16Vals := []int16{0, 1, -1, math.MinInt16, math.MaxInt16}

	for _, v := range varVals {
		w.VarUint(v)
	}
	for _, v := range i64Vals {
		w.Int64(v)
	}
	for _, v := range i32Vals {
		w.Int32(v)
	}
	for _, v := range i16Vals {
		w.Int16(v)
	}
	w.Bool(true)
	w.Bool(false)
	w.U8(0xAB)

	r := newReaderFromWriter(w)

	for i, want := range varVals {
		assert.Equal(t, want, r.VarUint(), "VarUint mismatch at index %d", i)
	}
	for i, want := range i64Vals {
		assert.Equal(t, want, r.Int64(), "Int64 mismatch at index %d", i)
	}
	for i, want := range i32Vals {
		assert.Equal(t, want, r.Int32(), "Int32 mismatch at index %d", i)
	}
	for i, want := range i16Vals {
		assert.Equal(t, want, r.Int16(), "Int16 mismatch at index %d", i)
	}
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())
	assert.Equal(t, uint8(0xAB), r.U8())
	assert.True(t, r.BytesR.Empty())
}

func TestVarUintEncoding(t *testing.T) {
	for _, tc := range []struct {
		v   uint64
		hex string
	}{
		{0, "00"},
		{1, "01"},
		{127, "7f"},
		{128, "8001"},
		{300, "ac02"},
		{20000000, "80dac409"},
		{math.MaxUint64, "ffffffffffffffffff01"},
	} {
		w := NewWriter()
		w.VarUint(tc.v)
		require.Equal(t, common.Hex2Bytes(tc.hex), w.BytesW.Bytes(), "encoding of %d", tc.v)

		r := NewReader(common.Hex2Bytes(tc.hex))
		require.Equal(t, tc.v, r.VarUint(), "decoding of %s", tc.hex)
		require.True(t, r.BytesR.Empty())
	}
}

func TestZigZag(t *testing.T) {
	for _, tc := range []struct {
		v int64
		u uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{30, 60},
		{10000000, 20000000},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	} {
		require.Equal(t, tc.u, zigzag64(tc.v))
		require.Equal(t, tc.v, unzigzag64(tc.u))
	}

	require.Equal(t, uint32(60), zigzag32(30))
	require.Equal(t, int32(30), unzigzag32(60))
	require.Equal(t, uint32(1), zigzag32(-1))
	require.Equal(t, int32(-1), unzigzag32(1))
}

func TestReaderRejectsBadInput(t *testing.T) {
	t.Run("non-minimal varint", func(t *testing.T) {
		r := NewReader(common.Hex2Bytes("8000"))
		require.PanicsWithValue(t, ErrNonCanonicalEncoding, func() {
			_ = r.VarUint()
		})
	})

	t.Run("varint overflow", func(t *testing.T) {
		r := NewReader(common.Hex2Bytes("ffffffffffffffffff7f"))
		require.PanicsWithValue(t, ErrMalformedEncoding, func() {
			_ = r.VarUint()
		})
	})

	t.Run("varint too long", func(t *testing.T) {
		r := NewReader(common.Hex2Bytes("ffffffffffffffffffff01"))
		require.PanicsWithValue(t, ErrMalformedEncoding, func() {
			_ = r.VarUint()
		})
	})

	t.Run("int32 out of range", func(t *testing.T) {
		w := NewWriter()
		w.VarUint(uint64(math.MaxUint32) + 1)
		r := newReaderFromWriter(w)
		require.PanicsWithValue(t, ErrMalformedEncoding, func() {
			_ = r.Int32()
		})
	})

	t.Run("int16 out of range", func(t *testing.T) {
		w := NewWriter()
		w.Int32(math.MaxInt16 + 1)
		r := newReaderFromWriter(w)
		require.PanicsWithValue(t, ErrMalformedEncoding, func() {
			_ = r.Int16()
		})
	})

	t.Run("bad boolean", func(t *testing.T) {
		r := NewReader([]byte{0x02})
		require.PanicsWithValue(t, ErrNonCanonicalEncoding, func() {
			_ = r.Bool()
		})
	})

	t.Run("truncated bytes", func(t *testing.T) {
		r := NewReader([]byte{1, 2, 3})
		require.PanicsWithValue(t, ErrMalformedEncoding, func() {
			_ = r.FixedBytes(4)
		})
	})

	t.Run("oversized alloc", func(t *testing.T) {
		w := NewWriter()
		w.VarUint(MaxAlloc + 1)
		r := newReaderFromWriter(w)
		require.PanicsWithValue(t, ErrMalformedEncoding, func() {
			_ = r.SliceBytes(MaxAlloc)
		})
	})
}

func TestSliceBytesRoundtrip(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	w := NewWriter()
	w.SliceBytes(payload)
	w.SliceBytes(nil)

	r := newReaderFromWriter(w)
	require.Equal(t, payload, r.SliceBytes(MaxAlloc))
	require.Len(t, r.SliceBytes(MaxAlloc), 0)
	require.True(t, r.BytesR.Empty())
}
