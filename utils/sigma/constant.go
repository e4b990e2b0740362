package sigma

import (
	"errors"
	"fmt"
)

// Type is the ledger's serialization tag of a register value.
type Type byte

const (
	TypeBoolean      Type = 0x01
	TypeByte         Type = 0x02
	TypeShort        Type = 0x03
	TypeInt          Type = 0x04
	TypeLong         Type = 0x05
	TypeBigInt       Type = 0x06
	TypeGroupElement Type = 0x07
	TypeSigmaProp    Type = 0x08
	TypeByteColl     Type = 0x0e
)

// GroupElementSize is the length of a compressed curve point.
const GroupElementSize = 33

var ErrUnexpectedType = errors.New("unexpected value type")

// Value is a decoded register constant. The supported types form a closed
// set; decoding any other tag fails with ErrUnsupportedType instead of
// guessing.
type Value struct {
	Type Type

	num int64
	raw []byte
}

func Boolean(v bool) Value {
	n := int64(0)
	if v {
		n = 1
	}
	return Value{Type: TypeBoolean, num: n}
}

func Byte(v byte) Value {
	return Value{Type: TypeByte, num: int64(v)}
}

func Short(v int16) Value {
	return Value{Type: TypeShort, num: int64(v)}
}

func Int(v int32) Value {
	return Value{Type: TypeInt, num: int64(v)}
}

func Long(v int64) Value {
	return Value{Type: TypeLong, num: v}
}

// GroupElement wraps a compressed curve point. The caller must pass
// exactly GroupElementSize bytes.
func GroupElement(b []byte) Value {
	if len(b) != GroupElementSize {
		panic(ErrMalformedEncoding)
	}
	raw := make([]byte, GroupElementSize)
	copy(raw, b)
	return Value{Type: TypeGroupElement, raw: raw}
}

func ByteColl(b []byte) Value {
	raw := make([]byte, len(b))
	copy(raw, b)
	return Value{Type: TypeByteColl, raw: raw}
}

func (v Value) Boolean() (bool, error) {
	if v.Type != TypeBoolean {
		return false, ErrUnexpectedType
	}
	return v.num != 0, nil
}

func (v Value) Int() (int32, error) {
	if v.Type != TypeInt {
		return 0, ErrUnexpectedType
	}
	return int32(v.num), nil
}

func (v Value) Long() (int64, error) {
	if v.Type != TypeLong {
		return 0, ErrUnexpectedType
	}
	return v.num, nil
}

func (v Value) GroupElement() ([]byte, error) {
	if v.Type != TypeGroupElement {
		return nil, ErrUnexpectedType
	}
	raw := make([]byte, GroupElementSize)
	copy(raw, v.raw)
	return raw, nil
}

func (v Value) Bytes() ([]byte, error) {
	if v.Type != TypeByteColl {
		return nil, ErrUnexpectedType
	}
	raw := make([]byte, len(v.raw))
	copy(raw, v.raw)
	return raw, nil
}

// Encode returns the canonical byte encoding, type tag included.
func (v Value) Encode() []byte {
	raw, _ := MarshalAdapter(func(w *Writer) error {
		v.marshal(w)
		return nil
	})
	return raw
}

// Decode parses a canonical encoding. The input must hold exactly one
// value; trailing bytes are non-canonical.
func Decode(raw []byte) (Value, error) {
	var v Value
	err := UnmarshalAdapter(raw, func(r *Reader) error {
		v = read(r)
		return nil
	})
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func (v Value) marshal(w *Writer) {
	w.U8(uint8(v.Type))
	switch v.Type {
	case TypeBoolean:
		w.Bool(v.num != 0)
	case TypeByte:
		w.U8(uint8(v.num))
	case TypeShort:
		w.Int16(int16(v.num))
	case TypeInt:
		w.Int32(int32(v.num))
	case TypeLong:
		w.Int64(v.num)
	case TypeGroupElement:
		w.FixedBytes(v.raw)
	case TypeByteColl:
		w.SliceBytes(v.raw)
	default:
		panic(ErrUnsupportedType)
	}
}

func read(r *Reader) Value {
	t := Type(r.U8())
	switch t {
	case TypeBoolean:
		return Boolean(r.Bool())
	case TypeByte:
		return Byte(r.U8())
	case TypeShort:
		return Short(r.Int16())
	case TypeInt:
		return Int(r.Int32())
	case TypeLong:
		return Long(r.Int64())
	case TypeGroupElement:
		return GroupElement(r.FixedBytes(GroupElementSize))
	case TypeByteColl:
		return ByteColl(r.SliceBytes(MaxAlloc))
	default:
		panic(ErrUnsupportedType)
	}
}

func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeByte:
		return "byte"
	case TypeShort:
		return "short"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeBigInt:
		return "bigint"
	case TypeGroupElement:
		return "groupElement"
	case TypeSigmaProp:
		return "sigmaProp"
	case TypeByteColl:
		return "coll[byte]"
	default:
		return fmt.Sprintf("type(0x%02x)", byte(t))
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeBoolean, TypeByte, TypeShort, TypeInt, TypeLong:
		return fmt.Sprintf("%s:%d", v.Type, v.num)
	case TypeGroupElement, TypeByteColl:
		return fmt.Sprintf("%s:%x", v.Type, v.raw)
	default:
		return v.Type.String()
	}
}
