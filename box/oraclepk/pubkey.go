// Package oraclepk handles oracle participant public keys: compressed
// secp256k1 curve points, carried in a datapoint box's key register and
// used to derive payout guard scripts. The node API renders them as
// unprefixed hex.
package oraclepk

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Size is the length of a compressed curve point.
const Size = 33

// PubKey is a participant's public key.
type PubKey struct {
	Raw []byte
}

// Empty reports whether the key is uninitialized.
func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0
}

// String returns the unprefixed hex form used on the wire.
func (pk PubKey) String() string {
	return common.Bytes2Hex(pk.Raw)
}

// Bytes returns a copy of the raw point.
func (pk PubKey) Bytes() []byte {
	return common.CopyBytes(pk.Raw)
}

// Copy creates a deep copy, since Raw is shared memory.
func (pk PubKey) Copy() PubKey {
	return PubKey{
		Raw: common.CopyBytes(pk.Raw),
	}
}

// Equal compares two keys by their point bytes.
func (pk PubKey) Equal(other PubKey) bool {
	return bytes.Equal(pk.Raw, other.Raw)
}

// FromString parses a hex string, with or without a 0x prefix.
func FromString(str string) (PubKey, error) {
	if len(str) == 0 {
		return PubKey{}, errors.New("empty pubkey")
	}
	return FromBytes(common.FromHex(str))
}

// FromBytes validates a raw compressed point.
func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, errors.New("empty pubkey")
	}
	if len(b) != Size {
		return PubKey{}, errors.New("pubkey must be a compressed point of 33 bytes")
	}
	if b[0] != 0x02 && b[0] != 0x03 {
		return PubKey{}, errors.New("pubkey must start with a compression tag byte")
	}
	return PubKey{common.CopyBytes(b)}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (pk *PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
