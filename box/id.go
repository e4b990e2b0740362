package box

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ID is a box identifier: 32 bytes, unprefixed hex on the wire.
type ID [32]byte

// TokenID identifies a token class. Singleton tokens (minted with supply 1)
// tag the protocol's authoritative boxes.
type TokenID [32]byte

// TxID is a transaction identifier.
type TxID [32]byte

var errBadID = errors.New("id must be 32 hex-encoded bytes")

func parse32(s string) ([32]byte, error) {
	var v [32]byte
	b := common.FromHex(s)
	if len(b) != len(v) {
		return v, fmt.Errorf("%w: %q", errBadID, s)
	}
	copy(v[:], b)
	return v, nil
}

// IDFromString parses a box id from hex, with or without a 0x prefix.
func IDFromString(s string) (ID, error) {
	v, err := parse32(s)
	return ID(v), err
}

// TokenIDFromString parses a token id from hex.
func TokenIDFromString(s string) (TokenID, error) {
	v, err := parse32(s)
	return TokenID(v), err
}

// MustTokenID parses a token id and panics on malformed input. For
// hardcoded deployment constants and tests.
func MustTokenID(s string) TokenID {
	id, err := TokenIDFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// MustID parses a box id and panics on malformed input.
func MustID(s string) ID {
	id, err := IDFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// TxIDFromString parses a transaction id from hex.
func TxIDFromString(s string) (TxID, error) {
	v, err := parse32(s)
	return TxID(v), err
}

func (id ID) String() string {
	return common.Bytes2Hex(id[:])
}

func (id ID) Bytes() []byte {
	return common.CopyBytes(id[:])
}

func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(input []byte) error {
	v, err := IDFromString(string(input))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id TokenID) String() string {
	return common.Bytes2Hex(id[:])
}

func (id TokenID) Bytes() []byte {
	return common.CopyBytes(id[:])
}

func (id TokenID) IsZero() bool {
	return id == TokenID{}
}

func (id TokenID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TokenID) UnmarshalText(input []byte) error {
	v, err := TokenIDFromString(string(input))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id TxID) String() string {
	return common.Bytes2Hex(id[:])
}

func (id TxID) IsZero() bool {
	return id == TxID{}
}

func (id TxID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TxID) UnmarshalText(input []byte) error {
	v, err := TxIDFromString(string(input))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
