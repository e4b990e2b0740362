// Package box models ledger boxes for the oracle pool: the raw wire form
// returned by the node, and the typed protocol views decoded from it (pool,
// refresh, datapoint). A box is never mutated; a protocol transition spends
// it and creates its successor.
package box

import (
	"encoding/hex"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

// Register names of the node's additionalRegisters object. R0-R3 are
// mandatory box fields and never appear there.
const (
	RegR4 = "R4"
	RegR5 = "R5"
	RegR6 = "R6"
	RegR7 = "R7"
	RegR8 = "R8"
	RegR9 = "R9"
)

// Token is one asset entry of a box.
type Token struct {
	ID     TokenID `json:"tokenId"`
	Amount uint64  `json:"amount"`
}

// Registers holds serialized register values keyed by register name,
// unprefixed hex exactly as the node renders them.
type Registers map[string]string

// Value decodes one register through the sigma codec.
func (r Registers) Value(name string) (sigma.Value, error) {
	raw, ok := r[name]
	if !ok {
		return sigma.Value{}, fmt.Errorf("%w: missing register %s", ErrMalformed, name)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return sigma.Value{}, fmt.Errorf("%w: register %s is not hex: %v", ErrMalformed, name, err)
	}
	v, err := sigma.Decode(b)
	if err != nil {
		return sigma.Value{}, fmt.Errorf("%w: register %s: %v", ErrMalformed, name, err)
	}
	return v, nil
}

// RawBox is a box as the node reports it.
type RawBox struct {
	ID             ID        `json:"boxId"`
	TxID           TxID      `json:"transactionId"`
	Value          uint64    `json:"value"`
	Script         string    `json:"ergoTree"`
	Assets         []Token   `json:"assets"`
	Registers      Registers `json:"additionalRegisters"`
	CreationHeight idx.Block `json:"creationHeight"`
}

// CarriesSingleton reports whether the box is tagged by the given singleton
// token: present at the first asset slot with quantity exactly 1. Guard
// scripts enforce the same positional check, and it is what separates
// authoritative protocol boxes from spoofed ones.
func (b RawBox) CarriesSingleton(id TokenID) bool {
	return len(b.Assets) > 0 && b.Assets[0].ID == id && b.Assets[0].Amount == 1
}

// TokenAmount returns the total quantity of the given token in the box.
func (b RawBox) TokenAmount(id TokenID) uint64 {
	var total uint64
	for _, t := range b.Assets {
		if t.ID == id {
			total += t.Amount
		}
	}
	return total
}

func (b RawBox) String() string {
	return fmt.Sprintf("box %s (value %d, height %d)", b.ID, b.Value, b.CreationHeight)
}
