package box

import (
	"encoding/hex"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

// Candidate is a prospective output box of an unsigned transaction, in the
// shape the node's transaction endpoints expect.
type Candidate struct {
	Value          uint64    `json:"value"`
	Script         string    `json:"ergoTree"`
	Assets         []Token   `json:"assets"`
	Registers      Registers `json:"additionalRegisters"`
	CreationHeight idx.Block `json:"creationHeight"`
}

// TokenAmount returns the quantity of the given token in the candidate.
func (c Candidate) TokenAmount(id TokenID) uint64 {
	var total uint64
	for _, t := range c.Assets {
		if t.ID == id {
			total += t.Amount
		}
	}
	return total
}

// UnsignedTx is a fully specified candidate transaction awaiting signing.
// Input and output order is significant: guard scripts validate registers
// positionally.
type UnsignedTx struct {
	Inputs     []ID
	DataInputs []ID
	Outputs    []Candidate
}

// OutputValue is the summed value of all outputs.
func (tx *UnsignedTx) OutputValue() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}

// OutputTokens is the multiset of tokens across all outputs.
func (tx *UnsignedTx) OutputTokens() map[TokenID]uint64 {
	totals := map[TokenID]uint64{}
	for _, out := range tx.Outputs {
		for _, t := range out.Assets {
			totals[t.ID] += t.Amount
		}
	}
	return totals
}

var registerNames = []string{RegR4, RegR5, RegR6, RegR7, RegR8, RegR9}

// EncodeRegisters serializes values into consecutive registers starting
// at R4, the only layout output boxes use.
func EncodeRegisters(values ...sigma.Value) Registers {
	if len(values) > len(registerNames) {
		panic("too many registers")
	}
	regs := make(Registers, len(values))
	for i, v := range values {
		regs[registerNames[i]] = hex.EncodeToString(v.Encode())
	}
	return regs
}
