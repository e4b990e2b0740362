// Package txbuilder assembles the unsigned candidate transactions of the two
// protocol actions: committing a datapoint and refreshing the pool.
//
// Input and output order follows the guard scripts, which validate registers
// and token balances positionally. Every build ends with a conservation check
// of values and token multisets; a violation there is a bug in the caller or
// the builder, never a retryable condition.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/datapoint"
	"github.com/oraclesuite/go-oraclepool/pool"
	"github.com/oraclesuite/go-oraclepool/pool/contracts"
	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

var (
	// ErrInsufficientFunds means the wallet cannot cover the fee.
	ErrInsufficientFunds = errors.New("insufficient wallet funds")
	// ErrBoxSelection means funds exist but no selection satisfies the
	// change constraints.
	ErrBoxSelection = errors.New("box selection failed")
	// ErrTokenImbalance means a built transaction would mint or burn
	// tokens. Always a bug, surfaced instead of submitted.
	ErrTokenImbalance = errors.New("token conservation violated")
	// ErrTreasuryExhausted means the refresh box cannot pay the rewards
	// for the collected quorum.
	ErrTreasuryExhausted = errors.New("reward treasury exhausted")
)

// Builder assembles unsigned transactions for one oracle identity within one
// pool deployment.
type Builder struct {
	rules pool.Rules
	pk    oraclepk.PubKey
}

// New returns a builder for the deployment and the oracle's public key.
func New(rules pool.Rules, pk oraclepk.PubKey) *Builder {
	return &Builder{
		rules: rules,
		pk:    pk,
	}
}

// CommitRequest carries everything a datapoint commit spends and states.
type CommitRequest struct {
	Oracle box.Oracle // own participation box
	Pool   box.Pool   // current pool box, for the epoch reference
	Price  int64      // freshly fetched external price
	Height idx.Block
	Wallet []box.RawBox // fee funding, pay-to-own-key boxes
}

// Commit builds the transaction that recreates the participation box with
// this epoch's datapoint. The oracle token moves to the new box untouched.
func (b *Builder) Commit(req CommitRequest) (box.UnsignedTx, error) {
	if req.Price <= 0 {
		return box.UnsignedTx{}, fmt.Errorf("%w: non-positive price %d", ErrBoxSelection, req.Price)
	}

	fee := b.rules.Economy.BaseFee
	sel, err := selectFunding(req.Wallet, fee, b.rules.Economy.MinBoxValue)
	if err != nil {
		return box.UnsignedTx{}, err
	}

	newOracle := box.Candidate{
		Value:  req.Oracle.Raw.Value,
		Script: b.rules.Scripts.Oracle,
		Assets: cloneTokens(req.Oracle.Raw.Assets),
		Registers: box.EncodeRegisters(
			sigma.GroupElement(b.pk.Raw),
			sigma.Int(int32(req.Pool.Epoch)),
			sigma.Long(req.Price),
		),
		CreationHeight: req.Height,
	}

	tx := box.UnsignedTx{
		Inputs:  inputIDs(req.Oracle.Raw, sel.boxes),
		Outputs: []box.Candidate{newOracle},
	}
	tx.Outputs = append(tx.Outputs, b.feeBox(req.Height))
	tx.Outputs = appendChange(tx.Outputs, b.changeBox(sel, fee, req.Height))

	if err := verifyConservation(inputBoxes(req.Oracle.Raw, sel.boxes), &tx); err != nil {
		return box.UnsignedTx{}, err
	}
	return tx, nil
}

// RefreshRequest carries the epoch transition inputs: the pool and refresh
// boxes and the aggregated quorum.
type RefreshRequest struct {
	Pool      box.Pool
	Refresh   box.Refresh
	Consensus datapoint.Consensus
	Height    idx.Block
	Wallet    []box.RawBox
}

// Refresh builds the epoch transition: the successor pool box with the
// consensus price and incremented counter, the refresh box with the reward
// treasury debited, and each contributing oracle's box recreated fresh with
// its reward attached.
func (b *Builder) Refresh(req RefreshRequest) (box.UnsignedTx, error) {
	params := req.Refresh.Params
	quorum := req.Consensus.Datapoints
	if len(quorum) < params.MinDatapoints {
		return box.UnsignedTx{}, fmt.Errorf("%w: %d datapoints below quorum %d", ErrBoxSelection, len(quorum), params.MinDatapoints)
	}

	paid := uint64(len(quorum)) * params.RewardPerDatapoint
	if paid > req.Refresh.RewardBalance {
		return box.UnsignedTx{}, fmt.Errorf("%w: %d rewards due, %d in treasury", ErrTreasuryExhausted, paid, req.Refresh.RewardBalance)
	}

	fee := b.rules.Economy.BaseFee
	sel, err := selectFunding(req.Wallet, fee, b.rules.Economy.MinBoxValue)
	if err != nil {
		return box.UnsignedTx{}, err
	}

	newPool := box.Candidate{
		Value:  req.Pool.Raw.Value,
		Script: b.rules.Scripts.Pool,
		Assets: cloneTokens(req.Pool.Raw.Assets),
		Registers: box.EncodeRegisters(
			sigma.Long(req.Consensus.Price),
			sigma.Int(int32(req.Pool.Epoch)+1),
		),
		CreationHeight: req.Height,
	}

	newRefresh := box.Candidate{
		Value:          req.Refresh.Raw.Value,
		Script:         b.rules.Scripts.Refresh,
		Assets:         debitTreasury(req.Refresh.Raw.Assets, req.Refresh.RewardBalance-paid),
		Registers:      cloneRegisters(req.Refresh.Raw.Registers),
		CreationHeight: req.Height,
	}

	tx := box.UnsignedTx{
		Inputs:  inputIDs(req.Pool.Raw, nil),
		Outputs: []box.Candidate{newPool, newRefresh},
	}
	tx.Inputs = append(tx.Inputs, req.Refresh.Raw.ID)
	for _, dp := range quorum {
		tx.Inputs = append(tx.Inputs, dp.Raw.ID)
		tx.Outputs = append(tx.Outputs, b.rewardedOracleBox(dp, params.RewardPerDatapoint, req.Height))
	}
	for _, fb := range sel.boxes {
		tx.Inputs = append(tx.Inputs, fb.ID)
	}
	tx.Outputs = append(tx.Outputs, b.feeBox(req.Height))
	tx.Outputs = appendChange(tx.Outputs, b.changeBox(sel, fee, req.Height))

	ins := []box.RawBox{req.Pool.Raw, req.Refresh.Raw}
	for _, dp := range quorum {
		ins = append(ins, dp.Raw)
	}
	ins = append(ins, sel.boxes...)
	if err := verifyConservation(ins, &tx); err != nil {
		return box.UnsignedTx{}, err
	}
	return tx, nil
}

// rewardedOracleBox recreates a contributor's participation box in the fresh
// shape with the per-datapoint reward added to its token load.
func (b *Builder) rewardedOracleBox(dp box.Datapoint, reward uint64, height idx.Block) box.Candidate {
	assets := cloneTokens(dp.Raw.Assets)
	credited := false
	for i := range assets {
		if assets[i].ID == b.rules.Tokens.RewardToken {
			assets[i].Amount += reward
			credited = true
			break
		}
	}
	if !credited && reward > 0 {
		assets = append(assets, box.Token{ID: b.rules.Tokens.RewardToken, Amount: reward})
	}
	return box.Candidate{
		Value:          dp.Raw.Value,
		Script:         b.rules.Scripts.Oracle,
		Assets:         assets,
		Registers:      box.EncodeRegisters(sigma.GroupElement(dp.Oracle.Raw)),
		CreationHeight: height,
	}
}

func (b *Builder) feeBox(height idx.Block) box.Candidate {
	return box.Candidate{
		Value:          b.rules.Economy.BaseFee,
		Script:         contracts.FeeTree,
		CreationHeight: height,
	}
}

// changeBox returns the leftover output, or a zero candidate when the
// selection closed exactly.
func (b *Builder) changeBox(sel funding, fee uint64, height idx.Block) box.Candidate {
	leftover := sel.change(fee)
	if leftover == 0 && len(sel.tokens) == 0 {
		return box.Candidate{}
	}
	return box.Candidate{
		Value:          leftover,
		Script:         contracts.PayToPublicKey(b.pk),
		Assets:         sel.tokens,
		CreationHeight: height,
	}
}

func appendChange(outputs []box.Candidate, change box.Candidate) []box.Candidate {
	if change.Value == 0 && len(change.Assets) == 0 {
		return outputs
	}
	return append(outputs, change)
}

// verifyConservation asserts that outputs carry exactly the value and token
// multiset of the inputs.
func verifyConservation(ins []box.RawBox, tx *box.UnsignedTx) error {
	var inValue uint64
	inTokens := map[box.TokenID]uint64{}
	for _, in := range ins {
		inValue += in.Value
		for _, t := range in.Assets {
			inTokens[t.ID] += t.Amount
		}
	}

	if outValue := tx.OutputValue(); outValue != inValue {
		return fmt.Errorf("%w: inputs hold %d, outputs %d", ErrTokenImbalance, inValue, outValue)
	}

	outTokens := tx.OutputTokens()
	for id, amount := range inTokens {
		if outTokens[id] != amount {
			return fmt.Errorf("%w: token %s in %d, out %d", ErrTokenImbalance, id, amount, outTokens[id])
		}
	}
	for id, amount := range outTokens {
		if inTokens[id] != amount {
			return fmt.Errorf("%w: token %s in %d, out %d", ErrTokenImbalance, id, inTokens[id], amount)
		}
	}
	return nil
}

func inputIDs(first box.RawBox, rest []box.RawBox) []box.ID {
	ids := []box.ID{first.ID}
	for _, b := range rest {
		ids = append(ids, b.ID)
	}
	return ids
}

func inputBoxes(first box.RawBox, rest []box.RawBox) []box.RawBox {
	return append([]box.RawBox{first}, rest...)
}

func cloneTokens(tokens []box.Token) []box.Token {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]box.Token, len(tokens))
	copy(out, tokens)
	return out
}

func cloneRegisters(regs box.Registers) box.Registers {
	out := make(box.Registers, len(regs))
	for k, v := range regs {
		out[k] = v
	}
	return out
}

// debitTreasury rebuilds the refresh box assets with the reward slot set to
// remaining, dropping the entry when the treasury empties.
func debitTreasury(assets []box.Token, remaining uint64) []box.Token {
	out := make([]box.Token, 0, len(assets))
	out = append(out, assets[0])
	if remaining > 0 {
		out = append(out, box.Token{ID: assets[1].ID, Amount: remaining})
	}
	if len(assets) > 2 {
		out = append(out, assets[2:]...)
	}
	return out
}
