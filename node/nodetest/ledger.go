// Package nodetest provides an in-memory ledger standing in for a node
// during tests: state snapshots, signing, and transaction application
// without HTTP or key material. Validation is just strict enough to catch
// the bugs the real chain would catch: unknown inputs and broken value or
// token conservation.
package nodetest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/node"
	"github.com/oraclesuite/go-oraclepool/pool"
	"github.com/oraclesuite/go-oraclepool/pool/contracts"
	"github.com/oraclesuite/go-oraclepool/submit"
	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

// Ledger is a miniature UTXO set.
type Ledger struct {
	mu     sync.Mutex
	rules  pool.Rules
	height idx.Block
	boxes  map[box.ID]box.RawBox
	order  []box.ID
	seq    uint64

	// SubmitErr fails the next SignAndSubmit with the given error, once.
	SubmitErr error
}

// New creates an empty ledger at height 1.
func New(rules pool.Rules) *Ledger {
	return &Ledger{
		rules:  rules,
		height: 1,
		boxes:  map[box.ID]box.RawBox{},
	}
}

func (l *Ledger) newID() box.ID {
	l.seq++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], l.seq)
	return box.ID(sha256.Sum256(seed[:]))
}

func (l *Ledger) put(c box.Candidate) box.RawBox {
	raw := box.RawBox{
		ID:             l.newID(),
		Value:          c.Value,
		Script:         c.Script,
		Assets:         c.Assets,
		Registers:      c.Registers,
		CreationHeight: c.CreationHeight,
	}
	l.boxes[raw.ID] = raw
	l.order = append(l.order, raw.ID)
	return raw
}

// Genesis seeds the pool and refresh boxes of a fresh deployment.
func (l *Ledger) Genesis(price int64, epoch idx.Epoch, params box.RefreshParams, treasury uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.put(box.Candidate{
		Value:  l.rules.Economy.MinBoxValue,
		Script: l.rules.Scripts.Pool,
		Assets: []box.Token{{ID: l.rules.Tokens.PoolNFT, Amount: 1}},
		Registers: box.EncodeRegisters(
			sigma.Long(price),
			sigma.Int(int32(epoch)),
		),
		CreationHeight: l.height,
	})
	l.put(box.Candidate{
		Value:  l.rules.Economy.MinBoxValue,
		Script: l.rules.Scripts.Refresh,
		Assets: []box.Token{
			{ID: l.rules.Tokens.RefreshNFT, Amount: 1},
			{ID: l.rules.Tokens.RewardToken, Amount: treasury},
		},
		Registers: box.EncodeRegisters(
			sigma.Int(int32(params.EpochLength)),
			sigma.Int(int32(params.BufferLength)),
			sigma.Int(int32(params.MinDatapoints)),
			sigma.Int(int32(params.MaxDeviationPercent)),
			sigma.Long(int64(params.RewardPerDatapoint)),
		),
		CreationHeight: l.height,
	})
}

// Enroll creates a fresh participation box holding pk's oracle token.
func (l *Ledger) Enroll(pk oraclepk.PubKey) box.RawBox {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.put(box.Candidate{
		Value:          l.rules.Economy.MinBoxValue,
		Script:         l.rules.Scripts.Oracle,
		Assets:         []box.Token{{ID: l.rules.Tokens.OracleToken, Amount: 1}},
		Registers:      box.EncodeRegisters(sigma.GroupElement(pk.Raw)),
		CreationHeight: l.height,
	})
}

// EnrollCommitted creates a participation box already carrying a
// datapoint for the given epoch, committed at the current height.
func (l *Ledger) EnrollCommitted(pk oraclepk.PubKey, ep idx.Epoch, price int64) box.RawBox {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.put(box.Candidate{
		Value:  l.rules.Economy.MinBoxValue,
		Script: l.rules.Scripts.Oracle,
		Assets: []box.Token{{ID: l.rules.Tokens.OracleToken, Amount: 1}},
		Registers: box.EncodeRegisters(
			sigma.GroupElement(pk.Raw),
			sigma.Int(int32(ep)),
			sigma.Long(price),
		),
		CreationHeight: l.height,
	})
}

// Fund credits pk's wallet with one box of the given value.
func (l *Ledger) Fund(pk oraclepk.PubKey, value uint64) box.RawBox {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.put(box.Candidate{
		Value:          value,
		Script:         contracts.PayToPublicKey(pk),
		CreationHeight: l.height,
	})
}

// SetHeight moves the chain tip.
func (l *Ledger) SetHeight(h idx.Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height = h
}

// Advance moves the tip forward by n blocks.
func (l *Ledger) Advance(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height += idx.Block(n)
}

// Height returns the current tip.
func (l *Ledger) Height() idx.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Unspent returns all live boxes in creation order.
func (l *Ledger) Unspent() []box.RawBox {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]box.RawBox, 0, len(l.order))
	for _, id := range l.order {
		if raw, ok := l.boxes[id]; ok {
			out = append(out, raw)
		}
	}
	return out
}

// PoolBox decodes the live pool box.
func (l *Ledger) PoolBox() (*box.Pool, error) {
	for _, raw := range l.Unspent() {
		if raw.CarriesSingleton(l.rules.Tokens.PoolNFT) {
			return box.DecodePool(raw, l.rules.Tokens.PoolNFT)
		}
	}
	return nil, fmt.Errorf("nodetest: no pool box")
}

// RefreshBox decodes the live refresh box.
func (l *Ledger) RefreshBox() (*box.Refresh, error) {
	for _, raw := range l.Unspent() {
		if raw.CarriesSingleton(l.rules.Tokens.RefreshNFT) {
			return box.DecodeRefresh(raw, l.rules.Tokens.RefreshNFT)
		}
	}
	return nil, fmt.Errorf("nodetest: no refresh box")
}

// Source is one oracle's view of the ledger. It satisfies the snapshot
// and submission interfaces the oracle loop runs against.
type Source struct {
	l  *Ledger
	pk oraclepk.PubKey
}

// Source returns a view bound to pk.
func (l *Ledger) Source(pk oraclepk.PubKey) *Source {
	return &Source{l: l, pk: pk}
}

// Snapshot assembles a node.View from the current UTXO set.
func (s *Source) Snapshot(ctx context.Context) (*node.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.l
	l.mu.Lock()
	defer l.mu.Unlock()

	view := &node.View{Height: l.height}
	walletScript := contracts.PayToPublicKey(s.pk)

	for _, id := range l.order {
		raw, ok := l.boxes[id]
		if !ok {
			continue
		}
		switch {
		case raw.CarriesSingleton(l.rules.Tokens.PoolNFT):
			p, err := box.DecodePool(raw, l.rules.Tokens.PoolNFT)
			if err != nil {
				return nil, err
			}
			view.Pool = p
		case raw.CarriesSingleton(l.rules.Tokens.RefreshNFT):
			r, err := box.DecodeRefresh(raw, l.rules.Tokens.RefreshNFT)
			if err != nil {
				return nil, err
			}
			view.Refresh = r
		case raw.CarriesSingleton(l.rules.Tokens.OracleToken):
			if dp, err := box.DecodeDatapoint(raw, l.rules.Tokens.OracleToken); err == nil {
				view.Datapoints = append(view.Datapoints, *dp)
			}
			if own, err := box.DecodeOracle(raw, l.rules.Tokens.OracleToken); err == nil && own.PK.Equal(s.pk) {
				view.Own = own
			}
		case raw.Script == walletScript:
			view.Wallet = append(view.Wallet, raw)
		}
	}
	if view.Pool == nil {
		return nil, fmt.Errorf("nodetest: no pool box")
	}
	if view.Refresh == nil {
		return nil, fmt.Errorf("nodetest: no refresh box")
	}
	return view, nil
}

// SignAndSubmit applies the transaction to the UTXO set and advances the
// tip by one block.
func (s *Source) SignAndSubmit(ctx context.Context, tx box.UnsignedTx) (box.TxID, error) {
	if err := ctx.Err(); err != nil {
		return box.TxID{}, err
	}
	l := s.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.SubmitErr != nil {
		err := l.SubmitErr
		l.SubmitErr = nil
		return box.TxID{}, err
	}

	var inValue uint64
	inTokens := map[box.TokenID]uint64{}
	for _, id := range tx.Inputs {
		raw, ok := l.boxes[id]
		if !ok {
			return box.TxID{}, fmt.Errorf("nodetest: unknown box %s: %w", id, submit.ErrStaleInput)
		}
		inValue += raw.Value
		for _, tok := range raw.Assets {
			inTokens[tok.ID] += tok.Amount
		}
	}
	if inValue != tx.OutputValue() {
		return box.TxID{}, fmt.Errorf("nodetest: value not conserved (%d in, %d out): %w",
			inValue, tx.OutputValue(), submit.ErrRejected)
	}
	outTokens := tx.OutputTokens()
	for id, amount := range inTokens {
		if outTokens[id] != amount {
			return box.TxID{}, fmt.Errorf("nodetest: token %s not conserved: %w", id, submit.ErrRejected)
		}
	}
	for id := range outTokens {
		if _, ok := inTokens[id]; !ok {
			return box.TxID{}, fmt.Errorf("nodetest: token %s minted from nothing: %w", id, submit.ErrRejected)
		}
	}

	for _, id := range tx.Inputs {
		delete(l.boxes, id)
	}
	for _, out := range tx.Outputs {
		l.put(out)
	}
	l.height++
	return box.TxID(l.newID()), nil
}
