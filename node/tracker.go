package node

import (
	"context"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/pool"
)

// View is the protocol state read in one pass: the two singleton boxes,
// all committed datapoint boxes, our own participation box, and the wallet
// boxes available for funding. Actions within one tick are decided against
// a single View, never against fresher reads.
type View struct {
	Height     idx.Block
	Pool       *box.Pool
	Refresh    *box.Refresh
	Datapoints []box.Datapoint
	Own        *box.Oracle // nil until a box holds our key
	Wallet     []box.RawBox
}

// OwnCommitted reports whether our participation box already carries a
// datapoint for the given epoch.
func (v *View) OwnCommitted(epoch idx.Epoch) bool {
	return v.Own != nil && v.Own.Committed && v.Own.Epoch == epoch
}

// Tracker reads protocol state through the node's registered scans.
type Tracker struct {
	client *Client
	rules  pool.Rules
	pk     oraclepk.PubKey
	scans  ScanSet
	log    *logrus.Logger
}

func NewTracker(client *Client, rules pool.Rules, pk oraclepk.PubKey, scans ScanSet, log *logrus.Logger) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{client: client, rules: rules, pk: pk, scans: scans, log: log}
}

// Snapshot assembles a View at the node's current height. The pool and
// refresh boxes are mandatory, a missing or undecodable one fails the
// snapshot. Malformed datapoint boxes are skipped with a warning, they are
// another oracle's bug and must not stall this one.
func (t *Tracker) Snapshot(ctx context.Context) (*View, error) {
	height, err := t.client.Height(ctx)
	if err != nil {
		return nil, err
	}

	poolRaw, err := t.singletonBox(ctx, t.scans.Pool, "pool")
	if err != nil {
		return nil, err
	}
	poolBox, err := box.DecodePool(poolRaw, t.rules.Tokens.PoolNFT)
	if err != nil {
		return nil, err
	}

	refreshRaw, err := t.singletonBox(ctx, t.scans.Refresh, "refresh")
	if err != nil {
		return nil, err
	}
	refreshBox, err := box.DecodeRefresh(refreshRaw, t.rules.Tokens.RefreshNFT)
	if err != nil {
		return nil, err
	}

	dps, err := t.datapoints(ctx)
	if err != nil {
		return nil, err
	}
	own, err := t.ownBox(ctx)
	if err != nil {
		return nil, err
	}
	wallet, err := t.client.WalletBoxes(ctx)
	if err != nil {
		return nil, err
	}

	return &View{
		Height:     height,
		Pool:       poolBox,
		Refresh:    refreshBox,
		Datapoints: dps,
		Own:        own,
		Wallet:     wallet,
	}, nil
}

func (t *Tracker) singletonBox(ctx context.Context, id ScanID, what string) (box.RawBox, error) {
	boxes, err := t.client.UnspentScanBoxes(ctx, id)
	if err != nil {
		return box.RawBox{}, err
	}
	if len(boxes) == 0 {
		return box.RawBox{}, fmt.Errorf("node: no %s box in the utxo set", what)
	}
	if len(boxes) > 1 {
		t.log.WithFields(logrus.Fields{"scan": what, "count": len(boxes)}).
			Warn("singleton scan matched multiple boxes, using the first")
	}
	return boxes[0], nil
}

func (t *Tracker) datapoints(ctx context.Context) ([]box.Datapoint, error) {
	boxes, err := t.client.UnspentScanBoxes(ctx, t.scans.Datapoints)
	if err != nil {
		return nil, err
	}
	dps := make([]box.Datapoint, 0, len(boxes))
	for _, raw := range boxes {
		dp, err := box.DecodeDatapoint(raw, t.rules.Tokens.OracleToken)
		if err != nil {
			// Fresh boxes carry no datapoint yet and fail the strict
			// decoder. Only log the genuinely broken ones.
			if _, hasPrice := raw.Registers[box.RegR6]; hasPrice {
				t.log.WithError(err).WithField("box", raw.ID).Warn("skipping malformed datapoint box")
			}
			continue
		}
		dps = append(dps, *dp)
	}
	return dps, nil
}

func (t *Tracker) ownBox(ctx context.Context) (*box.Oracle, error) {
	boxes, err := t.client.UnspentScanBoxes(ctx, t.scans.LocalOracle)
	if err != nil {
		return nil, err
	}
	for _, raw := range boxes {
		own, err := box.DecodeOracle(raw, t.rules.Tokens.OracleToken)
		if err != nil {
			t.log.WithError(err).WithField("box", raw.ID).Warn("skipping malformed local oracle box")
			continue
		}
		if !own.PK.Equal(t.pk) {
			continue
		}
		return own, nil
	}
	return nil, nil
}
