// Package oracle runs the participant loop: read the chain, pick the one
// legal action for this tick, build it, submit it. All protocol state is
// re-derived from the ledger every tick, nothing is carried over.
package oracle

import (
	"github.com/oraclesuite/go-oraclepool/datapoint"
	"github.com/oraclesuite/go-oraclepool/epoch"
	"github.com/oraclesuite/go-oraclepool/node"
)

// ActionKind is the protocol step selected for a tick.
type ActionKind int

const (
	ActionIdle ActionKind = iota
	ActionCommit
	ActionRefresh
)

func (k ActionKind) String() string {
	switch k {
	case ActionIdle:
		return "idle"
	case ActionCommit:
		return "commit"
	case ActionRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Decision is the outcome of the selector: the action to take and, for a
// refresh, the consensus it settles on. Reason explains an Idle.
type Decision struct {
	Kind      ActionKind
	Reason    string
	Window    epoch.Window
	Phase     epoch.Phase
	Consensus datapoint.Consensus
}

// Decide picks the action for one view. First match wins:
//
//  1. refresh window open and quorum met → Refresh. Refreshing is
//     time-boxed and unblocks the next epoch for everyone, so it comes
//     before everything else, including our own idle-when-committed.
//  2. own commitment current for this epoch → Idle.
//  3. commits still accepted and no current own commitment → Commit.
//  4. otherwise Idle.
//
// A Commit decision still needs a price from the feed; that is the
// runner's job, a feed failure skips the commit without failing the tick.
func Decide(view *node.View) Decision {
	w := epoch.NewWindow(*view.Pool, view.Refresh.Params)
	phase := w.Phase(view.Height)
	d := Decision{Kind: ActionIdle, Window: w, Phase: phase}

	if phase == epoch.AwaitingRefresh || phase == epoch.Expired {
		eligible := datapoint.Filter(view.Datapoints, *view.Pool, w)
		cons, err := datapoint.Aggregate(eligible, *view.Pool, view.Refresh.Params)
		if err == nil {
			d.Kind = ActionRefresh
			d.Consensus = cons
			return d
		}
		if phase == epoch.Expired {
			d.Reason = "epoch expired below quorum"
			return d
		}
	}

	if view.OwnCommitted(view.Pool.Epoch) && w.Contains(view.Own.CommitHeight()) {
		d.Reason = "datapoint already committed"
		return d
	}
	if view.Own == nil {
		d.Reason = "no participation box holds our oracle token"
		return d
	}
	if phase == epoch.Collecting || phase == epoch.AwaitingRefresh {
		d.Kind = ActionCommit
		return d
	}
	d.Reason = "nothing legal to do"
	return d
}
