package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/datapoint"
	"github.com/oraclesuite/go-oraclepool/feed"
	"github.com/oraclesuite/go-oraclepool/node"
	"github.com/oraclesuite/go-oraclepool/pool"
	"github.com/oraclesuite/go-oraclepool/submit"
	"github.com/oraclesuite/go-oraclepool/txbuilder"
)

// ChainSource reads the protocol state. node.Tracker is the production
// implementation, tests use an in-memory ledger.
type ChainSource interface {
	Snapshot(ctx context.Context) (*node.View, error)
}

// DefaultInterval is the tick period, roughly half the chain's block time
// so no window transition is missed.
const DefaultInterval = 30 * time.Second

// Options wires a Runner. Rules, Key, Chain, Submitter and Feed are
// required; the rest default.
type Options struct {
	Rules     pool.Rules
	Key       oraclepk.PubKey
	Chain     ChainSource
	Submitter submit.Submitter
	Feed      feed.Source
	Policy    submit.Policy
	Interval  time.Duration
	Log       *logrus.Logger
	Metrics   *Metrics
}

// Runner is the participant loop.
type Runner struct {
	rules    pool.Rules
	chain    ChainSource
	feed     feed.Source
	builder  *txbuilder.Builder
	coord    *submit.Coordinator
	interval time.Duration
	log      *logrus.Logger
	metrics  *Metrics
	status   atomic.Value // Status
}

func New(opts Options) (*Runner, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if opts.Key.Empty() {
		return nil, errors.New("oracle: participant key required")
	}
	if opts.Chain == nil {
		return nil, errors.New("oracle: chain source required")
	}
	if opts.Submitter == nil {
		return nil, errors.New("oracle: submitter required")
	}
	if opts.Feed == nil {
		return nil, errors.New("oracle: price feed required")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	policy := opts.Policy
	if policy.MaxAttempts == 0 {
		policy = submit.DefaultPolicy()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Runner{
		rules:    opts.Rules,
		chain:    opts.Chain,
		feed:     opts.Feed,
		builder:  txbuilder.New(opts.Rules, opts.Key),
		coord:    submit.NewCoordinator(opts.Submitter, policy, log),
		interval: interval,
		log:      log,
		metrics:  metrics,
	}, nil
}

// Status is the tick snapshot published for the API. Readers get a copy
// and never block the loop.
type Status struct {
	Height            idx.Block `json:"height"`
	Epoch             idx.Epoch `json:"epoch"`
	Phase             string    `json:"phase"`
	BlocksLeft        uint64    `json:"blocksToNextEpoch"`
	Datapoints        int       `json:"activeDatapoints"`
	Consensus         int64     `json:"consensusPreview,omitempty"`
	OwnCommitted      bool      `json:"ownCommitted"`
	LastAction        string    `json:"lastAction,omitempty"`
	LastError         string    `json:"lastError,omitempty"`
	LastTx            string    `json:"lastTx,omitempty"`
	LastSuccessHeight idx.Block `json:"lastSuccessHeight,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Status returns the last published snapshot.
func (r *Runner) Status() Status {
	st, _ := r.status.Load().(Status)
	return st
}

// Run ticks until the context is canceled. The first tick fires
// immediately; shutdown happens between ticks, never inside one.
func (r *Runner) Run(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"rules":    r.rules.Name,
		"interval": r.interval,
	}).Info("participant loop started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			r.log.Info("participant loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one iteration and publishes the resulting status. Errors are
// absorbed into the status; no error escapes a tick.
func (r *Runner) Tick(ctx context.Context) Status {
	r.metrics.Ticks.Inc()
	prev := r.Status()
	st := Status{
		LastTx:            prev.LastTx,
		LastSuccessHeight: prev.LastSuccessHeight,
		UpdatedAt:         time.Now(),
	}
	defer func() { r.status.Store(st) }()

	view, err := r.chain.Snapshot(ctx)
	if err != nil {
		r.metrics.TickFailures.Inc()
		st.LastError = err.Error()
		r.log.WithError(err).Warn("chain snapshot failed")
		return st
	}

	d := Decide(view)
	st.Height = view.Height
	st.Epoch = view.Pool.Epoch
	st.Phase = d.Phase.String()
	st.BlocksLeft = d.Window.BlocksLeft(view.Height)
	st.OwnCommitted = view.OwnCommitted(view.Pool.Epoch)
	st.LastAction = d.Kind.String()

	eligible := datapoint.Filter(view.Datapoints, *view.Pool, d.Window)
	st.Datapoints = len(eligible)
	if cons, err := datapoint.Aggregate(eligible, *view.Pool, view.Refresh.Params); err == nil {
		st.Consensus = cons.Price
	}

	r.metrics.Height.Set(float64(view.Height))
	r.metrics.Epoch.Set(float64(view.Pool.Epoch))
	r.metrics.Phase.Set(float64(d.Phase))
	r.metrics.Datapoints.Set(float64(st.Datapoints))
	r.metrics.Consensus.Set(float64(st.Consensus))
	r.metrics.Actions.WithLabelValues(d.Kind.String()).Inc()

	switch d.Kind {
	case ActionIdle:
		r.log.WithFields(logrus.Fields{
			"phase":  d.Phase,
			"reason": d.Reason,
		}).Debug("idle")

	case ActionCommit:
		price, err := r.feed.FetchPrice(ctx)
		if err != nil {
			r.metrics.FeedErrors.Inc()
			st.LastAction = ActionIdle.String()
			st.LastError = err.Error()
			r.log.WithError(err).Warn("price fetch failed, skipping commit")
			return st
		}
		tx, err := r.builder.Commit(txbuilder.CommitRequest{
			Oracle: *view.Own,
			Pool:   *view.Pool,
			Price:  price,
			Height: view.Height,
			Wallet: view.Wallet,
		})
		if err != nil {
			r.failTick(&st, err, "commit build failed")
			return st
		}
		r.submitTx(ctx, tx, &st, view.Height, d.Kind)

	case ActionRefresh:
		tx, err := r.builder.Refresh(txbuilder.RefreshRequest{
			Pool:      *view.Pool,
			Refresh:   *view.Refresh,
			Consensus: d.Consensus,
			Height:    view.Height,
			Wallet:    view.Wallet,
		})
		if err != nil {
			r.failTick(&st, err, "refresh build failed")
			return st
		}
		r.submitTx(ctx, tx, &st, view.Height, d.Kind)
	}
	return st
}

func (r *Runner) failTick(st *Status, err error, msg string) {
	r.metrics.TickFailures.Inc()
	st.LastError = err.Error()
	r.log.WithError(err).Warn(msg)
}

func (r *Runner) submitTx(ctx context.Context, tx box.UnsignedTx, st *Status, height idx.Block, kind ActionKind) {
	res := r.coord.Do(ctx, tx)
	if res.Err != nil {
		st.LastError = res.Err.Error()
		r.metrics.SubmitErrors.WithLabelValues(res.Class.String()).Inc()
		entry := r.log.WithError(res.Err).WithFields(logrus.Fields{
			"kind":     kind,
			"attempts": res.Attempts,
		})
		switch res.Class {
		case submit.ClassStaleInput:
			entry.Info("inputs spent by a competing transaction, resyncing next tick")
		case submit.ClassRejectedByContract:
			entry.Error("transaction rejected by a guard script, operator attention needed")
		default:
			entry.Warn("submission failed")
		}
		return
	}
	st.LastTx = res.TxID.String()
	st.LastSuccessHeight = height
	r.log.WithFields(logrus.Fields{
		"kind":     kind,
		"tx":       res.TxID,
		"attempts": res.Attempts,
	}).Info("action submitted")
}
