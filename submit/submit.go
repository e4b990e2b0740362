// Package submit coordinates handing candidate transactions to the external
// signer/broadcaster. All failure classification lives in this package's
// single table, and all retrying in its single policy, so neither is
// scattered through transaction construction or the polling loop.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oraclesuite/go-oraclepool/box"
)

// Sentinel errors the ledger client wraps submission failures in. Wrapping
// preserves the wire detail; classification goes through errors.Is.
var (
	// ErrStaleInput marks a referenced box already spent, usually by a
	// competing oracle this tick.
	ErrStaleInput = errors.New("stale input box")
	// ErrUnavailable marks connectivity trouble or a 5xx from the node.
	ErrUnavailable = errors.New("node unavailable")
	// ErrRejected marks a script validation failure.
	ErrRejected = errors.New("rejected by contract")
)

// Class partitions submission failures by the reaction they require.
type Class int

const (
	// ClassNone is a successful submission.
	ClassNone Class = iota
	// ClassStaleInput triggers an immediate resynchronization and
	// re-evaluation, never a blind retry of the same candidate.
	ClassStaleInput
	// ClassNodeUnavailable is transient and retried with bounded backoff.
	ClassNodeUnavailable
	// ClassRejectedByContract is fatal for the candidate and surfaced.
	ClassRejectedByContract
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassStaleInput:
		return "stale-input"
	case ClassNodeUnavailable:
		return "node-unavailable"
	case ClassRejectedByContract:
		return "rejected-by-contract"
	default:
		return "unknown"
	}
}

// classTable is the one mapping from error causes to classes.
var classTable = []struct {
	target error
	class  Class
}{
	{ErrStaleInput, ClassStaleInput},
	{ErrUnavailable, ClassNodeUnavailable},
	{ErrRejected, ClassRejectedByContract},
}

// Classify resolves an error to its submission class. Unrecognized errors
// count as node trouble: the bounded retry either absorbs a transient cause
// or surfaces the error after the budget runs out.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	for _, entry := range classTable {
		if errors.Is(err, entry.target) {
			return entry.class
		}
	}
	return ClassNodeUnavailable
}

// Policy is the retry policy for transient submission failures.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy bounds transient retries to five attempts under ten seconds
// of accumulated backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Backoff returns the delay after the given 1-based failed attempt,
// doubling from BaseDelay up to MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := uint(attempt - 1)
	if shift > 20 {
		shift = 20
	}
	delay := p.BaseDelay << shift
	if delay > p.MaxDelay || delay <= 0 {
		return p.MaxDelay
	}
	return delay
}

// Submitter signs and broadcasts a candidate transaction. The process never
// touches key material itself.
type Submitter interface {
	SignAndSubmit(ctx context.Context, tx box.UnsignedTx) (box.TxID, error)
}

// Result is the outcome of one coordinated submission.
type Result struct {
	TxID     box.TxID
	Class    Class
	Attempts int
	Err      error
}

// Coordinator drives a Submitter under the retry policy.
type Coordinator struct {
	submitter Submitter
	policy    Policy
	log       *logrus.Logger
}

// NewCoordinator wires a submitter to the policy. A nil logger falls back to
// the standard one.
func NewCoordinator(submitter Submitter, policy Policy, log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{
		submitter: submitter,
		policy:    policy,
		log:       log,
	}
}

// Do submits tx, retrying only node-unavailable failures. Stale inputs and
// contract rejections return after the first attempt with their class set.
func (c *Coordinator) Do(ctx context.Context, tx box.UnsignedTx) Result {
	for attempt := 1; ; attempt++ {
		id, err := c.submitter.SignAndSubmit(ctx, tx)
		if err == nil {
			return Result{TxID: id, Class: ClassNone, Attempts: attempt}
		}

		class := Classify(err)
		if class != ClassNodeUnavailable || attempt >= c.policy.MaxAttempts {
			return Result{Class: class, Attempts: attempt, Err: err}
		}

		delay := c.policy.Backoff(attempt)
		c.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": delay,
		}).Warn("transaction submission failed, backing off")

		select {
		case <-ctx.Done():
			return Result{Class: class, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}
