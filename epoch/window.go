// Package epoch derives the phase of the active pool epoch from the current
// ledger height. The window is recomputed from fresh boxes on every tick and
// never cached: a reorg that moves the pool box or the height invalidates
// nothing because nothing is stored.
package epoch

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/oraclesuite/go-oraclepool/box"
)

// Phase is the position of the current height inside the epoch window.
type Phase int

const (
	// Collecting accepts new datapoint commits.
	Collecting Phase = iota
	// AwaitingRefresh is the tail buffer of the epoch where commits stop
	// and a refresh becomes legal once quorum is met.
	AwaitingRefresh
	// Expired means the window has fully elapsed and only a refresh can
	// advance the pool.
	Expired
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case AwaitingRefresh:
		return "awaiting-refresh"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("phase-%d", int(p))
	}
}

// Window is the active epoch of the pool, derived from the pool box creation
// height and the refresh box parameters.
type Window struct {
	Start  idx.Block
	Length uint32
	Buffer uint32
}

// NewWindow derives the epoch window from the current pool state.
func NewWindow(pool box.Pool, params box.RefreshParams) Window {
	return Window{
		Start:  pool.EpochStart(),
		Length: params.EpochLength,
		Buffer: params.BufferLength,
	}
}

// End is the first height past the window.
func (w Window) End() idx.Block {
	return w.Start + idx.Block(w.Length)
}

// RefreshAt is the height where the collecting portion ends and the
// buffer begins.
func (w Window) RefreshAt() idx.Block {
	return w.Start + idx.Block(w.Length) - idx.Block(w.Buffer)
}

// Phase places height inside the window. Heights below Start can occur after
// a reorg of the chain tip; they count as Collecting so the oracle resumes
// committing instead of stalling.
func (w Window) Phase(height idx.Block) Phase {
	switch {
	case height < w.Start:
		return Collecting
	case height < w.RefreshAt():
		return Collecting
	case height < w.End():
		return AwaitingRefresh
	default:
		return Expired
	}
}

// Contains reports whether height falls inside the epoch window. Datapoint
// commits are only valid while their creation height is contained.
func (w Window) Contains(height idx.Block) bool {
	return height >= w.Start && height < w.End()
}

// BlocksLeft is the number of blocks until the window expires, zero once it
// already has.
func (w Window) BlocksLeft(height idx.Block) uint64 {
	if height >= w.End() {
		return 0
	}
	return uint64(w.End() - height)
}
