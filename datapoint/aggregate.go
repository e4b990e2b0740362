// Package datapoint turns the set of posted oracle commitments into a single
// consensus price, or reports why no consensus exists yet.
//
// Aggregation is deterministic: every oracle observing the same boxes at the
// same height computes the identical survivor set and consensus value, so a
// refresh transaction built by any participant satisfies the contract.
package datapoint

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/epoch"
)

// ErrInsufficientQuorum means fewer valid datapoints survived filtering than
// the refresh contract requires. Expected during collection, not a failure.
var ErrInsufficientQuorum = errors.New("insufficient datapoint quorum")

// Consensus is the aggregation result accepted for a refresh.
type Consensus struct {
	// Price is the arithmetic mean of the surviving datapoints, truncated.
	Price int64
	// Datapoints are the survivors in refresh input order: descending by
	// price, ascending by box id between equal prices.
	Datapoints []box.Datapoint
}

// Filter keeps the datapoints that count for the pool's current epoch: the
// epoch reference matches the pool counter and the commit height falls inside
// the epoch window.
func Filter(dps []box.Datapoint, pool box.Pool, w epoch.Window) []box.Datapoint {
	valid := make([]box.Datapoint, 0, len(dps))
	for _, dp := range dps {
		if dp.Epoch != pool.Epoch {
			continue
		}
		if !w.Contains(dp.CommitHeight()) {
			continue
		}
		valid = append(valid, dp)
	}
	return valid
}

// Aggregate filters dps against the pool epoch, trims outliers around the
// median until the set is stable, and averages the survivors. Returns
// ErrInsufficientQuorum if fewer than params.MinDatapoints survive.
func Aggregate(dps []box.Datapoint, pool box.Pool, params box.RefreshParams) (Consensus, error) {
	vals := Filter(dps, pool, epoch.NewWindow(pool, params))
	sort.Slice(vals, func(i, j int) bool {
		if vals[i].Price != vals[j].Price {
			return vals[i].Price < vals[j].Price
		}
		return bytes.Compare(vals[i].Raw.ID[:], vals[j].Raw.ID[:]) < 0
	})

	for len(vals) > 0 {
		m := vals[(len(vals)-1)/2].Price
		kept := vals[:0:len(vals)]
		for _, dp := range vals {
			if withinDeviation(dp.Price, m, params.MaxDeviationPercent) {
				kept = append(kept, dp)
			}
		}
		if len(kept) == len(vals) {
			break
		}
		vals = kept
	}

	if len(vals) < params.MinDatapoints {
		return Consensus{}, fmt.Errorf("%w: %d of %d required", ErrInsufficientQuorum, len(vals), params.MinDatapoints)
	}

	var sum uint64
	for _, dp := range vals {
		sum += uint64(dp.Price)
	}
	ordered := make([]box.Datapoint, len(vals))
	copy(ordered, vals)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Price != ordered[j].Price {
			return ordered[i].Price > ordered[j].Price
		}
		return bytes.Compare(ordered[i].Raw.ID[:], ordered[j].Raw.ID[:]) < 0
	})
	return Consensus{
		Price:      int64(sum / uint64(len(vals))),
		Datapoints: ordered,
	}, nil
}

// withinDeviation reports whether |price − median| × 100 ≤ median × maxPercent.
// The difference is checked against a saturation bound first so the scaled
// comparison cannot overflow.
func withinDeviation(price, median, maxPercent int64) bool {
	diff := price - median
	if diff < 0 {
		diff = -diff
	}
	if diff > math.MaxInt64/100 {
		return false
	}
	if median > math.MaxInt64/maxPercentOrOne(maxPercent) {
		return true
	}
	return diff*100 <= median*maxPercent
}

func maxPercentOrOne(p int64) int64 {
	if p <= 0 {
		return 1
	}
	return p
}
