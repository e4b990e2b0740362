package txbuilder

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/oraclesuite/go-oraclepool/box"
)

// funding is the set of wallet boxes chosen to cover a fee, plus the token
// load they drag along into the change output.
type funding struct {
	boxes  []box.RawBox
	total  uint64
	tokens []box.Token
}

// change is the value left over after paying need.
func (f funding) change(need uint64) uint64 {
	return f.total - need
}

// selectFunding picks wallet boxes greedily by descending value until they
// cover need. When the selection overshoots, or carries tokens that must not
// be burned, the leftover goes to a change box, which in turn must reach
// minChange; selection continues until that also holds.
func selectFunding(wallet []box.RawBox, need, minChange uint64) (funding, error) {
	sorted := make([]box.RawBox, len(wallet))
	copy(sorted, wallet)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})

	var sel funding
	for _, b := range sorted {
		sel.boxes = append(sel.boxes, b)
		sel.total += b.Value
		sel.tokens = mergeTokens(sel.tokens, b.Assets)

		if sel.total < need {
			continue
		}
		leftover := sel.total - need
		if leftover == 0 && len(sel.tokens) == 0 {
			return sel, nil
		}
		if leftover >= minChange {
			return sel, nil
		}
	}

	if sel.total < need {
		return funding{}, fmt.Errorf("%w: %d available, %d needed", ErrInsufficientFunds, sel.total, need)
	}
	return funding{}, fmt.Errorf("%w: change %d below the minimum box value %d", ErrBoxSelection, sel.total-need, minChange)
}

// mergeTokens folds additional assets into totals, preserving first-seen
// order so the change box is deterministic.
func mergeTokens(totals []box.Token, extra []box.Token) []box.Token {
	for _, t := range extra {
		found := false
		for i := range totals {
			if totals[i].ID == t.ID {
				totals[i].Amount += t.Amount
				found = true
				break
			}
		}
		if !found {
			totals = append(totals, box.Token{ID: t.ID, Amount: t.Amount})
		}
	}
	return totals
}
