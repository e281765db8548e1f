// Package stock implements FIFO lot allocation and the conflict-safe
// application of the resulting deductions.
package stock

import (
	"barreldrop/backend/internal/domain"
)

// Epsilon is the tolerance below which a quantity counts as zero.
const Epsilon = 1e-9

// Allocation is the outcome of planning one request line against the lots of
// a single item.
type Allocation struct {
	// Remaining is the requested quantity that could not be covered.
	Remaining float64
	// LineCost is the unrounded cost of the covered quantity.
	LineCost float64
}

// Plan accumulates FIFO deductions across the lines of one request. Earlier
// lines stage reduced remaining quantities so later lines for the same item
// see lots already partially consumed. A Plan is not safe for concurrent use.
type Plan struct {
	staged     map[string]float64
	deductions map[string]float64
	order      []string
}

func NewPlan() *Plan {
	return &Plan{
		staged:     make(map[string]float64),
		deductions: make(map[string]float64),
	}
}

// Allocate walks lots in the given order and consumes from each until the
// requested quantity is covered or the lots run out. Staged remainders from
// prior Allocate calls take precedence over the persisted remaining quantity.
func (p *Plan) Allocate(lots []domain.StockLot, requested float64) Allocation {
	remaining := requested
	var lineCost float64
	for _, lot := range lots {
		if remaining <= Epsilon {
			break
		}
		available, ok := p.staged[lot.ID]
		if !ok {
			available = lot.RemainingQuantity
		}
		if available <= Epsilon {
			continue
		}
		use := available
		if remaining < use {
			use = remaining
		}
		if _, seen := p.deductions[lot.ID]; !seen {
			p.order = append(p.order, lot.ID)
		}
		p.deductions[lot.ID] += use
		p.staged[lot.ID] = available - use
		lineCost += use * lot.UnitCost
		remaining -= use
	}
	if remaining <= Epsilon {
		remaining = 0
	}
	return Allocation{Remaining: remaining, LineCost: lineCost}
}

// Deductions returns the accumulated per-lot deductions in first-touch
// order, skipping lots whose total fell to zero.
func (p *Plan) Deductions() []domain.LotDeduction {
	out := make([]domain.LotDeduction, 0, len(p.order))
	for _, id := range p.order {
		qty := p.deductions[id]
		if qty <= Epsilon {
			continue
		}
		out = append(out, domain.LotDeduction{LotID: id, Quantity: qty})
	}
	return out
}

// Empty reports whether the plan carries no effective deductions.
func (p *Plan) Empty() bool {
	return len(p.Deductions()) == 0
}
