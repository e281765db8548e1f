package stock

import (
	"testing"
	"time"

	"barreldrop/backend/internal/domain"
)

func lot(id string, remaining, unitCost float64) domain.StockLot {
	return domain.StockLot{
		ID:                id,
		ItemID:            "item-1",
		Quantity:          remaining,
		RemainingQuantity: remaining,
		UnitCost:          unitCost,
		PurchasedAt:       time.Now(),
	}
}

func TestAllocateSingleLot(t *testing.T) {
	p := NewPlan()
	got := p.Allocate([]domain.StockLot{lot("a", 10, 5)}, 3)
	if got.Remaining != 0 {
		t.Fatalf("remaining = %v, want 0", got.Remaining)
	}
	if got.LineCost != 15 {
		t.Fatalf("line cost = %v, want 15", got.LineCost)
	}
	ded := p.Deductions()
	if len(ded) != 1 || ded[0].LotID != "a" || ded[0].Quantity != 3 {
		t.Fatalf("deductions = %+v", ded)
	}
}

func TestAllocateSpansLotsFIFO(t *testing.T) {
	p := NewPlan()
	lots := []domain.StockLot{lot("a", 2, 3), lot("b", 5, 4)}
	got := p.Allocate(lots, 4)
	if got.Remaining != 0 {
		t.Fatalf("remaining = %v, want 0", got.Remaining)
	}
	if got.LineCost != 14 { // 2*3 + 2*4
		t.Fatalf("line cost = %v, want 14", got.LineCost)
	}
	ded := p.Deductions()
	if len(ded) != 2 {
		t.Fatalf("deductions = %+v", ded)
	}
	if ded[0].LotID != "a" || ded[0].Quantity != 2 {
		t.Fatalf("first deduction = %+v", ded[0])
	}
	if ded[1].LotID != "b" || ded[1].Quantity != 2 {
		t.Fatalf("second deduction = %+v", ded[1])
	}
}

func TestAllocateStagesAcrossLines(t *testing.T) {
	p := NewPlan()
	lots := []domain.StockLot{lot("a", 5, 2), lot("b", 5, 3)}

	// First line takes 4 from lot a.
	first := p.Allocate(lots, 4)
	if first.Remaining != 0 || first.LineCost != 8 {
		t.Fatalf("first allocation = %+v", first)
	}
	// Second line for the same item must see only 1 left in lot a.
	second := p.Allocate(lots, 3)
	if second.Remaining != 0 {
		t.Fatalf("second remaining = %v, want 0", second.Remaining)
	}
	if second.LineCost != 8 { // 1*2 + 2*3
		t.Fatalf("second line cost = %v, want 8", second.LineCost)
	}

	ded := p.Deductions()
	if len(ded) != 2 {
		t.Fatalf("deductions = %+v", ded)
	}
	if ded[0].LotID != "a" || ded[0].Quantity != 5 {
		t.Fatalf("lot a deduction = %+v", ded[0])
	}
	if ded[1].LotID != "b" || ded[1].Quantity != 2 {
		t.Fatalf("lot b deduction = %+v", ded[1])
	}
}

func TestAllocateSkipsNearEmptyLots(t *testing.T) {
	p := NewPlan()
	lots := []domain.StockLot{lot("a", 1e-12, 100), lot("b", 3, 4)}
	got := p.Allocate(lots, 2)
	if got.Remaining != 0 {
		t.Fatalf("remaining = %v, want 0", got.Remaining)
	}
	if got.LineCost != 8 {
		t.Fatalf("line cost = %v, want 8 (lot a must be skipped)", got.LineCost)
	}
	ded := p.Deductions()
	if len(ded) != 1 || ded[0].LotID != "b" {
		t.Fatalf("deductions = %+v", ded)
	}
}

func TestAllocateInsufficient(t *testing.T) {
	p := NewPlan()
	got := p.Allocate([]domain.StockLot{lot("a", 1, 5)}, 4)
	if got.Remaining != 3 {
		t.Fatalf("remaining = %v, want 3", got.Remaining)
	}
}

func TestAllocateEpsilonShortfallCountsAsCovered(t *testing.T) {
	p := NewPlan()
	got := p.Allocate([]domain.StockLot{lot("a", 3, 5)}, 3+1e-12)
	if got.Remaining != 0 {
		t.Fatalf("remaining = %v, want 0", got.Remaining)
	}
}

func TestEmptyPlan(t *testing.T) {
	p := NewPlan()
	if !p.Empty() {
		t.Fatal("new plan should be empty")
	}
	p.Allocate([]domain.StockLot{lot("a", 5, 1)}, 1e-12)
	if !p.Empty() {
		t.Fatal("plan with only sub-epsilon allocations should be empty")
	}
}
