package stock

import (
	"context"
	"errors"
	"testing"

	"barreldrop/backend/internal/domain"
)

type fakeLotWriter struct {
	balances map[string]float64
	failOn   string
	failErr  error
	restores [][]domain.LotDeduction
}

func newFakeLotWriter(balances map[string]float64) *fakeLotWriter {
	return &fakeLotWriter{balances: balances}
}

func (f *fakeLotWriter) DeductLot(ctx context.Context, lotID string, qty float64) error {
	if lotID == f.failOn {
		return f.failErr
	}
	if f.balances[lotID] < qty {
		return errors.New("insufficient")
	}
	f.balances[lotID] -= qty
	return nil
}

func (f *fakeLotWriter) RestoreLots(ctx context.Context, deductions []domain.LotDeduction) error {
	f.restores = append(f.restores, deductions)
	for _, d := range deductions {
		f.balances[d.LotID] += d.Quantity
	}
	return nil
}

func TestApplyAll(t *testing.T) {
	w := newFakeLotWriter(map[string]float64{"a": 5, "b": 5})
	a := NewApplier(w)
	err := a.Apply(context.Background(), []domain.LotDeduction{
		{LotID: "a", Quantity: 2},
		{LotID: "b", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if w.balances["a"] != 3 || w.balances["b"] != 2 {
		t.Fatalf("balances = %+v", w.balances)
	}
}

func TestApplyFailureRestoresApplied(t *testing.T) {
	conflict := errors.New("stock changed")
	w := newFakeLotWriter(map[string]float64{"a": 5, "b": 5, "c": 5})
	w.failOn = "c"
	w.failErr = conflict

	a := NewApplier(w)
	err := a.Apply(context.Background(), []domain.LotDeduction{
		{LotID: "a", Quantity: 2},
		{LotID: "b", Quantity: 3},
		{LotID: "c", Quantity: 1},
	})
	if !errors.Is(err, conflict) {
		t.Fatalf("err = %v, want the failing write's error", err)
	}
	if w.balances["a"] != 5 || w.balances["b"] != 5 || w.balances["c"] != 5 {
		t.Fatalf("balances not restored: %+v", w.balances)
	}
	if len(w.restores) != 1 || len(w.restores[0]) != 2 {
		t.Fatalf("restores = %+v, want one restore of the two applied lots", w.restores)
	}
}

func TestApplySkipsSubEpsilon(t *testing.T) {
	w := newFakeLotWriter(map[string]float64{"a": 5})
	a := NewApplier(w)
	if err := a.Apply(context.Background(), []domain.LotDeduction{{LotID: "a", Quantity: 1e-12}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if w.balances["a"] != 5 {
		t.Fatalf("sub-epsilon deduction was applied: %v", w.balances["a"])
	}
}

func TestCommitDisarmsRollback(t *testing.T) {
	w := newFakeLotWriter(map[string]float64{"a": 5})
	a := NewApplier(w)
	if err := a.Apply(context.Background(), []domain.LotDeduction{{LotID: "a", Quantity: 2}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	a.Commit()
	a.Rollback(context.Background())
	if w.balances["a"] != 3 {
		t.Fatalf("balance = %v, want 3 (rollback after commit must be a no-op)", w.balances["a"])
	}
	if len(w.restores) != 0 {
		t.Fatalf("restores = %+v, want none", w.restores)
	}
}

func TestExplicitRollback(t *testing.T) {
	w := newFakeLotWriter(map[string]float64{"a": 5, "b": 5})
	a := NewApplier(w)
	if err := a.Apply(context.Background(), []domain.LotDeduction{
		{LotID: "a", Quantity: 2},
		{LotID: "b", Quantity: 1},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	a.Rollback(context.Background())
	if w.balances["a"] != 5 || w.balances["b"] != 5 {
		t.Fatalf("balances = %+v, want fully restored", w.balances)
	}
	// A second rollback must not restore again.
	a.Rollback(context.Background())
	if len(w.restores) != 1 {
		t.Fatalf("restores = %d, want 1", len(w.restores))
	}
}
