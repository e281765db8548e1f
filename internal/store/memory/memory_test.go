package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/store"
)

func seedItem(t *testing.T, s *Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := s.CreateItem(context.Background(), domain.Item{
		ID: id, Name: id, SKU: id, Category: "whiskey",
		Status: domain.ItemStatusActive, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
}

func TestListOpenLotsOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedItem(t, s, "item-1")

	base := time.Now().UTC()
	// Same purchase time: creation order breaks the tie.
	err := s.CreateLots(ctx, []domain.StockLot{
		{ID: "lot-b", ItemID: "item-1", Quantity: 1, RemainingQuantity: 1, PurchasedAt: base},
		{ID: "lot-c", ItemID: "item-1", Quantity: 1, RemainingQuantity: 1, PurchasedAt: base},
		{ID: "lot-a", ItemID: "item-1", Quantity: 1, RemainingQuantity: 1, PurchasedAt: base.Add(-time.Hour)},
		{ID: "lot-empty", ItemID: "item-1", Quantity: 1, RemainingQuantity: 0, PurchasedAt: base.Add(-2 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("create lots: %v", err)
	}

	lots, err := s.ListOpenLots(ctx, "item-1")
	if err != nil {
		t.Fatalf("list lots: %v", err)
	}
	want := []string{"lot-a", "lot-b", "lot-c"}
	if len(lots) != len(want) {
		t.Fatalf("lots = %+v", lots)
	}
	for i, id := range want {
		if lots[i].ID != id {
			t.Fatalf("lots[%d] = %s, want %s", i, lots[i].ID, id)
		}
	}
}

func TestCreateLotsRejectsUnknownItem(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedItem(t, s, "item-1")

	err := s.CreateLots(ctx, []domain.StockLot{
		{ID: "lot-1", ItemID: "item-1", Quantity: 1, RemainingQuantity: 1, PurchasedAt: time.Now()},
		{ID: "lot-2", ItemID: "item-missing", Quantity: 1, RemainingQuantity: 1, PurchasedAt: time.Now()},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("create lots err = %v", err)
	}
	lots, _ := s.ListOpenLots(ctx, "item-1")
	if len(lots) != 0 {
		t.Fatalf("partial batch left behind: %+v", lots)
	}
}

func TestCreditConversionGuards(t *testing.T) {
	s := New()
	ctx := context.Background()
	credit := domain.Credit{
		ID:           "credit-1",
		CustomerName: "Guard Test",
		Status:       domain.CreditStatusOpen,
		CreditedAt:   time.Now().UTC(),
		CreatedBy:    "user-1",
	}
	if _, err := s.CreateCredit(ctx, credit); err != nil {
		t.Fatalf("create credit: %v", err)
	}

	// Finalize and release both require the lock to be held.
	if err := s.FinalizeCreditConversion(ctx, "credit-1", "sale-1", "user-1", time.Now()); !errors.Is(err, store.ErrConversionConflict) {
		t.Fatalf("finalize without lock err = %v", err)
	}
	if err := s.ReleaseCreditConversion(ctx, "credit-1"); !errors.Is(err, store.ErrConversionConflict) {
		t.Fatalf("release without lock err = %v", err)
	}

	if err := s.LockCreditForConversion(ctx, "credit-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := s.LockCreditForConversion(ctx, "credit-1"); !errors.Is(err, store.ErrConversionConflict) {
		t.Fatalf("second lock err = %v", err)
	}

	if err := s.FinalizeCreditConversion(ctx, "credit-1", "sale-1", "user-1", time.Now()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// A converted credit can never be locked again.
	if err := s.LockCreditForConversion(ctx, "credit-1"); !errors.Is(err, store.ErrConversionConflict) {
		t.Fatalf("lock after convert err = %v", err)
	}
	if err := s.LockCreditForConversion(ctx, "credit-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("lock missing err = %v", err)
	}
}

func TestDeductLotGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedItem(t, s, "item-1")
	if err := s.CreateLots(ctx, []domain.StockLot{
		{ID: "lot-1", ItemID: "item-1", Quantity: 5, RemainingQuantity: 5, PurchasedAt: time.Now()},
	}); err != nil {
		t.Fatalf("create lot: %v", err)
	}

	if err := s.DeductLot(ctx, "lot-1", 6); !errors.Is(err, store.ErrStockConflict) {
		t.Fatalf("over-deduct err = %v", err)
	}
	if err := s.DeductLot(ctx, "lot-1", 5); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if err := s.RestoreLots(ctx, []domain.LotDeduction{{LotID: "lot-1", Quantity: 2}}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	lots, _ := s.ListOpenLots(ctx, "item-1")
	if len(lots) != 1 || lots[0].RemainingQuantity != 2 {
		t.Fatalf("lots = %+v", lots)
	}
}
