package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/store"
)

func TestDeductLotGuardsRemainingQuantity(t *testing.T) {
	databaseURL := os.Getenv("BARRELDROP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BARRELDROP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("item-deduct-it-%d", stamp)
	lotID := fmt.Sprintf("lot-deduct-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_lots WHERE id = $1`, lotID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	})

	now := time.Now().UTC()
	if _, err := s.CreateItem(ctx, domain.Item{
		ID:           itemID,
		Name:         "Integration Malt",
		SKU:          fmt.Sprintf("IT-%d", stamp),
		Category:     "whiskey",
		BuyingPrice:  5,
		SellingPrice: 9,
		Status:       domain.ItemStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := s.CreateLots(ctx, []domain.StockLot{{
		ID:                lotID,
		ItemID:            itemID,
		Quantity:          5,
		RemainingQuantity: 5,
		UnitCost:          5,
		PurchasedAt:       now,
		CreatedAt:         now,
	}}); err != nil {
		t.Fatalf("create lot: %v", err)
	}

	if err := s.DeductLot(ctx, lotID, 3); err != nil {
		t.Fatalf("first deduct: %v", err)
	}
	// The guard must reject a deduction past the remaining 2 and leave the
	// row untouched.
	if err := s.DeductLot(ctx, lotID, 3); !errors.Is(err, store.ErrStockConflict) {
		t.Fatalf("over-deduct err = %v, want stock conflict", err)
	}

	lots, err := s.ListOpenLots(ctx, itemID)
	if err != nil {
		t.Fatalf("list lots: %v", err)
	}
	if len(lots) != 1 || lots[0].RemainingQuantity != 2 {
		t.Fatalf("lots = %+v, want remaining 2", lots)
	}

	if err := s.RestoreLots(ctx, []domain.LotDeduction{{LotID: lotID, Quantity: 3}}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	lots, _ = s.ListOpenLots(ctx, itemID)
	if lots[0].RemainingQuantity != 5 {
		t.Fatalf("remaining = %v, want 5 after restore", lots[0].RemainingQuantity)
	}

	if err := s.DeductLot(ctx, "lot-missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing lot err = %v, want not found", err)
	}
}
