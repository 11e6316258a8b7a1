package core_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"inventory-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestCreateItem_DuplicateCode(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	f.createItem(t, "SKU-DUP", 1)

	_, err := f.items.Create(context.Background(), core.CreateItemInput{ItemCode: "SKU-DUP"})
	if !errors.Is(err, core.ErrDuplicateCode) {
		t.Fatalf("Expected ErrDuplicateCode, got %v", err)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	tests := []struct {
		name string
		in   core.CreateItemInput
	}{
		{"blank code", core.CreateItemInput{ItemCode: " "}},
		{"negative initial", core.CreateItemInput{ItemCode: "A", InitialQuantity: -1}},
		{"negative threshold", core.CreateItemInput{ItemCode: "A", ReorderPoint: -1}},
		{"min above max", core.CreateItemInput{ItemCode: "A", MinQuantity: 10, MaxQuantity: 5}},
		{"negative cost", core.CreateItemInput{ItemCode: "A", UnitCost: decimal.RequireFromString("-0.01")}},
		{"cost finer than four places", core.CreateItemInput{ItemCode: "A", UnitCost: decimal.RequireFromString("1.23456")}},
		{"cost too large", core.CreateItemInput{ItemCode: "A", UnitCost: decimal.RequireFromString("100000000000000")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.items.Create(context.Background(), tt.in)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateItem_UnitCostAtLimits(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	for code, cost := range map[string]string{"SKU-FINE": "0.0001", "SKU-TOP": "99999999999999.9999"} {
		item, err := f.items.Create(context.Background(), core.CreateItemInput{ItemCode: code, UnitCost: decimal.RequireFromString(cost)})
		if err != nil {
			t.Fatalf("Create %s with cost %s failed: %v", code, cost, err)
		}
		if item.UnitCost.String() != cost {
			t.Errorf("Expected unit cost %s stored unchanged, got %s", cost, item.UnitCost)
		}
	}
}

func TestGetItem_ByIDAndCode(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	created := f.createItem(t, "SKU-G", 12)

	byID, err := f.items.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if byID.ItemCode != "SKU-G" || byID.CurrentQuantity != 12 || byID.Version != 1 {
		t.Errorf("Unexpected item: %+v", byID)
	}

	byCode, err := f.items.GetByCode(ctx, "SKU-G")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if byCode.ID != created.ID {
		t.Errorf("Expected id %s, got %s", created.ID, byCode.ID)
	}

	if _, err := f.items.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestApplyDelta(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	item := f.createItem(t, "SKU-AD", 10)

	err := f.store.InTx(ctx, func(tx core.StoreTx) error {
		updated, err := f.items.ApplyDeltaTx(ctx, tx, item.ID, -4, item.Version)
		if err != nil {
			return err
		}
		if updated.CurrentQuantity != 6 || updated.Version != item.Version+1 {
			t.Errorf("Expected qty 6 version %d, got %d version %d", item.Version+1, updated.CurrentQuantity, updated.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ApplyDeltaTx failed: %v", err)
	}

	// Stale version.
	err = f.store.InTx(ctx, func(tx core.StoreTx) error {
		_, err := f.items.ApplyDeltaTx(ctx, tx, item.ID, 1, item.Version)
		return err
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("Expected ErrConflict for stale version, got %v", err)
	}

	// Would go negative.
	err = f.store.InTx(ctx, func(tx core.StoreTx) error {
		_, err := f.items.ApplyDeltaTx(ctx, tx, item.ID, -7, item.Version+1)
		return err
	})
	if !errors.Is(err, core.ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation, got %v", err)
	}
	if q := f.quantity(t, item.ID); q != 6 {
		t.Errorf("Expected quantity 6, got %d", q)
	}
}

func TestApplyDelta_Overflow(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	item := f.createItem(t, "SKU-MAX", math.MaxInt64-1)

	err := f.store.InTx(ctx, func(tx core.StoreTx) error {
		_, err := f.items.ApplyDeltaTx(ctx, tx, item.ID, 2, item.Version)
		return err
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("Expected overflow to be rejected as validation error, got %v", err)
	}
	if q := f.quantity(t, item.ID); q != math.MaxInt64-1 {
		t.Errorf("Expected quantity unchanged, got %d", q)
	}
}

func TestItemStatus(t *testing.T) {
	tests := []struct {
		qty, min, max, reorder int64
		want                   core.StockStatus
	}{
		{0, 0, 0, 0, core.StockOutOfStock},
		{5, 0, 0, 5, core.StockLow},
		{5, 10, 0, 0, core.StockLow},
		{50, 10, 40, 10, core.StockOver},
		{20, 10, 40, 10, core.StockIn},
		{20, 0, 0, 0, core.StockIn},
	}
	for _, tt := range tests {
		item := core.InventoryItem{CurrentQuantity: tt.qty, MinQuantity: tt.min, MaxQuantity: tt.max, ReorderPoint: tt.reorder}
		if got := item.Status(); got != tt.want {
			t.Errorf("qty=%d min=%d max=%d reorder=%d: expected %s, got %s", tt.qty, tt.min, tt.max, tt.reorder, tt.want, got)
		}
	}
}

func TestListItems_ByStatus(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	f.createItem(t, "SKU-A", 0)
	f.createItem(t, "SKU-B", 10)
	if _, err := f.items.Create(ctx, core.CreateItemInput{ItemCode: "SKU-C", InitialQuantity: 2, ReorderPoint: 5}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	all, err := f.items.List(ctx, core.ItemFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ItemCode != "SKU-A" {
		t.Errorf("Expected 3 items ordered by code, got %+v", all)
	}

	low, _ := f.items.List(ctx, core.ItemFilter{Status: core.StockLow})
	if len(low) != 1 || low[0].ItemCode != "SKU-C" {
		t.Errorf("Expected only SKU-C to be LOW_STOCK, got %+v", low)
	}
}
