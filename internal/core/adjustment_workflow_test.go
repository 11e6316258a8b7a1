package core_test

import (
	"context"
	"errors"
	"testing"

	"inventory-ledger/internal/core"
)

func TestPropose_Validation(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	item := f.createItem(t, "SKU-P", 5)

	tests := []struct {
		name  string
		in    core.ProposeAdjustmentInput
		field string
	}{
		{"zero quantity", core.ProposeAdjustmentInput{ItemID: item.ID, Type: core.AdjustmentIncrease, Quantity: 0, Reason: "x"}, "quantity"},
		{"negative quantity", core.ProposeAdjustmentInput{ItemID: item.ID, Type: core.AdjustmentDecrease, Quantity: -3, Reason: "x"}, "quantity"},
		{"blank reason", core.ProposeAdjustmentInput{ItemID: item.ID, Type: core.AdjustmentIncrease, Quantity: 1, Reason: "   "}, "reason"},
		{"unknown type", core.ProposeAdjustmentInput{ItemID: item.ID, Type: "SIDEWAYS", Quantity: 1, Reason: "x"}, "type"},
		{"missing item id", core.ProposeAdjustmentInput{Type: core.AdjustmentIncrease, Quantity: 1, Reason: "x"}, "item_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.adjustments.Propose(context.Background(), tt.in)
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, ve.Field)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Error("Expected errors.Is(err, ErrValidation)")
			}
		})
	}
}

func TestPropose_UnknownItem(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	_, err := f.adjustments.Propose(context.Background(), core.ProposeAdjustmentInput{
		ItemID: "missing", Type: core.AdjustmentIncrease, Quantity: 1, Reason: "x",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestPropose_DoesNotTouchQuantity(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	item := f.createItem(t, "SKU-N", 5)
	adj := f.propose(t, item.ID, core.AdjustmentDecrease, 5, "damage")

	if adj.Status != core.AdjustmentPending {
		t.Errorf("Expected PENDING, got %s", adj.Status)
	}
	if q := f.quantity(t, item.ID); q != 5 {
		t.Errorf("Expected quantity 5, got %d", q)
	}
}

func TestReject_Lifecycle(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	item := f.createItem(t, "SKU-J", 8)
	adj := f.propose(t, item.ID, core.AdjustmentDecrease, 2, "suspected theft")

	rejected, err := f.adjustments.Reject(ctx, adj.ID, "auditor")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != core.AdjustmentRejected {
		t.Errorf("Expected REJECTED, got %s", rejected.Status)
	}
	if rejected.RejectedBy == nil || *rejected.RejectedBy != "auditor" {
		t.Errorf("Expected rejected_by auditor, got %v", rejected.RejectedBy)
	}

	if _, err := f.adjustments.Reject(ctx, adj.ID, "auditor"); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second reject, got %v", err)
	}
	if _, err := f.adjustments.Approve(ctx, adj.ID, "manager"); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on approve-after-reject, got %v", err)
	}
	if q := f.quantity(t, item.ID); q != 8 {
		t.Errorf("Expected quantity 8, got %d", q)
	}
}

func TestReject_CompletedAdjustment(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	item := f.createItem(t, "SKU-K", 8)
	adj := f.propose(t, item.ID, core.AdjustmentIncrease, 2, "recount")

	if _, err := f.adjustments.Approve(ctx, adj.ID, "manager"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, err := f.adjustments.Reject(ctx, adj.ID, "auditor"); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
	if _, err := f.adjustments.Reject(ctx, "nope", "auditor"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListAdjustments_Filters(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	a := f.createItem(t, "SKU-LA", 10)
	b := f.createItem(t, "SKU-LB", 10)

	f.propose(t, a.ID, core.AdjustmentIncrease, 1, "one")
	done := f.propose(t, a.ID, core.AdjustmentIncrease, 2, "two")
	f.propose(t, b.ID, core.AdjustmentDecrease, 3, "three")
	if _, err := f.adjustments.Approve(ctx, done.ID, "manager"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	forA, err := f.adjustments.List(ctx, core.AdjustmentFilter{ItemID: a.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(forA) != 2 {
		t.Errorf("Expected 2 adjustments for item A, got %d", len(forA))
	}

	pending, _ := f.adjustments.List(ctx, core.AdjustmentFilter{Status: core.AdjustmentPending})
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending adjustments, got %d", len(pending))
	}

	limited, _ := f.adjustments.List(ctx, core.AdjustmentFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("Expected limit to cap results at 1, got %d", len(limited))
	}
}
