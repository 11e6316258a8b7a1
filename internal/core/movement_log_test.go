package core_test

import (
	"context"
	"errors"
	"testing"

	"inventory-ledger/internal/core"
)

func TestRecordMovement_LocationRules(t *testing.T) {
	main := &core.Location{Warehouse: "MAIN", Zone: "A", Bin: "01"}
	dock := &core.Location{Warehouse: "MAIN", Zone: "DOCK"}
	noWarehouse := &core.Location{Zone: "A"}

	tests := []struct {
		name     string
		typ      core.MovementType
		from, to *core.Location
		wantErr  bool
	}{
		{"receipt needs to", core.MovementReceipt, nil, nil, true},
		{"receipt ok", core.MovementReceipt, nil, main, false},
		{"return ok", core.MovementReturn, nil, dock, false},
		{"issue needs from", core.MovementIssue, nil, main, true},
		{"issue ok", core.MovementIssue, main, nil, false},
		{"transfer needs both", core.MovementTransfer, main, nil, true},
		{"transfer same place", core.MovementTransfer, main, &core.Location{Warehouse: "MAIN", Zone: "A", Bin: "01"}, true},
		{"transfer ok", core.MovementTransfer, main, dock, false},
		{"adjustment without locations", core.MovementAdjustment, nil, nil, false},
		{"location without warehouse", core.MovementReceipt, nil, noWarehouse, true},
		{"unknown type", core.MovementType("TELEPORT"), nil, main, true},
	}

	f := setupLedger(t, fastRetry, nil)
	item := f.createItem(t, "SKU-M", 10)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := f.movements.Record(context.Background(), core.RecordMovementInput{
				ReferenceNumber: "REF-1",
				Type:            tt.typ,
				ItemID:          item.ID,
				Quantity:        3,
				FromLocation:    tt.from,
				ToLocation:      tt.to,
				CreatedBy:       "clerk",
			})
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if m.Status != core.MovementPending {
				t.Errorf("Expected PENDING, got %s", m.Status)
			}
		})
	}

	if q := f.quantity(t, item.ID); q != 10 {
		t.Errorf("Recording movements must not change quantity; got %d", q)
	}
}

func TestRecordMovement_Errors(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	item := f.createItem(t, "SKU-ME", 10)
	to := &core.Location{Warehouse: "MAIN"}

	_, err := f.movements.Record(context.Background(), core.RecordMovementInput{
		Type: core.MovementReceipt, ItemID: item.ID, Quantity: 0, ToLocation: to,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error for zero quantity, got %v", err)
	}

	_, err = f.movements.Record(context.Background(), core.RecordMovementInput{
		Type: core.MovementReceipt, ItemID: "missing", Quantity: 1, ToLocation: to,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMovement_CancelAndComplete(t *testing.T) {
	f := setupLedger(t, fastRetry, nil)
	ctx := context.Background()
	item := f.createItem(t, "SKU-MC", 10)

	record := func() *core.InventoryMovement {
		m, err := f.movements.Record(ctx, core.RecordMovementInput{
			Type: core.MovementIssue, ItemID: item.ID, Quantity: 2, FromLocation: &core.Location{Warehouse: "MAIN"},
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		return m
	}

	a := record()
	cancelled, err := f.movements.Cancel(ctx, a.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != core.MovementCancelled {
		t.Errorf("Expected CANCELLED, got %s", cancelled.Status)
	}
	if _, err := f.movements.Cancel(ctx, a.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second cancel, got %v", err)
	}
	if _, err := f.movements.Complete(ctx, a.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState completing a cancelled movement, got %v", err)
	}

	b := record()
	completed, err := f.movements.Complete(ctx, b.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Status != core.MovementCompleted {
		t.Errorf("Expected COMPLETED, got %s", completed.Status)
	}
	if _, err := f.movements.Cancel(ctx, b.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState cancelling a completed movement, got %v", err)
	}
	if _, err := f.movements.Cancel(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if q := f.quantity(t, item.ID); q != 10 {
		t.Errorf("Movement lifecycle must not change quantity; got %d", q)
	}

	issued, err := f.movements.List(ctx, core.MovementFilter{ItemID: item.ID, Status: core.MovementCompleted})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(issued) != 1 || issued[0].ID != b.ID {
		t.Errorf("Expected only the completed movement, got %+v", issued)
	}
}

func TestParseTypes(t *testing.T) {
	if typ, err := core.ParseMovementType(" transfer "); err != nil || typ != core.MovementTransfer {
		t.Errorf("Expected TRANSFER, got %q, %v", typ, err)
	}
	if _, err := core.ParseMovementType("moved"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if typ, err := core.ParseAdjustmentType("decrease"); err != nil || typ != core.AdjustmentDecrease {
		t.Errorf("Expected DECREASE, got %q, %v", typ, err)
	}
	if _, err := core.ParseAdjustmentType(""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}
