package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inventory-ledger/internal/ai"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/storage/memory"

	"github.com/rs/zerolog"
)

// fakeDrafter calls lookup_item the way the model would, then returns draft.
type fakeDrafter struct {
	draft      ai.AdjustmentDraft
	err        error
	lookupSeen string
}

func (f *fakeDrafter) DraftAdjustment(ctx context.Context, text string, tools *ai.ToolRegistry) (*ai.AdjustmentDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lookupSeen = tools.Call(ctx, "lookup_item", `{"item_code":"`+f.draft.ItemCode+`"}`)
	d := f.draft
	return &d, nil
}

func newTestService(t *testing.T, drafter ai.Drafter) app.ApplicationService {
	t.Helper()
	store := memory.NewStore()
	registry := core.NewItemRegistry(store)
	coordinator := core.NewCoordinator(store, registry, core.DefaultRetryPolicy, zerolog.Nop())
	return app.NewAppService(registry, core.NewMovementLog(store), core.NewAdjustmentWorkflow(store, coordinator), drafter)
}

func TestAppService_AdjustmentLifecycle(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, app.CreateItemRequest{ItemCode: "SKU-1", Name: "Widget", InitialQuantity: 100, UnitCost: "2.00", ReorderPoint: 10})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if item.Status != core.StockIn {
		t.Errorf("Expected IN_STOCK, got %s", item.Status)
	}

	proposed, err := svc.ProposeAdjustment(ctx, app.ProposeAdjustmentRequest{ItemCode: "SKU-1", Type: "decrease", Quantity: 30, Reason: "damage", CreatedBy: "clerk"})
	if err != nil {
		t.Fatalf("ProposeAdjustment failed: %v", err)
	}
	if proposed.Adjustment.ItemID != item.ID {
		t.Errorf("Expected item code to resolve to %s, got %s", item.ID, proposed.Adjustment.ItemID)
	}

	approved, err := svc.ApproveAdjustment(ctx, proposed.Adjustment.ID, "manager")
	if err != nil {
		t.Fatalf("ApproveAdjustment failed: %v", err)
	}
	if approved.Item == nil || approved.Item.CurrentQuantity != 70 {
		t.Fatalf("Expected item echo with quantity 70, got %+v", approved.Item)
	}
	if approved.Adjustment.ValueImpact.String() != "-60" {
		t.Errorf("Expected value impact -60, got %s", approved.Adjustment.ValueImpact)
	}

	if _, err := svc.ApproveAdjustment(ctx, proposed.Adjustment.ID, "manager"); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.ApproveAdjustment(ctx, proposed.Adjustment.ID, " "); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error for blank approver, got %v", err)
	}

	completed, err := svc.ListAdjustments(ctx, app.ListAdjustmentsRequest{Status: "completed"})
	if err != nil {
		t.Fatalf("ListAdjustments failed: %v", err)
	}
	if len(completed.Adjustments) != 1 {
		t.Errorf("Expected 1 completed adjustment, got %d", len(completed.Adjustments))
	}
}

func TestAppService_RequestValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"bad unit cost", func() error {
			_, err := svc.CreateItem(ctx, app.CreateItemRequest{ItemCode: "X", UnitCost: "abc"})
			return err
		}},
		{"unknown stock status", func() error {
			_, err := svc.ListItems(ctx, app.ListItemsRequest{Status: "PLENTY"})
			return err
		}},
		{"movement without item", func() error {
			_, err := svc.RecordMovement(ctx, app.RecordMovementRequest{Type: "RECEIPT", Quantity: 1, ToLocation: &core.Location{Warehouse: "W"}})
			return err
		}},
		{"movement bad type", func() error {
			_, err := svc.RecordMovement(ctx, app.RecordMovementRequest{ItemCode: "X", Type: "FLY", Quantity: 1})
			return err
		}},
		{"adjustment bad type", func() error {
			_, err := svc.ProposeAdjustment(ctx, app.ProposeAdjustmentRequest{ItemCode: "X", Type: "SIDEWAYS", Quantity: 1, Reason: "r"})
			return err
		}},
		{"adjustment missing reason", func() error {
			_, err := svc.ProposeAdjustment(ctx, app.ProposeAdjustmentRequest{ItemCode: "X", Type: "INCREASE", Quantity: 1})
			return err
		}},
		{"negative offset", func() error {
			_, err := svc.ListMovements(ctx, app.ListMovementsRequest{Offset: -1})
			return err
		}},
		{"blank draft", func() error {
			_, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: "  "})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *core.ValidationError
			if err := tt.call(); !errors.As(err, &ve) {
				t.Errorf("Expected *core.ValidationError, got %v", err)
			}
		})
	}
}

func TestAppService_MovementByCode(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	if _, err := svc.CreateItem(ctx, app.CreateItemRequest{ItemCode: "SKU-M", InitialQuantity: 5}); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	res, err := svc.RecordMovement(ctx, app.RecordMovementRequest{
		ItemCode: "SKU-M", Type: "receipt", Quantity: 2, ToLocation: &core.Location{Warehouse: "MAIN"}, CreatedBy: "clerk",
	})
	if err != nil {
		t.Fatalf("RecordMovement failed: %v", err)
	}
	if res.Movement.Type != core.MovementReceipt {
		t.Errorf("Expected RECEIPT, got %s", res.Movement.Type)
	}

	if _, err := svc.RecordMovement(ctx, app.RecordMovementRequest{
		ItemCode: "SKU-NOPE", Type: "receipt", Quantity: 2, ToLocation: &core.Location{Warehouse: "MAIN"},
	}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown code, got %v", err)
	}

	list, err := svc.ListMovements(ctx, app.ListMovementsRequest{Type: "RECEIPT"})
	if err != nil || len(list.Movements) != 1 {
		t.Errorf("Expected 1 receipt, got %v, %v", list, err)
	}
}

func TestAppService_DraftAdjustment(t *testing.T) {
	drafter := &fakeDrafter{draft: ai.AdjustmentDraft{
		ItemCode: "SKU-1", Type: "DECREASE", Quantity: 3, Reason: "crushed on arrival", Confidence: 0.8,
	}}
	svc := newTestService(t, drafter)
	ctx := context.Background()
	if _, err := svc.CreateItem(ctx, app.CreateItemRequest{ItemCode: "SKU-1", InitialQuantity: 10}); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	preview, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: "3 units of SKU-1 arrived crushed"})
	if err != nil {
		t.Fatalf("DraftAdjustment failed: %v", err)
	}
	if preview.Adjustment != nil {
		t.Error("Expected no adjustment without Propose")
	}
	if !strings.Contains(drafter.lookupSeen, `"current_quantity":10`) {
		t.Errorf("Expected lookup_item to return the item, got %s", drafter.lookupSeen)
	}

	proposed, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: "3 units of SKU-1 arrived crushed", Propose: true, CreatedBy: "clerk"})
	if err != nil {
		t.Fatalf("DraftAdjustment with propose failed: %v", err)
	}
	if proposed.Adjustment == nil || proposed.Adjustment.Status != core.AdjustmentPending {
		t.Fatalf("Expected a PENDING adjustment, got %+v", proposed.Adjustment)
	}

	item, _ := svc.GetItemByCode(ctx, "SKU-1")
	if item.CurrentQuantity != 10 {
		t.Errorf("Drafting must never change quantity; got %d", item.CurrentQuantity)
	}
}

func TestAppService_DraftRejectsBadModelOutput(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		draft ai.AdjustmentDraft
	}{
		{"unknown item", ai.AdjustmentDraft{ItemCode: "SKU-404", Type: "INCREASE", Quantity: 1}},
		{"bad type", ai.AdjustmentDraft{ItemCode: "SKU-1", Type: "SIDEWAYS", Quantity: 1}},
		{"zero quantity", ai.AdjustmentDraft{ItemCode: "SKU-1", Type: "INCREASE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &fakeDrafter{draft: tt.draft})
			if _, err := svc.CreateItem(ctx, app.CreateItemRequest{ItemCode: "SKU-1", InitialQuantity: 10}); err != nil {
				t.Fatalf("CreateItem failed: %v", err)
			}
			if _, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: "something happened"}); !errors.Is(err, core.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	svc := newTestService(t, nil)
	if _, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: "x"}); !errors.Is(err, app.ErrDraftingUnavailable) {
		t.Errorf("Expected ErrDraftingUnavailable, got %v", err)
	}
}
