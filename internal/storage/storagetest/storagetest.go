// Package storagetest runs the same ledger checks against every core.Store
// backend so the memory, Postgres and MySQL stores stay interchangeable.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"inventory-ledger/internal/core"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) core.Store

type services struct {
	items       core.ItemRegistry
	movements   core.MovementLog
	adjustments core.AdjustmentWorkflow
}

func wire(store core.Store) services {
	registry := core.NewItemRegistry(store)
	coordinator := core.NewCoordinator(store, registry, core.RetryPolicy{
		MaxAttempts: 10,
		BaseBackoff: 2 * time.Millisecond,
		MaxBackoff:  20 * time.Millisecond,
	}, zerolog.Nop())
	return services{
		items:       registry,
		movements:   core.NewMovementLog(store),
		adjustments: core.NewAdjustmentWorkflow(store, coordinator),
	}
}

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("DamageScenario", func(t *testing.T) { testDamageScenario(t, wire(newStore(t))) })
	t.Run("LargeValueImpact", func(t *testing.T) { testLargeValueImpact(t, wire(newStore(t))) })
	t.Run("Guard", func(t *testing.T) { testGuard(t, wire(newStore(t))) })
	t.Run("ConcurrentApprovals", func(t *testing.T) { testConcurrentApprovals(t, wire(newStore(t))) })
	t.Run("DuplicateCode", func(t *testing.T) { testDuplicateCode(t, wire(newStore(t))) })
	t.Run("Reject", func(t *testing.T) { testReject(t, wire(newStore(t))) })
	t.Run("Movements", func(t *testing.T) { testMovements(t, wire(newStore(t))) })
	t.Run("StaleVersion", func(t *testing.T) { testStaleVersion(t, newStore(t)) })
}

func mustCreate(t *testing.T, s services, code string, qty int64, unitCost string) *core.InventoryItem {
	t.Helper()
	item, err := s.items.Create(context.Background(), core.CreateItemInput{
		ItemCode:        code,
		Name:            code,
		InitialQuantity: qty,
		ReorderPoint:    5,
		UnitCost:        decimal.RequireFromString(unitCost),
	})
	if err != nil {
		t.Fatalf("Create %s failed: %v", code, err)
	}
	return item
}

func mustPropose(t *testing.T, s services, itemID string, typ core.AdjustmentType, qty int64) *core.InventoryAdjustment {
	t.Helper()
	adj, err := s.adjustments.Propose(context.Background(), core.ProposeAdjustmentInput{
		ItemID: itemID, Type: typ, Quantity: qty, Reason: "cycle count", CreatedBy: "clerk",
	})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	return adj
}

func quantity(t *testing.T, s services, itemID string) int64 {
	t.Helper()
	item, err := s.items.Get(context.Background(), itemID)
	if err != nil {
		t.Fatalf("Get item failed: %v", err)
	}
	return item.CurrentQuantity
}

func testDamageScenario(t *testing.T, s services) {
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-1", 100, "1.25")

	adj := mustPropose(t, s, item.ID, core.AdjustmentDecrease, 30)
	approved, err := s.adjustments.Approve(ctx, adj.ID, "manager")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != core.AdjustmentCompleted {
		t.Errorf("Expected COMPLETED, got %s", approved.Status)
	}
	if !approved.ValueImpact.Equal(decimal.RequireFromString("-37.5")) {
		t.Errorf("Expected value impact -37.5, got %s", approved.ValueImpact)
	}
	if q := quantity(t, s, item.ID); q != 70 {
		t.Fatalf("Expected 70, got %d", q)
	}

	reloaded, err := s.adjustments.Get(ctx, adj.ID)
	if err != nil {
		t.Fatalf("Get adjustment failed: %v", err)
	}
	if reloaded.ApproverID == nil || *reloaded.ApproverID != "manager" || reloaded.ApprovedAt == nil {
		t.Errorf("Expected approver to be persisted, got %+v", reloaded)
	}

	if _, err := s.adjustments.Approve(ctx, adj.ID, "manager"); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second approve, got %v", err)
	}

	big := mustPropose(t, s, item.ID, core.AdjustmentDecrease, 80)
	if _, err := s.adjustments.Approve(ctx, big.ID, "manager"); !errors.Is(err, core.ErrInvariantViolation) {
		t.Fatalf("Expected ErrInvariantViolation, got %v", err)
	}
	if q := quantity(t, s, item.ID); q != 70 {
		t.Errorf("Expected quantity to stay 70, got %d", q)
	}
}

// testLargeValueImpact approves the widest adjustment an item can carry: the
// top unit cost times the full int64 quantity.
func testLargeValueImpact(t *testing.T, s services) {
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-MAX", math.MaxInt64, "99999999999999.9999")

	adj := mustPropose(t, s, item.ID, core.AdjustmentDecrease, math.MaxInt64)
	approved, err := s.adjustments.Approve(ctx, adj.ID, "manager")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	want := decimal.RequireFromString("99999999999999.9999").Mul(decimal.NewFromInt(math.MaxInt64)).Neg()
	if !approved.ValueImpact.Equal(want) {
		t.Errorf("Expected value impact %s, got %s", want, approved.ValueImpact)
	}

	reloaded, err := s.adjustments.Get(ctx, adj.ID)
	if err != nil {
		t.Fatalf("Get adjustment failed: %v", err)
	}
	if !reloaded.ValueImpact.Equal(want) {
		t.Errorf("Expected stored value impact %s, got %s", want, reloaded.ValueImpact)
	}
	if q := quantity(t, s, item.ID); q != 0 {
		t.Errorf("Expected quantity 0, got %d", q)
	}
}

func testGuard(t *testing.T, s services) {
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-G", 3, "0")
	adj := mustPropose(t, s, item.ID, core.AdjustmentDecrease, 5)

	if _, err := s.adjustments.Approve(ctx, adj.ID, "manager"); !errors.Is(err, core.ErrInvariantViolation) {
		t.Fatalf("Expected ErrInvariantViolation, got %v", err)
	}
	if q := quantity(t, s, item.ID); q != 3 {
		t.Errorf("Expected 3, got %d", q)
	}
	got, err := s.adjustments.Get(ctx, adj.ID)
	if err != nil {
		t.Fatalf("Get adjustment failed: %v", err)
	}
	if got.Status != core.AdjustmentPending {
		t.Errorf("Expected PENDING, got %s", got.Status)
	}
}

func testConcurrentApprovals(t *testing.T, s services) {
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-C", 20, "0")
	up := mustPropose(t, s, item.ID, core.AdjustmentIncrease, 10)
	down := mustPropose(t, s, item.ID, core.AdjustmentDecrease, 5)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{up.ID, down.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := s.adjustments.Approve(ctx, id, "manager"); err != nil {
				errs <- fmt.Errorf("approve %s: %w", id, err)
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent approve failed: %v", err)
	}

	if q := quantity(t, s, item.ID); q != 25 {
		t.Errorf("Expected 25, got %d", q)
	}
}

func testDuplicateCode(t *testing.T, s services) {
	mustCreate(t, s, "SKU-D", 1, "0")
	_, err := s.items.Create(context.Background(), core.CreateItemInput{ItemCode: "SKU-D"})
	if !errors.Is(err, core.ErrDuplicateCode) {
		t.Errorf("Expected ErrDuplicateCode, got %v", err)
	}
}

func testReject(t *testing.T, s services) {
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-R", 10, "0")
	adj := mustPropose(t, s, item.ID, core.AdjustmentIncrease, 4)

	rejected, err := s.adjustments.Reject(ctx, adj.ID, "supervisor")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != core.AdjustmentRejected || rejected.RejectedBy == nil || *rejected.RejectedBy != "supervisor" {
		t.Errorf("Unexpected rejected adjustment: %+v", rejected)
	}
	if _, err := s.adjustments.Approve(ctx, adj.ID, "manager"); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState approving a rejected adjustment, got %v", err)
	}
	if q := quantity(t, s, item.ID); q != 10 {
		t.Errorf("Expected 10, got %d", q)
	}

	pending, err := s.adjustments.List(ctx, core.AdjustmentFilter{ItemID: item.ID, Status: core.AdjustmentPending})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending adjustments, got %d", len(pending))
	}
}

func testMovements(t *testing.T, s services) {
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-M", 10, "0")
	from := &core.Location{Warehouse: "MAIN", Zone: "A", Bin: "01"}
	to := &core.Location{Warehouse: "MAIN", Zone: "B"}

	m, err := s.movements.Record(ctx, core.RecordMovementInput{
		ReferenceNumber: "TR-1",
		Type:            core.MovementTransfer,
		ItemID:          item.ID,
		Quantity:        4,
		FromLocation:    from,
		ToLocation:      to,
		CreatedBy:       "clerk",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := s.movements.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get movement failed: %v", err)
	}
	if got.FromLocation == nil || *got.FromLocation != *from || got.ToLocation == nil || *got.ToLocation != *to {
		t.Errorf("Locations not persisted: from=%v to=%v", got.FromLocation, got.ToLocation)
	}

	if _, err := s.movements.Cancel(ctx, m.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, err := s.movements.Cancel(ctx, m.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}

	list, err := s.movements.List(ctx, core.MovementFilter{ItemID: item.ID, Type: core.MovementTransfer})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Status != core.MovementCancelled {
		t.Errorf("Expected one cancelled transfer, got %+v", list)
	}
	if q := quantity(t, s, item.ID); q != 10 {
		t.Errorf("Movements must not change quantity; got %d", q)
	}
}

func testStaleVersion(t *testing.T, store core.Store) {
	s := wire(store)
	ctx := context.Background()
	item := mustCreate(t, s, "SKU-V", 10, "0")

	err := store.InTx(ctx, func(tx core.StoreTx) error {
		return tx.UpdateItemQuantity(ctx, item.ID, 11, item.Version+7, time.Now().UTC())
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("Expected ErrConflict for wrong version, got %v", err)
	}
	if q := quantity(t, s, item.ID); q != 10 {
		t.Errorf("Expected 10, got %d", q)
	}
}
