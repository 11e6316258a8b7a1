package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/storage/memory"
	"inventory-ledger/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) core.Store { return memory.NewStore() })
}

func TestInTx_RollbackOnError(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx core.StoreTx) error {
		now := time.Now().UTC()
		if err := tx.InsertItem(ctx, &core.InventoryItem{ID: "i1", ItemCode: "SKU-X", Version: 1, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	err = store.InTx(ctx, func(tx core.StoreTx) error {
		_, err := tx.GetItem(ctx, "i1")
		return err
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected rolled back insert to be invisible, got %v", err)
	}
}

func TestInTx_CancelledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.InTx(ctx, func(tx core.StoreTx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn must not run on a cancelled context")
	}
}

func TestCommit_DetectsInterleavedWrite(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.InTx(ctx, func(tx core.StoreTx) error {
		return tx.InsertItem(ctx, &core.InventoryItem{ID: "i1", ItemCode: "SKU-I", CurrentQuantity: 5, Version: 1, CreatedAt: now, UpdatedAt: now})
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.InTx(ctx, func(outer core.StoreTx) error {
		if err := outer.UpdateItemQuantity(ctx, "i1", 6, 1, now); err != nil {
			return err
		}
		// A second transaction commits first against the same version.
		if err := store.InTx(ctx, func(inner core.StoreTx) error {
			return inner.UpdateItemQuantity(ctx, "i1", 9, 1, now)
		}); err != nil {
			t.Fatalf("Inner update failed: %v", err)
		}
		return nil
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	_ = store.InTx(ctx, func(tx core.StoreTx) error {
		item, err := tx.GetItem(ctx, "i1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if item.CurrentQuantity != 9 || item.Version != 2 {
			t.Errorf("Expected inner write to win (qty 9, version 2), got qty %d version %d", item.CurrentQuantity, item.Version)
		}
		return nil
	})
}

func TestCommit_NegativeBackstop(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	err := store.InTx(ctx, func(tx core.StoreTx) error {
		return tx.InsertItem(ctx, &core.InventoryItem{ID: "neg", ItemCode: "SKU-N", CurrentQuantity: -1, Version: 1, CreatedAt: now, UpdatedAt: now})
	})
	if !errors.Is(err, core.ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation, got %v", err)
	}
}
