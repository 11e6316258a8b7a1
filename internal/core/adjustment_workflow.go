package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AdjustmentWorkflow is the two-phase correction process:
// PENDING → COMPLETED (via Approve) or PENDING → REJECTED (via Reject).
type AdjustmentWorkflow interface {
	// Propose records a PENDING adjustment. Item quantity is not touched.
	Propose(ctx context.Context, in ProposeAdjustmentInput) (*InventoryAdjustment, error)
	// Reject closes a PENDING adjustment without applying it.
	Reject(ctx context.Context, adjustmentID, rejectedBy string) (*InventoryAdjustment, error)
	// Approve applies the adjustment through the Coordinator. Errors are surfaced unchanged
	// and the adjustment stays PENDING.
	Approve(ctx context.Context, adjustmentID, approverID string) (*InventoryAdjustment, error)
	Get(ctx context.Context, adjustmentID string) (*InventoryAdjustment, error)
	List(ctx context.Context, f AdjustmentFilter) ([]InventoryAdjustment, error)
}

// ProposeAdjustmentInput carries the fields for AdjustmentWorkflow.Propose.
type ProposeAdjustmentInput struct {
	ItemID    string
	Type      AdjustmentType
	Quantity  int64
	Reason    string
	CreatedBy string
}

func (in ProposeAdjustmentInput) Validate() error {
	if strings.TrimSpace(in.ItemID) == "" {
		return NewValidationError("item_id", "is required")
	}
	if in.Type != AdjustmentIncrease && in.Type != AdjustmentDecrease {
		return NewValidationError("type", "must be INCREASE or DECREASE, got %q", in.Type)
	}
	if in.Quantity <= 0 {
		return NewValidationError("quantity", "must be greater than zero, got %d", in.Quantity)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return NewValidationError("reason", "is required")
	}
	return nil
}

type adjustmentWorkflow struct {
	store       Store
	coordinator *Coordinator
	now         Clock
}

func NewAdjustmentWorkflow(store Store, coordinator *Coordinator) AdjustmentWorkflow {
	return &adjustmentWorkflow{store: store, coordinator: coordinator, now: systemClock}
}

func (w *adjustmentWorkflow) Propose(ctx context.Context, in ProposeAdjustmentInput) (*InventoryAdjustment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := w.now()
	adj := &InventoryAdjustment{
		ID:        uuid.NewString(),
		ItemID:    in.ItemID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reason:    strings.TrimSpace(in.Reason),
		Status:    AdjustmentPending,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := w.store.InTx(ctx, func(tx StoreTx) error {
		if _, err := tx.GetItem(ctx, in.ItemID); err != nil {
			return fmt.Errorf("item %s: %w", in.ItemID, err)
		}
		return tx.InsertAdjustment(ctx, adj)
	})
	if err != nil {
		return nil, fmt.Errorf("propose adjustment: %w", err)
	}
	return adj, nil
}

func (w *adjustmentWorkflow) Reject(ctx context.Context, adjustmentID, rejectedBy string) (*InventoryAdjustment, error) {
	var adj *InventoryAdjustment
	err := w.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		adj, err = tx.GetAdjustment(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if adj.Status != AdjustmentPending {
			return fmt.Errorf("adjustment is %s: %w", adj.Status, ErrInvalidState)
		}
		now := w.now()
		if err := tx.RejectAdjustment(ctx, adjustmentID, rejectedBy, now); err != nil {
			return err
		}
		adj.Status = AdjustmentRejected
		adj.RejectedBy = &rejectedBy
		adj.RejectedAt = &now
		adj.UpdatedAt = now
		return nil
	})
	if err != nil {
		// Lost a race with a concurrent approve or reject: no longer PENDING.
		if errors.Is(err, ErrConflict) {
			err = fmt.Errorf("adjustment changed concurrently: %w", ErrInvalidState)
		}
		return nil, fmt.Errorf("reject adjustment %s: %w", adjustmentID, err)
	}
	return adj, nil
}

func (w *adjustmentWorkflow) Approve(ctx context.Context, adjustmentID, approverID string) (*InventoryAdjustment, error) {
	return w.coordinator.Approve(ctx, adjustmentID, approverID)
}

func (w *adjustmentWorkflow) Get(ctx context.Context, adjustmentID string) (*InventoryAdjustment, error) {
	var adj *InventoryAdjustment
	err := w.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		adj, err = tx.GetAdjustment(ctx, adjustmentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get adjustment %s: %w", adjustmentID, err)
	}
	return adj, nil
}

func (w *adjustmentWorkflow) List(ctx context.Context, f AdjustmentFilter) ([]InventoryAdjustment, error) {
	f.Limit = NormalizeLimit(f.Limit)
	var out []InventoryAdjustment
	err := w.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		out, err = tx.ListAdjustments(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return out, nil
}
