package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence port for the ledger. InTx is the explicit
// transaction boundary: fn's writes commit together when it returns nil and
// are discarded otherwise. Implementations map driver errors onto the core
// sentinels (ErrConflict for serialization/version failures, ErrDuplicateCode
// for unique violations on item_code, ErrInvariantViolation for the
// non-negative check).
type Store interface {
	InTx(ctx context.Context, fn func(tx StoreTx) error) error
}

// StoreTx is the set of record operations available inside a transaction.
// Get* methods return ErrNotFound when the row is absent.
type StoreTx interface {
	GetItem(ctx context.Context, id string) (*InventoryItem, error)
	GetItemByCode(ctx context.Context, code string) (*InventoryItem, error)
	ListItems(ctx context.Context, f ItemFilter) ([]InventoryItem, error)
	InsertItem(ctx context.Context, item *InventoryItem) error
	// UpdateItemQuantity sets current_quantity to newQty and bumps the version,
	// conditional on the stored version still being expectedVersion. A lost race
	// returns ErrConflict.
	UpdateItemQuantity(ctx context.Context, id string, newQty, expectedVersion int64, at time.Time) error

	GetMovement(ctx context.Context, id string) (*InventoryMovement, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]InventoryMovement, error)
	InsertMovement(ctx context.Context, m *InventoryMovement) error
	// TransitionMovement moves a movement from one status to another. If the
	// stored status is no longer from, it returns ErrConflict.
	TransitionMovement(ctx context.Context, id string, from, to MovementStatus, at time.Time) error

	GetAdjustment(ctx context.Context, id string) (*InventoryAdjustment, error)
	ListAdjustments(ctx context.Context, f AdjustmentFilter) ([]InventoryAdjustment, error)
	InsertAdjustment(ctx context.Context, a *InventoryAdjustment) error
	// CompleteAdjustment marks a PENDING adjustment COMPLETED. ErrConflict if it is no longer PENDING.
	CompleteAdjustment(ctx context.Context, id, approverID string, valueImpact decimal.Decimal, at time.Time) error
	// RejectAdjustment marks a PENDING adjustment REJECTED. ErrConflict if it is no longer PENDING.
	RejectAdjustment(ctx context.Context, id, rejectedBy string, at time.Time) error
}

// Clock returns the current time. Services take one so tests can pin timestamps.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
