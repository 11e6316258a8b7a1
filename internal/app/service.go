package app

import (
	"context"
	"errors"
)

// ErrDraftingUnavailable is returned by DraftAdjustment when no AI drafter is configured.
var ErrDraftingUnavailable = errors.New("AI drafting is not configured")

// ApplicationService is the single interface all UI adapters (REPL, CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ── Items ─────────────────────────────────────────────────────────────────

	// CreateItem registers a new SKU with its opening quantity.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error)

	// GetItem returns an item by ID with its derived stock status.
	GetItem(ctx context.Context, itemID string) (*ItemResult, error)

	// GetItemByCode returns an item by its unique item code.
	GetItemByCode(ctx context.Context, itemCode string) (*ItemResult, error)

	// ListItems returns items ordered by code, optionally filtered by stock status.
	ListItems(ctx context.Context, req ListItemsRequest) (*ItemListResult, error)

	// ── Movements ─────────────────────────────────────────────────────────────

	// RecordMovement logs a PENDING stock movement. Quantity is not changed.
	RecordMovement(ctx context.Context, req RecordMovementRequest) (*MovementResult, error)

	// CancelMovement transitions a PENDING movement to CANCELLED.
	CancelMovement(ctx context.Context, movementID string) (*MovementResult, error)

	// CompleteMovement transitions a PENDING movement to COMPLETED.
	CompleteMovement(ctx context.Context, movementID string) (*MovementResult, error)

	GetMovement(ctx context.Context, movementID string) (*MovementResult, error)
	ListMovements(ctx context.Context, req ListMovementsRequest) (*MovementListResult, error)

	// ── Adjustments ───────────────────────────────────────────────────────────

	// ProposeAdjustment records a PENDING correction awaiting approval.
	ProposeAdjustment(ctx context.Context, req ProposeAdjustmentRequest) (*AdjustmentResult, error)

	// ApproveAdjustment applies a PENDING adjustment to the item quantity atomically.
	// A second approval of the same adjustment fails with core.ErrInvalidState.
	ApproveAdjustment(ctx context.Context, adjustmentID, approverID string) (*AdjustmentResult, error)

	// RejectAdjustment closes a PENDING adjustment without touching quantity.
	RejectAdjustment(ctx context.Context, adjustmentID, rejectedBy string) (*AdjustmentResult, error)

	GetAdjustment(ctx context.Context, adjustmentID string) (*AdjustmentResult, error)
	ListAdjustments(ctx context.Context, req ListAdjustmentsRequest) (*AdjustmentListResult, error)

	// DraftAdjustment asks the AI agent to turn a free-text stock report into a
	// structured adjustment. With req.Propose the draft is recorded as PENDING;
	// it is never approved here.
	DraftAdjustment(ctx context.Context, req DraftAdjustmentRequest) (*DraftResult, error)
}
