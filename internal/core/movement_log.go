package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MovementLog is the append-only record of stock-moving intents. Recording,
// cancelling or completing a movement never changes item quantity.
type MovementLog interface {
	Record(ctx context.Context, in RecordMovementInput) (*InventoryMovement, error)
	// Cancel moves a PENDING movement to CANCELLED; any other status is ErrInvalidState.
	Cancel(ctx context.Context, movementID string) (*InventoryMovement, error)
	// Complete confirms a PENDING movement physically happened.
	Complete(ctx context.Context, movementID string) (*InventoryMovement, error)
	Get(ctx context.Context, movementID string) (*InventoryMovement, error)
	List(ctx context.Context, f MovementFilter) ([]InventoryMovement, error)
}

// RecordMovementInput carries the fields for MovementLog.Record.
type RecordMovementInput struct {
	ReferenceNumber string
	Type            MovementType
	ItemID          string
	Quantity        int64
	FromLocation    *Location
	ToLocation      *Location
	CreatedBy       string
}

// Validate enforces quantity and the location requirements for each movement type.
func (in RecordMovementInput) Validate() error {
	if strings.TrimSpace(in.ItemID) == "" {
		return NewValidationError("item_id", "is required")
	}
	if in.Quantity <= 0 {
		return NewValidationError("quantity", "must be greater than zero, got %d", in.Quantity)
	}
	if err := validateLocation("from_location", in.FromLocation); err != nil {
		return err
	}
	if err := validateLocation("to_location", in.ToLocation); err != nil {
		return err
	}

	switch in.Type {
	case MovementReceipt, MovementReturn:
		if in.ToLocation == nil {
			return NewValidationError("to_location", "is required for %s", in.Type)
		}
	case MovementIssue:
		if in.FromLocation == nil {
			return NewValidationError("from_location", "is required for %s", in.Type)
		}
	case MovementTransfer:
		if in.FromLocation == nil || in.ToLocation == nil {
			return NewValidationError("location", "both from_location and to_location are required for TRANSFER")
		}
		if *in.FromLocation == *in.ToLocation {
			return NewValidationError("to_location", "must differ from from_location")
		}
	case MovementAdjustment:
	default:
		return NewValidationError("type", "unknown movement type %q", in.Type)
	}
	return nil
}

func validateLocation(field string, l *Location) error {
	if l != nil && strings.TrimSpace(l.Warehouse) == "" {
		return NewValidationError(field, "warehouse is required")
	}
	return nil
}

type movementLog struct {
	store Store
	now   Clock
}

func NewMovementLog(store Store) MovementLog {
	return &movementLog{store: store, now: systemClock}
}

func (l *movementLog) Record(ctx context.Context, in RecordMovementInput) (*InventoryMovement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := l.now()
	m := &InventoryMovement{
		ID:              uuid.NewString(),
		ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
		Type:            in.Type,
		ItemID:          in.ItemID,
		Quantity:        in.Quantity,
		FromLocation:    in.FromLocation,
		ToLocation:      in.ToLocation,
		Status:          MovementPending,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := l.store.InTx(ctx, func(tx StoreTx) error {
		if _, err := tx.GetItem(ctx, in.ItemID); err != nil {
			return fmt.Errorf("item %s: %w", in.ItemID, err)
		}
		return tx.InsertMovement(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("record %s movement: %w", in.Type, err)
	}
	return m, nil
}

func (l *movementLog) Cancel(ctx context.Context, movementID string) (*InventoryMovement, error) {
	return l.transition(ctx, movementID, MovementCancelled)
}

func (l *movementLog) Complete(ctx context.Context, movementID string) (*InventoryMovement, error) {
	return l.transition(ctx, movementID, MovementCompleted)
}

func (l *movementLog) transition(ctx context.Context, movementID string, to MovementStatus) (*InventoryMovement, error) {
	var m *InventoryMovement
	err := l.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		m, err = tx.GetMovement(ctx, movementID)
		if err != nil {
			return err
		}
		if m.Status != MovementPending {
			return fmt.Errorf("movement is %s: %w", m.Status, ErrInvalidState)
		}
		now := l.now()
		if err := tx.TransitionMovement(ctx, movementID, MovementPending, to, now); err != nil {
			return err
		}
		m.Status = to
		m.UpdatedAt = now
		return nil
	})
	if err != nil {
		// A racing transition that won first leaves this one terminal too.
		if errors.Is(err, ErrConflict) {
			err = fmt.Errorf("movement changed concurrently: %w", ErrInvalidState)
		}
		return nil, fmt.Errorf("movement %s to %s: %w", movementID, to, err)
	}
	return m, nil
}

func (l *movementLog) Get(ctx context.Context, movementID string) (*InventoryMovement, error) {
	var m *InventoryMovement
	err := l.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		m, err = tx.GetMovement(ctx, movementID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get movement %s: %w", movementID, err)
	}
	return m, nil
}

func (l *movementLog) List(ctx context.Context, f MovementFilter) ([]InventoryMovement, error) {
	f.Limit = NormalizeLimit(f.Limit)
	var out []InventoryMovement
	err := l.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		out, err = tx.ListMovements(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}
