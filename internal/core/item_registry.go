package core

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRegistry owns item identity and the authoritative current quantity.
type ItemRegistry interface {
	// Standalone operations (manage their own transactions).
	Get(ctx context.Context, itemID string) (*InventoryItem, error)
	GetByCode(ctx context.Context, itemCode string) (*InventoryItem, error)
	List(ctx context.Context, f ItemFilter) ([]InventoryItem, error)
	// Create registers a new item. Fails with ErrDuplicateCode if itemCode is taken.
	Create(ctx context.Context, in CreateItemInput) (*InventoryItem, error)

	// TX-scoped operations: work within a caller-provided transaction.

	// ApplyDeltaTx is the only write path for CurrentQuantity. It fails with
	// ErrConflict when expectedVersion is stale and ErrInvariantViolation when
	// the result would be negative; neither case mutates the item.
	ApplyDeltaTx(ctx context.Context, tx StoreTx, itemID string, delta, expectedVersion int64) (*InventoryItem, error)
}

// UnitCostScale is the number of decimal places a unit cost may carry.
// Stores persist unit_cost as NUMERIC(18,4), so costs are kept below 10^14.
const UnitCostScale = 4

var maxUnitCost = decimal.New(1, 14)

// CreateItemInput carries the fields for ItemRegistry.Create.
type CreateItemInput struct {
	ItemCode        string
	Name            string
	InitialQuantity int64
	MinQuantity     int64
	MaxQuantity     int64
	ReorderPoint    int64
	UnitCost        decimal.Decimal
}

// Validate checks the creation invariants.
func (in CreateItemInput) Validate() error {
	if strings.TrimSpace(in.ItemCode) == "" {
		return NewValidationError("item_code", "is required")
	}
	if in.InitialQuantity < 0 {
		return NewValidationError("initial_quantity", "must be >= 0, got %d", in.InitialQuantity)
	}
	if in.MinQuantity < 0 || in.MaxQuantity < 0 || in.ReorderPoint < 0 {
		return NewValidationError("thresholds", "must be >= 0")
	}
	if in.MaxQuantity > 0 && in.MinQuantity > in.MaxQuantity {
		return NewValidationError("min_quantity", "%d exceeds max_quantity %d", in.MinQuantity, in.MaxQuantity)
	}
	if in.UnitCost.IsNegative() {
		return NewValidationError("unit_cost", "cannot be negative, got %s", in.UnitCost)
	}
	if !in.UnitCost.Equal(in.UnitCost.Truncate(UnitCostScale)) {
		return NewValidationError("unit_cost", "must have at most %d decimal places, got %s", UnitCostScale, in.UnitCost)
	}
	if in.UnitCost.GreaterThanOrEqual(maxUnitCost) {
		return NewValidationError("unit_cost", "must be below %s, got %s", maxUnitCost, in.UnitCost)
	}
	return nil
}

type itemRegistry struct {
	store Store
	now   Clock
}

func NewItemRegistry(store Store) ItemRegistry {
	return &itemRegistry{store: store, now: systemClock}
}

func (r *itemRegistry) Get(ctx context.Context, itemID string) (*InventoryItem, error) {
	var item *InventoryItem
	err := r.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		item, err = tx.GetItem(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return item, nil
}

func (r *itemRegistry) GetByCode(ctx context.Context, itemCode string) (*InventoryItem, error) {
	var item *InventoryItem
	err := r.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		item, err = tx.GetItemByCode(ctx, strings.TrimSpace(itemCode))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get item by code %s: %w", itemCode, err)
	}
	return item, nil
}

func (r *itemRegistry) List(ctx context.Context, f ItemFilter) ([]InventoryItem, error) {
	f.Limit = NormalizeLimit(f.Limit)
	var items []InventoryItem
	err := r.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		items, err = tx.ListItems(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *itemRegistry) Create(ctx context.Context, in CreateItemInput) (*InventoryItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	item := &InventoryItem{
		ID:              uuid.NewString(),
		ItemCode:        strings.TrimSpace(in.ItemCode),
		Name:            strings.TrimSpace(in.Name),
		CurrentQuantity: in.InitialQuantity,
		MinQuantity:     in.MinQuantity,
		MaxQuantity:     in.MaxQuantity,
		ReorderPoint:    in.ReorderPoint,
		UnitCost:        in.UnitCost,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := r.store.InTx(ctx, func(tx StoreTx) error {
		return tx.InsertItem(ctx, item)
	})
	if err != nil {
		return nil, fmt.Errorf("create item %s: %w", item.ItemCode, err)
	}
	return item, nil
}

func (r *itemRegistry) ApplyDeltaTx(ctx context.Context, tx StoreTx, itemID string, delta, expectedVersion int64) (*InventoryItem, error) {
	item, err := tx.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Version != expectedVersion {
		return nil, fmt.Errorf("item %s at version %d, expected %d: %w", itemID, item.Version, expectedVersion, ErrConflict)
	}

	newQty, ok := addQuantity(item.CurrentQuantity, delta)
	if !ok {
		return nil, NewValidationError("quantity", "delta %d overflows current quantity %d", delta, item.CurrentQuantity)
	}
	if newQty < 0 {
		return nil, fmt.Errorf("item %s: %d %+d: %w", item.ItemCode, item.CurrentQuantity, delta, ErrInvariantViolation)
	}

	now := r.now()
	if err := tx.UpdateItemQuantity(ctx, itemID, newQty, expectedVersion, now); err != nil {
		return nil, err
	}

	item.CurrentQuantity = newQty
	item.Version = expectedVersion + 1
	item.UpdatedAt = now
	return item, nil
}

// addQuantity returns a+b and false if the sum overflows int64.
func addQuantity(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}
