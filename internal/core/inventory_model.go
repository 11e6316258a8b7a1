package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is a derived view of quantity against an item's thresholds.
// It is recomputed on read and never persisted.
type StockStatus string

const (
	StockOutOfStock StockStatus = "OUT_OF_STOCK"
	StockLow        StockStatus = "LOW_STOCK"
	StockIn         StockStatus = "IN_STOCK"
	StockOver       StockStatus = "OVERSTOCK"
)

// InventoryItem is the authoritative balance record for one SKU.
// CurrentQuantity is written only through ItemRegistry.ApplyDeltaTx.
type InventoryItem struct {
	ID              string          `json:"id"`
	ItemCode        string          `json:"item_code"`
	Name            string          `json:"name"`
	CurrentQuantity int64           `json:"current_quantity"`
	MinQuantity     int64           `json:"min_quantity"`
	MaxQuantity     int64           `json:"max_quantity"`
	ReorderPoint    int64           `json:"reorder_point"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Status derives the stock status from CurrentQuantity and thresholds.
func (i *InventoryItem) Status() StockStatus {
	switch {
	case i.CurrentQuantity == 0:
		return StockOutOfStock
	case i.CurrentQuantity <= i.ReorderPoint || i.CurrentQuantity < i.MinQuantity:
		return StockLow
	case i.MaxQuantity > 0 && i.CurrentQuantity > i.MaxQuantity:
		return StockOver
	default:
		return StockIn
	}
}

// NeedsReorder reports whether the item has dropped into LOW_STOCK or OUT_OF_STOCK.
func (i *InventoryItem) NeedsReorder() bool {
	s := i.Status()
	return s == StockLow || s == StockOutOfStock
}

// Location identifies a storage position. Warehouse is mandatory; Zone and Bin are optional.
type Location struct {
	Warehouse string `json:"warehouse"`
	Zone      string `json:"zone,omitempty"`
	Bin       string `json:"bin,omitempty"`
}

func (l Location) String() string {
	parts := []string{l.Warehouse}
	if l.Zone != "" {
		parts = append(parts, l.Zone)
	}
	if l.Bin != "" {
		parts = append(parts, l.Bin)
	}
	return strings.Join(parts, "/")
}

// MovementType enumerates the kinds of stock-moving intent.
type MovementType string

const (
	MovementReceipt    MovementType = "RECEIPT"
	MovementIssue      MovementType = "ISSUE"
	MovementReturn     MovementType = "RETURN"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementTransfer   MovementType = "TRANSFER"
)

// ParseMovementType normalises s and validates it against the known types.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case MovementReceipt, MovementIssue, MovementReturn, MovementAdjustment, MovementTransfer:
		return t, nil
	}
	return "", NewValidationError("type", "unknown movement type %q", s)
}

// MovementStatus is the lifecycle of a movement record.
type MovementStatus string

const (
	MovementPending   MovementStatus = "PENDING"
	MovementCompleted MovementStatus = "COMPLETED"
	MovementCancelled MovementStatus = "CANCELLED"
)

// InventoryMovement records intent to move stock. It never changes item quantity.
type InventoryMovement struct {
	ID              string         `json:"id"`
	ReferenceNumber string         `json:"reference_number"`
	Type            MovementType   `json:"type"`
	ItemID          string         `json:"item_id"`
	Quantity        int64          `json:"quantity"`
	FromLocation    *Location      `json:"from_location,omitempty"`
	ToLocation      *Location      `json:"to_location,omitempty"`
	Status          MovementStatus `json:"status"`
	CreatedBy       string         `json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AdjustmentType is the direction of a correction.
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "INCREASE"
	AdjustmentDecrease AdjustmentType = "DECREASE"
)

// ParseAdjustmentType normalises s and validates it.
func ParseAdjustmentType(s string) (AdjustmentType, error) {
	t := AdjustmentType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case AdjustmentIncrease, AdjustmentDecrease:
		return t, nil
	}
	return "", NewValidationError("type", "unknown adjustment type %q", s)
}

// AdjustmentStatus is the two-phase workflow state. PENDING is the only non-terminal state.
type AdjustmentStatus string

const (
	AdjustmentPending   AdjustmentStatus = "PENDING"
	AdjustmentCompleted AdjustmentStatus = "COMPLETED"
	AdjustmentRejected  AdjustmentStatus = "REJECTED"
)

// InventoryAdjustment is an operator's correction request.
type InventoryAdjustment struct {
	ID          string           `json:"id"`
	ItemID      string           `json:"item_id"`
	Type        AdjustmentType   `json:"type"`
	Quantity    int64            `json:"quantity"`
	Reason      string           `json:"reason"`
	Status      AdjustmentStatus `json:"status"`
	ApproverID  *string          `json:"approver_id,omitempty"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	RejectedBy  *string          `json:"rejected_by,omitempty"`
	RejectedAt  *time.Time       `json:"rejected_at,omitempty"`
	ValueImpact decimal.Decimal  `json:"value_impact"` // signed delta × unit cost at approval
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Delta returns the signed quantity change this adjustment applies.
func (a *InventoryAdjustment) Delta() int64 {
	if a.Type == AdjustmentDecrease {
		return -a.Quantity
	}
	return a.Quantity
}

// ItemFilter narrows ItemRegistry.List. Zero values mean "no filter".
type ItemFilter struct {
	Status StockStatus
	Limit  int
	Offset int
}

// MovementFilter narrows MovementLog.List.
type MovementFilter struct {
	ItemID string
	Status MovementStatus
	Type   MovementType
	Limit  int
	Offset int
}

// AdjustmentFilter narrows AdjustmentWorkflow.List.
type AdjustmentFilter struct {
	ItemID string
	Status AdjustmentStatus
	Limit  int
	Offset int
}

// DefaultListLimit caps list queries that do not specify a limit.
const DefaultListLimit = 100

// NormalizeLimit clamps limit into (0, DefaultListLimit*10].
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > DefaultListLimit*10 {
		return DefaultListLimit * 10
	}
	return limit
}
