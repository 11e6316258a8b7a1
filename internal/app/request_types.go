package app

import (
	"strings"

	"inventory-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// CreateItemRequest is the input for registering a new item.
type CreateItemRequest struct {
	ItemCode        string
	Name            string
	InitialQuantity int64
	MinQuantity     int64
	MaxQuantity     int64
	ReorderPoint    int64
	UnitCost        string // decimal string; empty means zero
}

func (r CreateItemRequest) Validate() error {
	_, err := r.toInput()
	return err
}

func (r CreateItemRequest) toInput() (core.CreateItemInput, error) {
	cost := decimal.Zero
	if s := strings.TrimSpace(r.UnitCost); s != "" {
		var err error
		if cost, err = decimal.NewFromString(s); err != nil {
			return core.CreateItemInput{}, core.NewValidationError("unit_cost", "%q is not a decimal", r.UnitCost)
		}
	}
	in := core.CreateItemInput{
		ItemCode:        strings.TrimSpace(r.ItemCode),
		Name:            strings.TrimSpace(r.Name),
		InitialQuantity: r.InitialQuantity,
		MinQuantity:     r.MinQuantity,
		MaxQuantity:     r.MaxQuantity,
		ReorderPoint:    r.ReorderPoint,
		UnitCost:        cost,
	}
	if err := in.Validate(); err != nil {
		return core.CreateItemInput{}, err
	}
	return in, nil
}

// ListItemsRequest filters ListItems. Status is optional.
type ListItemsRequest struct {
	Status string
	Limit  int
	Offset int
}

func (r ListItemsRequest) Validate() error {
	_, err := r.toFilter()
	return err
}

func (r ListItemsRequest) toFilter() (core.ItemFilter, error) {
	f := core.ItemFilter{Limit: r.Limit, Offset: r.Offset}
	if s := strings.ToUpper(strings.TrimSpace(r.Status)); s != "" {
		switch st := core.StockStatus(s); st {
		case core.StockOutOfStock, core.StockLow, core.StockIn, core.StockOver:
			f.Status = st
		default:
			return f, core.NewValidationError("status", "unknown stock status %q", r.Status)
		}
	}
	if r.Limit < 0 || r.Offset < 0 {
		return f, core.NewValidationError("limit", "limit and offset must be >= 0")
	}
	return f, nil
}

// RecordMovementRequest is the input for logging a movement. The item may be
// given by ID or by code; ItemID wins when both are set.
type RecordMovementRequest struct {
	ReferenceNumber string
	Type            string
	ItemID          string
	ItemCode        string
	Quantity        int64
	FromLocation    *core.Location
	ToLocation      *core.Location
	CreatedBy       string
}

func (r RecordMovementRequest) Validate() error {
	if strings.TrimSpace(r.ItemID) == "" && strings.TrimSpace(r.ItemCode) == "" {
		return core.NewValidationError("item_id", "item_id or item_code is required")
	}
	typ, err := core.ParseMovementType(r.Type)
	if err != nil {
		return err
	}
	// Placeholder ID: the item is resolved later, the rest is checked now.
	in := r.toInput(typ, "-")
	return in.Validate()
}

func (r RecordMovementRequest) toInput(typ core.MovementType, itemID string) core.RecordMovementInput {
	return core.RecordMovementInput{
		ReferenceNumber: strings.TrimSpace(r.ReferenceNumber),
		Type:            typ,
		ItemID:          itemID,
		Quantity:        r.Quantity,
		FromLocation:    r.FromLocation,
		ToLocation:      r.ToLocation,
		CreatedBy:       r.CreatedBy,
	}
}

// ListMovementsRequest filters ListMovements.
type ListMovementsRequest struct {
	ItemID string
	Status string
	Type   string
	Limit  int
	Offset int
}

func (r ListMovementsRequest) Validate() error {
	_, err := r.toFilter()
	return err
}

func (r ListMovementsRequest) toFilter() (core.MovementFilter, error) {
	f := core.MovementFilter{ItemID: strings.TrimSpace(r.ItemID), Limit: r.Limit, Offset: r.Offset}
	if s := strings.ToUpper(strings.TrimSpace(r.Status)); s != "" {
		switch st := core.MovementStatus(s); st {
		case core.MovementPending, core.MovementCompleted, core.MovementCancelled:
			f.Status = st
		default:
			return f, core.NewValidationError("status", "unknown movement status %q", r.Status)
		}
	}
	if strings.TrimSpace(r.Type) != "" {
		typ, err := core.ParseMovementType(r.Type)
		if err != nil {
			return f, err
		}
		f.Type = typ
	}
	if r.Limit < 0 || r.Offset < 0 {
		return f, core.NewValidationError("limit", "limit and offset must be >= 0")
	}
	return f, nil
}

// ProposeAdjustmentRequest is the input for proposing a correction.
type ProposeAdjustmentRequest struct {
	ItemID    string
	ItemCode  string
	Type      string
	Quantity  int64
	Reason    string
	CreatedBy string
}

func (r ProposeAdjustmentRequest) Validate() error {
	if strings.TrimSpace(r.ItemID) == "" && strings.TrimSpace(r.ItemCode) == "" {
		return core.NewValidationError("item_id", "item_id or item_code is required")
	}
	typ, err := core.ParseAdjustmentType(r.Type)
	if err != nil {
		return err
	}
	return r.toInput(typ, "-").Validate()
}

func (r ProposeAdjustmentRequest) toInput(typ core.AdjustmentType, itemID string) core.ProposeAdjustmentInput {
	return core.ProposeAdjustmentInput{
		ItemID:    itemID,
		Type:      typ,
		Quantity:  r.Quantity,
		Reason:    strings.TrimSpace(r.Reason),
		CreatedBy: r.CreatedBy,
	}
}

// ListAdjustmentsRequest filters ListAdjustments.
type ListAdjustmentsRequest struct {
	ItemID string
	Status string
	Limit  int
	Offset int
}

func (r ListAdjustmentsRequest) Validate() error {
	_, err := r.toFilter()
	return err
}

func (r ListAdjustmentsRequest) toFilter() (core.AdjustmentFilter, error) {
	f := core.AdjustmentFilter{ItemID: strings.TrimSpace(r.ItemID), Limit: r.Limit, Offset: r.Offset}
	if s := strings.ToUpper(strings.TrimSpace(r.Status)); s != "" {
		switch st := core.AdjustmentStatus(s); st {
		case core.AdjustmentPending, core.AdjustmentCompleted, core.AdjustmentRejected:
			f.Status = st
		default:
			return f, core.NewValidationError("status", "unknown adjustment status %q", r.Status)
		}
	}
	if r.Limit < 0 || r.Offset < 0 {
		return f, core.NewValidationError("limit", "limit and offset must be >= 0")
	}
	return f, nil
}

// DraftAdjustmentRequest is a free-text stock report for the AI drafter.
type DraftAdjustmentRequest struct {
	Text      string
	Propose   bool // record the draft as a PENDING adjustment
	CreatedBy string
}

func (r DraftAdjustmentRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return core.NewValidationError("text", "is required")
	}
	if len(r.Text) > 4000 {
		return core.NewValidationError("text", "must be at most 4000 characters")
	}
	return nil
}
