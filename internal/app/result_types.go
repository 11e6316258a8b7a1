package app

import (
	"inventory-ledger/internal/ai"
	"inventory-ledger/internal/core"
)

// ItemResult is an item plus its derived stock status.
type ItemResult struct {
	core.InventoryItem
	Status       core.StockStatus `json:"status"`
	NeedsReorder bool             `json:"needs_reorder"`
}

func newItemResult(item *core.InventoryItem) *ItemResult {
	return &ItemResult{InventoryItem: *item, Status: item.Status(), NeedsReorder: item.NeedsReorder()}
}

// ItemListResult is returned by ListItems.
type ItemListResult struct {
	Items []ItemResult `json:"items"`
}

// MovementResult is returned by movement operations.
type MovementResult struct {
	Movement *core.InventoryMovement
}

// MovementListResult is returned by ListMovements.
type MovementListResult struct {
	Movements []core.InventoryMovement `json:"movements"`
}

// AdjustmentResult is returned by adjustment operations. Item is populated
// after an approval so callers can show the new balance.
type AdjustmentResult struct {
	Adjustment *core.InventoryAdjustment
	Item       *ItemResult
}

// AdjustmentListResult is returned by ListAdjustments.
type AdjustmentListResult struct {
	Adjustments []core.InventoryAdjustment `json:"adjustments"`
}

// DraftResult is returned by DraftAdjustment. Adjustment is nil unless the
// request asked for the draft to be proposed.
type DraftResult struct {
	Draft      *ai.AdjustmentDraft
	Item       *ItemResult
	Adjustment *core.InventoryAdjustment
}
