package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"inventory-ledger/internal/ai"
	"inventory-ledger/internal/core"
)

type appService struct {
	items       core.ItemRegistry
	movements   core.MovementLog
	adjustments core.AdjustmentWorkflow
	drafter     ai.Drafter
}

// NewAppService constructs an appService that satisfies ApplicationService.
// drafter may be nil, in which case DraftAdjustment returns ErrDraftingUnavailable.
func NewAppService(
	items core.ItemRegistry,
	movements core.MovementLog,
	adjustments core.AdjustmentWorkflow,
	drafter ai.Drafter,
) ApplicationService {
	return &appService{
		items:       items,
		movements:   movements,
		adjustments: adjustments,
		drafter:     drafter,
	}
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	item, err := s.items.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return newItemResult(item), nil
}

func (s *appService) GetItem(ctx context.Context, itemID string) (*ItemResult, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return newItemResult(item), nil
}

func (s *appService) GetItemByCode(ctx context.Context, itemCode string) (*ItemResult, error) {
	item, err := s.items.GetByCode(ctx, strings.TrimSpace(itemCode))
	if err != nil {
		return nil, err
	}
	return newItemResult(item), nil
}

func (s *appService) ListItems(ctx context.Context, req ListItemsRequest) (*ItemListResult, error) {
	f, err := req.toFilter()
	if err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &ItemListResult{Items: make([]ItemResult, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, *newItemResult(&items[i]))
	}
	return out, nil
}

// resolveItemID returns id if set, otherwise looks the item up by code.
func (s *appService) resolveItemID(ctx context.Context, id, code string) (string, error) {
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	item, err := s.items.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

// ── Movements ─────────────────────────────────────────────────────────────────

func (s *appService) RecordMovement(ctx context.Context, req RecordMovementRequest) (*MovementResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	typ, _ := core.ParseMovementType(req.Type)
	itemID, err := s.resolveItemID(ctx, req.ItemID, req.ItemCode)
	if err != nil {
		return nil, err
	}
	m, err := s.movements.Record(ctx, req.toInput(typ, itemID))
	if err != nil {
		return nil, err
	}
	return &MovementResult{Movement: m}, nil
}

func (s *appService) CancelMovement(ctx context.Context, movementID string) (*MovementResult, error) {
	m, err := s.movements.Cancel(ctx, movementID)
	if err != nil {
		return nil, err
	}
	return &MovementResult{Movement: m}, nil
}

func (s *appService) CompleteMovement(ctx context.Context, movementID string) (*MovementResult, error) {
	m, err := s.movements.Complete(ctx, movementID)
	if err != nil {
		return nil, err
	}
	return &MovementResult{Movement: m}, nil
}

func (s *appService) GetMovement(ctx context.Context, movementID string) (*MovementResult, error) {
	m, err := s.movements.Get(ctx, movementID)
	if err != nil {
		return nil, err
	}
	return &MovementResult{Movement: m}, nil
}

func (s *appService) ListMovements(ctx context.Context, req ListMovementsRequest) (*MovementListResult, error) {
	f, err := req.toFilter()
	if err != nil {
		return nil, err
	}
	ms, err := s.movements.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		ms = []core.InventoryMovement{}
	}
	return &MovementListResult{Movements: ms}, nil
}

// ── Adjustments ───────────────────────────────────────────────────────────────

func (s *appService) ProposeAdjustment(ctx context.Context, req ProposeAdjustmentRequest) (*AdjustmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	typ, _ := core.ParseAdjustmentType(req.Type)
	itemID, err := s.resolveItemID(ctx, req.ItemID, req.ItemCode)
	if err != nil {
		return nil, err
	}
	adj, err := s.adjustments.Propose(ctx, req.toInput(typ, itemID))
	if err != nil {
		return nil, err
	}
	return &AdjustmentResult{Adjustment: adj}, nil
}

func (s *appService) ApproveAdjustment(ctx context.Context, adjustmentID, approverID string) (*AdjustmentResult, error) {
	if strings.TrimSpace(approverID) == "" {
		return nil, core.NewValidationError("approver_id", "is required")
	}
	adj, err := s.adjustments.Approve(ctx, adjustmentID, approverID)
	if err != nil {
		return nil, err
	}
	result := &AdjustmentResult{Adjustment: adj}
	// The approval is already committed; a failed re-read only loses the balance echo.
	if item, err := s.items.Get(ctx, adj.ItemID); err == nil {
		result.Item = newItemResult(item)
	}
	return result, nil
}

func (s *appService) RejectAdjustment(ctx context.Context, adjustmentID, rejectedBy string) (*AdjustmentResult, error) {
	if strings.TrimSpace(rejectedBy) == "" {
		return nil, core.NewValidationError("rejected_by", "is required")
	}
	adj, err := s.adjustments.Reject(ctx, adjustmentID, rejectedBy)
	if err != nil {
		return nil, err
	}
	return &AdjustmentResult{Adjustment: adj}, nil
}

func (s *appService) GetAdjustment(ctx context.Context, adjustmentID string) (*AdjustmentResult, error) {
	adj, err := s.adjustments.Get(ctx, adjustmentID)
	if err != nil {
		return nil, err
	}
	return &AdjustmentResult{Adjustment: adj}, nil
}

func (s *appService) ListAdjustments(ctx context.Context, req ListAdjustmentsRequest) (*AdjustmentListResult, error) {
	f, err := req.toFilter()
	if err != nil {
		return nil, err
	}
	as, err := s.adjustments.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if as == nil {
		as = []core.InventoryAdjustment{}
	}
	return &AdjustmentListResult{Adjustments: as}, nil
}

// ── AI drafting ───────────────────────────────────────────────────────────────

func (s *appService) DraftAdjustment(ctx context.Context, req DraftAdjustmentRequest) (*DraftResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.drafter == nil {
		return nil, ErrDraftingUnavailable
	}

	draft, err := s.drafter.DraftAdjustment(ctx, req.Text, s.draftTools())
	if err != nil {
		return nil, fmt.Errorf("draft adjustment: %w", err)
	}

	typ, err := core.ParseAdjustmentType(draft.Type)
	if err != nil {
		return nil, core.NewValidationError("draft", "model returned type %q", draft.Type)
	}
	if draft.Quantity <= 0 {
		return nil, core.NewValidationError("draft", "model returned non-positive quantity %d", draft.Quantity)
	}
	item, err := s.items.GetByCode(ctx, draft.ItemCode)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.NewValidationError("draft", "model referenced unknown item %q", draft.ItemCode)
	}
	if err != nil {
		return nil, err
	}

	result := &DraftResult{Draft: draft, Item: newItemResult(item)}
	if !req.Propose {
		return result, nil
	}

	adj, err := s.adjustments.Propose(ctx, core.ProposeAdjustmentInput{
		ItemID:    item.ID,
		Type:      typ,
		Quantity:  draft.Quantity,
		Reason:    draft.Reason,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	result.Adjustment = adj
	return result, nil
}

// draftTools exposes read-only catalogue lookups to the model.
func (s *appService) draftTools() *ai.ToolRegistry {
	r := ai.NewToolRegistry()
	r.Register(ai.ToolDefinition{
		Name:        "lookup_item",
		Description: "Look up an inventory item by its exact item code. Returns the item with current quantity and stock status.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_code": map[string]any{"type": "string"},
			},
			"required":             []string{"item_code"},
			"additionalProperties": false,
		},
		Handler: func(ctx context.Context, params map[string]any) (string, error) {
			code, err := ai.StringParam(params, "item_code")
			if err != nil {
				return "", err
			}
			item, err := s.GetItemByCode(ctx, code)
			if err != nil {
				return "", err
			}
			return toJSON(item)
		},
	})
	r.Register(ai.ToolDefinition{
		Name:        "list_items",
		Description: "List inventory items, optionally filtered by stock status (OUT_OF_STOCK, LOW_STOCK, IN_STOCK, OVERSTOCK). Use this when the report names an item without its code.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{"type": "string"},
			},
			"additionalProperties": false,
		},
		Handler: func(ctx context.Context, params map[string]any) (string, error) {
			status, _ := params["status"].(string)
			list, err := s.ListItems(ctx, ListItemsRequest{Status: status, Limit: 50})
			if err != nil {
				return "", err
			}
			return toJSON(list)
		},
	})
	return r
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
