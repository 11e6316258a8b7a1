package web

import (
	"net/http"

	"inventory-ledger/internal/ai"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
)

type draftResponse struct {
	Draft      *ai.AdjustmentDraft       `json:"draft"`
	Item       *app.ItemResult           `json:"item"`
	Adjustment *core.InventoryAdjustment `json:"adjustment,omitempty"`
}

// apiDraftAdjustment handles POST /api/adjustments/draft. With "propose": true
// the draft is recorded as PENDING; approval always stays a separate call.
func (h *Handler) apiDraftAdjustment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text    string `json:"text"`
		Propose bool   `json:"propose"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.DraftAdjustment(r.Context(), app.DraftAdjustmentRequest{
		Text:      body.Text,
		Propose:   body.Propose,
		CreatedBy: principal(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Adjustment != nil {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, draftResponse{Draft: result.Draft, Item: result.Item, Adjustment: result.Adjustment})
}
