package web

import (
	"net/http"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

type approveResponse struct {
	Adjustment *core.InventoryAdjustment `json:"adjustment"`
	Item       *app.ItemResult           `json:"item,omitempty"`
}

// apiProposeAdjustment handles POST /api/adjustments.
func (h *Handler) apiProposeAdjustment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemID   string `json:"item_id"`
		ItemCode string `json:"item_code"`
		Type     string `json:"type"`
		Quantity int64  `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.ProposeAdjustment(r.Context(), app.ProposeAdjustmentRequest{
		ItemID:    body.ItemID,
		ItemCode:  body.ItemCode,
		Type:      body.Type,
		Quantity:  body.Quantity,
		Reason:    body.Reason,
		CreatedBy: principal(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Adjustment)
}

// apiListAdjustments handles GET /api/adjustments?item_id=&status=.
func (h *Handler) apiListAdjustments(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := paging(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	result, err := h.svc.ListAdjustments(r.Context(), app.ListAdjustmentsRequest{
		ItemID: q.Get("item_id"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetAdjustment handles GET /api/adjustments/{id}.
func (h *Handler) apiGetAdjustment(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetAdjustment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Adjustment)
}

// apiApproveAdjustment handles POST /api/adjustments/{id}/approve.
// The approver is the authenticated principal.
func (h *Handler) apiApproveAdjustment(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ApproveAdjustment(r.Context(), chi.URLParam(r, "id"), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, approveResponse{Adjustment: result.Adjustment, Item: result.Item})
}

// apiRejectAdjustment handles POST /api/adjustments/{id}/reject.
func (h *Handler) apiRejectAdjustment(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RejectAdjustment(r.Context(), chi.URLParam(r, "id"), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Adjustment)
}
