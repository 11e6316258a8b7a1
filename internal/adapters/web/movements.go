package web

import (
	"net/http"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiRecordMovement handles POST /api/movements.
func (h *Handler) apiRecordMovement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReferenceNumber string         `json:"reference_number"`
		Type            string         `json:"type"`
		ItemID          string         `json:"item_id"`
		ItemCode        string         `json:"item_code"`
		Quantity        int64          `json:"quantity"`
		FromLocation    *core.Location `json:"from_location"`
		ToLocation      *core.Location `json:"to_location"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.RecordMovement(r.Context(), app.RecordMovementRequest{
		ReferenceNumber: body.ReferenceNumber,
		Type:            body.Type,
		ItemID:          body.ItemID,
		ItemCode:        body.ItemCode,
		Quantity:        body.Quantity,
		FromLocation:    body.FromLocation,
		ToLocation:      body.ToLocation,
		CreatedBy:       principal(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Movement)
}

// apiListMovements handles GET /api/movements?item_id=&status=&type=.
func (h *Handler) apiListMovements(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := paging(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	result, err := h.svc.ListMovements(r.Context(), app.ListMovementsRequest{
		ItemID: q.Get("item_id"),
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetMovement handles GET /api/movements/{id}.
func (h *Handler) apiGetMovement(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetMovement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Movement)
}

// apiCancelMovement handles POST /api/movements/{id}/cancel.
func (h *Handler) apiCancelMovement(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CancelMovement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Movement)
}

// apiCompleteMovement handles POST /api/movements/{id}/complete.
func (h *Handler) apiCompleteMovement(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CompleteMovement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Movement)
}
