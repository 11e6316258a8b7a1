package web

import (
	"net/http"

	"inventory-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// apiCreateItem handles POST /api/items.
func (h *Handler) apiCreateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemCode        string          `json:"item_code"`
		Name            string          `json:"name"`
		InitialQuantity int64           `json:"initial_quantity"`
		MinQuantity     int64           `json:"min_quantity"`
		MaxQuantity     int64           `json:"max_quantity"`
		ReorderPoint    int64           `json:"reorder_point"`
		UnitCost        decimal.Decimal `json:"unit_cost"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.CreateItem(r.Context(), app.CreateItemRequest{
		ItemCode:        body.ItemCode,
		Name:            body.Name,
		InitialQuantity: body.InitialQuantity,
		MinQuantity:     body.MinQuantity,
		MaxQuantity:     body.MaxQuantity,
		ReorderPoint:    body.ReorderPoint,
		UnitCost:        body.UnitCost.String(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiListItems handles GET /api/items?status=&limit=&offset=.
func (h *Handler) apiListItems(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := paging(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListItems(r.Context(), app.ListItemsRequest{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetItem handles GET /api/items/{id}.
func (h *Handler) apiGetItem(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetItemByCode handles GET /api/items/by-code/{code}.
func (h *Handler) apiGetItemByCode(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetItemByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
