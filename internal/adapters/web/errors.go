package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a service-layer error onto the HTTP error table.
// Unclassified errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, r, ve.Error(), "VALIDATION_FAILED", http.StatusBadRequest)
	case errors.Is(err, core.ErrInvariantViolation):
		writeError(w, r, core.ErrInvariantViolation.Error(), "NEGATIVE_INVENTORY", http.StatusBadRequest)
	case errors.Is(err, core.ErrInvalidState):
		writeError(w, r, core.ErrInvalidState.Error(), "INVALID_STATE", http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, "concurrent modification, retry later", "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrDuplicateCode):
		writeError(w, r, err.Error(), "DUPLICATE_CODE", http.StatusConflict)
	case errors.Is(err, app.ErrDraftingUnavailable):
		writeError(w, r, err.Error(), "AI_UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", core.ErrorKind(err)).Msg("request failed")
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
