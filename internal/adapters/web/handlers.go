package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"inventory-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// Options configures NewHandler. Idempotency may be nil to disable the guard.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	Idempotency    IdempotencyStore
	Logger         zerolog.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: opts.JWTSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(opts.Logger))
	r.Use(Recoverer)
	r.Use(CORS(opts.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB
		r.Use(Idempotency(opts.Idempotency))

		// ── Items ─────────────────────────────────────────────────────────────
		r.Post("/api/items", h.apiCreateItem)
		r.Get("/api/items", h.apiListItems)
		r.Get("/api/items/by-code/{code}", h.apiGetItemByCode)
		r.Get("/api/items/{id}", h.apiGetItem)

		// ── Movements ─────────────────────────────────────────────────────────
		r.Post("/api/movements", h.apiRecordMovement)
		r.Get("/api/movements", h.apiListMovements)
		r.Get("/api/movements/{id}", h.apiGetMovement)
		r.Post("/api/movements/{id}/cancel", h.apiCancelMovement)
		r.Post("/api/movements/{id}/complete", h.apiCompleteMovement)

		// ── Adjustments ───────────────────────────────────────────────────────
		r.Post("/api/adjustments", h.apiProposeAdjustment)
		r.Get("/api/adjustments", h.apiListAdjustments)
		r.Post("/api/adjustments/draft", h.apiDraftAdjustment)
		r.Get("/api/adjustments/{id}", h.apiGetAdjustment)
		r.Post("/api/adjustments/{id}/approve", h.apiApproveAdjustment)
		r.Post("/api/adjustments/{id}/reject", h.apiRejectAdjustment)
	})

	h.router = r
	return r
}

// health reports liveness only; it does not touch the store.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_FAILED", http.StatusBadRequest)
		return false
	}
	return true
}

// paging reads ?limit= and ?offset=. It writes a 400 and returns false on bad input.
func paging(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &limit}, {"offset", &offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "invalid "+p.name+": must be a non-negative integer", "VALIDATION_FAILED", http.StatusBadRequest)
			return 0, 0, false
		}
		*p.dst = n
	}
	return limit, offset, true
}
