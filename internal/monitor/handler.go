package monitor

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pulsegarden/pulsegarden/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrMonitorNotFound, Status: http.StatusNotFound},
}

// Pagination limits for check history.
const (
	DefaultChecksLimit = 50
	MaxChecksLimit     = 200
)

// Handler exposes the read-only monitor surface of the engine. Monitor CRUD
// lives in a separate service; this API serves monitor state and check
// history.
type Handler struct {
	monitors Repository
	checks   CheckStore
}

// NewHandler creates a new monitor handler.
func NewHandler(monitors Repository, checks CheckStore) *Handler {
	return &Handler{monitors: monitors, checks: checks}
}

// RegisterRoutes registers the monitor read routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/monitors/{id}", func(r chi.Router) {
		r.Get("/", h.GetMonitor)
		r.Get("/checks", h.ListChecks)
	})
}

// GetMonitor handles GET /monitors/{id} request.
func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.monitors.GetByID(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, m)
}

// ListChecks handles GET /monitors/{id}/checks request.
func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.monitors.GetByID(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	limit := DefaultChecksLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxChecksLimit {
			parsed = MaxChecksLimit
		}
		limit = parsed
	}

	checks, err := h.checks.ListChecks(r.Context(), id, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"checks": checks,
		"limit":  limit,
	})
}
