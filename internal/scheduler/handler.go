package scheduler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsegarden/pulsegarden/internal/monitor"
	"github.com/pulsegarden/pulsegarden/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: monitor.ErrMonitorNotFound, Status: http.StatusNotFound},
	{Error: ErrCheckInProgress, Status: http.StatusConflict},
}

// Handler exposes the on-demand check surface.
type Handler struct {
	service *Service
}

// NewHandler creates a new scheduler handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the check trigger routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/checks/run", h.RunAllChecks)
	r.Post("/monitors/{id}/check", h.RunCheck)
}

// RunAllChecks handles POST /checks/run request. It runs every due monitor
// synchronously and returns the results keyed by monitor ID.
func (h *Handler) RunAllChecks(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.RunAllDueChecks(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"checked": len(results),
		"results": results,
	})
}

// RunCheck handles POST /monitors/{id}/check request.
func (h *Handler) RunCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.service.RunCheckNow(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, res)
}
