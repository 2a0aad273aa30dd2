package incident

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
}

// Pagination limits for incident listings.
const (
	DefaultIncidentsLimit = 20
	MaxIncidentsLimit     = 100
)

// AlertLog reads the delivery audit trail for an incident.
type AlertLog interface {
	ListByIncident(ctx context.Context, incidentID string) ([]domain.AlertSent, error)
}

// Handler exposes the read-only incident surface.
type Handler struct {
	repo   Repository
	alerts AlertLog
}

// NewHandler creates a new incident handler.
func NewHandler(repo Repository, alerts AlertLog) *Handler {
	return &Handler{repo: repo, alerts: alerts}
}

// RegisterRoutes registers the incident read routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/monitors/{id}/incidents", h.ListByMonitor)
	r.Get("/incidents", h.ListByTeam)
	r.Get("/incidents/{id}/alerts", h.ListAlerts)
}

// ListByMonitor handles GET /monitors/{id}/incidents request.
func (h *Handler) ListByMonitor(w http.ResponseWriter, r *http.Request) {
	monitorID := chi.URLParam(r, "id")

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	incidents, err := h.repo.ListByMonitor(r.Context(), monitorID, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"incidents": incidents,
		"limit":     limit,
	})
}

// ListByTeam handles GET /incidents?team_id= request.
func (h *Handler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		httputil.Error(w, http.StatusBadRequest, "team_id is required")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	incidents, err := h.repo.ListByTeam(r.Context(), teamID, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"incidents": incidents,
		"limit":     limit,
	})
}

// ListAlerts handles GET /incidents/{id}/alerts request.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")

	alerts, err := h.alerts.ListByIncident(r.Context(), incidentID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := DefaultIncidentsLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		if parsed > MaxIncidentsLimit {
			parsed = MaxIncidentsLimit
		}
		limit = parsed
	}
	return limit, true
}
