package reporting

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// ListGrouped returns the per-order vendor comparison view.
func (h *Handler) ListGrouped(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.GroupedByOrder(r.Context())
	if err != nil {
		h.logger.Error("grouped vendor quotes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

// GetQuote resolves an id across both schemas and returns the normalized
// detail.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("invalid quote id: %w", httpx.ErrValidation))
		return
	}
	detail, err := h.service.GetQuoteByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// Statistics returns the combined summary over both schemas.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Statistics(r.Context())
	if err != nil {
		h.logger.Error("quote statistics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// ExportCSV streams the legacy quotes as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vendor-quotes.csv"`)
	if err := h.service.ExportCSV(r.Context(), w); err != nil {
		// Headers are gone by now; log and cut the stream.
		h.logger.Error("export vendor quotes csv", slog.Any("error", err))
	}
}

// MountAdminRoutes exposes the reporting endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePrincipal)
		r.Get("/vendor-quotes", h.ListGrouped)
		r.Get("/vendor-quotes/statistics", h.Statistics)
		r.Get("/vendor-quotes/export.csv", h.ExportCSV)
		r.Get("/vendor-quotes/{id}", h.GetQuote)
	})
}
