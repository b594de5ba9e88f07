package legacyquote

import (
	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// MountPublicRoutes exposes the non-tokenized legacy quote endpoints. The
// per-IP business limit lives in the service; no transport throttle is added
// here beyond the global one.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/submit-quote", h.Submit)
	r.Get("/quotes/{itemId}", h.QuotesForItem)
}

// MountAdminRoutes exposes legacy quote management.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePrincipal)
		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", h.List)
			r.Patch("/bulk-status", h.BulkUpdateStatus)
			r.Get("/{quoteId}", h.Get)
			r.Patch("/{quoteId}/status", h.UpdateStatus)
			r.Patch("/{quoteId}/notes", h.UpdateNotes)
			r.Delete("/{quoteId}", h.Delete)
		})
	})
}
