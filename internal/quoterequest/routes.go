package quoterequest

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// MountPublicRoutes exposes the token-gated vendor endpoints. Submissions get
// a tighter transport throttle on top of the gate itself.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/quote-request/{token}", h.GetByToken)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/quote-request/{token}/submit", h.Submit)
	})
}

// MountAdminRoutes exposes the quote request management endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePrincipal)
		r.Post("/vendor-quote-requests", h.Create)
		r.Get("/vendor-quote-requests", h.List)
		r.Patch("/vendor-quote-requests/{requestId}/status", h.UpdateStatus)
	})
}
