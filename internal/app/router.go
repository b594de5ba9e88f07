package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quotedesk/quotedesk/internal/legacyquote"
	"github.com/quotedesk/quotedesk/internal/observability"
	"github.com/quotedesk/quotedesk/internal/quoterequest"
	"github.com/quotedesk/quotedesk/internal/reporting"
	"github.com/quotedesk/quotedesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	QuoteRequestHandler *quoterequest.Handler
	LegacyQuoteHandler  *legacyquote.Handler
	ReportingHandler    *reporting.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router. Vendor-facing endpoints sit at the
// root; everything an operator touches lives under /admin.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.QuoteRequestHandler.MountPublicRoutes(r)
		params.LegacyQuoteHandler.MountPublicRoutes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		params.QuoteRequestHandler.MountAdminRoutes(r)
		params.LegacyQuoteHandler.MountAdminRoutes(r)
		params.ReportingHandler.MountAdminRoutes(r)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
