package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(g.prom.instrument)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(g.prom.registry, promhttp.HandlerOpts{}))

	// Everything else sits behind auth when credentials are configured.
	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth))
		}
		r.Get("/status", g.handleStatus())
		r.Route("/api", func(r chi.Router) {
			r.Get("/views", g.handleListViews())
			r.Post("/views/preview", g.handlePreviewView())
			r.Post("/views/create", g.handleCreateView())
			r.Post("/sql/run", g.handleRunSQL())
			r.Get("/tools", g.handleListTools())
			r.Post("/ask", g.handleAsk())
			r.Get("/history", g.handleHistory())
		})
	})

	return r
}
