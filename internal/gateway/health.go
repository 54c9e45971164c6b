package gateway

import (
	"net/http"
	"time"

	"github.com/ui-iids/dremio-mcp-client/internal/core"
)

// Version is stamped by the main package at startup.
var Version = "dev"

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string   `json:"status"`
	Tools    []string `json:"tools,omitempty"`
	Backend  bool     `json:"backend"`
	Bridge   bool     `json:"bridge"`
	Provider bool     `json:"provider"`
	History  bool     `json:"history"`
}

// handleHealth reports which services resolved at startup and, when a
// bridge is wired, the peer's tool catalog. A bridge that cannot connect
// degrades the response to 503.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Backend:  g.backend != nil,
			Bridge:   g.sessions != nil,
			Provider: g.llm != nil,
			History:  g.store != nil,
		}

		if g.sessions != nil {
			sess, err := g.sessions.Session(r.Context())
			if err == nil {
				tools, terr := sess.Tools(r.Context(), false)
				err = terr
				for _, tool := range tools {
					resp.Tools = append(resp.Tools, tool.Name)
				}
			}
			if err != nil {
				resp.Status = "degraded"
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version string          `json:"version"`
	Uptime  time.Duration   `json:"uptime_seconds"`
	Model   string          `json:"model,omitempty"`
	Modules []string        `json:"modules"`
	Metrics MetricsSnapshot `json:"metrics"`
}

// handleStatus returns version, uptime, the active model, registered
// modules, and a metrics snapshot.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version: Version,
			Uptime:  time.Since(g.startedAt).Truncate(time.Second),
			Metrics: g.metrics.Snapshot(),
		}

		if g.llm != nil {
			resp.Model = g.llm.ModelName()
		}

		mods := core.GetModules()
		resp.Modules = make([]string, 0, len(mods))
		for _, m := range mods {
			resp.Modules = append(resp.Modules, string(m.ID))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
