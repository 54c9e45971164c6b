package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ui-iids/dremio-mcp-client/internal/agent"
	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
	"github.com/ui-iids/dremio-mcp-client/internal/catalog"
	"github.com/ui-iids/dremio-mcp-client/internal/history"
	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

// maxBodySize bounds request bodies on the JSON endpoints.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (g *Gateway) writeError(w http.ResponseWriter, status int, msg string) {
	if status >= http.StatusInternalServerError {
		g.metrics.RecordError()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

// statusFor maps sentinel errors from the lower layers to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInconsistent):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrTimeout),
		errors.Is(err, bridge.ErrDeadline),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, bridge.ErrConnection),
		errors.Is(err, bridge.ErrNotConnected),
		errors.Is(err, bridge.ErrClosed),
		errors.Is(err, provider.ErrProviderDown):
		return http.StatusBadGateway
	case errors.Is(err, provider.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, provider.ErrContextLength):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// pathFromRequest resolves a view path from the three accepted request
// shapes: an explicit path array, a dot-separated path string, or a
// catalog id looked up through the backend.
func (g *Gateway) pathFromRequest(ctx context.Context, id string, path []string, pathStr string) ([]string, error) {
	switch {
	case len(path) > 0:
		return path, nil
	case pathStr != "":
		var parts []string
		for _, p := range strings.Split(pathStr, ".") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	case id != "":
		ent, err := g.backend.Entity(ctx, id)
		if err != nil {
			return nil, err
		}
		node := catalog.ParseNode(ent)
		if len(node.Path) == 0 {
			return nil, fmt.Errorf("%w: entity %s carries no path", catalog.ErrInconsistent, id)
		}
		return node.Path, nil
	default:
		return nil, nil
	}
}

// clampLimit applies the default and hard cap from the query config.
func (g *Gateway) clampLimit(limit int) int {
	if limit <= 0 {
		limit = g.config.Query.DefaultLimit
	}
	return min(limit, g.config.Query.MaxLimit)
}

// handleListViews lists virtual datasets under the configured (or
// query-selected) catalog roots.
//
//	GET /api/views?roots=Space1,Space2&hydrate=true
func (g *Gateway) handleListViews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.resolver == nil {
			g.writeError(w, http.StatusServiceUnavailable, "backend not configured")
			return
		}

		var roots []string
		for _, raw := range r.URL.Query()["roots"] {
			for _, name := range strings.Split(raw, ",") {
				if name = strings.TrimSpace(name); name != "" {
					roots = append(roots, name)
				}
			}
		}
		if len(roots) == 0 {
			roots = g.config.Roots
		}
		// SQL hydration is on unless explicitly disabled.
		hydrate := true
		if v, err := strconv.ParseBool(r.URL.Query().Get("hydrate")); err == nil {
			hydrate = v
		}

		views, err := g.resolver.ListViews(r.Context(), catalog.ListOptions{
			Roots:      roots,
			HydrateSQL: hydrate,
		})
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}
		if views == nil {
			views = []catalog.ViewRecord{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"data":  views,
			"count": len(views),
		})
	}
}

type previewRequest struct {
	ID      string   `json:"id"`
	Path    []string `json:"path"`
	PathStr string   `json:"path_str"`
	Limit   int      `json:"limit"`
}

// resultResponse is the shared JSON shape of the preview and sql/run
// endpoints.
type resultResponse struct {
	JobID    string           `json:"jobId"`
	SQL      string           `json:"sql,omitempty"`
	Columns  []catalog.Column `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
	Offset   int              `json:"offset,omitempty"`
	Limit    int              `json:"limit,omitempty"`
}

// handlePreviewView runs a bounded SELECT * against one view.
//
//	POST /api/views/preview {"id": ..., "limit": 100}
//	POST /api/views/preview {"path": ["Space","view"], "limit": 100}
func (g *Gateway) handlePreviewView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.runner == nil {
			g.writeError(w, http.StatusServiceUnavailable, "backend not configured")
			return
		}

		var req previewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		parts, err := g.pathFromRequest(r.Context(), req.ID, req.Path, req.PathStr)
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}
		if len(parts) == 0 {
			g.writeError(w, http.StatusBadRequest, "provide 'id', 'path', or 'path_str'")
			return
		}

		limit := req.Limit
		if limit <= 0 {
			limit = 100
		}
		limit = min(limit, g.config.Query.MaxLimit)

		sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d", catalog.QuoteIdentifier(parts), limit)
		resp, status, err := g.runQuery(r.Context(), sql, 0, limit)
		if err != nil {
			g.writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type runSQLRequest struct {
	SQL    string `json:"sql"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// handleRunSQL executes one guarded SELECT and returns the first page of
// results.
//
//	POST /api/sql/run {"sql": "SELECT ...", "limit": 200, "offset": 0}
func (g *Gateway) handleRunSQL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.runner == nil {
			g.writeError(w, http.StatusServiceUnavailable, "backend not configured")
			return
		}

		var req runSQLRequest
		if err := decodeJSON(w, r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		sql := strings.TrimSpace(req.SQL)
		if sql == "" {
			g.writeError(w, http.StatusBadRequest, "provide 'sql'")
			return
		}
		if g.config.Query.selectOnly() {
			if err := catalog.CheckSelect(sql); err != nil {
				g.writeError(w, statusFor(err), err.Error())
				return
			}
		}

		limit := g.clampLimit(req.Limit)
		offset := max(req.Offset, 0)

		resp, status, err := g.runQuery(r.Context(), catalog.EnsureLimit(sql, limit), offset, limit)
		if err != nil {
			g.writeError(w, status, err.Error())
			return
		}
		resp.SQL = sql
		resp.Offset = offset
		resp.Limit = limit
		writeJSON(w, http.StatusOK, resp)
	}
}

// runQuery submits one statement, waits for the job, and fetches a result
// page. The returned status is only meaningful when err is non-nil.
func (g *Gateway) runQuery(ctx context.Context, sql string, offset, limit int) (resultResponse, int, error) {
	g.metrics.RecordQuery()

	jobID, err := g.runner.Submit(ctx, sql)
	if err != nil {
		return resultResponse{}, statusFor(err), err
	}

	job, err := g.runner.AwaitCompletion(ctx, jobID, g.config.Query.Timeout, g.config.Query.PollInterval)
	if err != nil {
		return resultResponse{}, statusFor(err), err
	}
	if job.State != catalog.JobStateCompleted {
		msg := fmt.Sprintf("job %s ended in state %s", jobID, job.State)
		if job.ErrorMessage != "" {
			msg += ": " + job.ErrorMessage
		}
		return resultResponse{}, http.StatusInternalServerError, errors.New(msg)
	}

	page, err := g.runner.FetchResults(ctx, jobID, offset, limit)
	if err != nil {
		return resultResponse{}, statusFor(err), err
	}

	resp := resultResponse{
		JobID:    jobID,
		Columns:  page.Columns,
		Rows:     page.Rows,
		RowCount: page.RowCount,
	}
	if resp.Columns == nil {
		resp.Columns = []catalog.Column{}
	}
	if resp.Rows == nil {
		resp.Rows = []map[string]any{}
	}
	return resp, http.StatusOK, nil
}

type createViewRequest struct {
	Path          []string `json:"path"`
	PathStr       string   `json:"path_str"`
	SQL           string   `json:"sql"`
	OrReplace     *bool    `json:"or_replace"`
	UseCatalogAPI bool     `json:"use_catalog_api"`
	SQLContext    []string `json:"sql_context"`
}

// handleCreateView creates or replaces one view.
//
//	POST /api/views/create {"path": [...], "sql": "SELECT ...", "or_replace": true}
func (g *Gateway) handleCreateView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.writer == nil {
			g.writeError(w, http.StatusServiceUnavailable, "backend not configured")
			return
		}

		var req createViewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		parts, err := g.pathFromRequest(r.Context(), "", req.Path, req.PathStr)
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}
		if len(parts) == 0 {
			g.writeError(w, http.StatusBadRequest, "provide 'path' (array) or 'path_str' (dot-separated)")
			return
		}

		strategy := catalog.StrategyStatement
		if req.UseCatalogAPI {
			strategy = catalog.StrategyEntity
		}
		orReplace := true
		if req.OrReplace != nil {
			orReplace = *req.OrReplace
		}

		result, err := g.writer.CreateOrReplaceView(r.Context(), catalog.WriteRequest{
			Path:       parts,
			Select:     req.SQL,
			Strategy:   strategy,
			OrReplace:  orReplace,
			SQLContext: req.SQLContext,
		})
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}

		// The statement strategy only submits the job; surface a failed
		// CREATE VIEW instead of reporting an id the caller cannot use.
		if result.JobID != "" {
			job, err := g.runner.AwaitCompletion(r.Context(), result.JobID, g.config.Query.Timeout, g.config.Query.PollInterval)
			if err != nil {
				g.writeError(w, statusFor(err), err.Error())
				return
			}
			if job.State != catalog.JobStateCompleted {
				g.writeError(w, http.StatusInternalServerError,
					fmt.Sprintf("CREATE VIEW job %s ended in state %s", result.JobID, job.State))
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"method":   result.Method,
			"id":       result.ID,
			"jobId":    result.JobID,
			"path":     result.Path,
			"path_str": result.PathString,
			"tag":      result.Tag,
			"type":     result.Type,
		})
	}
}

// handleListTools lists the tools advertised by the connected peer,
// connecting on first use.
//
//	GET /api/tools?refresh=true
func (g *Gateway) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.sessions == nil {
			g.writeError(w, http.StatusServiceUnavailable, "bridge not configured")
			return
		}

		sess, err := g.sessions.Session(r.Context())
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}

		refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
		tools, err := sess.Tools(r.Context(), refresh)
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}
		if tools == nil {
			tools = []bridge.Tool{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"tools": tools,
			"count": len(tools),
		})
	}
}

type askRequest struct {
	Q      string `json:"q"`
	System string `json:"system"`
}

// handleAsk answers one natural-language question through the model loop,
// persisting the exchange when a history store is available.
//
//	POST /api/ask {"q": "which views reference orders?"}
func (g *Gateway) handleAsk() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.sessions == nil || g.llm == nil {
			g.writeError(w, http.StatusServiceUnavailable, "bridge or provider not configured")
			return
		}

		var req askRequest
		if err := decodeJSON(w, r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		q := strings.TrimSpace(req.Q)
		if q == "" {
			g.writeError(w, http.StatusBadRequest, "missing 'q'")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.config.Ask.Timeout)
		defer cancel()

		loop, err := g.askLoop(ctx)
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}

		system := req.System
		if system == "" {
			system = g.config.Ask.System
		}

		start := time.Now()
		resp, err := loop.Ask(ctx, agent.Request{Question: q, System: system})
		if err != nil {
			g.writeError(w, statusFor(err), err.Error())
			return
		}

		toolCalls := 0
		for _, entry := range resp.Trace {
			if entry.Kind == agent.TraceToolCalled {
				toolCalls++
			}
		}
		tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
		g.metrics.RecordQuestion(int64(tokens), toolCalls, time.Since(start))
		g.prom.toolCalls.Add(float64(toolCalls))
		g.prom.tokens.WithLabelValues("input").Add(float64(resp.Usage.InputTokens))
		g.prom.tokens.WithLabelValues("output").Add(float64(resp.Usage.OutputTokens))

		g.appendHistory(r.Context(), q, resp)

		writeJSON(w, http.StatusOK, resp)
	}
}

// appendHistory persists one exchange. Failures are logged, never
// surfaced; the answer already exists.
func (g *Gateway) appendHistory(ctx context.Context, question string, resp agent.Response) {
	if g.store == nil {
		return
	}

	trace, err := json.Marshal(resp.Trace)
	if err != nil {
		trace = []byte("[]")
	}

	rec := history.Record{
		Question: question,
		Answer:   resp.Answer,
		Trace:    string(trace),
		Turns:    resp.Turns,
	}
	if g.llm != nil {
		rec.Model = g.llm.ModelName()
	}

	if _, err := g.store.Append(ctx, rec); err != nil {
		g.logger.Error("history append failed", "error", err)
	}
}

// handleHistory returns recent exchanges, newest first.
//
//	GET /api/history?limit=20
func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			g.writeError(w, http.StatusServiceUnavailable, "history not configured")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := g.store.Recent(r.Context(), limit)
		if err != nil {
			g.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []history.Record{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"data":  records,
			"count": len(records),
		})
	}
}
