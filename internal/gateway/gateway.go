// Package gateway provides the HTTP surface of the client: catalog browsing,
// view preview and creation, bounded SQL execution, tool listing, and the
// question-answering endpoint. It binds to loopback by default and follows
// the module system pattern.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ui-iids/dremio-mcp-client/internal/agent"
	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
	"github.com/ui-iids/dremio-mcp-client/internal/catalog"
	"github.com/ui-iids/dremio-mcp-client/internal/core"
	"github.com/ui-iids/dremio-mcp-client/internal/history"
	"github.com/ui-iids/dremio-mcp-client/internal/provider"
	"github.com/ui-iids/dremio-mcp-client/pkg/lazy"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Interface guards.
var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// sessionSource yields the shared tool-peer session, connecting on first
// use. The bridge module's registered service satisfies it.
type sessionSource interface {
	Session(ctx context.Context) (*bridge.Session, error)
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	prom      *collectors
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	backend  catalog.Backend
	sessions sessionSource
	llm      provider.Provider
	store    history.Store

	resolver *catalog.Resolver
	runner   *catalog.Runner
	writer   *catalog.Writer
	loop     lazy.Cell[*agent.Loop]
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = &Metrics{}
	g.prom = newCollectors()

	ctx.RegisterService("gateway.metrics", g.metrics)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server. Missing services
// degrade the endpoints that need them to 503 rather than failing startup.
func (g *Gateway) Start() error {
	if svc, ok := g.appCtx.Service("backend.client"); ok {
		if backend, ok := svc.(catalog.Backend); ok {
			g.backend = backend
		}
	}
	if svc, ok := g.appCtx.Service("bridge.session"); ok {
		if source, ok := svc.(sessionSource); ok {
			g.sessions = source
		}
	}
	if svc, ok := g.appCtx.Service("provider.llm"); ok {
		if llm, ok := svc.(provider.Provider); ok {
			g.llm = llm
		}
	}
	if svc, ok := g.appCtx.Service("history.store"); ok {
		if store, ok := svc.(history.Store); ok {
			g.store = store
		}
	}

	if g.backend != nil {
		g.resolver = catalog.NewResolver(g.backend, g.logger)
		g.runner = catalog.NewRunner(g.backend, g.logger)
		g.writer = catalog.NewWriter(g.backend, g.logger)
	}

	g.startedAt = time.Now()

	mux := g.buildRouter()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      mux,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// askLoop returns the shared model loop, building it on first use. The
// build connects the bridge session; on failure the cell stays empty so
// the next request retries.
func (g *Gateway) askLoop(ctx context.Context) (*agent.Loop, error) {
	return g.loop.GetOrCreate(func() (*agent.Loop, error) {
		sess, err := g.sessions.Session(ctx)
		if err != nil {
			return nil, err
		}
		return agent.NewLoop(g.llm, sess, g.logger), nil
	})
}
