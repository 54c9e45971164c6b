// Package stdio provides the bridge.stdio module: it runs the MCP tool
// server as a stdio subprocess and exposes a lazily-connected
// bridge.Session as the "bridge.session" service.
package stdio

import (
	"context"
	"log/slog"

	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
	"github.com/ui-iids/dremio-mcp-client/internal/core"
	"github.com/ui-iids/dremio-mcp-client/pkg/lazy"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Bridge{})
}

// Bridge is the stdio tool-bridge module. The peer subprocess is not
// spawned at startup; the first Session call connects it, and a failed
// connect leaves the module eligible for another attempt.
type Bridge struct {
	config Config
	logger *slog.Logger
	cell   lazy.Cell[*bridge.Session]
}

// ModuleInfo implements core.Module.
func (b *Bridge) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "bridge.stdio",
		New: func() core.Module { return &Bridge{} },
	}
}

// Configure implements core.Configurable.
func (b *Bridge) Configure(node *yaml.Node) error {
	return node.Decode(&b.config)
}

// Provision implements core.Provisioner.
func (b *Bridge) Provision(ctx *core.AppContext) error {
	b.logger = ctx.Logger
	b.config.resolve()
	if err := b.config.validate(); err != nil {
		return err
	}
	ctx.RegisterService("bridge.session", b)
	return nil
}

// Session returns the shared session, connecting the peer on first use.
func (b *Bridge) Session(ctx context.Context) (*bridge.Session, error) {
	return b.cell.GetOrCreate(func() (*bridge.Session, error) {
		peer := NewPeer(b.config)
		s := bridge.NewSession(peer, b.logger, bridge.Config{
			ConnectTimeout: b.config.ConnectTimeout,
			CallTimeout:    b.config.CallTimeout,
		})
		if err := s.Connect(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		b.logger.Info("tool peer connected", "command", b.config.Command)
		return s, nil
	})
}

// Stop implements core.Stopper. It tears down the session if one was
// ever created and resets the cell so a later Session call reconnects.
func (b *Bridge) Stop(_ context.Context) error {
	s, ok := b.cell.Reset()
	if !ok {
		return nil
	}
	return s.Close()
}
