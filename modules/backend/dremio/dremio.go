// Package dremio provides the Dremio catalog backend module. It exposes
// the Dremio REST API (v3) as a catalog.Backend and registers the client
// as the "backend.client" service for other modules.
package dremio

import (
	"log/slog"

	"github.com/ui-iids/dremio-mcp-client/internal/core"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Backend{})
}

// Backend is the Dremio catalog backend module.
type Backend struct {
	config Config
	client *Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (b *Backend) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "backend.dremio",
		New: func() core.Module { return &Backend{} },
	}
}

// Configure implements core.Configurable.
func (b *Backend) Configure(node *yaml.Node) error {
	if err := node.Decode(&b.config); err != nil {
		return err
	}
	return nil
}

// Provision implements core.Provisioner.
func (b *Backend) Provision(ctx *core.AppContext) error {
	b.logger = ctx.Logger
	b.config.defaults()
	if err := b.config.resolve(); err != nil {
		return err
	}
	if err := b.config.validate(); err != nil {
		return err
	}

	b.client = NewClient(b.config)
	ctx.RegisterService("backend.client", b.client)
	b.logger.Info("dremio backend configured", "base_url", b.config.BaseURL)
	return nil
}

// Client returns the provisioned API client.
func (b *Backend) Client() *Client {
	return b.client
}
