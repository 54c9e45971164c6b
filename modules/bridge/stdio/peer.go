package stdio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
)

// mcpClient is the subset of the MCP client used by Peer, extracted so
// tests can substitute a fake without spawning a subprocess.
type mcpClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Peer runs an MCP server as a stdio subprocess and implements
// bridge.Peer over it. Connect spawns the process and performs the MCP
// initialization handshake; Close terminates the process. The bridge
// session serializes all calls, so Peer needs no locking of its own.
type Peer struct {
	config Config
	spawn  func() (mcpClient, error)
	client mcpClient
}

// NewPeer creates a Peer for the configured subprocess.
func NewPeer(cfg Config) *Peer {
	return &Peer{
		config: cfg,
		spawn: func() (mcpClient, error) {
			return client.NewStdioMCPClient(cfg.Command, cfg.environ(), cfg.Args...)
		},
	}
}

// Connect implements bridge.Peer.
func (p *Peer) Connect(ctx context.Context) error {
	c, err := p.spawn()
	if err != nil {
		return fmt.Errorf("%w: starting %s: %w", bridge.ErrConnection, p.config.Command, err)
	}

	var initReq mcp.InitializeRequest
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "dremio-mcp-client",
		Version: "1.0.0",
	}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return fmt.Errorf("%w: initialize handshake: %w", bridge.ErrConnection, err)
	}

	p.client = c
	return nil
}

// ListTools implements bridge.Peer.
func (p *Peer) ListTools(ctx context.Context) ([]bridge.Tool, error) {
	if p.client == nil {
		return nil, bridge.ErrNotConnected
	}

	res, err := p.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	tools := make([]bridge.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encoding schema of tool %s: %w", t.Name, err)
		}
		tools = append(tools, bridge.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

// CallTool implements bridge.Peer. Text content blocks are joined with
// newlines; non-text blocks are ignored.
func (p *Peer) CallTool(ctx context.Context, name string, args map[string]any) (bridge.Result, error) {
	if p.client == nil {
		return bridge.Result{}, bridge.ErrNotConnected
	}

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := p.client.CallTool(ctx, req)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("calling tool %s: %w", name, err)
	}

	var parts []string
	for _, content := range res.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}

	return bridge.Result{
		Content: strings.Join(parts, "\n"),
		IsError: res.IsError,
	}, nil
}

// Close implements bridge.Peer. It tolerates a never-completed Connect.
func (p *Peer) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
