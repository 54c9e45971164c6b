package stdio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
)

// fakeMCP is a scriptable in-process MCP client.
type fakeMCP struct {
	initErr   error
	tools     []mcp.Tool
	callRes   *mcp.CallToolResult
	callErr   error
	closed    bool
	lastName  string
	lastArgs  map[string]any
}

func (f *fakeMCP) Initialize(_ context.Context, _ mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &mcp.InitializeResult{}, nil
}

func (f *fakeMCP) ListTools(_ context.Context, _ mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeMCP) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastName = req.Params.Name
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		f.lastArgs = args
	}
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callRes, nil
}

func (f *fakeMCP) Close() error {
	f.closed = true
	return nil
}

func fakePeer(f *fakeMCP) *Peer {
	return &Peer{
		config: Config{Command: "fake-mcp"},
		spawn:  func() (mcpClient, error) { return f, nil },
	}
}

func TestPeer_ConnectAndListTools(t *testing.T) {
	t.Parallel()

	f := &fakeMCP{
		tools: []mcp.Tool{{Name: "run_sql", Description: "runs sql"}},
	}
	p := fakePeer(f)

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	tools, err := p.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "run_sql" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
	if len(tools[0].InputSchema) == 0 {
		t.Error("input schema should be marshaled, not empty")
	}
}

func TestPeer_ConnectHandshakeFailureClosesClient(t *testing.T) {
	t.Parallel()

	f := &fakeMCP{initErr: errors.New("no init for you")}
	p := fakePeer(f)

	err := p.Connect(context.Background())
	if !errors.Is(err, bridge.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if !f.closed {
		t.Error("client must be closed after a failed handshake")
	}
}

func TestPeer_CallToolJoinsTextContent(t *testing.T) {
	t.Parallel()

	f := &fakeMCP{
		callRes: &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "line one"},
				mcp.TextContent{Type: "text", Text: "line two"},
			},
		},
	}
	p := fakePeer(f)
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	res, err := p.CallTool(context.Background(), "run_sql", map[string]any{"sql": "select 1"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.Content != "line one\nline two" {
		t.Errorf("content = %q", res.Content)
	}
	if f.lastName != "run_sql" || f.lastArgs["sql"] != "select 1" {
		t.Errorf("request not forwarded: %s %v", f.lastName, f.lastArgs)
	}
}

func TestPeer_CallToolErrorFlag(t *testing.T) {
	t.Parallel()

	f := &fakeMCP{
		callRes: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "table not found"}},
		},
	}
	p := fakePeer(f)
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	res, err := p.CallTool(context.Background(), "run_sql", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content, "table not found") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestPeer_NotConnected(t *testing.T) {
	t.Parallel()

	p := fakePeer(&fakeMCP{})

	if _, err := p.ListTools(context.Background()); !errors.Is(err, bridge.ErrNotConnected) {
		t.Errorf("ListTools before Connect: %v", err)
	}
	if _, err := p.CallTool(context.Background(), "x", nil); !errors.Is(err, bridge.ErrNotConnected) {
		t.Errorf("CallTool before Connect: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close before Connect must be a no-op: %v", err)
	}
}

func TestConfig_ResolveFromEnv(t *testing.T) {
	t.Setenv(envCommand, "dremio-mcp-server")
	t.Setenv(envArgs, "serve --mode stdio")

	cfg := Config{}
	cfg.resolve()
	if cfg.Command != "dremio-mcp-server" {
		t.Errorf("command = %q", cfg.Command)
	}
	if len(cfg.Args) != 3 || cfg.Args[0] != "serve" {
		t.Errorf("args = %v", cfg.Args)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	empty := Config{}
	t.Setenv(envCommand, "")
	empty.resolve()
	if err := empty.validate(); err == nil {
		t.Error("expected validation error for missing command")
	}
}
