// Package agent drives a user question to completion by alternating
// language-model turns with tool executions over the session bridge.
// Each iteration sends the full conversation plus the current tool
// catalog to the model; the loop ends when a turn requests no tools.
package agent

import (
	"time"

	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

// TraceKind identifies the kind of a trace entry.
type TraceKind string

const (
	TraceAssistantText TraceKind = "assistant_text"
	TraceToolCalled    TraceKind = "tool_called"
)

// TraceEntry is one ordered observation from the loop: either a text
// fragment the model produced or a tool invocation and its outcome.
type TraceEntry struct {
	Kind       TraceKind      `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Tool       string         `json:"tool,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Output     string         `json:"output,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
}

// ToolRecord tracks one tool invocation made on behalf of the model.
type ToolRecord struct {
	ID        string
	Name      string
	Arguments map[string]any
	Output    string
	IsError   bool
	Duration  time.Duration
}

// Request is one user question handed to the loop.
type Request struct {
	Question  string
	System    string
	MaxTokens int
}

// Response carries the final answer plus the ordered trace of every
// assistant text fragment and tool call produced along the way.
type Response struct {
	Answer string              `json:"answer"`
	Trace  []TraceEntry        `json:"trace"`
	Turns  int                 `json:"turns"`
	Usage  provider.TokenUsage `json:"usage"`
}
