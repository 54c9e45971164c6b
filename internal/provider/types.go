package provider

import "encoding/json"

// MessageRole identifies who produced a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry of the conversation history passed to the model.
// Tool results use RoleTool with ToolID set; assistant turns that request
// tool execution carry ToolCalls.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// ToolID links a RoleTool message back to the call that produced it.
	ToolID string `json:"tool_id,omitempty"`

	// IsError marks a tool result as a failure so the model can react.
	IsError bool `json:"is_error,omitempty"`

	// ToolCalls are present on assistant messages that ask for tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-issued request to execute one tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDefinition describes a callable tool to the model. InputSchema is a
// JSON Schema document passed through verbatim.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// CompletionRequest carries everything the model needs for one turn.
type CompletionRequest struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// FinishReason explains why the model stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolUse   FinishReason = "tool_use"
	FinishMaxTokens FinishReason = "max_tokens"
)

// TokenUsage reports prompt and completion token counts for one turn.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse is one model turn. Text holds the concatenated text
// fragments; ToolCalls is non-empty when FinishReason is FinishToolUse.
type CompletionResponse struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        TokenUsage
}
