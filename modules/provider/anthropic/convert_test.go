package anthropic

import (
	"encoding/json"
	"testing"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

func TestConvertMessages_UserAndAssistant(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.RoleUser, Content: "Hello"},
		{Role: provider.RoleAssistant, Content: "Hi there"},
		{Role: provider.RoleUser, Content: "List my views"},
	}

	result := convertMessages(msgs)

	if len(result) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result))
	}
	if result[0].Role != sdkanthropic.MessageParamRoleUser {
		t.Errorf("expected first message role 'user', got %q", result[0].Role)
	}
	if result[1].Role != sdkanthropic.MessageParamRoleAssistant {
		t.Errorf("expected second message role 'assistant', got %q", result[1].Role)
	}
}

func TestConvertMessages_ToolResultGrouping(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.RoleUser, Content: "Use tools"},
		{Role: provider.RoleAssistant, Content: "Sure", ToolCalls: []provider.ToolCall{
			{ID: "tc1", Name: "run_sql", Arguments: map[string]any{"sql": "select 1"}},
			{ID: "tc2", Name: "list_views", Arguments: map[string]any{}},
		}},
		{Role: provider.RoleTool, ToolID: "tc1", Content: "1"},
		{Role: provider.RoleTool, ToolID: "tc2", Content: "[]", IsError: true},
	}

	result := convertMessages(msgs)

	// user + assistant + 1 grouped user (tool results) = 3
	if len(result) != 3 {
		t.Fatalf("expected 3 messages (tool results grouped), got %d", len(result))
	}

	lastMsg := result[2]
	if lastMsg.Role != sdkanthropic.MessageParamRoleUser {
		t.Errorf("expected grouped tool result message role 'user', got %q", lastMsg.Role)
	}
	if len(lastMsg.Content) != 2 {
		t.Fatalf("expected 2 content blocks in grouped tool result, got %d", len(lastMsg.Content))
	}
}

func TestConvertMessages_AssistantWithToolCalls(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.RoleAssistant, Content: "Let me check", ToolCalls: []provider.ToolCall{
			{ID: "tc1", Name: "get_schema", Arguments: map[string]any{"table": "t"}},
		}},
	}

	result := convertMessages(msgs)

	if len(result) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result))
	}
	// text block + tool_use block
	if len(result[0].Content) != 2 {
		t.Fatalf("expected 2 content blocks, got %d", len(result[0].Content))
	}
}

func TestConvertRequest_SystemAndMaxTokens(t *testing.T) {
	cfg := &Config{Model: "claude-test", MaxTokens: 1024}

	params := convertRequest(provider.CompletionRequest{
		System:   "You answer questions about a data catalog.",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	}, cfg)

	if len(params.System) != 1 || params.System[0].Text == "" {
		t.Fatalf("system prompt not converted: %+v", params.System)
	}
	if params.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want config default 1024", params.MaxTokens)
	}

	params = convertRequest(provider.CompletionRequest{
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
		MaxTokens: 512,
	}, cfg)
	if params.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want request override 512", params.MaxTokens)
	}
	if len(params.System) != 0 {
		t.Errorf("unexpected system blocks: %+v", params.System)
	}
}

func TestConvertTools_SchemaFields(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"sql": {"type": "string"}},
		"required": ["sql"],
		"additionalProperties": false
	}`)

	result := convertTools([]provider.ToolDefinition{
		{Name: "run_sql", Description: "runs sql", InputSchema: schema},
	})

	if len(result) != 1 || result[0].OfTool == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	tool := result[0].OfTool
	if tool.Name != "run_sql" {
		t.Errorf("name = %q", tool.Name)
	}
	if tool.InputSchema.Properties == nil {
		t.Error("properties not carried over")
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "sql" {
		t.Errorf("required = %v", tool.InputSchema.Required)
	}
	if _, ok := tool.InputSchema.ExtraFields["additionalProperties"]; !ok {
		t.Error("extra schema fields must be preserved")
	}
}

func TestConvertStopReason(t *testing.T) {
	tests := []struct {
		in   sdkanthropic.StopReason
		want provider.FinishReason
	}{
		{sdkanthropic.StopReasonEndTurn, provider.FinishStop},
		{sdkanthropic.StopReasonToolUse, provider.FinishToolUse},
		{sdkanthropic.StopReasonMaxTokens, provider.FinishMaxTokens},
		{sdkanthropic.StopReasonStopSequence, provider.FinishStop},
	}
	for _, tt := range tests {
		if got := convertStopReason(tt.in); got != tt.want {
			t.Errorf("convertStopReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
