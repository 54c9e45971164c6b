package anthropic

import (
	"encoding/json"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

// convertRequest transforms a CompletionRequest into Anthropic SDK
// parameters. The system prompt goes into the dedicated System field.
func convertRequest(req provider.CompletionRequest, cfg *Config) sdkanthropic.MessageNewParams {
	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(cfg.Model),
		Messages: convertMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []sdkanthropic.TextBlockParam{{Text: req.System}}
	}

	// MaxTokens: request-level override takes precedence over config default.
	params.MaxTokens = int64(cfg.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}

	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	return params
}

// convertMessages transforms conversation messages into Anthropic SDK
// message params. Consecutive tool-result messages are grouped into a
// single user message (Anthropic requires all tool results for a turn
// in one message).
func convertMessages(msgs []provider.Message) []sdkanthropic.MessageParam {
	var result []sdkanthropic.MessageParam

	for i := 0; i < len(msgs); {
		msg := msgs[i]

		switch msg.Role {
		case provider.RoleTool:
			var blocks []sdkanthropic.ContentBlockParamUnion
			for i < len(msgs) && msgs[i].Role == provider.RoleTool {
				blocks = append(blocks, sdkanthropic.NewToolResultBlock(
					msgs[i].ToolID,
					msgs[i].Content,
					msgs[i].IsError,
				))
				i++
			}
			result = append(result, sdkanthropic.MessageParam{
				Role:    sdkanthropic.MessageParamRoleUser,
				Content: blocks,
			})

		case provider.RoleAssistant:
			result = append(result, convertAssistantMessage(msg))
			i++

		case provider.RoleUser:
			result = append(result, sdkanthropic.NewUserMessage(
				sdkanthropic.NewTextBlock(msg.Content),
			))
			i++

		default:
			i++
		}
	}

	return result
}

// convertAssistantMessage converts an assistant message, including any
// tool calls, into an Anthropic assistant message with mixed content
// blocks.
func convertAssistantMessage(msg provider.Message) sdkanthropic.MessageParam {
	var blocks []sdkanthropic.ContentBlockParamUnion

	if msg.Content != "" {
		blocks = append(blocks, sdkanthropic.NewTextBlock(msg.Content))
	}

	for _, tc := range msg.ToolCalls {
		input := any(tc.Arguments)
		if tc.Arguments == nil {
			input = map[string]any{}
		}
		blocks = append(blocks, sdkanthropic.NewToolUseBlock(tc.ID, input, tc.Name))
	}

	return sdkanthropic.NewAssistantMessage(blocks...)
}

// convertTools transforms tool definitions into Anthropic SDK tool params.
func convertTools(tools []provider.ToolDefinition) []sdkanthropic.ToolUnionParam {
	result := make([]sdkanthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		tool := &sdkanthropic.ToolParam{
			Name: t.Name,
		}
		if t.Description != "" {
			tool.Description = sdkanthropic.String(t.Description)
		}
		if len(t.InputSchema) > 0 {
			tool.InputSchema = convertInputSchema(t.InputSchema)
		}
		result[i] = sdkanthropic.ToolUnionParam{OfTool: tool}
	}
	return result
}

// convertInputSchema converts a raw JSON Schema into the SDK's
// ToolInputSchemaParam. Schema fields beyond "properties" and
// "required" (e.g. $defs, oneOf, enum) are preserved via ExtraFields.
func convertInputSchema(raw json.RawMessage) sdkanthropic.ToolInputSchemaParam {
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return sdkanthropic.ToolInputSchemaParam{}
	}

	param := sdkanthropic.ToolInputSchemaParam{}

	if props, ok := full["properties"]; ok {
		param.Properties = props
		delete(full, "properties")
	}
	if req, ok := full["required"]; ok {
		if arr, ok := req.([]any); ok {
			strs := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok {
					strs = append(strs, s)
				}
			}
			param.Required = strs
		}
		delete(full, "required")
	}
	// "type" is auto-set to "object" by the SDK.
	delete(full, "type")

	if len(full) > 0 {
		param.ExtraFields = full
	}

	return param
}

// convertResponse transforms an Anthropic SDK message into a
// CompletionResponse. Multiple text blocks are joined with newlines.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var text string
	var toolCalls []provider.ToolCall

	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdkanthropic.TextBlock:
			if text != "" {
				text += "\n"
			}
			text += v.Text
		case sdkanthropic.ToolUseBlock:
			var args map[string]any
			if len(v.Input) > 0 {
				_ = json.Unmarshal(v.Input, &args)
			}
			toolCalls = append(toolCalls, provider.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: args,
			})
		}
	}

	return provider.CompletionResponse{
		Text:         text,
		ToolCalls:    toolCalls,
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonToolUse:
		return provider.FinishToolUse
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishMaxTokens
	default:
		return provider.FinishStop
	}
}
