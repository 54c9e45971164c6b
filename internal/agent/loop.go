package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

// ErrEmptyQuestion is returned when a request carries no question text.
var ErrEmptyQuestion = errors.New("agent: empty question")

// ToolSource exposes the peer's tool catalog alongside invocation. It
// is satisfied by *bridge.Session.
type ToolSource interface {
	ToolCaller
	Tools(ctx context.Context, refresh bool) ([]bridge.Tool, error)
}

// Loop runs the tool-use conversation: model turn, tool executions,
// results fed back, repeat until the model answers with text only.
type Loop struct {
	provider provider.Provider
	session  ToolSource
	executor *Executor
	logger   *slog.Logger
}

// NewLoop creates a Loop over the given provider and tool session.
func NewLoop(p provider.Provider, session ToolSource, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		provider: p,
		session:  session,
		executor: NewExecutor(session),
		logger:   logger,
	}
}

// Ask drives one user question to completion. No iteration cap is
// enforced here; callers bound the loop through ctx. Tool failures are
// reported back to the model as error results rather than aborting.
func (l *Loop) Ask(ctx context.Context, req Request) (Response, error) {
	if req.Question == "" {
		return Response{}, ErrEmptyQuestion
	}

	tools, err := l.session.Tools(ctx, false)
	if err != nil {
		return Response{}, err
	}
	defs := toolDefinitions(tools)

	messages := []provider.Message{{
		Role:    provider.RoleUser,
		Content: req.Question,
	}}

	var (
		trace []TraceEntry
		usage provider.TokenUsage
		turns int
	)

	for {
		if err := ctx.Err(); err != nil {
			return Response{Trace: trace, Turns: turns, Usage: usage}, err
		}

		resp, err := l.provider.Complete(ctx, provider.CompletionRequest{
			System:    req.System,
			Messages:  messages,
			Tools:     defs,
			MaxTokens: req.MaxTokens,
		})
		if err != nil {
			return Response{Trace: trace, Turns: turns, Usage: usage}, err
		}
		turns++
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens

		if resp.Text != "" {
			trace = append(trace, TraceEntry{Kind: TraceAssistantText, Text: resp.Text})
		}

		// No tool calls means the model is done.
		if len(resp.ToolCalls) == 0 {
			return Response{
				Answer: resp.Text,
				Trace:  trace,
				Turns:  turns,
				Usage:  usage,
			}, nil
		}

		messages = append(messages, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		records := l.executor.Execute(ctx, resp.ToolCalls)
		for _, rec := range records {
			trace = append(trace, TraceEntry{
				Kind:       TraceToolCalled,
				Tool:       rec.Name,
				Arguments:  rec.Arguments,
				Output:     rec.Output,
				IsError:    rec.IsError,
				DurationMS: rec.Duration.Milliseconds(),
			})
			if rec.IsError {
				l.logger.Warn("tool call failed", "tool", rec.Name, "output", rec.Output)
			}
			messages = append(messages, provider.Message{
				Role:    provider.RoleTool,
				Content: rec.Output,
				ToolID:  rec.ID,
				IsError: rec.IsError,
			})
		}
	}
}

func toolDefinitions(tools []bridge.Tool) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = provider.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
	}
	return defs
}
