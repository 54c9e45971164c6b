package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

// ToolCaller forwards a single tool invocation to the peer. It is
// satisfied by *bridge.Session, which serializes concurrent calls.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (bridge.Result, error)
}

// Executor handles parallel tool execution with panic recovery. The
// caller behind it is responsible for serializing access to the peer.
type Executor struct {
	caller ToolCaller
}

// NewExecutor creates an Executor over the given caller.
func NewExecutor(caller ToolCaller) *Executor {
	return &Executor{caller: caller}
}

// Execute runs all tool calls in parallel and returns results in input
// order. Failures and panics become error records, never a returned
// error: the loop feeds them back to the model as tool results.
func (e *Executor) Execute(ctx context.Context, calls []provider.ToolCall) []ToolRecord {
	results := make([]ToolRecord, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc provider.ToolCall) {
			defer wg.Done()
			results[idx] = e.executeSingle(ctx, tc)
		}(i, call)
	}

	wg.Wait()
	return results
}

func (e *Executor) executeSingle(ctx context.Context, tc provider.ToolCall) (record ToolRecord) {
	record.ID = tc.ID
	record.Name = tc.Name
	record.Arguments = tc.Arguments

	start := time.Now()

	defer func() {
		record.Duration = time.Since(start)
		if r := recover(); r != nil {
			record.Output = fmt.Sprintf("panic: %v", r)
			record.IsError = true
		}
	}()

	out, err := e.caller.CallTool(ctx, tc.Name, tc.Arguments)
	if err != nil {
		record.Output = err.Error()
		record.IsError = true
		return record
	}

	record.Output = out.Content
	record.IsError = out.IsError
	return record
}
