package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/agentgate/internal/tool"
)

// Pipeline manages hook registration and wraps tool execution.
// Hooks run in registration order in both phases.
// Thread-safe: registrations use a write lock, executions a read lock, and
// one invocation never blocks another.
type Pipeline struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger
}

// NewPipeline creates an empty pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger}
}

// Register appends a hook to the pipeline.
func (p *Pipeline) Register(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
}

// RunBefore executes every hook's BeforeExecution in registration order.
// The first error short-circuits and aborts the invocation.
func (p *Pipeline) RunBefore(ctx context.Context, hctx *Context) error {
	p.mu.RLock()
	hooks := p.hooks
	p.mu.RUnlock()

	for _, h := range hooks {
		if err := h.BeforeExecution(ctx, hctx); err != nil {
			return fmt.Errorf("hook aborted %s: %w", hctx.ToolName, err)
		}
	}
	return nil
}

// RunAfter executes every hook's AfterExecution in registration order.
// Errors are logged and never propagated: a failing after-hook must not
// retroactively fail a successful tool result.
func (p *Pipeline) RunAfter(ctx context.Context, hctx *Context) {
	p.mu.RLock()
	hooks := p.hooks
	p.mu.RUnlock()

	for _, h := range hooks {
		if err := h.AfterExecution(ctx, hctx); err != nil {
			p.logger.Warn("hook: after_execution error",
				"tool", hctx.ToolName,
				"error", err,
			)
		}
	}
}

// Invoke runs the full wrapped invocation: before hooks, the tool, then
// after hooks. A before-hook error aborts with an error output and the tool
// never runs; after hooks observe the final output either way.
func (p *Pipeline) Invoke(ctx context.Context, taskID string, t tool.Tool, args json.RawMessage) (tool.Output, error) {
	hctx := &Context{
		TaskID:   taskID,
		ToolName: t.Name(),
		Tool:     t,
		Args:     args,
		Started:  time.Now(),
		Metadata: make(map[string]any),
		Logger:   p.logger,
	}

	if err := p.RunBefore(ctx, hctx); err != nil {
		return tool.Output{Content: err.Error(), IsError: true}, err
	}

	out, err := t.Execute(ctx, args)
	if err != nil && !out.IsError {
		out = tool.Output{Content: err.Error(), IsError: true, Metadata: out.Metadata}
	}

	hctx.Output = &out
	hctx.Err = err
	p.RunAfter(ctx, hctx)

	return out, err
}
