// Package hook provides an execution hook pipeline wrapping every tool
// invocation. Hooks intercept at two points: before execution (may abort the
// invocation) and after execution (observe the result; failures are logged,
// never propagated). This enables audit logging and side-effect automation
// such as workspace checkpointing.
package hook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/flemzord/agentgate/internal/tool"
)

// Context carries data available to hooks for one tool invocation. The same
// value is shared between the before and after phases, so hooks can pass
// data forward through Metadata.
type Context struct {
	TaskID   string
	ToolName string
	Tool     tool.Tool
	Args     json.RawMessage

	// Output and Err are populated only for AfterExecution.
	Output *tool.Output
	Err    error

	// Started is the invocation start time, set by the pipeline.
	Started time.Time

	// Metadata is shared between both phases.
	Metadata map[string]any

	Logger *slog.Logger
}

// Hook is the extension point interface wrapping tool execution.
// Embed Base to implement only one of the two phases.
type Hook interface {
	// BeforeExecution runs prior to the tool. Returning an error aborts the
	// invocation before the tool executes.
	BeforeExecution(ctx context.Context, hctx *Context) error

	// AfterExecution runs once the tool has returned. Errors are logged by
	// the pipeline and never fail an already successful tool result.
	AfterExecution(ctx context.Context, hctx *Context) error
}

// Base is a no-op Hook for embedding.
type Base struct{}

// BeforeExecution implements Hook as a no-op.
func (Base) BeforeExecution(context.Context, *Context) error { return nil }

// AfterExecution implements Hook as a no-op.
func (Base) AfterExecution(context.Context, *Context) error { return nil }
