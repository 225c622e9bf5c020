package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/agentgate/internal/approval"
	"github.com/flemzord/agentgate/internal/hook"
	"github.com/flemzord/agentgate/internal/policy"
	"github.com/flemzord/agentgate/internal/task"
	"github.com/flemzord/agentgate/internal/tool"
	"github.com/flemzord/agentgate/internal/trust"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// ErrMaxIterationsReached terminates a task whose provider keeps requesting
// tools past the iteration bound.
var ErrMaxIterationsReached = errors.New("executor: max iterations reached")

// defaultMaxIterations bounds the provider/tool round-trip loop.
const defaultMaxIterations = 16

// Deps are the collaborators an Executor needs. All fields except Logger
// and MaxIterations are required.
type Deps struct {
	Provider  Provider
	Registry  *tool.Registry
	Hooks     *hook.Pipeline
	Policy    *policy.Policy
	Trust     *trust.Tracker
	Approvals *approval.Manager
	Tasks     *task.Manager

	Logger        *slog.Logger
	MaxIterations int
}

// Executor runs tasks to completion.
type Executor struct {
	provider  Provider
	registry  *tool.Registry
	hooks     *hook.Pipeline
	policy    *policy.Policy
	trust     *trust.Tracker
	approvals *approval.Manager
	tasks     *task.Manager

	logger        *slog.Logger
	maxIterations int
}

// New creates an Executor from its dependencies.
func New(deps Deps) *Executor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIterations := deps.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Executor{
		provider:      deps.Provider,
		registry:      deps.Registry,
		hooks:         deps.Hooks,
		policy:        deps.Policy,
		trust:         deps.Trust,
		approvals:     deps.Approvals,
		tasks:         deps.Tasks,
		logger:        logger,
		maxIterations: maxIterations,
	}
}

// Run drives the task for one submitted message until it reaches a terminal
// state. It is meant to run in its own goroutine; the context is the task's
// run context registered with the manager, so a caller cancel unwinds it.
func (e *Executor) Run(ctx context.Context, taskID string, msg protocol.Message) {
	ctx, span := otel.Tracer("agentgate").Start(
		ctx,
		"agentgate.task",
		trace.WithAttributes(attribute.String("task.id", taskID)),
	)
	defer span.End()

	if err := e.tasks.AppendMessage(ctx, taskID, msg); err != nil {
		e.logger.Error("executor: record user message", "task_id", taskID, "error", err)
		return
	}
	if err := e.tasks.Transition(ctx, taskID, protocol.TaskStateWorking, "", nil); err != nil {
		e.logger.Error("executor: start task", "task_id", taskID, "error", err)
		return
	}

	err := e.loop(ctx, taskID)
	switch {
	case err == nil:
		span.AddEvent("task.completed")
		if terr := e.tasks.Transition(ctx, taskID, protocol.TaskStateCompleted, "", nil); terr != nil && !errors.Is(terr, task.ErrTerminal) {
			e.logger.Error("executor: complete task", "task_id", taskID, "error", terr)
		}

	case errors.Is(err, context.Canceled), errors.Is(err, task.ErrTerminal):
		// The manager already moved the task to its terminal state.
		span.AddEvent("task.cancelled")

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		terr := e.tasks.Transition(ctx, taskID, protocol.TaskStateFailed, err.Error(), nil)
		if terr != nil && !errors.Is(terr, task.ErrTerminal) {
			e.logger.Error("executor: fail task", "task_id", taskID, "error", terr)
		}
	}
}

// loop is the provider/tool round trip. It returns nil when the provider
// finishes a turn without requesting tools.
func (e *Executor) loop(ctx context.Context, taskID string) error {
	for i := 0; i < e.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := e.tasks.Snapshot(ctx, taskID, 0)
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}

		text, calls, err := e.streamTurn(ctx, Request{
			Messages: snap.History,
			Tools:    e.registry.Definitions(),
		})
		if err != nil {
			return fmt.Errorf("provider: %w", err)
		}

		if agentMsg, ok := buildAgentMessage(text, calls); ok {
			if err := e.tasks.AppendMessage(ctx, taskID, agentMsg); err != nil {
				return err
			}
		}

		if len(calls) == 0 {
			return nil
		}

		results := make([]protocol.Part, 0, len(calls))
		for _, call := range calls {
			part, err := e.invoke(ctx, taskID, call)
			if err != nil {
				return err
			}
			results = append(results, part)
		}

		err = e.tasks.AppendMessage(ctx, taskID, protocol.Message{
			Role:  protocol.RoleUser,
			Parts: results,
		})
		if err != nil {
			return err
		}
	}

	return ErrMaxIterationsReached
}

// streamTurn consumes one provider stream and returns the accumulated text
// and tool calls.
func (e *Executor) streamTurn(ctx context.Context, req Request) (string, []ToolCall, error) {
	chunks, err := e.provider.Stream(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var calls []ToolCall
	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
			break
		}
		text.WriteString(chunk.Text)
		calls = append(calls, chunk.ToolCalls...)
	}
	if streamErr != nil {
		// Drain so the provider goroutine can exit.
		for range chunks {
		}
		return "", nil, streamErr
	}
	return text.String(), calls, nil
}

// buildAgentMessage assembles the agent turn: optional text followed by one
// tool_use part per requested call.
func buildAgentMessage(text string, calls []ToolCall) (protocol.Message, bool) {
	parts := make([]protocol.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, protocol.NewTextPart(text))
	}
	for _, call := range calls {
		parts = append(parts, protocol.NewToolUsePart(call.ID, call.Name, call.Args))
	}
	if len(parts) == 0 {
		return protocol.Message{}, false
	}
	return protocol.Message{Role: protocol.RoleAgent, Parts: parts}, true
}

// invoke gates and executes one tool call, returning its tool_result part.
// Only a cancelled context or a terminal task aborts the run; tool-level
// failures come back as error results so the conversation can continue.
func (e *Executor) invoke(ctx context.Context, taskID string, call ToolCall) (protocol.Part, error) {
	t, err := e.registry.Get(call.Name)
	if err != nil {
		return protocol.NewToolResultPart(call.ID, fmt.Sprintf("unknown tool %q", call.Name), true), nil
	}

	if err := t.InputSchema().ValidateInput(call.Args); err != nil {
		return protocol.NewToolResultPart(call.ID, err.Error(), true), nil
	}

	description := callDescription(call)
	if e.policy.RequiresApproval(call.Name, t.Risk(), description) && !e.trust.IsTrusted(call.Name) {
		resp, err := e.awaitApproval(ctx, taskID, call, t, description)
		if err != nil {
			return protocol.Part{}, err
		}
		if !resp.Approved {
			reason := resp.Reason
			if reason == "" {
				reason = "denied"
			}
			return protocol.NewToolResultPart(call.ID, "approval denied: "+reason, true), nil
		}
		e.trust.RecordApproval(call.Name)
	}

	out, _ := e.hooks.Invoke(ctx, taskID, t, call.Args)
	return protocol.NewToolResultPart(call.ID, out.Content, out.IsError), nil
}

// awaitApproval blocks the task in input-required until the approval is
// resolved by a human, auto-denied by the policy timeout, or the run context
// is cancelled. A timeout deny counts as a resolved denial, not an error.
func (e *Executor) awaitApproval(ctx context.Context, taskID string, call ToolCall, t tool.Tool, description string) (approval.Response, error) {
	pending := e.approvals.Create(taskID, call.Name, description, string(t.Risk()))
	id := pending.Info().ID

	err := e.tasks.Transition(ctx, taskID, protocol.TaskStateInputRequired,
		fmt.Sprintf("waiting for approval of %s", call.Name), []string{id})
	if err != nil {
		e.approvals.Remove(id)
		return approval.Response{}, err
	}

	resp, err := pending.Await(ctx, e.policy.DefaultTimeout())
	e.approvals.Remove(id)
	if err != nil && !errors.Is(err, approval.ErrTimeout) {
		return approval.Response{}, err
	}

	if terr := e.tasks.Transition(ctx, taskID, protocol.TaskStateWorking, "", nil); terr != nil {
		// A cancel landed while we were blocked; the task is terminal.
		return approval.Response{}, terr
	}
	return resp, nil
}

// callDescription extracts the human-readable action description from the
// call arguments, the text the policy patterns match against.
func callDescription(call ToolCall) string {
	var args struct {
		Description string `json:"description"`
	}
	if len(call.Args) > 0 {
		_ = json.Unmarshal(call.Args, &args)
	}
	return args.Description
}
