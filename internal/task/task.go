// Package task implements the task lifecycle: a mutex-guarded record that
// enforces the state machine, and a manager that owns all live tasks,
// persists snapshots, and fans out stream events to subscribers.
package task

import (
	"errors"
	"slices"
	"sync"

	"github.com/flemzord/agentgate/pkg/protocol"
)

var (
	// ErrNotFound is returned for an unknown task id.
	ErrNotFound = errors.New("task not found")

	// ErrIllegalTransition is returned when a requested state change is not
	// a legal path through the state machine.
	ErrIllegalTransition = errors.New("illegal task state transition")

	// ErrTerminal is returned when mutating a task that already reached a
	// terminal state.
	ErrTerminal = errors.New("task is in a terminal state")
)

// Task is one live unit of submitted work. All mutation goes through the
// guarded methods; history is append-only and frozen once the task is
// terminal.
type Task struct {
	mu        sync.Mutex
	id        string
	contextID string
	status    protocol.TaskStatus
	history   []protocol.Message
}

// New creates a task in the submitted state.
func New(id, contextID string) *Task {
	return &Task{
		id:        id,
		contextID: contextID,
		status:    protocol.TaskStatus{State: protocol.TaskStateSubmitted},
	}
}

// ID returns the task id.
func (t *Task) ID() string { return t.id }

// ContextID returns the grouping context id.
func (t *Task) ContextID() string { return t.contextID }

// State returns the current lifecycle state.
func (t *Task) State() protocol.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status.State
}

// Transition moves the task to a new state with an optional explanatory
// message and, for input-required, the blocking approval ids. Illegal paths
// return ErrIllegalTransition; terminal tasks return ErrTerminal.
func (t *Task) Transition(to protocol.TaskState, message string, pendingIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.State.IsTerminal() {
		return ErrTerminal
	}
	if !protocol.CanTransition(t.status.State, to) {
		return ErrIllegalTransition
	}

	t.status = protocol.TaskStatus{
		State:              to,
		Message:            message,
		PendingApprovalIDs: slices.Clone(pendingIDs),
	}
	return nil
}

// AppendMessage appends to the task history. History is immutable once the
// task is terminal.
func (t *Task) AppendMessage(msg protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.State.IsTerminal() {
		return ErrTerminal
	}
	t.history = append(t.history, msg)
	return nil
}

// Snapshot returns a wire copy of the task. historyLength limits the
// snapshot to the trailing N messages; zero means the full history.
func (t *Task) Snapshot(historyLength int) protocol.Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.history
	if historyLength > 0 && historyLength < len(history) {
		history = history[len(history)-historyLength:]
	}

	return protocol.Task{
		ID:        t.id,
		ContextID: t.contextID,
		Status: protocol.TaskStatus{
			State:              t.status.State,
			Message:            t.status.Message,
			PendingApprovalIDs: slices.Clone(t.status.PendingApprovalIDs),
		},
		History: slices.Clone(history),
	}
}
