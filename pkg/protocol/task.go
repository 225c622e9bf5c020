// Package protocol defines the wire types shared by the agentgate client and
// server: tasks and their lifecycle states, messages and content parts,
// streaming events, the JSON-RPC envelope, and the agent capability card.
package protocol

// TaskState is the lifecycle state of a task.
type TaskState string

// TaskState values. Submitted is the initial state; Completed, Failed and
// Cancelled are terminal.
const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCancelled     TaskState = "cancelled"
)

// IsTerminal reports whether the state accepts no further transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	default:
		return false
	}
}

// legalTransitions maps each state to the states it may move to.
// Working and input-required form the only cycle: a task blocked on
// approvals resumes to working once every pending approval is resolved.
var legalTransitions = map[TaskState][]TaskState{
	TaskStateSubmitted: {TaskStateWorking, TaskStateCancelled, TaskStateFailed},
	TaskStateWorking: {
		TaskStateInputRequired,
		TaskStateCompleted,
		TaskStateFailed,
		TaskStateCancelled,
	},
	TaskStateInputRequired: {TaskStateWorking, TaskStateCancelled, TaskStateFailed},
}

// CanTransition reports whether moving from one state to another is a legal
// path through the task state machine. Terminal states permit nothing.
func CanTransition(from, to TaskState) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TaskStatus is the tagged status value carried by a task: the state plus an
// optional explanatory message and, while input is required, the identifiers
// of the approvals blocking progress.
type TaskStatus struct {
	State              TaskState `json:"state"`
	Message            string    `json:"message,omitempty"`
	PendingApprovalIDs []string  `json:"pending_approval_ids,omitempty"`
}

// Task is one unit of submitted agent work with an observable lifecycle.
// History is append-only; tasks are never deleted, only superseded by new
// tasks sharing a ContextID.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"context_id"`
	Status    TaskStatus `json:"status"`
	History   []Message  `json:"history,omitempty"`
}
