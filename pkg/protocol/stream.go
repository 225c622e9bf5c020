package protocol

// StreamEventType discriminates the StreamEvent union.
type StreamEventType string

// StreamEventType values.
const (
	EventTask           StreamEventType = "task"
	EventMessage        StreamEventType = "message"
	EventStatusUpdate   StreamEventType = "status_update"
	EventArtifactUpdate StreamEventType = "artifact_update"
)

// Artifact is a named output produced by a task, delivered incrementally
// through artifact_update events.
type Artifact struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Parts []Part `json:"parts"`
}

// TaskStatusUpdate reports a status change for a streamed task.
// Final marks the last event of the stream; consumers must stop iterating
// once they observe it.
type TaskStatusUpdate struct {
	TaskID    string     `json:"task_id"`
	ContextID string     `json:"context_id"`
	Status    TaskStatus `json:"status"`
	Final     bool       `json:"final"`
}

// TaskArtifactUpdate delivers one artifact chunk for a streamed task.
type TaskArtifactUpdate struct {
	TaskID    string   `json:"task_id"`
	ContextID string   `json:"context_id"`
	Artifact  Artifact `json:"artifact"`
	Append    bool     `json:"append"`
	LastChunk bool     `json:"last_chunk"`
}

// StreamEvent is a flat union over the four streamed payload kinds.
// Exactly one of the pointer fields matching Type is non-nil.
type StreamEvent struct {
	Type     StreamEventType     `json:"type"`
	Task     *Task               `json:"task,omitempty"`
	Message  *Message            `json:"message,omitempty"`
	Status   *TaskStatusUpdate   `json:"status_update,omitempty"`
	Artifact *TaskArtifactUpdate `json:"artifact_update,omitempty"`
}

// NewTaskEvent creates a task snapshot event.
func NewTaskEvent(t Task) StreamEvent {
	return StreamEvent{Type: EventTask, Task: &t}
}

// NewMessageEvent creates a message event.
func NewMessageEvent(m Message) StreamEvent {
	return StreamEvent{Type: EventMessage, Message: &m}
}

// NewStatusEvent creates a status_update event.
func NewStatusEvent(u TaskStatusUpdate) StreamEvent {
	return StreamEvent{Type: EventStatusUpdate, Status: &u}
}

// NewArtifactEvent creates an artifact_update event.
func NewArtifactEvent(u TaskArtifactUpdate) StreamEvent {
	return StreamEvent{Type: EventArtifactUpdate, Artifact: &u}
}

// Terminal reports whether the event ends the stream: a status update with
// Final set, or a task snapshot in a terminal state, whichever the server
// emits first.
func (e StreamEvent) Terminal() bool {
	switch e.Type {
	case EventStatusUpdate:
		return e.Status != nil && e.Status.Final
	case EventTask:
		return e.Task != nil && e.Task.Status.State.IsTerminal()
	default:
		return false
	}
}
