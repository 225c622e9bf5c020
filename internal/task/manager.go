package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/flemzord/agentgate/internal/store"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// subscriberBuffer sizes each subscriber channel. A consumer that falls this
// far behind starts losing events rather than stalling the executor.
const subscriberBuffer = 256

// subscriber is one stream consumer attached to a task.
type subscriber struct {
	ch     chan protocol.StreamEvent
	closed bool
}

// Manager owns all live tasks. It assigns ids, writes snapshots through to
// the store on every mutation, and fans stream events out to subscribers.
type Manager struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	cancels map[string]context.CancelFunc
	subs    map[string][]*subscriber

	store  store.Store
	logger *slog.Logger
}

// NewManager creates a Manager persisting through the given store.
func NewManager(st store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tasks:   make(map[string]*Task),
		cancels: make(map[string]context.CancelFunc),
		subs:    make(map[string][]*subscriber),
		store:   st,
		logger:  logger,
	}
}

// Create registers a new task in the submitted state. An empty contextID
// gets a fresh context id so related follow-ups can reference it.
func (m *Manager) Create(ctx context.Context, contextID string) (*Task, error) {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	t := New(uuid.NewString(), contextID)

	m.mu.Lock()
	m.tasks[t.ID()] = t
	m.mu.Unlock()

	if err := m.store.SaveTask(ctx, t.Snapshot(0)); err != nil {
		return nil, fmt.Errorf("persist new task: %w", err)
	}
	return t, nil
}

// Get returns the live task record for id.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Snapshot returns the task's current wire snapshot, consulting the store
// for tasks no longer held live (restarts, pruned records).
func (m *Manager) Snapshot(ctx context.Context, id string, historyLength int) (protocol.Task, error) {
	if t, ok := m.Get(id); ok {
		return t.Snapshot(historyLength), nil
	}

	snap, err := m.store.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return protocol.Task{}, ErrNotFound
	}
	if err != nil {
		return protocol.Task{}, err
	}
	if historyLength > 0 && historyLength < len(snap.History) {
		snap.History = snap.History[len(snap.History)-historyLength:]
	}
	return snap, nil
}

// List returns stored snapshots newest-first, optionally filtered by
// context id.
func (m *Manager) List(ctx context.Context, contextID string, limit, offset int) ([]protocol.Task, error) {
	return m.store.ListTasks(ctx, contextID, limit, offset)
}

// Subscribe attaches a stream consumer to the task. The returned cancel
// function detaches it; the channel is closed either by cancel or when the
// task emits a terminal event.
func (m *Manager) Subscribe(id string) (<-chan protocol.StreamEvent, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return nil, nil, ErrNotFound
	}

	sub := &subscriber{ch: make(chan protocol.StreamEvent, subscriberBuffer)}
	m.subs[id] = append(m.subs[id], sub)

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.detachLocked(id, sub)
	}
	return sub.ch, cancel, nil
}

// detachLocked removes and closes one subscriber. Caller holds m.mu.
func (m *Manager) detachLocked(id string, sub *subscriber) {
	subs := m.subs[id]
	for i, s := range subs {
		if s == sub {
			m.subs[id] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// Publish delivers an event to every subscriber of the task. Terminal
// events close the subscriber channels afterwards so stream consumers
// observe end-of-stream promptly.
func (m *Manager) Publish(id string, ev protocol.StreamEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs[id] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			m.logger.Warn("dropping stream event for slow subscriber",
				"task_id", id, "event_type", ev.Type)
		}
	}

	if ev.Terminal() {
		for _, sub := range m.subs[id] {
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
		delete(m.subs, id)
	}
}

// Transition moves the task to a new state, persists the snapshot, and
// publishes a status-update event (marked final for terminal states).
func (m *Manager) Transition(ctx context.Context, id string, to protocol.TaskState, message string, pendingIDs []string) error {
	t, ok := m.Get(id)
	if !ok {
		return ErrNotFound
	}
	if err := t.Transition(to, message, pendingIDs); err != nil {
		return err
	}

	snap := t.Snapshot(0)
	if err := m.store.SaveTask(ctx, snap); err != nil {
		m.logger.Error("persist task transition", "task_id", id, "error", err)
	}

	m.Publish(id, protocol.NewStatusEvent(protocol.TaskStatusUpdate{
		TaskID:    id,
		ContextID: t.ContextID(),
		Status:    snap.Status,
		Final:     to.IsTerminal(),
	}))
	return nil
}

// AppendMessage appends to the task history, persists, and publishes the
// message as a stream event.
func (m *Manager) AppendMessage(ctx context.Context, id string, msg protocol.Message) error {
	t, ok := m.Get(id)
	if !ok {
		return ErrNotFound
	}
	if err := t.AppendMessage(msg); err != nil {
		return err
	}

	if err := m.store.SaveTask(ctx, t.Snapshot(0)); err != nil {
		m.logger.Error("persist task message", "task_id", id, "error", err)
	}

	m.Publish(id, protocol.NewMessageEvent(msg))
	return nil
}

// RegisterCancel records the cancel function for the task's executor run.
func (m *Manager) RegisterCancel(id string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels[id] = cancel
}

// Cancel requests cancellation. Cancelling an already-terminal task is a
// no-op that returns the current snapshot; otherwise the executor context
// is cancelled and the task moves to cancelled immediately so polls and
// streams observe it without waiting for the executor to unwind.
func (m *Manager) Cancel(ctx context.Context, id string) (protocol.Task, error) {
	t, ok := m.Get(id)
	if !ok {
		return protocol.Task{}, ErrNotFound
	}

	if t.State().IsTerminal() {
		return t.Snapshot(0), nil
	}

	m.mu.Lock()
	cancel := m.cancels[id]
	delete(m.cancels, id)
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	err := m.Transition(ctx, id, protocol.TaskStateCancelled, "cancelled by request", nil)
	if err != nil && !errors.Is(err, ErrTerminal) {
		return protocol.Task{}, err
	}
	return t.Snapshot(0), nil
}
