package approval

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// Manager is the process-wide registry of pending approvals. The executor
// registers entries while a task is blocked; the approvals endpoint lists
// and resolves them.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*Pending
	now     func() time.Time
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		pending: make(map[string]*Pending),
		now:     time.Now,
	}
}

// Create registers a new pending approval and returns it. The returned
// Pending is what the executor awaits on.
func (m *Manager) Create(taskID, toolName, description, risk string) *Pending {
	info := protocol.PendingApproval{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		ToolName:    toolName,
		Description: description,
		Risk:        risk,
		RequestedAt: m.now(),
	}
	p := newPending(info)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[info.ID] = p
	return p
}

// Resolve delivers a human decision to a pending approval and removes it
// from the pending set. Resolving an unknown id (already resolved, timed
// out, or never created) returns ErrNotFound.
func (m *Manager) Resolve(id string, approved bool, reason string) error {
	m.mu.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	// A lost race against the timeout deny is not an error for the caller;
	// the approval is gone either way.
	p.Resolve(Response{Approved: approved, Reason: reason})
	return nil
}

// Remove cleans up a pending entry, e.g. after a timeout or task cancel.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

// Get returns the pending approval with the given id.
func (m *Manager) Get(id string) (*Pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	return p, ok
}

// List returns the wire representation of all pending approvals, oldest
// first.
func (m *Manager) List() []protocol.PendingApproval {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]protocol.PendingApproval, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p.Info())
	}
	slices.SortFunc(out, func(a, b protocol.PendingApproval) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
