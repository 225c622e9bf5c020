// Package store persists task snapshots. The task manager writes a snapshot
// through on every transition, so polling and listing survive independently
// of the in-memory task records. Two implementations are provided: an
// in-memory store for tests and small deployments, and a SQLite store.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// ErrNotFound is returned when a task id is unknown to the store.
var ErrNotFound = errors.New("task not found")

// Store is the task persistence interface.
type Store interface {
	// SaveTask inserts or replaces the snapshot for the task's id.
	SaveTask(ctx context.Context, task protocol.Task) error

	// GetTask returns the stored snapshot, or ErrNotFound.
	GetTask(ctx context.Context, id string) (protocol.Task, error)

	// ListTasks returns snapshots newest-first, optionally filtered by
	// context id. Limit of zero means no limit.
	ListTasks(ctx context.Context, contextID string, limit, offset int) ([]protocol.Task, error)

	// PruneTerminal deletes terminal tasks last updated before the cutoff
	// and returns how many were removed.
	PruneTerminal(ctx context.Context, cutoff time.Time) (int, error)
}

// memoryEntry pairs a snapshot with its bookkeeping timestamps.
type memoryEntry struct {
	task      protocol.Task
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is an in-memory Store guarded by a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	seq     map[string]int
	nextSeq int
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		seq:     make(map[string]int),
		now:     time.Now,
	}
}

// SaveTask implements Store.
func (s *MemoryStore) SaveTask(_ context.Context, task protocol.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[task.ID]; ok {
		e.task = cloneTask(task)
		e.updatedAt = now
		return nil
	}
	s.entries[task.ID] = &memoryEntry{task: cloneTask(task), createdAt: now, updatedAt: now}
	s.seq[task.ID] = s.nextSeq
	s.nextSeq++
	return nil
}

// GetTask implements Store.
func (s *MemoryStore) GetTask(_ context.Context, id string) (protocol.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return protocol.Task{}, ErrNotFound
	}
	return cloneTask(e.task), nil
}

// ListTasks implements Store.
func (s *MemoryStore) ListTasks(_ context.Context, contextID string, limit, offset int) ([]protocol.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if contextID != "" && e.task.ContextID != contextID {
			continue
		}
		matched = append(matched, e)
	}
	// Newest first by insertion order.
	slices.SortFunc(matched, func(a, b *memoryEntry) int {
		return s.seq[b.task.ID] - s.seq[a.task.ID]
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]protocol.Task, len(matched))
	for i, e := range matched {
		out[i] = cloneTask(e.task)
	}
	return out, nil
}

// PruneTerminal implements Store.
func (s *MemoryStore) PruneTerminal(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.task.Status.State.IsTerminal() && e.updatedAt.Before(cutoff) {
			delete(s.entries, id)
			delete(s.seq, id)
			removed++
		}
	}
	return removed, nil
}

// cloneTask deep-copies the snapshot so callers can't mutate stored history.
func cloneTask(t protocol.Task) protocol.Task {
	cp := t
	cp.History = slices.Clone(t.History)
	cp.Status.PendingApprovalIDs = slices.Clone(t.Status.PendingApprovalIDs)
	return cp
}

// Interface guard.
var _ Store = (*MemoryStore)(nil)
