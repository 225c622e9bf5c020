// Package trust implements count-based trust memoization for tools: after
// enough recorded human approvals a tool is reported as trusted and the
// executor may skip the approval prompt. The tracker knows nothing about
// policy, and policy knows nothing about history; the executor consults both.
package trust

import "sync"

// Tracker counts human approvals per tool name. Counters live for the
// running process only; they are never persisted across restarts.
type Tracker struct {
	mu        sync.Mutex
	counts    map[string]int
	threshold int
}

// NewTracker creates a Tracker that reports a tool as trusted once it has
// accumulated threshold approvals. A threshold of zero disables trust
// promotion entirely.
func NewTracker(threshold int) *Tracker {
	return &Tracker{
		counts:    make(map[string]int),
		threshold: threshold,
	}
}

// RecordApproval increments the approval counter for the tool.
// Counters start at zero and grow without bound; there is no decay.
func (t *Tracker) RecordApproval(toolName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[toolName]++
}

// IsTrusted reports whether the tool has reached the configured threshold.
// Always false when no threshold is configured.
func (t *Tracker) IsTrusted(toolName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threshold > 0 && t.counts[toolName] >= t.threshold
}

// Count returns the current approval count for the tool.
func (t *Tracker) Count(toolName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[toolName]
}

// Reset clears the counter for one tool.
func (t *Tracker) Reset(toolName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, toolName)
}

// ResetAll clears every counter.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]int)
}
