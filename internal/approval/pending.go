// Package approval tracks pending tool approvals: requests created when the
// policy engine blocks an invocation, resolved by a human decision or by a
// timeout auto-deny, whichever wins the race. The loser's effect is
// discarded, never applied after the fact.
package approval

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flemzord/agentgate/pkg/protocol"
)

var (
	// ErrNotFound is returned when resolving an unknown approval id.
	ErrNotFound = errors.New("approval not found")

	// ErrTimeout is returned by Await when the default timeout fired first
	// and the approval was denied automatically.
	ErrTimeout = errors.New("approval request timed out")
)

// Response is the outcome of one approval request.
type Response struct {
	Approved bool
	Reason   string
}

// Pending is a single unresolved approval. Resolution is single-winner:
// the first Resolve call (human decision or timeout deny) wins and every
// later attempt is a no-op.
type Pending struct {
	info protocol.PendingApproval

	once sync.Once
	ch   chan Response
}

func newPending(info protocol.PendingApproval) *Pending {
	return &Pending{
		info: info,
		ch:   make(chan Response, 1),
	}
}

// Info returns the wire representation of this approval.
func (p *Pending) Info() protocol.PendingApproval { return p.info }

// Resolve delivers a response. It reports whether this call won the
// resolution race; a losing call has no effect.
func (p *Pending) Resolve(resp Response) bool {
	won := false
	p.once.Do(func() {
		p.ch <- resp
		won = true
	})
	return won
}

// Await blocks until the approval is resolved, the timeout auto-denies it,
// or ctx is cancelled. A timeout of zero disables the auto-deny entirely.
func (p *Pending) Await(ctx context.Context, timeout time.Duration) (Response, error) {
	var fire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		fire = timer.C
	}

	select {
	case resp := <-p.ch:
		return resp, nil

	case <-fire:
		deny := Response{Approved: false, Reason: "approval timed out"}
		if p.Resolve(deny) {
			return deny, ErrTimeout
		}
		// A concurrent human response won the race; honour it.
		return <-p.ch, nil

	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
