package client

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// ErrPollExhausted is returned when the poll loop reaches its attempt bound
// without the task settling.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// PollConfig bounds a WaitForSettled loop.
type PollConfig struct {
	// MaxAttempts is the number of GetTask polls before giving up.
	MaxAttempts int

	// Interval is the fixed delay between polls.
	Interval time.Duration
}

// DefaultPollConfig polls once a second for up to two minutes.
func DefaultPollConfig() PollConfig {
	return PollConfig{MaxAttempts: 120, Interval: time.Second}
}

// WaitForSettled polls GetTask until the task reaches a terminal state or
// blocks in input-required, whichever comes first. It is the fallback for
// consumers that cannot hold a stream open. The loop stops immediately on
// a settled state, on ctx cancellation, or after MaxAttempts polls.
func (c *Client) WaitForSettled(ctx context.Context, id string, cfg PollConfig) (protocol.Task, error) {
	defaults := DefaultPollConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		task, err := c.GetTask(ctx, id, 0)
		if err != nil {
			return protocol.Task{}, err
		}
		if task.Status.State.IsTerminal() || task.Status.State == protocol.TaskStateInputRequired {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return protocol.Task{}, ctx.Err()
		case <-ticker.C:
		}
	}
	return protocol.Task{}, ErrPollExhausted
}
