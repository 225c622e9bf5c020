// Package approver is an interactive terminal loop that polls a server for
// pending approvals and prompts the operator to approve or deny each one.
package approver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/flemzord/agentgate/internal/client"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// defaultInterval is the delay between polls when no approvals are pending.
const defaultInterval = 2 * time.Second

// promptFunc asks the operator for one decision. Split out so tests can
// drive the loop without a terminal.
type promptFunc func(ctx context.Context, p protocol.PendingApproval) (approved bool, reason string, err error)

// Approver polls for pending approvals and resolves them interactively.
type Approver struct {
	client   *client.Client
	logger   *slog.Logger
	interval time.Duration
	prompt   promptFunc
}

// New creates an Approver polling at the given interval; zero means the
// default.
func New(c *client.Client, logger *slog.Logger, interval time.Duration) *Approver {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Approver{
		client:   c,
		logger:   logger,
		interval: interval,
		prompt:   huhPrompt,
	}
}

// Run polls until ctx is cancelled. Each pending approval is prompted for
// in oldest-first order; a resolution race lost to a timeout is logged and
// skipped.
func (a *Approver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		pending, err := a.client.FetchPendingApprovals(ctx)
		if err != nil {
			return fmt.Errorf("approver: fetching pending approvals: %w", err)
		}

		for _, p := range pending {
			if err := a.resolveOne(ctx, p); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Approver) resolveOne(ctx context.Context, p protocol.PendingApproval) error {
	approved, reason, err := a.prompt(ctx, p)
	if err != nil {
		return fmt.Errorf("approver: prompting for %s: %w", p.ID, err)
	}

	err = a.client.RespondToApproval(ctx, p.ID, approved, reason)
	var rpcErr *client.RPCError
	if errors.As(err, &rpcErr) {
		// The approval timed out or was resolved elsewhere while the
		// operator was deciding.
		a.logger.Warn("approval already resolved", "id", p.ID, "tool", p.ToolName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("approver: responding to %s: %w", p.ID, err)
	}

	a.logger.Info("approval resolved",
		"id", p.ID,
		"tool", p.ToolName,
		"approved", approved,
	)
	return nil
}

// huhPrompt renders the interactive confirm form for one approval.
func huhPrompt(ctx context.Context, p protocol.PendingApproval) (bool, string, error) {
	var approved bool
	var reason string

	var desc strings.Builder
	fmt.Fprintf(&desc, "Task: %s\nRisk: %s", p.TaskID, p.Risk)
	if p.Description != "" {
		fmt.Fprintf(&desc, "\n\n%s", p.Description)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Allow %s to run?", p.ToolName)).
				Description(desc.String()).
				Affirmative("Approve").
				Negative("Deny").
				Value(&approved),
			huh.NewInput().
				Title("Reason (optional)").
				Value(&reason),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return false, "", err
	}
	return approved, reason, nil
}
