package hook

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/flemzord/agentgate/internal/tool"
)

// Runner executes a bookkeeping command on behalf of the checkpoint hook.
// The production implementation shells out to git; tests inject a recorder.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// CheckpointHook observes completed write-class tool invocations and, when
// the touched path lies under the tracked root, records a version-control
// checkpoint. Side effects happen only after execution and only on success;
// a failing checkpoint never fails the tool call.
type CheckpointHook struct {
	Base

	root   string
	runner Runner
	logger *slog.Logger
}

// NewCheckpointHook creates a checkpoint hook tracking the given root
// directory.
func NewCheckpointHook(root string, runner Runner, logger *slog.Logger) *CheckpointHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointHook{root: filepath.Clean(root), runner: runner, logger: logger}
}

// Compile-time interface check.
var _ Hook = (*CheckpointHook)(nil)

// AfterExecution commits the touched file when a write-class tool succeeded
// inside the tracked root.
func (c *CheckpointHook) AfterExecution(ctx context.Context, hctx *Context) error {
	if hctx.Tool == nil || !tool.Writes(hctx.Tool) {
		return nil
	}
	if hctx.Err != nil || hctx.Output == nil || hctx.Output.IsError {
		return nil
	}

	path := hctx.Output.Metadata["path"]
	if path == "" || !c.tracked(path) {
		return nil
	}

	msg := fmt.Sprintf("checkpoint: %s via %s", filepath.Base(path), hctx.ToolName)
	if err := c.runner.Run(ctx, c.root, "add", "--", path); err != nil {
		return fmt.Errorf("checkpoint add %s: %w", path, err)
	}
	if err := c.runner.Run(ctx, c.root, "commit", "-m", msg); err != nil {
		return fmt.Errorf("checkpoint commit %s: %w", path, err)
	}

	c.logger.Debug("checkpoint recorded", "path", path, "tool", hctx.ToolName)
	return nil
}

// tracked reports whether path lies under the hook's root directory.
func (c *CheckpointHook) tracked(path string) bool {
	rel, err := filepath.Rel(c.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
