package hook

import (
	"context"
	"fmt"
	"os/exec"
)

// GitRunner runs git commands in a working directory. It is the production
// Runner for CheckpointHook.
type GitRunner struct{}

// Run executes `git <args>` in dir, returning combined output on failure.
func (GitRunner) Run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %v: %w: %s", args, err, out)
	}
	return nil
}
