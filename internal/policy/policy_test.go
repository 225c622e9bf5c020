package policy

import (
	"testing"
	"time"

	"github.com/flemzord/agentgate/internal/tool"
)

func TestRequiresApproval_NeverListWins(t *testing.T) {
	t.Parallel()

	p := MustNew(Config{
		NeverApprove:          []string{"Read"},
		AlwaysApprove:         []string{"Read"},
		AlwaysRequirePatterns: []string{"delete"},
		MaxAutoApproveRisk:    tool.RiskLow,
	})

	// Never-list outranks the always-list, matching patterns, and risk.
	if p.RequiresApproval("Read", tool.RiskCritical, "delete everything") {
		t.Error("never-listed tool must auto-approve regardless of risk and patterns")
	}
}

func TestRequiresApproval_AlwaysList(t *testing.T) {
	t.Parallel()

	p := MustNew(Config{
		AlwaysApprove:       []string{"Bash"},
		AutoApprovePatterns: []string{"^safe:"},
		MaxAutoApproveRisk:  tool.RiskCritical,
	})

	// Always-list outranks auto-approve patterns and the risk ceiling.
	if !p.RequiresApproval("Bash", tool.RiskLow, "safe: echo hi") {
		t.Error("always-listed tool must require approval regardless of risk")
	}
}

func TestRequiresApproval_PatternPrecedence(t *testing.T) {
	t.Parallel()

	p := MustNew(Config{
		AlwaysRequirePatterns: []string{"rm -rf"},
		AutoApprovePatterns:   []string{"rm"},
		MaxAutoApproveRisk:    tool.RiskHigh,
	})

	// Require-patterns are checked before auto-approve patterns.
	if !p.RequiresApproval("Shell", tool.RiskLow, "run rm -rf /tmp/x") {
		t.Error("always-require pattern must win over auto-approve pattern")
	}
	if p.RequiresApproval("Shell", tool.RiskLow, "run rm file.txt") {
		t.Error("auto-approve pattern should apply when require-pattern misses")
	}
}

func TestRequiresApproval_PatternBeforeRiskFallback(t *testing.T) {
	t.Parallel()

	// Scenario B: medium risk over a low ceiling still auto-approves when an
	// auto-approve pattern matches the description.
	p := MustNew(Config{
		AutoApprovePatterns: []string{"^safe:"},
		MaxAutoApproveRisk:  tool.RiskLow,
	})

	if p.RequiresApproval("List", tool.RiskMedium, "safe: list files") {
		t.Error("pattern check must precede the risk fallback")
	}
}

func TestRequiresApproval_RiskFallback(t *testing.T) {
	t.Parallel()

	p := MustNew(Config{MaxAutoApproveRisk: tool.RiskMedium})

	cases := []struct {
		risk tool.RiskLevel
		want bool
	}{
		{tool.RiskLow, false},
		{tool.RiskMedium, false}, // boundary: equal to ceiling auto-approves
		{tool.RiskHigh, true},
		{tool.RiskCritical, true},
	}
	for _, tc := range cases {
		if got := p.RequiresApproval("anything", tc.risk, ""); got != tc.want {
			t.Errorf("risk %s: got %v, want %v", tc.risk, got, tc.want)
		}
	}
}

func TestRequiresApproval_NoDescriptionSkipsPatterns(t *testing.T) {
	t.Parallel()

	p := MustNew(Config{
		AutoApprovePatterns: []string{""},
		MaxAutoApproveRisk:  tool.RiskLow,
	})

	// An empty pattern matches everything, but pattern checks only run when
	// a description is present.
	if !p.RequiresApproval("x", tool.RiskHigh, "") {
		t.Error("without description the risk fallback must decide")
	}
}

func TestNew_RejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{AutoApprovePatterns: []string{"("}}); err == nil {
		t.Error("expected pattern compile error")
	}
	if _, err := New(Config{MaxAutoApproveRisk: tool.RiskLevel("extreme")}); err == nil {
		t.Error("expected risk ceiling error")
	}
}

func TestDefaultPreset(t *testing.T) {
	t.Parallel()

	p := Default()

	// Scenario A: Read at low risk auto-approves; Bash always blocks.
	if p.RequiresApproval("Read", tool.RiskLow, "") {
		t.Error("Read/low must auto-approve under the default preset")
	}
	if !p.RequiresApproval("Bash", tool.RiskLow, "") {
		t.Error("Bash must require approval regardless of risk")
	}
	if !p.RequiresApproval("Write", tool.RiskLow, "") {
		t.Error("Write must require approval regardless of risk")
	}
	if p.DefaultTimeout() != 300*time.Second {
		t.Errorf("timeout = %v, want 300s", p.DefaultTimeout())
	}
}

func TestStrictPreset(t *testing.T) {
	t.Parallel()

	p := Strict()

	if p.RequiresApproval("anything", tool.RiskLow, "") {
		t.Error("low risk must auto-approve even under strict")
	}
	if !p.RequiresApproval("anything", tool.RiskMedium, "") {
		t.Error("medium risk must require approval under strict")
	}
}

func TestPermissivePreset(t *testing.T) {
	t.Parallel()

	p := Permissive()

	if p.RequiresApproval("Read", tool.RiskCritical, "") {
		t.Error("exempt tool must never require approval")
	}
	if p.RequiresApproval("other", tool.RiskHigh, "") {
		t.Error("high risk must auto-approve under permissive ceiling")
	}
	if !p.RequiresApproval("other", tool.RiskCritical, "") {
		t.Error("critical risk must still require approval")
	}
	if p.DefaultTimeout() != 0 {
		t.Errorf("permissive approvals must never auto-deny, timeout = %v", p.DefaultTimeout())
	}
}
