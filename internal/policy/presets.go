package policy

import (
	"time"

	"github.com/flemzord/agentgate/internal/tool"
)

// Default returns the standard profile: the two high-impact tools always
// require approval, only low-risk invocations auto-approve, and unanswered
// approvals deny after five minutes.
func Default() *Policy {
	return MustNew(Config{
		AlwaysApprove:      []string{"Bash", "Write"},
		MaxAutoApproveRisk: tool.RiskLow,
		DefaultTimeout:     300 * time.Second,
	})
}

// Strict returns the locked-down profile: no blanket exemptions in either
// direction, and everything above low risk needs approval.
func Strict() *Policy {
	return MustNew(Config{
		MaxAutoApproveRisk: tool.RiskLow,
		DefaultTimeout:     300 * time.Second,
	})
}

// Permissive returns the relaxed profile: a fixed set of tools is exempt
// from approval, the ceiling rises to high, and approvals never auto-deny.
func Permissive() *Policy {
	return MustNew(Config{
		NeverApprove:       []string{"Read", "Glob", "Grep", "WebFetch"},
		MaxAutoApproveRisk: tool.RiskHigh,
	})
}
