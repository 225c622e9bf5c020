// Package policy implements the approval policy engine: a pure, deterministic
// decision over (tool name, risk level, action description) that tells the
// executor whether a tool invocation may proceed automatically or must block
// for human approval. It has no network or registry dependency.
package policy

import (
	"fmt"
	"regexp"
	"time"

	"github.com/flemzord/agentgate/internal/tool"
)

// Config is the raw, serializable form of a policy, typically decoded from
// YAML. Compile it into a Policy before use.
type Config struct {
	// AlwaysApprove lists tool names that always require approval.
	AlwaysApprove []string `yaml:"always_approve"`

	// NeverApprove lists tool names that never require approval.
	// It outranks every other rule, including AlwaysApprove.
	NeverApprove []string `yaml:"never_approve"`

	// AutoApprovePatterns are regular expressions matched against the action
	// description; a match auto-approves.
	AutoApprovePatterns []string `yaml:"auto_approve_patterns"`

	// AlwaysRequirePatterns are regular expressions matched against the
	// action description; a match requires approval. Checked before
	// AutoApprovePatterns.
	AlwaysRequirePatterns []string `yaml:"always_require_patterns"`

	// MaxAutoApproveRisk is the highest risk level that may auto-approve
	// when no list or pattern matched.
	MaxAutoApproveRisk tool.RiskLevel `yaml:"max_auto_approve_risk"`

	// TrustAfterCount promotes a tool to auto-approval after this many
	// recorded human approvals. Zero disables trust promotion.
	TrustAfterCount int `yaml:"trust_after_count"`

	// DefaultTimeout auto-denies an unanswered approval after this duration.
	// Zero means approvals never auto-deny.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

// Policy is a compiled, immutable approval policy. It is safe for concurrent
// reads without synchronization.
type Policy struct {
	alwaysApprove         map[string]struct{}
	neverApprove          map[string]struct{}
	autoApprovePatterns   []*regexp.Regexp
	alwaysRequirePatterns []*regexp.Regexp
	maxAutoApproveRisk    tool.RiskLevel
	trustAfterCount       int
	defaultTimeout        time.Duration
}

// New compiles a Config into a Policy. Pattern compilation failures and an
// unknown risk ceiling are reported up front so decisions never fail later.
func New(cfg Config) (*Policy, error) {
	ceiling := cfg.MaxAutoApproveRisk
	if ceiling == "" {
		ceiling = tool.RiskLow
	}
	if !ceiling.Valid() {
		return nil, fmt.Errorf("policy: unknown risk ceiling %q", ceiling)
	}

	p := &Policy{
		alwaysApprove:      toSet(cfg.AlwaysApprove),
		neverApprove:       toSet(cfg.NeverApprove),
		maxAutoApproveRisk: ceiling,
		trustAfterCount:    cfg.TrustAfterCount,
		defaultTimeout:     cfg.DefaultTimeout,
	}

	var err error
	if p.alwaysRequirePatterns, err = compile(cfg.AlwaysRequirePatterns); err != nil {
		return nil, fmt.Errorf("policy: always_require_patterns: %w", err)
	}
	if p.autoApprovePatterns, err = compile(cfg.AutoApprovePatterns); err != nil {
		return nil, fmt.Errorf("policy: auto_approve_patterns: %w", err)
	}

	return p, nil
}

// MustNew is New for static presets; it panics on a malformed config.
func MustNew(cfg Config) *Policy {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// RequiresApproval decides whether an invocation of the named tool needs
// human approval. Rules are evaluated in fixed order, first match wins:
//
//  1. tool in NeverApprove            -> false
//  2. tool in AlwaysApprove           -> true
//  3. description matches an AlwaysRequirePattern -> true
//  4. description matches an AutoApprovePattern   -> false
//  5. fallback: risk strictly above the ceiling   -> true
//
// Pattern matching is a regexp search over the description, not a full
// match, and runs only when a description is provided.
func (p *Policy) RequiresApproval(toolName string, risk tool.RiskLevel, description string) bool {
	if _, ok := p.neverApprove[toolName]; ok {
		return false
	}
	if _, ok := p.alwaysApprove[toolName]; ok {
		return true
	}

	if description != "" {
		for _, re := range p.alwaysRequirePatterns {
			if re.MatchString(description) {
				return true
			}
		}
		for _, re := range p.autoApprovePatterns {
			if re.MatchString(description) {
				return false
			}
		}
	}

	return risk.Index() > p.maxAutoApproveRisk.Index()
}

// TrustAfterCount returns the configured trust promotion threshold,
// zero when disabled.
func (p *Policy) TrustAfterCount() int { return p.trustAfterCount }

// DefaultTimeout returns the auto-deny timeout for unanswered approvals,
// zero when approvals never auto-deny.
func (p *Policy) DefaultTimeout() time.Duration { return p.defaultTimeout }

// MaxAutoApproveRisk returns the risk ceiling used by the fallback rule.
func (p *Policy) MaxAutoApproveRisk() tool.RiskLevel { return p.maxAutoApproveRisk }

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
