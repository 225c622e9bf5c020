// Package tool defines the tool contract, the registry, and input schema
// validation for agentgate. Tools are the primary security boundary: every
// action an executor takes goes through a registered tool, and every
// invocation is gated by the approval policy before it runs.
package tool

import (
	"context"
	"encoding/json"
)

// Scope declares what kind of access a tool requires.
type Scope string

// Scope values for tool access requirements.
const (
	ScopeReadOnly  Scope = "read_only"
	ScopeReadWrite Scope = "read_write"
	ScopeExec      Scope = "exec"
	ScopeNetwork   Scope = "network"
)

// RiskLevel is the ordinal risk classification attached to a tool,
// used by the policy engine to gate auto-approval.
type RiskLevel string

// RiskLevel values, lowest to highest.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskIndex orders risk levels for comparison. Unknown levels map to -1 so
// they never auto-approve through the risk fallback.
var riskIndex = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Index returns the ordinal position of the level, or -1 if unknown.
// Comparison between levels is always by index, never by name.
func (r RiskLevel) Index() int {
	idx, ok := riskIndex[r]
	if !ok {
		return -1
	}
	return idx
}

// Valid reports whether the level is one of the four known values.
func (r RiskLevel) Valid() bool {
	_, ok := riskIndex[r]
	return ok
}

// Tool is the interface every agentgate tool implements.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// InputSchema returns the declared parameter schema.
	InputSchema() Schema

	// Scopes returns the access scopes this tool requires.
	Scopes() []Scope

	// Risk returns the risk level attached to this tool.
	Risk() RiskLevel

	// Execute runs the tool with the given JSON-encoded arguments.
	Execute(ctx context.Context, args json.RawMessage) (Output, error)
}

// Output is the result of one tool execution. It is created per invocation
// and discarded once the hook pipeline completes.
type Output struct {
	// Content is the result text from the tool.
	Content string

	// IsError indicates whether the output represents an error condition.
	IsError bool

	// Metadata carries optional structured details about the invocation,
	// e.g. the filesystem path a write-class tool touched.
	Metadata map[string]string
}

// Writes reports whether the tool declares the read_write scope.
// The checkpoint hook uses this to pick out mutating invocations.
func Writes(t Tool) bool {
	for _, s := range t.Scopes() {
		if s == ScopeReadWrite {
			return true
		}
	}
	return false
}
