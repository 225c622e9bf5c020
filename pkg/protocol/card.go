package protocol

// AgentCardPath is the well-known path serving the agent capability card.
const AgentCardPath = "/.well-known/agent-card.json"

// AgentCapabilities describes which optional protocol features the agent
// supports.
type AgentCapabilities struct {
	Streaming bool `json:"streaming"`
	Approvals bool `json:"approvals"`
}

// AgentCard is the capability descriptor served at AgentCardPath.
// Name and Version are mandatory; everything else is informational.
type AgentCard struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description,omitempty"`
	Capabilities AgentCapabilities `json:"capabilities"`
	ToolNames    []string          `json:"tool_names,omitempty"`
}
