// Package executor drives a task through its lifecycle: it streams
// completions from a provider, gates every requested tool call through the
// approval policy and trust tracker, runs approved calls through the hook
// pipeline, and feeds results back into the conversation until the provider
// stops calling tools.
package executor

import (
	"context"
	"encoding/json"

	"github.com/flemzord/agentgate/internal/tool"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// ToolCall is one tool invocation requested by the provider.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// Chunk is one increment of a provider stream. Text and ToolCalls may both
// be empty on keepalive chunks; Err terminates the stream.
type Chunk struct {
	Text      string
	ToolCalls []ToolCall
	Err       error
}

// Request carries the conversation so far and the tools the provider may
// call.
type Request struct {
	Messages []protocol.Message
	Tools    []tool.Definition
}

// Provider abstracts the agent backend. Implementations close the returned
// channel when the turn is complete; a Chunk with Err set is the last chunk.
type Provider interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}
