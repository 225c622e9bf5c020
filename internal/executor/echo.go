package executor

import (
	"context"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// EchoProvider is a development backend that repeats the latest user text.
// It never requests tool calls, so a task driven by it completes in one
// turn. Useful for exercising the gateway without a real model behind it.
type EchoProvider struct{}

// Stream emits a single text chunk and closes.
func (EchoProvider) Stream(_ context.Context, req Request) (<-chan Chunk, error) {
	text := "echo:"
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == protocol.RoleUser {
			if t := req.Messages[i].TextContent(); t != "" {
				text = "echo: " + t
			}
			break
		}
	}

	ch := make(chan Chunk, 1)
	ch <- Chunk{Text: text}
	close(ch)
	return ch, nil
}

var _ Provider = EchoProvider{}
