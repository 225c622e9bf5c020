package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// sseMaxLineSize is the maximum SSE line size (1 MiB). Task snapshots with
// long histories can exceed the default 64 KiB bufio.Scanner limit.
const sseMaxLineSize = 1024 * 1024

// StreamItem is one streamed event or a stream-level error. After an item
// with Err set, or after a terminal event, no further items are delivered.
type StreamItem struct {
	Event protocol.StreamEvent
	Err   error
}

// SendStreamingMessage submits a message and streams the task's events.
// The returned channel preserves server-send order and closes after the
// terminal event, a stream error, or server EOF, whichever comes first.
// Cancelling ctx tears down the connection and closes the channel.
func (c *Client) SendStreamingMessage(ctx context.Context, msg protocol.Message, contextID string) (<-chan StreamItem, error) {
	body, err := c.encodeEnvelope(protocol.MethodSendStreamingMessage, protocol.SendMessageParams{
		Message:   msg,
		ContextID: contextID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	ch := make(chan StreamItem, 16)
	go func() {
		defer close(ch)
		defer func() { _ = resp.Body.Close() }()
		c.readStream(resp.Body, ch)
	}()
	return ch, nil
}

// readStream decodes `data: `-prefixed lines into stream events until the
// terminal event or EOF. Each line carries one complete JSON event.
func (c *Client) readStream(r io.Reader, ch chan<- StreamItem) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, sseMaxLineSize), sseMaxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line: event separator. Leading ":" is an SSE comment.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var event protocol.StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			ch <- StreamItem{Err: fmt.Errorf("%w: %w", ErrInvalidResponse, err)}
			return
		}

		ch <- StreamItem{Event: event}
		if event.Terminal() {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		ch <- StreamItem{Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)}
	}
}
