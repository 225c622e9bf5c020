// Package client implements the agentgate protocol client: JSON-RPC calls
// over HTTP POST, SSE streaming for SendStreamingMessage, and the REST-ish
// side surfaces (agent card, health, approvals).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// rpcPath is the fixed JSON-RPC endpoint path.
const rpcPath = "/rpc"

// approvalsPath is the pending-approvals endpoint path.
const approvalsPath = "/approvals"

// Client talks to one agentgate server. The request id counter is per
// client instance and used only for request/response correlation.
//
// Separate clients for unary and streaming requests. http.Client.Timeout
// is a hard deadline for the entire response body, which would kill
// long-lived SSE streams and blocking calls waiting out an approval. The
// streaming client uses no timeout; cancellation is handled via context.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
	nextID       atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client for unary calls.
// Streaming keeps its own untimed client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		streamClient: &http.Client{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one unary JSON-RPC round trip and returns the raw result.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := c.encodeEnvelope(method, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var envelope protocol.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if envelope.Error != nil {
		return nil, &RPCError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if len(envelope.Result) == 0 {
		return nil, ErrNoResult
	}
	return envelope.Result, nil
}

// encodeEnvelope builds the JSON-RPC request body with the next id.
func (c *Client) encodeEnvelope(method string, params any) ([]byte, error) {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		raw = encoded
	}

	return json.Marshal(protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  raw,
	})
}

// SendMessage submits a message and returns the resulting task. With
// blocking set, the server replies only once the task settles (terminal or
// input-required); otherwise it replies with the submitted snapshot.
func (c *Client) SendMessage(ctx context.Context, msg protocol.Message, contextID string, blocking bool) (protocol.Task, error) {
	result, err := c.call(ctx, protocol.MethodSendMessage, protocol.SendMessageParams{
		Message:   msg,
		ContextID: contextID,
		Blocking:  blocking,
	})
	if err != nil {
		return protocol.Task{}, err
	}
	return decodeTask(result)
}

// GetTask fetches the current snapshot of a task. historyLength limits the
// returned history to the trailing N messages; zero means all.
func (c *Client) GetTask(ctx context.Context, id string, historyLength int) (protocol.Task, error) {
	result, err := c.call(ctx, protocol.MethodGetTask, protocol.GetTaskParams{
		ID:            id,
		HistoryLength: historyLength,
	})
	if err != nil {
		return protocol.Task{}, err
	}
	return decodeTask(result)
}

// ListTasks lists stored tasks newest-first, optionally filtered by
// context id.
func (c *Client) ListTasks(ctx context.Context, contextID string, limit, offset int) ([]protocol.Task, error) {
	result, err := c.call(ctx, protocol.MethodListTasks, protocol.ListTasksParams{
		ContextID: contextID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	var tasks []protocol.Task
	if err := json.Unmarshal(result, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return tasks, nil
}

// CancelTask requests cancellation and returns the task snapshot.
// Cancelling an already-terminal task returns the existing terminal
// snapshot, not an error.
func (c *Client) CancelTask(ctx context.Context, id string) (protocol.Task, error) {
	result, err := c.call(ctx, protocol.MethodCancelTask, protocol.CancelTaskParams{ID: id})
	if err != nil {
		return protocol.Task{}, err
	}
	return decodeTask(result)
}

// FetchAgentCard fetches the capability descriptor from the well-known path.
func (c *Client) FetchAgentCard(ctx context.Context) (protocol.AgentCard, error) {
	var card protocol.AgentCard
	if err := c.getJSON(ctx, protocol.AgentCardPath, &card); err != nil {
		return protocol.AgentCard{}, err
	}
	if card.Name == "" || card.Version == "" {
		return protocol.AgentCard{}, fmt.Errorf("%w: agent card missing name or version", ErrInvalidResponse)
	}
	return card, nil
}

// HealthCheck reports whether the server answers its health endpoint with
// any 2xx status.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// FetchPendingApprovals lists the approvals currently blocking tasks.
func (c *Client) FetchPendingApprovals(ctx context.Context) ([]protocol.PendingApproval, error) {
	var pending []protocol.PendingApproval
	if err := c.getJSON(ctx, approvalsPath, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// RespondToApproval resolves one pending approval.
func (c *Client) RespondToApproval(ctx context.Context, id string, approved bool, reason string) error {
	action := protocol.ApprovalActionDenied
	if approved {
		action = protocol.ApprovalActionApproved
	}
	body, err := json.Marshal(protocol.ApprovalDecision{Action: action, Reason: reason})
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+approvalsPath+"/"+id, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return &RPCError{Code: protocol.CodeTaskNotFound, Message: "approval not found"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// getJSON fetches a JSON document from a GET endpoint.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

func decodeTask(raw json.RawMessage) (protocol.Task, error) {
	var task protocol.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return protocol.Task{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return task, nil
}
