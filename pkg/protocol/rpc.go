package protocol

import "encoding/json"

// JSONRPCVersion is the fixed version string carried by every envelope.
const JSONRPCVersion = "2.0"

// RPC method names accepted at the /rpc endpoint.
const (
	MethodSendMessage          = "SendMessage"
	MethodSendStreamingMessage = "SendStreamingMessage"
	MethodGetTask              = "GetTask"
	MethodListTasks            = "ListTasks"
	MethodCancelTask           = "CancelTask"
)

// RPC error codes. The -3270x codes are the ones JSON-RPC 2.0 reserves;
// the rest are application codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeTaskNotFound   = -32001
)

// Request is the JSON-RPC request envelope. ID is a monotonic per-client
// counter used only for request/response correlation.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON-RPC response envelope. Exactly one of Result and
// Error is populated; a response with neither is a protocol-level failure.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error object inside a JSON-RPC response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendMessageParams are the params for SendMessage and SendStreamingMessage.
// ContextID groups the task into an existing conversation; empty means a new
// context. Blocking asks the server to reply only once the task settles
// (terminal or input-required); it is ignored for the streaming method.
type SendMessageParams struct {
	Message   Message `json:"message"`
	ContextID string  `json:"context_id,omitempty"`
	Blocking  bool    `json:"blocking,omitempty"`
}

// GetTaskParams are the params for GetTask. HistoryLength limits how many
// trailing history messages are returned; 0 means all.
type GetTaskParams struct {
	ID            string `json:"id"`
	HistoryLength int    `json:"history_length,omitempty"`
}

// ListTasksParams are the params for ListTasks.
type ListTasksParams struct {
	ContextID string `json:"context_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// CancelTaskParams are the params for CancelTask.
type CancelTaskParams struct {
	ID string `json:"id"`
}
