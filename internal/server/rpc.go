package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/agentgate/internal/task"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// handleRPC decodes the JSON-RPC envelope and dispatches by method.
// SendStreamingMessage switches the response to an SSE stream; everything
// else answers with a JSON envelope.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, 0, protocol.CodeParseError, "malformed request: "+err.Error())
		return
	}
	if req.JSONRPC != protocol.JSONRPCVersion {
		writeRPCError(w, req.ID, protocol.CodeInvalidRequest, "unsupported jsonrpc version")
		return
	}

	s.deps.Metrics.RPCRequest(req.Method)

	switch req.Method {
	case protocol.MethodSendMessage:
		s.handleSendMessage(w, r, req)
	case protocol.MethodSendStreamingMessage:
		s.handleStreamingMessage(w, r, req)
	case protocol.MethodGetTask:
		s.handleGetTask(w, r, req)
	case protocol.MethodListTasks:
		s.handleListTasks(w, r, req)
	case protocol.MethodCancelTask:
		s.handleCancelTask(w, r, req)
	default:
		writeRPCError(w, req.ID, protocol.CodeMethodNotFound, "unknown method "+req.Method)
	}
}

// startTask registers the run context and launches the executor for one
// submitted message.
func (s *Server) startTask(tk *task.Task, msg protocol.Message) {
	runCtx, cancel := context.WithCancel(context.Background())
	s.deps.Tasks.RegisterCancel(tk.ID(), cancel)
	s.deps.Metrics.TaskStarted()

	go func() {
		defer cancel()
		s.deps.Executor.Run(runCtx, tk.ID(), msg)
		if state := tk.State(); state.IsTerminal() {
			s.deps.Metrics.TaskFinished(string(state))
		}
	}()
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, req protocol.Request) {
	var params protocol.SendMessageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, protocol.CodeInvalidParams, "bad params: "+err.Error())
		return
	}

	tk, err := s.deps.Tasks.Create(r.Context(), params.ContextID)
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}

	if !params.Blocking {
		s.startTask(tk, params.Message)
		writeResult(w, req.ID, tk.Snapshot(0))
		return
	}

	// Blocking: watch the event stream until the task settles (terminal
	// state or input-required), then reply with the snapshot.
	events, unsubscribe, err := s.deps.Tasks.Subscribe(tk.ID())
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}
	defer unsubscribe()

	s.startTask(tk, params.Message)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				writeResult(w, req.ID, tk.Snapshot(0))
				return
			}
			if settled(ev) {
				writeResult(w, req.ID, tk.Snapshot(0))
				return
			}
		}
	}
}

// settled reports whether the event leaves the task waiting on the caller:
// a terminal event or an input-required status update.
func settled(ev protocol.StreamEvent) bool {
	if ev.Terminal() {
		return true
	}
	return ev.Type == protocol.EventStatusUpdate &&
		ev.Status != nil &&
		ev.Status.Status.State == protocol.TaskStateInputRequired
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, req protocol.Request) {
	var params protocol.GetTaskParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, protocol.CodeInvalidParams, "bad params: "+err.Error())
		return
	}

	snap, err := s.deps.Tasks.Snapshot(r.Context(), params.ID, params.HistoryLength)
	if errors.Is(err, task.ErrNotFound) {
		writeRPCError(w, req.ID, protocol.CodeTaskNotFound, "unknown task "+params.ID)
		return
	}
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}
	writeResult(w, req.ID, snap)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, req protocol.Request) {
	var params protocol.ListTasksParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeRPCError(w, req.ID, protocol.CodeInvalidParams, "bad params: "+err.Error())
			return
		}
	}

	tasks, err := s.deps.Tasks.List(r.Context(), params.ContextID, params.Limit, params.Offset)
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []protocol.Task{}
	}
	writeResult(w, req.ID, tasks)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request, req protocol.Request) {
	var params protocol.CancelTaskParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, protocol.CodeInvalidParams, "bad params: "+err.Error())
		return
	}

	snap, err := s.deps.Tasks.Cancel(r.Context(), params.ID)
	if errors.Is(err, task.ErrNotFound) {
		writeRPCError(w, req.ID, protocol.CodeTaskNotFound, "unknown task "+params.ID)
		return
	}
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}
	writeResult(w, req.ID, snap)
}

func writeResult(w http.ResponseWriter, id int64, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		writeRPCError(w, id, protocol.CodeInternalError, "encode result: "+err.Error())
		return
	}
	writeEnvelope(w, protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Result:  raw,
	})
}

func writeRPCError(w http.ResponseWriter, id int64, code int, message string) {
	writeEnvelope(w, protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Error:   &protocol.ResponseError{Code: code, Message: message},
	})
}

func writeEnvelope(w http.ResponseWriter, resp protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
