package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flemzord/agentgate/pkg/protocol"
)

// handleStreamingMessage creates the task and streams its events as SSE
// until the terminal event. The initial event is the submitted task
// snapshot so consumers learn the task id immediately.
func (s *Server) handleStreamingMessage(w http.ResponseWriter, r *http.Request, req protocol.Request) {
	var params protocol.SendMessageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, protocol.CodeInvalidParams, "bad params: "+err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeRPCError(w, req.ID, protocol.CodeInternalError, "streaming unsupported")
		return
	}

	tk, err := s.deps.Tasks.Create(r.Context(), params.ContextID)
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}

	events, unsubscribe, err := s.deps.Tasks.Subscribe(tk.ID())
	if err != nil {
		writeRPCError(w, req.ID, protocol.CodeInternalError, err.Error())
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, protocol.NewTaskEvent(tk.Snapshot(0))); err != nil {
		return
	}
	flusher.Flush()

	s.startTask(tk, params.Message)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				s.logger.Warn("stream write failed", "task_id", tk.ID(), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE encodes one event as a `data: ` line with a blank separator.
func writeSSE(w http.ResponseWriter, ev protocol.StreamEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", raw)
	return err
}
