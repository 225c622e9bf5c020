package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/agentgate/internal/approval"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// handleAgentCard serves the capability descriptor at the well-known path.
func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	card := protocol.AgentCard{
		Name:        s.deps.Name,
		Version:     s.deps.Version,
		Description: "agent task gateway with approval gating",
		Capabilities: protocol.AgentCapabilities{
			Streaming: true,
			Approvals: true,
		},
	}
	if s.deps.Registry != nil {
		card.ToolNames = s.deps.Registry.Names()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(card)
}

// handleListApprovals returns the pending approvals, oldest first.
func (s *Server) handleListApprovals(w http.ResponseWriter, _ *http.Request) {
	pending := s.deps.Approvals.List()
	if pending == nil {
		pending = []protocol.PendingApproval{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pending)
}

// handleResolveApproval applies a human decision to one pending approval.
func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var decision protocol.ApprovalDecision
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		http.Error(w, "malformed decision: "+err.Error(), http.StatusBadRequest)
		return
	}
	if decision.Action != protocol.ApprovalActionApproved && decision.Action != protocol.ApprovalActionDenied {
		http.Error(w, "action must be approved or denied", http.StatusBadRequest)
		return
	}

	approved := decision.Action == protocol.ApprovalActionApproved
	err := s.deps.Approvals.Resolve(id, approved, decision.Reason)
	if errors.Is(err, approval.ErrNotFound) {
		http.Error(w, "approval not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.deps.Metrics.ApprovalResolved(decision.Action)
	w.WriteHeader(http.StatusNoContent)
}
