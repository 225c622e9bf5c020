package protocol

import "time"

// PendingApproval is one unresolved approval request as listed by the
// approvals endpoint. It exists from the moment the policy engine blocks a
// tool invocation until the approval is resolved or times out.
type PendingApproval struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	ToolName    string    `json:"tool_name"`
	Description string    `json:"description"`
	Risk        string    `json:"risk"`
	RequestedAt time.Time `json:"requested_at"`
}

// Approval actions accepted by POST /approvals/{id}.
const (
	ApprovalActionApproved = "approved"
	ApprovalActionDenied   = "denied"
)

// ApprovalDecision is the body posted to resolve one pending approval.
type ApprovalDecision struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}
