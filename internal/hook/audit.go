package hook

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/flemzord/agentgate/internal/redact"
)

// maxAuditDetailLen is the maximum length of audit detail strings.
// Longer values are truncated to prevent log bloat from large tool outputs.
const maxAuditDetailLen = 4096

// AuditRecord is one JSON Lines entry written by AuditHook.
type AuditRecord struct {
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id"`
	ToolName  string    `json:"tool_name"`
	Args      string    `json:"args,omitempty"`
	Output    string    `json:"output,omitempty"`
	IsError   bool      `json:"is_error"`
	Duration  int64     `json:"duration_ms"`
}

// AuditHook writes a JSON Lines audit entry for every completed tool
// invocation. It observes only; it never aborts an invocation.
type AuditHook struct {
	Base

	writer   io.Writer
	redactor *redact.Redactor
	mu       sync.Mutex
	now      func() time.Time
}

// NewAuditHook creates an audit hook that writes JSON Lines to w.
// In production, w is typically an *os.File; in tests, a *bytes.Buffer.
func NewAuditHook(w io.Writer) *AuditHook {
	return &AuditHook{
		writer: w,
		now:    time.Now,
	}
}

// WithRedactor masks secret material in recorded args and output.
func (a *AuditHook) WithRedactor(r *redact.Redactor) *AuditHook {
	a.redactor = r
	return a
}

// Compile-time interface check.
var _ Hook = (*AuditHook)(nil)

// AfterExecution writes one JSON Lines record capturing the invocation.
func (a *AuditHook) AfterExecution(_ context.Context, hctx *Context) error {
	args := string(hctx.Args)
	if a.redactor != nil {
		args = a.redactor.RedactJSON(hctx.Args)
	}

	record := AuditRecord{
		Timestamp: a.now(),
		TaskID:    hctx.TaskID,
		ToolName:  hctx.ToolName,
		Args:      truncateForAudit(args),
		Duration:  time.Since(hctx.Started).Milliseconds(),
	}

	if hctx.Output != nil {
		record.Output = truncateForAudit(hctx.Output.Content)
		record.IsError = hctx.Output.IsError
	}
	if hctx.Err != nil {
		record.Output = "error: " + hctx.Err.Error()
		record.IsError = true
	}
	if a.redactor != nil {
		record.Output = a.redactor.Redact(record.Output)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return json.NewEncoder(a.writer).Encode(record)
}

// truncateForAudit truncates a string to maxAuditDetailLen, walking back to
// a valid UTF-8 rune boundary when the cut falls mid-rune.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
