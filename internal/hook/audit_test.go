package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/agentgate/internal/redact"
	"github.com/flemzord/agentgate/internal/tool"
)

func decodeAuditLine(t *testing.T, buf *bytes.Buffer) AuditRecord {
	t.Helper()
	var record AuditRecord
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	return record
}

func TestAuditHook_WritesRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewAuditHook(&buf)

	hctx := &Context{
		TaskID:   "task-1",
		ToolName: "read_file",
		Args:     json.RawMessage(`{"path":"/tmp/x"}`),
		Output:   &tool.Output{Content: "file contents"},
		Started:  time.Now(),
	}
	if err := h.AfterExecution(context.Background(), hctx); err != nil {
		t.Fatalf("after execution: %v", err)
	}

	record := decodeAuditLine(t, &buf)
	if record.TaskID != "task-1" || record.ToolName != "read_file" {
		t.Errorf("record = %+v", record)
	}
	if record.Output != "file contents" {
		t.Errorf("output = %q", record.Output)
	}
	if record.IsError {
		t.Error("unexpected error flag")
	}
}

func TestAuditHook_RecordsInvocationError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewAuditHook(&buf)

	hctx := &Context{
		TaskID:   "task-1",
		ToolName: "echo",
		Err:      errors.New("boom"),
		Started:  time.Now(),
	}
	if err := h.AfterExecution(context.Background(), hctx); err != nil {
		t.Fatalf("after execution: %v", err)
	}

	record := decodeAuditLine(t, &buf)
	if !record.IsError {
		t.Error("error flag not set")
	}
	if !strings.Contains(record.Output, "boom") {
		t.Errorf("output = %q", record.Output)
	}
}

func TestAuditHook_RedactsSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewAuditHook(&buf).WithRedactor(redact.New())

	hctx := &Context{
		TaskID:   "task-1",
		ToolName: "deploy",
		Args:     json.RawMessage(`{"target":"prod","api_key":"plain-value"}`),
		Output:   &tool.Output{Content: "used sk-abcdefghijklmnopqrstuvwx"},
		Started:  time.Now(),
	}
	if err := h.AfterExecution(context.Background(), hctx); err != nil {
		t.Fatalf("after execution: %v", err)
	}

	record := decodeAuditLine(t, &buf)
	if strings.Contains(record.Args, "plain-value") {
		t.Errorf("api_key survived: %s", record.Args)
	}
	if !strings.Contains(record.Args, "prod") {
		t.Errorf("non-secret arg lost: %s", record.Args)
	}
	if strings.Contains(record.Output, "sk-abcdef") {
		t.Errorf("secret in output survived: %s", record.Output)
	}
}

func TestAuditHook_TruncatesLongOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewAuditHook(&buf)

	hctx := &Context{
		TaskID:   "task-1",
		ToolName: "read_file",
		Output:   &tool.Output{Content: strings.Repeat("x", maxAuditDetailLen+100)},
		Started:  time.Now(),
	}
	if err := h.AfterExecution(context.Background(), hctx); err != nil {
		t.Fatalf("after execution: %v", err)
	}

	record := decodeAuditLine(t, &buf)
	if !strings.HasSuffix(record.Output, "...(truncated)") {
		t.Error("long output not truncated")
	}
}
