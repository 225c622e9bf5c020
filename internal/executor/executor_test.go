package executor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/agentgate/internal/approval"
	"github.com/flemzord/agentgate/internal/hook"
	"github.com/flemzord/agentgate/internal/policy"
	"github.com/flemzord/agentgate/internal/store"
	"github.com/flemzord/agentgate/internal/task"
	"github.com/flemzord/agentgate/internal/tool"
	"github.com/flemzord/agentgate/internal/tool/tooltest"
	"github.com/flemzord/agentgate/internal/trust"
	"github.com/flemzord/agentgate/pkg/protocol"
)

// scriptedProvider replays a fixed sequence of turns, one per Stream call.
// Calls past the script return an empty final turn.
type scriptedProvider struct {
	mu    sync.Mutex
	turns [][]Chunk
	calls int
}

func (p *scriptedProvider) Stream(_ context.Context, _ Request) (<-chan Chunk, error) {
	p.mu.Lock()
	var turn []Chunk
	if p.calls < len(p.turns) {
		turn = p.turns[p.calls]
	}
	p.calls++
	p.mu.Unlock()

	ch := make(chan Chunk, len(turn)+1)
	for _, c := range turn {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixture struct {
	exec      *Executor
	tasks     *task.Manager
	approvals *approval.Manager
	trust     *trust.Tracker
	registry  *tool.Registry
}

func newFixture(t *testing.T, provider Provider, cfg policy.Config) *fixture {
	t.Helper()

	pol, err := policy.New(cfg)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	registry := tool.NewRegistry()
	tasks := task.NewManager(store.NewMemoryStore(), discardLogger())
	approvals := approval.NewManager()
	tracker := trust.NewTracker(pol.TrustAfterCount())

	exec := New(Deps{
		Provider:  provider,
		Registry:  registry,
		Hooks:     hook.NewPipeline(discardLogger()),
		Policy:    pol,
		Trust:     tracker,
		Approvals: approvals,
		Tasks:     tasks,
		Logger:    discardLogger(),
	})

	return &fixture{
		exec:      exec,
		tasks:     tasks,
		approvals: approvals,
		trust:     tracker,
		registry:  registry,
	}
}

// waitForState polls until the task reaches the wanted state or the deadline
// passes.
func waitForState(t *testing.T, m *task.Manager, id string, want protocol.TaskState) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Snapshot(context.Background(), id, 0)
		if err == nil && snap.Status.State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := m.Snapshot(context.Background(), id, 0)
	t.Fatalf("task never reached %q, stuck at %q", want, snap.Status.State)
}

func toolCallChunk(id, name, args string) Chunk {
	return Chunk{ToolCalls: []ToolCall{{ID: id, Name: name, Args: json.RawMessage(args)}}}
}

func TestExecutor_CompletesWithoutTools(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{{Text: "hello "}, {Text: "there"}},
	}}
	f := newFixture(t, provider, policy.Config{MaxAutoApproveRisk: tool.RiskHigh})

	ctx := context.Background()
	tk, err := f.tasks.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("hi"))

	snap, err := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Fatalf("state = %q", snap.Status.State)
	}
	if len(snap.History) != 2 {
		t.Fatalf("history = %d messages", len(snap.History))
	}
	if got := snap.History[1].TextContent(); got != "hello there" {
		t.Errorf("agent text = %q", got)
	}
}

func TestExecutor_AutoApprovedToolRuns(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Read", `{}`)},
		{{Text: "done"}},
	}}
	f := newFixture(t, provider, policy.Config{MaxAutoApproveRisk: tool.RiskHigh})

	read := tooltest.SimpleTool("Read", tool.RiskLow)
	if err := f.registry.Register(read); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("read something"))

	if read.Calls() != 1 {
		t.Errorf("tool calls = %d, want 1", read.Calls())
	}
	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Errorf("state = %q", snap.Status.State)
	}
}

func TestExecutor_BlockedToolWaitsForApproval(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Bash", `{"description":"run ls"}`)},
		{{Text: "listed"}},
	}}
	f := newFixture(t, provider, policy.Config{
		AlwaysApprove:      []string{"Bash"},
		MaxAutoApproveRisk: tool.RiskHigh,
	})

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	if err := f.registry.Register(bash); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("list files"))
	}()

	waitForState(t, f.tasks, tk.ID(), protocol.TaskStateInputRequired)

	pending := f.approvals.List()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].ToolName != "Bash" || pending[0].TaskID != tk.ID() {
		t.Errorf("pending = %+v", pending[0])
	}

	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if len(snap.Status.PendingApprovalIDs) != 1 || snap.Status.PendingApprovalIDs[0] != pending[0].ID {
		t.Errorf("status pending ids = %v", snap.Status.PendingApprovalIDs)
	}

	if err := f.approvals.Resolve(pending[0].ID, true, "fine"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	<-done

	if bash.Calls() != 1 {
		t.Errorf("tool calls = %d, want 1", bash.Calls())
	}
	if f.trust.Count("Bash") != 1 {
		t.Errorf("trust count = %d, want 1", f.trust.Count("Bash"))
	}

	snap, _ = f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Errorf("final state = %q", snap.Status.State)
	}
	if len(f.approvals.List()) != 0 {
		t.Error("pending set must be empty after resolution")
	}
}

func TestExecutor_DeniedToolReportsErrorResult(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Bash", `{}`)},
		{{Text: "understood"}},
	}}
	f := newFixture(t, provider, policy.Config{AlwaysApprove: []string{"Bash"}})

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	if err := f.registry.Register(bash); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("rm -rf"))
	}()

	waitForState(t, f.tasks, tk.ID(), protocol.TaskStateInputRequired)
	pending := f.approvals.List()
	if err := f.approvals.Resolve(pending[0].ID, false, "too risky"); err != nil {
		t.Fatal(err)
	}
	<-done

	if bash.Calls() != 0 {
		t.Errorf("denied tool must not run, calls = %d", bash.Calls())
	}
	if f.trust.Count("Bash") != 0 {
		t.Errorf("denial must not record trust, count = %d", f.trust.Count("Bash"))
	}

	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Fatalf("state = %q", snap.Status.State)
	}
	result := findToolResult(t, snap.History, "tu-1")
	if !result.IsError || !strings.Contains(result.Text, "too risky") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_ApprovalTimeoutAutoDenies(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Bash", `{}`)},
		{{Text: "ok"}},
	}}
	f := newFixture(t, provider, policy.Config{
		AlwaysApprove:  []string{"Bash"},
		DefaultTimeout: 20 * time.Millisecond,
	})

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	if err := f.registry.Register(bash); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("hang"))

	if bash.Calls() != 0 {
		t.Errorf("timed-out tool must not run, calls = %d", bash.Calls())
	}
	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Fatalf("state = %q", snap.Status.State)
	}
	result := findToolResult(t, snap.History, "tu-1")
	if !result.IsError || !strings.Contains(result.Text, "timed out") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_TrustedToolSkipsApproval(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Bash", `{}`)},
		{{Text: "done"}},
	}}
	f := newFixture(t, provider, policy.Config{
		AlwaysApprove:   []string{"Bash"},
		TrustAfterCount: 2,
	})

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	if err := f.registry.Register(bash); err != nil {
		t.Fatal(err)
	}
	f.trust.RecordApproval("Bash")
	f.trust.RecordApproval("Bash")

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("go"))

	if bash.Calls() != 1 {
		t.Errorf("trusted tool must run without blocking, calls = %d", bash.Calls())
	}
	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Errorf("state = %q", snap.Status.State)
	}
}

func TestExecutor_UnknownToolReportsResult(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Nope", `{}`)},
		{{Text: "recovered"}},
	}}
	f := newFixture(t, provider, policy.Config{MaxAutoApproveRisk: tool.RiskHigh})

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("call something"))

	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCompleted {
		t.Fatalf("unknown tool must not fail the task, state = %q", snap.Status.State)
	}
	result := findToolResult(t, snap.History, "tu-1")
	if !result.IsError || !strings.Contains(result.Text, "unknown tool") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_InvalidInputReportsResult(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Read", `{}`)},
		{{Text: "ok"}},
	}}
	f := newFixture(t, provider, policy.Config{MaxAutoApproveRisk: tool.RiskHigh})

	read := tooltest.SimpleTool("Read", tool.RiskLow)
	read.SchemaFunc = func() tool.Schema {
		return tool.NewSchema(map[string]tool.Property{
			"path": {Type: "string"},
		}, "path")
	}
	if err := f.registry.Register(read); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("read"))

	if read.Calls() != 0 {
		t.Errorf("invalid input must not reach the tool, calls = %d", read.Calls())
	}
	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	result := findToolResult(t, snap.History, "tu-1")
	if !result.IsError || !strings.Contains(result.Text, "path") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_ProviderErrorFailsTask(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{{Text: "partial"}, {Err: errors.New("upstream connection reset")}},
	}}
	f := newFixture(t, provider, policy.Config{MaxAutoApproveRisk: tool.RiskHigh})

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("hi"))

	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateFailed {
		t.Fatalf("state = %q", snap.Status.State)
	}
	if !strings.Contains(snap.Status.Message, "connection reset") {
		t.Errorf("failure reason = %q", snap.Status.Message)
	}
}

func TestExecutor_MaxIterationsFailsTask(t *testing.T) {
	t.Parallel()

	// Every turn requests another tool call; the loop must bail out.
	turns := make([][]Chunk, 32)
	for i := range turns {
		turns[i] = []Chunk{toolCallChunk("tu", "Read", `{}`)}
	}
	provider := &scriptedProvider{turns: turns}
	f := newFixture(t, provider, policy.Config{MaxAutoApproveRisk: tool.RiskHigh})

	if err := f.registry.Register(tooltest.SimpleTool("Read", tool.RiskLow)); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	f.exec.Run(ctx, tk.ID(), protocol.NewUserMessage("loop"))

	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateFailed {
		t.Fatalf("state = %q", snap.Status.State)
	}
	if !strings.Contains(snap.Status.Message, "max iterations") {
		t.Errorf("failure reason = %q", snap.Status.Message)
	}
}

func TestExecutor_CancelWhileBlockedCancelsTask(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{turns: [][]Chunk{
		{toolCallChunk("tu-1", "Bash", `{}`)},
	}}
	f := newFixture(t, provider, policy.Config{AlwaysApprove: []string{"Bash"}})

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	if err := f.registry.Register(bash); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tk, _ := f.tasks.Create(ctx, "")
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	f.tasks.RegisterCancel(tk.ID(), runCancel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.exec.Run(runCtx, tk.ID(), protocol.NewUserMessage("block"))
	}()

	waitForState(t, f.tasks, tk.ID(), protocol.TaskStateInputRequired)

	if _, err := f.tasks.Cancel(ctx, tk.ID()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	<-done

	snap, _ := f.tasks.Snapshot(ctx, tk.ID(), 0)
	if snap.Status.State != protocol.TaskStateCancelled {
		t.Fatalf("state = %q", snap.Status.State)
	}
	if bash.Calls() != 0 {
		t.Errorf("cancelled tool must not run, calls = %d", bash.Calls())
	}
}

// findToolResult locates the tool_result part referencing the given
// tool_use id.
func findToolResult(t *testing.T, history []protocol.Message, toolUseID string) protocol.Part {
	t.Helper()
	for _, msg := range history {
		for _, part := range msg.Parts {
			if part.Type == protocol.PartToolResult && part.ToolUseID == toolUseID {
				return part
			}
		}
	}
	t.Fatalf("no tool_result for %q in history", toolUseID)
	return protocol.Part{}
}
