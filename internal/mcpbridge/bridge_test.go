package mcpbridge

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/agentgate/internal/hook"
	"github.com/flemzord/agentgate/internal/policy"
	"github.com/flemzord/agentgate/internal/tool"
	"github.com/flemzord/agentgate/internal/tool/tooltest"
	"github.com/flemzord/agentgate/internal/trust"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newBridge(t *testing.T, cfg policy.Config, tools ...tool.Tool) *Bridge {
	t.Helper()

	pol, err := policy.New(cfg)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	registry := tool.NewRegistry()
	if err := registry.RegisterAll(tools); err != nil {
		t.Fatalf("register: %v", err)
	}

	return New(registry, hook.NewPipeline(discardLogger()), pol,
		trust.NewTracker(cfg.TrustAfterCount), discardLogger(), "agentgate", "test")
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// resultText extracts the text of the first content item.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestBridge_ServerBuildsWithTools(t *testing.T) {
	t.Parallel()

	b := newBridge(t, policy.Config{MaxAutoApproveRisk: tool.RiskHigh},
		tooltest.SimpleTool("Read", tool.RiskLow),
		tooltest.SimpleTool("Grep", tool.RiskLow))

	if _, err := b.Server(); err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestBridge_HandlerExecutesAllowedTool(t *testing.T) {
	t.Parallel()

	read := tooltest.SimpleTool("Read", tool.RiskLow)
	b := newBridge(t, policy.Config{MaxAutoApproveRisk: tool.RiskHigh}, read)

	res, err := b.handler(read)(context.Background(), callRequest("Read", nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "executed: Read" {
		t.Errorf("text = %q", got)
	}
	if read.Calls() != 1 {
		t.Errorf("calls = %d", read.Calls())
	}
}

func TestBridge_HandlerRefusesBlockedTool(t *testing.T) {
	t.Parallel()

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	b := newBridge(t, policy.Config{AlwaysApprove: []string{"Bash"}}, bash)

	res, err := b.handler(bash)(context.Background(), callRequest("Bash", nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("blocked tool must return an error result")
	}
	if got := resultText(t, res); !strings.Contains(got, "requires human approval") {
		t.Errorf("text = %q", got)
	}
	if bash.Calls() != 0 {
		t.Errorf("blocked tool ran %d times", bash.Calls())
	}
}

func TestBridge_TrustedToolRunsOverMCP(t *testing.T) {
	t.Parallel()

	bash := tooltest.SimpleTool("Bash", tool.RiskHigh)
	b := newBridge(t, policy.Config{
		AlwaysApprove:   []string{"Bash"},
		TrustAfterCount: 1,
	}, bash)
	b.trust.RecordApproval("Bash")

	res, err := b.handler(bash)(context.Background(), callRequest("Bash", nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("trusted tool must run: %s", resultText(t, res))
	}
}

func TestBridge_HandlerValidatesInput(t *testing.T) {
	t.Parallel()

	read := tooltest.SimpleTool("Read", tool.RiskLow)
	read.SchemaFunc = func() tool.Schema {
		return tool.NewSchema(map[string]tool.Property{
			"path": {Type: "string"},
		}, "path")
	}
	b := newBridge(t, policy.Config{MaxAutoApproveRisk: tool.RiskHigh}, read)

	res, err := b.handler(read)(context.Background(), callRequest("Read", map[string]any{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("missing required parameter must fail")
	}
	if read.Calls() != 0 {
		t.Errorf("invalid call reached the tool")
	}
}
