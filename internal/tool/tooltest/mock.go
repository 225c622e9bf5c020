// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flemzord/agentgate/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameFunc        func() string
	DescriptionFunc func() string
	SchemaFunc      func() tool.Schema
	ScopesFunc      func() []tool.Scope
	RiskFunc        func() tool.RiskLevel
	ExecuteFunc     func(ctx context.Context, args json.RawMessage) (tool.Output, error)

	mu           sync.Mutex
	ExecuteCalls int
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock-tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.DescriptionFunc != nil {
		return m.DescriptionFunc()
	}
	return "a mock tool"
}

// InputSchema implements tool.Tool.
func (m *MockTool) InputSchema() tool.Schema {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return tool.NewSchema(nil)
}

// Scopes implements tool.Tool.
func (m *MockTool) Scopes() []tool.Scope {
	if m.ScopesFunc != nil {
		return m.ScopesFunc()
	}
	return []tool.Scope{tool.ScopeReadOnly}
}

// Risk implements tool.Tool.
func (m *MockTool) Risk() tool.RiskLevel {
	if m.RiskFunc != nil {
		return m.RiskFunc()
	}
	return tool.RiskLow
}

// Execute implements tool.Tool.
func (m *MockTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	m.mu.Lock()
	m.ExecuteCalls++
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args)
	}
	return tool.Output{Content: "ok"}, nil
}

// Calls returns how many times Execute ran.
func (m *MockTool) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}

// SimpleTool creates a minimal tool for testing with the given name and risk.
func SimpleTool(name string, risk tool.RiskLevel) *MockTool {
	return &MockTool{
		NameFunc:        func() string { return name },
		DescriptionFunc: func() string { return "simple test tool: " + name },
		RiskFunc:        func() tool.RiskLevel { return risk },
		ScopesFunc:      func() []tool.Scope { return []tool.Scope{tool.ScopeReadOnly} },
		ExecuteFunc: func(_ context.Context, _ json.RawMessage) (tool.Output, error) {
			return tool.Output{Content: "executed: " + name}, nil
		},
	}
}

// WriteTool creates a write-class tool that reports the given touched path
// through its output metadata.
func WriteTool(name, path string) *MockTool {
	return &MockTool{
		NameFunc:   func() string { return name },
		RiskFunc:   func() tool.RiskLevel { return tool.RiskMedium },
		ScopesFunc: func() []tool.Scope { return []tool.Scope{tool.ScopeReadWrite} },
		ExecuteFunc: func(_ context.Context, _ json.RawMessage) (tool.Output, error) {
			return tool.Output{
				Content:  "wrote " + path,
				Metadata: map[string]string{"path": path},
			}, nil
		},
	}
}

// Interface guard.
var _ tool.Tool = (*MockTool)(nil)
