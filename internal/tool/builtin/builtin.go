// Package builtin holds the small set of tools agentgate ships with. They
// exist so the gateway is usable out of the box; real deployments register
// their own tools.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flemzord/agentgate/internal/tool"
)

// Tools returns the built-in tool set.
func Tools() []tool.Tool {
	return []tool.Tool{EchoTool{}, ReadFileTool{}}
}

// EchoTool returns its input text unchanged.
type EchoTool struct{}

func (EchoTool) Name() string        { return "echo" }
func (EchoTool) Description() string { return "Return the given text unchanged" }
func (EchoTool) Risk() tool.RiskLevel {
	return tool.RiskLow
}
func (EchoTool) Scopes() []tool.Scope {
	return []tool.Scope{tool.ScopeReadOnly}
}

func (EchoTool) InputSchema() tool.Schema {
	return tool.NewSchema(map[string]tool.Property{
		"text": {Type: "string", Description: "Text to echo back"},
	}, "text")
}

func (EchoTool) Execute(_ context.Context, args json.RawMessage) (tool.Output, error) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return tool.Output{}, fmt.Errorf("echo: decode arguments: %w", err)
	}
	return tool.Output{Content: in.Text}, nil
}

// ReadFileTool reads a file from the local filesystem.
type ReadFileTool struct{}

func (ReadFileTool) Name() string        { return "read_file" }
func (ReadFileTool) Description() string { return "Read a file and return its contents" }
func (ReadFileTool) Risk() tool.RiskLevel {
	return tool.RiskLow
}
func (ReadFileTool) Scopes() []tool.Scope {
	return []tool.Scope{tool.ScopeReadOnly}
}

func (ReadFileTool) InputSchema() tool.Schema {
	return tool.NewSchema(map[string]tool.Property{
		"path": {Type: "string", Description: "Path of the file to read"},
	}, "path")
}

func (ReadFileTool) Execute(_ context.Context, args json.RawMessage) (tool.Output, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return tool.Output{}, fmt.Errorf("read_file: decode arguments: %w", err)
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return tool.Output{Content: err.Error(), IsError: true}, nil
	}
	return tool.Output{
		Content:  string(data),
		Metadata: map[string]string{"path": in.Path},
	}, nil
}

// Interface guards.
var (
	_ tool.Tool = EchoTool{}
	_ tool.Tool = ReadFileTool{}
)
