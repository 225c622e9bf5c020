// Package mcpbridge exposes the agentgate tool registry as an MCP server
// over stdio, so MCP-speaking clients can discover and call the same gated
// tools. Stdio has no human in the loop: a call the policy would block is
// refused outright instead of waiting for an approval.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/agentgate/internal/hook"
	"github.com/flemzord/agentgate/internal/policy"
	"github.com/flemzord/agentgate/internal/tool"
	"github.com/flemzord/agentgate/internal/trust"
)

// bridgeTaskID tags hook contexts for invocations arriving over MCP rather
// than through a task.
const bridgeTaskID = "mcp"

// Bridge serves the tool registry over MCP.
type Bridge struct {
	registry *tool.Registry
	hooks    *hook.Pipeline
	policy   *policy.Policy
	trust    *trust.Tracker
	logger   *slog.Logger

	name    string
	version string
}

// New creates a Bridge. The policy and trust tracker gate calls exactly as
// the executor would; blocked calls fail immediately.
func New(registry *tool.Registry, hooks *hook.Pipeline, pol *policy.Policy, tracker *trust.Tracker, logger *slog.Logger, name, version string) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		registry: registry,
		hooks:    hooks,
		policy:   pol,
		trust:    tracker,
		logger:   logger,
		name:     name,
		version:  version,
	}
}

// Server builds the MCP server with every registered tool attached.
func (b *Bridge) Server() (*server.MCPServer, error) {
	s := server.NewMCPServer(b.name, b.version, server.WithToolCapabilities(false))

	for _, t := range b.registry.All() {
		def := tool.Define(t)
		rawSchema, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcpbridge: encode schema for %s: %w", def.Name, err)
		}

		s.AddTool(
			mcp.NewToolWithRawSchema(def.Name, def.Description, rawSchema),
			b.handler(t),
		)
	}
	return s, nil
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (b *Bridge) ServeStdio() error {
	s, err := b.Server()
	if err != nil {
		return err
	}
	b.logger.Info("mcpbridge: serving tools over stdio",
		"tools", len(b.registry.Names()))
	return server.ServeStdio(s)
}

// handler adapts one registry tool to an MCP tool handler.
func (b *Bridge) handler(t tool.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("malformed arguments: " + err.Error()), nil
		}

		if err := t.InputSchema().ValidateInput(args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if b.policy.RequiresApproval(t.Name(), t.Risk(), "") && !b.trust.IsTrusted(t.Name()) {
			return mcp.NewToolResultError(
				fmt.Sprintf("tool %s requires human approval and cannot run over MCP", t.Name()),
			), nil
		}

		out, _ := b.hooks.Invoke(ctx, bridgeTaskID, t, args)
		if out.IsError {
			return mcp.NewToolResultError(out.Content), nil
		}
		return mcp.NewToolResultText(out.Content), nil
	}
}
