package main

import (
	"github.com/spf13/cobra"

	"github.com/flemzord/agentgate/internal/mcpbridge"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool registry over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			logger := newLogger()
			g, err := buildGate(cfg, logger)
			if err != nil {
				return err
			}
			defer g.close(logger)

			bridge := mcpbridge.New(g.registry, g.hooks, g.policy, g.trust, logger, cfg.Agent.Name, version)
			return bridge.ServeStdio()
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}
