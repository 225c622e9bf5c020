package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/agentgate/internal/approver"
	"github.com/flemzord/agentgate/internal/client"
)

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Interactively resolve pending approvals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			interval, _ := cmd.Flags().GetDuration("interval")

			logger := newLogger()
			c := client.New(serverURL, client.WithLogger(logger))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !c.HealthCheck(ctx) {
				logger.Warn("server not reachable yet", "url", serverURL)
			}

			err := approver.New(c, logger, interval).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringP("server", "s", "http://127.0.0.1:8484", "Gateway base URL")
	cmd.Flags().Duration("interval", 2*time.Second, "Poll interval")
	return cmd
}
