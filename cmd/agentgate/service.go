package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/agentgate/internal/config"
)

// program adapts the gateway to the service manager's Start/Stop lifecycle.
type program struct {
	cfg    *config.Config
	cancel context.CancelFunc
	done   chan error
}

// Start implements service.Interface. It must not block.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- runServe(ctx, p.cfg) }()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(_ service.Service) error {
	p.cancel()
	return <-p.done
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service [install|uninstall|start|stop|restart|run]",
		Short:     "Manage agentgate as a system service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"install", "uninstall", "start", "stop", "restart", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			svcConfig := &service.Config{
				Name:        "agentgate",
				DisplayName: "agentgate",
				Description: "Agent task gateway with human approval gating",
				Arguments:   []string{"service", "run"},
			}
			if cfgPath != "" {
				svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgPath)
			}

			prg := &program{}
			if args[0] == "run" {
				cfg, err := loadConfig(cfgPath)
				if err != nil {
					return err
				}
				prg.cfg = cfg
			}

			svc, err := service.New(prg, svcConfig)
			if err != nil {
				return err
			}

			switch args[0] {
			case "run":
				return svc.Run()
			case "install", "uninstall", "start", "stop", "restart":
				if err := service.Control(svc, args[0]); err != nil {
					return err
				}
				fmt.Printf("service %s: ok\n", args[0])
				return nil
			default:
				return fmt.Errorf("unknown service action %q", args[0])
			}
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}
