package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/agentgate/internal/policy"
)

// Validate checks the structural validity of a Config: version field, bind
// address, store driver, retention schedule, and that the policy compiles.
// All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid server.bind %q: %w", cfg.Server.Bind, err))
	}

	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			errs = append(errs, errors.New("config: store.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store.driver %q (supported: memory, sqlite)", cfg.Store.Driver))
	}

	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid retention.schedule %q: %w", cfg.Retention.Schedule, err))
		}
		if cfg.Retention.MaxAge <= 0 {
			errs = append(errs, errors.New("config: retention.max_age must be positive when a schedule is set"))
		}
	}

	if cfg.Checkpoint.Enabled && cfg.Checkpoint.Root == "" {
		errs = append(errs, errors.New("config: checkpoint.root is required when checkpointing is enabled"))
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.endpoint is required when telemetry is enabled"))
	}

	if _, err := policy.New(cfg.Policy); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}
