// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for agentgate.
package config

import (
	"time"

	"github.com/flemzord/agentgate/internal/policy"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Server     ServerConfig     `yaml:"server"`
	Policy     policy.Config    `yaml:"policy"`
	Store      StoreConfig      `yaml:"store"`
	Retention  RetentionConfig  `yaml:"retention"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Audit      AuditConfig      `yaml:"audit"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Agent      AgentConfig      `yaml:"agent"`
}

// ServerConfig holds the HTTP gateway settings.
type ServerConfig struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects the task persistence backend.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`

	// Path is the database file location; required for sqlite.
	Path string `yaml:"path"`
}

// RetentionConfig schedules terminal-task pruning.
type RetentionConfig struct {
	// Schedule is a standard cron expression; empty disables the sweeper.
	Schedule string `yaml:"schedule"`

	// MaxAge is how long terminal tasks are kept before pruning.
	MaxAge time.Duration `yaml:"max_age"`
}

// CheckpointConfig controls the version-control checkpoint hook.
type CheckpointConfig struct {
	Enabled bool `yaml:"enabled"`

	// Root is the repository whose tracked files trigger commits.
	Root string `yaml:"root"`
}

// AuditConfig controls the JSON Lines audit log.
type AuditConfig struct {
	// Path is the audit log file; empty disables auditing.
	Path string `yaml:"path"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP collector address, host:port.
	Endpoint string `yaml:"endpoint"`

	// ServiceName overrides the reported service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// AgentConfig names the agent and bounds its execution loop.
type AgentConfig struct {
	Name          string `yaml:"name"`
	MaxIterations int    `yaml:"max_iterations"`
}

// Defaults fills unset fields with working values.
func (c *Config) Defaults() {
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1:8484"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = 7 * 24 * time.Hour
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "agentgate"
	}
	if c.Agent.Name == "" {
		c.Agent.Name = "agentgate"
	}
}
