// Package config loads zappy.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/zappy/internal/logging"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"zappy.yml", "zappy.yaml"}

const (
	DefaultOutputDir     = "posts"
	DefaultAgentBasePort = 9200
	DefaultAgentTimeout  = 2 * time.Minute
)

// Config holds project-level settings.
type Config struct {
	OutputDir     string            `yaml:"outputDir,omitempty"`
	LogLevel      string            `yaml:"logLevel,omitempty"`
	LogFormat     string            `yaml:"logFormat,omitempty"`
	AgentBasePort int               `yaml:"agentBasePort,omitempty"`
	AgentTimeout  string            `yaml:"agentTimeout,omitempty"`
	Agents        map[string]string `yaml:"agents,omitempty"`
	Supersede     *bool             `yaml:"supersede,omitempty"`
	Offline       bool              `yaml:"offline,omitempty"`
}

// Load reads zappy.yml or zappy.yaml from dir. It returns a zero-value
// config, not an error, when neither exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return &Config{}, nil
}

// LoadFile reads and validates the config at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks stage ids, the timeout and the port.
func (c *Config) Validate() error {
	var errs []error
	for id, ep := range c.Agents {
		if !orchestrator.StageID(id).Valid() {
			errs = append(errs, fmt.Errorf("agents: unknown stage %q", id))
		}
		if ep == "" {
			errs = append(errs, fmt.Errorf("agents: stage %q has an empty endpoint", id))
		}
	}
	if c.AgentTimeout != "" {
		d, err := time.ParseDuration(c.AgentTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("agentTimeout: %w", err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("agentTimeout: must not be negative, got %s", d))
		}
	}
	if c.AgentBasePort < 0 || c.AgentBasePort > 65535 {
		errs = append(errs, fmt.Errorf("agentBasePort: %d out of range", c.AgentBasePort))
	}
	switch c.LogFormat {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logFormat: want %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.LogFormat))
	}
	return errors.Join(errs...)
}

// Timeout returns the per-call agent timeout. Invalid or empty values give
// DefaultAgentTimeout; "0s" disables the timeout.
func (c *Config) Timeout() time.Duration {
	if c.AgentTimeout == "" {
		return DefaultAgentTimeout
	}
	d, err := time.ParseDuration(c.AgentTimeout)
	if err != nil || d < 0 {
		return DefaultAgentTimeout
	}
	return d
}

// Endpoints returns the configured agent endpoints keyed by stage.
func (c *Config) Endpoints() map[orchestrator.StageID]string {
	eps := make(map[orchestrator.StageID]string, len(c.Agents))
	for id, ep := range c.Agents {
		eps[orchestrator.StageID(id)] = ep
	}
	return eps
}

// SupersedeEnabled reports whether a new run may supersede an active one.
// Unset means true.
func (c *Config) SupersedeEnabled() bool {
	return c.Supersede == nil || *c.Supersede
}

// Output returns OutputDir or DefaultOutputDir.
func (c *Config) Output() string {
	if c.OutputDir == "" {
		return DefaultOutputDir
	}
	return c.OutputDir
}

// BasePort returns AgentBasePort or DefaultAgentBasePort.
func (c *Config) BasePort() int {
	if c.AgentBasePort == 0 {
		return DefaultAgentBasePort
	}
	return c.AgentBasePort
}
