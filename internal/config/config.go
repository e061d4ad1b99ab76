// Package config loads and validates deobfuscation options. Settings come
// from an optional YAML file, WEBCRACK_* environment variables, and defaults,
// in that order of increasing precedence for env over file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Sandbox backend names accepted by the config.
const (
	SandboxGoja = "goja"
	SandboxOtto = "otto"
	SandboxOff  = "off"
)

// Config holds every tunable of a deobfuscation run.
type Config struct {
	// Target selects an obfuscation family: "auto" to detect, an id to force
	// one, or empty for auto.
	Target string `yaml:"target" mapstructure:"target"`

	// Threshold is the minimum detection confidence auto mode accepts.
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`

	// Sandbox picks the evaluator backing.
	Sandbox string `yaml:"sandbox" mapstructure:"sandbox"`

	// DebugLogging enables per-node traces.
	DebugLogging bool `yaml:"debug_logging" mapstructure:"debug_logging"`

	// MaxDeadCodePasses caps the dead-code fixpoint iteration.
	MaxDeadCodePasses int `yaml:"max_dead_code_passes" mapstructure:"max_dead_code_passes"`
}

// DefaultConfig returns the settings used when nothing else is specified.
func DefaultConfig() *Config {
	return &Config{
		Target:            "auto",
		Threshold:         0.3,
		Sandbox:           SandboxGoja,
		DebugLogging:      false,
		MaxDeadCodePasses: 10,
	}
}

// LoadConfig reads configuration from the given YAML file (optional) and the
// environment. An empty path loads defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("target", defaults.Target)
	v.SetDefault("threshold", defaults.Threshold)
	v.SetDefault("sandbox", defaults.Sandbox)
	v.SetDefault("debug_logging", defaults.DebugLogging)
	v.SetDefault("max_dead_code_passes", defaults.MaxDeadCodePasses)

	v.SetEnvPrefix("WEBCRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the core cannot honor.
func (c *Config) Validate() error {
	switch c.Sandbox {
	case SandboxGoja, SandboxOtto, SandboxOff, "":
	default:
		return fmt.Errorf("invalid sandbox backend %q (want %s, %s or %s)",
			c.Sandbox, SandboxGoja, SandboxOtto, SandboxOff)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range [0, 1]", c.Threshold)
	}
	if c.MaxDeadCodePasses < 0 {
		return fmt.Errorf("max_dead_code_passes must not be negative")
	}
	return nil
}

// WriteYAML serializes the config, handy for generating starter files.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}
