// Package config loads and validates the YAML configuration of a sluice
// node: the backpressure options the controller recognizes plus the node's
// journal and demo-pipeline settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sluiceproject/sluice/internal/controller"
)

// Duration wraps time.Duration so YAML can carry values like "500ms" or
// "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is a node's full configuration. Zero values fall back to defaults
// in Validate, so a partial file is always usable.
type Config struct {
	// MaxWaitingOperations is the backpressure threshold.
	MaxWaitingOperations int `yaml:"max_waiting_operations"`

	// MaxWaitTime bounds a forced drain's blocking wait.
	MaxWaitTime Duration `yaml:"max_wait_time"`

	// AnchorOutputs links downstream emissions to their triggering input.
	// Pointer so an absent key defaults to true rather than false.
	AnchorOutputs *bool `yaml:"anchor_outputs"`

	// Journal is the SQLite emission journal path. Empty disables
	// journaling.
	Journal string `yaml:"journal"`

	// ProcessDelay is the artificial latency of the demo processor.
	ProcessDelay Duration `yaml:"process_delay"`

	// TickInterval is the period of host tick signals in the run command.
	TickInterval Duration `yaml:"tick_interval"`
}

// Default returns the configuration a node runs with absent any file.
func Default() Config {
	anchor := true
	return Config{
		MaxWaitingOperations: controller.DefaultMaxWaitingOperations,
		MaxWaitTime:          Duration(controller.DefaultMaxWaitTime),
		AnchorOutputs:        &anchor,
		TickInterval:         Duration(time.Second),
	}
}

// Load reads and validates a YAML config file. Unknown keys are rejected so
// typos fail loudly instead of silently running with defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalizes zero values to defaults and rejects nonsense.
func (c *Config) Validate() error {
	if c.MaxWaitingOperations < 0 {
		return errors.New("max_waiting_operations must not be negative")
	}
	if c.MaxWaitingOperations == 0 {
		c.MaxWaitingOperations = controller.DefaultMaxWaitingOperations
	}

	if c.MaxWaitTime < 0 {
		return errors.New("max_wait_time must not be negative")
	}
	if c.MaxWaitTime == 0 {
		c.MaxWaitTime = Duration(controller.DefaultMaxWaitTime)
	}

	if c.ProcessDelay < 0 {
		return errors.New("process_delay must not be negative")
	}

	if c.TickInterval < 0 {
		return errors.New("tick_interval must not be negative")
	}
	if c.TickInterval == 0 {
		c.TickInterval = Duration(time.Second)
	}

	if c.AnchorOutputs == nil {
		anchor := true
		c.AnchorOutputs = &anchor
	}

	return nil
}

// ControllerOptions translates the config into controller options.
func (c Config) ControllerOptions() []controller.Option {
	return []controller.Option{
		controller.WithMaxWaitingOperations(c.MaxWaitingOperations),
		controller.WithMaxWaitTime(c.MaxWaitTime.Std()),
		controller.WithAnchorOutputs(*c.AnchorOutputs),
	}
}
