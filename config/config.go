// Package config provides configuration loading and validation for sweeps.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Collection modes for metric rows.
const (
	CollectSteps = "steps" // one row per (trial, step)
	CollectFinal = "final" // one row per trial, sampled after the last step
)

// Config holds all experiment configuration: the fixed model parameters,
// the swept parameter lists, and the run controls.
type Config struct {
	Model ModelConfig      `yaml:"model"`
	Sweep map[string][]int `yaml:"sweep"`
	Run   RunConfig        `yaml:"run"`
}

// ModelConfig holds the parameters of a single model instance.
// Swept parameters override these per combination.
type ModelConfig struct {
	InitPeople     int `yaml:"init_people"`     // population size
	RichThreshold  int `yaml:"rich_threshold"`  // savings cutoff for the rich class
	TradeThreshold int `yaml:"trade_threshold"` // wallet cutoff enabling trade and deposits
	ReservePercent int `yaml:"reserve_percent"` // fraction of deposits the bank must keep unlent, 0-100
	Width          int `yaml:"width"`           // grid width (torus)
	Height         int `yaml:"height"`          // grid height (torus)
}

// RunConfig holds batch execution controls.
type RunConfig struct {
	Iterations   int    `yaml:"iterations"`    // independent trials per combination
	Steps        int    `yaml:"steps"`         // step budget per trial
	Collect      string `yaml:"collect"`       // "steps" or "final"
	CollectAgent bool   `yaml:"collect_agent"` // also record per-agent wealth rows
	Workers      int    `yaml:"workers"`       // parallel trial workers (0 = GOMAXPROCS)
	Seed         int64  `yaml:"seed"`          // base RNG seed (0 = time-based)
}

// sweepKeys are the parameter names that may be swept.
var sweepKeys = map[string]bool{
	"init_people":     true,
	"rich_threshold":  true,
	"trade_threshold": true,
	"reserve_percent": true,
	"width":           true,
	"height":          true,
}

// ValidationError reports an invalid configuration value. Validation runs
// before any trial starts; a failure aborts the whole batch.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Model and run fields merge over the defaults field by field, but
		// a sweep section in the file replaces the default sweep wholesale.
		// yaml merges maps key by key, which would silently combine the
		// file's swept parameters with the default ones and multiply the
		// combination space.
		var overlay Config
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if overlay.Sweep != nil {
			cfg.Sweep = nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks all parameters. The returned error is a *ValidationError
// naming the first offending field.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.Run.Iterations <= 0 {
		return &ValidationError{"run.iterations", "must be positive"}
	}
	if c.Run.Steps <= 0 {
		return &ValidationError{"run.steps", "must be positive"}
	}
	if c.Run.Collect != CollectSteps && c.Run.Collect != CollectFinal {
		return &ValidationError{"run.collect", fmt.Sprintf("must be %q or %q", CollectSteps, CollectFinal)}
	}
	if c.Run.Workers < 0 {
		return &ValidationError{"run.workers", "must be non-negative"}
	}
	for _, key := range c.SweepKeys() {
		if !sweepKeys[key] {
			return &ValidationError{"sweep." + key, "unrecognized parameter"}
		}
		if len(c.Sweep[key]) == 0 {
			return &ValidationError{"sweep." + key, "empty value list"}
		}
	}
	// Every swept value must individually satisfy the model constraints.
	for _, key := range c.SweepKeys() {
		for _, v := range c.Sweep[key] {
			mc := c.Model
			if err := mc.Set(key, v); err != nil {
				return err
			}
			if err := mc.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks the model parameters.
func (m *ModelConfig) Validate() error {
	if m.InitPeople <= 0 {
		return &ValidationError{"model.init_people", "must be positive"}
	}
	if m.ReservePercent < 0 || m.ReservePercent > 100 {
		return &ValidationError{"model.reserve_percent", "must be in [0, 100]"}
	}
	if m.Width <= 0 || m.Height <= 0 {
		return &ValidationError{"model.width/height", "grid dimensions must be positive"}
	}
	return nil
}

// Set assigns a parameter by its sweep key name.
func (m *ModelConfig) Set(key string, value int) error {
	switch key {
	case "init_people":
		m.InitPeople = value
	case "rich_threshold":
		m.RichThreshold = value
	case "trade_threshold":
		m.TradeThreshold = value
	case "reserve_percent":
		m.ReservePercent = value
	case "width":
		m.Width = value
	case "height":
		m.Height = value
	default:
		return &ValidationError{"sweep." + key, "unrecognized parameter"}
	}
	return nil
}

// SweepKeys returns the swept parameter names in sorted order. Cartesian
// enumeration iterates this, never the map, so combination order is stable.
func (c *Config) SweepKeys() []string {
	keys := make([]string, 0, len(c.Sweep))
	for k := range c.Sweep {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
