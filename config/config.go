// Package config provides configuration loading and management for semsum.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semsum/export"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

// Config represents the complete semsum configuration
type Config struct {
	Mining  MiningConfig  `yaml:"mining"`
	Summary SummaryConfig `yaml:"summary"`
	Output  OutputConfig  `yaml:"output"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
}

// MiningConfig configures the pattern miner
type MiningConfig struct {
	// K is the number of patterns to mine (default: 100)
	K int `yaml:"k"`
	// EpsilonRow is the row noise tolerance (default: 0.6)
	EpsilonRow float64 `yaml:"epsilon_row"`
	// EpsilonCol is the column noise tolerance (default: 0.6)
	EpsilonCol float64 `yaml:"epsilon_col"`
	// Miner is the external miner command; {k}, {epsilon_row} and
	// {epsilon_col} are substituted in its arguments
	Miner []string `yaml:"miner"`
	// Timeout bounds a single miner run (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`
	// Workers bounds concurrent summarizations in batch mode
	Workers int `yaml:"workers"`
}

// SummaryConfig configures summary graph generation
type SummaryConfig struct {
	// BaseIRI is the namespace pattern and placeholder IRIs are minted in
	BaseIRI string `yaml:"base_iri"`
}

// OutputConfig configures serialization
type OutputConfig struct {
	// Format is turtle, ntriples or jsonld
	Format string `yaml:"format"`
	// DumpDir receives matrix/feature/subject/pattern dumps when set
	DumpDir string `yaml:"dump_dir"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = NATS disabled)
	URL string `yaml:"url"`
	// Publish sends summary entities to the graph ingest subject
	Publish bool `yaml:"publish"`
	// Archive stores run records in the JetStream KV bucket
	Archive bool `yaml:"archive"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is the quiet period before a changed file is re-summarized
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	params := pattern.DefaultParams()
	return &Config{
		Mining: MiningConfig{
			K:          params.K,
			EpsilonRow: params.EpsilonRow,
			EpsilonCol: params.EpsilonCol,
			Timeout:    10 * time.Minute,
			Workers:    4,
		},
		Summary: SummaryConfig{
			BaseIRI: semsum.DefaultBase,
		},
		Output: OutputConfig{
			Format: string(export.FormatTurtle),
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Params returns the mining parameters.
func (c *Config) Params() pattern.Params {
	return pattern.Params{
		K:          c.Mining.K,
		EpsilonRow: c.Mining.EpsilonRow,
		EpsilonCol: c.Mining.EpsilonCol,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("mining: %w", err)
	}
	if c.Mining.Workers < 1 {
		return fmt.Errorf("mining.workers must be at least 1")
	}
	if c.Mining.Timeout < 0 {
		return fmt.Errorf("mining.timeout must not be negative")
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if (c.NATS.Publish || c.NATS.Archive) && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when publish or archive is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// loadOverlay reads a YAML file onto a zero Config so Merge only sees the
// fields the file sets.
func loadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Mining
	if other.Mining.K != 0 {
		c.Mining.K = other.Mining.K
	}
	if other.Mining.EpsilonRow != 0 {
		c.Mining.EpsilonRow = other.Mining.EpsilonRow
	}
	if other.Mining.EpsilonCol != 0 {
		c.Mining.EpsilonCol = other.Mining.EpsilonCol
	}
	if len(other.Mining.Miner) > 0 {
		c.Mining.Miner = other.Mining.Miner
	}
	if other.Mining.Timeout != 0 {
		c.Mining.Timeout = other.Mining.Timeout
	}
	if other.Mining.Workers != 0 {
		c.Mining.Workers = other.Mining.Workers
	}

	// Summary
	if other.Summary.BaseIRI != "" {
		c.Summary.BaseIRI = other.Summary.BaseIRI
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.DumpDir != "" {
		c.Output.DumpDir = other.Output.DumpDir
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Publish {
		c.NATS.Publish = true
	}
	if other.NATS.Archive {
		c.NATS.Archive = true
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
