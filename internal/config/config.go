// Package config holds the run configuration for the tagging pipeline.
// Values come from an optional YAML file, overridden by CLI flags; API keys
// may also come from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of a tagging run.
type Config struct {
	// Paths
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Taxonomy string `yaml:"taxonomy"`
	Schema   string `yaml:"schema"`

	// Remote service
	Provider string `yaml:"provider"` // openai or gemini
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"` // Go duration string, e.g. "2m"

	// Execution
	Mode        string `yaml:"mode"` // sequential, concurrent, batch
	Concurrency int    `yaml:"concurrency"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`

	// Filtering
	EDHOnly   bool     `yaml:"edh_only"`
	Colors    []string `yaml:"colors"`
	Colorless bool     `yaml:"colorless"`

	// Output behavior
	Resume    bool `yaml:"resume"`
	SplitSize int  `yaml:"split_size"` // successes per file, 0 = disabled
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Input:       "data/scryfall_oracle.json",
		Output:      "output/tagged_cards.jsonl",
		Taxonomy:    "taxonomy.slim.yaml",
		Schema:      "card_tag.slim.schema.json",
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Timeout:     "2m",
		Mode:        "sequential",
		Concurrency: 10,
		BatchSize:   10,
		MaxRetries:  5,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

var validColors = map[string]bool{"W": true, "U": true, "B": true, "R": true, "G": true}

// Validate checks the configuration before any processing begins.
// Validation failures are fatal.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Taxonomy == "" || c.Schema == "" {
		return fmt.Errorf("taxonomy and schema paths are required")
	}
	switch c.Mode {
	case "sequential", "concurrent", "batch":
	default:
		return fmt.Errorf("unknown execution mode %q", c.Mode)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.SplitSize < 0 {
		return fmt.Errorf("split size must not be negative")
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}
	for _, col := range c.Colors {
		if !validColors[col] {
			return fmt.Errorf("invalid color %q (expected one of W U B R G)", col)
		}
	}
	return nil
}

// RequestTimeout parses the configured per-request timeout, falling back to
// two minutes when unset or unparseable.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
