// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/alienxp03/mealjury/internal/calibrate"
	"github.com/alienxp03/mealjury/internal/compare"
	"github.com/alienxp03/mealjury/internal/core"
	"github.com/alienxp03/mealjury/internal/debate"
)

// Config represents the application configuration.
type Config struct {
	Defaults    DefaultsConfig     `yaml:"defaults"`
	Weights     map[string]float64 `yaml:"weights,omitempty"`
	Calibration CalibrationConfig  `yaml:"calibration"`
	Server      ServerConfig       `yaml:"server,omitempty"`
}

// DefaultsConfig holds the estimation pipeline settings.
type DefaultsConfig struct {
	VarianceThreshold float64 `yaml:"variance_threshold"`
	MaxDebateRounds   int     `yaml:"max_debate_rounds"`
}

// CalibrationConfig holds the calibration learner settings.
type CalibrationConfig struct {
	MinCorrections int           `yaml:"min_corrections"`
	MinConfidence  float64       `yaml:"min_confidence"`
	Priors         []PriorConfig `yaml:"priors,omitempty"`
}

// PriorConfig seeds a correction pattern at startup.
type PriorConfig struct {
	Category string  `yaml:"category"`
	Factor   float64 `yaml:"factor"`
	Count    int     `yaml:"count"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns the default configuration.
func Default() *Config {
	weights := make(map[string]float64)
	for source, w := range compare.DefaultWeights() {
		weights[string(source)] = w
	}

	var priors []PriorConfig
	for _, p := range calibrate.DefaultPriors() {
		priors = append(priors, PriorConfig{Category: p.Category, Factor: p.Factor, Count: p.Count})
	}

	return &Config{
		Defaults: DefaultsConfig{
			VarianceThreshold: compare.DefaultThreshold,
			MaxDebateRounds:   debate.DefaultMaxRounds,
		},
		Weights: weights,
		Calibration: CalibrationConfig{
			MinCorrections: calibrate.DefaultMinCount,
			MinConfidence:  calibrate.DefaultMinConfidence,
			Priors:         priors,
		},
		Server: ServerConfig{
			Port: 8186,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Backfill anything the file left out
	defaults := Default()
	if cfg.Defaults.VarianceThreshold <= 0 {
		cfg.Defaults.VarianceThreshold = defaults.Defaults.VarianceThreshold
	}
	if cfg.Defaults.MaxDebateRounds <= 0 {
		cfg.Defaults.MaxDebateRounds = defaults.Defaults.MaxDebateRounds
	}
	if len(cfg.Weights) == 0 {
		cfg.Weights = defaults.Weights
	}
	if cfg.Calibration.MinCorrections <= 0 {
		cfg.Calibration.MinCorrections = defaults.Calibration.MinCorrections
	}
	if cfg.Calibration.MinConfidence <= 0 {
		cfg.Calibration.MinConfidence = defaults.Calibration.MinConfidence
	}
	if cfg.Calibration.Priors == nil {
		cfg.Calibration.Priors = defaults.Calibration.Priors
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = defaults.Server.Port
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SourceWeights converts the configured weight map to typed sources.
// Unknown source names are dropped; the comparator rejects unknown
// sources on its own inputs.
func (c *Config) SourceWeights() map[core.Source]float64 {
	weights := make(map[core.Source]float64, len(c.Weights))
	for name, w := range c.Weights {
		source := core.Source(name)
		if source.Known() {
			weights[source] = w
		}
	}
	return weights
}

// Priors converts the configured priors for the calibration learner.
func (c *Config) Priors() []calibrate.Prior {
	priors := make([]calibrate.Prior, 0, len(c.Calibration.Priors))
	for _, p := range c.Calibration.Priors {
		priors = append(priors, calibrate.Prior{Category: p.Category, Factor: p.Factor, Count: p.Count})
	}
	return priors
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mealjury.yaml"
	}
	return filepath.Join(home, ".mealjury", "config.yaml")
}

// GenerateExample generates an example configuration file.
func GenerateExample() string {
	example := `# mealjury configuration file
# Place this file at ~/.mealjury/config.yaml

defaults:
  variance_threshold: 0.30  # Coefficient of variation above which estimates debate
  max_debate_rounds: 2      # One argument round plus rebuttal rounds

# Per-source reliability weights for the weighted consensus
weights:
  reference_db: 2.0         # Lab data trusted twice as much as a vision guess
  validator: 1.5
  vision_model: 1.0
  text_parser: 1.0

calibration:
  min_corrections: 3        # Corrections needed before a learned factor applies
  min_confidence: 0.3
  priors:                   # Seeded biases, applied without real corrections
    - category: salad_greens
      factor: 0.6
      count: 5
    - category: restaurant_fast_food
      factor: 1.15
      count: 5

server:
  port: 8186
`
	return example
}
