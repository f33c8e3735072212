// Package config loads the training pipeline configuration from YAML,
// applying defaults and validating parameter ranges.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// Config is the top-level configuration.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Train   TrainConfig   `yaml:"train"`
	Export  ExportConfig  `yaml:"export"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig controls the synthetic dataset.
type DataConfig struct {
	Samples  int   `yaml:"samples"`
	Features int   `yaml:"features"`
	Seed     int64 `yaml:"seed"`
}

// TrainConfig holds the boosting hyperparameters.
type TrainConfig struct {
	Iterations      int     `yaml:"iterations"`
	LearningRate    float64 `yaml:"learning_rate"`
	NumLeaves       int     `yaml:"num_leaves"`
	MaxDepth        int     `yaml:"max_depth"`
	MinChildSamples int     `yaml:"min_child_samples"`
	Seed            int     `yaml:"seed"`
}

// ExportConfig controls the exported artifact.
type ExportConfig struct {
	Path      string `yaml:"path"`
	InputName string `yaml:"input_name"`
	LossCurve string `yaml:"loss_curve"`
}

// StoreConfig holds the run registry settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return Parse(data)
}

// Parse parses config from raw YAML bytes, applying defaults and validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config YAML")
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Data.Samples == 0 {
		cfg.Data.Samples = 1000
	}
	if cfg.Data.Features == 0 {
		cfg.Data.Features = 20
	}
	if cfg.Data.Seed == 0 {
		cfg.Data.Seed = 42
	}
	if cfg.Train.Iterations == 0 {
		cfg.Train.Iterations = 100
	}
	if cfg.Train.LearningRate == 0 {
		cfg.Train.LearningRate = 0.1
	}
	if cfg.Train.NumLeaves == 0 {
		cfg.Train.NumLeaves = 31
	}
	if cfg.Train.MaxDepth == 0 {
		cfg.Train.MaxDepth = -1
	}
	if cfg.Train.MinChildSamples == 0 {
		cfg.Train.MinChildSamples = 20
	}
	if cfg.Train.Seed == 0 {
		cfg.Train.Seed = 42
	}
	if cfg.Export.Path == "" {
		cfg.Export.Path = "model.onnx"
	}
	if cfg.Export.InputName == "" {
		cfg.Export.InputName = "float_input"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "runs.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validate(cfg *Config) error {
	if cfg.Data.Samples < 2 {
		return errors.Newf("data.samples must be at least 2, got %d", cfg.Data.Samples)
	}
	if cfg.Data.Features < 1 {
		return errors.Newf("data.features must be at least 1, got %d", cfg.Data.Features)
	}
	if cfg.Train.Iterations < 1 {
		return errors.Newf("train.iterations must be at least 1, got %d", cfg.Train.Iterations)
	}
	if cfg.Train.LearningRate <= 0 || cfg.Train.LearningRate > 1 {
		return errors.Newf("train.learning_rate must be in (0, 1], got %f", cfg.Train.LearningRate)
	}
	if cfg.Train.NumLeaves < 2 {
		return errors.Newf("train.num_leaves must be at least 2, got %d", cfg.Train.NumLeaves)
	}
	if cfg.Train.MinChildSamples < 1 {
		return errors.Newf("train.min_child_samples must be at least 1, got %d", cfg.Train.MinChildSamples)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return errors.Newf("unsupported logging level: %s", cfg.Logging.Level)
	}
	return nil
}
