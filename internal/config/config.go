// Package config defines the pipeline configuration: storage
// locations, the four attribute defaults, and logging. Components
// receive the struct explicitly; there is no process-wide mutable
// state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Defaults Defaults `yaml:"defaults"`
	Rules    string   `yaml:"rules"`
	Remote   string   `yaml:"remote"`
	Logging  Logging  `yaml:"logging"`
}

// Storage holds data locations.
type Storage struct {
	// DataDir is the folder snapshots arrive in.
	DataDir string `yaml:"data_dir"`
	// MasterPath is the master store location; the extension selects
	// the backend (.xlsx or a SQLite database path).
	MasterPath string `yaml:"master_path"`
	// JournalPath is the run journal database.
	JournalPath string `yaml:"journal_path"`
}

// Defaults are the attribute values in effect before the first
// ledger update of each kind.
type Defaults struct {
	Price        float64 `yaml:"price"`
	Allocation   float64 `yaml:"allocation"`
	InitialBatch float64 `yaml:"initial_batch"`
	FinalBatch   float64 `yaml:"final_batch"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir: "./data",
		},
		Defaults: Defaults{
			Price:        180,
			Allocation:   50.0,
			InitialBatch: 80,
			FinalBatch:   50,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the YAML configuration at path, or the built-in
// defaults when path is empty, then applies environment overrides
// and fills derived paths.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	fillDerived(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPSLEDGER_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("OPSLEDGER_MASTER_PATH"); v != "" {
		cfg.Storage.MasterPath = v
	}
	if v := os.Getenv("OPSLEDGER_JOURNAL_PATH"); v != "" {
		cfg.Storage.JournalPath = v
	}
	if v := os.Getenv("OPSLEDGER_REMOTE"); v != "" {
		cfg.Remote = v
	}
	if v := os.Getenv("OPSLEDGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPSLEDGER_DEFAULT_PRICE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Defaults.Price = f
		}
	}
	if v := os.Getenv("OPSLEDGER_DEFAULT_ALLOCATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Defaults.Allocation = f
		}
	}
}

func fillDerived(cfg *Config) {
	if cfg.Storage.MasterPath == "" {
		cfg.Storage.MasterPath = filepath.Join(cfg.Storage.DataDir, "Master.xlsx")
	}
	if cfg.Storage.JournalPath == "" {
		cfg.Storage.JournalPath = filepath.Join(cfg.Storage.DataDir, "opsledger.db")
	}
}
