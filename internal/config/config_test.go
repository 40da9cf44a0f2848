package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Defaults.Price != 180 || cfg.Defaults.Allocation != 50.0 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Defaults.InitialBatch != 80 || cfg.Defaults.FinalBatch != 50 {
		t.Errorf("batch defaults = %+v", cfg.Defaults)
	}
	if cfg.Storage.MasterPath != filepath.Join("./data", "Master.xlsx") {
		t.Errorf("master path = %q", cfg.Storage.MasterPath)
	}
	if cfg.Storage.JournalPath != filepath.Join("./data", "opsledger.db") {
		t.Errorf("journal path = %q", cfg.Storage.JournalPath)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	src := `
storage:
  data_dir: /srv/opsledger
  master_path: /srv/opsledger/master.db
defaults:
  price: 200
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.MasterPath != "/srv/opsledger/master.db" {
		t.Errorf("master path = %q", cfg.Storage.MasterPath)
	}
	if cfg.Defaults.Price != 200 {
		t.Errorf("price default = %v", cfg.Defaults.Price)
	}
	// Unset fields keep built-in defaults.
	if cfg.Defaults.Allocation != 50.0 {
		t.Errorf("allocation default = %v", cfg.Defaults.Allocation)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Storage.JournalPath != filepath.Join("/srv/opsledger", "opsledger.db") {
		t.Errorf("journal path = %q", cfg.Storage.JournalPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPSLEDGER_DATA_DIR", "/tmp/override")
	t.Setenv("OPSLEDGER_DEFAULT_PRICE", "95")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.DataDir != "/tmp/override" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Defaults.Price != 95 {
		t.Errorf("price = %v", cfg.Defaults.Price)
	}
	if cfg.Storage.MasterPath != filepath.Join("/tmp/override", "Master.xlsx") {
		t.Errorf("master path = %q", cfg.Storage.MasterPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
