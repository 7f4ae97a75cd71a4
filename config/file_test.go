package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `base_url: http://mirror.test/
output_path: data/books.csv
request_delay_seconds: 0
max_pages_per_category: 5
max_retries: 4
workers: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://mirror.test/" {
		t.Fatalf("base url=%q", cfg.BaseURL)
	}
	if cfg.OutputFile != "data/books.csv" {
		t.Fatalf("output=%q", cfg.OutputFile)
	}
	if cfg.Delay != 0 {
		t.Fatalf("delay=%v, want 0", cfg.Delay)
	}
	if cfg.MaxPagesPerCategory != 5 || cfg.MaxRetries != 4 || cfg.Workers != 2 {
		t.Fatalf("ints not applied: %+v", cfg)
	}
	if cfg.Timeout != DefaultConfig().Timeout {
		t.Fatalf("unset keys should keep defaults, timeout=%v", cfg.Timeout)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_retries: [1, 2"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileApplyNil(t *testing.T) {
	cfg := DefaultConfig()
	var f *File
	f.Apply(cfg)
	if cfg.Delay != time.Second {
		t.Fatalf("nil file should not change config")
	}
}
