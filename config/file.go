package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG config directory.
const AppName = "catalog-scraper"

// DefaultConfigFile is the config file name looked up under the XDG config dir.
const DefaultConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File mirrors the YAML configuration. Unset keys leave the current value alone.
type File struct {
	BaseURL             *string  `yaml:"base_url"`
	OutputPath          *string  `yaml:"output_path"`
	OutputFormat        *string  `yaml:"output_format"`
	ReportPath          *string  `yaml:"report_path"`
	RequestDelaySeconds *float64 `yaml:"request_delay_seconds"`
	RandomDelaySeconds  *float64 `yaml:"random_delay_seconds"`
	TimeoutSeconds      *float64 `yaml:"timeout_seconds"`
	MaxPagesPerCategory *int     `yaml:"max_pages_per_category"`
	MaxRetries          *int     `yaml:"max_retries"`
	Workers             *int     `yaml:"workers"`
	HostParallelism     *int     `yaml:"host_parallelism"`
	UserAgent           *string  `yaml:"user_agent"`
	MetricsAddr         *string  `yaml:"metrics_addr"`
	RespectRobotsTxt    *bool    `yaml:"respect_robots_txt"`
}

// XDGConfigPath returns the default config file location.
// On Linux: ~/.config/catalog-scraper/config.yaml
func XDGConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, DefaultConfigFile)
}

// LoadFile reads a YAML config file. A missing file yields ErrConfigNotFound.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &f, nil
}

// Apply overlays the values present in f onto c.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.BaseURL != nil {
		c.BaseURL = *f.BaseURL
	}
	if f.OutputPath != nil {
		c.OutputFile = *f.OutputPath
	}
	if f.OutputFormat != nil {
		c.OutputFormat = strings.ToLower(*f.OutputFormat)
	}
	if f.ReportPath != nil {
		c.ReportFile = *f.ReportPath
	}
	if f.RequestDelaySeconds != nil {
		c.Delay = Seconds(*f.RequestDelaySeconds)
	}
	if f.RandomDelaySeconds != nil {
		c.RandomDelay = Seconds(*f.RandomDelaySeconds)
	}
	if f.TimeoutSeconds != nil {
		c.Timeout = Seconds(*f.TimeoutSeconds)
	}
	if f.MaxPagesPerCategory != nil {
		c.MaxPagesPerCategory = *f.MaxPagesPerCategory
	}
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.HostParallelism != nil {
		c.HostParallelism = *f.HostParallelism
	}
	if f.UserAgent != nil {
		c.UserAgent = *f.UserAgent
	}
	if f.MetricsAddr != nil {
		c.MetricsAddr = *f.MetricsAddr
	}
	if f.RespectRobotsTxt != nil {
		c.RespectRobotsTxt = *f.RespectRobotsTxt
	}
}

// Load builds a config from defaults and the YAML file at path. An empty path
// falls back to the XDG location, which may be absent.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = XDGConfigPath()
	}

	f, err := LoadFile(path)
	switch {
	case errors.Is(err, ErrConfigNotFound) && !explicit:
		return cfg, nil
	case err != nil:
		return nil, err
	}
	f.Apply(cfg)
	return cfg, nil
}
