package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL             string
	MaxPagesPerCategory int
	Workers             int
	HostParallelism     int
	Delay               time.Duration
	RandomDelay         time.Duration
	Timeout             time.Duration
	MaxRetries          int
	RetryBackoff        time.Duration
	RetryBackoffMax     time.Duration
	RepeatWindow        int
	BatchSize           int
	OutputFile          string
	OutputFormat        string // csv, json, dual, or sqlite
	ReportFile          string
	UserAgent           string
	MetricsAddr         string
	Verbose             bool
	RespectRobotsTxt    bool
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             "http://books.toscrape.com/",
		MaxPagesPerCategory: 100,
		Workers:             1,
		HostParallelism:     1,
		Delay:               time.Second,
		RandomDelay:         0,
		Timeout:             10 * time.Second,
		MaxRetries:          2,
		RetryBackoff:        200 * time.Millisecond,
		RetryBackoffMax:     2 * time.Second,
		RepeatWindow:        16,
		BatchSize:           64,
		OutputFile:          "multi_category_books.csv",
		OutputFormat:        "csv",
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:             false,
		RespectRobotsTxt:    false,
	}
}

// BaseHost returns the host of the configured base URL.
func (c *Config) BaseHost() (string, error) {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("base url must include a host")
	}
	return parsed.Hostname(), nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if c.MaxPagesPerCategory <= 0 {
		return fmt.Errorf("max pages per category must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.HostParallelism <= 0 {
		return fmt.Errorf("host parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.RepeatWindow <= 0 {
		return fmt.Errorf("repeat window must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
