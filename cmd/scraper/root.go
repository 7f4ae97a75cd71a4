package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/catalog-scraper/config"
	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/aluiziolira/catalog-scraper/pipeline"
	"github.com/aluiziolira/catalog-scraper/report"
	"github.com/aluiziolira/catalog-scraper/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCmd creates the scraper command.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Scrape every category of a paginated catalog into a dataset",
		Long: `Scraper reads the category index of the target site, walks each
category's listing pages, normalizes price and rating, and writes one
dataset file. Category failures are logged and skipped; the run only fails
when the index page cannot be fetched or parsed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ApplyEnv(); err != nil {
				return fmt.Errorf("invalid environment: %w", err)
			}
			if err := applyFlags(cmd.Flags(), cfg); err != nil {
				return err
			}

			logger, level := newLogger(cfg.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := run(ctx, cfg, nil)
			if summary != nil {
				printSummary(cmd, summary)
				if cfg.ReportFile != "" {
					if reportErr := report.WriteFile(cfg.ReportFile, summary); reportErr != nil {
						slog.Error("write report", slog.Any("error", reportErr))
					}
				}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "YAML config file (default "+config.XDGConfigPath()+" if present)")
	flags.String("base-url", defaults.BaseURL, "Base URL of the catalog")
	flags.StringP("output", "o", defaults.OutputFile, "Output file path")
	flags.String("format", defaults.OutputFormat, "Output format: csv, json, dual, or sqlite")
	flags.String("report", "", "Write a Markdown run report to this path")
	flags.Float64("delay", defaults.Delay.Seconds(), "Delay between requests (seconds, 0 disables)")
	flags.Int("random-delay", 0, "Random jitter added to delay (milliseconds)")
	flags.Int("max-pages", defaults.MaxPagesPerCategory, "Maximum listing pages per category")
	flags.Int("max-retries", defaults.MaxRetries, "Maximum retry attempts per URL on network errors")
	flags.Int("retry-backoff", int(defaults.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	flags.Int("retry-backoff-max", int(defaults.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	flags.Float64("timeout", defaults.Timeout.Seconds(), "Per-request timeout (seconds)")
	flags.Int("workers", defaults.Workers, "Categories walked concurrently")
	flags.Int("host-parallel", defaults.HostParallelism, "Concurrent requests allowed to the target host")
	flags.String("user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	flags.Bool("respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	flags.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")

	return cmd
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "base-url":
			cfg.BaseURL, err = flags.GetString(f.Name)
		case "output":
			cfg.OutputFile, err = flags.GetString(f.Name)
		case "format":
			var format string
			format, err = flags.GetString(f.Name)
			cfg.OutputFormat = strings.ToLower(format)
		case "report":
			cfg.ReportFile, err = flags.GetString(f.Name)
		case "delay":
			var seconds float64
			seconds, err = flags.GetFloat64(f.Name)
			cfg.Delay = config.Seconds(seconds)
		case "random-delay":
			cfg.RandomDelay, err = millis(flags, f.Name)
		case "max-pages":
			cfg.MaxPagesPerCategory, err = flags.GetInt(f.Name)
		case "max-retries":
			cfg.MaxRetries, err = flags.GetInt(f.Name)
		case "retry-backoff":
			cfg.RetryBackoff, err = millis(flags, f.Name)
		case "retry-backoff-max":
			cfg.RetryBackoffMax, err = millis(flags, f.Name)
		case "timeout":
			var seconds float64
			seconds, err = flags.GetFloat64(f.Name)
			cfg.Timeout = config.Seconds(seconds)
		case "workers":
			cfg.Workers, err = flags.GetInt(f.Name)
		case "host-parallel":
			cfg.HostParallelism, err = flags.GetInt(f.Name)
		case "user-agent":
			cfg.UserAgent, err = flags.GetString(f.Name)
		case "respect-robots":
			cfg.RespectRobotsTxt, err = flags.GetBool(f.Name)
		case "metrics-addr":
			cfg.MetricsAddr, err = flags.GetString(f.Name)
		case "verbose":
			cfg.Verbose, err = flags.GetBool(f.Name)
		}
	})
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}

func millis(flags *pflag.FlagSet, name string) (time.Duration, error) {
	ms, err := flags.GetInt(name)
	return time.Duration(ms) * time.Millisecond, err
}

// run scrapes with cfg. transport replaces the HTTP transport when non-nil.
func run(ctx context.Context, cfg *config.Config, transport http.RoundTripper) (*models.RunSummary, error) {
	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising scraper: %w", err)
	}
	if transport != nil {
		s.Fetcher().WithTransport(transport)
	}
	slog.SetDefault(slog.Default().With(slog.String("run_id", s.RunID)))

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("max_pages", cfg.MaxPagesPerCategory),
		slog.Int("workers", cfg.Workers),
		slog.Duration("delay", cfg.Delay),
	)

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("creating writer: %w", err)
	}
	p := pipeline.NewPipeline(writer, cfg)

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	summary, err := s.Run(ctx, p)
	if err != nil {
		if abortErr := p.Abort(); abortErr != nil {
			slog.Error("discard output", slog.Any("error", abortErr))
		}
		if errors.Is(err, context.Canceled) {
			slog.Info("scrape cancelled, output left untouched")
		}
		return summary, fmt.Errorf("scraping failed: %w", err)
	}

	if err := p.Close(); err != nil {
		return summary, fmt.Errorf("pipeline shutdown failed: %w", err)
	}

	for _, failure := range summary.FailedCategories {
		slog.Warn("category failed",
			slog.String("category", failure.Name),
			slog.String("stop", string(failure.Reason)),
			slog.String("error", failure.Error),
		)
	}
	return summary, nil
}

func printSummary(cmd *cobra.Command, summary *models.RunSummary) {
	out := cmd.OutOrStdout()
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	fmt.Fprintln(out, "Scrape summary")

	itemsPerSec := 0.0
	if d := summary.Duration().Seconds(); d > 0 {
		itemsPerSec = float64(summary.RowsWritten) / d
	}

	fmt.Fprintf(out, "  Total products: %d\n", summary.RowsWritten)
	fmt.Fprintf(out, "  Categories:     %d/%d\n", summary.CategoriesProcessed, summary.CategoriesDiscovered)
	fmt.Fprintf(out, "  Pages fetched:  %d\n", summary.PagesFetched)
	fmt.Fprintf(out, "  Rows extracted: %d\n", summary.RowsExtracted)
	fmt.Fprintf(out, "  Rows skipped:   %d\n", summary.RowFailures)
	fmt.Fprintf(out, "  Rows dropped:   %d\n", summary.RowsDropped)
	if len(summary.DropReasons) > 0 {
		fmt.Fprintf(out, "  Drop reasons:   %v\n", summary.DropReasons)
	}
	fmt.Fprintf(out, "  Requests:       %d\n", summary.RequestCount)
	fmt.Fprintf(out, "  Retries:        %d\n", summary.RetryCount)
	if len(summary.ErrorsByType) > 0 {
		fmt.Fprintf(out, "  Error types:    %v\n", summary.ErrorsByType)
	}
	if len(summary.FailedCategories) > 0 {
		fmt.Fprintf(out, "  Failed:         %d categories\n", len(summary.FailedCategories))
	}
	fmt.Fprintf(out, "  Duration:       %v\n", summary.Duration())
	fmt.Fprintf(out, "  Items/sec:      %.2f\n", itemsPerSec)
	fmt.Fprintf(out, "  Output file:    %s\n", summary.OutputFile)
	fmt.Fprintln(out, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
