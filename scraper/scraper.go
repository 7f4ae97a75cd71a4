package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aluiziolira/catalog-scraper/config"
	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/aluiziolira/catalog-scraper/parser"
	"github.com/aluiziolira/catalog-scraper/pipeline"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Scraper discovers categories, walks them, and feeds the pipeline.
type Scraper struct {
	cfg     *config.Config
	base    *url.URL
	fetcher *Fetcher
	retry   *retrier
	walker  *Walker
	Metrics *Metrics
	RunID   string
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	retry := newRetrier(cfg, metrics)

	return &Scraper{
		cfg:     cfg,
		base:    base,
		fetcher: fetcher,
		retry:   retry,
		walker:  newWalker(fetcher, retry, metrics, cfg.MaxPagesPerCategory, cfg.RepeatWindow),
		Metrics: metrics,
		RunID:   uuid.NewString(),
	}, nil
}

// Fetcher exposes the underlying fetcher, mainly to swap its transport.
func (s *Scraper) Fetcher() *Fetcher {
	return s.fetcher
}

// Run discovers categories, walks each one, and sends the merged raw items
// through p. Category failures are recorded in the summary and do not stop
// the run; an unreachable or unparseable index page does.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	summary := &models.RunSummary{
		RunID:       s.RunID,
		StartTime:   time.Now(),
		OutputFile:  s.cfg.OutputFile,
		DropReasons: map[string]int{},
		StopReasons: map[models.StopReason]int{},
	}
	defer s.finalize(summary)

	categories, err := s.discover(ctx)
	if err != nil {
		return summary, err
	}
	summary.CategoriesDiscovered = len(categories)
	slog.Info("categories discovered", slog.Int("count", len(categories)))

	results, err := s.walkAll(ctx, categories)
	if err != nil {
		return summary, err
	}

	raw := s.merge(results, summary)
	if summary.CategoriesProcessed == 0 {
		return summary, ErrAllCategoriesFailed
	}

	out, err := p.Process(ctx, raw)
	if out != nil {
		summary.RowsDropped = out.Dropped
		summary.RowsWritten = out.Written
		for reason, n := range out.DropReasons {
			summary.DropReasons[reason] = n
			s.Metrics.AddDropped(reason, n)
		}
	}
	if err != nil {
		return summary, fmt.Errorf("process dataset: %w", err)
	}
	return summary, nil
}

func (s *Scraper) discover(ctx context.Context) ([]models.Category, error) {
	indexURL := s.base.String()
	page, _, err := s.retry.Do(ctx, indexURL, func() (*Page, error) {
		return s.fetcher.Fetch(ctx, indexURL)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	categories, err := parser.ParseIndex(bytes.NewReader(page.Body), s.base)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", indexURL, err)
	}
	return categories, nil
}

// walkAll walks categories on a bounded pool. Results keep input order.
func (s *Scraper) walkAll(ctx context.Context, categories []models.Category) ([]*models.CategoryResult, error) {
	results := make([]*models.CategoryResult, len(categories))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, category := range categories {
		g.Go(func() error {
			results[i] = s.walker.Walk(ctx, category)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("walk categories: %w", err)
	}
	return results, ctx.Err()
}

func (s *Scraper) merge(results []*models.CategoryResult, summary *models.RunSummary) []models.RawItem {
	total := 0
	for _, r := range results {
		total += len(r.Items)
	}

	raw := make([]models.RawItem, 0, total)
	for _, r := range results {
		summary.PagesFetched += r.Pages
		summary.RowFailures += r.RowFailures
		summary.StopReasons[r.Stop]++
		if r.Failed() {
			summary.FailedCategories = append(summary.FailedCategories, models.CategoryFailure{
				Name:   r.Category.Name,
				Reason: r.Stop,
				Error:  r.Err.Error(),
			})
		} else {
			summary.CategoriesProcessed++
		}
		// Pages walked before a transport failure are kept.
		raw = append(raw, r.Items...)
	}
	summary.RowsExtracted = len(raw)
	return raw
}

func (s *Scraper) finalize(summary *models.RunSummary) {
	summary.EndTime = time.Now()
	summary.RetryCount = s.retry.TotalRetries()
	summary.RequestCount = s.fetcher.RequestCount()
	summary.ErrorsByType = s.fetcher.ErrorsByType()
}
