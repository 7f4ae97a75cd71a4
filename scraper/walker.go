package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/aluiziolira/catalog-scraper/parser"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Walker pages through one category until an empty page, an unavailable
// page, the page cap, or a page it has already seen.
type Walker struct {
	fetcher  PageFetcher
	retry    *retrier
	metrics  *Metrics
	maxPages int
	window   int
}

// newWalker builds a walker. maxPages bounds the pages fetched per category
// and window is how many page fingerprints are remembered per walk.
func newWalker(fetcher PageFetcher, retry *retrier, metrics *Metrics, maxPages, window int) *Walker {
	if window <= 0 {
		window = 1
	}
	return &Walker{
		fetcher:  fetcher,
		retry:    retry,
		metrics:  metrics,
		maxPages: maxPages,
		window:   window,
	}
}

// Walk collects the raw items of every listing page of category.
func (w *Walker) Walk(ctx context.Context, category models.Category) *models.CategoryResult {
	result := &models.CategoryResult{Category: category}
	logger := slog.With(slog.String("category", category.Name))

	if _, err := PageURL(category.StartURL, 2); err != nil {
		return w.finish(logger, result, models.StopInvalidURL, err)
	}

	seen, err := lru.New[uint64, int](w.window)
	if err != nil {
		return w.finish(logger, result, models.StopInvalidURL, fmt.Errorf("page window: %w", err))
	}

	for n := 1; ; n++ {
		if n > w.maxPages {
			logger.Warn("page cap reached", slog.Int("max_pages", w.maxPages))
			return w.finish(logger, result, models.StopPageCap, nil)
		}
		if err := ctx.Err(); err != nil {
			return w.finish(logger, result, models.StopCancelled, err)
		}

		pageURL, _ := PageURL(category.StartURL, n)
		logger.Info("scraping category page", slog.Int("page", n), slog.String("url", pageURL))

		page, retries, err := w.retry.Do(ctx, pageURL, func() (*Page, error) {
			return w.fetcher.Fetch(ctx, pageURL)
		})
		result.Retries += retries
		if err != nil {
			var unavailable *PageUnavailableError
			switch {
			case errors.As(err, &unavailable):
				logger.Debug("page unavailable", slog.Int("page", n), slog.Int("status", unavailable.StatusCode))
				return w.finish(logger, result, models.StopUnavailable, nil)
			case ctx.Err() != nil:
				return w.finish(logger, result, models.StopCancelled, ctx.Err())
			default:
				return w.finish(logger, result, models.StopTransportError, fmt.Errorf("fetch page %d: %w", n, err))
			}
		}
		result.Pages++
		w.metrics.IncPages()

		fingerprint := xxhash.Sum64(page.Body)
		if first, ok := seen.Get(fingerprint); ok {
			logger.Warn("page repeats an earlier page", slog.Int("page", n), slog.Int("first_seen", first))
			return w.finish(logger, result, models.StopRepeatedPage, nil)
		}
		seen.Add(fingerprint, n)

		listing, err := parser.ParseListing(category.Name, bytes.NewReader(page.Body))
		if err != nil {
			return w.finish(logger, result, models.StopParseError, fmt.Errorf("parse page %d: %w", n, err))
		}
		if listing.Empty() {
			return w.finish(logger, result, models.StopEmptyPage, nil)
		}

		for _, failure := range listing.Failures {
			logger.Debug("skipping item block", slog.Int("page", n), slog.Any("error", failure))
		}
		result.Items = append(result.Items, listing.Items...)
		result.RowFailures += len(listing.Failures)
		w.metrics.AddItems(len(listing.Items), len(listing.Failures))
	}
}

func (w *Walker) finish(logger *slog.Logger, result *models.CategoryResult, stop models.StopReason, err error) *models.CategoryResult {
	result.Stop = stop
	result.Err = err
	w.metrics.IncCategory(string(stop))

	attrs := []any{
		slog.String("stop", string(stop)),
		slog.Int("pages", result.Pages),
		slog.Int("items", len(result.Items)),
		slog.Int("row_failures", result.RowFailures),
	}
	if err != nil {
		logger.Error("category abandoned", append(attrs, slog.Any("error", err))...)
		return result
	}
	logger.Info("category complete", attrs...)
	return result
}
