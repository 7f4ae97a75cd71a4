package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/catalog-scraper/config"
	"github.com/gocolly/colly/v2"
)

// Page is a successfully fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// PageFetcher retrieves a single document.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Fetcher issues GET requests through a shared colly backend. The limit rule
// caps concurrent requests to the target host and spaces them by the
// configured delay.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics

	requestCount int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	host, err := cfg.BaseHost()
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	// Only one host is allowed, so a catch-all rule is a per-host rule.
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.HostParallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &Fetcher{
		collector:    collector,
		metrics:      metrics,
		errorsByType: make(map[string]int),
	}, nil
}

// WithTransport replaces the HTTP transport used for every request.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch retrieves url. A non-200 status yields *PageUnavailableError and a
// network failure yields *TransportError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()

	var (
		page    *Page
		failure error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest("started")
	})
	c.OnResponse(func(r *colly.Response) {
		f.observe(r.Request)
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
			f.observe(r.Request)
		}
		failure = classifyError(url, err, status)
	})

	visitErr := c.Visit(url)
	switch {
	case failure != nil:
	case page != nil && page.StatusCode != http.StatusOK:
		failure = &PageUnavailableError{URL: url, StatusCode: page.StatusCode}
	case page == nil && visitErr != nil:
		// Rejected before any request was sent, e.g. a foreign domain.
		f.recordError(visitErr)
		return nil, fmt.Errorf("visit %s: %w", url, visitErr)
	case page == nil:
		failure = &TransportError{URL: url, Kind: KindOther, Err: fmt.Errorf("no response")}
	}

	if failure != nil {
		f.recordError(failure)
		f.metrics.IncRequest("failed")
		slog.Debug("fetch failed",
			slog.String("url", url),
			slog.String("category", errorTypeLabel(failure)),
			slog.Any("error", failure),
		)
		return nil, failure
	}

	f.metrics.IncRequest("completed")
	return page, nil
}

// RequestCount returns the number of requests sent so far.
func (f *Fetcher) RequestCount() int {
	return int(atomic.LoadInt64(&f.requestCount))
}

// ErrorsByType returns a snapshot of fetch errors keyed by label.
func (f *Fetcher) ErrorsByType() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		out[k] = v
	}
	return out
}

func (f *Fetcher) observe(r *colly.Request) {
	if r == nil || r.Ctx == nil {
		return
	}
	if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
		f.metrics.ObserveDuration(time.Since(start))
	}
}

func (f *Fetcher) recordError(err error) {
	label := errorTypeLabel(err)
	f.mu.Lock()
	f.errorsByType[label]++
	f.mu.Unlock()
	f.metrics.IncError(label)
}
