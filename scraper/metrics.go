package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	PagesFetchedTotal  prometheus.Counter
	ItemsExtracted     prometheus.Counter
	RowFailuresTotal   prometheus.Counter
	RowsDroppedTotal   *prometheus.CounterVec
	RetriesTotal       prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	CategoriesByStatus *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_fetched_total",
			Help: "Total listing pages fetched successfully.",
		},
	)
	items := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_items_extracted_total",
			Help: "Total raw items extracted from listing pages.",
		},
	)
	rowFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_row_extraction_failures_total",
			Help: "Total item blocks skipped for missing fields.",
		},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_rows_dropped_total",
			Help: "Total rows dropped during normalization by reason.",
		},
		[]string{"reason"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	categories := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_categories_total",
			Help: "Categories walked, by terminal stop reason.",
		},
		[]string{"stop"},
	)

	registry.MustRegister(requests, requestDuration, pages, items, rowFailures, dropped, retries, errorsTotal, categories)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		PagesFetchedTotal:  pages,
		ItemsExtracted:     items,
		RowFailuresTotal:   rowFailures,
		RowsDroppedTotal:   dropped,
		RetriesTotal:       retries,
		ErrorsTotal:        errorsTotal,
		CategoriesByStatus: categories,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPages increments the fetched pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

// AddItems records items and row failures from one listing page.
func (m *Metrics) AddItems(items, failures int) {
	if m == nil {
		return
	}
	m.ItemsExtracted.Add(float64(items))
	m.RowFailuresTotal.Add(float64(failures))
}

// AddDropped records rows dropped during normalization.
func (m *Metrics) AddDropped(reason string, n int) {
	if m == nil {
		return
	}
	m.RowsDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCategory records a finished category walk.
func (m *Metrics) IncCategory(stop string) {
	if m == nil {
		return
	}
	m.CategoriesByStatus.WithLabelValues(stop).Inc()
}
