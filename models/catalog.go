// Package models defines data structures for the scraper.
package models

import "time"

// Category is a named grouping of items with its own paginated listing.
type Category struct {
	Name     string `json:"name"`
	StartURL string `json:"start_url"`
}

// RawItem is one listing row as extracted from the page, before normalization.
type RawItem struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	PriceText   string `json:"price_text"`
	RatingToken string `json:"rating_token"`
}

// NormalizedItem is a RawItem with numeric price and rating.
type NormalizedItem struct {
	Category string  `json:"category"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Rating   int     `json:"rating"`
}

// Dataset is the ordered output of a run: category order, then page, then row.
type Dataset []NormalizedItem

// StopReason records why a category walk reached its terminal state.
type StopReason string

const (
	StopEmptyPage      StopReason = "empty_page"
	StopUnavailable    StopReason = "unavailable"
	StopPageCap        StopReason = "page_cap"
	StopRepeatedPage   StopReason = "repeated_page"
	StopTransportError StopReason = "transport_error"
	StopParseError     StopReason = "parse_error"
	StopInvalidURL     StopReason = "invalid_url"
	StopCancelled      StopReason = "cancelled"
)

// CategoryResult holds the outcome of walking one category.
type CategoryResult struct {
	Category    Category
	Items       []RawItem
	Pages       int
	RowFailures int
	Retries     int
	Stop        StopReason
	Err         error
}

// Failed reports whether the walk ended on an error rather than a normal stop.
func (r *CategoryResult) Failed() bool {
	return r != nil && r.Err != nil
}

// CategoryFailure is a category the run had to abandon.
type CategoryFailure struct {
	Name   string
	Reason StopReason
	Error  string
}

// RunSummary holds the overall result of a scraping run.
type RunSummary struct {
	RunID                string
	StartTime            time.Time
	EndTime              time.Time
	CategoriesDiscovered int
	CategoriesProcessed  int
	FailedCategories     []CategoryFailure
	PagesFetched         int
	RowsExtracted        int
	RowFailures          int
	RowsDropped          int
	DropReasons          map[string]int
	RowsWritten          int
	RetryCount           int
	RequestCount         int
	ErrorsByType         map[string]int
	StopReasons          map[StopReason]int
	OutputFile           string
}

// Duration returns the wall-clock time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s == nil || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
