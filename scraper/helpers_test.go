package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/catalog-scraper/config"
	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/jarcoal/httpmock"
)

const testBaseURL = "http://example.test/"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.Delay = 0
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	return cfg
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

// registerIndex serves the landing page under both spellings of the base URL.
func registerIndex(transport *httpmock.MockTransport, responder httpmock.Responder) {
	transport.RegisterResponder("GET", testBaseURL, responder)
	transport.RegisterResponder("GET", strings.TrimSuffix(testBaseURL, "/"), responder)
}

func buildIndexPage(categories ...models.Category) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><div class="side_categories"><ul class="nav nav-list"><li><a href="catalogue/category/books_1/index.html">Books</a><ul>`)
	for _, c := range categories {
		fmt.Fprintf(&builder, `<li><a href="%s">%s</a></li>`, c.StartURL, c.Name)
	}
	builder.WriteString(`</ul></li></ul></div></body></html>`)
	return builder.String()
}

type listingItem struct {
	title  string
	price  string
	rating string
}

func buildListingPage(items ...listingItem) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><section><ol class="row">`)
	for i, item := range items {
		builder.WriteString(`<li><article class="product_pod">`)
		fmt.Fprintf(&builder, `<h3><a href="book-%d/index.html" title="%s">%s</a></h3>`, i, item.title, item.title)
		fmt.Fprintf(&builder, `<div class="product_price"><p class="price_color">%s</p></div>`, item.price)
		fmt.Fprintf(&builder, `<p class="star-rating %s"><i class="icon-star"></i></p>`, item.rating)
		builder.WriteString(`</article></li>`)
	}
	builder.WriteString(`</ol></section></body></html>`)
	return builder.String()
}

// numberedPage builds a page of n items whose titles are unique to page.
func numberedPage(prefix string, page, n int) string {
	items := make([]listingItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, listingItem{
			title:  fmt.Sprintf("%s %d-%d", prefix, page, i),
			price:  fmt.Sprintf("£%d.%02d", page, i),
			rating: "Three",
		})
	}
	return buildListingPage(items...)
}

// scriptedFetcher serves canned results and records every URL requested.
type scriptedFetcher struct {
	mu      sync.Mutex
	results map[string][]fetchResult
	calls   []string
}

type fetchResult struct {
	body string
	err  error
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{results: make(map[string][]fetchResult)}
}

// on queues results for url; the last one repeats once the queue drains.
func (f *scriptedFetcher) on(url string, results ...fetchResult) *scriptedFetcher {
	f.results[url] = append(f.results[url], results...)
	return f
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)

	queue, ok := f.results[url]
	if !ok || len(queue) == 0 {
		return nil, &PageUnavailableError{URL: url, StatusCode: 404}
	}
	next := queue[0]
	if len(queue) > 1 {
		f.results[url] = queue[1:]
	}
	if next.err != nil {
		return nil, next.err
	}
	return &Page{URL: url, StatusCode: 200, Body: []byte(next.body)}, nil
}

func (f *scriptedFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type collectingWriter struct {
	mu        sync.Mutex
	items     []models.NormalizedItem
	closed    bool
	discarded bool
}

func (cw *collectingWriter) Write(items []models.NormalizedItem) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.items = append(cw.items, items...)
	return nil
}

func (cw *collectingWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.closed = true
	return nil
}

func (cw *collectingWriter) Discard() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.discarded = true
	return nil
}

func (cw *collectingWriter) All() []models.NormalizedItem {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]models.NormalizedItem, len(cw.items))
	copy(out, cw.items)
	return out
}
