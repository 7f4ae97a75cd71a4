package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const travelStart = "http://example.test/travel/index.html"

func travelPage(n int) string {
	url, _ := PageURL(travelStart, n)
	return url
}

func newTestWalker(fetcher PageFetcher, maxPages int) *Walker {
	cfg := testConfig()
	return newWalker(fetcher, newRetrier(cfg, nil), nil, maxPages, cfg.RepeatWindow)
}

var travel = models.Category{Name: "Travel", StartURL: travelStart}

func TestWalkStopsOnEmptyPage(t *testing.T) {
	fetcher := newScriptedFetcher().
		on(travelPage(1), fetchResult{body: numberedPage("Travel", 1, 3)}).
		on(travelPage(2), fetchResult{body: numberedPage("Travel", 2, 2)}).
		on(travelPage(3), fetchResult{body: buildListingPage()}).
		on(travelPage(4), fetchResult{body: numberedPage("Travel", 4, 1)})

	result := newTestWalker(fetcher, 50).Walk(context.Background(), travel)

	require.NoError(t, result.Err)
	assert.Equal(t, models.StopEmptyPage, result.Stop)
	assert.Equal(t, []string{travelPage(1), travelPage(2), travelPage(3)}, fetcher.Calls())
	assert.Equal(t, 3, result.Pages)
	require.Len(t, result.Items, 5)
	assert.Equal(t, "Travel 1-1", result.Items[0].Title)
	assert.Equal(t, "Travel 2-2", result.Items[4].Title)
	for _, item := range result.Items {
		assert.Equal(t, "Travel", item.Category)
	}
}

func TestWalkStopsOnUnavailablePage(t *testing.T) {
	fetcher := newScriptedFetcher().
		on(travelPage(1), fetchResult{body: numberedPage("Travel", 1, 2)})

	result := newTestWalker(fetcher, 50).Walk(context.Background(), travel)

	require.NoError(t, result.Err)
	assert.False(t, result.Failed())
	assert.Equal(t, models.StopUnavailable, result.Stop)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, []string{travelPage(1), travelPage(2)}, fetcher.Calls())
}

func TestWalkRespectsPageCap(t *testing.T) {
	fetcher := newScriptedFetcher()
	for n := 1; n <= 5; n++ {
		fetcher.on(travelPage(n), fetchResult{body: numberedPage("Travel", n, 1)})
	}

	result := newTestWalker(fetcher, 2).Walk(context.Background(), travel)

	require.NoError(t, result.Err)
	assert.Equal(t, models.StopPageCap, result.Stop)
	assert.Len(t, fetcher.Calls(), 2)
	assert.Len(t, result.Items, 2)
}

func TestWalkStopsOnRepeatedPage(t *testing.T) {
	first := numberedPage("Travel", 1, 2)
	fetcher := newScriptedFetcher().
		on(travelPage(1), fetchResult{body: first}).
		on(travelPage(2), fetchResult{body: numberedPage("Travel", 2, 2)}).
		on(travelPage(3), fetchResult{body: first})

	result := newTestWalker(fetcher, 50).Walk(context.Background(), travel)

	require.NoError(t, result.Err)
	assert.Equal(t, models.StopRepeatedPage, result.Stop)
	assert.Len(t, result.Items, 4)
	assert.Len(t, fetcher.Calls(), 3)
}

func TestWalkCountsRowFailures(t *testing.T) {
	page := buildListingPage(
		listingItem{title: "Good", price: "£1.00", rating: "One"},
		listingItem{title: "", price: "£2.00", rating: "Two"},
	)
	fetcher := newScriptedFetcher().on(travelPage(1), fetchResult{body: page})

	result := newTestWalker(fetcher, 50).Walk(context.Background(), travel)

	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.RowFailures)
}

func TestWalkAbandonsCategoryAfterRetries(t *testing.T) {
	boom := &TransportError{URL: travelPage(2), Kind: KindConnection, Err: errors.New("connection reset")}
	fetcher := newScriptedFetcher().
		on(travelPage(1), fetchResult{body: numberedPage("Travel", 1, 2)}).
		on(travelPage(2), fetchResult{err: boom})

	result := newTestWalker(fetcher, 50).Walk(context.Background(), travel)

	assert.True(t, result.Failed())
	assert.Equal(t, models.StopTransportError, result.Stop)
	var transport *TransportError
	assert.ErrorAs(t, result.Err, &transport)
	assert.Equal(t, 2, result.Retries)
	assert.Len(t, result.Items, 2, "pages before the failure are kept")
	assert.Len(t, fetcher.Calls(), 1+3)
}

func TestWalkRecoversWithinRetryBudget(t *testing.T) {
	boom := &TransportError{URL: travelPage(1), Kind: KindTimeout, Err: context.DeadlineExceeded}
	fetcher := newScriptedFetcher().
		on(travelPage(1), fetchResult{err: boom}, fetchResult{body: numberedPage("Travel", 1, 1)})

	result := newTestWalker(fetcher, 50).Walk(context.Background(), travel)

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Retries)
	assert.Len(t, result.Items, 1)
}

func TestWalkRejectsUnpaginatableURL(t *testing.T) {
	fetcher := newScriptedFetcher()
	category := models.Category{Name: "Odd", StartURL: "http://example.test/odd/listing.php"}

	result := newTestWalker(fetcher, 50).Walk(context.Background(), category)

	assert.ErrorIs(t, result.Err, ErrUnpaginatableURL)
	assert.Equal(t, models.StopInvalidURL, result.Stop)
	assert.Empty(t, fetcher.Calls())
}

func TestWalkHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := newScriptedFetcher().on(travelPage(1), fetchResult{body: numberedPage("Travel", 1, 1)})

	result := newTestWalker(fetcher, 50).Walk(ctx, travel)

	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, models.StopCancelled, result.Stop)
	assert.Empty(t, fetcher.Calls())
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		page    int
		want    string
		wantErr bool
	}{
		{name: "first page", start: travelStart, page: 1, want: travelStart},
		{name: "second page", start: travelStart, page: 2, want: "http://example.test/travel/page-2.html"},
		{name: "deep path", start: "http://example.test/catalogue/category/books/travel_2/index.html", page: 10, want: "http://example.test/catalogue/category/books/travel_2/page-10.html"},
		{name: "no index file", start: "http://example.test/travel/", page: 2, wantErr: true},
		{name: "other file", start: "http://example.test/travel/main.html", page: 1, wantErr: true},
		{name: "suffix only", start: "http://example.test/travel/myindex.html", page: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PageURL(tt.start, tt.page)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnpaginatableURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
