package parser

import (
	"strings"
	"testing"

	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListingValidBlocks(t *testing.T) {
	page := listingPage(
		block{title: "It's Only the Himalayas", price: "£45.17", rating: "star-rating Two"},
		block{title: "Full Moon over Noah’s Ark", price: "£49.43", rating: "star-rating Four"},
	)

	listing, err := ParseListing("Travel", strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, 2, listing.Blocks)
	assert.False(t, listing.Empty())
	assert.Empty(t, listing.Failures)
	assert.Equal(t, []models.RawItem{
		{Category: "Travel", Title: "It's Only the Himalayas", PriceText: "£45.17", RatingToken: "Two"},
		{Category: "Travel", Title: "Full Moon over Noah’s Ark", PriceText: "£49.43", RatingToken: "Four"},
	}, listing.Items)
}

func TestParseListingSkipsMalformedBlocks(t *testing.T) {
	page := listingPage(
		block{title: "Good", price: "£1.00", rating: "star-rating One"},
		block{noA: true, price: "£2.00", rating: "star-rating Two"},
		block{title: "", price: "£3.00", rating: "star-rating Three"},
		block{title: "No Price", rating: "star-rating Four"},
		block{title: "No Rating", price: "£5.00"},
		block{title: "Bare Rating", price: "£6.00", rating: "star-rating"},
		block{title: "Also Good", price: "£7.00", rating: "Five star-rating"},
	)

	listing, err := ParseListing("Mystery", strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, 7, listing.Blocks)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, listing.Blocks-len(listing.Failures), len(listing.Items))
	assert.Equal(t, "Good", listing.Items[0].Title)
	assert.Equal(t, "Also Good", listing.Items[1].Title)
	assert.Equal(t, "Five", listing.Items[1].RatingToken)

	assert.Equal(t, []RowExtractionFailure{
		{Index: 1, Field: "title"},
		{Index: 2, Field: "title"},
		{Index: 3, Field: "price"},
		{Index: 4, Field: "rating"},
		{Index: 5, Field: "rating"},
	}, listing.Failures)
}

func TestParseListingKeepsUnknownRatingToken(t *testing.T) {
	page := listingPage(block{title: "Unrated", price: "£9.99", rating: "star-rating Zero"})

	listing, err := ParseListing("Poetry", strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "Zero", listing.Items[0].RatingToken)
}

func TestParseListingEmptyPage(t *testing.T) {
	listing, err := ParseListing("Travel", strings.NewReader(`<html><body><p>No results.</p></body></html>`))
	require.NoError(t, err)
	assert.True(t, listing.Empty())
	assert.Empty(t, listing.Items)
}

func TestParseListingAllBlocksInvalidIsNotEmpty(t *testing.T) {
	page := listingPage(block{noA: true, price: "£1.00", rating: "star-rating One"})

	listing, err := ParseListing("Travel", strings.NewReader(page))
	require.NoError(t, err)
	assert.False(t, listing.Empty())
	assert.Empty(t, listing.Items)
	assert.Len(t, listing.Failures, 1)
}
