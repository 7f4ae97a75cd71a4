package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/catalog-scraper/models"
)

const (
	itemBlockSelector = "article.product_pod"
	titleSelector     = "h3 a"
	priceSelector     = "p.price_color"
	ratingSelector    = "p.star-rating"
	ratingBaseClass   = "star-rating"
)

// Listing is the result of parsing one listing page.
type Listing struct {
	Items    []models.RawItem
	Blocks   int
	Failures []RowExtractionFailure
}

// Empty reports whether the page had no item blocks at all, which ends
// pagination for the category.
func (l *Listing) Empty() bool {
	return l == nil || l.Blocks == 0
}

// ParseListing extracts raw items from a listing page. A block missing any
// field is recorded as a failure and skipped.
func ParseListing(category string, r io.Reader) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("read listing document: %w", err)
	}

	blocks := doc.Find(itemBlockSelector)
	listing := &Listing{Blocks: blocks.Length()}
	blocks.Each(func(i int, s *goquery.Selection) {
		item, failure := extractItem(category, s)
		if failure != "" {
			listing.Failures = append(listing.Failures, RowExtractionFailure{Index: i, Field: failure})
			return
		}
		listing.Items = append(listing.Items, item)
	})
	return listing, nil
}

func extractItem(category string, s *goquery.Selection) (models.RawItem, string) {
	title, ok := s.Find(titleSelector).First().Attr("title")
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return models.RawItem{}, "title"
	}

	price := s.Find(priceSelector).First()
	if price.Length() == 0 {
		return models.RawItem{}, "price"
	}

	rating := ratingToken(s.Find(ratingSelector).First())
	if rating == "" {
		return models.RawItem{}, "rating"
	}

	return models.RawItem{
		Category:    category,
		Title:       title,
		PriceText:   strings.TrimSpace(price.Text()),
		RatingToken: rating,
	}, ""
}

func ratingToken(s *goquery.Selection) string {
	class, ok := s.Attr("class")
	if !ok {
		return ""
	}
	for _, token := range strings.Fields(class) {
		if token != ratingBaseClass {
			return token
		}
	}
	return ""
}
