package parser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/catalog-scraper/models"
)

const (
	categoryRegionSelector = ".side_categories"
	categoryLinkSelector   = "ul li ul li a"
)

// ParseIndex extracts the categories listed in the landing page navigation.
// Hrefs are resolved against base. Duplicate names keep their first position
// and take the last URL seen.
func ParseIndex(r io.Reader, base *url.URL) ([]models.Category, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("read index document: %w", err)
	}

	region := doc.Find(categoryRegionSelector)
	if region.Length() == 0 {
		return nil, &ParseError{Region: "category index", Reason: "navigation region not found"}
	}

	var categories []models.Category
	positions := make(map[string]int)
	region.Find(categoryLinkSelector).Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		href, ok := s.Attr("href")
		if name == "" || !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()

		if i, seen := positions[name]; seen {
			categories[i].StartURL = link
			return
		}
		positions[name] = len(categories)
		categories = append(categories, models.Category{Name: name, StartURL: link})
	})

	if len(categories) == 0 {
		return nil, &ParseError{Region: "category index", Reason: "no category links"}
	}
	return categories, nil
}
