package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/catalog-scraper/models"
	"golang.org/x/text/unicode/norm"
)

var priceRe = regexp.MustCompile(`\d+\.\d+`)

var ratings = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// Normalize converts a raw item into typed values. Items whose price or
// rating cannot be parsed return a *NormalizationError and must be dropped.
func Normalize(item models.RawItem) (models.NormalizedItem, error) {
	price, err := ParsePrice(item.PriceText)
	if err != nil {
		return models.NormalizedItem{}, err
	}
	rating, err := ParseRating(item.RatingToken)
	if err != nil {
		return models.NormalizedItem{}, err
	}
	return models.NormalizedItem{
		Category: NormalizeText(item.Category),
		Title:    NormalizeText(item.Title),
		Price:    price,
		Rating:   rating,
	}, nil
}

// ParsePrice extracts the first decimal number from text.
func ParsePrice(text string) (float64, error) {
	match := priceRe.FindString(text)
	if match == "" {
		return 0, &NormalizationError{Field: "price", Value: text}
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, &NormalizationError{Field: "price", Value: text}
	}
	return value, nil
}

// ParseRating maps one of the five rating words to 1..5.
func ParseRating(token string) (int, error) {
	value, ok := ratings[token]
	if !ok {
		return 0, &NormalizationError{Field: "rating", Value: token}
	}
	return value, nil
}

// NormalizeText trims spacing and applies Unicode NFC.
func NormalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
