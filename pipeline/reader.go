package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/aluiziolira/catalog-scraper/models"
)

// ReadCSV loads a dataset written by CSVWriter.
func ReadCSV(path string) (models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(CSVHeader)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 || !slices.Equal(records[0], CSVHeader) {
		return nil, fmt.Errorf("read csv: missing header")
	}

	dataset := make(models.Dataset, 0, len(records)-1)
	for i, record := range records[1:] {
		price, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("read csv row %d price: %w", i+1, err)
		}
		rating, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, fmt.Errorf("read csv row %d rating: %w", i+1, err)
		}
		dataset = append(dataset, models.NormalizedItem{
			Category: record[0],
			Title:    record[1],
			Price:    price,
			Rating:   rating,
		})
	}
	return dataset, nil
}
