package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/catalog-scraper/models"
)

// DualWriter fans every batch out to a CSV and a JSONL file. Both files are
// published or discarded together.
type DualWriter struct {
	mu      sync.Mutex
	targets []namedWriter
}

type namedWriter struct {
	name string
	OutputWriter
}

// NewDualWriter stages csvFilename and jsonFilename.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("csv output: %w", err)
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		_ = csvWriter.Discard()
		return nil, fmt.Errorf("json output: %w", err)
	}

	return &DualWriter{targets: []namedWriter{
		{name: "csv", OutputWriter: csvWriter},
		{name: "json", OutputWriter: jsonWriter},
	}}, nil
}

// Write stops at the first target that fails.
func (dw *DualWriter) Write(items []models.NormalizedItem) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	for _, target := range dw.targets {
		if err := target.Write(items); err != nil {
			return fmt.Errorf("%s write: %w", target.name, err)
		}
	}
	return nil
}

// Close publishes every target. If one fails the others are still closed.
func (dw *DualWriter) Close() error {
	return dw.each(func(w OutputWriter) error { return w.Close() }, "close")
}

// Discard drops every staged file.
func (dw *DualWriter) Discard() error {
	return dw.each(func(w OutputWriter) error { return w.Discard() }, "discard")
}

func (dw *DualWriter) each(fn func(OutputWriter) error, op string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	var errs []error
	for _, target := range dw.targets {
		if err := fn(target.OutputWriter); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", target.name, op, err))
		}
	}
	return errors.Join(errs...)
}
