package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/catalog-scraper/models"
)

// ErrWriterClosed is returned by writes after Close or Discard.
var ErrWriterClosed = errors.New("pipeline: writer closed")

// CSVHeader is the fixed column order of the CSV output.
var CSVHeader = []string{"Category", "Title", "Price", "Rating"}

// NewWriter creates the writer for format ("csv", "json", "dual", or "sqlite").
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return NewDualWriter(filename, jsonFilename)
	case "sqlite":
		return NewSQLiteWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatPrice renders a price as fixed-point text.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	staged *stagedFile
	writer *csv.Writer
	mu     sync.Mutex
	done   bool
}

// NewCSVWriter stages a CSV file for filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	staged, err := stage(filename)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(staged.file)
	if err := writer.Write(CSVHeader); err != nil {
		_ = staged.discard()
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	return &CSVWriter{
		staged: staged,
		writer: writer,
	}, nil
}

// Write appends items to the CSV output.
func (cw *CSVWriter) Write(items []models.NormalizedItem) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.done {
		return ErrWriterClosed
	}

	for _, item := range items {
		record := []string{
			item.Category,
			item.Title,
			FormatPrice(item.Price),
			strconv.Itoa(item.Rating),
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes the staged file and moves it into place.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.done {
		return nil
	}
	cw.done = true

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		_ = cw.staged.discard()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.staged.commit()
}

// Discard removes the staged file.
func (cw *CSVWriter) Discard() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.done {
		return nil
	}
	cw.done = true
	return cw.staged.discard()
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	staged  *stagedFile
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
	done    bool
}

// NewJSONWriter stages a JSONL file for filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	staged, err := stage(filename)
	if err != nil {
		return nil, err
	}

	buffer := bufio.NewWriter(staged.file)
	return &JSONWriter{
		staged:  staged,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends items in JSONL format.
func (jw *JSONWriter) Write(items []models.NormalizedItem) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.done {
		return ErrWriterClosed
	}

	for _, item := range items {
		if err := jw.encoder.Encode(item); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and moves the staged file into place.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.done {
		return nil
	}
	jw.done = true

	if err := jw.writer.Flush(); err != nil {
		_ = jw.staged.discard()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.staged.commit()
}

// Discard removes the staged file.
func (jw *JSONWriter) Discard() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.done {
		return nil
	}
	jw.done = true
	return jw.staged.discard()
}
