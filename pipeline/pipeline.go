package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/catalog-scraper/config"
	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/aluiziolira/catalog-scraper/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output. Writers stage their
// output; Close publishes it and Discard throws it away.
type OutputWriter interface {
	Write(items []models.NormalizedItem) error
	Close() error
	Discard() error
}

// Result describes one Process call.
type Result struct {
	Dataset     models.Dataset
	Dropped     int
	DropReasons map[string]int
	Written     int
}

// Pipeline normalizes raw items and writes the dataset in batches.
type Pipeline struct {
	writer    OutputWriter
	batchSize int

	metrics *metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter, cfg *config.Config) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		writer:    writer,
		batchSize: batchSize,
		metrics:   newMetrics(),
	}
}

// Normalize converts raw items in order, dropping the ones that fail and
// counting them by reason.
func (p *Pipeline) Normalize(raw []models.RawItem) (models.Dataset, map[string]int) {
	dataset := make(models.Dataset, 0, len(raw))
	dropped := make(map[string]int)
	for _, item := range raw {
		normalized, err := parser.Normalize(item)
		if err != nil {
			reason := "invalid_record"
			var normErr *parser.NormalizationError
			if errors.As(err, &normErr) {
				reason = normErr.Reason()
			}
			dropped[reason]++
			p.metrics.addDropped(reason)
			slog.Debug("dropping row",
				slog.String("category", item.Category),
				slog.String("title", item.Title),
				slog.String("reason", reason),
			)
			continue
		}
		dataset = append(dataset, normalized)
		p.metrics.incrementProcessed()
	}
	return dataset, dropped
}

// Process normalizes raw and writes the surviving rows.
func (p *Pipeline) Process(ctx context.Context, raw []models.RawItem) (*Result, error) {
	closed, err := p.state()
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, ErrPipelineClosed
	}

	dataset, dropped := p.Normalize(raw)
	result := &Result{Dataset: dataset, DropReasons: dropped}
	for _, n := range dropped {
		result.Dropped += n
	}
	if result.Dropped > 0 {
		slog.Info("rows dropped during normalization",
			slog.Int("dropped", result.Dropped),
			slog.Any("reasons", dropped),
		)
	}

	for start := 0; start < len(dataset); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+p.batchSize, len(dataset))
		if err := p.writer.Write(dataset[start:end]); err != nil {
			err = fmt.Errorf("write batch: %w", err)
			p.setErr(err)
			return result, err
		}
		result.Written = end
	}
	return result, nil
}

// Close publishes the written output and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		err := p.err
		p.mu.Unlock()
		return err
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.writer.Close(); err != nil {
		err = fmt.Errorf("close writer: %w", err)
		p.setErr(err)
		return err
	}
	return p.Err()
}

// Abort discards the staged output, leaving the destination untouched.
func (p *Pipeline) Abort() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.writer.Discard()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = err
	p.closed = true
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	dropped   map[string]int
}

func newMetrics() *metrics {
	return &metrics{
		dropped: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addDropped(kind string) {
	m.mu.Lock()
	m.dropped[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyDropped := make(map[string]int, len(m.dropped))
	for k, v := range m.dropped {
		copyDropped[k] = v
	}

	return map[string]interface{}{
		"processed_items": m.processed,
		"dropped_rows":    copyDropped,
	}
}
