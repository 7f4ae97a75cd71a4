// Package report renders run summaries for humans.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/aluiziolira/catalog-scraper/models"
	"github.com/nao1215/markdown"
)

// WriteMarkdown renders summary as a Markdown document.
func WriteMarkdown(w io.Writer, summary *models.RunSummary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Catalog Scrape Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + summary.RunID + "`"},
			{"Started", summary.StartTime.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().String()},
			{"Output", "`" + summary.OutputFile + "`"},
		},
	})
	md.PlainText("")

	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Categories discovered", strconv.Itoa(summary.CategoriesDiscovered)},
			{"Categories processed", strconv.Itoa(summary.CategoriesProcessed)},
			{"Categories failed", strconv.Itoa(len(summary.FailedCategories))},
			{"Pages fetched", strconv.Itoa(summary.PagesFetched)},
			{"Requests", strconv.Itoa(summary.RequestCount)},
			{"Retries", strconv.Itoa(summary.RetryCount)},
			{"Rows extracted", strconv.Itoa(summary.RowsExtracted)},
			{"Rows skipped (extraction)", strconv.Itoa(summary.RowFailures)},
			{"Rows dropped (normalization)", strconv.Itoa(summary.RowsDropped)},
			{"Rows written", strconv.Itoa(summary.RowsWritten)},
		},
	})
	md.PlainText("")

	if len(summary.DropReasons) > 0 {
		md.H2("Dropped Rows")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Reason", "Count"},
			Rows:   countRows(summary.DropReasons),
		})
		md.PlainText("")
	}

	if len(summary.ErrorsByType) > 0 {
		md.H2("Errors")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Type", "Count"},
			Rows:   countRows(summary.ErrorsByType),
		})
		md.PlainText("")
	}

	if len(summary.FailedCategories) > 0 {
		md.H2("Failed Categories")
		md.PlainText("")
		rows := make([][]string, 0, len(summary.FailedCategories))
		for _, f := range summary.FailedCategories {
			rows = append(rows, []string{f.Name, string(f.Reason), f.Error})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Category", "Stop", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return md.Build()
}

// WriteFile renders summary into path, creating parent directories.
func WriteFile(path string, summary *models.RunSummary) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteMarkdown(f, summary); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}
