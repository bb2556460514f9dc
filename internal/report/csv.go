package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nao1215/bizscout/internal/model"
)

// CSVWriter writes the match table as comma-separated values.
// The header row is always written, so a run without matches still
// produces a valid file.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the merged matches of all results.
func (w *CSVWriter) Write(results []*model.CrawlResult) error {
	cw := csv.NewWriter(w.output)

	if err := cw.Write(model.Columns()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, m := range model.MergeMatches(results) {
		if err := cw.Write(m.Row()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
