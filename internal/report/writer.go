package report

import (
	"fmt"
	"io"

	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/model"
)

// Writer defines the interface for report output.
// Implementations write the results of one or more crawls in a single format.
type Writer interface {
	// Write outputs the results to the configured destination.
	Write(results []*model.CrawlResult) error
}

// New returns the artifact writer for the given format.
// Format names are the config.Format* constants.
func New(format string, output io.Writer) (Writer, error) {
	switch format {
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	case config.FormatXLSX:
		return NewXLSXWriter(output), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
// scan uses it to write the artifact and the Markdown summary in one pass.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the results to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(results []*model.CrawlResult) error {
	for _, w := range m.writers {
		if err := w.Write(results); err != nil {
			return err
		}
	}
	return nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// nonNil drops nil entries so writers can range over results safely.
func nonNil(results []*model.CrawlResult) []*model.CrawlResult {
	out := make([]*model.CrawlResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
