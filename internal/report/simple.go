package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/bizscout/internal/model"
)

// SimpleWriter outputs a human-readable run summary.
// This format is designed for terminal display at the end of a run.
type SimpleWriter struct {
	baseWriter

	// showMatches lists every match under its search.
	showMatches bool

	// artifact is the path of the written artifact, shown in the footer.
	artifact string
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowMatches lists every match under its search.
func WithShowMatches(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showMatches = show
	}
}

// WithArtifactPath shows where the artifact was written.
func WithArtifactPath(path string) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.artifact = path
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary of every result.
func (w *SimpleWriter) Write(results []*model.CrawlResult) error {
	var sb strings.Builder

	w.writeHeader(&sb)
	for _, r := range nonNil(results) {
		w.writeSearch(&sb, r)
	}
	w.writeFooter(&sb, results)

	_, err := io.WriteString(w.output, sb.String())
	return err
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       BIZSCOUT RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeSearch writes the counts of one search.
func (w *SimpleWriter) writeSearch(sb *strings.Builder, r *model.CrawlResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Search:    %s\n", r.SearchURL))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	status := r.Termination.Description()
	if !r.Termination.Graceful() {
		status = strings.ToUpper(status) + " (partial results)"
	}
	sb.WriteString(fmt.Sprintf("  Stopped:   %s\n", status))
	sb.WriteString(fmt.Sprintf("  Pages:     %d of %d\n", r.Stats.PagesProcessed, r.State.MaxPages))
	sb.WriteString(fmt.Sprintf("  Listings:  %d seen, %d excluded, %d visited, %d failed\n",
		r.Stats.LinksSeen, r.Stats.Excluded, r.Stats.ListingsVisited, r.Stats.VisitFailures))
	sb.WriteString(fmt.Sprintf("  Matches:   %d\n", len(r.Matches)))
	if d := r.Duration(); d > 0 {
		sb.WriteString(fmt.Sprintf("  Duration:  %s\n", d.Round(time.Second)))
	}

	if w.showMatches && len(r.Matches) > 0 {
		sb.WriteString("\n")
		for _, m := range r.Matches {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", m.Title))
			if m.Address != "" {
				sb.WriteString(fmt.Sprintf("      Address: %s\n", m.Address))
			}
			sb.WriteString(fmt.Sprintf("      Reason:  %s\n", truncateString(m.Reason, 60)))
			sb.WriteString(fmt.Sprintf("      URL:     %s\n", m.URL))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, results []*model.CrawlResult) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("TOTAL: %d matches\n", len(model.MergeMatches(results))))
	if w.artifact != "" {
		sb.WriteString(fmt.Sprintf("Saved to %s\n", w.artifact))
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
