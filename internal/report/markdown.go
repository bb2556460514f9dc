package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/bizscout/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs a run summary in Markdown format.
// This format is designed for sharing a run with people who do not
// want to open a spreadsheet.
type MarkdownWriter struct {
	baseWriter

	// now is used for the generation timestamp.
	now func() time.Time
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}
}

// Write outputs the summary and match table in Markdown format.
func (w *MarkdownWriter) Write(results []*model.CrawlResult) error {
	results = nonNil(results)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, results)
	w.writeSearches(md, results)
	w.writeMatches(md, results)
	w.writeFooter(md)

	return md.Build()
}

// writeHeader writes the report title and the overall counts.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, results []*model.CrawlResult) {
	md.H1("Business Listing Scan")
	md.PlainText("")

	var total model.Stats
	for _, r := range results {
		total.PagesProcessed += r.Stats.PagesProcessed
		total.ListingsVisited += r.Stats.ListingsVisited
		total.Excluded += r.Stats.Excluded
		total.VisitFailures += r.Stats.VisitFailures
		total.Matches += len(r.Matches)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", w.now().Format("2006-01-02 15:04:05 MST")},
			{"Searches", strconv.Itoa(len(results))},
			{"Pages Processed", strconv.Itoa(total.PagesProcessed)},
			{"Listings Visited", strconv.Itoa(total.ListingsVisited)},
			{"Excluded", strconv.Itoa(total.Excluded)},
			{"Failed Visits", strconv.Itoa(total.VisitFailures)},
			{"**Matches**", "**" + strconv.Itoa(total.Matches) + "**"},
		},
	})
	md.PlainText("")

	w.writeAlert(md, results, total.Matches)
}

// writeAlert flags searches that ended on a fatal condition.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, results []*model.CrawlResult, matches int) {
	fatal := make([]string, 0)
	for _, r := range results {
		if !r.Termination.Graceful() {
			fatal = append(fatal, fmt.Sprintf("%s (%s)", r.SearchURL, r.Termination.Description()))
		}
	}

	switch {
	case len(fatal) > 0:
		md.Warningf("%d search(es) stopped early, results are partial: %s",
			len(fatal), strings.Join(fatal, "; "))
	case matches == 0:
		md.Note("No listing matched the retirement/emigration lexicon.")
	default:
		md.Tip("All searches completed.")
	}
	md.PlainText("")
}

// writeSearches writes one row per search.
func (w *MarkdownWriter) writeSearches(md *markdown.Markdown, results []*model.CrawlResult) {
	md.H2("Searches")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No search was run.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			"`" + r.SearchURL + "`",
			r.Termination.Description(),
			strconv.Itoa(r.Stats.PagesProcessed),
			strconv.Itoa(r.Stats.ListingsVisited),
			strconv.Itoa(len(r.Matches)),
			r.Duration().Round(time.Second).String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Search", "Stopped", "Pages", "Visited", "Matches", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMatches writes the match table and the rule distribution.
func (w *MarkdownWriter) writeMatches(md *markdown.Markdown, results []*model.CrawlResult) {
	md.H2("Matches")
	md.PlainText("")

	matches := model.MergeMatches(results)
	if len(matches) == 0 {
		md.PlainText("No matches.")
		md.PlainText("")
		return
	}

	w.writePieChart(md, matches)

	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{
			"[" + escapeCell(m.Title) + "](" + m.URL + ")",
			orDash(escapeCell(m.Address)),
			escapeCell(truncateString(m.Reason, 120)),
			string(m.Rule),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Address", "Reason", "Rule"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of matches per rule.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, matches []model.MatchRecord) {
	var reason, content uint64
	for _, m := range matches {
		switch m.Rule {
		case model.RuleReasonField:
			reason++
		case model.RuleContentScan:
			content++
		}
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Matches by Rule"),
		piechart.WithShowData(true),
	)
	if reason > 0 {
		chart.LabelAndIntValue("Reason field", reason)
	}
	if content > 0 {
		chart.LabelAndIntValue("Content scan", content)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [bizscout](https://github.com/nao1215/bizscout)*")
}

// escapeCell keeps cell text on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// orDash returns "-" for empty cells.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
