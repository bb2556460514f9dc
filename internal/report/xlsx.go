package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/bizscout/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	// MatchesSheet is the sheet holding the match table.
	MatchesSheet = "Matches"

	// SummarySheet is the sheet holding one row per search.
	SummarySheet = "Summary"
)

// XLSXWriter writes the match table as an Excel workbook.
type XLSXWriter struct {
	baseWriter

	// summary adds a sheet with one row per search.
	summary bool
}

// XLSXWriterOption configures an XLSXWriter.
type XLSXWriterOption func(*XLSXWriter)

// WithSummarySheet toggles the per-search summary sheet.
func WithSummarySheet(enabled bool) XLSXWriterOption {
	return func(w *XLSXWriter) {
		w.summary = enabled
	}
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
// The summary sheet is enabled by default.
func NewXLSXWriter(output io.Writer, opts ...XLSXWriterOption) *XLSXWriter {
	w := &XLSXWriter{
		baseWriter: newBaseWriter(output),
		summary:    true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write builds the workbook and streams it to the output.
func (w *XLSXWriter) Write(results []*model.CrawlResult) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", MatchesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := [][]string{model.Columns()}
	for _, m := range model.MergeMatches(results) {
		rows = append(rows, m.Row())
	}
	if err := writeSheet(f, MatchesSheet, rows, header); err != nil {
		return err
	}
	if err := f.SetColWidth(MatchesSheet, "A", "A", 48); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(MatchesSheet, "B", "D", 36); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if w.summary {
		if _, err := f.NewSheet(SummarySheet); err != nil {
			return fmt.Errorf("failed to create summary sheet: %w", err)
		}
		if err := writeSheet(f, SummarySheet, summaryRows(results), header); err != nil {
			return err
		}
	}

	if err := f.Write(w.output); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeSheet writes rows starting at A1 and styles the first row.
func writeSheet(f *excelize.File, sheet string, rows [][]string, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}
	return nil
}

// summaryRows returns the summary sheet table.
func summaryRows(results []*model.CrawlResult) [][]string {
	rows := [][]string{{
		"search_url", "termination", "pages", "listings", "excluded", "failures", "matches",
	}}
	for _, r := range nonNil(results) {
		rows = append(rows, []string{
			r.SearchURL,
			string(r.Termination),
			strconv.Itoa(r.Stats.PagesProcessed),
			strconv.Itoa(r.Stats.ListingsVisited),
			strconv.Itoa(r.Stats.Excluded),
			strconv.Itoa(r.Stats.VisitFailures),
			strconv.Itoa(len(r.Matches)),
		})
	}
	return rows
}
