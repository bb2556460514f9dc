// Package report writes crawl results to the output artifact and the terminal.
//
// Writers for the artifact formats:
//   - CSVWriter: the default tabular artifact (title,address,url,reason)
//   - XLSXWriter: the same table as a spreadsheet, plus a per-search summary sheet
//   - MarkdownWriter: a shareable run summary with the match table
//   - JSONWriter: structured output for tool integration
//
// SimpleWriter renders the end-of-run summary for terminal display.
//
// Every writer implements Writer, so they can be chosen by format with New
// and composed with MultiWriter.
package report
