// Package extract reads the fields of a listing detail page.
//
// Each field is looked up on its own: a missing address never costs the
// reason, and a missing reason never costs the content blocks. Absent fields
// come back as fallbacks and are logged at debug level.
package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
)

// Extractor pulls a ListingDetail out of a DOM snapshot.
type Extractor struct {
	sel    config.Selectors
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelectors replaces the default selectors.
func WithSelectors(s config.Selectors) Option {
	return func(e *Extractor) {
		e.sel = s
	}
}

// WithLogger sets the logger used for absence reports.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// New returns an Extractor using the directory's default markup.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		sel:    config.DefaultSelectors(),
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads every field of the detail page. fallbackTitle is the title
// seen on the result page; it is used when the page has no heading.
func (e *Extractor) Extract(doc *goquery.Document, fallbackTitle string) model.ListingDetail {
	detail := model.ListingDetail{
		Title: fallbackTitle,
	}
	if doc == nil {
		e.logger.Debug("no document to extract from", "title", fallbackTitle)
		return detail
	}
	url := ""
	if doc.Url != nil {
		url = doc.Url.String()
	}

	title := field(doc, e.sel.Title)
	if !title.Found {
		e.logger.Debug("title not found, keeping result page title", "url", url, "title", fallbackTitle)
	}
	detail.Title = title.ValueOr(fallbackTitle)

	address := field(doc, e.sel.Address)
	if !address.Found {
		e.logger.Debug("address not found", "url", url)
	}
	detail.Address = address.ValueOr("")

	detail.Reason = e.reason(doc)
	if !detail.Reason.Found {
		e.logger.Debug("reason for selling not found", "url", url)
	}

	doc.Find(e.sel.Content).Each(func(_ int, s *goquery.Selection) {
		detail.Content = append(detail.Content, Text(s))
	})
	if len(detail.Content) == 0 {
		e.logger.Debug("no content sections found", "url", url)
	}

	return detail
}

// field reads the first element matching selector. Blank text counts as absent.
func field(doc *goquery.Document, selector string) model.Text {
	v := Text(doc.Find(selector).First())
	if v == "" {
		return model.Absent()
	}
	return model.Present(v)
}

// reason finds the value following the first label containing the reason
// label text.
func (e *Extractor) reason(doc *goquery.Document) model.Text {
	label := doc.Find(e.sel.ReasonTerm).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), e.sel.ReasonLabel)
	}).First()
	if label.Length() == 0 {
		return model.Absent()
	}

	value := label.NextAllFiltered(e.sel.ReasonValue).First()
	if value.Length() == 0 {
		return model.Absent()
	}
	return model.Present(Text(value))
}

// blockElements start a new line in rendered text.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Blockquote: true, atom.Br: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Footer: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tr: true,
	atom.Ul: true,
}

// Text returns the selection's text the way a browser renders it: block
// elements and <br> break lines, and whitespace inside a line collapses to a
// single space. Blank lines are dropped.
func Text(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// Source line breaks are plain whitespace to a browser.
		b.WriteString(strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, n.Data))
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
