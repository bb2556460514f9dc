// Package enumerate lists the listings of a result page and finds the link to
// the next one.
package enumerate

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/extract"
	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
)

// Enumeration is what one result page yields.
type Enumeration struct {
	// Listings survive the exclusion filter, in page order.
	Listings []model.ListingRef

	// Excluded holds the titles skipped by the exclusion filter.
	Excluded []string

	// Unreadable counts anchors without a title or an href.
	Unreadable int
}

// Seen returns how many listing anchors the page had.
func (e Enumeration) Seen() int {
	return len(e.Listings) + len(e.Excluded) + e.Unreadable
}

// Enumerator reads result pages.
type Enumerator struct {
	listing string
	next    string
	exclude []string
	lower   cases.Caser
	logger  *slog.Logger
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithSelectors sets the listing and next-page selectors.
func WithSelectors(s config.Selectors) Option {
	return func(e *Enumerator) {
		e.listing = s.ListingLink
		e.next = s.NextLink
	}
}

// WithExclude replaces the exclusion keywords.
func WithExclude(keywords []string) Option {
	return func(e *Enumerator) {
		e.exclude = keywords
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enumerator) {
		e.logger = l
	}
}

// New returns an Enumerator with the default selectors and exclusion list.
func New(opts ...Option) *Enumerator {
	sel := config.DefaultSelectors()
	e := &Enumerator{
		listing: sel.ListingLink,
		next:    sel.NextLink,
		exclude: config.DefaultExcludeKeywords,
		lower:   cases.Lower(language.Und),
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	lowered := make([]string, 0, len(e.exclude))
	for _, k := range e.exclude {
		if k = strings.TrimSpace(k); k != "" {
			lowered = append(lowered, e.lower.String(k))
		}
	}
	e.exclude = lowered
	return e
}

// Enumerate returns the listings of the result page in doc. Relative hrefs are
// resolved against base.
func (e *Enumerator) Enumerate(doc *goquery.Document, base *url.URL) Enumeration {
	var out Enumeration

	doc.Find(e.listing).Each(func(_ int, a *goquery.Selection) {
		title := extract.Text(a)
		if title == "" {
			e.logger.Warn("skipping listing link without a title")
			out.Unreadable++
			return
		}

		// Excluded titles are dropped before their link is even read.
		if keyword, hit := e.Excluded(title); hit {
			e.logger.Info("skipping excluded listing", "title", title, "keyword", keyword)
			out.Excluded = append(out.Excluded, title)
			return
		}

		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			e.logger.Warn("skipping listing link without an href", "title", title)
			out.Unreadable++
			return
		}

		abs, err := resolve(base, href)
		if err != nil {
			e.logger.Warn("skipping listing with malformed link", "title", title, "href", href, "error", err)
			out.Unreadable++
			return
		}
		out.Listings = append(out.Listings, model.ListingRef{Title: title, URL: abs})
	})

	return out
}

// Excluded reports whether title contains an exclusion keyword and which one.
// Matching is a case-insensitive substring test.
func (e *Enumerator) Excluded(title string) (string, bool) {
	lowered := e.lower.String(title)
	for _, k := range e.exclude {
		if strings.Contains(lowered, k) {
			return k, true
		}
	}
	return "", false
}

// NextPage returns the absolute URL of the next result page, if the page
// links to one.
func (e *Enumerator) NextPage(doc *goquery.Document, base *url.URL) (string, bool) {
	href, ok := doc.Find(e.next).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	abs, err := resolve(base, strings.TrimSpace(href))
	if err != nil {
		e.logger.Warn("malformed next page link", "href", href, "error", err)
		return "", false
	}
	return abs, true
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
