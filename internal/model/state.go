package model

// CrawlState is the pagination position of a crawl.
// It is owned by the crawl controller and only changes at page transitions.
type CrawlState struct {
	// CurrentPage is the 1-based index of the result page being processed.
	CurrentPage int `json:"current_page"`

	// MaxPages is the crawl depth bound.
	MaxPages int `json:"max_pages"`

	// CurrentPageURL is the absolute URL of the current result page.
	// The crawler navigates back to it after each listing visit.
	CurrentPageURL string `json:"current_page_url"`
}

// NewCrawlState returns the state of a crawl that has not processed any page yet.
func NewCrawlState(maxPages int) CrawlState {
	return CrawlState{CurrentPage: 1, MaxPages: maxPages}
}

// Exhausted reports whether the page budget has been used up.
func (s CrawlState) Exhausted() bool {
	return s.CurrentPage > s.MaxPages
}

// Enter records the URL of the result page now being processed.
func (s *CrawlState) Enter(pageURL string) {
	s.CurrentPageURL = pageURL
}

// Advance moves to the next result page.
func (s *CrawlState) Advance() {
	s.CurrentPage++
}
