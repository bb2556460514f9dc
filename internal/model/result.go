package model

import "time"

// Termination describes why a crawl stopped.
type Termination string

const (
	// TerminationMaxPages means the page budget was used up.
	TerminationMaxPages Termination = "max_pages"

	// TerminationNoNextPage means the last result page had no next-page link.
	TerminationNoNextPage Termination = "no_next_page"

	// TerminationResultsTimeout means a result page never rendered its listings.
	// This is the only fatal page-level failure.
	TerminationResultsTimeout Termination = "results_timeout"

	// TerminationPaginationFailed means the next result page could not be loaded.
	TerminationPaginationFailed Termination = "pagination_failed"

	// TerminationSearchUnreachable means the search root could not be loaded.
	TerminationSearchUnreachable Termination = "search_unreachable"

	// TerminationCancelled means the caller cancelled the crawl.
	TerminationCancelled Termination = "cancelled"
)

// Graceful reports whether the crawl ended by running out of pages to visit.
func (t Termination) Graceful() bool {
	switch t {
	case TerminationMaxPages, TerminationNoNextPage, TerminationPaginationFailed:
		return true
	default:
		return false
	}
}

// Description returns a human-readable explanation of the termination.
func (t Termination) Description() string {
	switch t {
	case TerminationMaxPages:
		return "page budget reached"
	case TerminationNoNextPage:
		return "no more result pages"
	case TerminationResultsTimeout:
		return "timed out waiting for listings"
	case TerminationPaginationFailed:
		return "could not load the next result page"
	case TerminationSearchUnreachable:
		return "could not load the search page"
	case TerminationCancelled:
		return "cancelled"
	default:
		return string(t)
	}
}

// Stats counts what happened during a crawl.
type Stats struct {
	PagesProcessed  int `json:"pages_processed"`
	LinksSeen       int `json:"links_seen"`
	Excluded        int `json:"excluded"`
	Unreadable      int `json:"unreadable"`
	ListingsVisited int `json:"listings_visited"`
	VisitFailures   int `json:"visit_failures"`
	ReturnFailures  int `json:"return_failures"`
	Matches         int `json:"matches"`
}

// CrawlResult is the outcome of one crawl over one search.
type CrawlResult struct {
	SearchURL   string        `json:"search_url"`
	Matches     []MatchRecord `json:"matches"`
	State       CrawlState    `json:"state"`
	Termination Termination   `json:"termination"`
	Stats       Stats         `json:"stats"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// NewCrawlResult creates an empty result for the given search.
func NewCrawlResult(searchURL string, maxPages int) *CrawlResult {
	return &CrawlResult{
		SearchURL: searchURL,
		Matches:   make([]MatchRecord, 0),
		State:     NewCrawlState(maxPages),
		StartedAt: time.Now(),
	}
}

// Append adds records to the result set.
func (r *CrawlResult) Append(records ...MatchRecord) {
	r.Matches = append(r.Matches, records...)
	r.Stats.Matches = len(r.Matches)
}

// Duration returns how long the crawl took.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// MergeMatches concatenates the matches of several results in order.
func MergeMatches(results []*CrawlResult) []MatchRecord {
	merged := make([]MatchRecord, 0)
	for _, r := range results {
		if r == nil {
			continue
		}
		merged = append(merged, r.Matches...)
	}
	return merged
}
