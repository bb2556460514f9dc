package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/bizscout/internal/classify"
	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/enumerate"
	"github.com/nao1215/bizscout/internal/extract"
	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
	"github.com/nao1215/bizscout/internal/navigator"
	"github.com/nao1215/bizscout/internal/pipeline"
)

var (
	// ErrNoNavigator is returned by Run when the crawler was built without one.
	ErrNoNavigator = errors.New("crawler has no navigator")

	// ErrEmptySearchURL is returned by Run for a blank search URL.
	ErrEmptySearchURL = errors.New("search URL is empty")
)

// Sink receives matches while the crawl runs and the final result once it
// stops. The run history uses it to persist matches incrementally.
type Sink interface {
	RecordMatch(ctx context.Context, m model.MatchRecord) error
	Finish(ctx context.Context, result *model.CrawlResult) error
}

// Crawler runs the crawl loop over one search.
type Crawler struct {
	nav        *navigator.Navigator
	setup      *pipeline.Pipeline
	enum       *enumerate.Enumerator
	extractor  *extract.Extractor
	classifier *classify.Classifier
	sink       Sink
	logger     *slog.Logger

	resultSelector string
	resultsTimeout time.Duration
	maxPages       int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithSetup sets the pipeline run once after the search page loads.
func WithSetup(p *pipeline.Pipeline) Option {
	return func(c *Crawler) {
		c.setup = p
	}
}

// WithEnumerator replaces the default enumerator.
func WithEnumerator(e *enumerate.Enumerator) Option {
	return func(c *Crawler) {
		c.enum = e
	}
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(c *Crawler) {
		c.extractor = e
	}
}

// WithClassifier replaces the default classifier.
func WithClassifier(cl *classify.Classifier) Option {
	return func(c *Crawler) {
		c.classifier = cl
	}
}

// WithSink forwards every match and the final result to s.
func WithSink(s Sink) Option {
	return func(c *Crawler) {
		c.sink = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = l
	}
}

// WithResultSelector sets the element that must render before a result page
// is read.
func WithResultSelector(sel string) Option {
	return func(c *Crawler) {
		c.resultSelector = sel
	}
}

// WithResultsTimeout bounds the wait for the result container.
func WithResultsTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		c.resultsTimeout = d
	}
}

// WithMaxPages bounds the number of result pages. Values below 1 are ignored.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n >= 1 {
			c.maxPages = n
		}
	}
}

// New returns a Crawler driving nav.
func New(nav *navigator.Navigator, opts ...Option) *Crawler {
	c := &Crawler{
		nav:            nav,
		logger:         log.Discard(),
		resultSelector: config.DefaultSelectors().ResultContainer,
		resultsTimeout: config.DefaultResultsTimeout,
		maxPages:       config.DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.enum == nil {
		c.enum = enumerate.New(enumerate.WithLogger(c.logger))
	}
	if c.extractor == nil {
		c.extractor = extract.New(extract.WithLogger(c.logger))
	}
	if c.classifier == nil {
		c.classifier = classify.New(classify.WithLogger(c.logger))
	}
	return c
}

// Close releases the browser session.
func (c *Crawler) Close() error {
	if c.nav == nil || c.nav.Session() == nil {
		return nil
	}
	return c.nav.Session().Close()
}

// Run crawls the search at searchURL.
//
// Crawl-level failures are reported through the result's Termination, never
// as an error; the error return is reserved for a crawler that cannot run at
// all.
func (c *Crawler) Run(ctx context.Context, searchURL string) (*model.CrawlResult, error) {
	if c.nav == nil {
		return nil, ErrNoNavigator
	}
	searchURL = strings.TrimSpace(searchURL)
	if searchURL == "" {
		return nil, ErrEmptySearchURL
	}

	result := model.NewCrawlResult(searchURL, c.maxPages)
	result.Termination = c.crawl(ctx, result)
	result.FinishedAt = time.Now()

	c.logger.Info("crawl finished",
		"search", searchURL,
		"termination", string(result.Termination),
		"pages", result.Stats.PagesProcessed,
		"matches", len(result.Matches),
		"elapsed", result.Duration().Round(time.Millisecond),
	)

	if c.sink != nil {
		if err := c.sink.Finish(context.WithoutCancel(ctx), result); err != nil {
			c.logger.Warn("failed to record crawl result", "error", err)
		}
	}
	return result, nil
}

// crawl runs the state machine and returns why it stopped.
func (c *Crawler) crawl(ctx context.Context, result *model.CrawlResult) model.Termination {
	b := c.nav.Session()
	state := &result.State

	c.logger.Info("loading search page", "url", result.SearchURL)
	if err := c.nav.Load(ctx, result.SearchURL); err != nil {
		if ctx.Err() != nil {
			return model.TerminationCancelled
		}
		c.logger.Error("search page unreachable", "url", result.SearchURL, "error", err)
		return model.TerminationSearchUnreachable
	}

	if c.setup != nil {
		if _, err := c.setup.Execute(ctx, b); err != nil {
			if ctx.Err() != nil {
				return model.TerminationCancelled
			}
			c.logger.Warn("setup incomplete, crawling unfiltered results", "error", err)
		}
	}

	loaded := result.SearchURL
	for {
		if ctx.Err() != nil {
			return model.TerminationCancelled
		}

		c.logger.Info("processing result page", "page", state.CurrentPage, "max_pages", state.MaxPages)

		if err := b.WaitFor(ctx, c.resultSelector, c.resultsTimeout); err != nil {
			if ctx.Err() != nil {
				return model.TerminationCancelled
			}
			c.logger.Error("timed out waiting for listings", "page", state.CurrentPage, "error", err)
			return model.TerminationResultsTimeout
		}

		doc, err := b.Document(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return model.TerminationCancelled
			}
			c.logger.Error("result page unreadable", "page", state.CurrentPage, "error", err)
			return model.TerminationResultsTimeout
		}

		state.Enter(c.currentURL(ctx, loaded))
		base, _ := url.Parse(state.CurrentPageURL) //nolint:errcheck // nil base keeps hrefs as they are

		found := c.enum.Enumerate(doc, base)
		next, hasNext := c.enum.NextPage(doc, base)

		result.Stats.PagesProcessed++
		result.Stats.LinksSeen += found.Seen()
		result.Stats.Excluded += len(found.Excluded)
		result.Stats.Unreadable += found.Unreadable

		c.logger.Info("listings found",
			"page", state.CurrentPage,
			"listings", len(found.Listings),
			"excluded", len(found.Excluded),
			"unreadable", found.Unreadable,
		)

		for i, ref := range found.Listings {
			if ctx.Err() != nil {
				return model.TerminationCancelled
			}
			c.visit(ctx, result, ref, i+1, len(found.Listings))
		}
		if ctx.Err() != nil {
			return model.TerminationCancelled
		}

		if !hasNext {
			c.logger.Info("no next page link", "page", state.CurrentPage)
			return model.TerminationNoNextPage
		}

		state.Advance()
		if state.Exhausted() {
			return model.TerminationMaxPages
		}

		if err := c.nav.Load(ctx, next); err != nil {
			if ctx.Err() != nil {
				return model.TerminationCancelled
			}
			c.logger.Warn("could not load next result page", "page", state.CurrentPage, "url", next, "error", err)
			return model.TerminationPaginationFailed
		}
		loaded = next
	}
}

// visit processes one listing and returns to the result page.
func (c *Crawler) visit(ctx context.Context, result *model.CrawlResult, ref model.ListingRef, index, total int) {
	b := c.nav.Session()

	c.logger.Info("visiting listing", "index", index, "total", total, "title", ref.Title, "url", ref.URL)

	if err := c.nav.Load(ctx, ref.URL); err != nil {
		if ctx.Err() != nil {
			return
		}
		result.Stats.VisitFailures++
		c.logger.Warn("skipping listing", "url", ref.URL, "error", err)
		return
	}
	result.Stats.ListingsVisited++

	doc, err := b.Document(ctx)
	if err != nil {
		result.Stats.VisitFailures++
		c.logger.Warn("listing page unreadable", "url", ref.URL, "error", err)
	} else {
		detail := c.extractor.Extract(doc, ref.Title)
		classified := c.classifier.Classify(detail, ref.URL)

		c.logger.Debug("listing classified",
			"url", ref.URL,
			"reason_rule", string(classified.ReasonOutcome),
			"content_rule", string(classified.ContentOutcome),
		)

		for _, rec := range classified.Records {
			result.Append(rec)
			c.logger.Info("match found", "title", rec.Title, "rule", string(rec.Rule), "reason", rec.Reason)
			if c.sink != nil {
				if err := c.sink.RecordMatch(ctx, rec); err != nil {
					c.logger.Warn("failed to record match", "url", rec.URL, "error", err)
				}
			}
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := c.nav.Load(ctx, result.State.CurrentPageURL); err != nil {
		if ctx.Err() != nil {
			return
		}
		result.Stats.ReturnFailures++
		c.logger.Warn("could not return to result page, continuing with next listing",
			"url", result.State.CurrentPageURL, "error", err)
	}
}

// currentURL is the browser's location, or fallback when it cannot tell.
func (c *Crawler) currentURL(ctx context.Context, fallback string) string {
	u, err := c.nav.Session().CurrentURL(ctx)
	if err != nil || u == "" {
		return fallback
	}
	return u
}
