package crawler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
)

// Factory builds a crawler with its own browser session for one search.
type Factory func(ctx context.Context, searchURL string) (*Crawler, error)

// BatchProcessor crawls several searches concurrently.
//
// Every search gets a fresh crawler from the factory, so sessions are never
// shared. Results are stored by argument index, which keeps the merged match
// list in the order the searches were given regardless of which crawl
// finishes first.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets how many searches run at once. Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor returns a BatchProcessor using factory.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 1,
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(bp)
	}
	return bp
}

// ProcessBatch crawls every search and returns one result per search, in
// order. A search whose crawler cannot be built gets a result terminated as
// search_unreachable. The error is non-nil only when a crawler refused to
// run at all.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, searches []string) ([]*model.CrawlResult, error) {
	bp.logger.Info("starting batch",
		"searches", len(searches),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	results := make([]*model.CrawlResult, len(searches))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, search := range searches {
		g.Go(func() error {
			res, err := bp.crawlOne(gctx, search, i, len(searches))
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch complete",
		"searches", len(searches),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return results, err
}

func (bp *BatchProcessor) crawlOne(ctx context.Context, search string, index, total int) (*model.CrawlResult, error) {
	bp.logger.Info("crawling search", "search", search, "index", index+1, "total", total)

	c, err := bp.factory(ctx, search)
	if err != nil {
		bp.logger.Error("could not open a session", "search", search, "error", err)
		res := model.NewCrawlResult(search, 0)
		res.Termination = model.TerminationSearchUnreachable
		if ctx.Err() != nil {
			res.Termination = model.TerminationCancelled
		}
		res.FinishedAt = time.Now()
		return res, nil
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			bp.logger.Debug("closing session", "search", search, "error", cerr)
		}
	}()

	return c.Run(ctx, search)
}
