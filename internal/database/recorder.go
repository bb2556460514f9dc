package database

import (
	"context"
	"log/slog"

	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
)

// Recorder streams the matches of one crawl into a RunDB.
// It satisfies the crawler's Sink interface.
type Recorder struct {
	db     *RunDB
	runID  string
	logger *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder begins a run for searchURL and returns a Recorder bound to it.
func NewRecorder(ctx context.Context, db *RunDB, searchURL string, maxPages int, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		db:     db,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}

	id, err := db.BeginRun(ctx, searchURL, maxPages)
	if err != nil {
		return nil, err
	}
	r.runID = id
	r.logger = r.logger.With("run", id)
	r.logger.Debug("run started", "search", searchURL)
	return r, nil
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// RecordMatch stores one match.
func (r *Recorder) RecordMatch(ctx context.Context, m model.MatchRecord) error {
	return r.db.RecordMatch(ctx, r.runID, m)
}

// Finish stores the crawl outcome.
func (r *Recorder) Finish(ctx context.Context, result *model.CrawlResult) error {
	if err := r.db.FinishRun(ctx, r.runID, result); err != nil {
		return err
	}
	r.logger.Debug("run finished", "termination", result.Termination, "matches", len(result.Matches))
	return nil
}
