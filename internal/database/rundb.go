package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/bizscout/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the data directory.
const FileName = "bizscout.db"

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished is returned when a match is recorded for a finished run.
	ErrRunFinished = errors.New("run already finished")
)

// RunDB provides SQLite-based storage for crawl runs and their matches.
// Matches are inserted as soon as they are found, so a run that dies
// halfway keeps everything recorded before the failure.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// now is the clock used for run timestamps.
	now func() time.Time
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// writer while a crawl is in progress.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// busy_timeout lets a second process wait for the writer instead of failing.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; concurrent crawls share this connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per crawl over one search
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		search_url TEXT NOT NULL,
		max_pages INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0,
		termination TEXT,
		match_count INTEGER DEFAULT 0,
		stats TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_search ON runs(search_url);

	-- Matches in the order the crawl produced them
	CREATE TABLE IF NOT EXISTS matches (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		title TEXT NOT NULL,
		address TEXT,
		url TEXT NOT NULL,
		reason TEXT,
		rule TEXT NOT NULL,
		PRIMARY KEY(run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_matches_url ON matches(url);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a stored crawl run.
type Run struct {
	ID          string            `json:"id"`
	SearchURL   string            `json:"search_url"`
	MaxPages    int               `json:"max_pages"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Pages       int               `json:"pages"`
	Termination model.Termination `json:"termination"`
	MatchCount  int               `json:"match_count"`
	Stats       model.Stats       `json:"stats"`
}

// Finished reports whether FinishRun was called for the run.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// BeginRun stores a new unfinished run and returns its ID.
func (rdb *RunDB) BeginRun(ctx context.Context, searchURL string, maxPages int) (string, error) {
	id := uuid.NewString()

	query := `
	INSERT INTO runs (id, search_url, max_pages, started_at)
	VALUES (?, ?, ?, ?)
	`
	if _, err := rdb.db.ExecContext(ctx, query, id, searchURL, maxPages, formatTimestamp(rdb.now())); err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// RecordMatch appends a match to an unfinished run.
// The sequence number is assigned in insertion order.
func (rdb *RunDB) RecordMatch(ctx context.Context, runID string, m model.MatchRecord) error {
	run, err := rdb.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Finished() {
		return fmt.Errorf("%w: %s", ErrRunFinished, runID)
	}

	query := `
	INSERT INTO matches (run_id, seq, title, address, url, reason, rule)
	SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?
	FROM matches WHERE run_id = ?
	`
	if _, err := rdb.db.ExecContext(ctx, query,
		runID, m.Title, m.Address, m.URL, m.Reason, string(m.Rule), runID,
	); err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}

	if _, err := rdb.db.ExecContext(ctx,
		"UPDATE runs SET match_count = match_count + 1 WHERE id = ?", runID,
	); err != nil {
		return fmt.Errorf("failed to update match count: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a crawl.
func (rdb *RunDB) FinishRun(ctx context.Context, runID string, result *model.CrawlResult) error {
	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}

	finished := result.FinishedAt
	if finished.IsZero() {
		finished = rdb.now()
	}

	query := `
	UPDATE runs
	SET finished_at = ?, pages = ?, termination = ?, stats = ?
	WHERE id = ?
	`
	res, err := rdb.db.ExecContext(ctx, query,
		formatTimestamp(finished), result.Stats.PagesProcessed, string(result.Termination), string(statsJSON), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, search_url, max_pages, started_at, finished_at, pages, termination, match_count, stats`

// GetRun retrieves a run by ID.
func (rdb *RunDB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := rdb.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
// A limit of zero or less returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunMatches returns the matches of a run in the order they were found.
func (rdb *RunDB) GetRunMatches(ctx context.Context, runID string) ([]model.MatchRecord, error) {
	query := `
	SELECT title, address, url, reason, rule
	FROM matches
	WHERE run_id = ?
	ORDER BY seq
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	defer rows.Close()

	matches := make([]model.MatchRecord, 0)
	for rows.Next() {
		var m model.MatchRecord
		var address, reason sql.NullString
		var rule string
		if err := rows.Scan(&m.Title, &address, &m.URL, &reason, &rule); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Address = address.String
		m.Reason = reason.String
		m.Rule = model.Rule(rule)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var started string
	var finished, termination, statsJSON sql.NullString

	if err := s.Scan(
		&run.ID, &run.SearchURL, &run.MaxPages, &started, &finished,
		&run.Pages, &termination, &run.MatchCount, &statsJSON,
	); err != nil {
		return nil, err
	}

	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	run.Termination = model.Termination(termination.String)
	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &run.Stats); err != nil {
			run.Stats = model.Stats{}
		}
	}
	run.Stats.Matches = run.MatchCount
	return &run, nil
}

// timestampLayout is fixed-width UTC so lexical order matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
