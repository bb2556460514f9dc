package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/bizscout/internal/browser"
	"github.com/nao1215/bizscout/internal/classify"
	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/crawler"
	"github.com/nao1215/bizscout/internal/database"
	"github.com/nao1215/bizscout/internal/enumerate"
	"github.com/nao1215/bizscout/internal/extract"
	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
	"github.com/nao1215/bizscout/internal/navigator"
	"github.com/nao1215/bizscout/internal/pipeline"
	"github.com/nao1215/bizscout/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [search-url...]",
		Short: "Crawl a business-for-sale search and keep retiring owners",
		Long: `Scan walks the result pages of one or more business-for-sale searches.

For every listing on a result page it:
- skips listings whose title names an excluded category
- opens the listing and reads its title, address and reason for selling
- keeps the listing when the reason mentions retirement or emigration, or
  when a content section mentions retirement

Matches are written to the output file when the crawl ends, including
when it stops early. Every run is also recorded in the history database.

Examples:
  # Crawl the default search for up to 10 pages
  bizscout scan

  # Crawl a specific search, 3 pages, as a spreadsheet
  bizscout scan -p 3 -o retiring.xlsx "https://uk.businessesforsale.com/uk/search/businesses-for-sale-in-kent"

  # Use the static HTML engine through a SOCKS proxy
  bizscout scan -e http --proxy socks5://127.0.0.1:9050

  # Crawl two searches at once
  bizscout scan -b 2 URL1 URL2`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Profile
	cmd.Flags().StringP("config", "c", "",
		"Profile path (default: .bizscout in current or home directory)")

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of result pages per search")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Navigation attempts per page load")
	cmd.Flags().Duration("retry-wait", config.DefaultRetryWait,
		"Back-off base between attempts (attempt n waits n times this)")
	cmd.Flags().Duration("settle", config.DefaultSettleDelay,
		"Wait after each successful page load")
	cmd.Flags().DurationP("wait-timeout", "t", config.DefaultResultsTimeout,
		"How long to wait for a result page to show listings")
	cmd.Flags().Float64("rate", 0,
		"Maximum page loads per second (0 = unlimited)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of searches crawled concurrently")

	// Engine flags
	cmd.Flags().StringP("engine", "e", config.EngineChrome,
		"Rendering engine: 'chrome' or 'http'")
	cmd.Flags().Bool("headless", true,
		"Run Chrome without a window")
	cmd.Flags().String("proxy", "",
		"Proxy URL (e.g. socks5://127.0.0.1:9050)")
	cmd.Flags().String("chrome-path", "",
		"Chrome binary to launch (default: found on PATH)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Bytes of each page parsed by the http engine")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Artifact path (creates directories if needed)")
	cmd.Flags().StringP("format", "f", "",
		"Artifact format: csv, xlsx, markdown or json (default: from output extension)")
	cmd.Flags().String("markdown-summary", "",
		"Also write a Markdown run summary to this path")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("log-format", config.LogFormatText,
		"Log format on stderr: 'text' or 'json'")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the profile file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryWait, err = flags.GetDuration("retry-wait"); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = flags.GetDuration("settle"); err != nil {
		return nil, err
	}
	if cfg.ResultsTimeout, err = flags.GetDuration("wait-timeout"); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Engine, err = flags.GetString("engine"); err != nil {
		return nil, err
	}
	if cfg.Headless, err = flags.GetBool("headless"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.MarkdownSummary, err = flags.GetString("markdown-summary"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly given profile must exist; otherwise the built-in
	// profile is used when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Profile, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	applyProfile(cmd, cfg, args)
	return cfg, nil
}

// applyProfile fills in what the command line left open from the profile.
// Flags given explicitly always win.
func applyProfile(cmd *cobra.Command, cfg *config.Config, args []string) {
	p := cfg.Profile

	cfg.SearchURLs = args
	if len(cfg.SearchURLs) == 0 && p.Search != "" {
		cfg.SearchURLs = []string{p.Search}
	}

	if !cmd.Flags().Changed("max-pages") && p.MaxPages > 0 {
		cfg.MaxPages = p.MaxPages
	}

	if p.UserAgent != "" {
		cfg.UserAgent = p.UserAgent
	}
}

// setupLogger creates a structured logger based on verbosity setting.
// Progress is logged at Info, so it is visible by default.
func setupLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	if format == config.LogFormatJSON {
		return log.NewJSONLogger(w, log.Level(verbose))
	}
	return log.NewLogger(w, log.Level(verbose))
}

// runScan executes the crawl and writes every output.
// The artifact is written even when the crawl stopped early.
func runScan(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting scan",
		"searches", cfg.SearchURLs,
		"engine", cfg.Engine,
		"maxPages", cfg.MaxPages,
		"batchSize", cfg.BatchSize,
		"proxy", cfg.ProxyAddress,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			// History is a convenience; the artifact is what the user asked for.
			logger.Warn("run history disabled", "dir", cfg.DBDir, "error", err)
			db = nil
		} else {
			defer db.Close()
			logger.Debug("database opened", "path", db.Path())
		}
	}

	start := time.Now()
	bp := crawler.NewBatchProcessor(
		newCrawlerFactory(cfg, db, logger),
		crawler.WithConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)
	results, crawlErr := bp.ProcessBatch(ctx, cfg.SearchURLs)

	var errs []error
	if crawlErr != nil {
		errs = append(errs, fmt.Errorf("crawl failed: %w", crawlErr))
	}

	targets := []reportTarget{{path: cfg.OutputFile, format: cfg.ArtifactFormat()}}
	if cfg.MarkdownSummary != "" {
		targets = append(targets, reportTarget{path: cfg.MarkdownSummary, format: config.FormatMarkdown})
	}
	if err := writeReports(results, targets...); err != nil {
		errs = append(errs, err)
	} else {
		logger.Info("artifact written",
			"path", cfg.OutputFile,
			"format", cfg.ArtifactFormat(),
			"matches", len(model.MergeMatches(results)),
		)
	}

	summary := report.NewSimpleWriter(out,
		report.WithArtifactPath(cfg.OutputFile),
		report.WithShowMatches(cfg.Verbose),
	)
	if err := summary.Write(results); err != nil {
		logger.Error("failed to print summary", "error", err)
	}
	fmt.Fprintf(out, "Scan completed in %s\n", time.Since(start).Round(time.Millisecond))

	if ctx.Err() != nil {
		errs = append(errs, fmt.Errorf("scan interrupted: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}

// newCrawlerFactory returns a factory building one fully wired crawler per
// search. Every crawler owns its own browser session and its own
// enumerator, extractor and classifier.
func newCrawlerFactory(cfg *config.Config, db *database.RunDB, logger *slog.Logger) crawler.Factory {
	return func(ctx context.Context, searchURL string) (*crawler.Crawler, error) {
		session, err := openSession(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s session: %w", cfg.Engine, err)
		}

		clog := logger.With("search", searchURL)
		p := cfg.Profile

		nav := navigator.New(session,
			navigator.WithRetries(cfg.Retries),
			navigator.WithBaseWait(cfg.RetryWait),
			navigator.WithSettleDelay(cfg.SettleDelay),
			navigator.WithRate(cfg.RequestsPerSecond),
			navigator.WithLogger(clog),
		)

		opts := []crawler.Option{
			crawler.WithSetup(newSetupPipeline(cfg, clog)),
			crawler.WithEnumerator(enumerate.New(
				enumerate.WithSelectors(p.Selectors),
				enumerate.WithExclude(p.Lexicon.Exclude),
				enumerate.WithLogger(clog),
			)),
			crawler.WithExtractor(extract.New(
				extract.WithSelectors(p.Selectors),
				extract.WithLogger(clog),
			)),
			crawler.WithClassifier(classify.New(
				classify.WithLexicon(p.Lexicon),
				classify.WithLogger(clog),
			)),
			crawler.WithLogger(clog),
			crawler.WithResultSelector(p.Selectors.ResultContainer),
			crawler.WithResultsTimeout(cfg.ResultsTimeout),
			crawler.WithMaxPages(cfg.MaxPages),
		}

		if db != nil {
			rec, err := database.NewRecorder(ctx, db, searchURL, cfg.MaxPages,
				database.WithRecorderLogger(clog))
			if err != nil {
				clog.Warn("run will not be recorded", "error", err)
			} else {
				opts = append(opts, crawler.WithSink(rec))
			}
		}

		return crawler.New(nav, opts...), nil
	}
}

// newSetupPipeline returns the steps run once on the first result page.
func newSetupPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	p := cfg.Profile

	setup := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	if p.Selectors.CookieAccept != "" {
		setup.AddStep(pipeline.NewCookieConsentStep(p.Selectors.CookieAccept, cfg.ResultsTimeout, logger))
	}
	if p.Filters.Apply {
		setup.AddStep(pipeline.NewFilterStep(p.Filters, p.Selectors,
			pipeline.WithStepTimeout(cfg.ResultsTimeout),
			pipeline.WithStepLogger(logger),
		))
	}
	return setup
}

// openSession starts the configured rendering engine.
func openSession(ctx context.Context, cfg *config.Config) (browser.Browser, error) {
	switch cfg.Engine {
	case config.EngineHTTP:
		opts := []browser.HTTPOption{
			browser.WithUserAgent(cfg.UserAgent),
			browser.WithTimeout(cfg.HTTPTimeout),
		}
		if cfg.ProxyAddress != "" {
			opts = append(opts, browser.WithProxy(cfg.ProxyAddress))
		}
		opts = append(opts, browser.WithMaxBodySize(cfg.MaxBodySize))
		h, err := browser.NewHTTP(opts...)
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.EngineChrome:
		opts := []browser.ChromeOption{
			browser.WithHeadless(cfg.Headless),
			browser.WithChromeUserAgent(cfg.UserAgent),
		}
		if cfg.ProxyAddress != "" {
			opts = append(opts, browser.WithChromeProxy(cfg.ProxyAddress))
		}
		if cfg.ChromePath != "" {
			opts = append(opts, browser.WithExecPath(cfg.ChromePath))
		}
		c, err := browser.NewChrome(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, config.ErrUnknownEngine
	}
}

// reportTarget is one output file and the format written to it.
type reportTarget struct {
	path   string
	format string
}

// writeReports writes results to every target in one pass. A target that
// cannot be opened is reported but does not stop the others.
func writeReports(results []*model.CrawlResult, targets ...reportTarget) (err error) {
	var (
		writers []report.Writer
		errs    []error
	)
	for _, t := range targets {
		f, openErr := createOutput(t.path)
		if openErr != nil {
			errs = append(errs, openErr)
			continue
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to close %s: %w", t.path, cerr))
			}
		}()

		w, newErr := report.New(t.format, f)
		if newErr != nil {
			errs = append(errs, newErr)
			continue
		}
		writers = append(writers, w)
	}

	if werr := report.NewMultiWriter(writers...).Write(results); werr != nil {
		errs = append(errs, fmt.Errorf("failed to write report: %w", werr))
	}
	return errors.Join(errs...)
}

// createOutput creates path and its parent directories.
func createOutput(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
