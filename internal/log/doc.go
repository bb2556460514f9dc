// Package log builds the slog loggers used by bizscout.
//
// Every logger returned by this package wraps its output handler in a
// RedactingHandler. Proxy credentials, cookies set by the directory and
// authorization headers can end up in log attributes while a crawl runs;
// the handler masks them before they reach the terminal or a log file.
//
// Levels:
//   - Info (default): crawl progress, i.e. page starts, listing visits,
//     matches and skipped listings
//   - Debug (--verbose): field absences, retry attempts, setup details
//
// Usage:
//
//	logger := log.NewLogger(os.Stderr, log.Level(verbose))
//	logger.Info("visiting listing", "index", 3, "total", 20, "url", u)
package log
