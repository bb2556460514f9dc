package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Timing defaults follow the behaviour the crawl loop was tuned for:
// three attempts per navigation, a linear back-off of five seconds per
// attempt, and a two second settle delay for client-side rendering.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "bizscout"

	// DefaultSearchURL is the business-for-sale search the crawl starts from.
	DefaultSearchURL = "https://uk.businessesforsale.com/uk/search/businesses-for-sale"

	// DefaultMaxPages bounds how many result pages are processed.
	DefaultMaxPages = 10

	// DefaultRetries is the number of navigation attempts before a load fails.
	DefaultRetries = 3

	// DefaultRetryWait is the back-off base; attempt n waits n times this value.
	DefaultRetryWait = 5 * time.Second

	// DefaultSettleDelay is the wait after a successful load before the page
	// is treated as ready.
	DefaultSettleDelay = 2 * time.Second

	// DefaultResultsTimeout is how long to wait for a result page to render
	// at least one listing container.
	DefaultResultsTimeout = 15 * time.Second

	// DefaultBatchSize is the number of searches crawled concurrently.
	// One keeps a single browser session, which is the reference behaviour.
	DefaultBatchSize = 1

	// DefaultOutputFile is the tabular artifact written at the end of a crawl.
	DefaultOutputFile = "filtered_listings.csv"

	// DefaultUserAgent is sent by the HTTP engine and the Chrome engine.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultHTTPTimeout bounds a single request made by the HTTP engine.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxBodySize caps how many bytes of a page the HTTP engine parses.
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// Rendering engines.
const (
	// EngineChrome drives a headless Chrome through the DevTools protocol.
	EngineChrome = "chrome"

	// EngineHTTP fetches static HTML without running scripts.
	EngineHTTP = "http"
)

// Artifact formats.
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration options for one bizscout invocation.
// It is populated from CLI flags, completed from the profile file, and passed
// through the application explicitly rather than via global state.
type Config struct {
	// SearchURLs are the search pages to crawl. Each one is crawled with its
	// own browser session; matches are merged in this order.
	SearchURLs []string

	// MaxPages is the maximum number of result pages per search.
	MaxPages int

	// Retries is the number of navigation attempts per page load.
	Retries int

	// RetryWait is the linear back-off base between navigation attempts.
	RetryWait time.Duration

	// SettleDelay is the wait after a successful navigation.
	SettleDelay time.Duration

	// ResultsTimeout bounds the wait for a result page to render listings.
	// Hitting it ends the whole crawl.
	ResultsTimeout time.Duration

	// RequestsPerSecond limits navigation attempts. Zero means unlimited.
	RequestsPerSecond float64

	// Engine selects the rendering engine (EngineChrome or EngineHTTP).
	Engine string

	// Headless runs Chrome without a visible window.
	Headless bool

	// ProxyAddress routes traffic through a proxy. The HTTP engine accepts
	// socks5://host:port or http(s)://host:port; Chrome accepts any proxy
	// server string it understands.
	ProxyAddress string

	// ChromePath points at a specific Chrome binary. Empty lets chromedp
	// find one on PATH.
	ChromePath string

	// UserAgent is the User-Agent sent with every request.
	UserAgent string

	// HTTPTimeout bounds a single request made by the HTTP engine.
	HTTPTimeout time.Duration

	// MaxBodySize caps how many bytes of a response the HTTP engine parses.
	MaxBodySize int64

	// BatchSize is the number of searches crawled concurrently.
	BatchSize int

	// OutputFile is the path of the tabular artifact.
	OutputFile string

	// Format forces the artifact format. Empty means "infer from OutputFile".
	Format string

	// MarkdownSummary, when set, is a path for an additional Markdown summary.
	MarkdownSummary string

	// ConfigFilePath is the path to the profile file.
	// If empty, the file is searched for in the usual locations.
	ConfigFilePath string

	// Profile holds filters, lexicons and selectors loaded from the profile file.
	Profile *File

	// SaveToDB records every run and its matches in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string

	// LogFormat is LogFormatText or LogFormatJSON.
	LogFormat string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		Retries:        DefaultRetries,
		RetryWait:      DefaultRetryWait,
		SettleDelay:    DefaultSettleDelay,
		ResultsTimeout: DefaultResultsTimeout,
		Engine:         EngineChrome,
		Headless:       true,
		UserAgent:      DefaultUserAgent,
		HTTPTimeout:    DefaultHTTPTimeout,
		MaxBodySize:    DefaultMaxBodySize,
		LogFormat:      LogFormatText,
		BatchSize:      DefaultBatchSize,
		OutputFile:     DefaultOutputFile,
		Profile:        DefaultFile(),
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for bizscout.
// On Linux: ~/.local/share/bizscout
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for bizscout.
// On Linux: ~/.config/bizscout
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ArtifactFormat returns the artifact format, inferring it from the output
// file extension when Format is empty.
func (c *Config) ArtifactFormat() string {
	if c.Format != "" {
		return strings.ToLower(c.Format)
	}
	switch strings.ToLower(filepath.Ext(c.OutputFile)) {
	case ".xlsx":
		return FormatXLSX
	case ".md", ".markdown":
		return FormatMarkdown
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.SearchURLs) == 0 {
		return ErrNoSearchURL
	}
	for _, u := range c.SearchURLs {
		if strings.TrimSpace(u) == "" {
			return ErrNoSearchURL
		}
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Retries <= 0 {
		return ErrInvalidRetries
	}

	if c.RetryWait < 0 {
		return ErrInvalidRetryWait
	}

	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}

	if c.ResultsTimeout <= 0 {
		return ErrInvalidWaitTimeout
	}

	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	switch c.Engine {
	case EngineChrome, EngineHTTP:
	default:
		return ErrUnknownEngine
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return ErrUnknownLogFormat
	}

	switch c.ArtifactFormat() {
	case FormatCSV, FormatXLSX, FormatMarkdown, FormatJSON:
	default:
		return ErrUnknownFormat
	}

	if c.OutputFile == "" {
		return ErrNoOutputFile
	}

	if c.Profile != nil {
		if err := c.Profile.Validate(); err != nil {
			return err
		}
	}

	return nil
}
