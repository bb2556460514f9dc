package config

import "errors"

// Configuration validation errors.
// Callers match them with errors.Is; none of them carries dynamic values.
var (
	// ErrNoSearchURL is returned when no search page is given on the command
	// line or in the profile file.
	ErrNoSearchURL = errors.New("no search URL specified: pass one as an argument or set 'search' in the config file")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidRetries is returned when the navigation attempt count is not positive.
	ErrInvalidRetries = errors.New("invalid retries: must be positive")

	// ErrInvalidRetryWait is returned when the back-off base is negative.
	ErrInvalidRetryWait = errors.New("invalid retry wait: must be non-negative")

	// ErrInvalidSettleDelay is returned when the settle delay is negative.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be non-negative")

	// ErrInvalidWaitTimeout is returned when the result page timeout is not positive.
	ErrInvalidWaitTimeout = errors.New("invalid wait timeout: must be positive")

	// ErrInvalidRate is returned when the request rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative (0 disables rate limiting)")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrUnknownEngine is returned for an engine other than chrome or http.
	ErrUnknownEngine = errors.New("unknown engine: use 'chrome' or 'http'")

	// ErrInvalidMaxBodySize is returned when the response size cap is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrUnknownLogFormat is returned for a log format other than text or json.
	ErrUnknownLogFormat = errors.New("unknown log format: use 'text' or 'json'")

	// ErrUnknownFormat is returned for an unsupported artifact format.
	ErrUnknownFormat = errors.New("unknown output format: use 'csv', 'xlsx', 'markdown' or 'json'")

	// ErrNoOutputFile is returned when the artifact path is empty.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrEmptyReasonTokens is returned when the reason-field lexicon is empty.
	ErrEmptyReasonTokens = errors.New("invalid lexicon: reasonTokens must not be empty")

	// ErrEmptyContentTokens is returned when the content-scan lexicon is empty.
	ErrEmptyContentTokens = errors.New("invalid lexicon: contentTokens must not be empty")

	// ErrInvalidEvidenceLimit is returned when the evidence excerpt length is not positive.
	ErrInvalidEvidenceLimit = errors.New("invalid lexicon: evidenceLimit must be positive")

	// ErrMissingSelector is returned when a selector the crawl loop depends on is blank.
	ErrMissingSelector = errors.New("invalid selectors: resultContainer, listingLink and nextLink are required")
)
