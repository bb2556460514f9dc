package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNavigation is returned when the engine fails to load a page.
	ErrNavigation = errors.New("navigation failed")

	// ErrTransient is returned for server responses worth retrying
	// (5xx and 429).
	ErrTransient = errors.New("transient server error")

	// ErrWaitTimeout is returned when a selector does not appear in time.
	ErrWaitTimeout = errors.New("timed out waiting for element")

	// ErrElementNotFound is returned when an interaction targets a selector
	// matching nothing.
	ErrElementNotFound = errors.New("element not found")

	// ErrNotInteractive is returned when the engine cannot perform the
	// requested interaction on the element.
	ErrNotInteractive = errors.New("element is not interactive")

	// ErrNoPage is returned when the session has not loaded any page yet.
	ErrNoPage = errors.New("no page loaded")

	// ErrInvalidURL is returned for URLs that can never load.
	// Retrying them is pointless.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidProxy is returned when the proxy address cannot be used.
	ErrInvalidProxy = errors.New("invalid proxy address")
)

// Browser is one page session.
//
// Implementations are not safe for concurrent use; the crawl loop is the
// only caller of a session.
type Browser interface {
	// Navigate loads rawURL, replacing the current page.
	Navigate(ctx context.Context, rawURL string) error

	// WaitFor blocks until selector matches at least one element or
	// timeout elapses, in which case it returns ErrWaitTimeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Document returns a snapshot of the current DOM.
	Document(ctx context.Context) (*goquery.Document, error)

	// CurrentURL returns the location of the current page.
	CurrentURL(ctx context.Context) (string, error)

	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error

	// SetValue types value into the first form field matching selector.
	SetValue(ctx context.Context, selector, value string) error

	// Checked reports whether the first checkbox matching selector is ticked.
	Checked(ctx context.Context, selector string) (bool, error)

	// Close releases the session.
	Close() error
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// IsPermanent reports whether err can never be cured by retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidURL)
}
