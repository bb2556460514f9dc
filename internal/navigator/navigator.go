// Package navigator loads pages with bounded retries.
//
// A Navigator owns one browser session. Load makes up to Retries attempts,
// waiting BaseWait×attempt between failed attempts (5s then 10s with the
// defaults), and lets the page settle after a success so client-side
// rendering can finish before the DOM is read.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/bizscout/internal/browser"
	"github.com/nao1215/bizscout/internal/log"
)

// ErrRetriesExhausted is returned when every attempt failed.
// It wraps the error of the last attempt.
var ErrRetriesExhausted = errors.New("page load failed")

// Defaults used when no option overrides them.
const (
	DefaultRetries     = 3
	DefaultBaseWait    = 5 * time.Second
	DefaultSettleDelay = 2 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Navigator wraps a browser session with retry, back-off and settle handling.
type Navigator struct {
	session  browser.Browser
	retries  int
	baseWait time.Duration
	settle   time.Duration
	limiter  *rate.Limiter
	sleep    SleepFunc
	logger   *slog.Logger
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithRetries sets the number of attempts per load. Values below 1 are ignored.
func WithRetries(n int) Option {
	return func(nav *Navigator) {
		if n >= 1 {
			nav.retries = n
		}
	}
}

// WithBaseWait sets the back-off base. Attempt n is followed by n×d.
func WithBaseWait(d time.Duration) Option {
	return func(nav *Navigator) {
		nav.baseWait = d
	}
}

// WithSettleDelay sets the pause after a successful load.
func WithSettleDelay(d time.Duration) Option {
	return func(nav *Navigator) {
		nav.settle = d
	}
}

// WithRate limits navigation attempts to rps per second. Zero disables it.
func WithRate(rps float64) Option {
	return func(nav *Navigator) {
		if rps > 0 {
			nav.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithSleep replaces the wait function. Tests use it to record waits.
func WithSleep(fn SleepFunc) Option {
	return func(nav *Navigator) {
		nav.sleep = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(nav *Navigator) {
		nav.logger = l
	}
}

// New returns a Navigator driving session.
func New(session browser.Browser, opts ...Option) *Navigator {
	nav := &Navigator{
		session:  session,
		retries:  DefaultRetries,
		baseWait: DefaultBaseWait,
		settle:   DefaultSettleDelay,
		sleep:    Sleep,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(nav)
	}
	return nav
}

// Session returns the browser session the navigator drives.
func (n *Navigator) Session() browser.Browser {
	return n.session
}

// Load navigates to url. A nil error means the page loaded and settled.
//
// Invalid URLs and caller cancellation stop immediately. Any other failure is
// retried until the attempt budget is spent.
func (n *Navigator) Load(ctx context.Context, url string) error {
	var lastErr error

	for attempt := 1; attempt <= n.retries; attempt++ {
		if n.limiter != nil {
			if err := n.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := n.session.Navigate(ctx, url)
		if err == nil {
			if n.settle > 0 {
				if err := n.sleep(ctx, n.settle); err != nil {
					return err
				}
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if browser.IsPermanent(err) {
			n.logger.Warn("page cannot be loaded", "url", url, "error", err)
			return err
		}

		lastErr = err
		n.logger.Debug("navigation attempt failed",
			"url", url, "attempt", attempt, "retries", n.retries, "error", err)

		if attempt < n.retries {
			if err := n.sleep(ctx, n.baseWait*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}

	n.logger.Warn("giving up on page", "url", url, "attempts", n.retries, "error", lastErr)
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, n.retries, lastErr)
}

// Sleep waits for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
