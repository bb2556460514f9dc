package navigator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bizscout/internal/browser"
)

// flakyBrowser fails the first failures navigations with err.
type flakyBrowser struct {
	failures int
	err      error
	calls    []string
}

func (f *flakyBrowser) Navigate(_ context.Context, url string) error {
	f.calls = append(f.calls, url)
	if len(f.calls) <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyBrowser) WaitFor(context.Context, string, time.Duration) error { return nil }
func (f *flakyBrowser) Document(context.Context) (*goquery.Document, error) {
	return nil, browser.ErrNoPage
}
func (f *flakyBrowser) CurrentURL(context.Context) (string, error)      { return "", nil }
func (f *flakyBrowser) Click(context.Context, string) error             { return nil }
func (f *flakyBrowser) SetValue(context.Context, string, string) error  { return nil }
func (f *flakyBrowser) Checked(context.Context, string) (bool, error)   { return false, nil }
func (f *flakyBrowser) Close() error                                    { return nil }

// recorder collects requested waits without sleeping.
type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

var errFlaky = fmt.Errorf("%w: connection reset", browser.ErrNavigation)

func TestLoad_Success(t *testing.T) {
	t.Parallel()

	b := &flakyBrowser{}
	rec := &recorder{}
	nav := New(b, WithSleep(rec.sleep))

	if err := nav.Load(context.Background(), "https://example.com/search"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.calls) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(b.calls))
	}
	if len(rec.waits) != 1 || rec.waits[0] != DefaultSettleDelay {
		t.Errorf("expected only the settle delay, got %v", rec.waits)
	}
}

func TestLoad_BackoffIsLinearAndMonotonic(t *testing.T) {
	t.Parallel()

	b := &flakyBrowser{failures: 2, err: errFlaky}
	rec := &recorder{}
	nav := New(b, WithSleep(rec.sleep))

	if err := nav.Load(context.Background(), "https://example.com/listing/1"); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, DefaultSettleDelay}
	if len(rec.waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, rec.waits)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Errorf("wait %d: expected %v, got %v", i, want[i], rec.waits[i])
		}
	}
}

func TestLoad_ExactAttemptCount(t *testing.T) {
	t.Parallel()

	for _, retries := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			t.Parallel()

			b := &flakyBrowser{failures: 100, err: errFlaky}
			rec := &recorder{}
			nav := New(b, WithRetries(retries), WithBaseWait(time.Second), WithSleep(rec.sleep))

			err := nav.Load(context.Background(), "https://example.com/")
			if !errors.Is(err, ErrRetriesExhausted) {
				t.Fatalf("expected ErrRetriesExhausted, got %v", err)
			}
			if !errors.Is(err, browser.ErrNavigation) {
				t.Errorf("expected last error to be wrapped, got %v", err)
			}
			if len(b.calls) != retries {
				t.Errorf("expected %d attempts, got %d", retries, len(b.calls))
			}

			// No wait after the final attempt and no settle on failure.
			if len(rec.waits) != retries-1 {
				t.Fatalf("expected %d waits, got %v", retries-1, rec.waits)
			}
			for i, w := range rec.waits {
				if want := time.Duration(i+1) * time.Second; w != want {
					t.Errorf("wait %d: expected %v, got %v", i, want, w)
				}
				if i > 0 && w <= rec.waits[i-1] {
					t.Errorf("waits are not increasing: %v", rec.waits)
				}
			}
		})
	}
}

func TestLoad_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	b := &flakyBrowser{failures: 100, err: fmt.Errorf("%w: bad scheme", browser.ErrInvalidURL)}
	rec := &recorder{}
	nav := New(b, WithSleep(rec.sleep))

	err := nav.Load(context.Background(), "ftp://example.com/")
	if !errors.Is(err, browser.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("a permanent error must not be reported as exhausted retries")
	}
	if len(b.calls) != 1 {
		t.Errorf("expected a single attempt, got %d", len(b.calls))
	}
	if len(rec.waits) != 0 {
		t.Errorf("expected no waits, got %v", rec.waits)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := &flakyBrowser{failures: 100, err: errFlaky}
	nav := New(b, WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	err := nav.Load(ctx, "https://example.com/")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(b.calls) != 1 {
		t.Errorf("expected the crawl to stop after the first attempt, got %d", len(b.calls))
	}
}

func TestLoad_ZeroSettle(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	nav := New(&flakyBrowser{}, WithSettleDelay(0), WithSleep(rec.sleep))
	if err := nav.Load(context.Background(), "https://example.com/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.waits) != 0 {
		t.Errorf("expected no settle wait, got %v", rec.waits)
	}
}

func TestWithRetries_IgnoresNonPositive(t *testing.T) {
	t.Parallel()

	nav := New(&flakyBrowser{}, WithRetries(0))
	if nav.retries != DefaultRetries {
		t.Errorf("expected default retries, got %d", nav.retries)
	}
}

func TestSession(t *testing.T) {
	t.Parallel()

	b := &flakyBrowser{}
	if New(b).Session() != b {
		t.Error("Session must return the wrapped browser")
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("returns after the duration", func(t *testing.T) {
		t.Parallel()
		if err := Sleep(context.Background(), time.Millisecond); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns early when cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Sleep ignored cancellation")
		}
	})
}
