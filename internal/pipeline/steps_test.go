package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/nao1215/bizscout/internal/browser"
	"github.com/nao1215/bizscout/internal/config"
)

const filterForm = `<html><body>
<form action="/search/results" method="get">
  <input id="priceFrom" name="priceFrom" value="">
  <input id="profitFrom" name="profitFrom" value="">
  <input id="PriceDisclosedOnly" name="PriceDisclosedOnly" type="checkbox" value="true">
  <input id="ProfitDisclosedOnly" name="ProfitDisclosedOnly" type="checkbox" value="true" checked>
  <ul><li class="button update-results-button">Update</li></ul>
</form>
</body></html>`

func noSleep(context.Context, time.Duration) error { return nil }

func openPage(t *testing.T, body string) (browser.Browser, chan url.Values) {
	t.Helper()

	submitted := make(chan url.Values, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/search/results", func(w http.ResponseWriter, r *http.Request) {
		submitted <- r.URL.Query()
		fmt.Fprint(w, `<html><body><div class="result"></div></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	b, err := browser.NewHTTP()
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if err := b.Navigate(context.Background(), server.URL+"/search"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	return b, submitted
}

func TestFilterStep(t *testing.T) {
	t.Parallel()

	t.Run("fills and submits the form", func(t *testing.T) {
		t.Parallel()

		b, submitted := openPage(t, filterForm)
		step := NewFilterStep(config.DefaultFile().Filters, config.DefaultSelectors(), WithStepSleep(noSleep))

		if err := step.Do(context.Background(), b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		select {
		case q := <-submitted:
			if q.Get("priceFrom") != "45000" || q.Get("profitFrom") != "45000" {
				t.Errorf("unexpected thresholds %v", q)
			}
			if q.Get("PriceDisclosedOnly") != "true" {
				t.Error("price disclosed box should have been ticked")
			}
			// Already ticked: a second click would have cleared it.
			if q.Get("ProfitDisclosedOnly") != "true" {
				t.Error("profit disclosed box must stay ticked")
			}
		default:
			t.Fatal("form was not submitted")
		}
	})

	t.Run("disabled filters do nothing", func(t *testing.T) {
		t.Parallel()

		b, submitted := openPage(t, filterForm)
		filters := config.DefaultFile().Filters
		filters.Apply = false

		if err := NewFilterStep(filters, config.DefaultSelectors()).Do(context.Background(), b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(submitted) != 0 {
			t.Error("form must not be submitted")
		}
	})

	t.Run("missing field fails the step", func(t *testing.T) {
		t.Parallel()

		b, _ := openPage(t, `<html><body><p>maintenance</p></body></html>`)
		step := NewFilterStep(config.DefaultFile().Filters, config.DefaultSelectors(), WithStepSleep(noSleep))

		if err := step.Do(context.Background(), b); err == nil {
			t.Error("expected an error for a page without the form")
		}
	})

	t.Run("missing field still submits the rest", func(t *testing.T) {
		t.Parallel()

		form := `<html><body>
<form action="/search/results" method="get">
  <input id="profitFrom" name="profitFrom" value="">
  <input id="PriceDisclosedOnly" name="PriceDisclosedOnly" type="checkbox" value="true">
  <input id="ProfitDisclosedOnly" name="ProfitDisclosedOnly" type="checkbox" value="true">
  <ul><li class="button update-results-button">Update</li></ul>
</form>
</body></html>`
		b, submitted := openPage(t, form)
		step := NewFilterStep(config.DefaultFile().Filters, config.DefaultSelectors(), WithStepSleep(noSleep))

		err := step.Do(context.Background(), b)
		if !errors.Is(err, browser.ErrWaitTimeout) {
			t.Errorf("expected the missing price field to be reported, got %v", err)
		}

		select {
		case q := <-submitted:
			if q.Get("profitFrom") != "45000" {
				t.Errorf("unexpected profit threshold %v", q)
			}
			if q.Get("PriceDisclosedOnly") != "true" || q.Get("ProfitDisclosedOnly") != "true" {
				t.Errorf("both boxes should have been ticked: %v", q)
			}
		default:
			t.Fatal("update was not clicked")
		}
	})

	t.Run("records the pause", func(t *testing.T) {
		t.Parallel()

		b, _ := openPage(t, filterForm)
		var pauses []time.Duration
		step := NewFilterStep(config.DefaultFile().Filters, config.DefaultSelectors(),
			WithPause(3*time.Second),
			WithStepSleep(func(_ context.Context, d time.Duration) error {
				pauses = append(pauses, d)
				return nil
			}),
		)
		if err := step.Do(context.Background(), b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pauses) != 1 || pauses[0] != 3*time.Second {
			t.Errorf("expected one 3s pause, got %v", pauses)
		}
	})
}

func TestCookieConsentStep(t *testing.T) {
	t.Parallel()

	t.Run("absent banner is not an error", func(t *testing.T) {
		t.Parallel()

		b, _ := openPage(t, filterForm)
		step := NewCookieConsentStep("#onetrust-accept-btn-handler", time.Second, nil)
		if err := step.Do(context.Background(), b); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("banner that cannot be clicked is reported", func(t *testing.T) {
		t.Parallel()

		b, _ := openPage(t, `<html><body><button id="onetrust-accept-btn-handler">OK</button></body></html>`)
		step := NewCookieConsentStep("#onetrust-accept-btn-handler", time.Second, nil)
		if err := step.Do(context.Background(), b); err == nil {
			t.Error("expected an error from a static page")
		}
	})
}

func TestSetupPipeline(t *testing.T) {
	t.Parallel()

	b, submitted := openPage(t, filterForm)

	p := New(WithContinueOnError(true))
	p.AddSteps(
		NewCookieConsentStep("#onetrust-accept-btn-handler", time.Second, nil),
		NewFilterStep(config.DefaultFile().Filters, config.DefaultSelectors(), WithStepSleep(noSleep)),
	)

	report, err := p.Execute(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.OK() {
		t.Errorf("unexpected failures %v", report.Failures)
	}
	if len(submitted) != 1 {
		t.Errorf("expected one submission, got %d", len(submitted))
	}
}
