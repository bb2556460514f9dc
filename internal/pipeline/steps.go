package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nao1215/bizscout/internal/browser"
	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/navigator"
)

// DefaultStepTimeout bounds the wait for each element a step touches.
const DefaultStepTimeout = 15 * time.Second

// CookieConsentStep dismisses the cookie banner.
// A page without a banner is not a failure.
type CookieConsentStep struct {
	button  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCookieConsentStep returns a step clicking button once it appears.
func NewCookieConsentStep(button string, timeout time.Duration, logger *slog.Logger) *CookieConsentStep {
	if logger == nil {
		logger = log.Discard()
	}
	return &CookieConsentStep{button: button, timeout: timeout, logger: logger}
}

// Name returns the step name.
func (s *CookieConsentStep) Name() string {
	return "cookie_consent"
}

// Do waits for the banner button and clicks it.
func (s *CookieConsentStep) Do(ctx context.Context, b browser.Browser) error {
	if err := b.WaitFor(ctx, s.button, s.timeout); err != nil {
		if errors.Is(err, browser.ErrWaitTimeout) {
			s.logger.Info("no cookie banner found")
			return nil
		}
		return err
	}
	if err := b.Click(ctx, s.button); err != nil {
		return fmt.Errorf("accepting cookies: %w", err)
	}
	s.logger.Info("accepted cookies")
	return nil
}

// FilterStep fills in the search filter form and submits it.
//
// Minimum asking price and net profit are typed in, the two "disclosed
// only" boxes are ticked unless they already are, and the update button is
// clicked after a short pause, even when some field could not be set.
type FilterStep struct {
	filters config.Filters
	sel     config.Selectors
	timeout time.Duration
	pause   time.Duration
	sleep   navigator.SleepFunc
	logger  *slog.Logger
}

// FilterStepOption configures a FilterStep.
type FilterStepOption func(*FilterStep)

// WithStepTimeout sets the per-element wait.
func WithStepTimeout(d time.Duration) FilterStepOption {
	return func(s *FilterStep) {
		s.timeout = d
	}
}

// WithPause sets the pause before the update button is clicked.
func WithPause(d time.Duration) FilterStepOption {
	return func(s *FilterStep) {
		s.pause = d
	}
}

// WithStepSleep replaces the pause function.
func WithStepSleep(fn navigator.SleepFunc) FilterStepOption {
	return func(s *FilterStep) {
		s.sleep = fn
	}
}

// WithStepLogger sets the logger.
func WithStepLogger(l *slog.Logger) FilterStepOption {
	return func(s *FilterStep) {
		s.logger = l
	}
}

// NewFilterStep returns a step applying filters through the form described by sel.
func NewFilterStep(filters config.Filters, sel config.Selectors, opts ...FilterStepOption) *FilterStep {
	s := &FilterStep{
		filters: filters,
		sel:     sel,
		timeout: DefaultStepTimeout,
		pause:   time.Second,
		sleep:   navigator.Sleep,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FilterStep) Name() string {
	return "apply_filters"
}

// Do applies the filters.
func (s *FilterStep) Do(ctx context.Context, b browser.Browser) error {
	if !s.filters.Apply {
		s.logger.Debug("filters disabled")
		return nil
	}

	// A field that cannot be set is reported, but the remaining fields are
	// still filled and Update is still clicked.
	var errs []error

	fields := []struct {
		selector string
		value    int
	}{
		{s.sel.PriceMin, s.filters.MinAskingPrice},
		{s.sel.ProfitMin, s.filters.MinNetProfit},
	}
	for _, f := range fields {
		if err := s.typeValue(ctx, b, f.selector, strconv.Itoa(f.value)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("filter field not set", "selector", f.selector, "error", err)
			errs = append(errs, err)
		}
	}

	boxes := []struct {
		selector string
		enabled  bool
	}{
		{s.sel.PriceDisclosed, s.filters.PriceDisclosedOnly},
		{s.sel.ProfitDisclosed, s.filters.ProfitDisclosedOnly},
	}
	for _, box := range boxes {
		if !box.enabled {
			continue
		}
		if err := s.tick(ctx, b, box.selector); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("filter box not ticked", "selector", box.selector, "error", err)
			errs = append(errs, err)
		}
	}

	if err := s.sleep(ctx, s.pause); err != nil {
		return err
	}

	if err := b.WaitFor(ctx, s.sel.UpdateResults, s.timeout); err != nil {
		return errors.Join(append(errs, fmt.Errorf("waiting for %s: %w", s.sel.UpdateResults, err))...)
	}
	if err := b.Click(ctx, s.sel.UpdateResults); err != nil {
		return errors.Join(append(errs, fmt.Errorf("updating results: %w", err))...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("filters applied",
		"min_asking_price", s.filters.MinAskingPrice,
		"min_net_profit", s.filters.MinNetProfit,
		"price_disclosed_only", s.filters.PriceDisclosedOnly,
		"profit_disclosed_only", s.filters.ProfitDisclosedOnly,
	)
	return nil
}

func (s *FilterStep) typeValue(ctx context.Context, b browser.Browser, selector, value string) error {
	if err := b.WaitFor(ctx, selector, s.timeout); err != nil {
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	if err := b.SetValue(ctx, selector, value); err != nil {
		return fmt.Errorf("setting %s: %w", selector, err)
	}
	return nil
}

func (s *FilterStep) tick(ctx context.Context, b browser.Browser, selector string) error {
	if err := b.WaitFor(ctx, selector, s.timeout); err != nil {
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	checked, err := b.Checked(ctx, selector)
	if err != nil {
		return fmt.Errorf("reading %s: %w", selector, err)
	}
	if checked {
		return nil
	}
	if err := b.Click(ctx, selector); err != nil {
		return fmt.Errorf("ticking %s: %w", selector, err)
	}
	return nil
}
