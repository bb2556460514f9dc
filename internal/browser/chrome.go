package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Chrome is a Browser driving one Chrome tab through chromedp.
//
// The allocator and the tab live as long as the Chrome value; every method
// runs its actions in a child of the tab context that is also cancelled when
// the caller's context is.
type Chrome struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	headless  bool
	proxy     string
	userAgent string
	execPath  string
}

// ChromeOption configures a Chrome engine.
type ChromeOption func(*Chrome)

// WithHeadless runs Chrome without a window when true.
func WithHeadless(headless bool) ChromeOption {
	return func(c *Chrome) {
		c.headless = headless
	}
}

// WithChromeProxy passes a proxy server to Chrome (--proxy-server).
func WithChromeProxy(addr string) ChromeOption {
	return func(c *Chrome) {
		c.proxy = addr
	}
}

// WithChromeUserAgent overrides Chrome's User-Agent.
func WithChromeUserAgent(ua string) ChromeOption {
	return func(c *Chrome) {
		c.userAgent = ua
	}
}

// WithExecPath points at a specific Chrome binary.
func WithExecPath(path string) ChromeOption {
	return func(c *Chrome) {
		c.execPath = path
	}
}

// NewChrome starts Chrome and opens a blank tab. The browser process is tied
// to ctx: cancelling it shuts Chrome down.
func NewChrome(ctx context.Context, opts ...ChromeOption) (*Chrome, error) {
	c := &Chrome{headless: true}
	for _, opt := range opts {
		opt(c)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", c.headless))
	if c.proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(c.proxy))
	}
	if c.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.userAgent))
	}
	if c.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run launches the browser.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("%w: starting chrome: %v", ErrNavigation, err)
	}

	c.tab = tab
	c.cancelTab = cancelTab
	c.cancelAlloc = cancelAlloc
	return c, nil
}

// run executes actions in the tab, bounded by ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads rawURL and waits for the load event.
func (c *Chrome) Navigate(ctx context.Context, rawURL string) error {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return err
	}
	if err := c.run(ctx, chromedp.Navigate(u.String())); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, u, err)
	}
	return nil
}

// WaitFor waits until selector is present in the DOM. Visibility is not
// required.
func (c *Chrome) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s after %s", ErrWaitTimeout, selector, timeout)
	default:
		return fmt.Errorf("%w: waiting for %s: %v", ErrNavigation, selector, err)
	}
}

// Document snapshots the rendered DOM.
func (c *Chrome) Document(ctx context.Context) (*goquery.Document, error) {
	var (
		outer    string
		location string
	)
	if err := c.run(ctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &outer, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrNoPage, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if u, err := url.Parse(location); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// CurrentURL returns the tab's location.
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := c.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPage, err)
	}
	return location, nil
}

// exists reports whether selector matches anything right now, without
// waiting the way chromedp's query actions do.
func (c *Chrome) exists(ctx context.Context, selector string) error {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	var found bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", quoted)
	if err := c.run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return fmt.Errorf("%w: query %s: %v", ErrNoPage, selector, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// Click clicks the first visible element matching selector.
func (c *Chrome) Click(ctx context.Context, selector string) error {
	if err := c.exists(ctx, selector); err != nil {
		return err
	}
	if err := c.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("%w: click %s: %v", ErrNotInteractive, selector, err)
	}
	return nil
}

// SetValue clears the field and types value into it, so the page sees the
// same key and input events a user would produce.
func (c *Chrome) SetValue(ctx context.Context, selector, value string) error {
	if err := c.exists(ctx, selector); err != nil {
		return err
	}
	if err := c.run(ctx,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrNotInteractive, selector, err)
	}
	return nil
}

// Checked reads the checkbox's live checked property.
func (c *Chrome) Checked(ctx context.Context, selector string) (bool, error) {
	if err := c.exists(ctx, selector); err != nil {
		return false, err
	}
	var checked bool
	if err := c.run(ctx, chromedp.JavascriptAttribute(selector, "checked", &checked, chromedp.ByQuery)); err != nil {
		return false, fmt.Errorf("%w: read %s: %v", ErrNotInteractive, selector, err)
	}
	return checked, nil
}

// Close closes the tab and shuts Chrome down.
func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}
