package browser

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
)

// defaultMaxBodySize caps how much of a response is parsed.
const defaultMaxBodySize = 10 * 1024 * 1024

// HTTP is a Browser backed by net/http.
//
// Pages are fetched as static HTML and decoded to UTF-8 from whatever
// charset the server declares. Form state set through SetValue and ticked
// checkboxes lives beside the document and is cleared on every navigation.
type HTTP struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	proxyAddr   string
	maxBodySize int64

	doc     *goquery.Document
	current *url.URL

	// Form state keyed by DOM node of the current document.
	values  map[*html.Node]string
	checked map[*html.Node]bool
}

// HTTPOption configures an HTTP engine.
type HTTPOption func(*HTTP)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.timeout = d
	}
}

// WithProxy routes requests through a proxy. Accepted forms are
// socks5://host:port, socks5h://host:port and http(s)://host:port.
func WithProxy(addr string) HTTPOption {
	return func(h *HTTP) {
		h.proxyAddr = addr
	}
}

// WithMaxBodySize limits how many bytes of a response are read.
// Non-positive values keep the default.
func WithMaxBodySize(n int64) HTTPOption {
	return func(h *HTTP) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHTTP returns an HTTP engine with its own cookie jar.
func NewHTTP(opts ...HTTPOption) (*HTTP, error) {
	h := &HTTP{
		timeout:     60 * time.Second,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}

	client, err := newHTTPClient(h.proxyAddr, h.timeout)
	if err != nil {
		return nil, err
	}
	h.client = client
	return h, nil
}

func newHTTPClient(proxyAddr string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyAddr != "" {
		u, err := url.Parse(proxyAddr)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, proxyAddr)
		}
		switch u.Scheme {
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
			}
			transport.Proxy = nil
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		default:
			return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Navigate fetches rawURL with GET.
func (h *HTTP) Navigate(ctx context.Context, rawURL string) error {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return h.load(req)
}

func (h *HTTP) load(req *http.Request) error {
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.5")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned %d", ErrTransient, req.URL, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: %s returned %d", ErrNavigation, req.URL, resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, h.maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrNavigation, req.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrNavigation, req.URL, err)
	}

	h.current = resp.Request.URL
	doc.Url = h.current
	h.doc = doc
	h.values = make(map[*html.Node]string)
	h.checked = make(map[*html.Node]bool)
	return nil
}

// WaitFor checks the current document for selector. Static pages never
// change after loading, so there is nothing to wait for.
func (h *HTTP) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.doc == nil {
		return ErrNoPage
	}
	if h.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
	}
	return nil
}

// Document returns the parsed current page.
func (h *HTTP) Document(_ context.Context) (*goquery.Document, error) {
	if h.doc == nil {
		return nil, ErrNoPage
	}
	return h.doc, nil
}

// CurrentURL returns the final URL of the last fetch, after redirects.
func (h *HTTP) CurrentURL(_ context.Context) (string, error) {
	if h.current == nil {
		return "", ErrNoPage
	}
	return h.current.String(), nil
}

func (h *HTTP) find(selector string) (*goquery.Selection, error) {
	if h.doc == nil {
		return nil, ErrNoPage
	}
	sel := h.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return sel, nil
}

// SetValue records value for the matching input, select or textarea.
// It is sent when the enclosing form is submitted.
func (h *HTTP) SetValue(_ context.Context, selector, value string) error {
	sel, err := h.find(selector)
	if err != nil {
		return err
	}
	switch goquery.NodeName(sel) {
	case "input", "select", "textarea":
		h.values[sel.Nodes[0]] = value
		return nil
	default:
		return fmt.Errorf("%w: %s is a <%s>", ErrNotInteractive, selector, goquery.NodeName(sel))
	}
}

// Checked reports the state of a checkbox, including toggles made by Click.
func (h *HTTP) Checked(_ context.Context, selector string) (bool, error) {
	sel, err := h.find(selector)
	if err != nil {
		return false, err
	}
	return h.isChecked(sel), nil
}

func (h *HTTP) isChecked(sel *goquery.Selection) bool {
	if v, ok := h.checked[sel.Nodes[0]]; ok {
		return v
	}
	_, ok := sel.Attr("checked")
	return ok
}

// Click emulates a user click:
//   - a link is followed
//   - a checkbox is toggled
//   - anything inside a form submits that form
//   - an element wrapped in or wrapping a link follows that link
func (h *HTTP) Click(ctx context.Context, selector string) error {
	sel, err := h.find(selector)
	if err != nil {
		return err
	}

	if goquery.NodeName(sel) == "a" {
		if href, ok := sel.Attr("href"); ok {
			return h.follow(ctx, href)
		}
	}

	if goquery.NodeName(sel) == "input" && strings.EqualFold(sel.AttrOr("type", ""), "checkbox") {
		h.checked[sel.Nodes[0]] = !h.isChecked(sel)
		return nil
	}

	if form := sel.Closest("form"); form.Length() > 0 {
		return h.submit(ctx, form, sel)
	}

	link := sel.Closest("a[href]")
	if link.Length() == 0 {
		link = sel.Find("a[href]").First()
	}
	if href, ok := link.Attr("href"); ok {
		return h.follow(ctx, href)
	}

	return fmt.Errorf("%w: %s", ErrNotInteractive, selector)
}

func (h *HTTP) follow(ctx context.Context, href string) error {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return h.Navigate(ctx, h.current.ResolveReference(ref).String())
}

// submit sends form with the current field values. The clicked element
// contributes its own name/value pair when it is a named submit control.
func (h *HTTP) submit(ctx context.Context, form, clicked *goquery.Selection) error {
	action := h.current
	if a, ok := form.Attr("action"); ok && strings.TrimSpace(a) != "" {
		ref, err := url.Parse(strings.TrimSpace(a))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		action = h.current.ResolveReference(ref)
	}

	values := h.formValues(form)
	if name, ok := clicked.Attr("name"); ok && name != "" {
		switch goquery.NodeName(clicked) {
		case "button", "input":
			values.Add(name, clicked.AttrOr("value", ""))
		}
	}

	var (
		req *http.Request
		err error
	)
	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target := *action
		target.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return h.load(req)
}

// formValues collects successful controls of form in document order.
func (h *HTTP) formValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}
		node := field.Nodes[0]

		switch goquery.NodeName(field) {
		case "input":
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "checkbox", "radio":
				if h.isChecked(field) {
					values.Add(name, field.AttrOr("value", "on"))
				}
			case "submit", "button", "image", "reset", "file":
			default:
				if v, ok := h.values[node]; ok {
					values.Add(name, v)
				} else {
					values.Add(name, field.AttrOr("value", ""))
				}
			}
		case "select":
			if v, ok := h.values[node]; ok {
				values.Add(name, v)
				return
			}
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		case "textarea":
			if v, ok := h.values[node]; ok {
				values.Add(name, v)
			} else {
				values.Add(name, field.Text())
			}
		}
	})
	return values
}

// Close drops idle connections. The engine must not be used afterwards.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	h.doc = nil
	h.current = nil
	return nil
}
