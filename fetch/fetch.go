// Package fetch provides the raw HTTP client boundary for file-based
// domain control validation.
//
// The engine only needs a narrow contract: fetch a URL, apply a strict
// redirect policy, and return the status code plus the body truncated to
// a configured cap. Client is the production implementation; MockFetcher
// serves tests.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetch errors.
var (
	ErrTimeout          = errors.New("fetch: request timed out")
	ErrConnection       = errors.New("fetch: connection failed")
	ErrTooManyRedirects = errors.New("fetch: too many redirects")
	ErrCircularRedirect = errors.New("fetch: circular redirect")
	ErrBadRedirect      = errors.New("fetch: disallowed redirect target")
	ErrBadURL           = errors.New("fetch: invalid url")
)

// IsTimeout reports whether err indicates a fetch timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Result is the outcome of one fetch: the final status code and the body
// truncated to the configured cap.
type Result struct {
	StatusCode int
	Body       string
	FinalURL   string
}

// Fetcher retrieves the content of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// Config contains configuration for the HTTP client.
type Config struct {
	// ConnectTimeout bounds connection establishment. Default 2 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the whole request once connected. Default 5 seconds.
	ReadTimeout time.Duration

	// MaxBodyLength caps the number of body bytes read. Default 100 KB.
	MaxBodyLength int64

	// MaxRedirects caps the redirect chain length. Default 5.
	MaxRedirects int

	// UserAgent is sent on every request. Default "dcv-bot/1.0".
	UserAgent string

	// DialContext overrides the dialer, usable as a DNS resolver override
	// point in test harnesses. Optional.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Client implements Fetcher using net/http with a validation-grade
// redirect policy: redirects are followed up to MaxRedirects, circular
// redirects are rejected, and only http/https targets on the standard
// ports are permitted.
type Client struct {
	config Config
	client *http.Client
}

var _ Fetcher = (*Client)(nil)

// NewClient creates an HTTP client with the given configuration.
func NewClient(config Config) *Client {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 2 * time.Second
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 5 * time.Second
	}
	if config.MaxBodyLength == 0 {
		config.MaxBodyLength = 100 * 1024
	}
	if config.MaxRedirects == 0 {
		config.MaxRedirects = 5
	}
	if config.UserAgent == "" {
		config.UserAgent = "dcv-bot/1.0"
	}

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	dial := dialer.DialContext
	if config.DialContext != nil {
		dial = config.DialContext
	}

	c := &Client{config: config}
	c.client = &http.Client{
		Timeout: config.ReadTimeout,
		Transport: &http.Transport{
			DialContext:         dial,
			TLSHandshakeTimeout: config.ConnectTimeout,
			MaxIdleConns:        4,
		},
		CheckRedirect: c.checkRedirect,
	}
	return c
}

// checkRedirect enforces the redirect policy.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > c.config.MaxRedirects {
		return fmt.Errorf("%w: more than %d", ErrTooManyRedirects, c.config.MaxRedirects)
	}
	for _, prev := range via {
		if prev.URL.String() == req.URL.String() {
			return fmt.Errorf("%w: %s", ErrCircularRedirect, req.URL)
		}
	}
	return checkRedirectTarget(req.URL)
}

// checkRedirectTarget permits only http/https targets on their standard
// ports.
func checkRedirectTarget(u *url.URL) error {
	switch u.Scheme {
	case "http":
		if p := u.Port(); p != "" && p != "80" {
			return fmt.Errorf("%w: http on port %s", ErrBadRedirect, p)
		}
	case "https":
		if p := u.Port(); p != "" && p != "443" {
			return fmt.Errorf("%w: https on port %s", ErrBadRedirect, p)
		}
	default:
		return fmt.Errorf("%w: scheme %q", ErrBadRedirect, u.Scheme)
	}
	return nil
}

// Fetch retrieves rawURL and returns the final status code and the body
// truncated to the configured cap. Non-2xx statuses are returned in the
// Result, not as errors; only transport and policy failures produce an
// error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyLength))
	if err != nil {
		return nil, classifyFetchError(err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// classifyFetchError maps transport errors onto the package sentinels,
// unwrapping url.Error so redirect-policy errors surface as themselves.
func classifyFetchError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		inner := uerr.Err
		switch {
		case errors.Is(inner, ErrTooManyRedirects),
			errors.Is(inner, ErrCircularRedirect),
			errors.Is(inner, ErrBadRedirect):
			return inner
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if strings.Contains(err.Error(), "stopped after") {
		return fmt.Errorf("%w: %v", ErrTooManyRedirects, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// MockFetcher is a Fetcher used for testing. Responses maps URLs to
// results; Fail maps URLs to errors.
type MockFetcher struct {
	Responses map[string]*Result
	Fail      map[string]error
}

var _ Fetcher = (*MockFetcher)(nil)

// Fetch returns the configured result for rawURL.
func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if err, ok := m.Fail[rawURL]; ok {
		return nil, err
	}
	if r, ok := m.Responses[rawURL]; ok {
		if r.FinalURL == "" {
			cp := *r
			cp.FinalURL = rawURL
			return &cp, nil
		}
		return r, nil
	}
	return &Result{StatusCode: 404, FinalURL: rawURL}, nil
}
