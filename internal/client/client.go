// Package client talks to the biometric authentication server: one JSON
// POST per register or login, and a navigation for logout.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/harrylevesque/handauth/internal/result"
)

const (
	RegisterPath = "/api/register"
	LoginPath    = "/api/login"
	LogoutPath   = "/api/logout"

	RequestIDHeader = "X-Request-ID"
)

// Request is the body sent to register and login.
type Request struct {
	Username string `json:"username"`
	Image    string `json:"image"`
}

// Response is the server's decoded answer. Raw keeps the body exactly as
// received.
type Response struct {
	result.Result
	Raw json.RawMessage `json:"-"`
}

// Navigator moves the browsing context to a URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Client is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	navigator Navigator
	logger    *slog.Logger

	// Applied to http after every option has run.
	timeout *time.Duration
	rootCAs *x509.CertPool
}

type Option func(*Client)

// WithHTTPClient uses a copy of hc; hc itself is never modified. The copy
// keeps hc's Jar if set, otherwise it gets the client's cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		if cp.Jar == nil {
			cp.Jar = c.http.Jar
		}
		c.http = &cp
	}
}

// WithTimeout bounds each round trip. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = &d }
}

// WithRootCAs trusts pool when verifying the server certificate.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) { c.rootCAs = pool }
}

func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for the server at baseURL. Logout navigates with an
// HTTP GET unless WithNavigator says otherwise.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != nil {
		c.http.Timeout = *c.timeout
	}
	if c.rootCAs != nil {
		if err := c.trustRoots(c.rootCAs); err != nil {
			return nil, err
		}
	}
	if c.navigator == nil {
		c.navigator = &HTTPNavigator{Client: c.http}
	}
	return c, nil
}

// trustRoots installs pool on a clone of the current transport.
func (c *Client) trustRoots(pool *x509.CertPool) error {
	var t *http.Transport
	switch rt := c.http.Transport.(type) {
	case nil:
		t = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		t = rt.Clone()
	default:
		return fmt.Errorf("root CAs: transport %T is not an *http.Transport", rt)
	}
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	t.TLSClientConfig.RootCAs = pool
	c.http.Transport = t
	return nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Register enrolls username with the given image data URI.
func (c *Client) Register(ctx context.Context, username, imageData string) Response {
	return c.submit(ctx, RegisterPath, username, imageData)
}

// Login verifies username against the given image data URI.
func (c *Client) Login(ctx context.Context, username, imageData string) Response {
	return c.submit(ctx, LoginPath, username, imageData)
}

// Logout navigates to the logout route.
func (c *Client) Logout(ctx context.Context) error {
	target := c.endpoint(LogoutPath)
	if err := c.navigator.Navigate(ctx, target); err != nil {
		c.logger.Warn("logout navigation failed", "url", target, "error", err)
		return err
	}
	c.logger.Info("logged out", "url", target)
	return nil
}

// Cookies returns the cookies held for the server.
func (c *Client) Cookies() []*http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	return c.http.Jar.Cookies(c.baseURL)
}

// SetCookies seeds the jar, typically from a saved session.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if c.http.Jar != nil && len(cookies) > 0 {
		c.http.Jar.SetCookies(c.baseURL, cookies)
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// submit never returns an error: every transport or decode failure becomes
// a "Network error: ..." response.
func (c *Client) submit(ctx context.Context, path, username, imageData string) Response {
	reqID := uuid.NewString()
	log := c.logger.With("request_id", reqID, "path", path, "username", username)

	body, err := json.Marshal(Request{Username: username, Image: imageData})
	if err != nil {
		return networkError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return networkError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err)
		return networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("read response failed", "status", resp.StatusCode, "error", err)
		return networkError(err)
	}
	var out Response
	if err := json.Unmarshal(raw, &out.Result); err != nil {
		log.Warn("undecodable response", "status", resp.StatusCode, "error", err)
		return networkError(err)
	}
	out.Raw = raw
	log.Info("server responded", "status", resp.StatusCode, "success", out.Success, "elapsed", time.Since(start))
	return out
}

func networkError(err error) Response {
	e := result.New(result.KindNetwork, "Network error: "+err.Error())
	return Response{Result: result.FromError(e)}
}

// HTTPNavigator navigates by issuing a GET and following redirects, sharing
// the client's cookie jar.
type HTTPNavigator struct {
	Client *http.Client
}

func (n *HTTPNavigator) Navigate(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("navigate %s: status %d", target, resp.StatusCode)
	}
	return nil
}
