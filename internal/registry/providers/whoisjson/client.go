// Package whoisjson implements the registry provider backed by the hosted
// WHOIS JSON API. The upstream response shape is deliberately inconsistent
// across TLDs; the client hands the payload through untouched and leaves
// interpretation to the normalizer.
package whoisjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"domainwatch/internal/registry/providers"
)

const providerName = "whoisjson"

// Client queries the WHOIS JSON API over HTTPS.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New builds a client. An empty apiKey is allowed here so the server can
// start without the credential; Query reports it as a config error.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies this provider.
func (c *Client) Name() string {
	return providerName
}

// Query performs one lookup. All failures come back as categorized provider
// errors so callers can distinguish "fix your configuration" from "try
// again later".
func (c *Client) Query(ctx context.Context, domain string) (providers.RawResponse, error) {
	if c.apiKey == "" {
		return nil, providers.NewError(providers.ErrorConfig, providerName,
			"registry API key is not configured", nil)
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, providers.NewError(providers.ErrorConfig, providerName,
			"registry base URL is malformed", err)
	}
	q := endpoint.Query()
	q.Set("apiKey", c.apiKey)
	q.Set("domain", domain)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, providers.NewError(providers.ErrorInternal, providerName, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, providers.NewError(providers.ErrorTimeout, providerName,
				fmt.Sprintf("lookup for %s timed out", domain), err)
		}
		return nil, providers.NewError(providers.ErrorOutage, providerName,
			fmt.Sprintf("lookup for %s failed", domain), err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.DebugContext(ctx, "registry lookup completed",
			"provider", providerName,
			"domain", domain,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if err := checkStatus(resp.StatusCode, domain); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	var raw providers.RawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, providers.NewError(providers.ErrorBadData, providerName,
			fmt.Sprintf("unparseable response body for %s", domain), err)
	}
	return raw, nil
}

func checkStatus(status int, domain string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providers.NewError(providers.ErrorConfig, providerName,
			"registry API rejected the credential", nil)
	case status == http.StatusTooManyRequests:
		return providers.NewError(providers.ErrorRateLimited, providerName,
			fmt.Sprintf("registry throttled lookup for %s", domain), nil)
	case status >= 500:
		return providers.NewError(providers.ErrorOutage, providerName,
			fmt.Sprintf("registry returned %d for %s", status, domain), nil)
	default:
		return providers.NewError(providers.ErrorBadData, providerName,
			fmt.Sprintf("registry returned unexpected status %d for %s", status, domain), nil)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	return false
}
