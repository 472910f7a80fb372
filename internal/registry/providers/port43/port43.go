// Package port43 implements a fallback registry provider that speaks plain
// WHOIS. It is used when the JSON API credential is absent so the system
// still produces expiry data, at lower fidelity. The scraped text is mapped
// into the same loose response shape the JSON API produces, which keeps the
// normalizer provider-agnostic.
package port43

import (
	"context"
	"strings"
	"time"

	"github.com/likexian/whois"

	"domainwatch/internal/registry/providers"
)

const providerName = "port43"

// Patterns that indicate the domain is NOT registered.
var availablePatterns = []string{
	"no match for",
	"not found",
	"no entries found",
	"domain not found",
	"no data found",
	"status: free",
	"status: available",
	"no object found",
	"object does not exist",
	"the queried object does not exist",
	"no such domain",
	"domain name has not been registered",
	"no matching record",
}

// Key/value line prefixes scraped from WHOIS text, in priority order per
// field. Different registries spell the same field differently.
var (
	expiryPrefixes = []string{"registry expiry date:", "expiration date:", "expiry date:", "expires on:", "paid-till:"}
	createdPrefixes = []string{"creation date:", "created:", "registered on:", "created on:"}
	updatedPrefixes = []string{"updated date:", "last updated:", "last modified:"}
	registrarPrefixes = []string{"registrar:", "registrar name:", "sponsoring registrar:"}
)

// Client performs raw WHOIS lookups over port 43.
type Client struct {
	whois   *whois.Client
	timeout time.Duration
}

// New builds a port-43 client with the given per-lookup timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		whois:   whois.NewClient().SetTimeout(timeout),
		timeout: timeout,
	}
}

// Name identifies this provider.
func (c *Client) Name() string {
	return providerName
}

// Query performs a WHOIS lookup and scrapes the text into the loose response
// shape. The full text is retained under raw_text for audit.
func (c *Client) Query(ctx context.Context, domain string) (providers.RawResponse, error) {
	type lookup struct {
		text string
		err  error
	}
	done := make(chan lookup, 1)
	go func() {
		text, err := c.whois.Whois(domain)
		done <- lookup{text, err}
	}()

	var text string
	select {
	case <-ctx.Done():
		return nil, providers.NewError(providers.ErrorTimeout, providerName,
			"whois lookup for "+domain+" timed out", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, providers.NewError(providers.ErrorOutage, providerName,
				"whois lookup for "+domain+" failed", res.err)
		}
		text = res.text
	}

	lower := strings.ToLower(text)
	raw := providers.RawResponse{
		"raw_text":          text,
		"domain_registered": "yes",
	}

	for _, pattern := range availablePatterns {
		if strings.Contains(lower, pattern) {
			raw["domain_registered"] = "no"
			return raw, nil
		}
	}

	if v := firstValue(lower, text, expiryPrefixes); v != "" {
		raw["expiry_date"] = v
	}
	if v := firstValue(lower, text, createdPrefixes); v != "" {
		raw["create_date"] = v
	}
	if v := firstValue(lower, text, updatedPrefixes); v != "" {
		raw["update_date"] = v
	}
	if v := firstValue(lower, text, registrarPrefixes); v != "" {
		raw["registrar"] = v
	}
	return raw, nil
}

// firstValue scans line by line for the first prefix that matches, trying
// prefixes in priority order. lower and orig must be the same text; the
// value is cut from orig to preserve its casing.
func firstValue(lower, orig string, prefixes []string) string {
	lowerLines := strings.Split(lower, "\n")
	origLines := strings.Split(orig, "\n")
	for _, prefix := range prefixes {
		for i, line := range lowerLines {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, prefix) {
				offset := strings.Index(strings.ToLower(origLines[i]), prefix)
				if offset < 0 {
					continue
				}
				return strings.TrimSpace(origLines[i][offset+len(prefix):])
			}
		}
	}
	return ""
}
