// Package canonical reduces raw user-entered strings to canonical registrable
// domain names. Canonical form is the dedup and storage key everywhere
// downstream, so everything here is pure and deterministic.
package canonical

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	dErrors "domainwatch/pkg/domain-errors"
)

const (
	maxLabelLen  = 63
	maxDomainLen = 253
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// commonLabels are leading subdomain labels stripped during canonicalization.
// Only the first label is checked; inner labels always survive, so
// "blog.custom.example.com" canonicalizes to "custom.example.com".
var commonLabels = map[string]struct{}{
	"www": {}, "m": {}, "blog": {}, "shop": {}, "mail": {}, "app": {},
	"api": {}, "admin": {}, "dev": {}, "staging": {}, "test": {},
	"store": {}, "web": {}, "news": {}, "support": {}, "help": {},
	"docs": {}, "cdn": {}, "static": {}, "ftp": {}, "smtp": {},
	"pop": {}, "imap": {}, "webmail": {}, "portal": {}, "secure": {},
	"vpn": {}, "remote": {}, "cloud": {},
}

// Canonicalize turns a raw string into its canonical registrable form.
// Failures come back as validation errors, never panics: a rejected string
// is an expected per-item outcome, not control flow.
func Canonicalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if strings.Contains(trimmed, "@") {
		return "", dErrors.New(dErrors.CodeValidation, "looks like an email address, not a domain")
	}

	host, err := extractHost(trimmed)
	if err != nil {
		return "", err
	}

	root, err := registrableRoot(host)
	if err != nil {
		return "", err
	}

	name := stripCommonLabel(host, root)

	if err := validateStrict(name); err != nil {
		return "", err
	}
	return name, nil
}

// IsValid applies the strict label, length and suffix rules directly, without
// the scheme/subdomain normalization Canonicalize performs. Used for quick
// pre-submission checks.
func IsValid(raw string) bool {
	name := strings.TrimSpace(strings.ToLower(raw))
	if name == "" || strings.ContainsAny(name, "@ \t") {
		return false
	}
	return validateStrict(name) == nil
}

// extractHost parses out the bare hostname, assuming http:// when no scheme
// is present so url.Parse does the structural work of dropping path, query,
// fragment and port.
func extractHost(s string) (string, error) {
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", dErrors.New(dErrors.CodeValidation, "not a parseable domain")
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	// Anything left after the first slash was a path; url.Parse already
	// removed it, but a stray slash glued to the host is still possible.
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return "", dErrors.New(dErrors.CodeValidation, "not a parseable domain")
	}
	return host, nil
}

// registrableRoot derives the eTLD+1 and rejects hosts whose suffix is not a
// recognized public suffix.
func registrableRoot(host string) (string, error) {
	suffix, icann := publicsuffix.PublicSuffix(host)
	// icann is false both for unknown TLDs and for privately managed
	// suffixes like github.io; the latter contain a dot.
	if !icann && !strings.Contains(suffix, ".") {
		return "", dErrors.Newf(dErrors.CodeValidation, "%q has no recognized top-level domain", host)
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeValidation, "%q has no registrable root domain", host)
	}
	return root, nil
}

// stripCommonLabel removes exactly one leading common label from the
// subdomain part, keeping any inner labels attached to the root.
func stripCommonLabel(host, root string) string {
	if host == root {
		return host
	}
	sub := strings.TrimSuffix(host, "."+root)
	if sub == host {
		return host
	}
	labels := strings.Split(sub, ".")
	if _, ok := commonLabels[labels[0]]; !ok {
		return host
	}
	rest := labels[1:]
	if len(rest) == 0 {
		return root
	}
	return strings.Join(rest, ".") + "." + root
}

func validateStrict(name string) error {
	if len(name) > maxDomainLen {
		return dErrors.Newf(dErrors.CodeValidation, "domain exceeds %d characters", maxDomainLen)
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return dErrors.Newf(dErrors.CodeValidation, "%q is not a fully qualified domain", name)
	}
	for _, label := range labels {
		if label == "" {
			return dErrors.Newf(dErrors.CodeValidation, "%q contains an empty label", name)
		}
		if len(label) > maxLabelLen {
			return dErrors.Newf(dErrors.CodeValidation, "label %q exceeds %d characters", label, maxLabelLen)
		}
		if !labelPattern.MatchString(label) {
			return dErrors.Newf(dErrors.CodeValidation, "label %q contains invalid characters", label)
		}
	}
	if _, err := registrableRoot(name); err != nil {
		return err
	}
	return nil
}
