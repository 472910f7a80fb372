// Package registry turns loosely-typed upstream WHOIS payloads into the
// canonical patch the store understands. The upstream API is known to vary:
// the same fact appears under several field spellings, sometimes nested one
// level under a registry data object. Each canonical field is resolved from
// an ordered candidate list evaluated until one path yields a usable value,
// so supporting a new upstream spelling is a one-line change.
package registry

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"domainwatch/internal/registry/providers"
)

// Patch is the canonical extract of one registry response. Nil fields mean
// the upstream said nothing usable; Raw always carries the payload verbatim.
type Patch struct {
	Registered  bool
	ExpiryDate  *time.Time
	CreatedDate *time.Time
	UpdatedDate *time.Time
	Registrar   *string
	Raw         providers.RawResponse
}

// nestedContainers are the objects a field may be buried under, tried after
// the top level.
var nestedContainers = []string{"registry_data", "registryData", "whois_record", "whoisRecord"}

// Field spellings in priority order. The first path that parses wins.
var (
	expirySpellings  = []string{"expiry_date", "expiration_date", "expire_date", "expires_date", "expiryDate", "expirationDate", "expiresDate"}
	createdSpellings = []string{"create_date", "created_date", "creation_date", "createDate", "createdDate", "creationDate"}
	updatedSpellings = []string{"update_date", "updated_date", "last_updated", "updateDate", "updatedDate"}

	registeredBoolSpellings = []string{"status", "registered", "is_registered", "isRegistered"}
	registeredYesSpellings  = []string{"domain_registered", "domainRegistered"}

	registrarSpellings = []string{"registrar", "registrar_data", "registrarData", "registrar_name", "registrarName"}
)

// Normalize maps a raw registry response into a canonical patch. An
// unregistered domain is a success, not an error: the patch then carries
// only the registration status and the raw payload, and no date or
// registrar fields are ever written for it.
func Normalize(raw providers.RawResponse) Patch {
	patch := Patch{Raw: raw}

	patch.Registered = resolveRegistered(raw)
	if !patch.Registered {
		return patch
	}

	patch.ExpiryDate = resolveDate(raw, expirySpellings)
	patch.CreatedDate = resolveDate(raw, createdSpellings)
	patch.UpdatedDate = resolveDate(raw, updatedSpellings)
	patch.Registrar = resolveRegistrar(raw)
	return patch
}

// resolveRegistered ORs every known spelling across the top level and all
// nested containers. Only an explicit yes/true makes a domain registered;
// the default is false.
func resolveRegistered(raw providers.RawResponse) bool {
	for _, key := range registeredBoolSpellings {
		for _, v := range valuesAt(raw, key) {
			if isAffirmative(v) {
				return true
			}
		}
	}
	for _, key := range registeredYesSpellings {
		for _, v := range valuesAt(raw, key) {
			if isAffirmative(v) {
				return true
			}
		}
	}
	return false
}

// resolveDate tries every spelling in priority order at the top level, then
// inside each nested container. Values that fail to parse into a valid
// instant are discarded: an unparseable string never propagates as a date.
func resolveDate(raw providers.RawResponse, spellings []string) *time.Time {
	for _, key := range spellings {
		for _, v := range valuesAt(raw, key) {
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			t, err := dateparse.ParseAny(s)
			if err != nil {
				continue
			}
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// resolveRegistrar prefers a structured object's name field, falls back to a
// bare string, and yields nil when neither form is present.
func resolveRegistrar(raw providers.RawResponse) *string {
	var bare *string
	for _, key := range registrarSpellings {
		for _, v := range valuesAt(raw, key) {
			switch val := v.(type) {
			case map[string]any:
				for _, nameKey := range []string{"registrar_name", "registrarName", "name"} {
					if name, ok := val[nameKey].(string); ok && strings.TrimSpace(name) != "" {
						trimmed := strings.TrimSpace(name)
						return &trimmed
					}
				}
			case string:
				if trimmed := strings.TrimSpace(val); trimmed != "" && bare == nil {
					bare = &trimmed
				}
			}
		}
	}
	return bare
}

// HasUpstreamError reports whether a persisted raw payload recorded an
// upstream error. The poller uses this to decide a domain is worth another
// automatic refresh attempt.
func HasUpstreamError(raw providers.RawResponse) bool {
	if raw == nil {
		return false
	}
	for _, key := range []string{"error", "error_message", "errorMessage"} {
		switch v := raw[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return true
			}
		case map[string]any:
			if len(v) > 0 {
				return true
			}
		case bool:
			if v {
				return true
			}
		}
	}
	return false
}

// valuesAt collects the values under key at the top level and inside each
// known nested container, in that order.
func valuesAt(raw providers.RawResponse, key string) []any {
	var out []any
	if v, ok := raw[key]; ok {
		out = append(out, v)
	}
	for _, container := range nestedContainers {
		nested, ok := raw[container].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := nested[key]; ok {
			out = append(out, v)
		}
	}
	return out
}

// isAffirmative interprets the upstream's many ways of saying yes.
func isAffirmative(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "yes", "true", "registered", "active":
			return true
		}
	}
	return false
}
