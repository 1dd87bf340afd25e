package logger

import (
	"log/slog"
	"strings"
)

const redactedValue = "***REDACTED***"

// Keys whose string values are never logged. Matched case-insensitively
// as substrings, so "api_token" and "Authorization" are both covered.
var sensitiveKeys = []string{"token", "authorization", "secret", "password"}

// Values starting with one of these keep the prefix and a short hint.
// "sl." is the prefix of Dropbox short-lived access tokens.
var credentialPrefixes = []string{"Bearer ", "sl."}

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
	default:
		return a
	}

	v := a.Value.String()
	for _, p := range credentialPrefixes {
		if strings.HasPrefix(v, p) {
			return slog.String(a.Key, mask(v, p))
		}
	}
	if v != "" && sensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

// mask keeps prefix plus the first and last three characters of the rest.
func mask(v, prefix string) string {
	body := v[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}
