package logger

import (
	"log/slog"
	"strings"
)

// secretWords mark attribute keys whose string values are never logged.
// "key" is absent on purpose: key_path names a file.
var secretWords = []string{"passphrase", "password", "secret", "token", "credential"}

const redacted = "***REDACTED***"

// redactSensitive masks non-empty string values under secret keys,
// descending into groups.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redacted)
		}
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			out = append(out, redactSensitive(ga))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether key names a secret.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, w := range secretWords {
		if strings.Contains(key, w) {
			return true
		}
	}
	return false
}

// Mask keeps the first and last two characters of a secret for display,
// as in "config print". Short values are fully hidden and empty ones stay
// empty.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 6 {
		return "***"
	}
	return value[:2] + "***" + value[len(value)-2:]
}
