// Package logger provides structured logging for ptb-migrate.
package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// botTokenPattern matches Telegram bot tokens: the numeric bot id, a
// colon and a 35 character secret.
var botTokenPattern = regexp.MustCompile(`(\d{5,16}):([A-Za-z0-9_-]{35})`)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks bot tokens inside values and fully redacts
// values stored under sensitive keys.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		strVal := a.Value.String()
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if masked := RedactString(strVal); masked != strVal {
			return slog.String(a.Key, masked)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			msg := err.Error()
			if masked := RedactString(msg); masked != msg {
				return slog.String(a.Key, masked)
			}
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	return a
}

// maskSecret keeps the first and last three characters of a token secret.
func maskSecret(secret string) string {
	if len(secret) <= 6 {
		return "***"
	}
	return secret[:3] + "..." + secret[len(secret)-3:]
}

// RedactString masks every bot token in value, keeping the bot id.
func RedactString(value string) string {
	if !strings.Contains(value, ":") {
		return value
	}
	return botTokenPattern.ReplaceAllStringFunc(value, func(tok string) string {
		m := botTokenPattern.FindStringSubmatch(tok)
		return m[1] + ":" + maskSecret(m[2])
	})
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value contains a bot token.
func IsSensitiveValue(value string) bool {
	return botTokenPattern.MatchString(value)
}
