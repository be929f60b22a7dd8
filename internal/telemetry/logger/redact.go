package logger

import (
	"log/slog"
	"strings"

	"github.com/askgate/askgate-go/internal/core/domain"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"api_key",
	"apikey",
	"credential",
	"auth",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Access token values are 64-hex; partial-mask them wherever
		// they appear, regardless of the attribute key.
		if domain.ValidateTokenFormat(strVal) {
			return slog.String(a.Key, domain.MaskToken(strVal))
		}

		// Token-named keys get a partial mask even for malformed values.
		keyLower := strings.ToLower(a.Key)
		if strings.Contains(keyLower, "token") && strVal != "" {
			return slog.String(a.Key, domain.MaskToken(strVal))
		}

		// Other sensitive key names are fully redacted.
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				if strVal != "" {
					return slog.String(a.Key, redactedValue)
				}
				break
			}
		}
	}

	// Handle nested groups recursively.
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}
