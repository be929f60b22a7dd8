package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if len(sanitized.Auth.APIKeys) > 0 {
		masked := make([]string, len(sanitized.Auth.APIKeys))
		for i, key := range sanitized.Auth.APIKeys {
			masked[i] = maskSecret(key)
		}
		sanitized.Auth.APIKeys = masked
	}
	if sanitized.Queue.URL != "" {
		sanitized.Queue.URL = maskAMQPCredentials(sanitized.Queue.URL)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// maskAMQPCredentials hides the userinfo part of a broker URL.
func maskAMQPCredentials(url string) string {
	schemeEnd := strings.Index(url, "://")
	if schemeEnd < 0 {
		return url
	}
	rest := url[schemeEnd+3:]
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return url
	}
	return url[:schemeEnd+3] + "****@" + rest[at+1:]
}
