// Package logging redacts credentials from strings before they reach the logs.
package logging

import (
	"regexp"
)

const (
	// MaxPromptLogLength is the longest prompt excerpt written to logs.
	MaxPromptLogLength = 120
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens in JWT form
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// key=..., api_key=..., x-goog-api-key: ...
	apiKeyPattern = regexp.MustCompile(`(?i)(x-goog-api-key|api[_-]?key|apikey|key)([=:]\s*)[A-Za-z0-9-_]{20,}`)

	// Bare provider keys: OpenAI/Anthropic "sk-..." and Google "AIza..."
	providerKeyPattern = regexp.MustCompile(`\b(sk-(ant-)?[A-Za-z0-9-_]{16,}|AIza[A-Za-z0-9-_]{30,})`)

	// user:pass@host
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a database or Redis URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError renders err with passwords, tokens and API keys redacted.
// Provider SDK errors often echo the request URL, which may carry the key.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString applies every redaction pattern to s.
func SanitizeString(s string) string {
	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}${2}"+RedactedText)
	sanitized = providerKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// TruncatePrompt shortens a prompt for log fields.
func TruncatePrompt(prompt string) string {
	return TruncateString(prompt, MaxPromptLogLength)
}

// TruncateString truncates a string to maxLen runes and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
