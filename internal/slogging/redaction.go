package slogging

import (
	"net/url"
	"regexp"
	"strings"
)

// tokenQueryPattern matches token query parameters embedded in URLs or frames
var tokenQueryPattern = regexp.MustCompile(`(?i)(token=)([^&\s"]+)`)

// SanitizeLogMessage removes characters that could forge log lines
func SanitizeLogMessage(message string) string {
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	message = strings.ReplaceAll(message, "\t", " ")

	// Collapse multiple spaces into one and trim whitespace
	return strings.TrimSpace(strings.Join(strings.Fields(message), " "))
}

// RedactToken shows the first and last few characters of a credential
func RedactToken(value string) string {
	return partialRedactValue(value)
}

// RedactURL masks the token query parameter of a connection URL
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return RedactTokenParams(u.String())
}

// RedactTokenParams masks every token=... occurrence in s
func RedactTokenParams(s string) string {
	return tokenQueryPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := tokenQueryPattern.FindStringSubmatch(m)
		return parts[1] + partialRedactValue(parts[2])
	})
}

func partialRedactValue(value string) string {
	if len(value) <= 8 {
		return "[REDACTED]"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
