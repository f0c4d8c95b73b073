package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize normalises user supplied free text to NFC, strips markup and trims surrounding space.
// Entities produced by the policy are unescaped so stored text stays human readable; responses
// are JSON encoded, never rendered as HTML by the API.
func Sanitize(value string) string {
	if value == "" {
		return ""
	}
	cleaned := strictPolicy.Sanitize(norm.NFC.String(value))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// SanitizeOptional applies Sanitize to an optional value, returning nil when nothing remains.
func SanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := Sanitize(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// SanitizeList sanitises each element and drops empty results.
func SanitizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if cleaned := Sanitize(value); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeKey lowercases and trims identifiers such as package tier names.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(value)))
}
