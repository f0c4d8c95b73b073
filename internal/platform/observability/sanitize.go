package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxRouteLength   = 180
	maxMethodLength  = 10
	maxIDLength      = 128
	maxFieldLength   = 512
	redactedValue    = "[redacted]"
	truncationMarker = "…"
)

// redactedEventKeys never reach the log sink; they carry contact details or buyer-written text.
var redactedEventKeys = map[string]struct{}{
	"email":        {},
	"comment":      {},
	"requirements": {},
	"reason":       {},
	"body":         {},
}

// scrub drops control characters, folds line breaks into spaces and caps the rune count.
func scrub(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r), r == utf8.RuneError:
			return -1
		default:
			return r
		}
	}, value)
	cleaned = strings.TrimSpace(cleaned)
	if limit > 0 && utf8.RuneCountInString(cleaned) > limit {
		runes := []rune(cleaned)
		cleaned = string(runes[:limit]) + truncationMarker
	}
	return cleaned
}

// SanitizeRoute normalises a request path or chi route pattern for log and span names.
func SanitizeRoute(route string) string {
	cleaned := scrub(route, maxRouteLength)
	if cleaned == "" {
		return "/"
	}
	return cleaned
}

// SanitizeMethod upper-cases and bounds an HTTP method.
func SanitizeMethod(method string) string {
	return strings.ToUpper(scrub(method, maxMethodLength))
}

// SanitizeUserID bounds a Firebase UID before it is attached to a log entry.
func SanitizeUserID(uid string) string {
	return scrub(uid, maxIDLength)
}

// SanitizeEventFields prepares service event fields for structured logging. Identifier keys
// (suffix "Id") are bounded like UIDs, errors are flattened to their message and free-text keys
// are redacted.
func SanitizeEventFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if _, redact := redactedEventKeys[strings.ToLower(key)]; redact {
			out[key] = redactedValue
			continue
		}
		limit := maxFieldLength
		if strings.HasSuffix(key, "Id") {
			limit = maxIDLength
		}
		switch v := value.(type) {
		case string:
			out[key] = scrub(v, limit)
		case error:
			out[key] = scrub(v.Error(), limit)
		default:
			out[key] = value
		}
	}
	return out
}
