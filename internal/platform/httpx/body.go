package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxBodySize bounds JSON request bodies when callers pass a non-positive limit.
const DefaultMaxBodySize = 16 * 1024

var (
	// ErrEmptyBody is returned when a JSON body is required but absent.
	ErrEmptyBody = errors.New("request body is required")
	// ErrBodyTooLarge is returned when the body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("request body exceeds allowed size")
)

// DecodeJSON reads at most limit bytes from the request and unmarshals them into dst. Unknown
// fields are rejected. When optional is true an empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst any, limit int64, optional bool) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	if r == nil || r.Body == nil {
		if optional {
			return nil
		}
		return ErrEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > limit {
		return ErrBodyTooLarge
	}
	if strings.TrimSpace(string(data)) == "" {
		if optional {
			return nil
		}
		return ErrEmptyBody
	}
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// WriteBodyError maps DecodeJSON failures onto the error envelope.
func WriteBodyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		WriteError(r.Context(), w, NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
	default:
		WriteError(r.Context(), w, NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
