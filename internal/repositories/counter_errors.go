package repositories

import "fmt"

// CounterErrorCode enumerates failure reasons for sequence allocation.
type CounterErrorCode string

const (
	// CounterErrorInvalidInput rejects an empty counter id or a non-positive step.
	CounterErrorInvalidInput CounterErrorCode = "counter_invalid_input"
	// CounterErrorExhausted means the next value would pass the configured max value.
	CounterErrorExhausted CounterErrorCode = "counter_exhausted"
)

// CounterError reports why a code sequence could not advance. It satisfies RepositoryError so
// callers that only classify storage failures still see a conflict for exhaustion.
type CounterError struct {
	CounterID string
	Code      CounterErrorCode
	Message   string
	Err       error
}

var _ RepositoryError = (*CounterError)(nil)

func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	if e.CounterID != "" {
		return fmt.Sprintf("counter %s: %s", e.CounterID, e.Message)
	}
	return e.Message
}

func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *CounterError) IsNotFound() bool { return false }

func (e *CounterError) IsConflict() bool { return e != nil && e.Code == CounterErrorExhausted }

func (e *CounterError) IsUnavailable() bool { return false }

// NewCounterError constructs a typed counter error.
func NewCounterError(code CounterErrorCode, message string, err error) *CounterError {
	if message == "" {
		message = string(code)
	}
	return &CounterError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
