package reddit

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when the content source signals that the
// client is being throttled. It is the only error class the rate limiter
// retries.
var ErrRateLimited = errors.New("rate limited by content source")

// ErrNotFound is returned when the requested community or post does not exist
var ErrNotFound = errors.New("not found")

// RequestError describes a failed request to the content source
type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
