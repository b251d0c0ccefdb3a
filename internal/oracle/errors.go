package oracle

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the oracle could not be reached (timeout, network
// failure, server error) after retries were exhausted.
var ErrUnavailable = errors.New("oracle unavailable")

// MalformedResponseError indicates the oracle answered but the payload did
// not match the expected schema. Never retried.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed oracle response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed oracle response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is a schema-mismatch failure.
func IsMalformed(err error) bool {
	var m *MalformedResponseError
	return errors.As(err, &m)
}

// retryableError wraps an error to indicate the call can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
