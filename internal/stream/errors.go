package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RequestFailedError reports a failed exchange: a transport error, a
// non-success status, or a response without a readable body.
type RequestFailedError struct {
	// Status is the HTTP status code, zero for transport failures.
	Status int
	// Message is the best available diagnostic text.
	Message string
	Cause   error
}

func (e *RequestFailedError) Error() string {
	return e.Message
}

func (e *RequestFailedError) Unwrap() error {
	return e.Cause
}

// Diagnostic extracts the user-facing text of err.
func Diagnostic(err error) string {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf.Message
	}
	return err.Error()
}

func statusFailure(resp *http.Response, body string) *RequestFailedError {
	msg := body
	if strings.TrimSpace(msg) == "" {
		msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return &RequestFailedError{Status: resp.StatusCode, Message: msg}
}

func transportFailure(ctx context.Context, err error) *RequestFailedError {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &RequestFailedError{Message: "request cancelled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RequestFailedError{Message: "request timed out", Cause: err}
	default:
		return &RequestFailedError{Message: err.Error(), Cause: err}
	}
}
