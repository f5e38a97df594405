package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModelUnavailable reports that the model backend could not be reached or
// answered with something other than a model response.
type ErrModelUnavailable struct {
	Provider string
	Status   int    // HTTP status, zero for transport failures
	Body     string // truncated response body
	Cause    error
}

func (e *ErrModelUnavailable) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Cause)
	case e.Body != "" && e.Status != 0:
		return fmt.Sprintf("%s unavailable (HTTP %d): %s", e.Provider, e.Status, e.Body)
	case e.Body != "":
		return fmt.Sprintf("%s unavailable: %s", e.Provider, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s unavailable (HTTP %d)", e.Provider, e.Status)
	default:
		return e.Provider + " unavailable"
	}
}

func (e *ErrModelUnavailable) Unwrap() error { return e.Cause }

// IsUnavailable reports whether err wraps an ErrModelUnavailable.
func IsUnavailable(err error) bool {
	var unavail *ErrModelUnavailable
	return errors.As(err, &unavail)
}

// HandleError converts common SDK errors to user-friendly errors.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, "429", "rate limit", "quota", "too many requests") {
		return fmt.Errorf("rate limited: %w", err)
	}

	if containsAny(errStr, "context length", "too many tokens", "max tokens", "token limit") {
		return fmt.Errorf("context too long: %w", err)
	}

	if containsAny(errStr, "model not found", "404", "not found") {
		return fmt.Errorf("model not found: %w", err)
	}

	if containsAny(errStr, "connection", "eof", "timeout", "dial", "refused") {
		return fmt.Errorf("connection error: %w", err)
	}

	return err
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
