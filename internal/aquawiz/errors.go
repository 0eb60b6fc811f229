package aquawiz

import (
	"errors"
	"fmt"
)

// APIError represents any non-auth failure while talking to the AquaWiz
// cloud: unexpected status codes, transport failures, and a failed retry
// after re-authentication. The host treats it as a transient
// cannot-connect condition; the next scheduled poll is the recovery
// mechanism.
type APIError struct {
	Op         string // Operation that failed ("authenticate", "device data", ...)
	StatusCode int    // HTTP status, 0 for transport-level failures
	Body       string // Response body text, empty for transport failures
	Err        error  // Underlying transport error, if any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: connection error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %d - %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// AuthError indicates rejected credentials. It is never retried internally
// and is surfaced to the host as an auth-invalid condition, distinct from
// connectivity problems.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsAPIError reports whether err is (or wraps) an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
