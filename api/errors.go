package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork indicates that no response was received from the remote API.
// Callers can match it with errors.Is to distinguish connectivity problems
// from server rejections.
var ErrNetwork = errors.New("network error - please check your connection")

// Error is a non-success response from the remote API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthorizationFailure reports whether err is a remote rejection caused by
// a missing, invalid, or expired access token.
func IsAuthorizationFailure(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a
// remote API error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
