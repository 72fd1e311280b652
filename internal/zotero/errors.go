package zotero

import (
	"errors"
	"fmt"
)

// Common errors returned by the Zotero client.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("not found in Zotero library")

	// ErrAuthFailed indicates a missing or invalid API key.
	ErrAuthFailed = errors.New("Zotero authentication failed")

	// ErrRateLimited indicates the API rate limit has been exceeded.
	ErrRateLimited = errors.New("Zotero rate limit exceeded")

	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error communicating with Zotero")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from Zotero")
)

// APIError represents an error response from the Zotero API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Zotero API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Zotero API error (status %d)", e.StatusCode)
}

// IsNotFound returns true if the error indicates a missing object.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsAuthFailed returns true if the error indicates an authentication problem.
func IsAuthFailed(err error) bool {
	if errors.Is(err, ErrAuthFailed) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
