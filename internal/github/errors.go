package github

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors.
var (
	// ErrNotAuthenticated means no GitHub token could be resolved.
	ErrNotAuthenticated = errors.New("not authenticated: no GitHub token available")

	// ErrMergeQueued signals that a merge was redirected into the base
	// branch's merge queue. It is a success-in-progress, not a failure;
	// callers should present it as "queued" rather than an error.
	ErrMergeQueued = errors.New("pull request added to merge queue")
)

// HTTPError is a non-2xx transport response from the API endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("github: unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// InvalidResponseError is a malformed transport response.
type InvalidResponseError struct {
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("github: invalid response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// RemoteErrorDetail is a single entry in a GraphQL errors array.
type RemoteErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RemoteError represents query/mutation-level errors reported by the
// API. A non-empty errors array is a failure even when data is present;
// partial success does not count for mutations.
type RemoteError struct {
	Errors []RemoteErrorDetail
}

func (e *RemoteError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, detail := range e.Errors {
		msgs = append(msgs, detail.Message)
	}
	return "github: remote error: " + strings.Join(msgs, "; ")
}
