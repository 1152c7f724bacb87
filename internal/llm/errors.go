package llm

import "errors"

var (
	// ErrNotConfigured means a required model backend (embedding or
	// generation) is absent or missing credentials. Handlers surface this as
	// service-unavailable, never as an empty result.
	ErrNotConfigured = errors.New("model backend not configured")

	// ErrUnavailable means the model endpoint could not be reached or
	// rejected the call. Distinct from "no results" so callers can tell a
	// degraded backend from an empty corpus.
	ErrUnavailable = errors.New("model backend unavailable")
)
