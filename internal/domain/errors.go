package domain

import "errors"

// Sentinel errors. Callers wrap them with fmt.Errorf("...: %w", err) and
// match with errors.Is.
var (
	// ErrConfig reports missing or invalid configuration. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrLoad reports an unreadable source directory or no usable documents.
	ErrLoad = errors.New("document load failed")

	// ErrEmbeddingService reports a failed or malformed embedding call.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService reports a failed or malformed generation call.
	ErrGenerationService = errors.New("generation service error")

	// ErrValidation reports inputs that break an operation's contract.
	ErrValidation = errors.New("validation failed")

	// ErrNotBuilt is returned when querying before the index exists.
	ErrNotBuilt = errors.New("index not built")

	// ErrBuildInProgress is returned when a build is requested while one runs.
	ErrBuildInProgress = errors.New("index build in progress")

	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)
