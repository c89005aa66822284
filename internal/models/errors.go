package models

import "errors"

// Error taxonomy shared across the engine. Callers classify failures with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrInvalidParameters marks bad caller input. Not retried.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrEmbeddingProvider marks a failure of the external embedding provider.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGenerationProvider marks a failure of the external generation provider.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrStorage marks an unavailable or failing underlying store.
	ErrStorage = errors.New("storage error")

	// ErrExport marks a mid-stream export failure. A truncated CSV stream is a
	// failed export, not a complete-but-short one.
	ErrExport = errors.New("export error")
)
