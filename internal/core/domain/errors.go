package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the referenced record has no backing storage row.
	// Routing logic treats this as "no match", never as a request failure.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid (e.g. empty query text)
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a required AI backend is not configured
	// or could not be reached. The dependent feature is disabled, not retried.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrIndexInconsistent indicates the vector store returned a record with
	// malformed or missing metadata. Callers log it and treat the record as
	// absent.
	ErrIndexInconsistent = errors.New("vector index metadata inconsistent")

	// ErrIndexBusy indicates another writer holds the per-entity lock for a
	// delete-then-add sequence on the same QA pair or document.
	ErrIndexBusy = errors.New("index update already in progress")
)
