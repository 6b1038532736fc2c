package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrValidation indicates malformed caller input (empty content,
	// bad timestamp, non-positive limit). Never retryable.
	ErrValidation = goerr.New("validation failed")

	// ErrEmptyInput indicates empty or whitespace-only text was passed
	// to an embedding provider.
	ErrEmptyInput = goerr.New("input text is empty")

	// ErrProvider indicates a failure from an embedding or LLM provider.
	// Transient cases may be retried by the caller.
	ErrProvider = goerr.New("provider request failed")

	// ErrDimensionMismatch indicates the active provider's embedding
	// dimension differs from the table's established schema. Fatal for
	// the table; recovery requires recreating it.
	ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

	// ErrTableNotFound indicates a read against a namespace that has
	// never been written to.
	ErrTableNotFound = goerr.New("table not found")
)
