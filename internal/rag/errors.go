package rag

import (
	"errors"
	"fmt"
)

// LoadError reports a document that could not be opened or parsed. During
// ingestion it is recorded per file and the rest of the batch continues.
type LoadError struct {
	// Path is the document that failed.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EmbeddingError reports an embedder failure that persisted after retries.
type EmbeddingError struct {
	// Attempts is how many calls were made before giving up.
	Attempts int
	// Err is the last failure.
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a vector whose length differs from the
// dimension the index was fixed to.
type DimensionMismatchError struct {
	// Want is the index dimension (or the first vector's, within a batch).
	Want int
	// Got is the offending length.
	Got int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d, got %d", e.Want, e.Got)
}

// NoIndexError reports a query against an index that has never received a
// document. It is a user-facing condition and must not be retried.
type NoIndexError struct{}

func (NoIndexError) Error() string { return "no documents loaded" }

// ErrNoIndex is the NoIndexError value; match it with errors.Is.
var ErrNoIndex error = NoIndexError{}

// PersistenceError reports a failure writing or reading durable index state.
// When returned from Add the in-memory index is unchanged.
type PersistenceError struct {
	// Op names the failed operation (open, load, commit).
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("index persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AsEmbeddingError returns err unchanged when it already carries an
// EmbeddingError (or is a context error), and otherwise wraps it as a
// single-attempt EmbeddingError.
func AsEmbeddingError(err error) error {
	if err == nil {
		return nil
	}
	var ee *EmbeddingError
	if errors.As(err, &ee) {
		return err
	}
	var dm *DimensionMismatchError
	if errors.As(err, &dm) {
		return err
	}
	return &EmbeddingError{Attempts: 1, Err: err}
}
