package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrObjectStoreRequired is returned when an object store is not provided.
	ErrObjectStoreRequired = errors.New("object store required")

	// ErrEngineRequired is returned when an index engine is not provided.
	ErrEngineRequired = errors.New("index engine required")

	// ErrUnsupportedKind is returned for a kind with no indexer.
	ErrUnsupportedKind = errors.New("no indexer for kind")
)
