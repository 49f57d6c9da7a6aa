package types

import "errors"

// Domain errors shared across corpora and the search engine
var (
	// Query errors
	ErrEmptyQuery = errors.New("query cannot be empty")

	// Corpus A errors
	ErrPathEscape      = errors.New("path escapes project root")
	ErrProjectNotFound = errors.New("project not found")
	ErrFileNotFound    = errors.New("file not found")

	// Corpus B errors
	ErrMalformedRecord = errors.New("malformed document record")
	ErrMissingProject  = errors.New("project slug is required")
	ErrMissingDocID    = errors.New("document id is required")

	// Search result errors
	ErrInvalidScore      = errors.New("score must be non-negative")
	ErrMissingIdentifier = errors.New("identifier is required")
	ErrInvalidSourceKind = errors.New("invalid source kind")
)
