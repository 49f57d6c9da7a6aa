package types

import "strings"

// Document is a unit of searchable text inside a project scope.
//
// For path-addressed documents the ID is the slash-separated path relative to the
// project root. For record-store documents the ID is assigned by the caller.
type Document struct {
	Project  string
	ID       string
	Title    string
	Text     string
	Metadata map[string]any
}

// Validate checks that the document can be stored
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Project) == "" {
		return ErrMissingProject
	}
	if strings.TrimSpace(d.ID) == "" {
		return ErrMissingDocID
	}
	return nil
}

// Clone returns a copy whose metadata map can be mutated independently
func (d *Document) Clone() *Document {
	dst := *d
	if d.Metadata != nil {
		dst.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			dst.Metadata[k] = v
		}
	}
	return &dst
}
