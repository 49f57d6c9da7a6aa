package types

// SourceKind identifies which corpus produced a search hit
type SourceKind string

const (
	SourceDocs    SourceKind = "docs"    // Path-addressed project documentation
	SourceRecords SourceKind = "records" // Record store documents
)

// Valid reports whether k is a known source kind
func (k SourceKind) Valid() bool {
	return k == SourceDocs || k == SourceRecords
}

// SearchHit is a single scored excerpt returned by a search
type SearchHit struct {
	// Identification
	ID     string     `json:"id"`
	Title  string     `json:"title,omitempty"`
	Source SourceKind `json:"source"`

	// Scoring
	Score float64 `json:"score"` // Raw lexical score, 0 for fallback hits

	// Content
	Snippet  string         `json:"snippet"`
	Matched  []string       `json:"matched,omitempty"` // Terms that contributed to the score
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks if the search hit is valid
func (h *SearchHit) Validate() error {
	if h.ID == "" {
		return ErrMissingIdentifier
	}
	if h.Score < 0 {
		return ErrInvalidScore
	}
	if !h.Source.Valid() {
		return ErrInvalidSourceKind
	}
	return nil
}
