package domain

import "strings"

// Document is the canonical, source-independent input to the chunker.
// Source-specific record shapes are normalized into this before chunking.
type Document struct {
	Text       string
	URL        string
	Title      string
	Heading    string
	PageTitle  string
	SourceType SourceType
	Level      int
	Month      string
	Tags       []string
	SourceFile string
	ParentID   string
}

// Validate checks the fields every document must carry.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return ErrEmptyDocument
	}
	if !d.SourceType.IsValid() {
		return ErrInvalidSourceType
	}
	if d.Level < 0 {
		return NewDomainError(ErrCodeValidation, "heading level must be non-negative")
	}
	return nil
}
