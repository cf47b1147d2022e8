package core

import (
	"fmt"
	"unicode/utf8"
)

// RecordID identifies a record (an issue, a book) by dataset and local id.
type RecordID struct {
	DatasetID string
	LocalID   string
}

func (r RecordID) String() string {
	return "/" + r.DatasetID + "/" + r.LocalID
}

// Page is one annotated page of a record: its canonical full text and the
// annotations that point into it. PageKey is the key the search engine uses
// to refer to the page (the target/image id).
type Page struct {
	DatasetID   string
	LocalID     string
	PageID      string
	PageKey     string
	ResourceID  string
	Language    string
	FullText    string
	Annotations []Annotation
}

// Record returns the record the page belongs to.
func (p *Page) Record() RecordID {
	return RecordID{DatasetID: p.DatasetID, LocalID: p.LocalID}
}

// TextLen returns the full text length in code points.
func (p *Page) TextLen() int {
	return utf8.RuneCountInString(p.FullText)
}

// TextSpan returns the full text covered by s, clamped to the text bounds.
func (p *Page) TextSpan(s Span) string {
	runes := []rune(p.FullText)
	from, to := s.From, s.To
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}

// Validate checks the page and all its annotations.
func (p *Page) Validate() error {
	if p.DatasetID == "" || p.LocalID == "" || p.PageID == "" {
		return fmt.Errorf("%w: dataset, local and page id are required", ErrInvalidPage)
	}
	if p.PageKey == "" {
		return fmt.Errorf("%w: page %s has no page key", ErrInvalidPage, p.PageID)
	}
	seen := make(map[string]bool, len(p.Annotations))
	for _, a := range p.Annotations {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("page %s: %w", p.PageID, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: page %s has duplicate annotation %s", ErrInvalidPage, p.PageID, a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}
