package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAnnotation indicates an annotation failed validation.
	ErrInvalidAnnotation = errors.New("invalid annotation")

	// ErrInvalidPage indicates a page failed validation.
	ErrInvalidPage = errors.New("invalid page")
)

// Rect is a rectangle on the page image, in pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Span is a half-open [From, To) range of code points in a page full text.
type Span struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Len returns the number of code points covered by the span.
func (s Span) Len() int {
	return s.To - s.From
}

// Annotation is a region of a page at a given granularity. Page level
// annotations have no span; every other granularity must carry one.
type Annotation struct {
	ID          string
	Granularity Granularity
	Span        *Span
	Targets     []Rect
	Language    string
}

// HasSpan reports whether the annotation carries a text span.
func (a Annotation) HasSpan() bool {
	return a.Span != nil
}

// Validate checks the annotation invariants.
func (a Annotation) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAnnotation)
	}
	if !a.Granularity.Valid() {
		return fmt.Errorf("%w: %s has unknown granularity %d", ErrInvalidAnnotation, a.ID, a.Granularity)
	}
	if a.Granularity != GranularityPage && a.Span == nil {
		return fmt.Errorf("%w: %s (%s) has no span", ErrInvalidAnnotation, a.ID, a.Granularity)
	}
	if a.Span != nil && (a.Span.From < 0 || a.Span.To < a.Span.From) {
		return fmt.Errorf("%w: %s has span [%d,%d)", ErrInvalidAnnotation, a.ID, a.Span.From, a.Span.To)
	}
	return nil
}
