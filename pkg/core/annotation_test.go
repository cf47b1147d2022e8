package core

import (
	"errors"
	"testing"
)

func TestAnnotationValidate(t *testing.T) {
	tests := []struct {
		name    string
		anno    Annotation
		wantErr bool
	}{
		{name: "word with span", anno: Annotation{ID: "w1", Granularity: GranularityWord, Span: &Span{From: 0, To: 4}}},
		{name: "page without span", anno: Annotation{ID: "p1", Granularity: GranularityPage}},
		{name: "line without span", anno: Annotation{ID: "l1", Granularity: GranularityLine}, wantErr: true},
		{name: "empty id", anno: Annotation{Granularity: GranularityPage}, wantErr: true},
		{name: "unknown granularity", anno: Annotation{ID: "x", Granularity: 9, Span: &Span{To: 1}}, wantErr: true},
		{name: "inverted span", anno: Annotation{ID: "w2", Granularity: GranularityWord, Span: &Span{From: 5, To: 2}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.anno.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAnnotation) {
					t.Fatalf("expected ErrInvalidAnnotation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPageValidate(t *testing.T) {
	page := &Page{
		DatasetID: "ds", LocalID: "lc", PageID: "1", PageKey: "img1",
		Annotations: []Annotation{
			{ID: "a", Granularity: GranularityWord, Span: &Span{From: 0, To: 2}},
			{ID: "a", Granularity: GranularityWord, Span: &Span{From: 3, To: 5}},
		},
	}
	if err := page.Validate(); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected duplicate annotation error, got %v", err)
	}

	page.Annotations[1].ID = "b"
	if err := page.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page.PageKey = ""
	if err := page.Validate(); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected missing page key error, got %v", err)
	}
}

func TestPageTextSpan(t *testing.T) {
	page := &Page{FullText: "Grüße aus Köln"}
	if got := page.TextSpan(Span{From: 0, To: 5}); got != "Grüße" {
		t.Errorf("expected %q, got %q", "Grüße", got)
	}
	if got := page.TextSpan(Span{From: 10, To: 99}); got != "Köln" {
		t.Errorf("expected clamped %q, got %q", "Köln", got)
	}
	if page.TextLen() != 14 {
		t.Errorf("expected 14 code points, got %d", page.TextLen())
	}
}
