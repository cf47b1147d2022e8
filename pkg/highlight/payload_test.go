package highlight

import (
	"errors"
	"testing"

	"github.com/rubiojr/fulltext/pkg/core"
)

func TestParserMarkupOnly(t *testing.T) {
	p := NewParser(DefaultMergeDistance)
	hits, stats, err := p.Parse(Payload{Snippets: []string{
		"{img1} <em>Aus der</em> 49. Verlustliste.",
		"{img2} nothing highlighted here",
		"{img2} Kaptein <em>Daniel</em> <em>Ehlert</em>, van",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(hits), hits)
	}
	if hits[0].PageKey != "img1" || hits[0].Exact != "Aus der" || hits[0].Prefix != core.EdgeContext() {
		t.Errorf("unexpected first hit %v", hits[0])
	}
	if hits[1].PageKey != "img2" || hits[1].Exact != "Daniel Ehlert" {
		t.Errorf("unexpected second hit %v", hits[1])
	}
	if stats.Parsed != 3 || stats.Merged != 1 || stats.Skipped != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestParserWithOffsets(t *testing.T) {
	// engine document "{p7} Hello big world" starts at global offset 100,
	// the snippet text starts at 100 + len("{p7} ") = 105
	p := NewParser(0)
	hits, _, err := p.Parse(Payload{
		Snippets: []string{"{p7} Hello <em>big</em> <em>world</em>"},
		Offsets:  []Passage{{TextStartOffset: 100, MatchStarts: "[98, 111, 115]", MatchEnds: "[99, 114, 120]"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 unmerged hits, got %v", hits)
	}
	if hits[0].SnippetStart != 6 || hits[0].SnippetEnd != 9 || hits[1].SnippetStart != 10 || hits[1].SnippetEnd != 15 {
		t.Errorf("offsets not rebased: %v", hits)
	}
}

func TestParserOffsetCountMismatchKeepsMarkup(t *testing.T) {
	p := NewParser(-1)
	hits, _, err := p.Parse(Payload{
		Snippets: []string{"{p1} a <em>b</em> c"},
		Offsets:  []Passage{{TextStartOffset: 0, MatchStarts: "[]", MatchEnds: "[]"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].SnippetStart != 2 || hits[0].SnippetEnd != 3 {
		t.Errorf("expected markup positions, got %v", hits)
	}
}

func TestParserMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{name: "length mismatch", payload: Payload{
			Snippets: []string{"{a} <em>x</em>", "{b} <em>y</em>"},
			Offsets:  []Passage{{MatchStarts: "[1]", MatchEnds: "[2]"}},
		}},
		{name: "missing page key", payload: Payload{Snippets: []string{"<em>x</em>"}}},
		{name: "bad offsets", payload: Payload{
			Snippets: []string{"{a} <em>x</em>"},
			Offsets:  []Passage{{MatchStarts: "1,2", MatchEnds: "[2]"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewParser(DefaultMergeDistance).Parse(tt.payload)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestParserControlMarkersIgnoreHTML(t *testing.T) {
	p := NewParser(DefaultMergeDistance)
	hits, _, err := p.Parse(Payload{
		Snippets: []string{"{img1} Preis <em> niedrig, \x02Berlin\x03 tot."},
		Offsets:  []Passage{{TextStartOffset: 0, MatchStarts: "[27]", MatchEnds: "[33]"}},
		Markers:  ControlMarkers,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %v", hits)
	}
	h := hits[0]
	if h.Exact != "Berlin" || h.Prefix != core.CharContext(' ') || h.SnippetStart != 20 || h.SnippetEnd != 26 {
		t.Errorf("unexpected hit %v", h)
	}
}
