package highlight

import (
	"testing"

	"github.com/rubiojr/fulltext/pkg/core"
)

func TestParseSnippetSingleSpan(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    core.EngineHit
	}{
		{
			name:    "start of text",
			snippet: "<em>Aus der</em> 49. Verlustliste.",
			want:    core.EngineHit{Prefix: core.EdgeContext(), Exact: "Aus der", Suffix: core.CharContext(' '), SnippetStart: 0, SnippetEnd: 7},
		},
		{
			name:    "end of text",
			snippet: "am 29. Oktober in der Philharmonie ein <em>zweites Konzert</em>",
			want:    core.EngineHit{Prefix: core.CharContext(' '), Exact: "zweites Konzert", Suffix: core.EdgeContext(), SnippetStart: 39, SnippetEnd: 54},
		},
		{
			name:    "middle of text",
			snippet: "Paul (<em>Berlin</em>) tot.",
			want:    core.EngineHit{Prefix: core.CharContext('('), Exact: "Berlin", Suffix: core.CharContext(')'), SnippetStart: 6, SnippetEnd: 12},
		},
		{
			name:    "whole text",
			snippet: "<em>Raincourt</em>",
			want:    core.EngineHit{Prefix: core.EdgeContext(), Exact: "Raincourt", Suffix: core.EdgeContext(), SnippetStart: 0, SnippetEnd: 9},
		},
		{
			name:    "multibyte context",
			snippet: "Grüße <em>aus</em> Köln",
			want:    core.EngineHit{Prefix: core.CharContext(' '), Exact: "aus", Suffix: core.CharContext(' '), SnippetStart: 6, SnippetEnd: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snip := ParseSnippet(tt.snippet)
			if len(snip.Hits) != 1 {
				t.Fatalf("expected 1 hit, got %d", len(snip.Hits))
			}
			if got := snip.Hits[0]; got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseSnippetMultipleSpans(t *testing.T) {
	snip := ParseSnippet("Truck und Verlag: <em>Berlin</em>.      \n<em>Berliner</em> Jageblalt 43.")
	if len(snip.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(snip.Hits))
	}
	first, second := snip.Hits[0], snip.Hits[1]
	if first.Exact != "Berlin" || first.Prefix != core.CharContext(' ') || first.Suffix != core.CharContext('.') {
		t.Errorf("unexpected first hit %v", first)
	}
	if second.Exact != "Berliner" || second.Prefix != core.CharContext('\n') || second.Suffix != core.CharContext(' ') {
		t.Errorf("unexpected second hit %v", second)
	}
	if snip.Text != "Truck und Verlag: Berlin.      \nBerliner Jageblalt 43." {
		t.Errorf("unexpected plain text %q", snip.Text)
	}
}

func TestParseSnippetSameTextTwice(t *testing.T) {
	snip := ParseSnippet("Ehrenfeld (<em>Berlin</em>) tot. Pion. Fritz Hagen <em>Berlin</em>, tot.")
	if len(snip.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(snip.Hits))
	}
	if snip.Hits[0].Prefix != core.CharContext('(') || snip.Hits[0].Suffix != core.CharContext(')') {
		t.Errorf("first hit lost its context: %v", snip.Hits[0])
	}
	if snip.Hits[1].Prefix != core.CharContext(' ') || snip.Hits[1].Suffix != core.CharContext(',') {
		t.Errorf("second hit lost its context: %v", snip.Hits[1])
	}
}

func TestParseSnippetAdjacentSpansUsePlainContext(t *testing.T) {
	snip := ParseSnippet("x<em>ab</em><em>cd</em>y")
	if len(snip.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(snip.Hits))
	}
	if snip.Hits[0].Suffix != core.CharContext('c') {
		t.Errorf("expected suffix 'c', got %v", snip.Hits[0].Suffix)
	}
	if snip.Hits[1].Prefix != core.CharContext('b') {
		t.Errorf("expected prefix 'b', got %v", snip.Hits[1].Prefix)
	}
}

func TestParseSnippetNoSpans(t *testing.T) {
	for _, s := range []string{"", "plain text", "broken <em>open only", "empty <em></em> span"} {
		if snip := ParseSnippet(s); len(snip.Hits) != 0 {
			t.Errorf("%q: expected no hits, got %v", s, snip.Hits)
		}
	}
}
