package highlight

import (
	"strings"

	"github.com/rubiojr/fulltext/pkg/core"
)

// HTML markers delimiting a highlighted term in a snippet.
const (
	OpenMarker  = "<em>"
	CloseMarker = "</em>"
)

// Markers delimit the highlighted terms of a snippet.
type Markers struct {
	Open  string
	Close string
}

// DefaultMarkers are the HTML markers most engines emit.
var DefaultMarkers = Markers{Open: OpenMarker, Close: CloseMarker}

// ControlMarkers use the STX and ETX control characters. Page texts never
// contain them, so a literal "<em>" in a page cannot be taken for a marker.
var ControlMarkers = Markers{Open: "\x02", Close: "\x03"}

// orDefault returns DefaultMarkers for an incomplete marker pair.
func (m Markers) orDefault() Markers {
	if m.Open == "" || m.Close == "" {
		return DefaultMarkers
	}
	return m
}

// ContainsControlMarkers reports whether s contains a ControlMarkers rune.
func ContainsControlMarkers(s string) bool {
	return strings.ContainsAny(s, ControlMarkers.Open+ControlMarkers.Close)
}

// Snippet is a parsed snippet: the marker-free text and the hits found in it.
type Snippet struct {
	PageKey string
	Text    string
	Hits    []core.EngineHit
}

// ParseSnippet parses s using DefaultMarkers.
func ParseSnippet(s string) Snippet {
	return DefaultMarkers.Parse(s)
}

// Parse extracts every marked span of s, left to right. Hit context
// characters come from the marker-free text; a span touching either end of
// the snippet gets an edge context on that side. Positions are code point
// offsets in Snippet.Text. An incomplete pair parses with DefaultMarkers.
func (m Markers) Parse(s string) Snippet {
	type span struct{ start, end int }

	m = m.orDefault()
	var plain []rune
	var spans []span
	rest := s
	for {
		i := strings.Index(rest, m.Open)
		if i < 0 {
			plain = append(plain, []rune(rest)...)
			break
		}
		plain = append(plain, []rune(rest[:i])...)
		rest = rest[i+len(m.Open):]

		j := strings.Index(rest, m.Close)
		if j < 0 {
			// unterminated span, keep the text but stop looking for hits
			plain = append(plain, []rune(rest)...)
			break
		}
		start := len(plain)
		plain = append(plain, []rune(rest[:j])...)
		if len(plain) > start {
			spans = append(spans, span{start: start, end: len(plain)})
		}
		rest = rest[j+len(m.Close):]
	}

	snip := Snippet{Text: string(plain)}
	for _, sp := range spans {
		hit := core.EngineHit{
			Exact:        string(plain[sp.start:sp.end]),
			Prefix:       core.EdgeContext(),
			Suffix:       core.EdgeContext(),
			SnippetStart: sp.start,
			SnippetEnd:   sp.end,
		}
		if sp.start > 0 {
			hit.Prefix = core.CharContext(plain[sp.start-1])
		}
		if sp.end < len(plain) {
			hit.Suffix = core.CharContext(plain[sp.end])
		}
		snip.Hits = append(snip.Hits, hit)
	}
	return snip
}
