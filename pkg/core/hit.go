package core

import "fmt"

// ContextKind tells how a hit neighbour constrains the located occurrence.
type ContextKind int

const (
	// ContextAny places no constraint on the neighbour.
	ContextAny ContextKind = iota
	// ContextEdge means the hit touched the snippet boundary, so the
	// occurrence must touch the full text boundary too.
	ContextEdge
	// ContextChar requires the neighbour to be a specific character.
	ContextChar
)

// Context is the character right before (prefix) or right after (suffix) a hit.
type Context struct {
	Kind ContextKind
	Char rune
}

// AnyContext returns an unconstrained context.
func AnyContext() Context { return Context{Kind: ContextAny} }

// EdgeContext returns a context that only matches at the text boundary.
func EdgeContext() Context { return Context{Kind: ContextEdge} }

// CharContext returns a context matching the character c.
func CharContext(c rune) Context { return Context{Kind: ContextChar, Char: c} }

// Present reports whether the context names a character.
func (c Context) Present() bool {
	return c.Kind == ContextChar
}

// Text returns the context character as a string, or "" when absent.
func (c Context) Text() string {
	if c.Kind != ContextChar {
		return ""
	}
	return string(c.Char)
}

func (c Context) String() string {
	switch c.Kind {
	case ContextChar:
		return fmt.Sprintf("%q", c.Char)
	case ContextEdge:
		return "<edge>"
	}
	return "<any>"
}

// EngineHit is a search term occurrence parsed from an engine snippet.
// SnippetStart/SnippetEnd are code point offsets in the marker-free snippet
// and are only meaningful for merging hits of the same snippet.
type EngineHit struct {
	PageKey      string
	Prefix       Context
	Exact        string
	Suffix       Context
	SnippetStart int
	SnippetEnd   int
}

func (h EngineHit) String() string {
	return fmt.Sprintf("%s %s[%s]%s (%d,%d)", h.PageKey, h.Prefix, h.Exact, h.Suffix, h.SnippetStart, h.SnippetEnd)
}

// Selector is the text quote selector of a located hit.
type Selector struct {
	Prefix string `json:"prefix,omitempty"`
	Exact  string `json:"exact"`
	Suffix string `json:"suffix,omitempty"`
}

// LocatedHit is an EngineHit resolved to [Start, End) code points in one
// page's full text.
type LocatedHit struct {
	PageKey  string
	Start    int
	End      int
	Selector Selector
}

// Span returns the hit range as a Span.
func (h LocatedHit) Span() Span {
	return Span{From: h.Start, To: h.End}
}

// Overlaps reports whether the hit overlaps s, inclusive on both ends.
func (h LocatedHit) Overlaps(s Span) bool {
	return h.Start <= s.To && h.End >= s.From
}

func (h LocatedHit) String() string {
	return fmt.Sprintf("%s[%d,%d] %q", h.PageKey, h.Start, h.End, h.Selector.Exact)
}
