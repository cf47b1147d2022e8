// Package match resolves engine hits against canonical page text and finds
// the annotations they cover.
package match

import (
	"strings"
	"unicode/utf8"

	"github.com/rubiojr/fulltext/pkg/core"
)

// Locate returns every occurrence of hit.Exact in fullText that satisfies the
// hit prefix and suffix, in ascending order, up to maxHits. Occurrences may
// overlap. Offsets are code points.
func Locate(hit core.EngineHit, fullText string, maxHits int) []core.LocatedHit {
	if hit.Exact == "" || maxHits <= 0 {
		return nil
	}
	exactLen := utf8.RuneCountInString(hit.Exact)
	selector := core.Selector{Prefix: hit.Prefix.Text(), Exact: hit.Exact, Suffix: hit.Suffix.Text()}

	var located []core.LocatedHit
	from, runePos := 0, 0 // runePos is the code point index of byte offset from
	for len(located) < maxHits {
		i := strings.Index(fullText[from:], hit.Exact)
		if i < 0 {
			break
		}
		start := from + i
		runePos += utf8.RuneCountInString(fullText[from:start])
		end := start + len(hit.Exact)

		if prefixMatches(hit.Prefix, fullText, start) && suffixMatches(hit.Suffix, fullText, end) {
			located = append(located, core.LocatedHit{
				PageKey:  hit.PageKey,
				Start:    runePos,
				End:      runePos + exactLen,
				Selector: selector,
			})
		}

		_, size := utf8.DecodeRuneInString(fullText[start:])
		from = start + size
		runePos++
	}
	return located
}

func prefixMatches(c core.Context, text string, start int) bool {
	switch c.Kind {
	case core.ContextEdge:
		return start == 0
	case core.ContextChar:
		if start == 0 {
			return false
		}
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		return r == c.Char
	}
	return true
}

func suffixMatches(c core.Context, text string, end int) bool {
	switch c.Kind {
	case core.ContextEdge:
		return end == len(text)
	case core.ContextChar:
		if end >= len(text) {
			return false
		}
		r, _ := utf8.DecodeRuneInString(text[end:])
		return r == c.Char
	}
	return true
}
