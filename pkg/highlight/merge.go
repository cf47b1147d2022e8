package highlight

import "github.com/rubiojr/fulltext/pkg/core"

// DefaultMergeDistance is the largest gap, in code points, between two hits
// that still get merged ("Daniel</em> <em>Ehlert" is a gap of 1).
const DefaultMergeDistance = 2

// MergeHits merges each hit into the previous kept hit when the gap between
// them is at most maxDistance. text is the marker-free snippet the hit
// positions refer to; the merged exact text spans everything between the
// two hits. Only neighbours in list order are compared. The second return
// value is the number of hits merged away.
func MergeHits(text string, hits []core.EngineHit, maxDistance int) ([]core.EngineHit, int) {
	if len(hits) < 2 {
		return hits, 0
	}
	runes := []rune(text)
	out := make([]core.EngineHit, 0, len(hits))
	out = append(out, hits[0])
	merged := 0
	for _, cur := range hits[1:] {
		prev := &out[len(out)-1]
		if cur.SnippetStart-prev.SnippetEnd > maxDistance {
			out = append(out, cur)
			continue
		}
		if prev.SnippetStart >= 0 && prev.SnippetStart <= cur.SnippetEnd && cur.SnippetEnd <= len(runes) {
			prev.Exact = string(runes[prev.SnippetStart:cur.SnippetEnd])
		} else {
			prev.Exact += cur.Exact
		}
		prev.SnippetEnd = cur.SnippetEnd
		prev.Suffix = cur.Suffix
		merged++
	}
	return out, merged
}
