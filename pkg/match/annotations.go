package match

import (
	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/log"
)

var logger = log.ForService("match")

// Annotations adds to into every annotation of page, in stored order, whose
// span overlaps hit (inclusive on both ends) and whose granularity is in
// types (empty means all). Spans of one character or less are ignored, they
// are usually punctuation glued to the searched word. Word items carry no
// highlight. Matching stops as soon as into holds pageSize items.
//
// It returns the number of annotations matched by this hit.
func Annotations(hit core.LocatedHit, page *core.Page, types []core.Granularity, into *core.SearchResult, pageSize int) int {
	if into.ItemCount() >= pageSize {
		return 0
	}
	found := 0
	for _, anno := range page.Annotations {
		if into.ItemCount() >= pageSize {
			break
		}
		if anno.Span == nil || !core.ContainsGranularity(types, anno.Granularity) {
			continue
		}
		if !hit.Overlaps(*anno.Span) {
			continue
		}
		if anno.Span.Len() <= 1 {
			logger.Debugf("ignoring overlap of %v with %s, it is only %d character long", hit, anno.ID, anno.Span.Len())
			continue
		}
		if logger.DebugEnabled() {
			logger.Debugf("overlap between %v and %s [%d,%d) %q", hit, anno.ID, anno.Span.From, anno.Span.To, page.TextSpan(*anno.Span))
		}

		found++
		if anno.Granularity == core.GranularityWord {
			into.AddAnnotationHit(page, anno, nil)
		} else {
			h := hit
			into.AddAnnotationHit(page, anno, &h)
		}
	}

	if found == 0 {
		into.Diagnostics.UnmatchedHits++
		logger.Warnf("no annotations found for %d,%d on /%s/%s/annopage/%s", hit.Start, hit.End, page.DatasetID, page.LocalID, page.PageID)
		return 0
	}
	into.AddHit(hit)
	return found
}
