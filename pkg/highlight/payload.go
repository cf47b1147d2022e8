package highlight

import (
	"fmt"

	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/log"
)

// Passage carries the engine offsets of one snippet. MatchStarts and
// MatchEnds are bracketed lists, e.g. "[10, 52]".
type Passage struct {
	TextStartOffset int64
	MatchStarts     string
	MatchEnds       string
}

// Payload is the highlight output of the engine for one key, usually a
// language. Offsets is either empty (markup only) or parallel to Snippets.
// Markers defaults to DefaultMarkers when unset.
type Payload struct {
	Snippets []string
	Offsets  []Passage
	Markers  Markers
}

// Stats counts what happened while parsing a payload.
type Stats struct {
	Parsed  int
	Merged  int
	Skipped int
}

// Parser turns payloads into engine hits.
type Parser struct {
	MergeDistance int
	logger        *log.Logger
}

// NewParser returns a parser merging hits up to mergeDistance apart. A
// negative distance disables merging.
func NewParser(mergeDistance int) *Parser {
	return &Parser{
		MergeDistance: mergeDistance,
		logger:        log.ForService("highlight"),
	}
}

// Parse returns the hits of every snippet of p in engine order.
func (p *Parser) Parse(payload Payload) ([]core.EngineHit, Stats, error) {
	var stats Stats
	if len(payload.Offsets) > 0 && len(payload.Offsets) != len(payload.Snippets) {
		return nil, stats, fmt.Errorf("%w: %d snippets but %d passages",
			ErrMalformedPayload, len(payload.Snippets), len(payload.Offsets))
	}

	markers := payload.Markers.orDefault()
	var hits []core.EngineHit
	for i, raw := range payload.Snippets {
		key, text, prefixLen, err := StripPageKey(raw)
		if err != nil {
			return nil, stats, fmt.Errorf("snippet %d: %w", i, err)
		}

		snip := markers.Parse(text)
		snip.PageKey = key
		if len(snip.Hits) == 0 {
			p.logger.Debugf("no highlighted term in snippet %d of %s, skipping", i, key)
			stats.Skipped++
			continue
		}

		if len(payload.Offsets) > 0 {
			if err := p.applyOffsets(&snip, payload.Offsets[i], prefixLen); err != nil {
				return nil, stats, fmt.Errorf("snippet %d: %w", i, err)
			}
		}

		for j := range snip.Hits {
			snip.Hits[j].PageKey = key
		}
		stats.Parsed += len(snip.Hits)

		if p.MergeDistance >= 0 {
			var merged int
			snip.Hits, merged = MergeHits(snip.Text, snip.Hits, p.MergeDistance)
			if merged > 0 {
				p.logger.Debugf("merged %d hits in snippet %d of %s", merged, i, key)
			}
			stats.Merged += merged
		}
		hits = append(hits, snip.Hits...)
	}
	p.logger.Debugf("parsed %d engine hits, %d merged, %d snippets skipped", stats.Parsed, stats.Merged, stats.Skipped)
	return hits, stats, nil
}

// applyOffsets replaces the markup positions of the snippet hits with the
// rebased engine offsets, if both agree on the number of hits.
func (p *Parser) applyOffsets(snip *Snippet, passage Passage, prefixLen int) error {
	starts, err := ParseOffsetList(passage.MatchStarts)
	if err != nil {
		return err
	}
	ends, err := ParseOffsetList(passage.MatchEnds)
	if err != nil {
		return err
	}
	base := passage.TextStartOffset + int64(prefixLen)
	rs, re := Rebase(starts, base), Rebase(ends, base)
	if len(rs) != len(snip.Hits) || len(re) != len(snip.Hits) {
		p.logger.Debugf("%s: engine reports %d/%d offsets for %d marked hits, keeping markup positions",
			snip.PageKey, len(rs), len(re), len(snip.Hits))
		return nil
	}
	for j := range snip.Hits {
		snip.Hits[j].SnippetStart = rs[j]
		snip.Hits[j].SnippetEnd = re[j]
	}
	return nil
}
