package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rubiojr/fulltext/pkg/highlight"
)

// Search runs query against the FTS5 index of one record and returns a
// single payload keyed by localID, best match first. Each page becomes one
// "{pageKey} text" snippet whose text is the whole page with the matched
// terms between highlight.ControlMarkers.
//
// Pages of every language share the payload so the bm25 order survives.
// Offsets are reported in a coordinate space where the snippets follow each
// other, which is how a search engine reports offsets of a multi page
// document.
func (s *PageStorage) Search(ctx context.Context, localID, query string, limit int, debug bool) (map[string]highlight.Payload, error) {
	match := ftsQuery(query)
	if match == "" || limit <= 0 {
		return map[string]highlight.Payload{}, nil
	}

	markers := highlight.ControlMarkers
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.page_key, highlight(pages_fts, 0, ?, ?)
		FROM pages_fts
		JOIN pages p ON p.id = pages_fts.rowid
		WHERE pages_fts MATCH ? AND p.dataset_id = ? AND p.local_id = ?
		ORDER BY bm25(pages_fts), p.id
		LIMIT ?`,
		markers.Open, markers.Close, match, s.datasetID, localID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching pages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	payload := highlight.Payload{Markers: markers}
	var offset int64
	for rows.Next() {
		var key, text string
		if err := rows.Scan(&key, &text); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		prefix := highlight.PageKeyPrefix(key)
		prefixLen := int64(utf8.RuneCountInString(prefix))
		passage := highlight.Passage{TextStartOffset: offset}
		parsed := markers.Parse(text)
		starts := make([]int64, len(parsed.Hits))
		ends := make([]int64, len(parsed.Hits))
		for i, hit := range parsed.Hits {
			starts[i] = offset + prefixLen + int64(hit.SnippetStart)
			ends[i] = offset + prefixLen + int64(hit.SnippetEnd)
		}
		passage.MatchStarts = formatOffsets(starts)
		passage.MatchEnds = formatOffsets(ends)
		offset += prefixLen + int64(utf8.RuneCountInString(parsed.Text))

		payload.Snippets = append(payload.Snippets, prefix+text)
		payload.Offsets = append(payload.Offsets, passage)

		if debug {
			logger.Debugf("engine snippet %s: %d hits at %s", key, len(parsed.Hits), passage.MatchStarts)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	if len(payload.Snippets) == 0 {
		return map[string]highlight.Payload{}, nil
	}
	return map[string]highlight.Payload{localID: payload}, nil
}

// ftsQuery turns free text into an FTS5 query: every word becomes a quoted
// term, double quoted parts of the input stay phrases.
func ftsQuery(query string) string {
	var terms []string
	parts := strings.Split(query, `"`)
	for i, part := range parts {
		if i%2 == 1 {
			if phrase := strings.Join(strings.Fields(part), " "); phrase != "" {
				terms = append(terms, quoteTerm(phrase))
			}
			continue
		}
		for _, word := range strings.Fields(part) {
			terms = append(terms, quoteTerm(word))
		}
	}
	return strings.Join(terms, " ")
}

func quoteTerm(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatOffsets(offsets []int64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, o := range offsets {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", o)
	}
	b.WriteByte(']')
	return b.String()
}
