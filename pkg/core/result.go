package core

// PageRef identifies the page an item was found on.
type PageRef struct {
	DatasetID  string
	LocalID    string
	PageID     string
	PageKey    string
	ResourceID string
	Language   string
}

// RefOf returns the PageRef of p.
func RefOf(p *Page) PageRef {
	return PageRef{
		DatasetID:  p.DatasetID,
		LocalID:    p.LocalID,
		PageID:     p.PageID,
		PageKey:    p.PageKey,
		ResourceID: p.ResourceID,
		Language:   p.Language,
	}
}

// Item is an annotation matched by one or more hits. Highlights is empty for
// word annotations.
type Item struct {
	Page       PageRef
	Annotation Annotation
	Highlights []LocatedHit
}

// Diagnostics counts conditions that are logged but never fail a search.
type Diagnostics struct {
	SkippedSnippets int
	MergedHits      int
	UnlocatedHits   int
	UnmatchedHits   int
	EmptyPages      int
}

// SearchResult accumulates the items of one search request. Items are unique
// per page and annotation id. Hits and Snippets are only kept in debug mode.
type SearchResult struct {
	ID          string
	Debug       bool
	Diagnostics Diagnostics

	items    []*Item
	index    map[string]*Item
	hits     []LocatedHit
	snippets []EngineHit
}

// NewSearchResult creates an empty result.
func NewSearchResult(id string, debug bool) *SearchResult {
	return &SearchResult{
		ID:    id,
		Debug: debug,
		index: make(map[string]*Item),
	}
}

// AddAnnotationHit records anno as matched. hit is attached as a highlight
// when non-nil. A repeated annotation only gains the new highlight.
func (r *SearchResult) AddAnnotationHit(page *Page, anno Annotation, hit *LocatedHit) {
	key := page.PageKey + "\x00" + anno.ID
	item, ok := r.index[key]
	if !ok {
		item = &Item{Page: RefOf(page), Annotation: anno}
		r.index[key] = item
		r.items = append(r.items, item)
	}
	if hit == nil {
		return
	}
	for _, h := range item.Highlights {
		if h.Start == hit.Start && h.End == hit.End {
			return
		}
	}
	item.Highlights = append(item.Highlights, *hit)
}

// AddHit records a located hit that produced at least one item.
func (r *SearchResult) AddHit(hit LocatedHit) {
	if !r.Debug {
		return
	}
	r.hits = append(r.hits, hit)
}

// AddSnippet records a parsed engine hit.
func (r *SearchResult) AddSnippet(hit EngineHit) {
	if !r.Debug {
		return
	}
	r.snippets = append(r.snippets, hit)
}

// ItemCount returns the number of distinct items so far.
func (r *SearchResult) ItemCount() int {
	return len(r.items)
}

// Items returns the matched items in discovery order.
func (r *SearchResult) Items() []*Item {
	return r.items
}

// Hits returns the located hits (debug only).
func (r *SearchResult) Hits() []LocatedHit {
	return r.hits
}

// Snippets returns the parsed engine hits (debug only).
func (r *SearchResult) Snippets() []EngineHit {
	return r.snippets
}
