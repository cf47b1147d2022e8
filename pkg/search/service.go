package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/highlight"
	"github.com/rubiojr/fulltext/pkg/log"
	"github.com/rubiojr/fulltext/pkg/match"
)

// Engine runs a free text query restricted to one record. It returns the
// highlight payloads keyed by language, or a single payload when the engine
// ranks pages of all languages together.
type Engine interface {
	Query(ctx context.Context, rec core.RecordID, query string, pageSize int, debug bool) (map[string]highlight.Payload, error)
}

// PageCursor iterates over fetched pages. Close must always be called.
type PageCursor interface {
	Next() bool
	Page() *core.Page
	Err() error
	Close() error
}

// PageStore gives read access to stored pages. Only annotations of the
// requested types are loaded, all of them when types is empty.
type PageStore interface {
	FetchPages(ctx context.Context, datasetID, localID string, keys []string, types []core.Granularity) (PageCursor, error)
	PageExists(ctx context.Context, datasetID, localID, pageID string, types []core.Granularity) (bool, error)
}

// Options configures a Service.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// MergeDistance is the largest gap, in characters, between two hits of
	// a snippet that are merged into one. Negative disables merging.
	MergeDistance int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		DefaultPageSize: 12,
		MaxPageSize:     100,
		MergeDistance:   highlight.DefaultMergeDistance,
	}
}

// Service searches records. It is safe for concurrent use.
type Service struct {
	engine Engine
	store  PageStore
	parser *highlight.Parser
	opts   Options
	logger *log.Logger
}

// NewService creates a search service on top of an engine and a page store.
func NewService(engine Engine, store PageStore, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = defaults.DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = defaults.MaxPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return &Service{
		engine: engine,
		store:  store,
		parser: highlight.NewParser(opts.MergeDistance),
		opts:   opts,
		logger: log.ForService("search"),
	}
}

// Options returns the effective options of the service.
func (s *Service) Options() Options {
	return s.opts
}

// PageSize returns the number of items a request for requested items will
// return at most.
func (s *Service) PageSize(requested int) int {
	if requested <= 0 {
		return s.opts.DefaultPageSize
	}
	if requested > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return requested
}

// pageHits are the hits found by the engine on one page.
type pageHits struct {
	key  string
	hits []core.EngineHit
}

// SearchIssue searches rec for params.Query and returns at most PageSize
// matched annotations in engine order.
func (s *Service) SearchIssue(ctx context.Context, rec core.RecordID, params SearchParams) (*core.SearchResult, error) {
	start := time.Now()
	pageSize := s.PageSize(params.PageSize)
	result := core.NewSearchResult(uuid.NewString(), params.Debug)

	payloads, err := s.engine.Query(ctx, rec, params.Query, pageSize, params.Debug)
	if err != nil {
		return nil, fmt.Errorf("querying engine for %s: %w", rec, err)
	}

	grouped, err := s.parsePayloads(payloads, result)
	if err != nil {
		return nil, fmt.Errorf("parsing engine response for %s: %w", rec, err)
	}

	if len(grouped) == 0 {
		exists, err := s.store.PageExists(ctx, rec.DatasetID, rec.LocalID, "1", nil)
		if err != nil {
			return nil, fmt.Errorf("checking record %s: %w", rec, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, rec)
		}
		s.logger.Debugf("no hits for %q in %s", params.Query, rec)
		return result, nil
	}

	if err := s.matchPages(ctx, rec, grouped, params.Types, pageSize, result); err != nil {
		return nil, err
	}

	s.logger.Infof("searched %q in %s: %d items in %v", params.Query, rec, result.ItemCount(), time.Since(start))
	return result, nil
}

// parsePayloads parses every payload, in key order, and groups the hits by
// page key in the order pages first appear. Engines that rank across
// languages return a single payload so their order is kept.
func (s *Service) parsePayloads(payloads map[string]highlight.Payload, result *core.SearchResult) ([]*pageHits, error) {
	langs := make([]string, 0, len(payloads))
	for lang := range payloads {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	var grouped []*pageHits
	byKey := make(map[string]*pageHits)
	for _, lang := range langs {
		hits, stats, err := s.parser.Parse(payloads[lang])
		if err != nil {
			return nil, fmt.Errorf("payload %q: %w", lang, err)
		}
		result.Diagnostics.SkippedSnippets += stats.Skipped
		result.Diagnostics.MergedHits += stats.Merged

		for _, hit := range hits {
			result.AddSnippet(hit)
			ph, ok := byKey[hit.PageKey]
			if !ok {
				ph = &pageHits{key: hit.PageKey}
				byKey[hit.PageKey] = ph
				grouped = append(grouped, ph)
			}
			ph.hits = append(ph.hits, hit)
		}
	}
	return grouped, nil
}

func (s *Service) matchPages(ctx context.Context, rec core.RecordID, grouped []*pageHits, types []core.Granularity, pageSize int, result *core.SearchResult) error {
	keys := make([]string, len(grouped))
	byKey := make(map[string]*pageHits, len(grouped))
	for i, ph := range grouped {
		keys[i] = ph.key
		byKey[ph.key] = ph
	}

	cursor, err := s.store.FetchPages(ctx, rec.DatasetID, rec.LocalID, keys, types)
	if err != nil {
		return fmt.Errorf("fetching pages of %s: %w", rec, err)
	}
	defer func() {
		if err := cursor.Close(); err != nil {
			s.logger.Warnf("failed to close page cursor: %v", err)
		}
	}()

	pages := 0
	for result.ItemCount() < pageSize && cursor.Next() {
		page := cursor.Page()
		pages++
		ph, ok := byKey[page.PageKey]
		if !ok {
			s.logger.Warnf("store returned page %s of %s that the engine did not report", page.PageKey, rec)
			continue
		}

		pageStart := time.Now()
		before := result.ItemCount()
		for _, hit := range ph.hits {
			if result.ItemCount() >= pageSize {
				break
			}
			located := match.Locate(hit, page.FullText, pageSize)
			if len(located) == 0 {
				result.Diagnostics.UnlocatedHits++
				s.logger.Debugf("hit %v not found in the text of page %s", hit, page.PageKey)
				continue
			}
			for _, lh := range located {
				if result.ItemCount() >= pageSize {
					break
				}
				match.Annotations(lh, page, types, result, pageSize)
			}
		}
		if result.ItemCount() == before {
			result.Diagnostics.EmptyPages++
		}
		s.logger.Debugf("page %s: %d hits, %d new items in %v", page.PageKey, len(ph.hits), result.ItemCount()-before, time.Since(pageStart))
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("reading pages of %s: %w", rec, err)
	}
	if pages == 0 {
		return fmt.Errorf("%w: %s has none of the pages %v", ErrRecordNotFound, rec, keys)
	}
	return nil
}
