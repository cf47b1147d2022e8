// Package loader imports annotation pages from JSON documents.
//
// A document is either one page object or an array of them:
//
//	{
//	  "datasetId": "9200396",
//	  "localId": "BibliographicResource_3000118435009",
//	  "pageId": "1",
//	  "pageKey": "https://iiif.europeana.eu/image/abc/presentation_images/1.jp2",
//	  "resourceId": "5d2f4b0c",
//	  "language": "de",
//	  "text": "Aus der 49. Verlustliste.",
//	  "annotations": [
//	    {"id": "a1", "type": "W", "from": 0, "to": 3, "targets": [{"x": 10, "y": 20, "w": 40, "h": 12}]}
//	  ]
//	}
//
// Annotation ids are generated when missing. Languages must be valid BCP 47
// tags and are stored in canonical form.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/highlight"
	"github.com/rubiojr/fulltext/pkg/log"
	"golang.org/x/text/language"
)

// DefaultBatchSize is the number of pages stored per transaction.
const DefaultBatchSize = 50

// ErrInvalidDocument is returned for documents that cannot be imported.
var ErrInvalidDocument = errors.New("invalid page document")

// PageSaver stores pages.
type PageSaver interface {
	SavePages(ctx context.Context, pages []*core.Page) error
}

// AnnotationDoc is the JSON form of an annotation.
type AnnotationDoc struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	From     *int        `json:"from,omitempty"`
	To       *int        `json:"to,omitempty"`
	Targets  []core.Rect `json:"targets,omitempty"`
	Language string      `json:"language,omitempty"`
}

// PageDoc is the JSON form of a page.
type PageDoc struct {
	DatasetID   string          `json:"datasetId"`
	LocalID     string          `json:"localId"`
	PageID      string          `json:"pageId"`
	PageKey     string          `json:"pageKey"`
	ResourceID  string          `json:"resourceId"`
	Language    string          `json:"language,omitempty"`
	Text        string          `json:"text"`
	Annotations []AnnotationDoc `json:"annotations"`
}

// Loader reads page documents and saves them in batches.
type Loader struct {
	store     PageSaver
	BatchSize int
	// Workers is the number of files LoadFiles decodes concurrently.
	Workers int
	logger  *log.Logger
}

// New creates a loader saving into store.
func New(store PageSaver) *Loader {
	return &Loader{
		store:     store,
		BatchSize: DefaultBatchSize,
		Workers:   max(runtime.NumCPU()/2, 1),
		logger:    log.ForService("loader"),
	}
}

// FileResult is the outcome of loading one file.
type FileResult struct {
	Path  string
	Pages int
}

type decoded struct {
	pages []*core.Page
	err   error
}

// LoadFiles decodes paths concurrently and saves their pages in path order.
// It stops at the first file that fails to decode or save and returns the
// files saved before it.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	pool, err := ants.NewPool(max(l.Workers, 1))
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]decoded, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i].pages, results[i].err = l.decodeFile(path)
		})
		if err != nil {
			wg.Done()
			results[i].err = fmt.Errorf("scheduling %s: %w", path, err)
		}
	}
	wg.Wait()

	var loaded []FileResult
	for i, path := range paths {
		if results[i].err != nil {
			return loaded, results[i].err
		}
		n, err := l.save(ctx, results[i].pages)
		if err != nil {
			return loaded, fmt.Errorf("loading %s (after %d pages): %w", path, n, err)
		}
		loaded = append(loaded, FileResult{Path: path, Pages: n})
		l.logger.Debugf("loaded %d pages from %s", n, path)
	}
	return loaded, nil
}

func (l *Loader) decodeFile(path string) ([]*core.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			l.logger.Warnf("failed to close %s: %v", path, err)
		}
	}()

	pages, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return pages, nil
}

// LoadFile imports the pages of a JSON file and returns how many were saved.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			l.logger.Warnf("failed to close %s: %v", path, err)
		}
	}()

	n, err := l.Load(ctx, f)
	if err != nil {
		return n, fmt.Errorf("loading %s: %w", path, err)
	}
	return n, nil
}

// Load imports the pages read from r. Pages are converted and validated
// before anything is saved.
func (l *Loader) Load(ctx context.Context, r io.Reader) (int, error) {
	pages, err := Decode(r)
	if err != nil {
		return 0, err
	}
	return l.save(ctx, pages)
}

func (l *Loader) save(ctx context.Context, pages []*core.Page) (int, error) {
	batchSize := l.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	saved := 0
	for start := 0; start < len(pages); start += batchSize {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		end := min(start+batchSize, len(pages))
		if err := l.store.SavePages(ctx, pages[start:end]); err != nil {
			return saved, fmt.Errorf("saving pages %d-%d: %w", start, end-1, err)
		}
		saved += end - start
		l.logger.Debugf("saved %d/%d pages", saved, len(pages))
	}
	return saved, nil
}

// Decode parses a page document or an array of them into validated pages.
func Decode(r io.Reader) ([]*core.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	var docs []PageDoc
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &docs)
	} else {
		var doc PageDoc
		err = json.Unmarshal(data, &doc)
		docs = []PageDoc{doc}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	pages := make([]*core.Page, 0, len(docs))
	for i, doc := range docs {
		page, err := doc.Page()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Page converts the document into a validated page.
func (d PageDoc) Page() (*core.Page, error) {
	lang, err := canonicalLanguage(d.Language)
	if err != nil {
		return nil, err
	}
	if highlight.ContainsControlMarkers(d.Text) {
		return nil, fmt.Errorf("%w: page %s text contains STX/ETX control characters", ErrInvalidDocument, d.PageID)
	}
	page := &core.Page{
		DatasetID:  d.DatasetID,
		LocalID:    d.LocalID,
		PageID:     d.PageID,
		PageKey:    d.PageKey,
		ResourceID: d.ResourceID,
		Language:   lang,
		FullText:   d.Text,
	}

	textLen := page.TextLen()
	for j, ad := range d.Annotations {
		anno, err := ad.annotation(textLen)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", j, err)
		}
		page.Annotations = append(page.Annotations, anno)
	}

	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return page, nil
}

func (d AnnotationDoc) annotation(textLen int) (core.Annotation, error) {
	g, err := core.ParseGranularity(d.Type)
	if err != nil {
		return core.Annotation{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	lang, err := canonicalLanguage(d.Language)
	if err != nil {
		return core.Annotation{}, err
	}

	anno := core.Annotation{
		ID:          d.ID,
		Granularity: g,
		Targets:     d.Targets,
		Language:    lang,
	}
	if anno.ID == "" {
		anno.ID = uuid.NewString()
	}

	switch {
	case d.From != nil && d.To != nil:
		if *d.To > textLen {
			return core.Annotation{}, fmt.Errorf("%w: %s span [%d,%d) exceeds the text length %d", ErrInvalidDocument, anno.ID, *d.From, *d.To, textLen)
		}
		anno.Span = &core.Span{From: *d.From, To: *d.To}
	case d.From != nil || d.To != nil:
		return core.Annotation{}, fmt.Errorf("%w: %s needs both from and to", ErrInvalidDocument, anno.ID)
	}
	return anno, nil
}

// canonicalLanguage validates a BCP 47 tag, "" is accepted as unknown.
func canonicalLanguage(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %v", ErrInvalidDocument, s, err)
	}
	return tag.String(), nil
}
