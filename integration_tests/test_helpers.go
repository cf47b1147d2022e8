package integration_tests

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rubiojr/fulltext/pkg/api"
	"github.com/rubiojr/fulltext/pkg/config"
	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/loader"
	"github.com/rubiojr/fulltext/pkg/search"
	"github.com/rubiojr/fulltext/pkg/storage"
)

// testPage is one page of the test corpus. Words get annotations by
// position, each line of text gets a line annotation.
type testPage struct {
	dataset, local, pageID, key, text string
}

var corpus = []testPage{
	{"9200396", "issue1", "1", "img1", "Aus der 49. Verlustliste.\nKommandowechsel bei der Flotte."},
	{"9200396", "issue1", "2", "img2", "Erich (Berlin) tot. Paul (Berlin) verwundet."},
	{"9200396", "issue2", "1", "img3", "Berlin im Winter"},
	{"9200338", "issue1", "1", "img4", "Grüße aus Köln und Berlin"},
}

// CreateTestConfig returns a configuration storing databases in tempDir.
func CreateTestConfig(tempDir string) *config.Config {
	cfg := &config.Config{StorageDir: tempDir}
	cfg.Presentation = config.DefaultPresentation()
	cfg.Search.DefaultPageSize = config.DefaultPageSize
	cfg.Search.MaxPageSize = config.DefaultMaxPageSize
	return cfg
}

// pageJSON renders p in the loader format.
func pageJSON(p testPage) string {
	var annos []string
	runes := []rune(p.text)
	lineStart, wordStart := 0, -1
	seq := 0
	flushWord := func(end int) {
		if wordStart >= 0 {
			seq++
			annos = append(annos, fmt.Sprintf(`{"id": "w%d", "type": "Word", "from": %d, "to": %d, "targets": [{"x": %d, "y": 0, "w": 10, "h": 10}]}`,
				seq, wordStart, end, wordStart*10))
			wordStart = -1
		}
	}
	for i, r := range runes {
		switch {
		case r == '\n':
			flushWord(i)
			annos = append(annos, fmt.Sprintf(`{"id": "l%d", "type": "Line", "from": %d, "to": %d}`, lineStart, lineStart, i))
			lineStart = i + 1
		case r == ' ':
			flushWord(i)
		default:
			if wordStart < 0 {
				wordStart = i
			}
		}
	}
	flushWord(len(runes))
	annos = append(annos, fmt.Sprintf(`{"id": "l%d", "type": "Line", "from": %d, "to": %d}`, lineStart, lineStart, len(runes)))

	text := strings.ReplaceAll(p.text, "\n", `\n`)
	return fmt.Sprintf(`{"datasetId": %q, "localId": %q, "pageId": %q, "pageKey": %q, "resourceId": "r%s", "language": "de", "text": "%s", "annotations": [%s]}`,
		p.dataset, p.local, p.pageID, p.key, p.pageID, text, strings.Join(annos, ", "))
}

// loadCorpus writes the corpus as a JSON file and loads it into a fresh
// storage manager.
func loadCorpus(t *testing.T) *storage.Manager {
	t.Helper()
	tempDir := t.TempDir()

	var docs []string
	for _, p := range corpus {
		docs = append(docs, pageJSON(p))
	}
	file := filepath.Join(tempDir, "corpus.json")
	if err := os.WriteFile(file, []byte("["+strings.Join(docs, ",\n")+"]"), 0o644); err != nil {
		t.Fatalf("failed to write corpus: %v", err)
	}

	manager := storage.NewManager(filepath.Join(tempDir, "db"))
	t.Cleanup(func() {
		if err := manager.Close(); err != nil {
			t.Errorf("failed to close manager: %v", err)
		}
	})

	n, err := loader.New(manager).LoadFile(context.Background(), file)
	if err != nil {
		t.Fatalf("failed to load corpus: %v", err)
	}
	if n != len(corpus) {
		t.Fatalf("expected %d pages loaded, got %d", len(corpus), n)
	}
	return manager
}

// newHandler wires the API the way the serve command does.
func newHandler(cfg *config.Config, manager *storage.Manager) http.Handler {
	service := search.NewService(manager, manager, search.Options{
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		MergeDistance:   cfg.MergeDistance(),
	})
	p := cfg.Presentation
	settings := iiif.NewSettingsHolder(iiif.Settings{
		ResourceBaseURL:     p.ResourceBaseURL,
		AnnoPageBaseURL:     p.AnnoPageBaseURL,
		AnnotationBaseURL:   p.AnnotationBaseURL,
		SearchBaseURL:       p.SearchBaseURL,
		AnnoPageDirectory:   p.AnnoPageDirectory,
		AnnotationDirectory: p.AnnotationDirectory,
	})
	server := api.NewServer(service, manager, iiif.NewMapper(settings), 0)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	return api.CorsMiddleware(mux)
}
