package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/highlight"
	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/search"
	"github.com/rubiojr/fulltext/pkg/storage"
)

func testSettings() iiif.Settings {
	return iiif.Settings{
		ResourceBaseURL:     "https://www.example.org/presentation/",
		AnnoPageBaseURL:     "https://iiif.example.org/presentation/",
		AnnotationBaseURL:   "https://iiif.example.org/presentation/",
		SearchBaseURL:       "https://iiif.example.org/presentation/",
		AnnoPageDirectory:   "/annopage/",
		AnnotationDirectory: "/anno/",
	}
}

func testPages() []*core.Page {
	return []*core.Page{
		{
			DatasetID:  "ds",
			LocalID:    "lc",
			PageID:     "1",
			PageKey:    "img1",
			ResourceID: "r1",
			Language:   "de",
			FullText:   "Erich (Berlin) tot.",
			Annotations: []core.Annotation{
				{ID: "l1", Granularity: core.GranularityLine, Span: &core.Span{From: 0, To: 19}, Targets: []core.Rect{{X: 1, Y: 2, W: 300, H: 20}}},
				{ID: "w1", Granularity: core.GranularityWord, Span: &core.Span{From: 0, To: 5}},
				{ID: "w2", Granularity: core.GranularityWord, Span: &core.Span{From: 7, To: 13}, Targets: []core.Rect{{X: 60, Y: 2, W: 40, H: 20}}},
			},
		},
	}
}

func setupTestAPIServer(t *testing.T) *http.ServeMux {
	manager := storage.NewManager(t.TempDir())
	t.Cleanup(func() {
		if err := manager.Close(); err != nil {
			t.Errorf("Failed to close storage manager: %v", err)
		}
	})
	if err := manager.SavePages(context.Background(), testPages()); err != nil {
		t.Fatalf("Failed to save pages: %v", err)
	}

	service := search.NewService(manager, manager, search.DefaultOptions())
	return newMux(service, manager)
}

func newMux(service *search.Service, stats StatsProvider) *http.ServeMux {
	mapper := iiif.NewMapper(iiif.NewSettingsHolder(testSettings()))
	server := NewServer(service, stats, mapper, 5*time.Second)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	return mux
}

type brokenEngine struct{}

func (brokenEngine) Query(ctx context.Context, rec core.RecordID, query string, pageSize int, debug bool) (map[string]highlight.Payload, error) {
	return map[string]highlight.Payload{
		"de": {Snippets: []string{"(<em>Berlin</em>) without page key"}},
	}, nil
}

func TestAPISearch(t *testing.T) {
	mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/presentation/ds/lc/search?q=Berlin", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if contentType := w.Header().Get("Content-Type"); contentType != iiif.MediaTypeV3 {
		t.Errorf("Expected Content-Type %s, got %s", iiif.MediaTypeV3, contentType)
	}

	var resp iiif.SearchResultV3
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].DCType != "Line" || resp.Items[1].DCType != "Word" {
		t.Errorf("Unexpected items: %+v", resp.Items)
	}
	if resp.Items[1].Target[0] != "img1#xywh=60,2,40,20" {
		t.Errorf("Unexpected word target: %v", resp.Items[1].Target)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].Selectors[0].Exact != "Berlin" {
		t.Fatalf("Unexpected hits: %+v", resp.Hits)
	}
	sel := resp.Hits[0].Selectors[0]
	if sel.Prefix != "(" || sel.Suffix != ")" {
		t.Errorf("Unexpected selector: %+v", sel)
	}
}

func TestAPISearchV2(t *testing.T) {
	mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/presentation/ds/lc/search?q=Berlin&format=2&textGranularity=word", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if contentType := w.Header().Get("Content-Type"); contentType != iiif.MediaTypeV2 {
		t.Errorf("Expected Content-Type %s, got %s", iiif.MediaTypeV2, contentType)
	}

	var resp iiif.SearchResultV2
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Resources) != 1 || resp.Resources[0].DCType != "Word" {
		t.Fatalf("Expected only the word annotation, got %+v", resp.Resources)
	}
	if len(resp.Hits) != 0 {
		t.Errorf("Word annotations carry no hits, got %+v", resp.Hits)
	}
	if resp.Resources[0].Resource.Language != "" {
		t.Errorf("Unexpected language on resource: %+v", resp.Resources[0].Resource)
	}
}

func TestAPISearchStatus(t *testing.T) {
	mux := setupTestAPIServer(t)

	testCases := []struct {
		path           string
		expectedStatus int
	}{
		{"/presentation/ds/lc/search", http.StatusBadRequest},
		{"/presentation/ds/lc/search?q=Berlin&pageSize=abc", http.StatusBadRequest},
		{"/presentation/ds/lc/search?q=Berlin&textGranularity=Chapter", http.StatusBadRequest},
		{"/presentation/ds/lc/search?q=Berlin&format=4", http.StatusBadRequest},
		{"/presentation/ds/missing/search?q=Berlin", http.StatusNotFound},
		{"/presentation/nope/lc/search?q=Berlin", http.StatusNotFound},
		{"/presentation/ds/lc/search?q=Zeppelin", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected status %d for %s, got %d: %s", tc.expectedStatus, tc.path, w.Code, w.Body.String())
			}
		})
	}
}

func TestAPISearchMalformedEngineResponse(t *testing.T) {
	manager := storage.NewManager(t.TempDir())
	defer manager.Close()

	mux := newMux(search.NewService(brokenEngine{}, manager, search.DefaultOptions()), manager)

	req := httptest.NewRequest("GET", "/presentation/ds/lc/search?q=Berlin", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d: %s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if resp.Message == "" {
		t.Error("Expected an error message")
	}
}

func TestAPISearchDebug(t *testing.T) {
	mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/presentation/ds/lc/search?q=Berlin&debug=true", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"engineHits"`) {
		t.Errorf("Expected a debug section: %s", w.Body.String())
	}
}

func TestAPIStats(t *testing.T) {
	mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	ds, ok := resp.Datasets["ds"]
	if !ok || ds.Pages != 1 {
		t.Errorf("Unexpected stats: %+v", resp.Datasets)
	}
}

func TestAPIHealth(t *testing.T) {
	mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}
}

func TestAPIMethodNotAllowed(t *testing.T) {
	mux := setupTestAPIServer(t)

	testCases := []struct {
		method   string
		endpoint string
	}{
		{"POST", "/presentation/ds/lc/search"},
		{"PUT", "/presentation/ds/lc/search"},
		{"DELETE", "/presentation/ds/lc/search"},
		{"POST", "/api/stats"},
		{"POST", "/health"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+"_"+tc.endpoint, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.endpoint, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected status 405 for %s %s, got %d", tc.method, tc.endpoint, w.Code)
			}
		})
	}
}

func TestCorsMiddleware(t *testing.T) {
	handler := CorsMiddleware(setupTestAPIServer(t))

	req := httptest.NewRequest("OPTIONS", "/presentation/ds/lc/search", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS header")
	}
}
