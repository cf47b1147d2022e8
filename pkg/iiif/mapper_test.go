package iiif

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rubiojr/fulltext/pkg/core"
)

func testSettings() Settings {
	return Settings{
		ResourceBaseURL:     "https://www.example.org/presentation/",
		AnnoPageBaseURL:     "https://iiif.example.org/presentation/",
		AnnotationBaseURL:   "https://iiif.example.org/presentation/",
		SearchBaseURL:       "https://iiif.example.org/presentation/",
		AnnoPageDirectory:   "/annopage/",
		AnnotationDirectory: "/anno/",
	}
}

func testResult(debug bool) *core.SearchResult {
	page := &core.Page{
		DatasetID:  "9200396",
		LocalID:    "BibliographicResource_3000118435009",
		PageID:     "1",
		PageKey:    "https://iiif.example.org/img1",
		ResourceID: "res1",
		FullText:   "Aus der 49. Verlustliste.",
	}
	line := core.Annotation{
		ID:          "l1",
		Granularity: core.GranularityLine,
		Span:        &core.Span{From: 0, To: 25},
		Targets:     []core.Rect{{X: 10, Y: 20, W: 300, H: 40}},
	}
	word := core.Annotation{
		ID:          "w1",
		Granularity: core.GranularityWord,
		Span:        &core.Span{From: 0, To: 3},
		Targets:     []core.Rect{{X: 10, Y: 20, W: 30, H: 40}},
		Language:    "de",
	}
	hit := core.LocatedHit{
		PageKey:  page.PageKey,
		Start:    0,
		End:      3,
		Selector: core.Selector{Exact: "Aus", Suffix: " "},
	}

	r := core.NewSearchResult("id", debug)
	r.AddAnnotationHit(page, line, &hit)
	r.AddAnnotationHit(page, word, nil)
	r.AddHit(hit)
	r.AddSnippet(core.EngineHit{PageKey: page.PageKey, Exact: "Aus"})
	return r
}

func testQuery() Query {
	return Query{
		Record: core.RecordID{DatasetID: "9200396", LocalID: "BibliographicResource_3000118435009"},
		Text:   "Aus der",
		Types:  []core.Granularity{core.GranularityLine, core.GranularityWord},
	}
}

func TestMapV3(t *testing.T) {
	m := NewMapper(NewSettingsHolder(testSettings()))
	out, ok := m.Map(testResult(false), testQuery(), V3).(*SearchResultV3)
	if !ok {
		t.Fatalf("Map returned %T", out)
	}

	wantID := "https://iiif.example.org/presentation/9200396/BibliographicResource_3000118435009/search?q=Aus+der&textGranularity=Line%2CWord"
	if out.ID != wantID {
		t.Errorf("id = %s, want %s", out.ID, wantID)
	}
	if out.Type != "AnnotationPage" {
		t.Errorf("type = %s", out.Type)
	}
	if len(out.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(out.Items))
	}

	line := out.Items[0]
	if line.ID != "https://iiif.example.org/presentation/9200396/BibliographicResource_3000118435009/anno/l1" {
		t.Errorf("line id = %s", line.ID)
	}
	if line.Motivation != "transcribing" || line.DCType != "Line" {
		t.Errorf("line motivation/dcType = %s/%s", line.Motivation, line.DCType)
	}
	if line.Body.ID != "https://www.example.org/presentation/9200396/BibliographicResource_3000118435009/res1#char=0,25" {
		t.Errorf("line body = %s", line.Body.ID)
	}
	if line.Body.Type != "" || line.Body.Language != "" {
		t.Errorf("line body without language should be plain, got %+v", line.Body)
	}
	if len(line.Target) != 1 || line.Target[0] != "https://iiif.example.org/img1#xywh=10,20,300,40" {
		t.Errorf("line target = %v", line.Target)
	}

	word := out.Items[1]
	if word.Body.Type != "SpecificResource" || word.Body.Language != "de" {
		t.Errorf("word body = %+v", word.Body)
	}
	if word.Body.Source != "https://www.example.org/presentation/9200396/BibliographicResource_3000118435009/res1" {
		t.Errorf("word body source = %s", word.Body.Source)
	}

	if len(out.Hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(out.Hits))
	}
	h := out.Hits[0]
	if h.Type != "Hit" || len(h.Annotations) != 1 || h.Annotations[0] != line.ID {
		t.Errorf("hit = %+v", h)
	}
	if h.Selectors[0].Type != "TextQuoteSelector" || h.Selectors[0].Exact != "Aus" || h.Selectors[0].Suffix != " " {
		t.Errorf("selector = %+v", h.Selectors[0])
	}
	if out.Debug != nil {
		t.Error("debug section present without debug mode")
	}
}

func TestMapV2(t *testing.T) {
	m := NewMapper(NewSettingsHolder(testSettings()))
	out, ok := m.Map(testResult(false), testQuery(), V2).(*SearchResultV2)
	if !ok {
		t.Fatalf("Map returned %T", out)
	}
	if out.Type != "sc:AnnotationList" {
		t.Errorf("type = %s", out.Type)
	}
	if len(out.Resources) != 2 {
		t.Fatalf("got %d resources, want 2", len(out.Resources))
	}
	line := out.Resources[0]
	if line.Type != "oa:Annotation" || line.Motivation != "sc:painting" {
		t.Errorf("line = %+v", line)
	}
	if line.On[0] != "https://iiif.example.org/img1#xywh=10,20,300,40" {
		t.Errorf("line on = %v", line.On)
	}
	word := out.Resources[1]
	if word.Resource.Language != "de" || word.Resource.Full == "" {
		t.Errorf("word resource = %+v", word.Resource)
	}
	if len(out.Hits) != 1 || out.Hits[0].Type != "search:Hit" || out.Hits[0].Selectors[0].Type != "oa:TextQuoteSelector" {
		t.Errorf("hits = %+v", out.Hits)
	}
}

func TestMapDebugSection(t *testing.T) {
	m := NewMapper(NewSettingsHolder(testSettings()))
	out := m.Map(testResult(true), testQuery(), V3).(*SearchResultV3)
	if out.Debug == nil {
		t.Fatal("missing debug section")
	}
	if len(out.Debug.EngineHits) != 1 || len(out.Debug.Hits) != 1 {
		t.Errorf("debug = %+v", out.Debug)
	}
}

func TestMapEmptyResultMarshalsArrays(t *testing.T) {
	m := NewMapper(NewSettingsHolder(testSettings()))
	for _, v := range []Version{V2, V3} {
		data, err := json.Marshal(m.Map(core.NewSearchResult("id", false), testQuery(), v))
		if err != nil {
			t.Fatalf("v%d: %v", v, err)
		}
		if !strings.Contains(string(data), `"hits":[]`) {
			t.Errorf("v%d: hits not an empty array: %s", v, data)
		}
		if strings.Contains(string(data), "debug") {
			t.Errorf("v%d: unexpected debug section: %s", v, data)
		}
	}
}

func TestSettingsHolderReload(t *testing.T) {
	holder := NewSettingsHolder(testSettings())
	m := NewMapper(holder)

	s := testSettings()
	s.AnnotationBaseURL = "http://localhost/"
	holder.Store(s)

	out := m.Map(testResult(false), testQuery(), V3).(*SearchResultV3)
	if !strings.HasPrefix(out.Items[0].ID, "http://localhost/") {
		t.Errorf("settings not reloaded: %s", out.Items[0].ID)
	}
}

func TestParseVersion(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    Version
		wantErr bool
	}{
		"default": {in: "", want: V3},
		"v2":      {in: "2", want: V2},
		"v3":      {in: "3", want: V3},
		"invalid": {in: "4", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPageAnnotationHasNoCharFragment(t *testing.T) {
	s := testSettings()
	ref := core.PageRef{DatasetID: "ds", LocalID: "lc", PageID: "1", ResourceID: "r"}
	got := s.resourceID(ref, core.Annotation{ID: "p", Granularity: core.GranularityPage})
	if got != "https://www.example.org/presentation/ds/lc/r" {
		t.Errorf("resource id = %s", got)
	}
	if s.AnnoPageID(ref) != "https://iiif.example.org/presentation/ds/lc/annopage/1" {
		t.Errorf("annopage id = %s", s.AnnoPageID(ref))
	}
}
