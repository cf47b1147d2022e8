// Package iiif renders search results as IIIF Content Search responses, in
// either the Presentation API 2 or 3 flavour.
package iiif

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rubiojr/fulltext/pkg/core"
)

// Version is the IIIF Presentation API version of a response.
type Version int

const (
	V2 Version = 2
	V3 Version = 3
)

const (
	ContextPresentationV2 = "http://iiif.io/api/presentation/2/context.json"
	ContextPresentationV3 = "http://iiif.io/api/presentation/3/context.json"
	ContextSearchV1       = "http://iiif.io/api/search/1/context.json"

	MediaTypeV2 = `application/ld+json;profile="` + ContextPresentationV2 + `"`
	MediaTypeV3 = `application/ld+json;profile="` + ContextPresentationV3 + `"`

	motivationV2 = "sc:painting"
	motivationV3 = "transcribing"
)

// ParseVersion accepts "2", "3" or "" (3).
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "", "3":
		return V3, nil
	case "2":
		return V2, nil
	}
	return 0, fmt.Errorf("unsupported format %q, expected 2 or 3", s)
}

// MediaType returns the Content-Type of responses in version v.
func (v Version) MediaType() string {
	if v == V2 {
		return MediaTypeV2
	}
	return MediaTypeV3
}

// Query describes the request a response answers, used to build its id.
type Query struct {
	Record   core.RecordID
	Text     string
	PageSize int
	Types    []core.Granularity
}

// Mapper builds responses from search results.
type Mapper struct {
	settings *SettingsHolder
}

// NewMapper creates a mapper reading its settings from holder on every call.
func NewMapper(holder *SettingsHolder) *Mapper {
	return &Mapper{settings: holder}
}

// Map renders result in version v. The returned value marshals to JSON.
func (m *Mapper) Map(result *core.SearchResult, q Query, v Version) any {
	s := m.settings.Load()
	if v == V2 {
		return s.mapV2(result, q)
	}
	return s.mapV3(result, q)
}

func (s Settings) searchID(q Query) string {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.PageSize > 0 {
		params.Set("pageSize", fmt.Sprint(q.PageSize))
	}
	if len(q.Types) > 0 {
		names := make([]string, len(q.Types))
		for i, g := range q.Types {
			names[i] = g.Name()
		}
		params.Set("textGranularity", strings.Join(names, ","))
	}
	return s.SearchBaseURL + q.Record.DatasetID + "/" + q.Record.LocalID + "/search?" + params.Encode()
}

func (s Settings) annotationID(page core.PageRef, anno core.Annotation) string {
	return s.AnnotationBaseURL + page.DatasetID + "/" + page.LocalID + s.AnnotationDirectory + anno.ID
}

// AnnoPageID returns the id of the annotation page of page.
func (s Settings) AnnoPageID(page core.PageRef) string {
	return s.AnnoPageBaseURL + page.DatasetID + "/" + page.LocalID + s.AnnoPageDirectory + page.PageID
}

func (s Settings) resourceBase(page core.PageRef) string {
	return s.ResourceBaseURL + page.DatasetID + "/" + page.LocalID + "/" + page.ResourceID
}

func (s Settings) resourceID(page core.PageRef, anno core.Annotation) string {
	if anno.Span == nil {
		return s.resourceBase(page)
	}
	return fmt.Sprintf("%s#char=%d,%d", s.resourceBase(page), anno.Span.From, anno.Span.To)
}

func targets(page core.PageRef, anno core.Annotation) []string {
	out := make([]string, 0, len(anno.Targets))
	for _, t := range anno.Targets {
		out = append(out, fmt.Sprintf("%s#xywh=%d,%d,%d,%d", page.PageKey, t.X, t.Y, t.W, t.H))
	}
	return out
}

// Debug is the optional debug section of a response.
type Debug struct {
	EngineHits  []string         `json:"engineHits"`
	Hits        []string         `json:"hits"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
}

func debugSection(result *core.SearchResult) *Debug {
	if !result.Debug {
		return nil
	}
	d := &Debug{
		EngineHits:  []string{},
		Hits:        []string{},
		Diagnostics: result.Diagnostics,
	}
	for _, h := range result.Snippets() {
		d.EngineHits = append(d.EngineHits, h.String())
	}
	for _, h := range result.Hits() {
		d.Hits = append(d.Hits, h.String())
	}
	return d
}
