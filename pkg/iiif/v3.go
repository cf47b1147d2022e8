package iiif

import "github.com/rubiojr/fulltext/pkg/core"

type SearchResultV3 struct {
	Context []string       `json:"@context"`
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Items   []AnnotationV3 `json:"items"`
	Hits    []HitV3        `json:"hits"`
	Debug   *Debug         `json:"debug,omitempty"`
}

type AnnotationV3 struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Motivation string           `json:"motivation"`
	DCType     string           `json:"dcType"`
	Body       AnnotationBodyV3 `json:"body"`
	Target     []string         `json:"target"`
}

type AnnotationBodyV3 struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Source   string `json:"source,omitempty"`
	Language string `json:"language,omitempty"`
}

type HitV3 struct {
	Type        string       `json:"type"`
	Annotations []string     `json:"annotations"`
	Selectors   []SelectorV3 `json:"selectors"`
}

type SelectorV3 struct {
	Type   string `json:"type"`
	Prefix string `json:"prefix,omitempty"`
	Exact  string `json:"exact"`
	Suffix string `json:"suffix,omitempty"`
}

func (s Settings) mapV3(result *core.SearchResult, q Query) *SearchResultV3 {
	out := &SearchResultV3{
		Context: []string{ContextSearchV1, ContextPresentationV3},
		ID:      s.searchID(q),
		Type:    "AnnotationPage",
		Items:   []AnnotationV3{},
		Hits:    []HitV3{},
		Debug:   debugSection(result),
	}
	for _, item := range result.Items() {
		id := s.annotationID(item.Page, item.Annotation)
		anno := AnnotationV3{
			ID:         id,
			Type:       "Annotation",
			Motivation: motivationV3,
			DCType:     item.Annotation.Granularity.Name(),
			Body:       AnnotationBodyV3{ID: s.resourceID(item.Page, item.Annotation)},
			Target:     targets(item.Page, item.Annotation),
		}
		if item.Annotation.Language != "" {
			anno.Body.Type = "SpecificResource"
			anno.Body.Source = s.resourceBase(item.Page)
			anno.Body.Language = item.Annotation.Language
		}
		out.Items = append(out.Items, anno)

		for _, h := range item.Highlights {
			out.Hits = append(out.Hits, HitV3{
				Type:        "Hit",
				Annotations: []string{id},
				Selectors: []SelectorV3{{
					Type:   "TextQuoteSelector",
					Prefix: h.Selector.Prefix,
					Exact:  h.Selector.Exact,
					Suffix: h.Selector.Suffix,
				}},
			})
		}
	}
	return out
}
