package iiif

import "github.com/rubiojr/fulltext/pkg/core"

type SearchResultV2 struct {
	Context   []string       `json:"@context"`
	ID        string         `json:"@id"`
	Type      string         `json:"@type"`
	Resources []AnnotationV2 `json:"resources"`
	Hits      []HitV2        `json:"hits"`
	Debug     *Debug         `json:"debug,omitempty"`
}

type AnnotationV2 struct {
	ID         string           `json:"@id"`
	Type       string           `json:"@type"`
	Motivation string           `json:"motivation"`
	DCType     string           `json:"dcType"`
	Resource   AnnotationBodyV2 `json:"resource"`
	On         []string         `json:"on"`
}

type AnnotationBodyV2 struct {
	ID       string `json:"@id"`
	Full     string `json:"full,omitempty"`
	Language string `json:"language,omitempty"`
}

type HitV2 struct {
	Type        string       `json:"@type"`
	Annotations []string     `json:"annotations"`
	Selectors   []SelectorV2 `json:"selectors"`
}

type SelectorV2 struct {
	Type   string `json:"@type"`
	Prefix string `json:"prefix,omitempty"`
	Exact  string `json:"exact"`
	Suffix string `json:"suffix,omitempty"`
}

func (s Settings) mapV2(result *core.SearchResult, q Query) *SearchResultV2 {
	out := &SearchResultV2{
		Context:   []string{ContextPresentationV2, ContextSearchV1},
		ID:        s.searchID(q),
		Type:      "sc:AnnotationList",
		Resources: []AnnotationV2{},
		Hits:      []HitV2{},
		Debug:     debugSection(result),
	}
	for _, item := range result.Items() {
		id := s.annotationID(item.Page, item.Annotation)
		anno := AnnotationV2{
			ID:         id,
			Type:       "oa:Annotation",
			Motivation: motivationV2,
			DCType:     item.Annotation.Granularity.Name(),
			Resource:   AnnotationBodyV2{ID: s.resourceID(item.Page, item.Annotation)},
			On:         targets(item.Page, item.Annotation),
		}
		if item.Annotation.Language != "" {
			anno.Resource.Full = s.resourceBase(item.Page)
			anno.Resource.Language = item.Annotation.Language
		}
		out.Resources = append(out.Resources, anno)

		for _, h := range item.Highlights {
			out.Hits = append(out.Hits, HitV2{
				Type:        "search:Hit",
				Annotations: []string{id},
				Selectors: []SelectorV2{{
					Type:   "oa:TextQuoteSelector",
					Prefix: h.Selector.Prefix,
					Exact:  h.Selector.Exact,
					Suffix: h.Selector.Suffix,
				}},
			})
		}
	}
	return out
}
