package core

import (
	"fmt"
	"strings"
)

// Granularity is the level of an annotation inside a page.
type Granularity int

const (
	GranularityPage Granularity = iota + 1
	GranularityBlock
	GranularityLine
	GranularityWord
)

// AllGranularities lists every known granularity, coarse to fine.
var AllGranularities = []Granularity{GranularityPage, GranularityBlock, GranularityLine, GranularityWord}

// Code returns the single letter used to store the granularity (P, B, L or W).
func (g Granularity) Code() string {
	switch g {
	case GranularityPage:
		return "P"
	case GranularityBlock:
		return "B"
	case GranularityLine:
		return "L"
	case GranularityWord:
		return "W"
	}
	return ""
}

// Name returns the display name of the granularity as used in dcType fields.
func (g Granularity) Name() string {
	switch g {
	case GranularityPage:
		return "Page"
	case GranularityBlock:
		return "Block"
	case GranularityLine:
		return "Line"
	case GranularityWord:
		return "Word"
	}
	return "undefined"
}

func (g Granularity) String() string {
	return strings.ToUpper(g.Name())
}

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	return g >= GranularityPage && g <= GranularityWord
}

// ParseGranularity accepts a storage code ("W") or a name ("word", "WORD").
func ParseGranularity(s string) (Granularity, error) {
	v := strings.TrimSpace(s)
	for _, g := range AllGranularities {
		if strings.EqualFold(v, g.Code()) || strings.EqualFold(v, g.Name()) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

// ParseGranularities parses a comma separated list, e.g. "word,line".
// An empty input returns a nil slice, meaning no filter.
func ParseGranularities(s string) ([]Granularity, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []Granularity
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		g, err := ParseGranularity(part)
		if err != nil {
			return nil, err
		}
		if !ContainsGranularity(out, g) {
			out = append(out, g)
		}
	}
	return out, nil
}

// ContainsGranularity reports whether g is in types. An empty list contains everything.
func ContainsGranularity(types []Granularity, g Granularity) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == g {
			return true
		}
	}
	return false
}
