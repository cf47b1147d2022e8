package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rubiojr/fulltext/pkg/core"
)

// SearchParams represents all parameters of a search within one record.
type SearchParams struct {
	// Query is the free text to search for. Required.
	Query string

	// PageSize is the maximum number of items returned. Values <= 0 select
	// the configured default; larger values are capped at the configured
	// maximum.
	PageSize int

	// Types limits matching to these annotation granularities. Empty means
	// all of them.
	Types []core.Granularity

	// Debug keeps the engine snippets and located hits in the result.
	Debug bool
}

// ParseSearchParams parses HTTP query parameters into SearchParams.
//
// Supported parameters:
//   - q or query: search text (required)
//   - pageSize: positive integer
//   - textGranularity: comma separated granularities, e.g. "Line,Word"
//   - debug: any value but "false" or "0" enables debug output
func ParseSearchParams(queryParams map[string][]string) (SearchParams, error) {
	var params SearchParams

	params.Query = strings.TrimSpace(first(queryParams, "q"))
	if params.Query == "" {
		params.Query = strings.TrimSpace(first(queryParams, "query"))
	}
	if params.Query == "" {
		return params, fmt.Errorf("%w: missing query", ErrInvalidParams)
	}

	if ps := first(queryParams, "pageSize"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n <= 0 {
			return params, fmt.Errorf("%w: pageSize must be a positive integer, got %q", ErrInvalidParams, ps)
		}
		params.PageSize = n
	}

	types, err := core.ParseGranularities(first(queryParams, "textGranularity"))
	if err != nil {
		return params, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	params.Types = types

	if d, ok := queryParams["debug"]; ok {
		params.Debug = len(d) == 0 || (d[0] != "false" && d[0] != "0")
	}

	return params, nil
}

func first(queryParams map[string][]string, name string) string {
	if v := queryParams[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}
