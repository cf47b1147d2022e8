// Package search finds the annotations of a record that match a free text
// query.
//
// # Overview
//
// The search engine only knows about page texts. It answers a query with
// highlighted snippets and approximate offsets. This package turns that
// answer into exact character ranges inside each page full text and then
// into the word, line and block annotations those ranges overlap.
//
// # Pipeline
//
// A call to Service.SearchIssue runs these steps in order:
//
//   - Query the Engine for the record, one payload per language or one for all
//   - Parse the highlighted snippets into hits and merge neighbouring hits
//   - Group the hits by page key, keeping the engine order
//   - Fetch the pages named by the engine from the PageStore
//   - Locate every hit in its page full text and match annotations
//
// Matching stops as soon as the result holds PageSize items. The page
// cursor is closed on every path.
//
// # Record not found
//
// An empty engine answer is ambiguous: the record may exist without matching
// the query. The service checks whether page 1 of the record is stored and
// returns ErrRecordNotFound only when it is not.
//
// # Usage
//
//	service := search.NewService(engine, store, search.Options{
//		DefaultPageSize: 12,
//		MaxPageSize:     100,
//		MergeDistance:   2,
//	})
//	params, err := search.ParseSearchParams(r.URL.Query())
//	if err != nil {
//		// 400
//	}
//	result, err := service.SearchIssue(ctx, core.RecordID{DatasetID: "9200396", LocalID: "BibliographicResource_3000118435009"}, params)
//	if errors.Is(err, search.ErrRecordNotFound) {
//		// 404
//	}
//
// # Integration
//
//   - pkg/highlight: snippet parsing, offset rebasing and hit merging
//   - pkg/match: locating hits and matching annotations
//   - pkg/storage: the SQLite PageStore and FTS5 Engine
//   - pkg/api and cmd: callers
package search
