// Package highlight turns search engine highlight payloads into engine hits.
//
// A payload holds one snippet per matching page, formatted as
//
//	{pageKey} some text with <em>marked</em> terms
//
// optionally with a parallel list of passages carrying the match offsets in
// the engine's own, document-global, coordinate space. Parsing a payload:
//
//  1. strips the "{pageKey} " prefix (StripPageKey)
//  2. extracts the marked spans with one character of context on each side
//     (ParseSnippet)
//  3. rebases engine offsets onto the snippet when present (ParseOffsetList,
//     Rebase)
//  4. merges hits separated by at most a few characters (MergeHits)
//
// The result is a flat list of core.EngineHit values in engine order. Nothing
// here knows about pages or annotations; locating hits in the canonical page
// text happens in package match.
package highlight
