package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rubiojr/fulltext/pkg/core"
)

// pageRow is one row of the page/annotation join. Annotation columns are
// NULL for pages without (matching) annotations.
type pageRow struct {
	rowID      int64
	pageID     string
	pageKey    string
	resourceID string
	language   sql.NullString
	fullText   []byte

	annotationID sql.NullString
	dcType       sql.NullString
	from, to     sql.NullInt64
	targets      sql.NullString
	annoLanguage sql.NullString
}

// PageCursor iterates over fetched pages, one page per Next call. It reads
// one row ahead to find where a page ends. Close must always be called.
type PageCursor struct {
	rows      *sql.Rows
	codec     *textCodec
	datasetID string
	localID   string

	page      *core.Page
	lookahead *pageRow
	err       error
	done      bool
}

// Next advances to the next page. It returns false when the pages are
// exhausted or an error occurred, see Err.
func (c *PageCursor) Next() bool {
	if c.done || c.err != nil {
		return false
	}
	if c.lookahead == nil && !c.scan() {
		c.done = true
		return false
	}

	first := c.lookahead
	c.lookahead = nil
	page, err := c.newPage(first)
	if err != nil {
		c.err = err
		return false
	}
	if err := addAnnotation(page, first); err != nil {
		c.err = err
		return false
	}
	for c.scan() {
		if c.lookahead.rowID != first.rowID {
			break
		}
		if err := addAnnotation(page, c.lookahead); err != nil {
			c.err = err
			return false
		}
		c.lookahead = nil
	}
	if c.err != nil {
		return false
	}

	c.page = page
	return true
}

// Page returns the current page.
func (c *PageCursor) Page() *core.Page {
	return c.page
}

// Err returns the first error met while iterating.
func (c *PageCursor) Err() error {
	return c.err
}

// Close releases the underlying rows. It is safe to call more than once.
func (c *PageCursor) Close() error {
	c.done = true
	if c.rows == nil {
		return nil
	}
	return c.rows.Close()
}

// scan reads the next row into the lookahead.
func (c *PageCursor) scan() bool {
	if c.rows == nil || !c.rows.Next() {
		if c.rows != nil {
			c.err = c.rows.Err()
		}
		return false
	}
	var r pageRow
	if err := c.rows.Scan(&r.rowID, &r.pageID, &r.pageKey, &r.resourceID, &r.language, &r.fullText,
		&r.annotationID, &r.dcType, &r.from, &r.to, &r.targets, &r.annoLanguage); err != nil {
		c.err = fmt.Errorf("scanning row: %w", err)
		return false
	}
	c.lookahead = &r
	return true
}

func (c *PageCursor) newPage(r *pageRow) (*core.Page, error) {
	text, err := c.codec.decompress(r.fullText)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", r.pageID, err)
	}
	return &core.Page{
		DatasetID:  c.datasetID,
		LocalID:    c.localID,
		PageID:     r.pageID,
		PageKey:    r.pageKey,
		ResourceID: r.resourceID,
		Language:   r.language.String,
		FullText:   text,
	}, nil
}

func addAnnotation(page *core.Page, r *pageRow) error {
	if !r.annotationID.Valid {
		return nil
	}
	g, err := core.ParseGranularity(r.dcType.String)
	if err != nil {
		return fmt.Errorf("annotation %s of page %s: %w", r.annotationID.String, page.PageID, err)
	}
	anno := core.Annotation{
		ID:          r.annotationID.String,
		Granularity: g,
		Language:    r.annoLanguage.String,
	}
	if r.from.Valid && r.to.Valid {
		anno.Span = &core.Span{From: int(r.from.Int64), To: int(r.to.Int64)}
	}
	if r.targets.Valid && r.targets.String != "" {
		if err := json.Unmarshal([]byte(r.targets.String), &anno.Targets); err != nil {
			return fmt.Errorf("unmarshaling targets of %s: %w", anno.ID, err)
		}
	}
	page.Annotations = append(page.Annotations, anno)
	return nil
}
