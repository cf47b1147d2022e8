package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/db"
	"github.com/rubiojr/fulltext/pkg/highlight"
	"github.com/rubiojr/fulltext/pkg/log"
)

var logger = log.ForService("storage")

// PageStorage stores the annotation pages of one dataset in a SQLite
// database, together with their FTS5 index.
type PageStorage struct {
	db        *sql.DB
	datasetID string
	codec     *textCodec
}

// NewPageStorage opens (creating it if needed) the database at dbPath and
// brings it to the current schema.
func NewPageStorage(dbPath, datasetID string) (*PageStorage, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
		"PRAGMA mmap_size = 268435456", // 256MB mmap
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initializing %s: %w", dbPath, err)
	}

	codec, err := newTextCodec()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &PageStorage{
		db:        conn,
		datasetID: datasetID,
		codec:     codec,
	}, nil
}

// Close releases the database.
func (s *PageStorage) Close() error {
	s.codec.close()
	return s.db.Close()
}

// GetDB returns the underlying database connection for migrations
func (s *PageStorage) GetDB() *sql.DB {
	return s.db
}

// SavePage stores a page, replacing any page with the same id.
func (s *PageStorage) SavePage(ctx context.Context, page *core.Page) error {
	return s.SavePages(ctx, []*core.Page{page})
}

// SavePages stores pages in one transaction. Pages are validated first and
// must belong to the storage dataset.
func (s *PageStorage) SavePages(ctx context.Context, pages []*core.Page) error {
	if len(pages) == 0 {
		return nil
	}
	for _, page := range pages {
		if err := page.Validate(); err != nil {
			return err
		}
		if page.DatasetID != s.datasetID {
			return fmt.Errorf("%w: page %s belongs to dataset %s, not %s", core.ErrInvalidPage, page.PageID, page.DatasetID, s.datasetID)
		}
		if highlight.ContainsControlMarkers(page.FullText) {
			return fmt.Errorf("%w: page %s text contains highlight control characters", core.ErrInvalidPage, page.PageID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	for _, page := range pages {
		if err := s.savePage(ctx, tx, page); err != nil {
			return fmt.Errorf("saving page %s of %s: %w", page.PageID, page.Record(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing pages: %w", err)
	}
	committed = true
	return nil
}

func (s *PageStorage) savePage(ctx context.Context, tx *sql.Tx, page *core.Page) error {
	// a page is replaced when either its id or its key is already stored
	existing := "SELECT id FROM pages WHERE dataset_id = ? AND local_id = ? AND (page_id = ? OR page_key = ?)"
	args := []any{page.DatasetID, page.LocalID, page.PageID, page.PageKey}
	for _, stmt := range []string{
		"DELETE FROM pages_fts WHERE rowid IN (" + existing + ")",
		"DELETE FROM annotations WHERE page_rowid IN (" + existing + ")",
		"DELETE FROM pages WHERE id IN (" + existing + ")",
	} {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("removing previous version: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO pages (dataset_id, local_id, page_id, page_key, resource_id, language, text_length, full_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		page.DatasetID, page.LocalID, page.PageID, page.PageKey, page.ResourceID,
		nullString(page.Language), utf8.RuneCountInString(page.FullText), s.codec.compress(page.FullText))
	if err != nil {
		return fmt.Errorf("inserting page: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting page row id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO pages_fts (rowid, text) VALUES (?, ?)", rowID, page.FullText); err != nil {
		return fmt.Errorf("indexing page: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO annotations (page_rowid, seq, annotation_id, dc_type, from_index, to_index, targets, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			logger.Warnf("failed to close statement: %v", err)
		}
	}()

	for seq, anno := range page.Annotations {
		targets, err := json.Marshal(anno.Targets)
		if err != nil {
			return fmt.Errorf("marshaling targets of %s: %w", anno.ID, err)
		}
		if anno.Targets == nil {
			targets = []byte("[]")
		}
		var from, to sql.NullInt64
		if anno.Span != nil {
			from = sql.NullInt64{Int64: int64(anno.Span.From), Valid: true}
			to = sql.NullInt64{Int64: int64(anno.Span.To), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rowID, seq, anno.ID, anno.Granularity.Code(), from, to, string(targets), nullString(anno.Language)); err != nil {
			return fmt.Errorf("inserting annotation %s: %w", anno.ID, err)
		}
	}
	return nil
}

// PageExists reports whether the page is stored. With types, the page must
// also have at least one annotation of one of those types.
func (s *PageStorage) PageExists(ctx context.Context, localID, pageID string, types []core.Granularity) (bool, error) {
	query := "SELECT 1 FROM pages p WHERE p.dataset_id = ? AND p.local_id = ? AND p.page_id = ?"
	args := []any{s.datasetID, localID, pageID}
	if len(types) > 0 {
		clause, typeArgs := typeFilter("a.dc_type", types)
		query += " AND EXISTS (SELECT 1 FROM annotations a WHERE a.page_rowid = p.id AND " + clause + ")"
		args = append(args, typeArgs...)
	}

	var one int
	err := s.db.QueryRowContext(ctx, query+" LIMIT 1", args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking page %s: %w", pageID, err)
	}
	return true, nil
}

// FetchPages returns a cursor over the pages of the record with the given
// keys, in keys order. Only annotations of types are loaded, all when types
// is empty. Keys that are not stored are silently missing from the cursor.
func (s *PageStorage) FetchPages(ctx context.Context, localID string, keys []string, types []core.Granularity) (*PageCursor, error) {
	if len(keys) == 0 {
		return &PageCursor{done: true}, nil
	}

	var b strings.Builder
	var args []any
	b.WriteString("WITH wanted (page_key, pos) AS (VALUES ")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?)")
		args = append(args, key, i)
	}
	b.WriteString(`)
		SELECT p.id, p.page_id, p.page_key, p.resource_id, p.language, p.full_text,
			a.annotation_id, a.dc_type, a.from_index, a.to_index, a.targets, a.language
		FROM wanted w
		JOIN pages p ON p.page_key = w.page_key AND p.dataset_id = ? AND p.local_id = ?
		LEFT JOIN annotations a ON a.page_rowid = p.id`)
	args = append(args, s.datasetID, localID)
	if len(types) > 0 {
		clause, typeArgs := typeFilter("a.dc_type", types)
		b.WriteString(" AND " + clause)
		args = append(args, typeArgs...)
	}
	b.WriteString(" ORDER BY w.pos, a.seq")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	return &PageCursor{
		rows:      rows,
		codec:     s.codec,
		datasetID: s.datasetID,
		localID:   localID,
	}, nil
}

// Stats summarizes the storage contents.
type Stats struct {
	Records     int            `json:"records"`
	Pages       int            `json:"pages"`
	Annotations map[string]int `json:"annotations"`
	TextBytes   int64          `json:"text_bytes"`
	StoredBytes int64          `json:"stored_bytes"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
}

// GetStats returns counts for the storage.
func (s *PageStorage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Annotations: make(map[string]int)}

	var textBytes, storedBytes sql.NullInt64
	var lastUpdated sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT local_id), COUNT(*), SUM(text_length), SUM(length(full_text)), MAX(created_at)
		FROM pages`).Scan(&stats.Records, &stats.Pages, &textBytes, &storedBytes, &lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	stats.TextBytes = textBytes.Int64
	stats.StoredBytes = storedBytes.Int64
	if lastUpdated.Valid {
		if t, err := parseTimestamp(lastUpdated.String); err == nil {
			stats.LastUpdated = &t
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT dc_type, COUNT(*) FROM annotations GROUP BY dc_type")
	if err != nil {
		return nil, fmt.Errorf("counting annotations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		name := code
		if g, err := core.ParseGranularity(code); err == nil {
			name = g.Name()
		}
		stats.Annotations[name] = n
	}
	return stats, rows.Err()
}

// parseTimestamp accepts both the RFC3339 and the SQLite CURRENT_TIMESTAMP
// formats.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

func (s *PageStorage) Optimize() error {
	_, err := s.db.Exec("PRAGMA optimize")
	return err
}

// OptimizeIndex merges the FTS5 index b-trees.
func (s *PageStorage) OptimizeIndex() error {
	_, err := s.db.Exec("INSERT INTO pages_fts(pages_fts) VALUES ('optimize')")
	return err
}

func (s *PageStorage) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

func (s *PageStorage) WALCheckpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// IntegrityCheck runs PRAGMA integrity_check.
func (s *PageStorage) IntegrityCheck() error {
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

// FTSIntegrityCheck verifies the full text index against its content.
func (s *PageStorage) FTSIntegrityCheck() error {
	if _, err := s.db.Exec("INSERT INTO pages_fts(pages_fts) VALUES ('integrity-check')"); err != nil {
		return fmt.Errorf("fts integrity check: %w", err)
	}
	return nil
}

// FTSRebuild rebuilds the full text index.
func (s *PageStorage) FTSRebuild() error {
	if _, err := s.db.Exec("INSERT INTO pages_fts(pages_fts) VALUES ('rebuild')"); err != nil {
		return fmt.Errorf("rebuilding fts index: %w", err)
	}
	return nil
}

// typeFilter returns "column IN (?, ...)" and the granularity codes.
func typeFilter(column string, types []core.Granularity) (string, []any) {
	marks := make([]string, len(types))
	args := make([]any, len(types))
	for i, g := range types {
		marks[i] = "?"
		args[i] = g.Code()
	}
	return column + " IN (" + strings.Join(marks, ", ") + ")", args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
