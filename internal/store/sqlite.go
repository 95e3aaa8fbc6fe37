package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/recallkb/recall/internal/feature"
)

// DocumentStore persists documents in SQLite. An FTS5 mirror table is
// written in the same transaction as the documents table, so keyword
// search never observes a document the store does not have. WAL mode with
// a single connection gives concurrent readers and one writer.
type DocumentStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateIntegrity checks a database file before opening it. A corrupted
// store is cleared so the next index run rebuilds it.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	return nil
}

// NewDocumentStore opens or creates the document database at path. An
// empty path opens an in-memory store for testing.
func NewDocumentStore(path string) (*DocumentStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("document_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("document store corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("document_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer anyway, and a pool of
	// one avoids lock contention between our own statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores DSN pragma parameters; set them explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536", // 64MB page cache
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &DocumentStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the documents table, its FTS5 mirror, and the schema
// version marker.
func (s *DocumentStore) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id               TEXT PRIMARY KEY,
		path             TEXT NOT NULL,
		content          BLOB NOT NULL,
		content_hash     TEXT NOT NULL,
		size             INTEGER NOT NULL,
		media_type       TEXT NOT NULL,
		source_timestamp INTEGER NOT NULL,
		indexed_at       INTEGER NOT NULL
	);

	-- Keyword mirror: doc_id is stored but not searchable; content holds
	-- the pre-tokenized text so camelCase and snake_case identifiers match.
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
		doc_id UNINDEXED,
		content,
		tokenize='unicode61'
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (%d);
	`, CurrentSchemaVersion)

	_, err := s.db.Exec(schema)
	return err
}

// Upsert writes a document and its keyword mirror in one transaction.
// When the stored record already carries the same ContentHash nothing is
// written and unchanged is true.
func (s *DocumentStore) Upsert(ctx context.Context, rec *DocumentRecord) (unchanged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingHash string
	err = tx.QueryRowContext(ctx,
		`SELECT content_hash FROM documents WHERE id = ?`, rec.ID).Scan(&existingHash)
	switch {
	case err == nil && existingHash == rec.ContentHash:
		return true, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to read existing hash: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, path, content, content_hash, size, media_type, source_timestamp, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path             = excluded.path,
			content          = excluded.content,
			content_hash     = excluded.content_hash,
			size             = excluded.size,
			media_type       = excluded.media_type,
			source_timestamp = excluded.source_timestamp,
			indexed_at       = excluded.indexed_at`,
		rec.ID, rec.Path, rec.Content, rec.ContentHash, rec.Size,
		string(rec.MediaType), timeToNanos(rec.SourceTimestamp), timeToNanos(rec.IndexedAt))
	if err != nil {
		return false, fmt.Errorf("failed to upsert document %s: %w", rec.ID, err)
	}

	// FTS5 virtual tables don't support upsert; delete then insert.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fts_documents WHERE doc_id = ?`, rec.ID); err != nil {
		return false, fmt.Errorf("failed to clear keyword mirror for %s: %w", rec.ID, err)
	}
	if tokens := feature.Tokenize(string(rec.Content)); len(tokens) > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fts_documents (doc_id, content) VALUES (?, ?)`,
			rec.ID, strings.Join(tokens, " ")); err != nil {
			return false, fmt.Errorf("failed to write keyword mirror for %s: %w", rec.ID, err)
		}
	}

	return false, tx.Commit()
}

// Get returns a document by ID, or nil when it does not exist.
func (s *DocumentStore) Get(ctx context.Context, id string) (*DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, content, content_hash, size, media_type, source_timestamp, indexed_at
		FROM documents WHERE id = ?`, id)

	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return rec, nil
}

// Remove deletes a document and its keyword mirror. Removing an absent ID
// is a no-op.
func (s *DocumentStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_documents WHERE doc_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete keyword mirror for %s: %w", id, err)
	}

	return tx.Commit()
}

// ContainsHash reports whether the stored record for id carries exactly
// this content hash. Used by the processor's idempotence short-circuit.
func (s *DocumentStore) ContainsHash(ctx context.Context, id, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, fmt.Errorf("store is closed")
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE id = ? AND content_hash = ?`, id, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check hash for %s: %w", id, err)
	}
	return true, nil
}

// GetInfo returns the content-free subset of a record, or nil when the
// document does not exist. The processor uses it to decide whether a
// change event can be skipped without loading the stored content.
func (s *DocumentStore) GetInfo(ctx context.Context, id string) (*DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var info DocumentInfo
	var mediaType string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content_hash, size, media_type
		FROM documents WHERE id = ?`, id).
		Scan(&info.ID, &info.ContentHash, &info.Size, &mediaType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document info for %s: %w", id, err)
	}
	info.MediaType = feature.MediaType(mediaType)
	return &info, nil
}

// IDs returns every document ID ordered ascending, without loading content.
func (s *DocumentStore) IDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	return s.queryIDs(ctx, `SELECT id FROM documents ORDER BY id`)
}

// IDsWithPrefix returns the IDs of documents whose ID starts with prefix,
// ordered ascending. A deleted directory maps to the prefix "<dir>/"; this
// finds everything that was indexed underneath it.
func (s *DocumentStore) IDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	// Paths may legally contain LIKE metacharacters.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return s.queryIDs(ctx,
		`SELECT id FROM documents WHERE id LIKE ? ESCAPE '\' ORDER BY id`, escaped+"%")
}

// queryIDs runs a single-column id query. Caller holds the read lock.
func (s *DocumentStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns every document ordered by ID.
func (s *DocumentStore) List(ctx context.Context) ([]*DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content, content_hash, size, media_type, source_timestamp, indexed_at
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var records []*DocumentRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// KeywordSearch queries the FTS5 mirror with bm25 ranking. The query is
// tokenized the same way as indexed content. A non-positive limit means
// no limit.
func (s *DocumentStore) KeywordSearch(ctx context.Context, query string, limit int) ([]KeywordResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	tokens := feature.Tokenize(query)
	if len(tokens) == 0 {
		return []KeywordResult{}, nil
	}
	match := strings.Join(tokens, " ")

	if limit <= 0 {
		limit = -1
	}

	// bm25() is negative, lower = better; ascending order puts the best
	// hit first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(fts_documents) AS score
		FROM fts_documents
		WHERE content MATCH ?
		ORDER BY score
		LIMIT ?`, match, limit)
	if err != nil {
		// FTS5 rejects some token sequences as syntax errors; treat those
		// as no results rather than failing the search.
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []KeywordResult{}, nil
		}
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var results []KeywordResult
	for rows.Next() {
		var docID string
		var score float64
		if err := rows.Scan(&docID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan keyword result: %w", err)
		}
		results = append(results, KeywordResult{
			DocID:        docID,
			Score:        -score,
			MatchedTerms: tokens,
		})
	}

	return results, rows.Err()
}

// Checkpoint forces a WAL checkpoint so all changes reach the main
// database file.
func (s *DocumentStore) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close checkpoints and closes the database. Idempotent.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanDocument.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*DocumentRecord, error) {
	var rec DocumentRecord
	var mediaType string
	var sourceNanos, indexedNanos int64

	if err := row.Scan(&rec.ID, &rec.Path, &rec.Content, &rec.ContentHash,
		&rec.Size, &mediaType, &sourceNanos, &indexedNanos); err != nil {
		return nil, err
	}

	rec.MediaType = feature.MediaType(mediaType)
	rec.SourceTimestamp = nanosToTime(sourceNanos)
	rec.IndexedAt = nanosToTime(indexedNanos)
	return &rec, nil
}

// timeToNanos stores zero times as 0 so they survive the round trip.
func timeToNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nanosToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
