package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	sorterr "github.com/Melik1986/sortcore/internal/errors"
)

// SQLiteRecordStore implements RecordStore on SQLite. Writes are expected to
// be serialized by the caller (the engine holds a single mutation lock);
// readers run concurrently and observe pre- or post-write state via WAL.
type SQLiteRecordStore struct {
	db      *sql.DB
	path    string
	skipped atomic.Int64
}

const recordSchema = `
CREATE TABLE IF NOT EXISTS resources (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	content        TEXT NOT NULL DEFAULT '',
	content_preview TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	subcategory    TEXT,
	confidence     REAL NOT NULL DEFAULT 0,
	tags           TEXT NOT NULL DEFAULT '[]',
	languages      TEXT NOT NULL DEFAULT '[]',
	frameworks     TEXT NOT NULL DEFAULT '[]',
	topics         TEXT NOT NULL DEFAULT '[]',
	difficulty     TEXT,
	content_type   TEXT,
	file_path      TEXT,
	created_date   TEXT,
	modified_date  TEXT,
	indexed_date   TEXT,
	embedding      BLOB
);
CREATE INDEX IF NOT EXISTS idx_resources_category   ON resources(category);
CREATE INDEX IF NOT EXISTS idx_resources_confidence ON resources(confidence);
CREATE INDEX IF NOT EXISTS idx_resources_created    ON resources(created_date);
CREATE INDEX IF NOT EXISTS idx_resources_title      ON resources(title);
`

// OpenRecordStore opens (or creates) the record database at path.
func OpenRecordStore(path string) (*SQLiteRecordStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, sorterr.Wrap(err, sorterr.ErrCodeStoreOpen, sorterr.CategoryStorage, "create data directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, sorterr.Wrap(err, sorterr.ErrCodeStoreOpen, sorterr.CategoryStorage, "open record database")
	}

	// WAL lets readers run concurrently with the single writer.
	// modernc.org/sqlite ignores some DSN params, so set pragmas explicitly.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, sorterr.Wrap(err, sorterr.ErrCodeStoreOpen, sorterr.CategoryStorage, "set pragma")
		}
	}

	if _, err := db.Exec(recordSchema); err != nil {
		_ = db.Close()
		return nil, sorterr.Wrap(err, sorterr.ErrCodeStoreOpen, sorterr.CategoryStorage, "create schema")
	}

	return &SQLiteRecordStore{db: db, path: path}, nil
}

// Put overwrites any prior record with the same id. The write is durable
// before Put returns.
func (s *SQLiteRecordStore) Put(ctx context.Context, r *Resource) error {
	if r == nil || r.ID == "" {
		return sorterr.New(sorterr.ErrCodeEmptyResource, sorterr.CategoryValidation, "resource id must not be empty")
	}

	tags, err := json.Marshal(emptyIfNil(r.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	languages, err := json.Marshal(emptyIfNil(r.Languages))
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}
	frameworks, err := json.Marshal(emptyIfNil(r.Frameworks))
	if err != nil {
		return fmt.Errorf("marshal frameworks: %w", err)
	}
	topics, err := json.Marshal(emptyIfNil(r.Topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}

	indexed := r.IndexedDate
	if indexed == "" {
		indexed = time.Now().UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO resources (
			id, title, content, content_preview, category, subcategory,
			confidence, tags, languages, frameworks, topics, difficulty,
			content_type, file_path, created_date, modified_date,
			indexed_date, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Content, r.ContentPreview, r.Category,
		nullable(r.Subcategory), r.Confidence, string(tags), string(languages),
		string(frameworks), string(topics), nullable(r.Difficulty),
		nullable(r.ContentType), nullable(r.FilePath), nullable(r.CreatedDate),
		nullable(r.ModifiedDate), indexed, encodeEmbedding(r.Embedding),
	)
	if err != nil {
		return sorterr.Wrap(err, sorterr.ErrCodeStoreWrite, sorterr.CategoryStorage, "put resource").WithDetail("id", r.ID)
	}
	return nil
}

const resourceColumns = `id, title, content, content_preview, category,
	subcategory, confidence, tags, languages, frameworks, topics, difficulty,
	content_type, file_path, created_date, modified_date, indexed_date, embedding`

// Get returns the resource or nil if absent.
func (s *SQLiteRecordStore) Get(ctx context.Context, id string) (*Resource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)

	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", id, err)
	}
	return r, nil
}

// Delete removes the record, reporting whether one existed.
func (s *SQLiteRecordStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return false, sorterr.Wrap(err, sorterr.ErrCodeStoreWrite, sorterr.CategoryStorage, "delete resource").WithDetail("id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByCategory returns all resources in a category.
func (s *SQLiteRecordStore) ListByCategory(ctx context.Context, category string) ([]*Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE category = ? ORDER BY id`, category)
	if err != nil {
		return nil, fmt.Errorf("list by category %s: %w", category, err)
	}
	defer rows.Close()

	return s.collectRows(rows)
}

// IterateAll invokes fn for every readable record. Corrupt records are
// skipped and logged, never failing the whole iteration.
func (s *SQLiteRecordStore) IterateAll(ctx context.Context, fn func(*Resource) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources ORDER BY id`)
	if err != nil {
		return fmt.Errorf("iterate resources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			s.skipped.Add(1)
			slog.Warn("skipping corrupt record",
				slog.String("error", err.Error()))
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// collectRows scans all rows, skipping corrupt records.
func (s *SQLiteRecordStore) collectRows(rows *sql.Rows) ([]*Resource, error) {
	var out []*Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			s.skipped.Add(1)
			slog.Warn("skipping corrupt record",
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored resources.
func (s *SQLiteRecordStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources`).Scan(&n)
	return n, err
}

// CategoryCounts returns per-category resource counts.
func (s *SQLiteRecordStore) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM resources GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

// LanguageCounts returns per-programming-language resource counts.
// Languages are stored as JSON arrays, so counting walks every record.
func (s *SQLiteRecordStore) LanguageCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT languages FROM resources`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var langs []string
		if err := json.Unmarshal([]byte(raw), &langs); err != nil {
			s.skipped.Add(1)
			slog.Warn("skipping corrupt languages field",
				slog.String("error", err.Error()))
			continue
		}
		for _, lang := range langs {
			counts[lang]++
		}
	}
	return counts, rows.Err()
}

// TitlesLike returns distinct titles containing the fragment.
func (s *SQLiteRecordStore) TitlesLike(ctx context.Context, fragment string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT title FROM resources WHERE title LIKE ? AND title != '' LIMIT ?`,
		"%"+fragment+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// SkippedRecords reports how many corrupt records were skipped since open.
func (s *SQLiteRecordStore) SkippedRecords() int {
	return int(s.skipped.Load())
}

// DB exposes the underlying handle for schema sharing (tests, stats).
func (s *SQLiteRecordStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

// Verify interface implementation.
var _ RecordStore = (*SQLiteRecordStore)(nil)

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanResource decodes one row into a Resource. A JSON decode failure means
// the record is corrupt; callers decide whether to skip or fail.
func scanResource(row rowScanner) (*Resource, error) {
	var (
		r          Resource
		sub        sql.NullString
		difficulty sql.NullString
		ctype      sql.NullString
		fpath      sql.NullString
		created    sql.NullString
		modified   sql.NullString
		indexed    sql.NullString
		tags       string
		languages  string
		frameworks string
		topics     string
		blob       []byte
	)

	err := row.Scan(&r.ID, &r.Title, &r.Content, &r.ContentPreview,
		&r.Category, &sub, &r.Confidence, &tags, &languages, &frameworks,
		&topics, &difficulty, &ctype, &fpath, &created, &modified, &indexed,
		&blob)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return nil, sorterr.Wrap(err, sorterr.ErrCodeCorruptRecord, sorterr.CategoryStorage, "decode tags").WithDetail("id", r.ID)
	}
	if err := json.Unmarshal([]byte(languages), &r.Languages); err != nil {
		return nil, sorterr.Wrap(err, sorterr.ErrCodeCorruptRecord, sorterr.CategoryStorage, "decode languages").WithDetail("id", r.ID)
	}
	if err := json.Unmarshal([]byte(frameworks), &r.Frameworks); err != nil {
		return nil, sorterr.Wrap(err, sorterr.ErrCodeCorruptRecord, sorterr.CategoryStorage, "decode frameworks").WithDetail("id", r.ID)
	}
	if err := json.Unmarshal([]byte(topics), &r.Topics); err != nil {
		return nil, sorterr.Wrap(err, sorterr.ErrCodeCorruptRecord, sorterr.CategoryStorage, "decode topics").WithDetail("id", r.ID)
	}

	r.Subcategory = sub.String
	r.Difficulty = difficulty.String
	r.ContentType = ctype.String
	r.FilePath = fpath.String
	r.CreatedDate = created.String
	r.ModifiedDate = modified.String
	r.IndexedDate = indexed.String

	emb, err := decodeEmbedding(blob)
	if err != nil {
		return nil, sorterr.Wrap(err, sorterr.ErrCodeCorruptRecord, sorterr.CategoryStorage, "decode embedding").WithDetail("id", r.ID)
	}
	r.Embedding = emb

	return &r, nil
}

// encodeEmbedding packs a vector as little-endian float32 bytes.
// Returns nil for an absent embedding so the column stays NULL.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks little-endian float32 bytes.
func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
