// Package store persists segmented documents and generated Q/A pairs in
// SQLite using the pure Go modernc.org/sqlite driver.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dgallion1/docseg/internal/segment"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Document is a stored document row.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	ContentHash  string    `json:"content_hash"`
	SegmentCount int       `json:"segment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// SegmentRecord is one stored segment.
type SegmentRecord struct {
	Index     int      `json:"index"`
	Fragments []string `json:"fragments"`
	Text      string   `json:"text"`
}

// QAPair is one stored question/answer pair.
type QAPair struct {
	SegmentIndex int       `json:"segment_index"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a SQLite-backed document store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrationFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	names, err := fs.Glob(fsys, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(filepath.Base(name), "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, formatTime(time.Now())); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveDocument inserts or updates a document row.
func (s *Store) SaveDocument(ctx context.Context, doc Document) error {
	return upsertDocument(ctx, s.db, doc)
}

// SaveSegmented upserts the document row and replaces its segments in one
// transaction. On error neither the row nor the segments change.
func (s *Store) SaveSegmented(ctx context.Context, doc Document, segs segment.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := upsertDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := replaceSegments(ctx, tx, doc.ID, segs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Write stores doc's segments under the document id name, replacing any
// segments stored before. A document row is created if none exists.
func (s *Store) Write(ctx context.Context, name string, doc segment.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, name, name, formatTime(time.Now())); err != nil {
		return fmt.Errorf("ensuring document: %w", err)
	}
	if err := replaceSegments(ctx, tx, name, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertDocument(ctx context.Context, db execer, doc Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			content_hash = excluded.content_hash
	`, doc.ID, doc.Filename, doc.Title, doc.ContentHash, formatTime(doc.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func replaceSegments(ctx context.Context, tx *sql.Tx, docID string, doc segment.Document) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("clearing segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO segments (doc_id, idx, fragments, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, seg := range doc {
		fragments, err := json.Marshal(seg)
		if err != nil {
			return fmt.Errorf("marshalling segment %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, docID, i, string(fragments), seg.Text()); err != nil {
			return fmt.Errorf("inserting segment %d: %w", i, err)
		}
	}
	return nil
}

// Segments returns the stored segments of a document in order.
func (s *Store) Segments(ctx context.Context, docID string) ([]SegmentRecord, error) {
	if _, err := s.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT idx, fragments, text FROM segments WHERE doc_id = ? ORDER BY idx", docID)
	if err != nil {
		return nil, fmt.Errorf("querying segments: %w", err)
	}
	defer rows.Close()

	out := []SegmentRecord{}
	for rows.Next() {
		var (
			rec       SegmentRecord
			fragments string
		)
		if err := rows.Scan(&rec.Index, &fragments, &rec.Text); err != nil {
			return nil, fmt.Errorf("scanning segment: %w", err)
		}
		if err := json.Unmarshal([]byte(fragments), &rec.Fragments); err != nil {
			return nil, fmt.Errorf("decoding segment %d: %w", rec.Index, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SegmentedDocument returns the stored segments in wire form.
func (s *Store) SegmentedDocument(ctx context.Context, docID string) (segment.Document, error) {
	recs, err := s.Segments(ctx, docID)
	if err != nil {
		return nil, err
	}
	fragments := make([][]string, len(recs))
	for i, rec := range recs {
		fragments[i] = rec.Fragments
	}
	return segment.FromFragments(fragments), nil
}

// SaveQAPairs appends Q/A pairs for a document.
func (s *Store) SaveQAPairs(ctx context.Context, docID string, pairs []QAPair) error {
	if len(pairs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO qa_pairs (doc_id, segment_idx, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range pairs {
		created := p.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, docID, p.SegmentIndex, p.Question, p.Answer, formatTime(created)); err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("document %s: %w", docID, ErrNotFound)
			}
			return fmt.Errorf("inserting qa pair: %w", err)
		}
	}
	return tx.Commit()
}

// QAPairs returns a document's Q/A pairs ordered by segment.
func (s *Store) QAPairs(ctx context.Context, docID string) ([]QAPair, error) {
	if _, err := s.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT segment_idx, question, answer, created_at FROM qa_pairs
		WHERE doc_id = ? ORDER BY segment_idx, id
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying qa pairs: %w", err)
	}
	defer rows.Close()

	out := []QAPair{}
	for rows.Next() {
		var (
			p       QAPair
			created string
		)
		if err := rows.Scan(&p.SegmentIndex, &p.Question, &p.Answer, &created); err != nil {
			return nil, fmt.Errorf("scanning qa pair: %w", err)
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

const documentColumns = `
	d.id, d.filename, d.title, d.content_hash, d.created_at,
	(SELECT COUNT(*) FROM segments s WHERE s.doc_id = d.id)
`

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents d WHERE d.id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// FindByHash returns the most recent document with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+`
		FROM documents d WHERE d.content_hash = ? AND d.content_hash != ''
		ORDER BY d.created_at DESC LIMIT 1
	`, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hash %s: %w", hash, ErrNotFound)
	}
	return doc, err
}

// ListDocuments returns documents newest first. A limit <= 0 means 100.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+`
		FROM documents d ORDER BY d.created_at DESC, d.id LIMIT ? OFFSET ?
	`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document with its segments and Q/A pairs.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		doc     Document
		created string
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Title, &doc.ContentHash, &created, &doc.SegmentCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.CreatedAt = parseTime(created)
	return &doc, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isForeignKeyError(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
