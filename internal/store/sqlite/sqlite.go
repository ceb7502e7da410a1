// Package sqlite is a single-file store.Store using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
	"github.com/vonshlovens/flownotes/internal/store"
)

// DB is a store.Store backed by one SQLite database file
type DB struct {
	conn *sql.DB
	// mu serialises read-modify-write operations
	mu sync.Mutex
}

var _ store.Store = (*DB)(nil)

// New opens or creates the database at dbPath
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; sqlite serialises anyway
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Debug("sqlite store ready", "path", dbPath)
	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		blocks TEXT NOT NULL,
		tags TEXT,
		folder_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pdf_documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		annotations TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at);
	CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title);
	CREATE INDEX IF NOT EXISTS idx_pdfs_updated ON pdf_documents(updated_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Timestamps are stored as unix nanoseconds so ORDER BY is exact
func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func (db *DB) ListNotes(ctx context.Context) ([]note.Metadata, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, tags, folder_id, created_at, updated_at
		FROM notes ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []note.Metadata{}
	for rows.Next() {
		var m note.Metadata
		var tags, folderID sql.NullString
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Title, &tags, &folderID, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if err := decodeTags(tags, &m.Tags); err != nil {
			return nil, err
		}
		m.FolderID = folderID.String
		m.CreatedAt = fromUnix(created)
		m.UpdatedAt = fromUnix(updated)
		notes = append(notes, m)
	}
	return notes, rows.Err()
}

func (db *DB) CreateNote(ctx context.Context, title string) (*note.Note, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, err := db.ListNotes(ctx)
	if err != nil {
		return nil, err
	}

	n := store.NewNote(store.UniqueTitle(title, existing))
	if err := db.upsertNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (db *DB) LoadNote(ctx context.Context, id string) (*note.Note, error) {
	n := &note.Note{}
	var blocks []byte
	var tags, folderID sql.NullString
	var created, updated int64

	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, blocks, tags, folder_id, created_at, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.Title, &blocks, &tags, &folderID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note %s: %w", id, err)
	}

	if err := json.Unmarshal(blocks, &n.Blocks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}
	if err := decodeTags(tags, &n.Tags); err != nil {
		return nil, err
	}
	n.FolderID = folderID.String
	n.CreatedAt = fromUnix(created)
	n.UpdatedAt = fromUnix(updated)
	return n, nil
}

func (db *DB) SaveNote(ctx context.Context, n *note.Note) error {
	if err := store.CheckNote(n); err != nil {
		return err
	}
	return db.upsertNote(ctx, n)
}

func (db *DB) upsertNote(ctx context.Context, n *note.Note) error {
	blocks, err := json.Marshal(n.Blocks)
	if err != nil {
		return fmt.Errorf("failed to marshal blocks: %w", err)
	}
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, blocks, tags, folder_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			blocks = excluded.blocks,
			tags = excluded.tags,
			folder_id = excluded.folder_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, string(blocks), tags, nullString(n.FolderID), toUnix(n.CreatedAt), toUnix(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save note %s: %w", n.ID, err)
	}
	return nil
}

func (db *DB) DeleteNote(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func (db *DB) ImportPDF(ctx context.Context, name, path string, pages int) (*pdf.Document, error) {
	doc := pdf.NewDocument(name, path, pages)
	if err := db.SavePDF(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (db *DB) SavePDF(ctx context.Context, doc *pdf.Document) error {
	if doc.Annotations == nil {
		doc.Annotations = []pdf.Annotation{}
	}
	annotations, err := json.Marshal(doc.Annotations)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO pdf_documents (id, name, path, pages, annotations, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			pages = excluded.pages,
			annotations = excluded.annotations,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Name, doc.Path, doc.Pages, string(annotations), toUnix(doc.CreatedAt), toUnix(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save pdf %s: %w", doc.ID, err)
	}
	return nil
}

const pdfColumns = "id, name, path, pages, annotations, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanPDF(row scanner) (*pdf.Document, error) {
	doc := &pdf.Document{}
	var annotations []byte
	var created, updated int64
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Path, &doc.Pages, &annotations, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(annotations, &doc.Annotations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
	}
	doc.CreatedAt = fromUnix(created)
	doc.UpdatedAt = fromUnix(updated)
	return doc, nil
}

func (db *DB) LoadPDF(ctx context.Context, id string) (*pdf.Document, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+pdfColumns+" FROM pdf_documents WHERE id = ?", id)
	doc, err := scanPDF(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pdf %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pdf %s: %w", id, err)
	}
	return doc, nil
}

func (db *DB) ListPDFs(ctx context.Context) ([]pdf.Document, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+pdfColumns+" FROM pdf_documents ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list pdfs: %w", err)
	}
	defer rows.Close()

	docs := []pdf.Document{}
	for rows.Next() {
		doc, err := scanPDF(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pdf: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (db *DB) DeletePDF(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM pdf_documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete pdf %s: %w", id, err)
	}
	return nil
}

func (db *DB) SavePDFAnnotation(ctx context.Context, pdfID string, a pdf.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	doc, err := db.LoadPDF(ctx, pdfID)
	if err != nil {
		return err
	}
	doc.Upsert(a)
	return db.SavePDF(ctx, doc)
}

func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeTags(raw sql.NullString, tags *[]string) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), tags); err != nil {
		return fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
