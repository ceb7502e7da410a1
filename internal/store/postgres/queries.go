package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
	"github.com/vonshlovens/flownotes/internal/store"
)

var _ store.Store = (*DB)(nil)

// createNoteLock is the advisory lock key that serialises title de-duplication
const createNoteLock = 0x666c6f77

func (db *DB) ListNotes(ctx context.Context) ([]note.Metadata, error) {
	rows, err := db.Pool.Query(ctx, `
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
		var folderID *string
		if err := rows.Scan(&m.ID, &m.Title, &m.Tags, &folderID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if folderID != nil {
			m.FolderID = *folderID
		}
		notes = append(notes, m)
	}
	return notes, rows.Err()
}

func (db *DB) CreateNote(ctx context.Context, title string) (*note.Note, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", createNoteLock); err != nil {
		return nil, fmt.Errorf("failed to lock notes: %w", err)
	}

	rows, err := tx.Query(ctx, "SELECT title FROM notes")
	if err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	titles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (note.Metadata, error) {
		var m note.Metadata
		err := row.Scan(&m.Title)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan titles: %w", err)
	}

	n := store.NewNote(store.UniqueTitle(title, titles))
	if err := upsertNote(ctx, tx, n); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit note: %w", err)
	}
	return n, nil
}

func (db *DB) LoadNote(ctx context.Context, id string) (*note.Note, error) {
	n := &note.Note{}
	var blocksJSON []byte
	var folderID *string

	err := db.Pool.QueryRow(ctx, `
		SELECT id, title, blocks, tags, folder_id, created_at, updated_at
		FROM notes WHERE id = $1
	`, id).Scan(&n.ID, &n.Title, &blocksJSON, &n.Tags, &folderID, &n.CreatedAt, &n.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note %s: %w", id, err)
	}

	if err := json.Unmarshal(blocksJSON, &n.Blocks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}
	if folderID != nil {
		n.FolderID = *folderID
	}
	return n, nil
}

func (db *DB) SaveNote(ctx context.Context, n *note.Note) error {
	if err := store.CheckNote(n); err != nil {
		return err
	}
	return upsertNote(ctx, db.Pool, n)
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertNote(ctx context.Context, q querier, n *note.Note) error {
	blocksJSON, err := json.Marshal(n.Blocks)
	if err != nil {
		return fmt.Errorf("failed to marshal blocks: %w", err)
	}

	var folderID *string
	if n.FolderID != "" {
		folderID = &n.FolderID
	}

	_, err = q.Exec(ctx, `
		INSERT INTO notes (id, title, blocks, tags, folder_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			blocks = EXCLUDED.blocks,
			tags = EXCLUDED.tags,
			folder_id = EXCLUDED.folder_id,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, n.ID, n.Title, blocksJSON, n.Tags, folderID, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save note %s: %w", n.ID, err)
	}
	return nil
}

func (db *DB) DeleteNote(ctx context.Context, id string) error {
	if _, err := db.Pool.Exec(ctx, "DELETE FROM notes WHERE id = $1", id); err != nil {
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
	return savePDF(ctx, db.Pool, doc)
}

func savePDF(ctx context.Context, q querier, doc *pdf.Document) error {
	if doc.Annotations == nil {
		doc.Annotations = []pdf.Annotation{}
	}
	annotationsJSON, err := json.Marshal(doc.Annotations)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO pdf_documents (id, name, path, pages, annotations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			path = EXCLUDED.path,
			pages = EXCLUDED.pages,
			annotations = EXCLUDED.annotations,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, doc.ID, doc.Name, doc.Path, doc.Pages, annotationsJSON, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pdf %s: %w", doc.ID, err)
	}
	return nil
}

const pdfColumns = "id, name, path, pages, annotations, created_at, updated_at"

func scanPDF(row pgx.Row) (*pdf.Document, error) {
	doc := &pdf.Document{}
	var annotationsJSON []byte
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Path, &doc.Pages, &annotationsJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(annotationsJSON, &doc.Annotations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
	}
	return doc, nil
}

func (db *DB) LoadPDF(ctx context.Context, id string) (*pdf.Document, error) {
	return loadPDF(ctx, db.Pool, id, false)
}

func loadPDF(ctx context.Context, q querier, id string, forUpdate bool) (*pdf.Document, error) {
	query := "SELECT " + pdfColumns + " FROM pdf_documents WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	doc, err := scanPDF(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pdf %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pdf %s: %w", id, err)
	}
	return doc, nil
}

func (db *DB) ListPDFs(ctx context.Context) ([]pdf.Document, error) {
	rows, err := db.Pool.Query(ctx, "SELECT "+pdfColumns+" FROM pdf_documents ORDER BY updated_at DESC")
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
	if _, err := db.Pool.Exec(ctx, "DELETE FROM pdf_documents WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete pdf %s: %w", id, err)
	}
	return nil
}

func (db *DB) SavePDFAnnotation(ctx context.Context, pdfID string, a pdf.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := loadPDF(ctx, tx, pdfID, true)
	if err != nil {
		return err
	}
	doc.Upsert(a)
	if err := savePDF(ctx, tx, doc); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit annotation: %w", err)
	}
	return nil
}
