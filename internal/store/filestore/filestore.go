// Package filestore keeps each note and PDF document as a pretty-printed JSON
// file under a root directory:
//
//	<root>/notes/<id>.json
//	<root>/pdfs/<id>.json
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
	"github.com/vonshlovens/flownotes/internal/store"
)

// FileExt is the extension of every stored file
const FileExt = ".json"

// WriteHook is told about every file the store writes, before it is renamed into place
type WriteHook func(path string, data []byte)

// Store is a store.Store backed by the local filesystem
type Store struct {
	notesDir string
	pdfsDir  string

	// mu serialises read-modify-write operations
	mu     sync.Mutex
	hookMu sync.RWMutex
	hook   WriteHook
}

var _ store.Store = (*Store)(nil)

// New creates the directory layout under root if needed
func New(root string) (*Store, error) {
	s := &Store{
		notesDir: filepath.Join(root, "notes"),
		pdfsDir:  filepath.Join(root, "pdfs"),
	}
	for _, dir := range []string{s.notesDir, s.pdfsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}
	slog.Debug("file store ready", "root", root)
	return s, nil
}

// NotesDir is the directory holding note files
func (s *Store) NotesDir() string {
	return s.notesDir
}

// NoteIDFromPath returns the note id for a file in the notes directory
func NoteIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, FileExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, FileExt), true
}

// SetWriteHook registers fn to be called for each write
func (s *Store) SetWriteHook(fn WriteHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hook = fn
}

func (s *Store) ListNotes(ctx context.Context) ([]note.Metadata, error) {
	entries, err := os.ReadDir(s.notesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes directory: %w", err)
	}

	notes := make([]note.Metadata, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := NoteIDFromPath(entry.Name()); !ok {
			continue
		}

		var n note.Note
		path := filepath.Join(s.notesDir, entry.Name())
		if err := readJSON(path, &n); err != nil {
			// Unreadable files are skipped so one bad note cannot hide the rest
			slog.Warn("skipping unreadable note", "path", path, "error", err)
			continue
		}
		notes = append(notes, n.Metadata())
	}

	store.SortMetadata(notes)
	return notes, nil
}

func (s *Store) CreateNote(ctx context.Context, title string) (*note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ListNotes(ctx)
	if err != nil {
		return nil, err
	}

	n := store.NewNote(store.UniqueTitle(title, existing))
	if err := s.writeNote(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) LoadNote(ctx context.Context, id string) (*note.Note, error) {
	path, err := s.path(s.notesDir, id)
	if err != nil {
		return nil, err
	}

	var n note.Note
	if err := readJSON(path, &n); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("note %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load note %s: %w", id, err)
	}
	return &n, nil
}

func (s *Store) SaveNote(ctx context.Context, n *note.Note) error {
	if err := store.CheckNote(n); err != nil {
		return err
	}
	return s.writeNote(n)
}

func (s *Store) writeNote(n *note.Note) error {
	path, err := s.path(s.notesDir, n.ID)
	if err != nil {
		return err
	}
	if err := s.writeJSON(path, n); err != nil {
		return fmt.Errorf("failed to save note %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	path, err := s.path(s.notesDir, id)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func (s *Store) ImportPDF(ctx context.Context, name, path string, pages int) (*pdf.Document, error) {
	doc := pdf.NewDocument(name, path, pages)
	if err := s.SavePDF(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) SavePDF(ctx context.Context, doc *pdf.Document) error {
	path, err := s.path(s.pdfsDir, doc.ID)
	if err != nil {
		return err
	}
	if doc.Annotations == nil {
		doc.Annotations = []pdf.Annotation{}
	}
	if err := s.writeJSON(path, doc); err != nil {
		return fmt.Errorf("failed to save pdf %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) LoadPDF(ctx context.Context, id string) (*pdf.Document, error) {
	path, err := s.path(s.pdfsDir, id)
	if err != nil {
		return nil, err
	}

	var doc pdf.Document
	if err := readJSON(path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("pdf %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load pdf %s: %w", id, err)
	}
	return &doc, nil
}

func (s *Store) ListPDFs(ctx context.Context) ([]pdf.Document, error) {
	entries, err := os.ReadDir(s.pdfsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdfs directory: %w", err)
	}

	docs := make([]pdf.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		var doc pdf.Document
		path := filepath.Join(s.pdfsDir, entry.Name())
		if err := readJSON(path, &doc); err != nil {
			slog.Warn("skipping unreadable pdf", "path", path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	store.SortDocuments(docs)
	return docs, nil
}

func (s *Store) DeletePDF(ctx context.Context, id string) error {
	path, err := s.path(s.pdfsDir, id)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete pdf %s: %w", id, err)
	}
	return nil
}

func (s *Store) SavePDFAnnotation(ctx context.Context, pdfID string, a pdf.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.LoadPDF(ctx, pdfID)
	if err != nil {
		return err
	}
	doc.Upsert(a)
	return s.SavePDF(ctx, doc)
}

func (s *Store) Close() error {
	return nil
}

// path maps an id to its file, refusing ids that would escape dir
func (s *Store) path(dir, id string) (string, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid id %q: %w", id, store.ErrNotFound)
	}
	return filepath.Join(dir, id+FileExt), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes v through a temp file and rename so readers never see a partial file
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	s.hookMu.RLock()
	hook := s.hook
	s.hookMu.RUnlock()
	if hook != nil {
		hook(path, data)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
