// Package store defines the note store command set and the helpers shared by its backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
)

var (
	// ErrNotFound is returned when a note or document id does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidNote is returned when a note breaks the block invariants
	ErrInvalidNote = errors.New("invalid note")
)

// Store persists notes and PDF documents. Implementations must be safe for concurrent use.
type Store interface {
	// ListNotes returns metadata for every note, most recently updated first
	ListNotes(ctx context.Context) ([]note.Metadata, error)
	// CreateNote creates and persists a note with a de-duplicated title
	CreateNote(ctx context.Context, title string) (*note.Note, error)
	LoadNote(ctx context.Context, id string) (*note.Note, error)
	// SaveNote overwrites the whole note by id
	SaveNote(ctx context.Context, n *note.Note) error
	// DeleteNote removes a note. Deleting a missing id is not an error.
	DeleteNote(ctx context.Context, id string) error

	ImportPDF(ctx context.Context, name, path string, pages int) (*pdf.Document, error)
	SavePDF(ctx context.Context, doc *pdf.Document) error
	LoadPDF(ctx context.Context, id string) (*pdf.Document, error)
	ListPDFs(ctx context.Context) ([]pdf.Document, error)
	DeletePDF(ctx context.Context, id string) error
	// SavePDFAnnotation replaces the annotation with the same id or appends it
	SavePDFAnnotation(ctx context.Context, pdfID string, a pdf.Annotation) error

	Close() error
}

// DefaultHeading is the content of the block every new note starts with
const DefaultHeading = "Untitled"

// UniqueTitle returns title, or "title N" with the smallest N >= 1 that no existing note uses
func UniqueTitle(title string, existing []note.Metadata) string {
	taken := make(map[string]bool, len(existing))
	for _, m := range existing {
		taken[m.Title] = true
	}

	candidate := title
	for i := 1; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s %d", title, i)
	}
	return candidate
}

// NewNote builds a fresh note with a single heading block
func NewNote(title string) *note.Note {
	now := time.Now().UTC()
	return &note.Note{
		ID:    note.NewNoteID(),
		Title: title,
		Blocks: []note.Block{
			{ID: note.NewBlockID(), Type: note.BlockHeading, Content: DefaultHeading, Order: 0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SortMetadata orders metadata by UpdatedAt, newest first
func SortMetadata(notes []note.Metadata) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}

// SortDocuments orders documents by UpdatedAt, newest first
func SortDocuments(docs []pdf.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
}

// CheckNote rejects notes that cannot be stored
func CheckNote(n *note.Note) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNote)
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}
	return nil
}
