// Package storetest runs the behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
	"github.com/vonshlovens/flownotes/internal/store"
)

// Run exercises s against the store contract. s must start out empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create seeds heading block", func(t *testing.T) {
		n, err := s.CreateNote(ctx, "First")
		if err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
		if n.ID == "" || n.Title != "First" {
			t.Errorf("unexpected note: %+v", n)
		}
		if len(n.Blocks) != 1 || n.Blocks[0].Type != note.BlockHeading || n.Blocks[0].Content != store.DefaultHeading {
			t.Errorf("unexpected seed blocks: %+v", n.Blocks)
		}
		if n.CreatedAt.IsZero() || !n.CreatedAt.Equal(n.UpdatedAt) {
			t.Errorf("expected equal non-zero timestamps, got %v %v", n.CreatedAt, n.UpdatedAt)
		}

		loaded, err := s.LoadNote(ctx, n.ID)
		if err != nil {
			t.Fatalf("LoadNote failed: %v", err)
		}
		if loaded.Title != n.Title || len(loaded.Blocks) != 1 || loaded.Blocks[0].ID != n.Blocks[0].ID {
			t.Errorf("loaded note differs: %+v", loaded)
		}
		if err := s.DeleteNote(ctx, n.ID); err != nil {
			t.Fatalf("DeleteNote failed: %v", err)
		}
	})

	t.Run("create de-duplicates titles", func(t *testing.T) {
		var ids []string
		var titles []string
		for i := 0; i < 3; i++ {
			n, err := s.CreateNote(ctx, "Ideas")
			if err != nil {
				t.Fatalf("CreateNote failed: %v", err)
			}
			ids = append(ids, n.ID)
			titles = append(titles, n.Title)
		}
		expected := []string{"Ideas", "Ideas 1", "Ideas 2"}
		for i := range expected {
			if titles[i] != expected[i] {
				t.Errorf("title %d = %q, want %q", i, titles[i], expected[i])
			}
		}
		for _, id := range ids {
			_ = s.DeleteNote(ctx, id)
		}
	})

	t.Run("save overwrites the whole note", func(t *testing.T) {
		n, err := s.CreateNote(ctx, "Draft")
		if err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
		defer s.DeleteNote(ctx, n.ID)

		checked := true
		path := "/tmp/pic.png"
		n.Title = "Final"
		n.Tags = []string{"work"}
		n.FolderID = "folder-1"
		n.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond).Add(time.Second)
		n.Blocks = []note.Block{
			{ID: "b1", Type: note.BlockTodo, Content: "ship", Checked: &checked, Order: 0},
			{ID: "b2", Type: note.BlockImage, FilePath: &path, Order: 1, Children: []note.Block{
				{ID: "b3", Type: note.BlockText, Content: "caption", Order: 0},
			}},
		}
		if err := s.SaveNote(ctx, n); err != nil {
			t.Fatalf("SaveNote failed: %v", err)
		}

		loaded, err := s.LoadNote(ctx, n.ID)
		if err != nil {
			t.Fatalf("LoadNote failed: %v", err)
		}
		if loaded.Title != "Final" || loaded.FolderID != "folder-1" || len(loaded.Tags) != 1 {
			t.Errorf("metadata not saved: %+v", loaded)
		}
		if len(loaded.Blocks) != 2 || loaded.Blocks[0].Checked == nil || !*loaded.Blocks[0].Checked {
			t.Fatalf("blocks not saved: %+v", loaded.Blocks)
		}
		if loaded.Blocks[1].FilePath == nil || *loaded.Blocks[1].FilePath != path || len(loaded.Blocks[1].Children) != 1 {
			t.Errorf("nested block not saved: %+v", loaded.Blocks[1])
		}
		if !loaded.UpdatedAt.Equal(n.UpdatedAt) {
			t.Errorf("UpdatedAt = %v, want %v", loaded.UpdatedAt, n.UpdatedAt)
		}
	})

	t.Run("save rejects invalid blocks", func(t *testing.T) {
		n, err := s.CreateNote(ctx, "Broken")
		if err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
		defer s.DeleteNote(ctx, n.ID)

		n.Blocks = []note.Block{
			{ID: "dup", Type: note.BlockText},
			{ID: "dup", Type: note.BlockText},
		}
		if err := s.SaveNote(ctx, n); err == nil {
			t.Error("expected duplicate block ids to be rejected")
		}
	})

	t.Run("missing note", func(t *testing.T) {
		if _, err := s.LoadNote(ctx, "note_missing"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.DeleteNote(ctx, "note_missing"); err != nil {
			t.Errorf("deleting a missing note should succeed, got %v", err)
		}
	})

	t.Run("list sorted by updated desc", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		var ids []string
		for i, title := range []string{"old", "newest", "middle"} {
			n, err := s.CreateNote(ctx, title)
			if err != nil {
				t.Fatalf("CreateNote failed: %v", err)
			}
			offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
			n.UpdatedAt = base.Add(offsets[i])
			if err := s.SaveNote(ctx, n); err != nil {
				t.Fatalf("SaveNote failed: %v", err)
			}
			ids = append(ids, n.ID)
		}
		defer func() {
			for _, id := range ids {
				_ = s.DeleteNote(ctx, id)
			}
		}()

		list, err := s.ListNotes(ctx)
		if err != nil {
			t.Fatalf("ListNotes failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 notes, got %d", len(list))
		}
		expected := []string{"newest", "middle", "old"}
		for i, title := range expected {
			if list[i].Title != title {
				t.Errorf("list[%d] = %q, want %q", i, list[i].Title, title)
			}
		}
	})

	t.Run("pdf lifecycle", func(t *testing.T) {
		doc, err := s.ImportPDF(ctx, "paper.pdf", "/docs/paper.pdf", 12)
		if err != nil {
			t.Fatalf("ImportPDF failed: %v", err)
		}
		defer s.DeletePDF(ctx, doc.ID)

		if doc.ID == "" || doc.Pages != 12 || len(doc.Annotations) != 0 {
			t.Errorf("unexpected document: %+v", doc)
		}

		comment := "read again"
		a := pdf.Annotation{ID: "a1", Type: pdf.Comment, Page: 3, Rect: pdf.Rect{1, 2, 3, 4}, Content: &comment}
		if err := s.SavePDFAnnotation(ctx, doc.ID, a); err != nil {
			t.Fatalf("SavePDFAnnotation failed: %v", err)
		}
		updated := "done"
		a.Content = &updated
		if err := s.SavePDFAnnotation(ctx, doc.ID, a); err != nil {
			t.Fatalf("SavePDFAnnotation (update) failed: %v", err)
		}

		loaded, err := s.LoadPDF(ctx, doc.ID)
		if err != nil {
			t.Fatalf("LoadPDF failed: %v", err)
		}
		if len(loaded.Annotations) != 1 || *loaded.Annotations[0].Content != "done" {
			t.Errorf("expected one updated annotation, got %+v", loaded.Annotations)
		}
		if loaded.Annotations[0].Rect != a.Rect {
			t.Errorf("rect not preserved: %v", loaded.Annotations[0].Rect)
		}
		if loaded.UpdatedAt.Before(doc.UpdatedAt) {
			t.Error("expected UpdatedAt to be refreshed")
		}

		list, err := s.ListPDFs(ctx)
		if err != nil {
			t.Fatalf("ListPDFs failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != doc.ID {
			t.Errorf("unexpected pdf list: %+v", list)
		}

		bad := pdf.Annotation{ID: "a2", Type: "scribble", Page: 1}
		if err := s.SavePDFAnnotation(ctx, doc.ID, bad); !errors.Is(err, pdf.ErrInvalidAnnotation) {
			t.Errorf("expected ErrInvalidAnnotation, got %v", err)
		}
		if err := s.SavePDFAnnotation(ctx, "pdf_missing", a); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing pdf, got %v", err)
		}

		if err := s.DeletePDF(ctx, doc.ID); err != nil {
			t.Fatalf("DeletePDF failed: %v", err)
		}
		if _, err := s.LoadPDF(ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeletePDF(ctx, doc.ID); err != nil {
			t.Errorf("deleting a missing pdf should succeed, got %v", err)
		}
	})
}
