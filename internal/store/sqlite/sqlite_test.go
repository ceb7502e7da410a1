package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vonshlovens/flownotes/internal/store/storetest"
)

func TestDB(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer db.Close()

	storetest.Run(t, db)
}

func TestDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notes.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	n, err := db.CreateNote(ctx, "Persistent")
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	loaded, err := db.LoadNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("LoadNote after reopen failed: %v", err)
	}
	if loaded.Title != "Persistent" || !loaded.CreatedAt.Equal(n.CreatedAt) {
		t.Errorf("unexpected note after reopen: %+v", loaded)
	}
}
