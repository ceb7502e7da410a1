package foldertree

import (
	"errors"
	"testing"

	"github.com/vonshlovens/flownotes/internal/note"
)

// sample builds:
//
//	work/
//	  projects/
//	    plan (note)
//	  todo (note)
//	personal/
//	loose (note)
func sample() Tree {
	return Tree{
		{ID: "work", Name: "Work", Type: TypeFolder, Children: []*Item{
			{ID: "projects", Name: "Projects", Type: TypeFolder, ParentID: "work", Children: []*Item{
				{ID: "plan", Name: "Plan", Type: TypeNote, ParentID: "projects"},
			}},
			{ID: "todo", Name: "Todo", Type: TypeNote, ParentID: "work"},
		}},
		{ID: "personal", Name: "Personal", Type: TypeFolder},
		{ID: "loose", Name: "Loose", Type: TypeNote},
	}
}

func childIDs(it *Item) []string {
	var ids []string
	for _, c := range it.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestToggle(t *testing.T) {
	tree := sample()
	out := Toggle(tree, "projects")

	if !Find(out, "projects").IsExpanded {
		t.Error("expected projects to be expanded")
	}
	if Find(tree, "projects").IsExpanded {
		t.Error("toggle mutated the original tree")
	}

	// Untouched sibling subtree is shared
	if out[1] != tree[1] {
		t.Error("expected untouched subtree to be shared")
	}
	// Modified path is copied
	if out[0] == tree[0] {
		t.Error("expected modified path to be copied")
	}

	if Find(Toggle(out, "projects"), "projects").IsExpanded {
		t.Error("second toggle should collapse")
	}
}

func TestRename(t *testing.T) {
	tree := sample()
	out := Rename(tree, "plan", "Roadmap")

	if Find(out, "plan").Name != "Roadmap" {
		t.Errorf("expected renamed item, got %q", Find(out, "plan").Name)
	}
	if Find(tree, "plan").Name != "Plan" {
		t.Error("rename mutated the original tree")
	}

	same := Rename(tree, "missing", "x")
	if len(same) != len(tree) || same[0] != tree[0] {
		t.Error("renaming a missing id should leave the tree as is")
	}
}

func TestDelete(t *testing.T) {
	tree := sample()
	out := Delete(tree, "work")

	if Find(out, "work") != nil || Find(out, "plan") != nil {
		t.Error("expected work and its subtree to be removed")
	}
	if len(out) != 2 {
		t.Errorf("expected 2 root items, got %d", len(out))
	}
	if Find(tree, "plan") == nil {
		t.Error("delete mutated the original tree")
	}
}

func TestMove(t *testing.T) {
	t.Run("children accompany item", func(t *testing.T) {
		tree := sample()
		out, err := Move(tree, "projects", "personal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		personal := Find(out, "personal")
		if ids := childIDs(personal); len(ids) != 1 || ids[0] != "projects" {
			t.Errorf("expected projects under personal, got %v", ids)
		}
		if ids := childIDs(Find(out, "projects")); len(ids) != 1 || ids[0] != "plan" {
			t.Errorf("expected plan to move along, got %v", ids)
		}
		if ids := childIDs(Find(out, "work")); len(ids) != 1 || ids[0] != "todo" {
			t.Errorf("expected projects gone from work, got %v", ids)
		}
		if Find(out, "projects").ParentID != "personal" {
			t.Errorf("expected parent id to be updated, got %q", Find(out, "projects").ParentID)
		}

		// Original untouched
		if ids := childIDs(Find(tree, "work")); len(ids) != 2 {
			t.Errorf("move mutated the original tree: %v", ids)
		}
	})

	t.Run("appends after existing children", func(t *testing.T) {
		out, err := Move(sample(), "loose", "work")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := childIDs(Find(out, "work"))
		if len(ids) != 3 || ids[2] != "loose" {
			t.Errorf("expected loose appended to work, got %v", ids)
		}
	})

	t.Run("to root", func(t *testing.T) {
		out, err := Move(sample(), "plan", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[len(out)-1].ID != "plan" {
			t.Errorf("expected plan at end of root, got %q", out[len(out)-1].ID)
		}
	})

	tests := []struct {
		name     string
		item     string
		parent   string
		expected error
	}{
		{"missing parent is a no-op", "todo", "nowhere", ErrNotFound},
		{"missing item", "ghost", "work", ErrNotFound},
		{"note as parent", "todo", "loose", ErrNotFolder},
		{"into itself", "work", "work", ErrCycle},
		{"into descendant", "work", "projects", ErrCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := sample()
			out, err := Move(tree, tt.item, tt.parent)
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
			if len(out) != len(tree) || out[0] != tree[0] {
				t.Error("failed move should return the tree unchanged")
			}
			if tt.item == "todo" {
				if p := Path(out, "todo"); len(p) != 2 || p[0].ID != "work" {
					t.Error("item should remain at its original location")
				}
			}
		})
	}
}

func TestPath(t *testing.T) {
	path := Path(sample(), "plan")
	want := []string{"work", "projects", "plan"}
	if len(path) != len(want) {
		t.Fatalf("expected path length %d, got %d", len(want), len(path))
	}
	for i, id := range want {
		if path[i].ID != id {
			t.Errorf("path[%d] = %q, want %q", i, path[i].ID, id)
		}
	}

	if Path(sample(), "missing") != nil {
		t.Error("expected nil path for missing id")
	}
}

func TestSyncNotes(t *testing.T) {
	tree := Toggle(sample(), "work")
	notes := []note.Metadata{
		{ID: "n1", Title: "In work", FolderID: "work"},
		{ID: "n2", Title: "Orphan", FolderID: "deleted-folder"},
		{ID: "n3", Title: "Root"},
	}

	out := SyncNotes(tree, notes)

	if Find(out, "plan") != nil || Find(out, "todo") != nil || Find(out, "loose") != nil {
		t.Error("stale note leaves should be dropped")
	}
	work := Find(out, "work")
	if !work.IsExpanded {
		t.Error("folder expansion state should be kept")
	}
	if ids := childIDs(work); len(ids) != 2 || ids[0] != "projects" || ids[1] != "n1" {
		t.Errorf("unexpected work children: %v", ids)
	}
	if Find(out, "n1").ParentID != "work" {
		t.Error("note leaf should record its parent")
	}
	last := out[len(out)-2:]
	if last[0].ID != "n2" || last[1].ID != "n3" {
		t.Errorf("expected orphan and root notes at the root, got %q %q", last[0].ID, last[1].ID)
	}
	if Find(tree, "plan") == nil {
		t.Error("SyncNotes mutated its input")
	}
}

func TestFromFolders(t *testing.T) {
	tree := FromFolders([]Folder{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B", ParentID: "a"},
		{ID: "c", Name: "C", ParentID: "unknown"},
	})

	if len(tree) != 2 || tree[0].ID != "a" || tree[1].ID != "c" {
		t.Fatalf("unexpected roots: %+v", tree)
	}
	if ids := childIDs(tree[0]); len(ids) != 1 || ids[0] != "b" {
		t.Errorf("expected b under a, got %v", ids)
	}
}

func TestWalk(t *testing.T) {
	var visited []string
	depths := map[string]int{}
	Walk(sample(), func(it *Item, depth int) {
		visited = append(visited, it.ID)
		depths[it.ID] = depth
	})

	if len(visited) != 6 {
		t.Errorf("expected 6 items, got %d", len(visited))
	}
	if depths["plan"] != 2 || depths["loose"] != 0 {
		t.Errorf("unexpected depths: %v", depths)
	}
}
