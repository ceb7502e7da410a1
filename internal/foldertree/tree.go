// Package foldertree holds the sidebar's folder/note tree.
//
// The tree is a local view only. Every operation returns a new tree and leaves
// its input untouched; nodes on the modified path are copied and untouched
// subtrees are shared between the old and new tree.
package foldertree

import (
	"errors"

	"github.com/vonshlovens/flownotes/internal/note"
)

var (
	ErrNotFound  = errors.New("tree item not found")
	ErrNotFolder = errors.New("target is not a folder")
	ErrCycle     = errors.New("cannot move a folder into itself or its descendants")
)

// ItemType distinguishes folders from note leaves
type ItemType string

const (
	TypeFolder ItemType = "folder"
	TypeNote   ItemType = "note"
)

// Item is one node in the tree
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       ItemType `json:"type"`
	Children   []*Item  `json:"children,omitempty"`
	IsExpanded bool     `json:"is_expanded"`
	ParentID   string   `json:"parent_id,omitempty"`
}

// Tree is the ordered list of root items
type Tree []*Item

// Folder describes a folder for building the initial skeleton
type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// FromFolders builds a folder-only tree. Folders whose parent is unknown
// are placed at the root.
func FromFolders(folders []Folder) Tree {
	items := make(map[string]*Item, len(folders))
	for _, f := range folders {
		items[f.ID] = &Item{ID: f.ID, Name: f.Name, Type: TypeFolder, ParentID: f.ParentID}
	}

	var root Tree
	for _, f := range folders {
		it := items[f.ID]
		parent, ok := items[f.ParentID]
		if f.ParentID == "" || !ok || f.ParentID == f.ID {
			it.ParentID = ""
			root = append(root, it)
			continue
		}
		parent.Children = append(parent.Children, it)
	}
	return root
}

// Find locates an item by id
func Find(tree Tree, id string) *Item {
	for _, it := range tree {
		if it.ID == id {
			return it
		}
		if found := Find(it.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Path returns the chain of items from the root down to id, inclusive.
// It returns nil when id is not in the tree.
func Path(tree Tree, id string) []*Item {
	for _, it := range tree {
		if it.ID == id {
			return []*Item{it}
		}
		if sub := Path(it.Children, id); sub != nil {
			return append([]*Item{it}, sub...)
		}
	}
	return nil
}

// Walk visits every item depth-first with its depth
func Walk(tree Tree, fn func(it *Item, depth int)) {
	var walk func(items []*Item, depth int)
	walk = func(items []*Item, depth int) {
		for _, it := range items {
			fn(it, depth)
			walk(it.Children, depth+1)
		}
	}
	walk(tree, 0)
}

// update rewrites the item with the given id. fn receives a copy it may
// modify; returning nil removes the item. The bool reports whether id was found.
func update(items []*Item, id string, fn func(it *Item) *Item) ([]*Item, bool) {
	for i, it := range items {
		if it.ID == id {
			cp := *it
			replaced := fn(&cp)

			out := make([]*Item, 0, len(items))
			out = append(out, items[:i]...)
			if replaced != nil {
				out = append(out, replaced)
			}
			return append(out, items[i+1:]...), true
		}

		if children, ok := update(it.Children, id, fn); ok {
			cp := *it
			cp.Children = children

			out := make([]*Item, len(items))
			copy(out, items)
			out[i] = &cp
			return out, true
		}
	}
	return items, false
}

// Toggle flips the expanded state of id
func Toggle(tree Tree, id string) Tree {
	out, _ := update(tree, id, func(it *Item) *Item {
		it.IsExpanded = !it.IsExpanded
		return it
	})
	return out
}

// Rename sets the display name of id
func Rename(tree Tree, id, name string) Tree {
	out, _ := update(tree, id, func(it *Item) *Item {
		it.Name = name
		return it
	})
	return out
}

// Delete removes id and its whole subtree
func Delete(tree Tree, id string) Tree {
	out, _ := update(tree, id, func(*Item) *Item { return nil })
	return out
}

// Move detaches itemID from its parent and appends it, with its subtree, to
// the children of newParentID. An empty newParentID moves it to the root.
// On any error the original tree is returned unchanged.
func Move(tree Tree, itemID, newParentID string) (Tree, error) {
	item := Find(tree, itemID)
	if item == nil {
		return tree, ErrNotFound
	}

	if newParentID != "" {
		target := Find(tree, newParentID)
		if target == nil {
			return tree, ErrNotFound
		}
		if target.Type != TypeFolder {
			return tree, ErrNotFolder
		}
		if newParentID == itemID || Find(item.Children, newParentID) != nil {
			return tree, ErrCycle
		}
	}

	moved := *item
	moved.ParentID = newParentID

	detached := Delete(tree, itemID)
	if newParentID == "" {
		out := make(Tree, 0, len(detached)+1)
		out = append(out, detached...)
		return append(out, &moved), nil
	}

	out, _ := update(detached, newParentID, func(f *Item) *Item {
		children := make([]*Item, 0, len(f.Children)+1)
		children = append(children, f.Children...)
		f.Children = append(children, &moved)
		return f
	})
	return out, nil
}

// SyncNotes rebuilds the note leaves from the note list. Folders and their
// expansion state are kept; each note goes under the folder named by its
// FolderID, or the root when that folder does not exist.
func SyncNotes(tree Tree, notes []note.Metadata) Tree {
	folders := copyFolders(tree, "")

	index := make(map[string]*Item)
	Walk(folders, func(it *Item, _ int) {
		index[it.ID] = it
	})

	for _, n := range notes {
		leaf := &Item{ID: n.ID, Name: n.Title, Type: TypeNote}
		if parent, ok := index[n.FolderID]; ok && n.FolderID != "" {
			leaf.ParentID = parent.ID
			parent.Children = append(parent.Children, leaf)
			continue
		}
		folders = append(folders, leaf)
	}
	return folders
}

// copyFolders deep-copies the folder items of tree, dropping note leaves
func copyFolders(items []*Item, parentID string) Tree {
	var out Tree
	for _, it := range items {
		if it.Type != TypeFolder {
			continue
		}
		cp := *it
		cp.ParentID = parentID
		cp.Children = copyFolders(it.Children, it.ID)
		out = append(out, &cp)
	}
	return out
}
