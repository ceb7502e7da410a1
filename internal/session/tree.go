package session

import (
	"github.com/vonshlovens/flownotes/internal/foldertree"
)

// Tree returns the current folder tree. The tree is immutable; callers must not modify it.
func (s *Session) Tree() foldertree.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// ToggleFolder expands or collapses a folder
func (s *Session) ToggleFolder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = foldertree.Toggle(s.tree, id)
}

// RenameItem changes the name shown for a tree item
func (s *Session) RenameItem(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = foldertree.Rename(s.tree, id, name)
}

// DeleteItem removes an item and its subtree from the tree. Notes are not deleted.
func (s *Session) DeleteItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = foldertree.Delete(s.tree, id)
}

// MoveItem moves an item under another folder, or to the root when parentID is empty
func (s *Session) MoveItem(id, parentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := foldertree.Move(s.tree, id, parentID)
	if err != nil {
		return err
	}
	s.tree = tree
	return nil
}
