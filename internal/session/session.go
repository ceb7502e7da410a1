// Package session owns the note list, the currently open note and its
// editor draft, and routes edits through the autosave coordinator.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/vonshlovens/flownotes/internal/autosave"
	"github.com/vonshlovens/flownotes/internal/export"
	"github.com/vonshlovens/flownotes/internal/foldertree"
	"github.com/vonshlovens/flownotes/internal/markup"
	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/store"
)

// ErrNoSelection is returned by editing operations when no note is open
var ErrNoSelection = errors.New("no note selected")

// RootCrumb is the first breadcrumb segment
const RootCrumb = "Notes"

// Options configures a Session
type Options struct {
	AutosaveDelay    time.Duration
	PreserveBlockIDs bool
	Folders          []foldertree.Folder
}

// Session is safe for concurrent use. Store calls are made without holding
// the lock; every response is checked against the open token taken before
// the call and dropped when another selection happened meanwhile.
type Session struct {
	store       store.Store
	saver       *autosave.Coordinator
	preserveIDs bool

	mu       sync.Mutex
	notes    []note.Metadata
	open     *note.Note
	draft    string
	title    string
	modified bool
	edits    uint64
	token    uint64
	listSeq  uint64
	tree     foldertree.Tree
}

// New creates a session over s with nothing selected
func New(s store.Store, opts Options) *Session {
	sess := &Session{
		store:       s,
		preserveIDs: opts.PreserveBlockIDs,
		tree:        foldertree.FromFolders(opts.Folders),
	}
	sess.saver = autosave.New(opts.AutosaveDelay, sess.saveBody)
	return sess
}

// Refresh reloads the note list and rebuilds the note leaves of the folder tree
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.listSeq++
	seq := s.listSeq
	s.mu.Unlock()

	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		slog.Error("failed to list notes", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.listSeq {
		return nil
	}
	s.notes = notes
	s.tree = foldertree.SyncNotes(s.tree, notes)
	return nil
}

// Select opens note id. Edits to the previously open note that autosave has
// not delivered yet are dropped. Selecting the open note again does nothing.
func (s *Session) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.open != nil && s.open.ID == id {
		s.mu.Unlock()
		return nil
	}
	s.token++
	tok := s.token
	s.mu.Unlock()

	n, err := s.store.LoadNote(ctx, id)
	if err != nil {
		slog.Error("failed to load note", "note_id", id, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token {
		slog.Debug("discarding stale note load", "note_id", id)
		return nil
	}
	s.replaceOpen(n)
	return nil
}

// replaceOpen must be called with s.mu held
func (s *Session) replaceOpen(n *note.Note) {
	if s.open != nil && (n == nil || s.open.ID != n.ID) {
		s.saver.Cancel(s.open.ID)
	}
	s.open = n
	s.modified = false
	if n == nil {
		s.draft = ""
		s.title = ""
		return
	}
	s.draft = editorMarkup(n.Blocks)
	s.title = n.Title
}

// editorMarkup renders blocks for the editor surface. Content is escaped so
// that parsing the draft back yields the stored text.
func editorMarkup(blocks []note.Block) string {
	escaped := make([]note.Block, len(blocks))
	for i, b := range blocks {
		b.Content = html.EscapeString(b.Content)
		escaped[i] = b
	}
	return markup.ToMarkup(escaped)
}

// Create makes a new note, opens it and refreshes the list
func (s *Session) Create(ctx context.Context, title string) (*note.Note, error) {
	n, err := s.store.CreateNote(ctx, title)
	if err != nil {
		slog.Error("failed to create note", "title", title, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.token++
	s.replaceOpen(n)
	s.mu.Unlock()

	slog.Info("note created", "note_id", n.ID, "title", n.Title)
	return n.Clone(), s.Refresh(ctx)
}

// Delete removes note id. The selection is cleared only when id is the open note.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteNote(ctx, id); err != nil {
		slog.Error("failed to delete note", "note_id", id, "error", err)
		return err
	}

	s.mu.Lock()
	if s.open != nil && s.open.ID == id {
		s.token++
		s.replaceOpen(nil)
	}
	s.mu.Unlock()

	slog.Info("note deleted", "note_id", id)
	return s.Refresh(ctx)
}

// EditBody replaces the draft markup and schedules an autosave
func (s *Session) EditBody(body string) error {
	s.mu.Lock()
	if s.open == nil {
		s.mu.Unlock()
		return ErrNoSelection
	}
	s.draft = body
	s.modified = true
	s.edits++
	id := s.open.ID
	s.mu.Unlock()

	s.saver.Touch(id)
	return nil
}

// EditTitle updates the title draft. Nothing is saved until BlurTitle.
func (s *Session) EditTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return ErrNoSelection
	}
	s.title = title
	return nil
}

// BlurTitle saves the title draft right away, together with the blocks of
// the open note as last persisted. The body draft is left to autosave.
// The open note takes the new title before the call so that a body save
// racing it carries the same title; a failed save restores the old one.
func (s *Session) BlurTitle(ctx context.Context) error {
	s.mu.Lock()
	if s.open == nil {
		s.mu.Unlock()
		return ErrNoSelection
	}
	if s.title == s.open.Title {
		s.mu.Unlock()
		return nil
	}
	previous := s.open.Title
	s.open.Title = s.title
	n := s.open.Clone()
	n.UpdatedAt = time.Now().UTC()
	tok := s.token
	s.mu.Unlock()

	if err := s.store.SaveNote(ctx, n); err != nil {
		slog.Error("failed to save title", "note_id", n.ID, "error", err)
		s.mu.Lock()
		if tok == s.token && s.open != nil && s.open.ID == n.ID && s.open.Title == n.Title {
			s.open.Title = previous
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if tok == s.token && s.open != nil && s.open.ID == n.ID {
		s.open.UpdatedAt = n.UpdatedAt
	}
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// saveBody is the autosave callback for the open note
func (s *Session) saveBody(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.open == nil || s.open.ID != id {
		s.mu.Unlock()
		return nil
	}
	blocks := markup.FromMarkup(s.draft)
	if s.preserveIDs {
		blocks = markup.Reconcile(s.open.Blocks, blocks)
	}
	n := s.open.Clone()
	n.Blocks = blocks
	n.UpdatedAt = time.Now().UTC()
	tok, edits := s.token, s.edits
	s.mu.Unlock()

	if err := s.store.SaveNote(ctx, n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token || s.open == nil || s.open.ID != id {
		return nil
	}
	n.Title = s.open.Title
	s.open = n
	if edits == s.edits {
		s.modified = false
	}
	s.touchListed(n)
	slog.Debug("note saved", "note_id", id, "blocks", len(n.Blocks))
	return nil
}

// touchListed must be called with s.mu held
func (s *Session) touchListed(n *note.Note) {
	for i := range s.notes {
		if s.notes[i].ID == n.ID {
			s.notes[i].UpdatedAt = n.UpdatedAt
			store.SortMetadata(s.notes)
			return
		}
	}
}

// ApplyRemote replaces the open note with an update that came from outside
// this session. It is ignored when n is not the open note or when the user
// has unsaved edits. Reports whether the update was applied.
func (s *Session) ApplyRemote(n *note.Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil || n == nil || s.open.ID != n.ID {
		return false
	}
	if s.modified {
		slog.Debug("ignoring remote update for modified note", "note_id", n.ID)
		return false
	}
	s.token++
	s.replaceOpen(n.Clone())
	return true
}

// Flush saves pending edits of the open note now
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.open == nil {
		s.mu.Unlock()
		return nil
	}
	id := s.open.ID
	s.mu.Unlock()

	return s.saver.Flush(ctx, id)
}

// Close flushes every pending save and stops autosave
func (s *Session) Close(ctx context.Context) error {
	err := s.saver.FlushAll(ctx)
	s.saver.Stop()
	return err
}

// Breadcrumb returns the root segment, the folders containing the open note
// and its title
func (s *Session) Breadcrumb() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	crumbs := []string{RootCrumb}
	if s.open == nil {
		return crumbs
	}
	path := foldertree.Path(s.tree, s.open.ID)
	for i := 0; i < len(path)-1; i++ {
		crumbs = append(crumbs, path[i].Name)
	}
	return append(crumbs, s.open.Title)
}

// Export renders the open note as markdown
func (s *Session) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return "", ErrNoSelection
	}
	return export.Markdown(s.open), nil
}

// Accessors

// Notes returns the last loaded note list
func (s *Session) Notes() []note.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]note.Metadata(nil), s.notes...)
}

// Open returns a copy of the open note, or nil
func (s *Session) Open() *note.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open.Clone()
}

// SelectedID returns the open note's id, or "" when nothing is open
func (s *Session) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return ""
	}
	return s.open.ID
}

// Draft returns the body markup being edited
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// TitleDraft returns the title being edited, saved on blur
func (s *Session) TitleDraft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Modified reports whether the body has edits not yet confirmed by a save
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// SaveState returns the autosave state of the open note
func (s *Session) SaveState() autosave.State {
	id := s.SelectedID()
	if id == "" {
		return autosave.Idle
	}
	return s.saver.State(id)
}
