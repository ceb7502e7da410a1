// Package watcher reports changes made to the file store's notes directory
// by anything other than this process.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/vonshlovens/flownotes/internal/store/filestore"
)

// Watcher monitors a notes directory and emits one Event per note per burst
type Watcher struct {
	dir            string
	watcher        *fsnotify.Watcher
	debouncer      *Debouncer
	ignorePatterns []string
	events         chan Event
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	// own maps note id to the hash of the content this process last wrote
	mu  sync.Mutex
	own map[string]string
}

// New creates a watcher for dir. Paths matching ignorePatterns, relative
// to dir, are never reported.
func New(dir string, debounceMs int, ignorePatterns []string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:            dir,
		watcher:        fsWatcher,
		debouncer:      NewDebouncer(debounceMs),
		ignorePatterns: ignorePatterns,
		events:         make(chan Event, 100),
		stopCh:         make(chan struct{}),
		own:            make(map[string]string),
	}, nil
}

// Attach makes w ignore the writes fs itself performs
func (w *Watcher) Attach(fs *filestore.Store) {
	fs.SetWriteHook(w.Suppress)
}

// Suppress records content about to be written to path by this process so
// the resulting file events are not reported
func (w *Watcher) Suppress(path string, data []byte) {
	if filepath.Dir(path) != filepath.Clean(w.dir) {
		return
	}
	id, ok := filestore.NoteIDFromPath(path)
	if !ok {
		return
	}

	w.mu.Lock()
	w.own[id] = contentHash(data)
	w.mu.Unlock()
}

// Start begins watching the directory
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.deliver(ctx)

	slog.Info("watcher started",
		"path", w.dir,
		"ignore_patterns", len(w.ignorePatterns))

	return nil
}

// Events returns the channel of note events. It is closed after Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and waits for its goroutines
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.debouncer.Stop()
		err = w.watcher.Close()
		w.wg.Wait()
		close(w.events)
	})
	return err
}

// processEvents handles fsnotify events
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			relPath, err := filepath.Rel(w.dir, event.Name)
			if err != nil {
				continue
			}
			relPath = filepath.ToSlash(relPath)

			if w.shouldIgnore(relPath) {
				continue
			}

			id, ok := filestore.NoteIDFromPath(event.Name)
			if !ok {
				continue
			}

			w.handleEvent(event, id)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// handleEvent maps a single fsnotify event onto the debouncer
func (w *Watcher) handleEvent(event fsnotify.Event, id string) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.debouncer.Add(id, Changed)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.debouncer.Add(id, Removed)
	case event.Has(fsnotify.Chmod):
		// Ignore chmod events
	}
}

// deliver checks each debounced event against the file on disk. The file's
// presence decides the kind, and content this process wrote is dropped.
func (w *Watcher) deliver(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev := <-w.debouncer.Events():
			out, ok := w.resolve(ev)
			if !ok {
				continue
			}
			select {
			case w.events <- out:
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Watcher) resolve(ev Event) (Event, bool) {
	hash, err := w.noteHash(ev.NoteID)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case errors.Is(err, os.ErrNotExist):
		delete(w.own, ev.NoteID)
		ev.Kind = Removed
	case err != nil:
		slog.Warn("failed to hash note file", "note_id", ev.NoteID, "error", err)
		return ev, false
	case w.own[ev.NoteID] == hash:
		slog.Debug("ignoring own write", "note_id", ev.NoteID)
		return ev, false
	default:
		ev.Kind = Changed
	}

	slog.Debug("note changed on disk", "note_id", ev.NoteID, "kind", ev.Kind)
	return ev, true
}

// noteHash hashes the stored file of a note as it is on disk now
func (w *Watcher) noteHash(id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, id+filestore.FileExt))
	if err != nil {
		return "", err
	}
	return contentHash(data), nil
}

func contentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// shouldIgnore checks if a path matches any ignore pattern
func (w *Watcher) shouldIgnore(relPath string) bool {
	for _, pattern := range w.ignorePatterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Flush emits all pending debounced events now
func (w *Watcher) Flush() {
	w.debouncer.Flush()
}
