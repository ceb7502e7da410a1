// Package export writes notes out as markdown files and reads markdown files back in as notes.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/store"
)

// Markdown renders the note as a level-one title followed by its block
// contents in order, separated by blank lines
func Markdown(n *note.Note) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(n.Title)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(note.Contents(n.Blocks), "\n\n"))
	return sb.String()
}

// Document is Markdown preceded by a YAML frontmatter header, so a later
// Import keeps the title, tags and timestamps
func Document(n *note.Note) (string, error) {
	fm, err := renderFrontmatter(n)
	if err != nil {
		return "", fmt.Errorf("failed to render frontmatter: %w", err)
	}
	return fm + Markdown(n), nil
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-")

// Filename returns the download name for a note title
func Filename(title string) string {
	name := strings.TrimSpace(filenameReplacer.Replace(title))
	if name == "" {
		name = store.DefaultHeading
	}
	return name + ".md"
}

// WriteFile writes the plain markdown export of n into dir and returns the file path
func WriteFile(dir string, n *note.Note) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, Filename(n.Title))
	if err := os.WriteFile(path, []byte(Markdown(n)), 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// ExportAll writes every note in s into dir with frontmatter. Notes sharing a
// filename get a numeric suffix. Progress is drawn on progress when not nil.
func ExportAll(ctx context.Context, s store.Store, dir string, progress io.Writer) (int, error) {
	notes, err := s.ListNotes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list notes: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	bar := newBar(len(notes), "Exporting notes", progress)

	used := make(map[string]bool, len(notes))
	written := 0
	for _, m := range notes {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := s.LoadNote(ctx, m.ID)
		if err != nil {
			slog.Warn("failed to load note for export", "note_id", m.ID, "error", err)
			bar.Add(1)
			continue
		}

		doc, err := Document(n)
		if err != nil {
			return written, err
		}

		name := uniqueFilename(n.Title, used)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written++
		bar.Add(1)
	}

	bar.Finish()
	slog.Info("export completed", "dir", dir, "notes", written)
	return written, nil
}

// uniqueFilename picks "Title.md", then "Title 1.md", "Title 2.md" and so on
func uniqueFilename(title string, used map[string]bool) string {
	base := strings.TrimSuffix(Filename(title), ".md")
	name := base + ".md"
	for i := 1; used[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s %d.md", base, i)
	}
	used[strings.ToLower(name)] = true
	return name
}

func newBar(total int, description string, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(w),
		progressbar.OptionClearOnFinish(),
	)
}
