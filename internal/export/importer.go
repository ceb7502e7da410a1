package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/store"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.TaskList))

	// taskPrefixRegex matches the checkbox marker left in task item source lines
	taskPrefixRegex = regexp.MustCompile(`^\[[ xX]\]\s?`)
)

// Imported is a note parsed from a markdown file, not yet stored
type Imported struct {
	Title    string
	Tags     []string
	Blocks   []note.Block
	Created  *time.Time
	Modified *time.Time
}

// Import parses markdown content into typed blocks. The title comes from the
// frontmatter, then a leading level-one heading, then the filename stem. A
// leading level-one heading is consumed as the title unless it disagrees
// with a frontmatter title.
func Import(content, filename string) *Imported {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	fm, body := ParseFrontmatter(content)

	src := []byte(body)
	doc := md.Parser().Parse(text.NewReader(src))

	imp := &Imported{
		Tags:     MergeTags(fm.Tags, extractInlineTags(body)),
		Created:  fm.Created,
		Modified: fm.Modified,
	}
	if fm.Title != nil {
		imp.Title = strings.TrimSpace(*fm.Title)
	}

	first := doc.FirstChild()
	if h, ok := first.(*ast.Heading); ok && h.Level == 1 {
		heading := linesText(h, src)
		if imp.Title == "" || imp.Title == heading {
			imp.Title = heading
			first = first.NextSibling()
		}
	}

	if imp.Title == "" {
		base := filepath.Base(filename)
		imp.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for n := first; n != nil; n = n.NextSibling() {
		imp.Blocks = append(imp.Blocks, convert(n, src)...)
	}
	note.Renumber(imp.Blocks)
	return imp
}

// convert maps one top-level markdown node to blocks
func convert(n ast.Node, src []byte) []note.Block {
	switch node := n.(type) {
	case *ast.Heading:
		return []note.Block{newBlock(note.BlockHeading, linesText(node, src))}

	case *ast.Paragraph:
		if img, ok := soleImage(node); ok {
			b := newBlock(note.BlockImage, string(img.Text(src)))
			dest := string(img.Destination)
			b.FilePath = &dest
			return []note.Block{b}
		}
		return []note.Block{newBlock(note.BlockText, linesText(node, src))}

	case *ast.List:
		return listBlocks(node, src)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return []note.Block{newBlock(note.BlockCode, linesText(node, src))}

	case *ast.ThematicBreak:
		return []note.Block{newBlock(note.BlockDivider, "")}

	default:
		content := strings.TrimSpace(nodeText(n, src))
		if content == "" {
			return nil
		}
		return []note.Block{newBlock(note.BlockText, content)}
	}
}

// listBlocks turns each item into a list or todo block. Nested lists become Children.
func listBlocks(list *ast.List, src []byte) []note.Block {
	var blocks []note.Block
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		b := newBlock(note.BlockList, "")
		var parts []string

		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.List:
				b.Children = append(b.Children, listBlocks(child, src)...)
			default:
				if checked, ok := taskState(child); ok && len(parts) == 0 {
					b.Type = note.BlockTodo
					b.Checked = &checked
				}
				parts = append(parts, linesText(child, src))
			}
		}

		b.Content = strings.Join(parts, "\n")
		if b.Type == note.BlockTodo {
			b.Content = taskPrefixRegex.ReplaceAllString(b.Content, "")
		}
		note.Renumber(b.Children)
		blocks = append(blocks, b)
	}
	return blocks
}

// taskState reports the checkbox of a task item's first text block
func taskState(n ast.Node) (bool, bool) {
	if n.Kind() != ast.KindTextBlock && n.Kind() != ast.KindParagraph {
		return false, false
	}
	if box, ok := n.FirstChild().(*extast.TaskCheckBox); ok {
		return box.IsChecked, true
	}
	return false, false
}

func soleImage(p *ast.Paragraph) (*ast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return img, ok
}

// linesText returns the raw source lines of a block node
func linesText(n ast.Node, src []byte) string {
	lines := n.Lines()
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// nodeText collects the source lines of n and its block descendants
func nodeText(n ast.Node, src []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}
	if n.Lines().Len() > 0 {
		return linesText(n, src)
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := nodeText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func newBlock(t note.BlockType, content string) note.Block {
	return note.Block{ID: note.NewBlockID(), Type: t, Content: content}
}

// ImportDir creates a note for every file under dir matching one of the
// doublestar patterns. Files that fail to import are logged and skipped.
func ImportDir(ctx context.Context, s store.Store, dir string, patterns []string, progress io.Writer) ([]note.Metadata, error) {
	fsys := os.DirFS(dir)

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid import pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	bar := newBar(len(files), "Importing notes", progress)

	var imported []note.Metadata
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return imported, err
		}

		n, err := importFile(ctx, s, filepath.Join(dir, filepath.FromSlash(rel)))
		bar.Add(1)
		if err != nil {
			slog.Warn("failed to import file", "path", rel, "error", err)
			continue
		}
		slog.Debug("file imported", "path", rel, "note_id", n.ID)
		imported = append(imported, n.Metadata())
	}

	bar.Finish()
	slog.Info("import completed", "dir", dir, "notes", len(imported), "files", len(files))
	return imported, nil
}

func importFile(ctx context.Context, s store.Store, path string) (*note.Note, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	imp := Import(string(content), path)
	if imp.Modified == nil {
		if info, err := os.Stat(path); err == nil {
			modTime := info.ModTime()
			imp.Modified = &modTime
		}
	}

	n, err := s.CreateNote(ctx, imp.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	if len(imp.Blocks) > 0 {
		n.Blocks = imp.Blocks
	}
	n.Tags = imp.Tags
	if imp.Created != nil {
		n.CreatedAt = imp.Created.UTC()
	}
	if imp.Modified != nil {
		n.UpdatedAt = imp.Modified.UTC()
	}

	if err := s.SaveNote(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save note: %w", err)
	}
	return n, nil
}
