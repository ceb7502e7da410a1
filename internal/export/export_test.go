package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/store/filestore"
)

func sampleNote() *note.Note {
	return &note.Note{
		ID:    "note_1",
		Title: "Groceries",
		Blocks: []note.Block{
			{ID: "b2", Type: note.BlockText, Content: "eggs", Order: 1},
			{ID: "b1", Type: note.BlockHeading, Content: "List", Order: 0},
			{ID: "b3", Type: note.BlockText, Content: "milk", Order: 2},
		},
		CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 16, 12, 30, 0, 0, time.UTC),
		Tags:      []string{"home"},
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(sampleNote())
	expected := "# Groceries\n\nList\n\neggs\n\nmilk"
	if got != expected {
		t.Errorf("Markdown() = %q, want %q", got, expected)
	}
}

func TestMarkdown_NoBlocks(t *testing.T) {
	got := Markdown(&note.Note{Title: "Empty"})
	if got != "# Empty\n\n" {
		t.Errorf("Markdown() = %q", got)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Groceries", "Groceries.md"},
		{"", "Untitled.md"},
		{"   ", "Untitled.md"},
		{"a/b\\c", "a-b-c.md"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := Filename(tt.title); got != tt.expected {
				t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.expected)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, sampleNote())
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if filepath.Base(path) != "Groceries.md" {
		t.Errorf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if string(data) != Markdown(sampleNote()) {
		t.Errorf("file content = %q", data)
	}
}

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
		wantTags  []string
		wantBody  string
		hasDate   bool
	}{
		{
			name:     "no frontmatter",
			content:  "# Hello\n\nWorld",
			wantBody: "# Hello\n\nWorld",
		},
		{
			name:      "title and tag list",
			content:   "---\ntitle: Test\ntags:\n  - a\n  - b\n---\nbody",
			wantTitle: "Test",
			wantTags:  []string{"a", "b"},
			wantBody:  "body",
		},
		{
			name:     "single tag string",
			content:  "---\ntags: solo\n---\nbody",
			wantTags: []string{"solo"},
			wantBody: "body",
		},
		{
			name:     "date",
			content:  "---\ncreated: 2024-01-15\n---\nbody",
			wantBody: "body",
			hasDate:  true,
		},
		{
			name:     "invalid yaml",
			content:  "---\ntitle: [unclosed\n---\nbody",
			wantBody: "---\ntitle: [unclosed\n---\nbody",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body := ParseFrontmatter(tt.content)

			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			title := ""
			if fm.Title != nil {
				title = *fm.Title
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if strings.Join(fm.Tags, ",") != strings.Join(tt.wantTags, ",") {
				t.Errorf("tags = %v, want %v", fm.Tags, tt.wantTags)
			}
			if (fm.Created != nil) != tt.hasDate {
				t.Errorf("created = %v, want set=%v", fm.Created, tt.hasDate)
			}
		})
	}
}

func TestImport_Blocks(t *testing.T) {
	content := strings.Join([]string{
		"# Trip",
		"",
		"## Packing",
		"",
		"Bring a jacket.",
		"",
		"- [x] passport",
		"- [ ] tickets",
		"",
		"* socks",
		"  * wool",
		"",
		"```",
		"ls -la",
		"```",
		"",
		"---",
		"",
		"![map](img/map.png)",
	}, "\n")

	imp := Import(content, "trip.md")
	if imp.Title != "Trip" {
		t.Errorf("title = %q, want Trip", imp.Title)
	}

	expected := []struct {
		typ     note.BlockType
		content string
	}{
		{note.BlockHeading, "Packing"},
		{note.BlockText, "Bring a jacket."},
		{note.BlockTodo, "passport"},
		{note.BlockTodo, "tickets"},
		{note.BlockList, "socks"},
		{note.BlockCode, "ls -la"},
		{note.BlockDivider, ""},
		{note.BlockImage, "map"},
	}
	if len(imp.Blocks) != len(expected) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(expected), len(imp.Blocks), imp.Blocks)
	}
	for i, e := range expected {
		b := imp.Blocks[i]
		if b.Type != e.typ || b.Content != e.content {
			t.Errorf("block %d = %s %q, want %s %q", i, b.Type, b.Content, e.typ, e.content)
		}
		if b.Order != i {
			t.Errorf("block %d has order %d", i, b.Order)
		}
	}

	if c := imp.Blocks[2].Checked; c == nil || !*c {
		t.Error("passport should be checked")
	}
	if c := imp.Blocks[3].Checked; c == nil || *c {
		t.Error("tickets should be unchecked")
	}
	if kids := imp.Blocks[4].Children; len(kids) != 1 || kids[0].Content != "wool" {
		t.Errorf("expected nested wool item, got %+v", kids)
	}
	if fp := imp.Blocks[7].FilePath; fp == nil || *fp != "img/map.png" {
		t.Errorf("image file path = %v", fp)
	}

	n := &note.Note{ID: "x", Blocks: imp.Blocks}
	if err := n.Validate(); err != nil {
		t.Errorf("imported blocks invalid: %v", err)
	}
}

func TestImport_Title(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		filename   string
		wantTitle  string
		wantBlocks int
	}{
		{"leading h1", "# Plan\n\nstep", "x.md", "Plan", 1},
		{"filename stem", "just text", "dir/My Note.md", "My Note", 1},
		{"frontmatter wins", "---\ntitle: Real\n---\n# Other\n\ntext", "x.md", "Real", 2},
		{"matching h1 consumed", "---\ntitle: Same\n---\n# Same\n\ntext", "x.md", "Same", 1},
		{"h2 is not a title", "## Sub\n\ntext", "note.md", "note", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := Import(tt.content, tt.filename)
			if imp.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", imp.Title, tt.wantTitle)
			}
			if len(imp.Blocks) != tt.wantBlocks {
				t.Errorf("expected %d blocks, got %d", tt.wantBlocks, len(imp.Blocks))
			}
		})
	}
}

func TestDocument_ImportKeepsMetadata(t *testing.T) {
	n := sampleNote()
	doc, err := Document(n)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if !strings.HasPrefix(doc, "---\n") {
		t.Fatalf("expected frontmatter, got %q", doc)
	}

	imp := Import(doc, "whatever.md")
	if imp.Title != n.Title {
		t.Errorf("title = %q, want %q", imp.Title, n.Title)
	}
	if len(imp.Tags) != 1 || imp.Tags[0] != "home" {
		t.Errorf("tags = %v", imp.Tags)
	}
	if imp.Modified == nil || !imp.Modified.Equal(n.UpdatedAt) {
		t.Errorf("modified = %v, want %v", imp.Modified, n.UpdatedAt)
	}
	if got := note.Contents(imp.Blocks); strings.Join(got, "|") != "List|eggs|milk" {
		t.Errorf("contents = %v", got)
	}
}

func TestExportAll_ImportDir(t *testing.T) {
	ctx := context.Background()

	src, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New failed: %v", err)
	}
	for _, title := range []string{"Ideas", "Ideas"} {
		if _, err := src.CreateNote(ctx, title); err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
	}

	dir := t.TempDir()
	count, err := ExportAll(ctx, src, dir, nil)
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 exported notes, got %d", count)
	}
	for _, name := range []string{"Ideas.md", "Ideas 1.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	// Editor leftovers are not matched
	os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("nope"), 0644)

	dst, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New failed: %v", err)
	}
	imported, err := ImportDir(ctx, dst, dir, []string{"**/*.md"}, nil)
	if err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("expected 2 imported notes, got %d", len(imported))
	}

	list, err := dst.ListNotes(ctx)
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	titles := map[string]bool{}
	for _, m := range list {
		titles[m.Title] = true
	}
	if !titles["Ideas"] || !titles["Ideas 1"] {
		t.Errorf("unexpected titles %v", titles)
	}
}

func TestImportDir_BadPattern(t *testing.T) {
	dst, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New failed: %v", err)
	}
	if _, err := ImportDir(context.Background(), dst, t.TempDir(), []string{"[unclosed"}, nil); err == nil {
		t.Error("expected an error for a malformed pattern")
	}
}
