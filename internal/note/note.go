package note

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// BlockType identifies how a block is rendered by the editor
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockHeading BlockType = "heading"
	BlockTodo    BlockType = "todo"
	BlockList    BlockType = "list"
	BlockDivider BlockType = "divider"
	BlockImage   BlockType = "image"
	BlockPDF     BlockType = "pdf"
	BlockCode    BlockType = "code"
)

// Valid reports whether t is one of the known block types
func (t BlockType) Valid() bool {
	switch t {
	case BlockText, BlockHeading, BlockTodo, BlockList, BlockDivider, BlockImage, BlockPDF, BlockCode:
		return true
	default:
		return false
	}
}

// Block is an atomic content unit within a note
type Block struct {
	ID       string    `json:"id"`
	Type     BlockType `json:"type"`
	Content  string    `json:"content"`
	Checked  *bool     `json:"checked,omitempty"`
	FilePath *string   `json:"file_path,omitempty"`
	Children []Block   `json:"children,omitempty"`
	Order    int       `json:"order"`
}

// Note is a titled, ordered sequence of blocks
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags,omitempty"`
	FolderID  string    `json:"folder_id,omitempty"`
}

// Metadata is a Note without its blocks, used for listings
type Metadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags,omitempty"`
	FolderID  string    `json:"folder_id,omitempty"`
}

// NewBlockID mints a block id. Ids are never reused.
func NewBlockID() string {
	return "block_" + uuid.NewString()
}

// NewNoteID mints a note id for stores that assign their own
func NewNoteID() string {
	return "note_" + uuid.NewString()
}

// Metadata projects the note without blocks
func (n *Note) Metadata() Metadata {
	return Metadata{
		ID:        n.ID,
		Title:     n.Title,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		Tags:      append([]string(nil), n.Tags...),
		FolderID:  n.FolderID,
	}
}

// Validate checks the block invariants: known types and unique ids across the whole tree
func (n *Note) Validate() error {
	seen := make(map[string]bool)
	var check func(blocks []Block) error
	check = func(blocks []Block) error {
		for _, b := range blocks {
			if b.ID == "" {
				return fmt.Errorf("block with empty id in note %s", n.ID)
			}
			if seen[b.ID] {
				return fmt.Errorf("duplicate block id %s in note %s", b.ID, n.ID)
			}
			seen[b.ID] = true
			if !b.Type.Valid() {
				return fmt.Errorf("block %s has unknown type %q", b.ID, b.Type)
			}
			if err := check(b.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return check(n.Blocks)
}

// Clone returns a deep copy of the note
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Blocks = cloneBlocks(n.Blocks)
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	return &c
}

func cloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		if b.Checked != nil {
			v := *b.Checked
			out[i].Checked = &v
		}
		if b.FilePath != nil {
			v := *b.FilePath
			out[i].FilePath = &v
		}
		out[i].Children = cloneBlocks(b.Children)
	}
	return out
}

// SortBlocks returns the blocks ordered by Order. Ties keep their original position.
func SortBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Renumber rewrites Order to follow the current slice positions
func Renumber(blocks []Block) []Block {
	for i := range blocks {
		blocks[i].Order = i
	}
	return blocks
}

// InsertBlock inserts a fresh block of type t at position at and renumbers.
// Positions outside the slice clamp to the ends.
func InsertBlock(blocks []Block, at int, t BlockType) ([]Block, Block) {
	ordered := SortBlocks(blocks)
	if at < 0 {
		at = 0
	}
	if at > len(ordered) {
		at = len(ordered)
	}

	b := Block{ID: NewBlockID(), Type: t}
	if t == BlockTodo {
		unchecked := false
		b.Checked = &unchecked
	}

	ordered = append(ordered, Block{})
	copy(ordered[at+1:], ordered[at:])
	ordered[at] = b
	Renumber(ordered)
	return ordered, ordered[at]
}

// Contents returns block contents in render order
func Contents(blocks []Block) []string {
	ordered := SortBlocks(blocks)
	out := make([]string, len(ordered))
	for i, b := range ordered {
		out[i] = b.Content
	}
	return out
}
