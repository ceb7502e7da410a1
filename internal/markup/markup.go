// Package markup converts between block lists and the flat paragraph markup
// the rich-text editor surface operates on.
package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vonshlovens/flownotes/internal/note"
)

// Empty is the markup for a document with no blocks. The editor always needs
// at least one paragraph to hold the caret.
const Empty = "<p></p>"

// ToMarkup renders each block as one paragraph in Order sequence.
// Content is emitted verbatim; escaping belongs to the editor engine.
func ToMarkup(blocks []note.Block) string {
	if len(blocks) == 0 {
		return Empty
	}

	var sb strings.Builder
	for _, b := range note.SortBlocks(blocks) {
		sb.WriteString("<p>")
		sb.WriteString(b.Content)
		sb.WriteString("</p>")
	}
	return sb.String()
}

// FromMarkup parses paragraph units into text blocks. Every call mints new
// block ids, so converting the same markup twice yields different ids.
func FromMarkup(markup string) []note.Block {
	paragraphs := paragraphs(markup)
	if len(paragraphs) == 0 {
		return []note.Block{{ID: note.NewBlockID(), Type: note.BlockText, Content: "", Order: 0}}
	}

	blocks := make([]note.Block, len(paragraphs))
	for i, text := range paragraphs {
		blocks[i] = note.Block{
			ID:      note.NewBlockID(),
			Type:    note.BlockText,
			Content: text,
			Order:   i,
		}
	}
	return blocks
}

// paragraphs returns the text content of every <p> element in document order
func paragraphs(markup string) []string {
	if strings.TrimSpace(markup) == "" {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			out = append(out, textContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
