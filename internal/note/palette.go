package note

import "strings"

// PaletteEntry is one insertable block type in the command palette
type PaletteEntry struct {
	Type     BlockType
	Label    string
	Keywords []string
}

var palette = []PaletteEntry{
	{Type: BlockText, Label: "Text", Keywords: []string{"paragraph", "plain"}},
	{Type: BlockHeading, Label: "Heading", Keywords: []string{"title", "h1", "section"}},
	{Type: BlockTodo, Label: "To-do", Keywords: []string{"task", "checkbox", "check"}},
	{Type: BlockList, Label: "List", Keywords: []string{"bullet", "item"}},
	{Type: BlockDivider, Label: "Divider", Keywords: []string{"rule", "separator", "hr"}},
	{Type: BlockImage, Label: "Image", Keywords: []string{"picture", "photo"}},
	{Type: BlockPDF, Label: "PDF", Keywords: []string{"document", "attachment"}},
	{Type: BlockCode, Label: "Code", Keywords: []string{"snippet", "monospace"}},
}

// Palette returns all insertable block types in display order
func Palette() []PaletteEntry {
	out := make([]PaletteEntry, len(palette))
	copy(out, palette)
	return out
}

// FilterPalette matches entries whose label starts with query or whose
// keywords contain it, ignoring case. An empty query matches everything.
func FilterPalette(query string) []PaletteEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Palette()
	}

	var out []PaletteEntry
	for _, e := range palette {
		if strings.HasPrefix(strings.ToLower(e.Label), q) || strings.HasPrefix(string(e.Type), q) {
			out = append(out, e)
			continue
		}
		for _, kw := range e.Keywords {
			if strings.Contains(kw, q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
