package markup

import (
	"testing"

	"github.com/vonshlovens/flownotes/internal/note"
)

func TestToMarkup_Empty(t *testing.T) {
	if got := ToMarkup(nil); got != Empty {
		t.Errorf("ToMarkup(nil) = %q, want %q", got, Empty)
	}
	if got := ToMarkup([]note.Block{}); got != Empty {
		t.Errorf("ToMarkup([]) = %q, want %q", got, Empty)
	}
}

func TestToMarkup_Order(t *testing.T) {
	blocks := []note.Block{
		{ID: "b", Content: "second", Order: 1},
		{ID: "a", Content: "first", Order: 0},
		{ID: "c", Content: "third <b>bold</b>", Order: 2},
	}

	expected := "<p>first</p><p>second</p><p>third <b>bold</b></p>"
	if got := ToMarkup(blocks); got != expected {
		t.Errorf("ToMarkup() = %q, want %q", got, expected)
	}
}

func TestFromMarkup_Sentinel(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"sentinel", Empty},
		{"no paragraphs", "<div>loose text</div>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := FromMarkup(tt.markup)
			if len(blocks) != 1 {
				t.Fatalf("expected 1 block, got %d", len(blocks))
			}
			b := blocks[0]
			if b.Content != "" || b.Order != 0 || b.Type != note.BlockText || b.ID == "" {
				t.Errorf("unexpected sentinel block: %+v", b)
			}
		})
	}
}

func TestFromMarkup_Paragraphs(t *testing.T) {
	blocks := FromMarkup("<p>one</p><p>two <em>with</em> markup</p><p></p><p>line<br>break</p>")

	expected := []string{"one", "two with markup", "", "line\nbreak"}
	if len(blocks) != len(expected) {
		t.Fatalf("expected %d blocks, got %d", len(expected), len(blocks))
	}
	for i, want := range expected {
		if blocks[i].Content != want {
			t.Errorf("block %d content = %q, want %q", i, blocks[i].Content, want)
		}
		if blocks[i].Order != i {
			t.Errorf("block %d order = %d", i, blocks[i].Order)
		}
		if blocks[i].Type != note.BlockText {
			t.Errorf("block %d type = %q", i, blocks[i].Type)
		}
	}
}

func TestRoundTrip_ContentStableNotIdentityStable(t *testing.T) {
	original := []note.Block{
		{ID: "x1", Type: note.BlockText, Content: "alpha", Order: 0},
		{ID: "x2", Type: note.BlockText, Content: "beta", Order: 1},
		{ID: "x3", Type: note.BlockText, Content: "gamma", Order: 2},
	}

	got := FromMarkup(ToMarkup(original))
	if len(got) != len(original) {
		t.Fatalf("block count changed: %d -> %d", len(original), len(got))
	}
	for i := range original {
		if got[i].Content != original[i].Content {
			t.Errorf("block %d content %q != %q", i, got[i].Content, original[i].Content)
		}
		if got[i].Order != original[i].Order {
			t.Errorf("block %d order %d != %d", i, got[i].Order, original[i].Order)
		}
		if got[i].ID == original[i].ID {
			t.Errorf("block %d kept id %q; conversion should mint new ids", i, got[i].ID)
		}
	}

	again := FromMarkup(ToMarkup(original))
	for i := range got {
		if again[i].ID == got[i].ID {
			t.Errorf("second conversion reused id %q", got[i].ID)
		}
	}
}

func TestReconcile(t *testing.T) {
	heading := note.Block{ID: "h", Type: note.BlockHeading, Content: "Title", Order: 0}
	prev := []note.Block{
		heading,
		{ID: "p1", Type: note.BlockText, Content: "one", Order: 1},
		{ID: "p2", Type: note.BlockText, Content: "two", Order: 2},
	}

	t.Run("unchanged keeps everything", func(t *testing.T) {
		got := Reconcile(prev, FromMarkup(ToMarkup(prev)))
		for i := range prev {
			if got[i].ID != prev[i].ID || got[i].Type != prev[i].Type {
				t.Errorf("block %d: got %+v, want id %q type %q", i, got[i], prev[i].ID, prev[i].Type)
			}
		}
	})

	t.Run("matched list keeps children", func(t *testing.T) {
		list := []note.Block{{
			ID: "l", Type: note.BlockList, Content: "parent", Order: 0,
			Children: []note.Block{{ID: "c", Type: note.BlockList, Content: "child", Order: 0}},
		}}
		got := Reconcile(list, FromMarkup("<p>parent</p><p>after</p>"))
		if got[0].Type != note.BlockList || len(got[0].Children) != 1 || got[0].Children[0].ID != "c" {
			t.Errorf("expected children to carry over, got %+v", got[0])
		}
		if len(got[1].Children) != 0 {
			t.Errorf("new paragraph should have no children: %+v", got[1])
		}
	})

	t.Run("edited in place keeps id", func(t *testing.T) {
		got := Reconcile(prev, FromMarkup("<p>Title</p><p>one edited</p><p>two</p>"))
		ids := []string{"h", "p1", "p2"}
		for i, id := range ids {
			if got[i].ID != id {
				t.Errorf("block %d id = %q, want %q", i, got[i].ID, id)
			}
		}
		if got[1].Content != "one edited" {
			t.Errorf("content not taken from parsed: %q", got[1].Content)
		}
	})

	t.Run("inserted paragraph gets new id", func(t *testing.T) {
		got := Reconcile(prev, FromMarkup("<p>Title</p><p>new</p><p>one</p><p>two</p>"))
		if len(got) != 4 {
			t.Fatalf("expected 4 blocks, got %d", len(got))
		}
		if got[0].ID != "h" || got[2].ID != "p1" || got[3].ID != "p2" {
			t.Errorf("existing ids not preserved: %+v", got)
		}
		for _, old := range prev {
			if got[1].ID == old.ID {
				t.Errorf("inserted block reused id %q", old.ID)
			}
		}
		for i, b := range got {
			if b.Order != i {
				t.Errorf("block %d order = %d", i, b.Order)
			}
		}
	})

	t.Run("deleted paragraph drops its id", func(t *testing.T) {
		got := Reconcile(prev, FromMarkup("<p>Title</p><p>two</p>"))
		if len(got) != 2 || got[0].ID != "h" || got[1].ID != "p2" {
			t.Errorf("unexpected result: %+v", got)
		}
	})
}
