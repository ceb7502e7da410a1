package pdf

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestAnnotation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		a       Annotation
		wantErr bool
	}{
		{"valid highlight", Annotation{ID: "a", Type: Highlight, Page: 1, Rect: Rect{0, 0, 10, 5}}, false},
		{"missing id", Annotation{Type: Comment, Page: 1}, true},
		{"unknown type", Annotation{ID: "a", Type: "scribble", Page: 1}, true},
		{"zero page", Annotation{ID: "a", Type: Drawing, Page: 0}, true},
		{"negative width", Annotation{ID: "a", Type: Drawing, Page: 2, Rect: Rect{0, 0, -1, 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAnnotation) {
				t.Errorf("expected ErrInvalidAnnotation, got %v", err)
			}
		})
	}
}

func TestOverlay_ForPage(t *testing.T) {
	o := NewOverlay(NewDocument("paper.pdf", "/tmp/paper.pdf", 3))

	for _, a := range []Annotation{
		{ID: "a1", Type: Highlight, Page: 1},
		{ID: "a2", Type: Comment, Page: 2, Content: strPtr("check this")},
		{ID: "a3", Type: Drawing, Page: 1},
	} {
		if err := o.Add(a); err != nil {
			t.Fatalf("Add(%s) failed: %v", a.ID, err)
		}
	}

	page1 := o.ForPage(1)
	if len(page1) != 2 || page1[0].ID != "a1" || page1[1].ID != "a3" {
		t.Errorf("unexpected page 1 annotations: %+v", page1)
	}
	if len(o.ForPage(3)) != 0 {
		t.Error("expected no annotations on page 3")
	}

	if err := o.Add(Annotation{ID: "a4", Type: Highlight, Page: 4}); !errors.Is(err, ErrInvalidAnnotation) {
		t.Errorf("expected out-of-range page to be rejected, got %v", err)
	}
}

func TestOverlay_Remove(t *testing.T) {
	o := NewOverlay(NewDocument("a.pdf", "a.pdf", 0))
	_ = o.Add(Annotation{ID: "a1", Type: Highlight, Page: 1})
	_ = o.Add(Annotation{ID: "a2", Type: Highlight, Page: 1})

	before := o.Document().UpdatedAt
	time.Sleep(time.Millisecond)

	if !o.Remove("a1") {
		t.Fatal("expected a1 to be removed")
	}
	if !o.Document().UpdatedAt.After(before) {
		t.Error("expected remove to refresh updated_at")
	}
	stamp := o.Document().UpdatedAt
	if o.Remove("a1") {
		t.Error("second remove should report false")
	}
	if !o.Document().UpdatedAt.Equal(stamp) {
		t.Error("failed remove should not touch updated_at")
	}
	if got := o.ForPage(1); len(got) != 1 || got[0].ID != "a2" {
		t.Errorf("unexpected annotations after remove: %+v", got)
	}
}

func TestDocument_Upsert(t *testing.T) {
	doc := NewDocument("a.pdf", "a.pdf", 2)
	before := doc.UpdatedAt

	doc.Upsert(Annotation{ID: "a1", Type: Comment, Page: 1, Content: strPtr("first")})
	doc.Upsert(Annotation{ID: "a1", Type: Comment, Page: 1, Content: strPtr("second")})
	doc.Upsert(Annotation{ID: "a2", Type: Highlight, Page: 2})

	if len(doc.Annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(doc.Annotations))
	}
	if *doc.Annotations[0].Content != "second" {
		t.Errorf("expected replacement by id, got %q", *doc.Annotations[0].Content)
	}
	if doc.UpdatedAt.Before(before) {
		t.Error("expected UpdatedAt to move forward")
	}
}

func TestOverlay_DoesNotAliasDocument(t *testing.T) {
	doc := NewDocument("a.pdf", "a.pdf", 1)
	o := NewOverlay(doc)
	_ = o.Add(Annotation{ID: "a1", Type: Highlight, Page: 1})

	if len(doc.Annotations) != 0 {
		t.Error("overlay mutated the source document")
	}
	if len(o.Document().Annotations) != 1 {
		t.Error("expected overlay document to hold the annotation")
	}
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		expected Rect
	}{
		{"empty", nil, Rect{}},
		{"single", []Point{{5, 5}}, Rect{5, 5, 0, 0}},
		{"diagonal", []Point{{10, 20}, {30, 5}, {15, 40}}, Rect{10, 5, 20, 35}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bounds(tt.points); got != tt.expected {
				t.Errorf("Bounds() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStroke(t *testing.T) {
	t.Run("drag produces drawing", func(t *testing.T) {
		var s Stroke
		s.Begin(2, "#ff0000")
		s.Point(10, 10)
		s.Point(50, 30)
		s.Point(20, 60)

		a, ok := s.Release()
		if !ok {
			t.Fatal("expected an annotation")
		}
		if a.Type != Drawing || a.Page != 2 {
			t.Errorf("unexpected annotation: %+v", a)
		}
		if a.Rect != (Rect{10, 10, 40, 50}) {
			t.Errorf("unexpected rect: %v", a.Rect)
		}
		if a.Color == nil || *a.Color != "#ff0000" {
			t.Errorf("expected color to be kept, got %v", a.Color)
		}
		if err := a.Validate(); err != nil {
			t.Errorf("released annotation is invalid: %v", err)
		}
	})

	t.Run("single point yields nothing", func(t *testing.T) {
		var s Stroke
		s.Begin(1, "")
		s.Point(3, 3)
		if _, ok := s.Release(); ok {
			t.Error("expected no annotation for a click")
		}
	})

	t.Run("points outside a stroke are ignored", func(t *testing.T) {
		var s Stroke
		s.Point(1, 1)
		s.Point(2, 2)
		if _, ok := s.Release(); ok {
			t.Error("expected no annotation without Begin")
		}
		if s.Drawing() {
			t.Error("should not be drawing")
		}
	})
}
