package pdf

import (
	"fmt"
	"math"
	"time"
)

// Overlay holds the annotations shown over a document while it is open
type Overlay struct {
	doc *Document
}

// NewOverlay wraps a copy of doc
func NewOverlay(doc *Document) *Overlay {
	return &Overlay{doc: doc.Clone()}
}

// Document returns a copy of the current document state
func (o *Overlay) Document() *Document {
	return o.doc.Clone()
}

// Add appends a new annotation. Pages beyond the document's page count are rejected
// when the count is known.
func (o *Overlay) Add(a Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if o.doc.Pages > 0 && a.Page > o.doc.Pages {
		return fmt.Errorf("%w: page %d of %d", ErrInvalidAnnotation, a.Page, o.doc.Pages)
	}
	o.doc.Upsert(a)
	return nil
}

// Remove deletes the annotation with id and refreshes UpdatedAt. Unknown ids are ignored.
func (o *Overlay) Remove(id string) bool {
	for i, a := range o.doc.Annotations {
		if a.ID == id {
			o.doc.Annotations = append(o.doc.Annotations[:i:i], o.doc.Annotations[i+1:]...)
			o.doc.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// ForPage returns the annotations drawn on the 1-based page, in insertion order
func (o *Overlay) ForPage(page int) []Annotation {
	var out []Annotation
	for _, a := range o.doc.Annotations {
		if a.Page == page {
			out = append(out, a)
		}
	}
	return out
}

// Point is a pointer position in page coordinates
type Point struct {
	X, Y float64
}

// Bounds returns the axis-aligned bounding rect of points
func Bounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}

// Stroke records one freehand drawing gesture: press, drag, release
type Stroke struct {
	page    int
	color   *string
	points  []Point
	drawing bool
}

// Begin starts a stroke on page. Any stroke in progress is discarded.
func (s *Stroke) Begin(page int, color string) {
	s.page = page
	s.points = s.points[:0]
	s.drawing = true
	s.color = nil
	if color != "" {
		s.color = &color
	}
}

// Point adds a pointer sample. Samples outside a stroke are ignored.
func (s *Stroke) Point(x, y float64) {
	if !s.drawing {
		return
	}
	s.points = append(s.points, Point{X: x, Y: y})
}

// Drawing reports whether a stroke is in progress
func (s *Stroke) Drawing() bool {
	return s.drawing
}

// Release ends the stroke. A stroke with fewer than two points yields no annotation.
func (s *Stroke) Release() (*Annotation, bool) {
	if !s.drawing {
		return nil, false
	}
	s.drawing = false
	if len(s.points) < 2 {
		return nil, false
	}

	a := &Annotation{
		ID:    NewAnnotationID(),
		Type:  Drawing,
		Page:  s.page,
		Rect:  Bounds(s.points),
		Color: s.color,
	}
	return a, true
}
