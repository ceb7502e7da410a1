// Package pdf models imported PDF documents and the annotation overlay drawn on top of them.
package pdf

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAnnotation = errors.New("invalid annotation")

// AnnotationType is the kind of mark placed on a page
type AnnotationType string

const (
	Highlight AnnotationType = "highlight"
	Comment   AnnotationType = "comment"
	Drawing   AnnotationType = "drawing"
)

// Valid reports whether t is a known annotation type
func (t AnnotationType) Valid() bool {
	switch t {
	case Highlight, Comment, Drawing:
		return true
	default:
		return false
	}
}

// Rect is [x, y, width, height] in page coordinates
type Rect [4]float64

// Annotation is one mark on one page of a document
type Annotation struct {
	ID      string         `json:"id"`
	Type    AnnotationType `json:"annotation_type"`
	Content *string        `json:"content,omitempty"`
	Page    int            `json:"page"`
	Rect    Rect           `json:"rect"`
	Color   *string        `json:"color,omitempty"`
}

// Document is an imported PDF and its annotations
type Document struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Pages       int          `json:"pages"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Annotations []Annotation `json:"annotations"`
}

// NewID mints a document id
func NewID() string {
	return "pdf_" + uuid.NewString()
}

// NewAnnotationID mints an annotation id
func NewAnnotationID() string {
	return "ann_" + uuid.NewString()
}

// NewDocument builds an empty document record
func NewDocument(name, path string, pages int) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:          NewID(),
		Name:        name,
		Path:        path,
		Pages:       pages,
		CreatedAt:   now,
		UpdatedAt:   now,
		Annotations: []Annotation{},
	}
}

// Validate checks the annotation's own fields
func (a *Annotation) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidAnnotation)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAnnotation, a.Type)
	}
	if a.Page < 1 {
		return fmt.Errorf("%w: page %d is not 1-based", ErrInvalidAnnotation, a.Page)
	}
	if a.Rect[2] < 0 || a.Rect[3] < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidAnnotation)
	}
	return nil
}

// Upsert replaces the annotation with the same id or appends it, then refreshes UpdatedAt
func (d *Document) Upsert(a Annotation) {
	d.UpdatedAt = time.Now().UTC()
	for i := range d.Annotations {
		if d.Annotations[i].ID == a.ID {
			d.Annotations[i] = a
			return
		}
	}
	d.Annotations = append(d.Annotations, a)
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Annotations = make([]Annotation, len(d.Annotations))
	for i, a := range d.Annotations {
		c.Annotations[i] = a
		if a.Content != nil {
			v := *a.Content
			c.Annotations[i].Content = &v
		}
		if a.Color != nil {
			v := *a.Color
			c.Annotations[i].Color = &v
		}
	}
	return &c
}
