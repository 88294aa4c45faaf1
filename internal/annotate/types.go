// Package annotate converts detector output plus OCR geometry into
// page-scoped redaction-box annotations and applies the user's list
// policies: allow-list suppression, deny-list forced inclusion, full-page
// overrides, and the handwriting/signature opt-outs.
package annotate

import (
	"fmt"
	"hash/fnv"

	"github.com/docsweep/docsweep/internal/geometry"
)

// FullPageLabel is the label given to a whole-page redaction box.
const FullPageLabel = "Redaction"

// Annotation is one page-scoped, geometry-only redaction record.
type Annotation struct {
	ID    string       `json:"id"`
	Page  int          `json:"page"`
	Label string       `json:"label"`
	Text  string       `json:"text"`
	Box   geometry.Box `json:"box"`
}

// annotationID derives a stable identity from the annotation's content and
// its ordinal on the page, so re-running detection over unchanged input
// yields an identical annotation list.
func annotationID(page int, label, text string, box geometry.Box, ordinal int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s|%v|%d", page, label, text, box, ordinal)
	return fmt.Sprintf("%016x", h.Sum64())
}

// PageSet is the whole document's annotations, ordered by page. Page
// numbers are 1-indexed and bound the set's length.
type PageSet struct {
	pages [][]Annotation
}

// NewPageSet creates a set covering numPages pages.
func NewPageSet(numPages int) *PageSet {
	if numPages < 0 {
		numPages = 0
	}
	return &PageSet{pages: make([][]Annotation, numPages)}
}

// NumPages returns the number of pages the set covers.
func (s *PageSet) NumPages() int { return len(s.pages) }

// Page returns the annotations stored for a 1-indexed page.
func (s *PageSet) Page(n int) []Annotation {
	if n < 1 || n > len(s.pages) {
		return nil
	}
	return s.pages[n-1]
}

// SetPage replaces the annotations for a 1-indexed page, growing the set if
// the document turned out longer than first thought.
func (s *PageSet) SetPage(n int, annotations []Annotation) {
	if n < 1 {
		return
	}
	for len(s.pages) < n {
		s.pages = append(s.pages, nil)
	}
	s.pages[n-1] = annotations
}

// All returns every annotation in page order.
func (s *PageSet) All() []Annotation {
	var out []Annotation
	for _, page := range s.pages {
		out = append(out, page...)
	}
	return out
}

// Count returns the total number of annotations.
func (s *PageSet) Count() int {
	n := 0
	for _, page := range s.pages {
		n += len(page)
	}
	return n
}

// Clone deep-copies the set; used by the review reconciler's undo buffer.
func (s *PageSet) Clone() *PageSet {
	out := &PageSet{pages: make([][]Annotation, len(s.pages))}
	for i, page := range s.pages {
		if page == nil {
			continue
		}
		out.pages[i] = make([]Annotation, len(page))
		copy(out.pages[i], page)
	}
	return out
}

// Remove deletes the annotation with the given ID from the given page and
// reports whether anything was removed.
func (s *PageSet) Remove(page int, id string) bool {
	if page < 1 || page > len(s.pages) {
		return false
	}
	anns := s.pages[page-1]
	for i, a := range anns {
		if a.ID == id {
			s.pages[page-1] = append(anns[:i:i], anns[i+1:]...)
			return true
		}
	}
	return false
}
