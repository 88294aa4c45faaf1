package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/geometry"
	"github.com/docsweep/docsweep/internal/lists"
)

func sampleLine() extract.Line {
	return extract.Line{
		Page: 1,
		Text: "Dear John Smith",
		Box:  geometry.Box{Left: 100, Top: 200, Width: 300, Height: 20},
		Words: []extract.Word{
			{Text: "Dear", Box: geometry.Box{Left: 100, Top: 200, Width: 80, Height: 20}},
			{Text: "John", Box: geometry.Box{Left: 190, Top: 200, Width: 80, Height: 20}},
			{Text: "Smith", Box: geometry.Box{Left: 280, Top: 200, Width: 120, Height: 20}},
		},
	}
}

func personEntity() detect.Entity {
	return detect.Entity{Type: detect.TypePerson, Text: "John Smith", Score: 0.9, Start: 5, End: 15}
}

func TestBuildPageProjectsWordBoxes(t *testing.T) {
	b := &Builder{Lists: &lists.Lists{}}

	anns := b.BuildPage(1, 1000, 1000, nil, []LineEntities{
		{Line: sampleLine(), Entities: []detect.Entity{personEntity()}},
	})

	require.Len(t, anns, 1)
	a := anns[0]
	assert.Equal(t, "PERSON", a.Label)
	assert.Equal(t, "John Smith", a.Text)
	// Union of the "John" and "Smith" word boxes, not the full line.
	assert.Equal(t, 190, a.Box.Left)
	assert.Equal(t, 400, a.Box.Right())
	assert.NotEmpty(t, a.ID)
}

func TestBuildPageProportionalFallback(t *testing.T) {
	line := sampleLine()
	line.Words = nil // no word geometry available
	b := &Builder{}

	anns := b.BuildPage(1, 1000, 1000, nil, []LineEntities{
		{Line: line, Entities: []detect.Entity{personEntity()}},
	})

	require.Len(t, anns, 1)
	box := anns[0].Box
	assert.Greater(t, box.Left, line.Box.Left, "sub-span starts after line start")
	assert.LessOrEqual(t, box.Right(), line.Box.Right())
}

func TestBuildPageAllowListSuppression(t *testing.T) {
	b := &Builder{Lists: &lists.Lists{Allow: []string{"john smith"}}}

	anns := b.BuildPage(1, 1000, 1000, nil, []LineEntities{
		{Line: sampleLine(), Entities: []detect.Entity{personEntity()}},
	})

	assert.Empty(t, anns, "allow-listed text must not survive")
}

func TestBuildPageFullPageOverride(t *testing.T) {
	b := &Builder{Lists: &lists.Lists{FullPages: []int{1}}}

	anns := b.BuildPage(1, 612, 792, nil, []LineEntities{
		{Line: sampleLine(), Entities: []detect.Entity{personEntity()}},
	})

	require.Len(t, anns, 1, "exactly one full-page box regardless of detections")
	assert.Equal(t, FullPageLabel, anns[0].Label)
	assert.Equal(t, geometry.Box{Left: 0, Top: 0, Width: 612, Height: 792}, anns[0].Box)
}

func TestBuildPageHandwritingOptOut(t *testing.T) {
	ocr := &extract.Result{
		Page: 1,
		Handwriting: []extract.Detection{{
			Kind: extract.KindHandwriting, Text: "scrawl", Score: 90,
			Box: geometry.Box{Left: 10, Top: 10, Width: 50, Height: 10},
		}},
	}

	on := &Builder{RedactHandwriting: true}
	anns := on.BuildPage(1, 612, 792, ocr, nil)
	require.Len(t, anns, 1)
	assert.Equal(t, "HANDWRITING", anns[0].Label)

	off := &Builder{RedactHandwriting: false}
	assert.Empty(t, off.BuildPage(1, 612, 792, ocr, nil),
		"handwriting opted out yields no annotation even though detected")
}

func TestBuildPageSignatureOptOut(t *testing.T) {
	ocr := &extract.Result{
		Page: 1,
		Signatures: []extract.Detection{{
			Kind: extract.KindSignature, Text: "SIGNATURE", Score: 88,
			Box: geometry.Box{Left: 400, Top: 700, Width: 150, Height: 40},
		}},
	}

	on := &Builder{RedactSignatures: true}
	require.Len(t, on.BuildPage(1, 612, 792, ocr, nil), 1)

	off := &Builder{}
	assert.Empty(t, off.BuildPage(1, 612, 792, ocr, nil))
}

func TestBuildPageContainmentDedup(t *testing.T) {
	line := sampleLine()
	// Whole-line entity first, then a word-level entity contained in it.
	whole := detect.Entity{Type: detect.TypeCustom, Text: "Dear John Smith", Start: 0, End: 15}
	inner := personEntity()

	b := &Builder{}
	anns := b.BuildPage(1, 1000, 1000, nil, []LineEntities{
		{Line: line, Entities: []detect.Entity{whole, inner}},
	})

	require.Len(t, anns, 1, "contained duplicate dropped")
	assert.Equal(t, "CUSTOM", anns[0].Label)
}

func TestBuildPageDeterministic(t *testing.T) {
	b := &Builder{}
	in := []LineEntities{{Line: sampleLine(), Entities: []detect.Entity{personEntity()}}}

	a := b.BuildPage(1, 1000, 1000, nil, in)
	c := b.BuildPage(1, 1000, 1000, nil, in)
	assert.Equal(t, a, c, "same inputs produce identical annotations, IDs included")
}

func TestBuildPageBoxesWithinPage(t *testing.T) {
	line := sampleLine()
	line.Box = geometry.Box{Left: 950, Top: 980, Width: 300, Height: 50} // overhangs page
	line.Words = nil

	b := &Builder{}
	anns := b.BuildPage(1, 1000, 1000, nil, []LineEntities{
		{Line: line, Entities: []detect.Entity{{Type: detect.TypeCustom, Text: "x", Start: 0, End: 15}}},
	})

	for _, a := range anns {
		assert.LessOrEqual(t, a.Box.Right(), 1000)
		assert.LessOrEqual(t, a.Box.Bottom(), 1000)
	}
}

func TestPageSetRemoveAndClone(t *testing.T) {
	s := NewPageSet(2)
	s.SetPage(1, []Annotation{{ID: "a", Page: 1}, {ID: "b", Page: 1}})

	clone := s.Clone()
	require.True(t, s.Remove(1, "a"))
	assert.Len(t, s.Page(1), 1)
	assert.Len(t, clone.Page(1), 2, "clone unaffected by removal")

	assert.False(t, s.Remove(1, "missing"))
	assert.False(t, s.Remove(9, "a"))
}
