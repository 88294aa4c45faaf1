package annotate

import (
	"fmt"
	"strings"

	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/geometry"
	"github.com/docsweep/docsweep/internal/lists"
)

// Builder merges OCR geometry with entity spans into page annotations.
// Construction is deterministic: stable insertion order, no randomness.
type Builder struct {
	Lists *lists.Lists

	// RedactHandwriting / RedactSignatures mirror the user's extraction
	// options; when false, the corresponding detections are dropped here
	// even though they were detected and audited.
	RedactHandwriting bool
	RedactSignatures  bool
}

// LineEntities pairs one OCR line with the entities detected in its text.
type LineEntities struct {
	Line     extract.Line
	Entities []detect.Entity
}

// BuildPage produces the final annotation list for one page, applying in
// order: allow-list suppression, full-page override, handwriting/signature
// opt-outs, then duplicate suppression by geometric containment.
func (b *Builder) BuildPage(page, pageWidth, pageHeight int, ocr *extract.Result, detected []LineEntities) []Annotation {
	var raw []Annotation

	for _, le := range detected {
		for _, e := range le.Entities {
			box := b.entityBox(le.Line, e).ClampTo(pageWidth, pageHeight)
			if box.Empty() {
				continue
			}
			raw = append(raw, Annotation{
				Page:  page,
				Label: string(e.Type),
				Text:  e.Text,
				Box:   box,
			})
		}
	}

	if ocr != nil {
		if b.RedactHandwriting {
			raw = append(raw, detectionAnnotations(page, pageWidth, pageHeight, ocr.Handwriting)...)
		}
		if b.RedactSignatures {
			raw = append(raw, detectionAnnotations(page, pageWidth, pageHeight, ocr.Signatures)...)
		}
	}

	// (1) Allow-list suppression.
	if b.Lists != nil {
		kept := raw[:0]
		for _, a := range raw {
			if b.Lists.AllowsText(a.Text) {
				continue
			}
			kept = append(kept, a)
		}
		raw = kept
	}

	// (2) Full-page override replaces everything on a listed page.
	if b.Lists != nil && b.Lists.IsFullPage(page) {
		full := Annotation{
			Page:  page,
			Label: FullPageLabel,
			Box:   geometry.Box{Left: 0, Top: 0, Width: pageWidth, Height: pageHeight},
		}
		full.ID = annotationID(page, full.Label, full.Text, full.Box, 0)
		return []Annotation{full}
	}

	// (3) Duplicate suppression: a box fully contained in an earlier box on
	// the same page is redundant; identical boxes keep the first.
	raw = dropContained(raw)

	for i := range raw {
		raw[i].ID = annotationID(page, raw[i].Label, raw[i].Text, raw[i].Box, i)
	}
	return raw
}

// entityBox projects an entity span onto geometry. Word boxes are used when
// the line carries them and the span aligns with whole words; otherwise the
// box is a proportional sub-span of the line.
func (b *Builder) entityBox(line extract.Line, e detect.Entity) geometry.Box {
	runes := []rune(line.Text)
	if e.Start <= 0 && e.End >= len(runes) {
		return line.Box
	}

	if covered := coveredWords(line, e); !covered.Empty() {
		return covered
	}
	return line.Box.SubSpan(e.Start, e.End, len(runes))
}

// coveredWords unions the boxes of words whose offsets overlap the entity
// span. Returns an empty box when word offsets cannot be established.
func coveredWords(line extract.Line, e detect.Entity) geometry.Box {
	if len(line.Words) == 0 {
		return geometry.Box{}
	}

	var out geometry.Box
	offset := 0
	lineRunes := []rune(line.Text)
	for _, w := range line.Words {
		wordRunes := []rune(w.Text)
		start := indexRunes(lineRunes, wordRunes, offset)
		if start < 0 {
			return geometry.Box{}
		}
		end := start + len(wordRunes)
		if start < e.End && e.Start < end {
			out = geometry.Union(out, w.Box)
		}
		offset = end
	}
	return out
}

func indexRunes(haystack, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// detectionAnnotations converts handwriting/signature detections into
// annotations labelled with their kind.
func detectionAnnotations(page, pageWidth, pageHeight int, ds []extract.Detection) []Annotation {
	var out []Annotation
	for _, d := range ds {
		box := d.Box.ClampTo(pageWidth, pageHeight)
		if box.Empty() {
			continue
		}
		out = append(out, Annotation{
			Page:  page,
			Label: string(d.Kind),
			Text:  d.Text,
			Box:   box,
		})
	}
	return out
}

// dropContained removes annotations whose box is fully contained in an
// earlier annotation's box. Stable: survivors keep insertion order.
func dropContained(anns []Annotation) []Annotation {
	var kept []Annotation
	for _, a := range anns {
		contained := false
		for _, k := range kept {
			if k.Box.Contains(a.Box) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

// LabelSummary counts annotations by label for status reporting.
func LabelSummary(anns []Annotation) string {
	counts := make(map[string]int)
	var order []string
	for _, a := range anns {
		if counts[a.Label] == 0 {
			order = append(order, a.Label)
		}
		counts[a.Label]++
	}
	var parts []string
	for _, label := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[label], strings.ToLower(label)))
	}
	return strings.Join(parts, ", ")
}
