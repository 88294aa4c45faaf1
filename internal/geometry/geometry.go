// Package geometry provides the pixel-space box arithmetic shared by the
// extraction, annotation, and review packages. All boxes are in absolute
// pixel units for the page size they were created under; zoom changes are a
// view concern and never reinterpret stored boxes.
package geometry

import "fmt"

// Box is an axis-aligned rectangle in absolute pixel coordinates.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the right edge of the box.
func (b Box) Right() int { return b.Left + b.Width }

// Bottom returns the bottom edge of the box.
func (b Box) Bottom() int { return b.Top + b.Height }

// Area returns the box area in square pixels.
func (b Box) Area() int { return b.Width * b.Height }

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// String formats the box as (left,top)-(right,bottom).
func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Left, b.Top, b.Right(), b.Bottom())
}

// FromFraction converts a page-fraction bounding box (values in [0,1]) into
// absolute pixel coordinates by multiplying by the page dimensions and
// truncating to integers. Truncation, not rounding, matters: downstream
// outputs must be byte-for-byte comparable with previously generated results.
func FromFraction(left, top, width, height float64, pageWidth, pageHeight int) Box {
	return Box{
		Left:   int(left * float64(pageWidth)),
		Top:    int(top * float64(pageHeight)),
		Width:  int(width * float64(pageWidth)),
		Height: int(height * float64(pageHeight)),
	}
}

// Contains reports whether b fully contains other.
func (b Box) Contains(other Box) bool {
	return other.Left >= b.Left && other.Top >= b.Top &&
		other.Right() <= b.Right() && other.Bottom() <= b.Bottom()
}

// Intersects reports whether the two boxes overlap with positive area.
func (b Box) Intersects(other Box) bool {
	return b.Left < other.Right() && other.Left < b.Right() &&
		b.Top < other.Bottom() && other.Top < b.Bottom()
}

// ClampTo limits the box to the page rectangle [0,pageWidth]x[0,pageHeight].
// An annotation must never extend past the page it was detected on.
func (b Box) ClampTo(pageWidth, pageHeight int) Box {
	out := b
	if out.Left < 0 {
		out.Width += out.Left
		out.Left = 0
	}
	if out.Top < 0 {
		out.Height += out.Top
		out.Top = 0
	}
	if out.Right() > pageWidth {
		out.Width = pageWidth - out.Left
	}
	if out.Bottom() > pageHeight {
		out.Height = pageHeight - out.Top
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// SubSpan projects a character range [start,end) of a line of runeCount runes
// onto a horizontal slice of the line's box. It is used when a detected
// entity covers only part of an OCR line and no word-level geometry matched.
func (b Box) SubSpan(start, end, runeCount int) Box {
	if runeCount <= 0 || start >= end {
		return Box{Left: b.Left, Top: b.Top, Width: 0, Height: b.Height}
	}
	if start < 0 {
		start = 0
	}
	if end > runeCount {
		end = runeCount
	}
	left := b.Left + int(float64(b.Width)*float64(start)/float64(runeCount))
	right := b.Left + int(float64(b.Width)*float64(end)/float64(runeCount))
	return Box{Left: left, Top: b.Top, Width: right - left, Height: b.Height}
}

// Union returns the smallest box containing both inputs.
func Union(a, b Box) Box {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	left := min(a.Left, b.Left)
	top := min(a.Top, b.Top)
	right := max(a.Right(), b.Right())
	bottom := max(a.Bottom(), b.Bottom())
	return Box{Left: left, Top: top, Width: right - left, Height: bottom - top}
}
