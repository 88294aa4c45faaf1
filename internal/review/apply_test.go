package review

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsweep/docsweep/internal/annotate"
	"github.com/docsweep/docsweep/internal/geometry"
)

func TestPaintBoxesFillsScaledRegion(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			src.Set(x, y, color.White)
		}
	}

	// Annotation space is 100x100, image is 200x200: boxes scale 2x.
	anns := []annotate.Annotation{{
		Box: geometry.Box{Left: 10, Top: 10, Width: 20, Height: 20},
	}}
	out := paintBoxes(src, anns, 100, 100)

	r, g, b, _ := out.At(30, 30).RGBA()
	assert.Zero(t, r+g+b, "inside the scaled box is black")

	r, g, b, _ = out.At(10, 10).RGBA()
	assert.NotZero(t, r+g+b, "outside the scaled box is untouched")
}

func TestPaintBoxesClampsToImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	anns := []annotate.Annotation{{
		Box: geometry.Box{Left: 40, Top: 40, Width: 100, Height: 100},
	}}

	out := paintBoxes(src, anns, 50, 50)
	assert.Equal(t, image.Rect(0, 0, 50, 50), out.Bounds())
}

func TestPaintBoxesDegenerateSpace(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	out := paintBoxes(src, nil, 0, 0)
	assert.NotNil(t, out)
}
