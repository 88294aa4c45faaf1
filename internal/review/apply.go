package review

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/annotate"
	"github.com/docsweep/docsweep/internal/pdfinfo"
)

// Apply burns the annotation set into a redacted output PDF. Each page is
// rasterised, the boxes are painted solid black over the pixels, and the
// flattened pages are reassembled into a new PDF. Flattening is the point:
// the output carries no text layer, so redacted content is gone rather than
// hidden.
//
// pageSpace gives the coordinate space the annotations were created in for
// a 1-indexed page; boxes are rescaled from that space to the rendered
// image before painting.
func Apply(doc *pdfinfo.Document, set *annotate.PageSet, pageSpace func(page int) (w, h int), workDir, outPath string) error {
	log := logrus.WithFields(logrus.Fields{"document": doc.Name, "output": outPath})

	var pageFiles []string
	for page := 1; page <= doc.PageCount; page++ {
		raw, err := doc.RenderPage(page, workDir)
		if err != nil {
			return fmt.Errorf("render page %d: %w", page, err)
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("decode page %d: %w", page, err)
		}

		spaceW, spaceH := pageSpace(page)
		painted := paintBoxes(img, set.Page(page), spaceW, spaceH)

		out := filepath.Join(workDir, fmt.Sprintf("%s_redacted_p%d.png", doc.Name, page))
		if err := writePNG(out, painted); err != nil {
			return fmt.Errorf("write page %d: %w", page, err)
		}
		pageFiles = append(pageFiles, out)
	}

	if err := api.ImportImagesFile(pageFiles, outPath, nil, nil); err != nil {
		return fmt.Errorf("assemble redacted pdf: %w", err)
	}
	log.WithField("pages", len(pageFiles)).Info("redacted pdf written")
	return nil
}

// paintBoxes returns a copy of img with each annotation box filled black,
// scaled from the annotation's coordinate space to the image's.
func paintBoxes(img image.Image, anns []annotate.Annotation, spaceW, spaceH int) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	if spaceW <= 0 || spaceH <= 0 {
		return out
	}
	sx := float64(bounds.Dx()) / float64(spaceW)
	sy := float64(bounds.Dy()) / float64(spaceH)

	black := image.NewUniform(color.Black)
	for _, a := range anns {
		r := image.Rect(
			bounds.Min.X+int(float64(a.Box.Left)*sx),
			bounds.Min.Y+int(float64(a.Box.Top)*sy),
			bounds.Min.X+int(float64(a.Box.Right())*sx),
			bounds.Min.Y+int(float64(a.Box.Bottom())*sy),
		)
		draw.Draw(out, r.Intersect(bounds), black, image.Point{}, draw.Src)
	}
	return out
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
