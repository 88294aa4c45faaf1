// Package pdfinfo answers document-level questions (validity, page count,
// page dimensions) and renders page images for the OCR backends. PDFs are
// inspected with pdfcpu; page rasterisation shells out to poppler's
// pdftoppm, the same renderer the original deployment bundles.
package pdfinfo

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// RenderDPI is the resolution page images are rasterised at. Annotation
// geometry is stored in pixels at this resolution for OCR-based methods.
const RenderDPI = 300

// PageSize is one page's dimensions.
type PageSize struct {
	// Width and Height are in PDF points (1/72 inch) for PDFs, or raw
	// pixels for image inputs.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PixelWidth converts the page width to pixels at the given DPI.
func (p PageSize) PixelWidth(dpi int) int { return int(p.Width * float64(dpi) / 72.0) }

// PixelHeight converts the page height to pixels at the given DPI.
func (p PageSize) PixelHeight(dpi int) int { return int(p.Height * float64(dpi) / 72.0) }

// Document is an opened input file: a PDF or a single-page image.
type Document struct {
	Path      string
	Name      string // base name without extension
	IsPDF     bool
	PageCount int
	Sizes     []PageSize // index 0 = page 1
}

// imageExtensions lists the accepted single-page image inputs.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
}

// Open inspects an input file. PDFs are read with pdfcpu in relaxed
// validation mode; images are probed for their pixel dimensions.
func Open(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if imageExtensions[ext] {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return nil, fmt.Errorf("decode image %s: %w", path, err)
		}
		return &Document{
			Path:      path,
			Name:      name,
			PageCount: 1,
			Sizes: []PageSize{{
				// Image inputs are already pixels; store them as points at
				// render DPI so pixel conversion is the identity.
				Width:  float64(cfg.Width) * 72.0 / RenderDPI,
				Height: float64(cfg.Height) * 72.0 / RenderDPI,
			}},
		}, nil
	}

	if ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", path, err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("page dimensions for %s: %w", path, err)
	}

	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}

	return &Document{
		Path:      path,
		Name:      name,
		IsPDF:     true,
		PageCount: ctx.PageCount,
		Sizes:     sizes,
	}, nil
}

// Size returns the dimensions of a 1-indexed page, falling back to US
// Letter when the page is unknown.
func (d *Document) Size(page int) PageSize {
	if page >= 1 && page <= len(d.Sizes) {
		return d.Sizes[page-1]
	}
	return PageSize{Width: 612, Height: 792}
}

// RenderPage produces a PNG of one page in workDir and returns its bytes.
// Image inputs are returned as-is; PDFs go through pdftoppm.
func (d *Document) RenderPage(page int, workDir string) ([]byte, error) {
	if !d.IsPDF {
		return os.ReadFile(d.Path)
	}

	prefix := filepath.Join(workDir, fmt.Sprintf("%s_p%d", d.Name, page))
	cmd := exec.Command("pdftoppm",
		"-png",
		"-r", strconv.Itoa(RenderDPI),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		d.Path, prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}

// Validate checks that a file is a structurally sound PDF.
func Validate(path string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		logrus.WithError(err).WithField("file", path).Debug("pdf validation failed")
		return fmt.Errorf("invalid pdf %s: %w", path, err)
	}
	return nil
}
