package redact

import (
	"fmt"

	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/pdfinfo"
)

// DocumentSource adapts an opened document to the controller's PageSource.
// OCR methods get a rendered page image in render-DPI pixel space; the text
// layer method works on the PDF directly in point space.
type DocumentSource struct {
	Doc     *pdfinfo.Document
	Method  extract.Method
	WorkDir string
}

func (s *DocumentSource) PageCount() int { return s.Doc.PageCount }

func (s *DocumentSource) PageInput(page int) (extract.PageInput, error) {
	size := s.Doc.Size(page)
	in := extract.PageInput{Page: page}

	if s.Method == extract.MethodTextLayer {
		if !s.Doc.IsPDF {
			return in, fmt.Errorf("text layer extraction needs a PDF, got %s", s.Doc.Path)
		}
		in.PDFPath = s.Doc.Path
		in.PageWidth = int(size.Width)
		in.PageHeight = int(size.Height)
		return in, nil
	}

	img, err := s.Doc.RenderPage(page, s.WorkDir)
	if err != nil {
		return in, fmt.Errorf("render page %d: %w", page, err)
	}
	in.ImageBytes = img
	in.PageWidth = size.PixelWidth(pdfinfo.RenderDPI)
	in.PageHeight = size.PixelHeight(pdfinfo.RenderDPI)
	return in, nil
}
