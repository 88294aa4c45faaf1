package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/geometry"
)

// TextLayerExtractor reads the embedded text layer of a born-digital PDF.
// No OCR is involved, so it is the fastest method, but it finds nothing on
// scanned pages. Coordinates come out in PDF points with a bottom-up origin
// and are flipped to the top-down pixel space used everywhere else.
type TextLayerExtractor struct {
	log *logrus.Entry
}

// NewTextLayerExtractor builds a text-layer extractor.
func NewTextLayerExtractor() *TextLayerExtractor {
	return &TextLayerExtractor{log: logrus.WithField("component", "textlayer")}
}

// Name returns the backend identifier.
func (e *TextLayerExtractor) Name() Method { return MethodTextLayer }

// ExtractPage reads the positioned text of one page from the PDF at
// in.PDFPath.
func (e *TextLayerExtractor) ExtractPage(ctx context.Context, in PageInput) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(in.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: open pdf: %v", ErrPageFailed, in.Page, err)
	}
	defer f.Close()

	if in.Page < 1 || in.Page > reader.NumPage() {
		return nil, fmt.Errorf("%w: page %d out of range (1-%d)", ErrPageFailed, in.Page, reader.NumPage())
	}

	page := reader.Page(in.Page)
	if page.V.IsNull() {
		// An empty page is a valid result, not a failure.
		return &Result{Page: in.Page}, nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: read text layer: %v", ErrPageFailed, in.Page, err)
	}

	res := &Result{Page: in.Page}
	lineNo := 0
	for _, row := range rows {
		line, ok := rowToLine(row, in.Page, in.PageHeight)
		if !ok {
			continue
		}
		lineNo++
		line.Number = lineNo
		res.Lines = append(res.Lines, line)
	}
	e.log.WithFields(logrus.Fields{
		"page":  in.Page,
		"lines": len(res.Lines),
	}).Debug("text layer read")
	return res, nil
}

// rowToLine flattens one text row into a Line. Word geometry is derived
// proportionally from character offsets since the text layer has no word
// grouping of its own.
func rowToLine(row *pdf.Row, page, pageHeight int) (Line, bool) {
	var (
		sb       strings.Builder
		minX     float64
		maxX     float64
		topY     float64
		fontSize float64
		first    = true
	)

	for _, t := range row.Content {
		if t.S == "" {
			continue
		}
		if first {
			minX, maxX = t.X, t.X+t.W
			topY = t.Y
			fontSize = t.FontSize
			first = false
		} else {
			if t.X < minX {
				minX = t.X
			}
			if t.X+t.W > maxX {
				maxX = t.X + t.W
			}
			if t.FontSize > fontSize {
				fontSize = t.FontSize
			}
		}
		sb.WriteString(t.S)
	}

	text := strings.TrimSpace(sb.String())
	if first || text == "" {
		return Line{}, false
	}

	// PDF origin is bottom-left; flip to top-down.
	box := geometry.Box{
		Left:   int(minX),
		Top:    pageHeight - int(topY) - int(fontSize),
		Width:  int(maxX - minX),
		Height: int(fontSize),
	}

	line := Line{Page: page, Text: text, Box: box}

	runes := []rune(text)
	offset := 0
	for _, wordText := range strings.Fields(text) {
		start := indexFrom(runes, []rune(wordText), offset)
		if start < 0 {
			break
		}
		end := start + len([]rune(wordText))
		line.Words = append(line.Words, Word{
			Text: wordText,
			Box:  box.SubSpan(start, end, len(runes)),
		})
		offset = end
	}
	return line, true
}

// indexFrom finds the rune index of needle in haystack at or after from.
func indexFrom(haystack, needle []rune, from int) int {
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
