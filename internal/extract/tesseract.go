package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/geometry"
)

// TesseractExtractor performs local OCR with Tesseract. It produces the same
// line/word shape as the cloud backend; Tesseract reports pixel coordinates
// directly so no fractional conversion is involved.
type TesseractExtractor struct {
	Language string
	log      *logrus.Entry
}

// NewTesseractExtractor builds a local OCR extractor for the given language
// (a Tesseract language code such as "eng").
func NewTesseractExtractor(language string) *TesseractExtractor {
	if language == "" {
		language = "eng"
	}
	return &TesseractExtractor{
		Language: language,
		log:      logrus.WithField("component", "tesseract"),
	}
}

// Name returns the backend identifier.
func (e *TesseractExtractor) Name() Method { return MethodTesseract }

// ExtractPage runs OCR on the page image and groups word boxes into lines.
func (e *TesseractExtractor) ExtractPage(ctx context.Context, in PageInput) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.Language); err != nil {
		return nil, fmt.Errorf("%w: page %d: set language: %v", ErrPageFailed, in.Page, err)
	}
	if err := client.SetImageFromBytes(in.ImageBytes); err != nil {
		return nil, fmt.Errorf("%w: page %d: set image: %v", ErrPageFailed, in.Page, err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: ocr: %v", ErrPageFailed, in.Page, err)
	}

	return groupWordsIntoLines(boxes, in.Page), nil
}

type lineKey struct {
	block, par, line int
}

// groupWordsIntoLines assembles Tesseract's word-level output into ordered
// lines. The line box is the union of its word boxes.
func groupWordsIntoLines(boxes []gosseract.BoundingBox, page int) *Result {
	grouped := make(map[lineKey][]gosseract.BoundingBox)
	order := make([]lineKey, 0)

	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		key := lineKey{block: b.BlockNum, par: b.ParNum, line: b.LineNum}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], b)
	}

	res := &Result{Page: page}
	for i, key := range order {
		words := grouped[key]
		sort.Slice(words, func(a, b int) bool { return words[a].WordNum < words[b].WordNum })

		var (
			texts   []string
			lineBox geometry.Box
			lws     []Word
		)
		for _, w := range words {
			box := geometry.Box{
				Left:   w.Box.Min.X,
				Top:    w.Box.Min.Y,
				Width:  w.Box.Dx(),
				Height: w.Box.Dy(),
			}
			texts = append(texts, strings.TrimSpace(w.Word))
			lineBox = geometry.Union(lineBox, box)
			lws = append(lws, Word{
				Text:       strings.TrimSpace(w.Word),
				Box:        box,
				Confidence: w.Confidence,
			})
		}

		res.Lines = append(res.Lines, Line{
			Page:   page,
			Number: i + 1,
			Text:   strings.Join(texts, " "),
			Box:    lineBox,
			Words:  lws,
		})
	}
	return res
}
