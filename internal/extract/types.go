// Package extract turns document pages into normalized, line-level OCR
// results with absolute pixel geometry. Three interchangeable backends are
// provided: AWS Textract (cloud), Tesseract (local OCR), and the PDF text
// layer (local, no OCR). Everything downstream of this package is
// backend-agnostic.
package extract

import (
	"context"
	"errors"

	"github.com/docsweep/docsweep/internal/geometry"
)

// Method identifies the text extraction backend.
type Method string

const (
	MethodTextLayer Method = "text"
	MethodTesseract Method = "tesseract"
	MethodTextract  Method = "textract"
)

// ErrPageFailed wraps unrecoverable per-page extraction failures. The
// controller records these in the decision table and moves to the next page.
var ErrPageFailed = errors.New("page extraction failed")

// DetectionKind distinguishes the special detections that can override the
// default redaction behaviour per user choice.
type DetectionKind string

const (
	KindHandwriting DetectionKind = "HANDWRITING"
	KindSignature   DetectionKind = "SIGNATURE"
)

// Word is one recognized word with its own geometry.
type Word struct {
	Text        string       `json:"text"`
	Box         geometry.Box `json:"bounding_box"`
	Confidence  float64      `json:"confidence"`
	Handwriting bool         `json:"handwriting,omitempty"`
}

// Line is one line of recognized text on a page. Lines are created by an
// extractor and never mutated afterwards.
type Line struct {
	Page   int          `json:"page"`
	Number int          `json:"line"`
	Text   string       `json:"text"`
	Box    geometry.Box `json:"bounding_box"`
	Words  []Word       `json:"words,omitempty"`
}

// Detection is a handwriting- or signature-flagged item surfaced by the
// extractor even when no PII is present, so that a "redact all handwriting"
// or "redact all signatures" policy can act on it later.
type Detection struct {
	Kind  DetectionKind `json:"kind"`
	Text  string        `json:"text"`
	Score float64       `json:"score"`
	Start int           `json:"start"`
	End   int           `json:"end"`
	Box   geometry.Box  `json:"bounding_box"`
}

// Result is the normalized output for a single page.
type Result struct {
	Page        int         `json:"page"`
	Lines       []Line      `json:"lines"`
	Handwriting []Detection `json:"handwriting,omitempty"`
	Signatures  []Detection `json:"signatures,omitempty"`

	// CloudQueries is the number of billable service calls this page cost.
	// Zero for local backends and cache hits.
	CloudQueries int `json:"-"`
}

// PageInput carries everything an extractor may need for one page. Image
// bytes are used by Textract and Tesseract; PDFPath by the text layer.
type PageInput struct {
	Page       int
	ImageBytes []byte
	PDFPath    string
	PageWidth  int
	PageHeight int
}

// Extractor is the capability interface selected at session start.
type Extractor interface {
	Name() Method
	ExtractPage(ctx context.Context, in PageInput) (*Result, error)
}
