package redact

import (
	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
)

// Per-page price and duration assumptions used for up-front estimation.
// Prices track the cloud providers' published per-page rates; durations are
// conservative observed averages.
const (
	textractPlainUSDPerPage     = 0.0015
	textractSignatureUSDPerPage = 0.0025
	comprehendUSDPerPage        = 0.0003

	textractSecondsPerPage    = 1.2
	tesseractSecondsPerPage   = 1.5
	textLayerSecondsPerPage   = 0.3
	comprehendSecondsPerPage  = 0.5
	localDetectSecondsPerPage = 0.3
)

// EstimateInput is everything the estimate depends on. Estimation is a pure
// function of this struct: it never touches the document and must be
// recomputed whenever any field changes.
type EstimateInput struct {
	Pages            int
	Extraction       extract.Method
	Detection        detect.Method
	DetectSignatures bool
	CachedExtract    bool
	TextOnly         bool
}

// Estimate is the predicted cost and duration of a run.
type Estimate struct {
	TextractPages   int
	ComprehendPages int
	USD             float64
	Seconds         float64
}

// EstimateCost predicts cloud spend and wall-clock time for a document
// before any extraction happens.
func EstimateCost(in EstimateInput) Estimate {
	var e Estimate
	if in.Pages <= 0 {
		return e
	}
	pages := float64(in.Pages)

	if !in.CachedExtract {
		switch in.Extraction {
		case extract.MethodTextract:
			e.TextractPages = in.Pages
			if in.DetectSignatures {
				e.USD += textractSignatureUSDPerPage * pages
			} else {
				e.USD += textractPlainUSDPerPage * pages
			}
			e.Seconds += textractSecondsPerPage * pages
		case extract.MethodTesseract:
			e.Seconds += tesseractSecondsPerPage * pages
		default:
			e.Seconds += textLayerSecondsPerPage * pages
		}
	}

	if in.TextOnly {
		return e
	}

	switch in.Detection {
	case detect.MethodCloud:
		e.ComprehendPages = in.Pages
		e.USD += comprehendUSDPerPage * pages
		e.Seconds += comprehendSecondsPerPage * pages
	case detect.MethodLocal:
		e.Seconds += localDetectSecondsPerPage * pages
	}
	return e
}
