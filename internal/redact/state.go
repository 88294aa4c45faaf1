// Package redact drives the extraction → detection → annotation pipeline
// across the pages of a document. Work happens in bounded page batches: each
// call to the controller processes at most one batch and hands back a
// progress value the caller re-submits until the document is done, so a
// single invocation never runs unbounded.
package redact

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docsweep/docsweep/internal/annotate"
	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/geometry"
)

// State names the controller's position in its lifecycle.
type State string

const (
	StateInit         State = "INIT"
	StateFirstLoop    State = "FIRST_LOOP"
	StatePageBatch    State = "PAGE_BATCH"
	StateContinue     State = "CONTINUE"
	StateDocumentDone State = "DOCUMENT_DONE"
)

// Outcome classifies a single detection decision in the audit table.
type Outcome string

const (
	OutcomeRedacted    Outcome = "redacted"
	OutcomeAllowListed Outcome = "allow-listed"
	OutcomeDropped     Outcome = "dropped"
	OutcomeFullPage    Outcome = "full-page"
	OutcomeFailed      Outcome = "failed"
)

// Decision is one row of the decision-process table: every detection, and
// every page-level failure, gets a row whether or not it survives policy.
type Decision struct {
	Page    int          `json:"page"`
	Label   string       `json:"label"`
	Text    string       `json:"text"`
	Box     geometry.Box `json:"box"`
	Outcome Outcome      `json:"outcome"`
	Reason  string       `json:"reason,omitempty"`
}

// Progress is the accumulated state threaded through every batch call. The
// controller mutates it in place; callers must pass the same value back on
// the next invocation rather than rebuilding it.
type Progress struct {
	// RunID correlates the batches and usage rows of one document run.
	RunID        string
	DocumentName string
	TotalPages   int

	State       State
	CurrentPage int // next page to process, 1-indexed
	More        bool

	Annotations *annotate.PageSet
	Decisions   []Decision
	FailedPages []int

	CloudQueries int
	Elapsed      time.Duration

	Extraction extract.Method
	Detection  detect.Method
}

// NewProgress creates the initial state for a document.
func NewProgress(name string, totalPages int, extraction extract.Method, detection detect.Method) *Progress {
	return &Progress{
		RunID:        uuid.NewString(),
		DocumentName: name,
		TotalPages:   totalPages,
		State:        StateInit,
		Annotations:  annotate.NewPageSet(totalPages),
		Extraction:   extraction,
		Detection:    detection,
	}
}

// Done reports whether the whole document has been processed.
func (p *Progress) Done() bool { return p.State == StateDocumentDone }

// record appends one decision row.
func (p *Progress) record(d Decision) {
	p.Decisions = append(p.Decisions, d)
}

// Summary renders the user-facing progress report: pages processed and
// failed, annotation counts, query usage.
func (p *Progress) Summary() string {
	processed := p.CurrentPage - 1
	if p.Done() {
		processed = p.TotalPages
	}
	s := fmt.Sprintf("%s: processed %d/%d pages, %d redaction boxes",
		p.DocumentName, processed, p.TotalPages, p.Annotations.Count())
	if n := len(p.FailedPages); n > 0 {
		s += fmt.Sprintf(", %d pages failed %v", n, p.FailedPages)
	}
	if p.CloudQueries > 0 {
		s += fmt.Sprintf(", %d cloud queries", p.CloudQueries)
	}
	if p.More {
		s += " (more pages remain)"
	}
	return s
}
