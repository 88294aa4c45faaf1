package redact

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/annotate"
	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
)

// DefaultBatchSize bounds how many pages one controller invocation handles.
const DefaultBatchSize = 5

// PageSource supplies per-page input to the extractor. Implemented over an
// opened document; faked in tests.
type PageSource interface {
	PageCount() int
	PageInput(page int) (extract.PageInput, error)
}

// Controller runs one page batch per call. All accumulated results live in
// the Progress value, not in the controller, so a session can keep a single
// controller and thread progress through repeated calls.
type Controller struct {
	Source    PageSource
	Extractor extract.Extractor
	Detector  detect.Detector
	Deny      *detect.DenyList
	Builder   *annotate.Builder

	BatchSize int
	Log       *logrus.Entry
}

func (c *Controller) log() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// RunBatch processes up to BatchSize pages starting at p.CurrentPage and
// updates p. A page whose extraction fails twice is recorded in the decision
// table and skipped; only a context cancellation aborts the batch.
func (c *Controller) RunBatch(ctx context.Context, p *Progress) error {
	start := time.Now()
	defer func() { p.Elapsed += time.Since(start) }()

	if p.State == StateInit {
		p.State = StateFirstLoop
		p.CurrentPage = 1
	}
	p.State = StatePageBatch

	batch := c.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	total := p.TotalPages
	if total == 0 {
		total = c.Source.PageCount()
		p.TotalPages = total
	}

	for done := 0; done < batch && p.CurrentPage <= total; done++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := p.CurrentPage
		if err := c.processPage(ctx, p, page); err != nil {
			c.log().WithError(err).WithFields(logrus.Fields{
				"run":      p.RunID,
				"document": p.DocumentName,
				"page":     page,
			}).Warn("page failed, skipping")
			p.FailedPages = append(p.FailedPages, page)
			p.record(Decision{
				Page:    page,
				Outcome: OutcomeFailed,
				Reason:  err.Error(),
			})
		}
		p.CurrentPage = page + 1
	}

	if p.CurrentPage > total {
		p.State = StateDocumentDone
		p.More = false
	} else {
		p.State = StateContinue
		p.More = true
	}
	return nil
}

// processPage runs extraction, detection and annotation building for one
// page and stores the outcome in p.
func (c *Controller) processPage(ctx context.Context, p *Progress, page int) error {
	in, err := c.Source.PageInput(page)
	if err != nil {
		return fmt.Errorf("page input: %w", err)
	}

	ocr, err := c.Extractor.ExtractPage(ctx, in)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	p.CloudQueries += ocr.CloudQueries

	detected := make([]annotate.LineEntities, 0, len(ocr.Lines))
	for _, line := range ocr.Lines {
		var entities []detect.Entity
		if c.Detector != nil {
			entities, err = c.Detector.Detect(ctx, line.Text)
			if err != nil {
				return fmt.Errorf("detect: %w", err)
			}
		}
		if c.Deny != nil {
			entities = append(entities, c.Deny.Detect(line.Text)...)
		}
		if len(entities) > 0 {
			detected = append(detected, annotate.LineEntities{Line: line, Entities: entities})
		}
	}
	if q, ok := c.Detector.(interface{ TakeQueries() int }); ok {
		p.CloudQueries += q.TakeQueries()
	}

	c.auditPage(p, page, ocr, detected)

	anns := c.Builder.BuildPage(page, in.PageWidth, in.PageHeight, ocr, detected)
	p.Annotations.SetPage(page, anns)

	c.log().WithFields(logrus.Fields{
		"document": p.DocumentName,
		"page":     page,
		"boxes":    len(anns),
	}).Debug("page processed")
	return nil
}

// auditPage writes one decision row per candidate, including candidates the
// policy steps go on to suppress: the audit trail shows what was detected,
// not just what survived.
func (c *Controller) auditPage(p *Progress, page int, ocr *extract.Result, detected []annotate.LineEntities) {
	fullPage := c.Builder.Lists != nil && c.Builder.Lists.IsFullPage(page)

	for _, le := range detected {
		for _, e := range le.Entities {
			d := Decision{Page: page, Label: string(e.Type), Text: e.Text, Box: le.Line.Box}
			switch {
			case c.Builder.Lists != nil && c.Builder.Lists.AllowsText(e.Text):
				d.Outcome = OutcomeAllowListed
				d.Reason = "matched allow list"
			case fullPage:
				d.Outcome = OutcomeFullPage
				d.Reason = "page fully redacted"
			default:
				d.Outcome = OutcomeRedacted
			}
			p.record(d)
		}
	}

	for _, h := range ocr.Handwriting {
		d := Decision{Page: page, Label: string(h.Kind), Text: h.Text, Box: h.Box}
		if c.Builder.RedactHandwriting {
			d.Outcome = OutcomeRedacted
		} else {
			d.Outcome = OutcomeDropped
			d.Reason = "handwriting redaction disabled"
		}
		p.record(d)
	}
	for _, s := range ocr.Signatures {
		d := Decision{Page: page, Label: string(s.Kind), Text: s.Text, Box: s.Box}
		if c.Builder.RedactSignatures {
			d.Outcome = OutcomeRedacted
		} else {
			d.Outcome = OutcomeDropped
			d.Reason = "signature redaction disabled"
		}
		p.record(d)
	}

	if fullPage {
		p.record(Decision{
			Page:    page,
			Label:   annotate.FullPageLabel,
			Outcome: OutcomeFullPage,
			Reason:  "page in full redaction list",
		})
	}
}
