package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/annotate"
	"github.com/docsweep/docsweep/internal/anonymise"
	"github.com/docsweep/docsweep/internal/config"
	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/lists"
	"github.com/docsweep/docsweep/internal/pdfinfo"
	"github.com/docsweep/docsweep/internal/redact"
	"github.com/docsweep/docsweep/internal/review"
	"github.com/docsweep/docsweep/internal/session"
)

// RedactOptions are the per-request knobs for a redaction run.
type RedactOptions struct {
	Extraction    extract.Method
	Detection     detect.Method
	AllowListPath string
	DenyListPath  string
	FullPagesPath string
	FuzzyDeny     bool
}

// sessionState is everything one user session accumulates. Mutation within
// a session is strictly sequential; the registry lock only guards lookup.
type sessionState struct {
	sess       *session.Session
	doc        *pdfinfo.Document
	progress   *redact.Progress
	controller *redact.Controller
	reconciler *review.Reconciler
	estimate   redact.Estimate
}

// Service owns the pipeline behind the MCP tools. Sessions are isolated by
// key; each holds at most one in-flight document and one review state.
type Service struct {
	cfg *config.Config
	log *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*sessionState

	// newExtractor is swappable so tests can avoid real OCR engines.
	newExtractor func(method extract.Method, outputDir, docName string) (extract.Extractor, error)
}

// NewService builds the pipeline service.
func NewService(cfg *config.Config) *Service {
	s := &Service{
		cfg:      cfg,
		log:      logrus.WithField("component", "service"),
		sessions: make(map[string]*sessionState),
	}
	s.newExtractor = s.buildExtractor
	return s
}

func (s *Service) state(key string) (*sessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[key]; ok {
		return st, nil
	}
	sess, err := session.New(s.cfg.WorkDir, key)
	if err != nil {
		return nil, err
	}
	sess.LogDocumentNames = s.cfg.LogDocumentNames
	st := &sessionState{sess: sess}
	s.sessions[key] = st
	return st, nil
}

// buildExtractor selects the extraction backend, preferring a cached cloud
// result when one exists for the document.
func (s *Service) buildExtractor(method extract.Method, outputDir, docName string) (extract.Extractor, error) {
	switch method {
	case extract.MethodTextract:
		if cache, ok := extract.LoadCache(extract.CachePath(outputDir, docName)); ok {
			return extract.NewCachedExtractor(cache), nil
		}
		client, err := extract.NewTextractClient(context.Background(), s.cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("textract client: %w", err)
		}
		return extract.NewTextractExtractor(client, s.cfg.RedactSignatures), nil
	case extract.MethodTesseract:
		return extract.NewTesseractExtractor(s.cfg.TesseractLanguage), nil
	default:
		return extract.NewTextLayerExtractor(), nil
	}
}

func (s *Service) buildDetector(ctx context.Context, method detect.Method) (detect.Detector, error) {
	switch method {
	case detect.MethodCloud:
		client, err := detect.NewComprehendClient(ctx, s.cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("comprehend client: %w", err)
		}
		return detect.NewComprehendDetector(client, "en", s.cfg.Entities()), nil
	case detect.MethodNone:
		return nil, nil
	default:
		return detect.NewLocalDetector("en", s.cfg.Entities()), nil
	}
}

func (s *Service) loadLists(opts RedactOptions) *lists.Lists {
	l := &lists.Lists{}
	if opts.AllowListPath != "" {
		l.Allow = lists.LoadTerms(opts.AllowListPath)
	}
	if opts.DenyListPath != "" {
		l.Deny = lists.LoadTerms(opts.DenyListPath)
	}
	if opts.FullPagesPath != "" {
		l.FullPages = lists.LoadPageNumbers(opts.FullPagesPath)
	}
	return l
}

func (s *Service) checkFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.Size() > s.cfg.MaxFileSize {
		return fmt.Errorf("file %s exceeds maximum size (%d > %d bytes)",
			filepath.Base(path), info.Size(), s.cfg.MaxFileSize)
	}
	return nil
}

// RedactDocument runs one page batch. The first call for a new path opens
// the document and discards any previous in-flight document for the
// session; subsequent calls resume until the returned done flag is true.
func (s *Service) RedactDocument(ctx context.Context, sessionKey, path string, opts RedactOptions) (string, bool, error) {
	st, err := s.state(sessionKey)
	if err != nil {
		return "", false, err
	}

	if opts.Extraction == "" {
		opts.Extraction = s.cfg.Extraction()
	}
	if opts.Detection == "" {
		opts.Detection = s.cfg.Detection()
	}

	// New document: abandoning a half-processed one is the documented way
	// to cancel it.
	if st.doc == nil || st.doc.Path != path {
		if err := s.checkFileSize(path); err != nil {
			return "", false, err
		}
		doc, err := pdfinfo.Open(path)
		if err != nil {
			return "", false, err
		}

		extractor, err := s.newExtractor(opts.Extraction, st.sess.OutputDir, doc.Name)
		if err != nil {
			return "", false, err
		}
		detector, err := s.buildDetector(ctx, opts.Detection)
		if err != nil {
			return "", false, err
		}

		l := s.loadLists(opts)
		var deny *detect.DenyList
		if len(l.Deny) > 0 {
			deny = &detect.DenyList{
				Terms:       l.Deny,
				Fuzzy:       opts.FuzzyDeny,
				MaxDistance: s.cfg.FuzzyMaxDistance,
				WholePhrase: s.cfg.FuzzyWholePhrase,
			}
		}

		_, cachedRun := extractor.(*extract.CachedExtractor)

		st.doc = doc
		st.progress = redact.NewProgress(doc.Name, doc.PageCount, opts.Extraction, opts.Detection)
		st.estimate = redact.EstimateCost(redact.EstimateInput{
			Pages:            doc.PageCount,
			Extraction:       opts.Extraction,
			Detection:        opts.Detection,
			DetectSignatures: s.cfg.RedactSignatures,
			CachedExtract:    cachedRun,
		})
		st.controller = &redact.Controller{
			Source: &redact.DocumentSource{
				Doc:     doc,
				Method:  opts.Extraction,
				WorkDir: st.sess.Dir,
			},
			Extractor: extractor,
			Detector:  detector,
			Deny:      deny,
			Builder: &annotate.Builder{
				Lists:             l,
				RedactHandwriting: s.cfg.RedactHandwrite,
				RedactSignatures:  s.cfg.RedactSignatures,
			},
			BatchSize: s.cfg.PageBatchSize,
			Log:       s.log.WithField("session", st.sess.ID),
		}
	}

	if err := st.controller.RunBatch(ctx, st.progress); err != nil {
		return "", false, err
	}

	if st.progress.Done() {
		rec := review.FromPageSet(st.progress.Annotations, nil)
		reviewPath := st.sess.OutputPath(st.doc.Name + "_review.csv")
		if err := rec.Save(reviewPath); err != nil {
			return "", false, fmt.Errorf("save review file: %w", err)
		}
		st.reconciler = review.NewReconciler(st.progress.Annotations, nil)

		if err := st.sess.LogUsage(session.Usage{
			Document:     st.doc.Name,
			Pages:        st.doc.PageCount,
			CloudQueries: st.progress.CloudQueries,
			EstimatedUSD: st.estimate.USD,
		}); err != nil {
			s.log.WithError(err).Warn("usage log append failed")
		}
		return st.progress.Summary() + "\nReview file: " + reviewPath, true, nil
	}
	return st.progress.Summary(), false, nil
}

// EstimateCost predicts cost and duration without touching the pipeline.
func (s *Service) EstimateCost(sessionKey, path string, opts RedactOptions, textOnly bool) (redact.Estimate, error) {
	st, err := s.state(sessionKey)
	if err != nil {
		return redact.Estimate{}, err
	}
	doc, err := pdfinfo.Open(path)
	if err != nil {
		return redact.Estimate{}, err
	}
	if opts.Extraction == "" {
		opts.Extraction = s.cfg.Extraction()
	}
	if opts.Detection == "" {
		opts.Detection = s.cfg.Detection()
	}
	_, cached := extract.LoadCache(extract.CachePath(st.sess.OutputDir, doc.Name))
	return redact.EstimateCost(redact.EstimateInput{
		Pages:            doc.PageCount,
		Extraction:       opts.Extraction,
		Detection:        opts.Detection,
		DetectSignatures: s.cfg.RedactSignatures,
		CachedExtract:    cached,
		TextOnly:         textOnly,
	}), nil
}

// reviewState fetches the session's reconciler or explains how to get one.
func (s *Service) reviewState(sessionKey string) (*sessionState, *review.Reconciler, error) {
	st, err := s.state(sessionKey)
	if err != nil {
		return nil, nil, err
	}
	if st.reconciler == nil {
		return nil, nil, fmt.Errorf("no review state: run redact_document to completion or load review files first")
	}
	return st, st.reconciler, nil
}

// ReviewLoad starts a review session from saved review files.
func (s *Service) ReviewLoad(sessionKey string, paths []string, numPages int) (int, error) {
	st, err := s.state(sessionKey)
	if err != nil {
		return 0, err
	}
	rec, err := review.LoadAll(paths...)
	if err != nil {
		return 0, err
	}
	st.reconciler = review.NewReconcilerFromRecord(rec, numPages, nil)
	return len(rec.Rows), nil
}

// ReviewNavigate moves the review cursor and returns the page's boxes.
func (s *Service) ReviewNavigate(sessionKey string, page int) (int, []annotate.Annotation, error) {
	_, rec, err := s.reviewState(sessionKey)
	if err != nil {
		return 0, nil, err
	}
	current := rec.Navigate(page)
	return current, rec.View(), nil
}

// ReviewExclude removes annotations by ID, or everything the current filter
// selects when no IDs are given.
func (s *Service) ReviewExclude(sessionKey string, ids []string) (int, error) {
	_, rec, err := s.reviewState(sessionKey)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return rec.ExcludeFiltered(), nil
	}
	return rec.Exclude(ids...), nil
}

// ReviewUndo reverses the most recent exclusion.
func (s *Service) ReviewUndo(sessionKey string) (bool, error) {
	_, rec, err := s.reviewState(sessionKey)
	if err != nil {
		return false, err
	}
	return rec.Undo(), nil
}

// ReviewFilter applies a filter and returns the surviving rows plus the
// recomputed options for each dimension.
func (s *Service) ReviewFilter(sessionKey string, f review.Filter) ([]review.Row, review.FilterOptions, error) {
	_, rec, err := s.reviewState(sessionKey)
	if err != nil {
		return nil, review.FilterOptions{}, err
	}
	rec.SetFilter(f)
	return rec.Filtered(), rec.Options(), nil
}

// ReviewApply saves the reconciled record and burns the boxes into a
// redacted output PDF.
func (s *Service) ReviewApply(sessionKey string) (string, string, error) {
	st, rec, err := s.reviewState(sessionKey)
	if err != nil {
		return "", "", err
	}
	if st.doc == nil {
		return "", "", fmt.Errorf("no document open in this session")
	}

	// Flush any pending view edits before persisting.
	rec.Navigate(rec.CurrentPage())

	reviewPath := st.sess.OutputPath(st.doc.Name + "_review.csv")
	if err := rec.Record().Save(reviewPath); err != nil {
		return "", "", fmt.Errorf("save review file: %w", err)
	}

	outPath := st.sess.OutputPath(st.doc.Name + "_redacted.pdf")
	method := extract.MethodTextLayer
	if st.progress != nil {
		method = st.progress.Extraction
	}
	pageSpace := func(page int) (int, int) {
		size := st.doc.Size(page)
		if method == extract.MethodTextLayer {
			return int(size.Width), int(size.Height)
		}
		return size.PixelWidth(pdfinfo.RenderDPI), size.PixelHeight(pdfinfo.RenderDPI)
	}
	if err := review.Apply(st.doc, rec.Set(), pageSpace, st.sess.Dir, outPath); err != nil {
		return "", "", err
	}
	return reviewPath, outPath, nil
}

// AnonymiseData redacts PII in open text or a tabular file. Exactly one of
// text/path should be set; the file branch dispatches on extension.
func (s *Service) AnonymiseData(ctx context.Context, sessionKey, text, path string, strategy anonymise.Strategy, columns []string) (string, error) {
	st, err := s.state(sessionKey)
	if err != nil {
		return "", err
	}
	detector, err := s.buildDetector(ctx, s.cfg.Detection())
	if err != nil {
		return "", err
	}
	a := &anonymise.Anonymiser{Detector: detector, Strategy: strategy}

	if text != "" {
		out, _, err := a.Text(ctx, text)
		return out, err
	}

	if err := s.checkFileSize(path); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		outPath := st.sess.OutputPath(base + "_anonymised.csv")
		cells, err := a.CSVFile(ctx, path, outPath, columns)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d cells anonymised\nOutput: %s", cells, outPath), nil
	case ".xlsx":
		outPath := st.sess.OutputPath(base + "_anonymised.xlsx")
		cells, err := a.XLSXFile(ctx, path, outPath, columns)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d cells anonymised\nOutput: %s", cells, outPath), nil
	default:
		return "", fmt.Errorf("unsupported tabular format %q", filepath.Ext(path))
	}
}
