package mcp

import (
	"context"
	"encoding/csv"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/session"
)

// stubExtractor stands in for a cloud backend so pipeline tests need no
// network or OCR engine.
type stubExtractor struct{}

func (stubExtractor) Name() extract.Method { return extract.MethodTextract }

func (stubExtractor) ExtractPage(_ context.Context, in extract.PageInput) (*extract.Result, error) {
	return &extract.Result{Page: in.Page, CloudQueries: 2}, nil
}

func writeTestImage(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode image: %v", err)
	}
	return path
}

func TestBuildExtractorTextLayer(t *testing.T) {
	svc := NewService(testConfig(t))

	ex, err := svc.buildExtractor(extract.MethodTextLayer, t.TempDir(), "doc")
	if err != nil {
		t.Fatalf("buildExtractor failed: %v", err)
	}
	if ex.Name() != extract.MethodTextLayer {
		t.Errorf("Name() = %q, want %q", ex.Name(), extract.MethodTextLayer)
	}
}

func TestRedactDocumentLogsEstimatedUsage(t *testing.T) {
	cfg := testConfig(t)
	svc := NewService(cfg)
	svc.newExtractor = func(extract.Method, string, string) (extract.Extractor, error) {
		return stubExtractor{}, nil
	}

	path := writeTestImage(t, cfg.InputDir)
	summary, done, err := svc.RedactDocument(context.Background(), "usage", path, RedactOptions{
		Extraction: extract.MethodTextract,
		Detection:  detect.MethodNone,
	})
	if err != nil {
		t.Fatalf("RedactDocument failed: %v", err)
	}
	if !done {
		t.Fatalf("one-page document should finish in one batch: %s", summary)
	}

	usagePath := filepath.Join(cfg.WorkDir, session.Hash("usage"), "usage.csv")
	f, err := os.Open(usagePath)
	if err != nil {
		t.Fatalf("open usage log: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read usage log: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("usage log rows = %d, want header + 1", len(rows))
	}
	if got := rows[1][4]; got != "2" {
		t.Errorf("cloud_queries = %q, want 2", got)
	}
	// One Textract page with signature analysis enabled.
	if got := rows[1][5]; got != "0.0025" {
		t.Errorf("estimated_usd = %q, want 0.0025", got)
	}
}
