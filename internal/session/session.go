// Package session isolates concurrent users from each other. Each session
// gets its own working directory keyed by a session hash; nothing mutable is
// shared across sessions except the content-addressed extraction cache,
// which is safe to share because extraction is idempotent.
package session

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Session scopes all file output for one user.
type Session struct {
	ID        string
	Dir       string
	OutputDir string

	// LogDocumentNames controls whether usage rows carry the document name.
	// Off by default for privacy.
	LogDocumentNames bool

	log *logrus.Entry
}

// Hash derives the stable session identifier from a caller-supplied key.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// New creates (or reuses) the working directories for a session key under
// baseDir.
func New(baseDir, key string) (*Session, error) {
	id := Hash(key)
	dir := filepath.Join(baseDir, id)
	outDir := filepath.Join(dir, "output")
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Session{
		ID:        id,
		Dir:       dir,
		OutputDir: outDir,
		log:       logrus.WithField("session", id),
	}, nil
}

// OutputPath returns a path inside the session's output directory.
func (s *Session) OutputPath(name string) string {
	return filepath.Join(s.OutputDir, filepath.Base(name))
}

// Outputs lists the files currently in the session's output directory.
func (s *Session) Outputs() ([]string, error) {
	entries, err := os.ReadDir(s.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// usageHeader is the usage log's column contract.
var usageHeader = []string{
	"timestamp", "session", "document", "pages", "cloud_queries", "estimated_usd",
}

// Usage is one row of the append-only usage log.
type Usage struct {
	Document     string
	Pages        int
	CloudQueries int
	EstimatedUSD float64
}

// LogUsage appends one row to the usage CSV in the session directory,
// writing the header when the file is new. The document name is blanked
// unless the session opted in to logging it.
func (s *Session) LogUsage(u Usage) error {
	path := filepath.Join(s.Dir, "usage.csv")
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open usage log: %w", err)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(usageHeader); err != nil {
			f.Close()
			return fmt.Errorf("write usage header: %w", err)
		}
	}

	doc := ""
	if s.LogDocumentNames {
		doc = u.Document
	}
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		s.ID,
		doc,
		strconv.Itoa(u.Pages),
		strconv.Itoa(u.CloudQueries),
		strconv.FormatFloat(u.EstimatedUSD, 'f', 4, 64),
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("write usage row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}

	s.log.WithFields(logrus.Fields{
		"pages":   u.Pages,
		"queries": u.CloudQueries,
	}).Debug("usage logged")
	return f.Close()
}
