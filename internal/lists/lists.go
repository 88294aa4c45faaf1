// Package lists loads the user-supplied allow, deny, and full-page
// redaction lists. Each list is a single-column CSV with one term (or page
// number) per row. Text lists are case-insensitive; malformed rows are
// logged and skipped, never fatal.
package lists

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Lists is the merged configuration the annotation builder applies.
type Lists struct {
	// Allow terms suppress matching detections.
	Allow []string
	// Deny terms force redaction of matching text.
	Deny []string
	// FullPages names 1-indexed pages to black out entirely.
	FullPages []int
}

// AllowsText reports whether text matches an allow-list term
// (case-insensitive exact match).
func (l *Lists) AllowsText(text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, term := range l.Allow {
		if strings.ToLower(term) == needle {
			return true
		}
	}
	return false
}

// IsFullPage reports whether a page is in the full-redaction list.
func (l *Lists) IsFullPage(page int) bool {
	for _, p := range l.FullPages {
		if p == page {
			return true
		}
	}
	return false
}

// LoadTerms reads term lists from one or more CSV files and merges them,
// deduplicating case-insensitively while preserving first-seen casing.
func LoadTerms(paths ...string) []string {
	seen := make(map[string]bool)
	var terms []string

	for _, path := range paths {
		for _, cell := range readFirstColumn(path) {
			key := strings.ToLower(cell)
			if seen[key] {
				continue
			}
			seen[key] = true
			terms = append(terms, cell)
		}
	}
	return terms
}

// LoadPageNumbers reads full-redaction page lists, skipping rows that are
// not positive integers.
func LoadPageNumbers(paths ...string) []int {
	seen := make(map[int]bool)
	var pages []int

	for _, path := range paths {
		for _, cell := range readFirstColumn(path) {
			n, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil || n < 1 {
				logrus.WithField("file", path).Warnf("skipping non-numeric page entry %q", cell)
				continue
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			pages = append(pages, n)
		}
	}
	sort.Ints(pages)
	return pages
}

// readFirstColumn returns the trimmed first-column cells of a CSV file.
// A header row named after common list headers is skipped.
func readFirstColumn(path string) []string {
	log := logrus.WithField("file", path)

	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Warn("cannot open list file, using empty list")
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var cells []string
	for {
		record, err := r.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Warn("stopping list read on malformed row")
			}
			break
		}
		if len(record) == 0 {
			continue
		}
		cell := strings.TrimSpace(record[0])
		if cell == "" || isListHeader(cell) {
			continue
		}
		cells = append(cells, cell)
	}
	return cells
}

func isListHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "allow_list", "deny_list", "fully_redacted_pages_list":
		return true
	}
	return false
}

// Describe summarizes the loaded lists for status reporting.
func (l *Lists) Describe() string {
	return fmt.Sprintf("%d allow terms, %d deny terms, %d fully redacted pages",
		len(l.Allow), len(l.Deny), len(l.FullPages))
}
