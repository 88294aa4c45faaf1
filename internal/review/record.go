// Package review keeps the three views of redaction state — the current
// page's box list, the whole-document annotation set, and the tabular
// review record — consistent while a human edits them. The review record is
// the durable representation: it round-trips losslessly to and from the
// annotation set and can be merged across files.
package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/docsweep/docsweep/internal/annotate"
	"github.com/docsweep/docsweep/internal/geometry"
)

// recordHeader is the review file's column contract. Readers reject files
// whose header does not match.
var recordHeader = []string{
	"image", "page", "label", "color", "xmin", "ymin", "xmax", "ymax", "text", "id",
}

// labelColors maps entity labels to the display colors the annotator uses.
// Unknown labels fall back to black.
var labelColors = map[string]string{
	"Redaction":   "(0, 0, 0)",
	"HANDWRITING": "(0, 98, 255)",
	"SIGNATURE":   "(255, 64, 0)",
}

const defaultColor = "(0, 0, 0)"

// ColorFor returns the display color for a label.
func ColorFor(label string) string {
	if c, ok := labelColors[label]; ok {
		return c
	}
	return defaultColor
}

// Row is one review record line: one redaction annotation on one page.
type Row struct {
	Image string
	Page  int
	Label string
	Color string
	XMin  int
	YMin  int
	XMax  int
	YMax  int
	Text  string
	ID    string
}

// Annotation converts the row back to its geometric form.
func (r Row) Annotation() annotate.Annotation {
	return annotate.Annotation{
		ID:    r.ID,
		Page:  r.Page,
		Label: r.Label,
		Text:  r.Text,
		Box: geometry.Box{
			Left:   r.XMin,
			Top:    r.YMin,
			Width:  r.XMax - r.XMin,
			Height: r.YMax - r.YMin,
		},
	}
}

// Record is the whole document's review table, ordered by page then by the
// annotations' insertion order.
type Record struct {
	Rows []Row
}

// FromPageSet serializes an annotation set into a review record. imageName
// gives the rendered page image path for a 1-indexed page; nil leaves the
// column empty.
func FromPageSet(set *annotate.PageSet, imageName func(page int) string) *Record {
	rec := &Record{}
	for page := 1; page <= set.NumPages(); page++ {
		img := ""
		if imageName != nil {
			img = imageName(page)
		}
		for _, a := range set.Page(page) {
			rec.Rows = append(rec.Rows, Row{
				Image: img,
				Page:  a.Page,
				Label: a.Label,
				Color: ColorFor(a.Label),
				XMin:  a.Box.Left,
				YMin:  a.Box.Top,
				XMax:  a.Box.Right(),
				YMax:  a.Box.Bottom(),
				Text:  a.Text,
				ID:    a.ID,
			})
		}
	}
	return rec
}

// ToPageSet rebuilds the annotation set from the record. The set covers at
// least numPages pages and grows if rows reference later pages.
func (r *Record) ToPageSet(numPages int) *annotate.PageSet {
	set := annotate.NewPageSet(numPages)
	byPage := make(map[int][]annotate.Annotation)
	maxPage := numPages
	for _, row := range r.Rows {
		if row.Page < 1 {
			continue
		}
		byPage[row.Page] = append(byPage[row.Page], row.Annotation())
		if row.Page > maxPage {
			maxPage = row.Page
		}
	}
	for page := 1; page <= maxPage; page++ {
		set.SetPage(page, byPage[page])
	}
	return set
}

// Merge appends the rows of other records, in argument order.
func (r *Record) Merge(others ...*Record) {
	for _, o := range others {
		r.Rows = append(r.Rows, o.Rows...)
	}
}

// Write emits the record as CSV with the standard header.
func (r *Record) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range r.Rows {
		fields := []string{
			row.Image,
			strconv.Itoa(row.Page),
			row.Label,
			row.Color,
			strconv.Itoa(row.XMin),
			strconv.Itoa(row.YMin),
			strconv.Itoa(row.XMax),
			strconv.Itoa(row.YMax),
			row.Text,
			row.ID,
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a review CSV. A header that does not match the column
// contract is a hard error; malformed numeric cells skip the row.
func Read(rd io.Reader) (*Record, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = len(recordHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range recordHeader {
		if header[i] != col {
			return nil, fmt.Errorf("review file header mismatch: column %d is %q, want %q", i, header[i], col)
		}
	}

	rec := &Record{}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row, ok := parseRow(fields)
		if !ok {
			continue
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec, nil
}

func parseRow(fields []string) (Row, bool) {
	page, err := strconv.Atoi(fields[1])
	if err != nil {
		return Row{}, false
	}
	nums := make([]int, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(fields[4+i])
		if err != nil {
			return Row{}, false
		}
		nums[i] = n
	}
	return Row{
		Image: fields[0],
		Page:  page,
		Label: fields[2],
		Color: fields[3],
		XMin:  nums[0],
		YMin:  nums[1],
		XMax:  nums[2],
		YMax:  nums[3],
		Text:  fields[8],
		ID:    fields[9],
	}, true
}

// Save writes the record to a file path.
func (r *Record) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create review file: %w", err)
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a review file from disk.
func Load(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open review file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// LoadAll reads and merges several review files in order.
func LoadAll(paths ...string) (*Record, error) {
	merged := &Record{}
	for _, p := range paths {
		rec, err := Load(p)
		if err != nil {
			return nil, err
		}
		merged.Merge(rec)
	}
	return merged, nil
}
