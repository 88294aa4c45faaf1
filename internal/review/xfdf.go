package review

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XFDF interchange for redaction rectangles, so boxes can travel to and
// from PDF comment tools. This is a pure format transform: coordinates are
// carried through unchanged and pages convert between the record's
// 1-indexed numbering and XFDF's 0-indexed one.

type xfdfDoc struct {
	XMLName xml.Name     `xml:"xfdf"`
	Xmlns   string       `xml:"xmlns,attr"`
	Annots  xfdfAnnots   `xml:"annots"`
	File    *xfdfFileRef `xml:"f,omitempty"`
}

type xfdfAnnots struct {
	Squares []xfdfSquare `xml:"square"`
}

type xfdfSquare struct {
	Page    int    `xml:"page,attr"`
	Rect    string `xml:"rect,attr"`
	Title   string `xml:"title,attr,omitempty"`
	Subject string `xml:"subject,attr,omitempty"`
	Name    string `xml:"name,attr,omitempty"`
}

type xfdfFileRef struct {
	Href string `xml:"href,attr"`
}

// WriteXFDF exports the record's rows as XFDF square annotations.
func (r *Record) WriteXFDF(w io.Writer, documentHref string) error {
	doc := xfdfDoc{Xmlns: "http://ns.adobe.com/xfdf/"}
	if documentHref != "" {
		doc.File = &xfdfFileRef{Href: documentHref}
	}
	for _, row := range r.Rows {
		doc.Annots.Squares = append(doc.Annots.Squares, xfdfSquare{
			Page:    row.Page - 1,
			Rect:    fmt.Sprintf("%d,%d,%d,%d", row.XMin, row.YMin, row.XMax, row.YMax),
			Title:   row.Label,
			Subject: row.Text,
			Name:    row.ID,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode xfdf: %w", err)
	}
	return enc.Flush()
}

// ReadXFDF imports square annotations from an XFDF stream into a record.
// Rows with unparsable rects are skipped.
func ReadXFDF(rd io.Reader) (*Record, error) {
	var doc xfdfDoc
	if err := xml.NewDecoder(rd).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode xfdf: %w", err)
	}

	rec := &Record{}
	for _, sq := range doc.Annots.Squares {
		coords, ok := parseRect(sq.Rect)
		if !ok {
			continue
		}
		rec.Rows = append(rec.Rows, Row{
			Page:  sq.Page + 1,
			Label: sq.Title,
			Color: ColorFor(sq.Title),
			XMin:  coords[0],
			YMin:  coords[1],
			XMax:  coords[2],
			YMax:  coords[3],
			Text:  sq.Subject,
			ID:    sq.Name,
		})
	}
	return rec, nil
}

func parseRect(s string) ([4]int, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [4]int{}, false
	}
	var out [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return [4]int{}, false
		}
		out[i] = n
	}
	return out, true
}
