package extract

import (
	"github.com/docsweep/docsweep/internal/geometry"
)

// The canonical block schema mirrors the Textract response JSON. Cached
// result files and live service responses are both normalized into this
// shape at the boundary; nothing deeper in the pipeline branches on where a
// block came from.

// BoundingBox is a page-relative fractional bounding box.
type BoundingBox struct {
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`
}

// BlockGeometry wraps the bounding box as the service nests it.
type BlockGeometry struct {
	BoundingBox BoundingBox `json:"BoundingBox"`
}

// Relationship links a block to its children by ID.
type Relationship struct {
	Type string   `json:"Type"`
	IDs  []string `json:"Ids"`
}

// Block is one element of the hierarchical document-analysis response.
type Block struct {
	ID            string         `json:"Id"`
	BlockType     string         `json:"BlockType"`
	Text          string         `json:"Text,omitempty"`
	TextType      string         `json:"TextType,omitempty"`
	Confidence    float64        `json:"Confidence,omitempty"`
	Geometry      BlockGeometry  `json:"Geometry"`
	Relationships []Relationship `json:"Relationships,omitempty"`
	Page          int            `json:"Page,omitempty"`
}

const (
	blockTypeLine      = "LINE"
	blockTypeWord      = "WORD"
	blockTypeSignature = "SIGNATURE"

	textTypeHandwriting = "HANDWRITING"

	relationshipChild = "CHILD"
)

// ParseBlocks converts one page's blocks into the normalized Result.
// LINE blocks own CHILD relationships to WORD blocks; a WORD tagged
// HANDWRITING yields a handwriting detection, and a SIGNATURE block is
// treated as a single-word pseudo-line with literal text "SIGNATURE".
// Fractional geometry is converted by multiply-and-truncate.
func ParseBlocks(blocks []Block, page, pageWidth, pageHeight int) *Result {
	res := &Result{Page: page}

	byID := make(map[string]*Block, len(blocks))
	for i := range blocks {
		byID[blocks[i].ID] = &blocks[i]
	}

	lineNo := 0
	for i := range blocks {
		b := &blocks[i]
		switch b.BlockType {
		case blockTypeLine:
			lineNo++
			box := fractionBox(b.Geometry.BoundingBox, pageWidth, pageHeight)
			line := Line{Page: page, Number: lineNo, Text: b.Text, Box: box}

			for _, rel := range b.Relationships {
				if rel.Type != relationshipChild {
					continue
				}
				for _, id := range rel.IDs {
					child, ok := byID[id]
					if !ok || child.BlockType != blockTypeWord {
						continue
					}
					wbox := fractionBox(child.Geometry.BoundingBox, pageWidth, pageHeight)
					hand := child.TextType == textTypeHandwriting
					line.Words = append(line.Words, Word{
						Text:        child.Text,
						Box:         wbox,
						Confidence:  child.Confidence,
						Handwriting: hand,
					})
					if hand {
						res.Handwriting = append(res.Handwriting, Detection{
							Kind:  KindHandwriting,
							Text:  child.Text,
							Score: child.Confidence,
							Start: 0,
							End:   len(child.Text),
							Box:   wbox,
						})
					}
				}
			}
			res.Lines = append(res.Lines, line)

		case blockTypeSignature:
			lineNo++
			box := fractionBox(b.Geometry.BoundingBox, pageWidth, pageHeight)
			const sigText = "SIGNATURE"
			res.Signatures = append(res.Signatures, Detection{
				Kind:  KindSignature,
				Text:  sigText,
				Score: b.Confidence,
				Start: 0,
				End:   len(sigText),
				Box:   box,
			})
			res.Lines = append(res.Lines, Line{
				Page:   page,
				Number: lineNo,
				Text:   sigText,
				Box:    box,
				Words:  []Word{{Text: sigText, Box: box, Confidence: b.Confidence}},
			})
		}
	}

	return res
}

func fractionBox(bb BoundingBox, pageWidth, pageHeight int) geometry.Box {
	return geometry.FromFraction(bb.Left, bb.Top, bb.Width, bb.Height, pageWidth, pageHeight)
}
