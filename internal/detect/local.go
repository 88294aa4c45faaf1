package detect

import (
	"context"
	"regexp"
	"unicode/utf8"
)

// Pattern-based recognisers for the local engine. Scores reflect how
// specific each pattern is; the person heuristic is the weakest.
var (
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	phonePattern      = regexp.MustCompile(`\b(?:\+?44\s?\d{4}|\(?0\d{4}\)?)\s?\d{3}\s?\d{3}\b|\b(?:\+?44\s?\d{3}|\(?0\d{3}\)?)\s?\d{3}\s?\d{4}\b`)
	ukPostcodePattern = regexp.MustCompile(`\b[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}\b`)
	ninoPattern       = regexp.MustCompile(`\b[ABCEGHJ-PRSTW-Z]{2}\s?\d{2}\s?\d{2}\s?\d{2}\s?[A-D]\b`)
	creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
	ipAddressPattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	titlesPattern     = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof|Sir|Dame|Lord|Lady|Rev)\.?\s`)
	// A title followed by one or two capitalised words is treated as a name.
	personPattern = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof|Sir|Dame|Lord|Lady|Rev)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)
	streetPattern = regexp.MustCompile(`\b\d+[A-Za-z]?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\s+(?:Street|St|Road|Rd|Avenue|Ave|Lane|Ln|Drive|Dr|Close|Court|Crescent|Way|Place|Gardens|Terrace)\b`)
)

type recogniser struct {
	typ     EntityType
	pattern *regexp.Regexp
	score   float64
}

// Ordered so that more specific recognisers win ties during downstream
// dedup (stable insertion order is preserved end to end).
var localRecognisers = []recogniser{
	{TypeEmail, emailPattern, 1.0},
	{TypeNINO, ninoPattern, 1.0},
	{TypeUKPostcode, ukPostcodePattern, 1.0},
	{TypePhone, phonePattern, 0.95},
	{TypeCreditCard, creditCardPattern, 0.9},
	{TypeIPAddress, ipAddressPattern, 0.95},
	{TypePerson, personPattern, 0.85},
	{TypeTitles, titlesPattern, 0.8},
	{TypeStreetName, streetPattern, 0.85},
}

// LocalDetector runs the built-in pattern recognisers, scoped by language
// and a configurable entity-type allow set.
type LocalDetector struct {
	Language string
	Types    TypeSet
}

// NewLocalDetector builds a local detector. An empty types slice enables
// the default entity set.
func NewLocalDetector(language string, types []EntityType) *LocalDetector {
	if language == "" {
		language = "en"
	}
	return &LocalDetector{Language: language, Types: NewTypeSet(types)}
}

// Name returns the backend identifier.
func (d *LocalDetector) Name() Method { return MethodLocal }

// Detect returns entity spans for each enabled recogniser. Offsets are rune
// positions into text.
func (d *LocalDetector) Detect(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []Entity
	for _, r := range localRecognisers {
		if !d.Types.Allows(r.typ) {
			continue
		}
		for _, loc := range r.pattern.FindAllStringIndex(text, -1) {
			entities = append(entities, Entity{
				Type:  r.typ,
				Text:  text[loc[0]:loc[1]],
				Score: r.score,
				Start: runeOffset(text, loc[0]),
				End:   runeOffset(text, loc[1]),
			})
		}
	}
	return entities, nil
}

// runeOffset converts a byte offset into a rune offset.
func runeOffset(s string, byteOff int) int {
	if byteOff <= 0 {
		return 0
	}
	if byteOff > len(s) {
		byteOff = len(s)
	}
	return utf8.RuneCountInString(s[:byteOff])
}
