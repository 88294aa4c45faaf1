// Package detect finds typed PII entity spans in extracted text. Two
// swappable backends (a local regex/heuristic engine and AWS Comprehend)
// produce the same Entity shape so everything downstream is
// backend-agnostic. Deny-list terms run as an additional pass producing
// synthetic CUSTOM / CUSTOM_FUZZY entities.
package detect

import "context"

// Method identifies the PII detection backend.
type Method string

const (
	MethodNone  Method = "none"
	MethodLocal Method = "local"
	MethodCloud Method = "comprehend"
)

// EntityType is one member of the fixed detection taxonomy.
type EntityType string

// Local-engine entity types, mirroring the redaction defaults.
const (
	TypePerson      EntityType = "PERSON"
	TypeTitles      EntityType = "TITLES"
	TypeEmail       EntityType = "EMAIL_ADDRESS"
	TypePhone       EntityType = "PHONE_NUMBER"
	TypeStreetName  EntityType = "STREETNAME"
	TypeUKPostcode  EntityType = "UKPOSTCODE"
	TypeCreditCard  EntityType = "CREDIT_CARD"
	TypeIPAddress   EntityType = "IP_ADDRESS"
	TypeNINO        EntityType = "UK_NATIONAL_INSURANCE_NUMBER"
	TypeCustom      EntityType = "CUSTOM"
	TypeCustomFuzzy EntityType = "CUSTOM_FUZZY"
)

// DefaultEntityTypes is the allow set used when none is configured.
var DefaultEntityTypes = []EntityType{
	TypeTitles, TypePerson, TypePhone, TypeEmail, TypeStreetName,
	TypeUKPostcode, TypeCustom,
}

// Entity is one detected PII span. Offsets are rune positions into the
// source line; geometry is attached later by the annotation builder.
type Entity struct {
	Type  EntityType `json:"type"`
	Text  string     `json:"text"`
	Score float64    `json:"score"`
	Start int        `json:"start"`
	End   int        `json:"end"`
}

// Detector is the capability interface selected at session start.
type Detector interface {
	Name() Method
	Detect(ctx context.Context, text string) ([]Entity, error)
}

// TypeSet is a membership filter over entity types.
type TypeSet map[EntityType]bool

// NewTypeSet builds a TypeSet; an empty input means "allow defaults".
func NewTypeSet(types []EntityType) TypeSet {
	if len(types) == 0 {
		types = DefaultEntityTypes
	}
	s := make(TypeSet, len(types))
	for _, t := range types {
		s[t] = true
	}
	return s
}

// Allows reports whether the set admits the given type.
func (s TypeSet) Allows(t EntityType) bool { return s[t] }
