package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findType(entities []Entity, t EntityType) []Entity {
	var out []Entity
	for _, e := range entities {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestLocalDetectorEmail(t *testing.T) {
	d := NewLocalDetector("en", []EntityType{TypeEmail})

	entities, err := d.Detect(context.Background(), "Contact jane.doe@example.co.uk for details")
	require.NoError(t, err)

	emails := findType(entities, TypeEmail)
	require.Len(t, emails, 1)
	assert.Equal(t, "jane.doe@example.co.uk", emails[0].Text)
	assert.Equal(t, 8, emails[0].Start)
	assert.Equal(t, 30, emails[0].End)
}

func TestLocalDetectorRespectsTypeSet(t *testing.T) {
	// Email present in text, but only phone detection enabled.
	d := NewLocalDetector("en", []EntityType{TypePhone})

	entities, err := d.Detect(context.Background(), "mail me at x@y.com or call 0161 496 0000")
	require.NoError(t, err)

	assert.Empty(t, findType(entities, TypeEmail))
	assert.NotEmpty(t, findType(entities, TypePhone))
}

func TestLocalDetectorPersonAfterTitle(t *testing.T) {
	d := NewLocalDetector("en", []EntityType{TypePerson})

	entities, err := d.Detect(context.Background(), "Please ask Mr John Smith to sign here")
	require.NoError(t, err)

	people := findType(entities, TypePerson)
	require.Len(t, people, 1)
	assert.Equal(t, "Mr John Smith", people[0].Text)
}

func TestLocalDetectorPostcodeAndNINO(t *testing.T) {
	d := NewLocalDetector("en", []EntityType{TypeUKPostcode, TypeNINO})

	entities, err := d.Detect(context.Background(), "NI QQ 12 34 56 C, address M1 1AE")
	require.NoError(t, err)

	assert.Len(t, findType(entities, TypeNINO), 1)
	assert.Len(t, findType(entities, TypeUKPostcode), 1)
}

func TestLocalDetectorEmptyText(t *testing.T) {
	d := NewLocalDetector("en", nil)
	entities, err := d.Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entities)
}
