package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenyListExactCaseInsensitive(t *testing.T) {
	d := &DenyList{Terms: []string{"Acme Corp"}}

	entities := d.Detect("invoice from ACME CORP dated yesterday")
	require.Len(t, entities, 1)
	assert.Equal(t, TypeCustom, entities[0].Type)
	assert.Equal(t, "ACME CORP", entities[0].Text)
	assert.Equal(t, 13, entities[0].Start)
	assert.Equal(t, 22, entities[0].End)
}

func TestDenyListExactOffsetsWithMultibyteText(t *testing.T) {
	d := &DenyList{Terms: []string{"Smith"}}

	// U+0130 grows when lowercased as a string, which would desync offsets
	// computed over the lowered text. Matching is rune-based so the term at
	// the tail still comes out intact.
	entities := d.Detect("İİİİ smith")
	require.Len(t, entities, 1)
	assert.Equal(t, "smith", entities[0].Text)
	assert.Equal(t, 5, entities[0].Start)
	assert.Equal(t, 10, entities[0].End)
}

func TestDenyListFuzzyWholePhrase(t *testing.T) {
	d := &DenyList{
		Terms:       []string{"John Smith"},
		Fuzzy:       true,
		MaxDistance: 1,
		WholePhrase: true,
	}

	// "Jon Smith" is one deletion away from "John Smith".
	entities := d.Detect("signed by Jon Smith on Monday")

	fuzzy := findType(entities, TypeCustomFuzzy)
	require.Len(t, fuzzy, 1)
	assert.Equal(t, "Jon Smith", fuzzy[0].Text)
	assert.Greater(t, fuzzy[0].Score, 0.8)
}

func TestDenyListFuzzyPerWord(t *testing.T) {
	d := &DenyList{
		Terms:       []string{"John Smith"},
		Fuzzy:       true,
		MaxDistance: 1,
		WholePhrase: false,
	}

	// With whole-phrase off the term is split; each text word is matched
	// against "John" and "Smith" independently.
	entities := d.Detect("Jon met Smyth at noon")

	fuzzy := findType(entities, TypeCustomFuzzy)
	require.Len(t, fuzzy, 2)
	texts := []string{fuzzy[0].Text, fuzzy[1].Text}
	assert.Contains(t, texts, "Jon")
	assert.Contains(t, texts, "Smyth")
}

func TestDenyListFuzzyBudgetRespected(t *testing.T) {
	d := &DenyList{
		Terms:       []string{"John Smith"},
		Fuzzy:       true,
		MaxDistance: 1,
		WholePhrase: true,
	}

	// "Joan Smythe" is more than one edit away.
	entities := d.Detect("signed by Joan Smythe")
	assert.Empty(t, findType(entities, TypeCustomFuzzy))
}

func TestDenyListNoTerms(t *testing.T) {
	d := &DenyList{}
	assert.Empty(t, d.Detect("anything at all"))
}

func TestDenyListMultipleExactOccurrences(t *testing.T) {
	d := &DenyList{Terms: []string{"secret"}}

	entities := d.Detect("secret plans about the secret base")
	assert.Len(t, entities, 2)
}
