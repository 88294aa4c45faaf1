package anonymise

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsweep/docsweep/internal/detect"
)

func emailAnonymiser(s Strategy) *Anonymiser {
	return &Anonymiser{
		Detector: detect.NewLocalDetector("en", []detect.EntityType{detect.TypeEmail}),
		Strategy: s,
	}
}

func TestTextStrategies(t *testing.T) {
	in := "Write to jane@example.com today"

	cases := []struct {
		strategy Strategy
		want     string
	}{
		{StrategyRedact, "Write to REDACTED today"},
		{StrategyEntityName, "Write to [EMAIL_ADDRESS] today"},
		{StrategyMask, "Write to **************** today"},
		{StrategyDrop, "Write to  today"},
	}
	for _, tc := range cases {
		t.Run(string(tc.strategy), func(t *testing.T) {
			out, spans, err := emailAnonymiser(tc.strategy).Text(context.Background(), in)
			require.NoError(t, err)
			require.Len(t, spans, 1)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestTextHashIsStable(t *testing.T) {
	a := emailAnonymiser(StrategyHash)
	out1, _, err := a.Text(context.Background(), "jane@example.com")
	require.NoError(t, err)
	out2, _, err := a.Text(context.Background(), "jane@example.com")
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Len(t, out1, 12)
	assert.NotContains(t, out1, "@")
}

func TestTextNoEntitiesUnchanged(t *testing.T) {
	out, spans, err := emailAnonymiser(StrategyRedact).Text(context.Background(), "nothing here")
	require.NoError(t, err)
	assert.Empty(t, spans)
	assert.Equal(t, "nothing here", out)
}

func TestTextDenyListPass(t *testing.T) {
	a := &Anonymiser{
		Deny:     &detect.DenyList{Terms: []string{"Project Falcon"}},
		Strategy: StrategyRedact,
	}

	out, spans, err := a.Text(context.Background(), "status of Project Falcon is green")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "status of REDACTED is green", out)
}

func TestMergeSpansOverlap(t *testing.T) {
	spans := mergeSpans([]detect.Entity{
		{Type: detect.TypePerson, Start: 5, End: 15},
		{Type: detect.TypeCustom, Start: 10, End: 20},
		{Type: detect.TypeEmail, Start: 30, End: 40},
	})

	require.Len(t, spans, 2)
	assert.Equal(t, 5, spans[0].Start)
	assert.Equal(t, 20, spans[0].End)
	assert.Equal(t, detect.TypePerson, spans[0].Type, "first entity's type wins a merge")
	assert.Equal(t, 30, spans[1].Start)
}

func TestCSVSelectedColumns(t *testing.T) {
	in := strings.Join([]string{
		"name,email,notes",
		"Alice,alice@example.com,call alice@example.com",
		"Bob,none,plain",
	}, "\n")

	var out bytes.Buffer
	cells, err := emailAnonymiser(StrategyRedact).CSV(
		context.Background(), strings.NewReader(in), &out, []string{"email"})
	require.NoError(t, err)
	assert.Equal(t, 1, cells, "only the selected column is rewritten")

	got := out.String()
	assert.Contains(t, got, "Alice,REDACTED,call alice@example.com")
	assert.Contains(t, got, "name,email,notes", "header passes through")
}

func TestCSVAllColumnsByDefault(t *testing.T) {
	in := "a,b\nx@example.com,y@example.com\n"

	var out bytes.Buffer
	cells, err := emailAnonymiser(StrategyMask).CSV(
		context.Background(), strings.NewReader(in), &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cells)
	assert.NotContains(t, out.String(), "example.com")
}

func TestCSVEmptyInput(t *testing.T) {
	var out bytes.Buffer
	cells, err := emailAnonymiser(StrategyRedact).CSV(
		context.Background(), strings.NewReader(""), &out, nil)
	require.NoError(t, err)
	assert.Zero(t, cells)
}
