package lists

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTermsMergesAndDeduplicates(t *testing.T) {
	a := writeList(t, "a.csv", "allow_list\nAcme Corp\nLondon\n")
	b := writeList(t, "b.csv", "london\nParis\n\n")

	terms := LoadTerms(a, b)

	// Header skipped, "london" deduplicated case-insensitively, first
	// casing wins.
	assert.Equal(t, []string{"Acme Corp", "London", "Paris"}, terms)
}

func TestLoadTermsMissingFile(t *testing.T) {
	terms := LoadTerms(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Empty(t, terms, "missing file is an empty list, not an error")
}

func TestLoadPageNumbers(t *testing.T) {
	path := writeList(t, "pages.csv", "fully_redacted_pages_list\n3\n1\nnot-a-number\n3\n0\n")

	pages := LoadPageNumbers(path)
	assert.Equal(t, []int{1, 3}, pages, "sorted, deduplicated, junk skipped")
}

func TestAllowsText(t *testing.T) {
	l := &Lists{Allow: []string{"John Smith"}}

	assert.True(t, l.AllowsText("john smith"))
	assert.True(t, l.AllowsText("  John Smith "))
	assert.False(t, l.AllowsText("John Smithson"))
}

func TestIsFullPage(t *testing.T) {
	l := &Lists{FullPages: []int{2, 5}}

	assert.True(t, l.IsFullPage(2))
	assert.False(t, l.IsFullPage(3))
}
