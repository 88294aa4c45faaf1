package session

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStableAndShort(t *testing.T) {
	a := Hash("user-1")
	b := Hash("user-1")
	c := Hash("user-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestNewIsolatesSessions(t *testing.T) {
	base := t.TempDir()

	s1, err := New(base, "alice")
	require.NoError(t, err)
	s2, err := New(base, "bob")
	require.NoError(t, err)

	assert.NotEqual(t, s1.Dir, s2.Dir)
	assert.DirExists(t, s1.OutputDir)

	// Same key reuses the same directory.
	again, err := New(base, "alice")
	require.NoError(t, err)
	assert.Equal(t, s1.Dir, again.Dir)
}

func TestOutputPathStripsDirectories(t *testing.T) {
	s, err := New(t.TempDir(), "alice")
	require.NoError(t, err)

	p := s.OutputPath("../../etc/passwd")
	assert.Equal(t, filepath.Join(s.OutputDir, "passwd"), p)
}

func TestOutputsSorted(t *testing.T) {
	s, err := New(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.OutputPath("b.csv"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(s.OutputPath("a.csv"), []byte("x"), 0o600))

	names, err := s.Outputs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, names)
}

func TestLogUsagePrivacyDefault(t *testing.T) {
	s, err := New(t.TempDir(), "alice")
	require.NoError(t, err)

	require.NoError(t, s.LogUsage(Usage{Document: "secret.pdf", Pages: 3, CloudQueries: 6, EstimatedUSD: 0.015}))
	require.NoError(t, s.LogUsage(Usage{Document: "other.pdf", Pages: 1}))

	f, err := os.Open(filepath.Join(s.Dir, "usage.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two rows, header written once")
	assert.Equal(t, usageHeader, rows[0])
	assert.Empty(t, rows[1][2], "document name withheld by default")
	assert.Equal(t, "3", rows[1][3])
	assert.Equal(t, "6", rows[1][4])
	assert.Equal(t, "0.0150", rows[1][5])
}

func TestLogUsageOptInDocumentNames(t *testing.T) {
	s, err := New(t.TempDir(), "alice")
	require.NoError(t, err)
	s.LogDocumentNames = true

	require.NoError(t, s.LogUsage(Usage{Document: "doc.pdf", Pages: 1}))

	f, err := os.Open(filepath.Join(s.Dir, "usage.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", rows[1][2])
}
