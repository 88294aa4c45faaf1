package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCacheNormalizedShape(t *testing.T) {
	path := writeTemp(t, "doc_textract.json", `{
		"pages": [
			{"page_no": "1", "data": {"Blocks": [{"Id": "a", "BlockType": "LINE", "Text": "hello"}]}},
			{"page_no": 2, "data": {"Blocks": [{"Id": "b", "BlockType": "LINE", "Text": "world"}]}}
		]
	}`)

	cache, ok := LoadCache(path)
	require.True(t, ok)

	// page_no is accepted both as string and as number.
	blocks, found := cache.Page(1)
	require.True(t, found)
	assert.Equal(t, "hello", blocks[0].Text)

	blocks, found = cache.Page(2)
	require.True(t, found)
	assert.Equal(t, "world", blocks[0].Text)

	_, found = cache.Page(3)
	assert.False(t, found)
}

func TestLoadCacheBulkShape(t *testing.T) {
	path := writeTemp(t, "bulk.json", `{
		"Blocks": [
			{"Id": "a", "BlockType": "LINE", "Text": "page two", "Page": 2},
			{"Id": "b", "BlockType": "LINE", "Text": "page one", "Page": 1},
			{"Id": "c", "BlockType": "LINE", "Text": "no page field"}
		]
	}`)

	cache, ok := LoadCache(path)
	require.True(t, ok)

	one, found := cache.Page(1)
	require.True(t, found)
	// Blocks without a Page field default to page 1.
	assert.Len(t, one, 2)

	two, found := cache.Page(2)
	require.True(t, found)
	assert.Equal(t, "page two", two[0].Text)
}

func TestLoadCacheMissOnAbsentOrMalformed(t *testing.T) {
	_, ok := LoadCache(filepath.Join(t.TempDir(), "nope.json"))
	assert.False(t, ok, "absent file is a miss, not an error")

	path := writeTemp(t, "bad.json", `{not json at all`)
	_, ok = LoadCache(path)
	assert.False(t, ok, "malformed file is a miss, not an error")

	path = writeTemp(t, "empty.json", `{"something_else": true}`)
	_, ok = LoadCache(path)
	assert.False(t, ok, "unrecognized shape is a miss")
}

func TestCacheSaveRoundTrip(t *testing.T) {
	cache := &Cache{}
	cache.Put(1, []Block{{ID: "a", BlockType: "LINE", Text: "hello"}})
	cache.Put(3, []Block{{ID: "c", BlockType: "LINE", Text: "third"}})
	cache.Put(2, []Block{{ID: "b", BlockType: "LINE", Text: "second"}})

	path := filepath.Join(t.TempDir(), "roundtrip.json")
	require.NoError(t, cache.Save(path))

	loaded, ok := LoadCache(path)
	require.True(t, ok)
	require.Len(t, loaded.Pages, 3)

	// Pages come back sorted and intact.
	assert.Equal(t, 1, int(loaded.Pages[0].PageNo))
	assert.Equal(t, 3, int(loaded.Pages[2].PageNo))
	blocks, found := loaded.Page(2)
	require.True(t, found)
	assert.Equal(t, "second", blocks[0].Text)
}
