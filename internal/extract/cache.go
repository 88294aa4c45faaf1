package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Cached document-analysis results let a re-run skip the cloud calls
// entirely. Two shapes exist on disk: the normalized per-page layout this
// app writes, and the raw bulk output of the asynchronous analysis API with
// an explicit Page field on every block. Both are accepted; the bulk shape
// is restructured on load. A missing or unparsable file is a cache miss,
// never an error.

// Cache holds normalized per-page blocks for one document.
type Cache struct {
	Pages []CachedPage `json:"pages"`
}

// CachedPage is one page's worth of analysis output.
type CachedPage struct {
	PageNo pageNumber `json:"page_no"`
	Data   pageData   `json:"data"`
}

type pageData struct {
	Blocks []Block `json:"Blocks"`
}

// pageNumber tolerates both string and numeric page_no values, which differ
// between files written by this app and files restructured from bulk output.
type pageNumber int

func (p *pageNumber) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*p = pageNumber(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("page_no is neither number nor string: %s", b)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("page_no %q is not numeric: %w", s, err)
	}
	*p = pageNumber(n)
	return nil
}

func (p pageNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(p))
}

// Page returns the blocks for a 1-indexed page number.
func (c *Cache) Page(n int) ([]Block, bool) {
	for _, p := range c.Pages {
		if int(p.PageNo) == n {
			return p.Data.Blocks, true
		}
	}
	return nil, false
}

// Put stores (or replaces) the blocks for a page.
func (c *Cache) Put(n int, blocks []Block) {
	for i, p := range c.Pages {
		if int(p.PageNo) == n {
			c.Pages[i].Data.Blocks = blocks
			return
		}
	}
	c.Pages = append(c.Pages, CachedPage{PageNo: pageNumber(n), Data: pageData{Blocks: blocks}})
	sort.Slice(c.Pages, func(i, j int) bool { return c.Pages[i].PageNo < c.Pages[j].PageNo })
}

// CachePath is the conventional location of a document's cached analysis.
func CachePath(outputDir, docName string) string {
	return filepath.Join(outputDir, docName+"_textract.json")
}

// LoadCache reads a cached analysis file. The second return value reports
// whether usable results were found.
func LoadCache(path string) (*Cache, bool) {
	log := logrus.WithField("cache", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("cannot read cached analysis file")
		}
		return nil, false
	}

	// Normalized shape first.
	var cache Cache
	if err := json.Unmarshal(raw, &cache); err == nil && len(cache.Pages) > 0 {
		return &cache, true
	}

	// Raw bulk shape: top-level Blocks, each carrying its own Page.
	var bulk struct {
		Blocks []Block `json:"Blocks"`
	}
	if err := json.Unmarshal(raw, &bulk); err != nil || len(bulk.Blocks) == 0 {
		log.Warn("cached analysis file is unusable, treating as cache miss")
		return nil, false
	}
	return restructureBulk(bulk.Blocks), true
}

// restructureBulk groups a flat bulk block list into per-page entries.
// Blocks without a Page field belong to page 1.
func restructureBulk(blocks []Block) *Cache {
	byPage := make(map[int][]Block)
	for _, b := range blocks {
		page := b.Page
		if page == 0 {
			page = 1
		}
		byPage[page] = append(byPage[page], b)
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	cache := &Cache{}
	for _, p := range pages {
		cache.Pages = append(cache.Pages, CachedPage{
			PageNo: pageNumber(p),
			Data:   pageData{Blocks: byPage[p]},
		})
	}
	return cache
}

// Save writes the cache in the normalized shape.
func (c *Cache) Save(path string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal analysis cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write analysis cache: %w", err)
	}
	return nil
}
