package extract

import (
	"context"
	"fmt"
)

// CachedExtractor replays a previously cached analysis instead of calling
// the cloud service. Pages absent from the cache are page failures: the
// caller chose the cache, so a silent fallback to fresh cloud calls would
// defeat the cost estimate.
type CachedExtractor struct {
	cache *Cache
}

// NewCachedExtractor wraps a loaded cache as an Extractor.
func NewCachedExtractor(cache *Cache) *CachedExtractor {
	return &CachedExtractor{cache: cache}
}

// Name returns the backend identifier the cache stands in for.
func (e *CachedExtractor) Name() Method { return MethodTextract }

// ExtractPage parses the cached blocks for one page. CloudQueries stays
// zero: cache hits are free.
func (e *CachedExtractor) ExtractPage(ctx context.Context, in PageInput) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blocks, ok := e.cache.Page(in.Page)
	if !ok {
		return nil, fmt.Errorf("%w: page %d not in cached analysis", ErrPageFailed, in.Page)
	}
	return ParseBlocks(blocks, in.Page, in.PageWidth, in.PageHeight), nil
}
