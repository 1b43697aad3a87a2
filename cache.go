package piecewise

import (
	"bytes"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/wbrown/piecewise/types"
)

const DefaultCacheSize = 8192

type cacheEntry struct {
	text  []byte
	codes types.Codes
}

// CachedEncoder memoizes the encodings of a Segmenter in an ARC cache.
// Failed encodings are not cached.
type CachedEncoder struct {
	segmenter Segmenter
	cache     *lru.ARCCache
	hits      atomic.Uint64
	misses    atomic.Uint64
}

var _ Segmenter = (*CachedEncoder)(nil)

// NewCachedEncoder caches up to size encodings of segmenter. A size of zero
// or less uses DefaultCacheSize.
func NewCachedEncoder(segmenter Segmenter, size int) (*CachedEncoder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &CachedEncoder{segmenter: segmenter, cache: cache}, nil
}

// Encode returns a copy of the cached codes for text, encoding it on a miss.
func (encoder *CachedEncoder) Encode(text []byte) (types.Codes, error) {
	key := xxhash.Sum64(text)
	if lookup, ok := encoder.cache.Get(key); ok {
		entry := lookup.(*cacheEntry)
		// A hash collision falls through to a fresh encode.
		if bytes.Equal(entry.text, text) {
			encoder.hits.Add(1)
			return append(types.Codes(nil), entry.codes...), nil
		}
	}
	encoder.misses.Add(1)
	codes, err := encoder.segmenter.Encode(text)
	if err != nil {
		return nil, err
	}
	encoder.cache.Add(key, &cacheEntry{
		text:  append([]byte(nil), text...),
		codes: append(types.Codes(nil), codes...),
	})
	return codes, nil
}

func (encoder *CachedEncoder) Hits() uint64 {
	return encoder.hits.Load()
}

func (encoder *CachedEncoder) Misses() uint64 {
	return encoder.misses.Load()
}

func (encoder *CachedEncoder) Len() int {
	return encoder.cache.Len()
}

func (encoder *CachedEncoder) Purge() {
	encoder.cache.Purge()
}
