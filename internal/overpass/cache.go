package overpass

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"

	"github.com/MeKo-Tech/underpass/internal/types"
)

const (
	cacheCapacity = 100
	cacheTTL      = 30 * time.Minute
	cacheTTI      = 10 * time.Minute
)

// Entry is the cached value for one (preprocessed_query, bbox) key:
// the converted feature collection, every geocoded area resolved while
// building the query, and the exact query text that was sent.
type Entry struct {
	Collection   *geojson.FeatureCollection
	GeocodeAreas []types.GeocodedArea
	Query        string
}

// Cache deduplicates outbound Overpass requests keyed by
// (preprocessed_query, bbox). It never stores error outcomes — only
// successful Entry values — and coalesces concurrent misses for the
// same key into a single computation via singleflight.
//
// Time-to-idle is approximated on top of the LRU's built-in
// time-to-live by re-inserting the entry (refreshing its expiry) on
// every cache hit; see DESIGN.md for why this stands in for the
// original's true TTI semantics.
type Cache struct {
	lru   *lru.LRU[uint64, Entry]
	group singleflight.Group
}

// NewCache builds an Overpass cache with the capacity and expiration
// policy fixed by the component contract (capacity 100, 30m TTL).
func NewCache() *Cache {
	return &Cache{lru: lru.NewLRU[uint64, Entry](cacheCapacity, nil, cacheTTL)}
}

func cacheKey(query string, bbox types.Bbox) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(query)
	bb := bbox.CacheKeyBytes()
	_, _ = h.Write(bb[:])
	return h.Sum64()
}

// GetOrCompute returns the cached entry for (query, bbox) if present
// (sliding its TTI), otherwise calls compute exactly once even under
// concurrent callers requesting the same key, caching and returning
// its result. compute's error is never cached.
func (c *Cache) GetOrCompute(ctx context.Context, query string, bbox types.Bbox, compute func(ctx context.Context) (Entry, error)) (Entry, error) {
	key := cacheKey(query, bbox)

	if v, ok := c.lru.Get(key); ok {
		c.lru.Add(key, v) // slide TTI
		return v, nil
	}

	v, err, _ := c.group.Do(keyString(key), func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		entry, err := compute(ctx)
		if err != nil {
			return Entry{}, err
		}
		c.lru.Add(key, entry)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func keyString(k uint64) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hex[k&0xf]
		k >>= 4
	}
	return string(b)
}
