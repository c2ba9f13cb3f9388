package advisory

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/followup-cli/internal/model"
)

// EvictionPolicy selects how the cache bounds its growth.
type EvictionPolicy string

const (
	// EvictNone keeps every entry for the life of the process.
	EvictNone EvictionPolicy = "none"
	// EvictSize discards the oldest inserted entry once MaxEntries is reached.
	EvictSize EvictionPolicy = "size"
	// EvictTTL drops entries older than TTL when they are read.
	EvictTTL EvictionPolicy = "ttl"
)

// CacheOptions configures a MemoryCache.
type CacheOptions struct {
	Policy     EvictionPolicy
	MaxEntries int
	TTL        time.Duration
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// ParseEvictionPolicy validates a configured policy name. Empty means none.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch EvictionPolicy(s) {
	case "", EvictNone:
		return EvictNone, nil
	case EvictSize, EvictTTL:
		return EvictionPolicy(s), nil
	}
	return "", eris.Errorf("advisory: unknown cache eviction policy %q", s)
}

// CacheEntry is one memoized advisory.
type CacheEntry struct {
	Fingerprint string
	Result      model.AdvisoryResult
	CreatedAt   time.Time
}

// CacheStats counts cache traffic.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache memoizes advisories by request fingerprint.
type Cache interface {
	Get(fingerprint string) (model.AdvisoryResult, bool)
	Put(fingerprint string, result model.AdvisoryResult)
	Len() int
	Stats() CacheStats
}

// MemoryCache is a process-local Cache safe for concurrent use.
type MemoryCache struct {
	opts CacheOptions

	mu      sync.Mutex
	entries map[string]CacheEntry
	order   []string // insertion order, used by EvictSize
	stats   CacheStats
}

// NewMemoryCache returns an empty cache. EvictSize requires MaxEntries > 0
// and EvictTTL requires TTL > 0.
func NewMemoryCache(opts CacheOptions) (*MemoryCache, error) {
	if opts.Policy == "" {
		opts.Policy = EvictNone
	}
	switch opts.Policy {
	case EvictNone:
	case EvictSize:
		if opts.MaxEntries <= 0 {
			return nil, eris.New("advisory: size eviction needs max entries > 0")
		}
	case EvictTTL:
		if opts.TTL <= 0 {
			return nil, eris.New("advisory: ttl eviction needs ttl > 0")
		}
	default:
		return nil, eris.Errorf("advisory: unknown cache eviction policy %q", opts.Policy)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MemoryCache{opts: opts, entries: make(map[string]CacheEntry)}, nil
}

// Get returns the cached result for fingerprint, if any.
func (c *MemoryCache) Get(fingerprint string) (model.AdvisoryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if ok && c.opts.Policy == EvictTTL && c.opts.Now().Sub(e.CreatedAt) > c.opts.TTL {
		delete(c.entries, fingerprint)
		c.stats.Evictions++
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return model.AdvisoryResult{}, false
	}
	c.stats.Hits++
	return e.Result, true
}

// Put stores result under fingerprint, replacing any previous entry.
func (c *MemoryCache) Put(fingerprint string, result model.AdvisoryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.entries[fingerprint]
	c.entries[fingerprint] = CacheEntry{
		Fingerprint: fingerprint,
		Result:      result,
		CreatedAt:   c.opts.Now(),
	}

	if c.opts.Policy == EvictSize {
		if !exists {
			c.order = append(c.order, fingerprint)
		}
		c.evictOverflow()
	}
}

// evictOverflow drops the oldest insertions until the size bound holds.
// Caller holds c.mu.
func (c *MemoryCache) evictOverflow() {
	for len(c.entries) > c.opts.MaxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			c.stats.Evictions++
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
