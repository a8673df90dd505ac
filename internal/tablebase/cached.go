package tablebase

import (
	"context"
	"sync"

	"github.com/UoLeevi/uochess/internal/board"
)

// CachedProber wraps another prober with a bounded cache keyed by the
// Zobrist key. Root probes are cached as well: the move is relative to the
// side to move, and the key already encodes it.
type CachedProber struct {
	inner   Prober
	maxSize int

	mu     sync.RWMutex
	cache  map[uint64]ProbeResult
	roots  map[uint64]RootResult
	hits   uint64
	misses uint64
}

// NewCachedProber creates a cached prober wrapping the given prober.
func NewCachedProber(inner Prober, cacheSize int) *CachedProber {
	return &CachedProber{
		inner:   inner,
		maxSize: cacheSize,
		cache:   make(map[uint64]ProbeResult),
		roots:   make(map[uint64]RootResult),
	}
}

// NewCachedLichessProber creates a cached Lichess prober for baseURL.
func NewCachedLichessProber(baseURL string) *CachedProber {
	return NewCachedProber(NewLichessProber(baseURL), 100000)
}

func (cp *CachedProber) Probe(ctx context.Context, pos *board.Position) ProbeResult {
	key := pos.Key()
	cp.mu.RLock()
	result, ok := cp.cache[key]
	cp.mu.RUnlock()
	if ok {
		cp.mu.Lock()
		cp.hits++
		cp.mu.Unlock()
		return result
	}

	result = cp.inner.Probe(ctx, pos)

	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.misses++
	if !result.Found {
		return result
	}
	if len(cp.cache) >= cp.maxSize {
		evictHalf(cp.cache, cp.maxSize)
	}
	cp.cache[key] = result
	return result
}

func (cp *CachedProber) ProbeRoot(ctx context.Context, pos *board.Position) RootResult {
	key := pos.Key()
	cp.mu.RLock()
	result, ok := cp.roots[key]
	cp.mu.RUnlock()
	if ok {
		return result
	}

	result = cp.inner.ProbeRoot(ctx, pos)
	if !result.Found {
		return result
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if len(cp.roots) >= cp.maxSize {
		evictHalf(cp.roots, cp.maxSize)
	}
	cp.roots[key] = result
	return result
}

// evictHalf drops about half of m in map iteration order.
func evictHalf[V any](m map[uint64]V, maxSize int) {
	i := 0
	for k := range m {
		if i >= maxSize/2 {
			break
		}
		delete(m, k)
		i++
	}
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	total := cp.hits + cp.misses
	if total == 0 {
		return 0
	}
	return float64(cp.hits) / float64(total) * 100
}

// CacheSize returns the current number of cached entries.
func (cp *CachedProber) CacheSize() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.cache) + len(cp.roots)
}

// Clear clears the cache.
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.cache = make(map[uint64]ProbeResult)
	cp.roots = make(map[uint64]RootResult)
	cp.hits = 0
	cp.misses = 0
}
