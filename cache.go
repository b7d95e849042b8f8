package rendergraph

import "github.com/gogpu/rendergraph/internal/cache"

// PlanCache shares compiled plans between graphs with identical declarations.
// A renderer that rebuilds the same frame graph every frame pays for
// resolution, aliasing and synchronization once.
//
// Plans never hold payloads, so a hit still hands each Graph its own pass
// payloads. PlanCache is safe for concurrent use.
type PlanCache struct {
	c *cache.Cache[*plan]
}

// PlanCacheStats is a snapshot of PlanCache counters.
type PlanCacheStats struct {
	Plans      int
	Capacity   int
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Collisions uint64
	// HitRate is Hits over lookups, 0 before the first lookup.
	HitRate float64
}

// NewPlanCache creates a cache holding about capacity plans; 0 means no limit.
func NewPlanCache(capacity int) *PlanCache {
	return &PlanCache{c: cache.New[*plan](capacity)}
}

func (pc *PlanCache) lookup(fp uint64, canon []byte) (*plan, bool) {
	return pc.c.Get(fp, canon)
}

func (pc *PlanCache) store(fp uint64, canon []byte, p *plan) {
	pc.c.Put(fp, canon, p)
}

// Len returns the number of cached plans.
func (pc *PlanCache) Len() int { return pc.c.Len() }

// Clear drops every cached plan.
func (pc *PlanCache) Clear() { pc.c.Clear() }

// Stats returns the cache counters.
func (pc *PlanCache) Stats() PlanCacheStats {
	s := pc.c.Stats()
	return PlanCacheStats{
		Plans:      s.Len,
		Capacity:   s.Capacity,
		Hits:       s.Hits,
		Misses:     s.Misses,
		Evictions:  s.Evictions,
		Collisions: s.Collisions,
		HitRate:    s.HitRate(),
	}
}
