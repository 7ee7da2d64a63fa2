package rbtree

// Allocator supplies tree nodes and keeps a bounded free list of released
// ones for reuse. Several trees of the same item type may share one
// allocator as long as they are used from a single goroutine.
type Allocator[T any] struct {
	free     []*node[T]
	capacity int
	limit    int
	live     int

	allocations int64
	reuses      int64
	releases    int64
	drops       int64
}

// Stats holds allocator counters.
type Stats struct {
	Allocations int64 `json:"allocations" yaml:"allocations"` // Nodes created from scratch.
	Reuses      int64 `json:"reuses"      yaml:"reuses"`      // Nodes taken from the free list.
	Releases    int64 `json:"releases"    yaml:"releases"`    // Nodes pushed onto the free list.
	Drops       int64 `json:"drops"       yaml:"drops"`       // Nodes handed to the garbage collector.
	Live        int   `json:"live"        yaml:"live"`        // Nodes currently linked into a tree.
	Cached      int   `json:"cached"      yaml:"cached"`      // Nodes waiting on the free list.
	Capacity    int   `json:"capacity"    yaml:"capacity"`    // Free list bound, 0 when caching is disabled.
	Limit       int   `json:"limit"       yaml:"limit"`       // Live node budget, 0 when unlimited.
}

// ReuseRate returns the fraction of acquired nodes served from the free list.
func (s Stats) ReuseRate() float64 {
	total := s.Allocations + s.Reuses
	if total == 0 {
		return 0
	}

	return float64(s.Reuses) / float64(total)
}

// NewAllocator creates an allocator caching up to capacity released nodes
// and holding at most limit live nodes. Zero disables either bound.
func NewAllocator[T any](capacity, limit int) *Allocator[T] {
	capacity = max(capacity, 0)

	return &Allocator[T]{
		free:     make([]*node[T], 0, capacity),
		capacity: capacity,
		limit:    max(limit, 0),
	}
}

// Stats returns the current counters.
func (allocator *Allocator[T]) Stats() Stats {
	return Stats{
		Allocations: allocator.allocations,
		Reuses:      allocator.reuses,
		Releases:    allocator.releases,
		Drops:       allocator.drops,
		Live:        allocator.live,
		Cached:      len(allocator.free),
		Capacity:    allocator.capacity,
		Limit:       allocator.limit,
	}
}

// Flush drops every cached node.
func (allocator *Allocator[T]) Flush() {
	allocator.drops += int64(len(allocator.free))
	clear(allocator.free)
	allocator.free = allocator.free[:0]
}

// acquire pops the most recently released node, or creates one.
func (allocator *Allocator[T]) acquire() (*node[T], error) {
	if last := len(allocator.free) - 1; last >= 0 {
		nd := allocator.free[last]
		allocator.free[last] = nil
		allocator.free = allocator.free[:last]
		allocator.reuses++
		allocator.live++

		return nd, nil
	}

	if allocator.limit > 0 && allocator.live >= allocator.limit {
		return nil, ErrOutOfMemory
	}

	allocator.allocations++
	allocator.live++

	return &node[T]{}, nil
}

// release invalidates nd and caches it when the free list has room.
func (allocator *Allocator[T]) release(nd *node[T]) {
	if len(allocator.free) >= allocator.capacity {
		allocator.drop(nd)

		return
	}

	allocator.reset(nd)
	allocator.free = append(allocator.free, nd)
	allocator.releases++
}

// drop invalidates nd and leaves it to the garbage collector.
func (allocator *Allocator[T]) drop(nd *node[T]) {
	allocator.reset(nd)
	allocator.drops++
}

func (allocator *Allocator[T]) reset(nd *node[T]) {
	var zero T

	nd.item = zero
	nd.left = nil
	nd.right = nil
	nd.parent = nil
	nd.owner = nil
	nd.color = red
	nd.gen++
	allocator.live--
}
