// Package setstore keeps named ordered string sets for the MCP server. Every
// set is a red-black tree; all sets draw nodes from one shared allocator.
package setstore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/suggest"
)

// Range limits.
const (
	// DefaultRangeLimit is used when Range is called with a non-positive limit.
	DefaultRangeLimit = 100
	// MaxRangeLimit caps the number of members returned by Range.
	MaxRangeLimit = 10_000
	// MaxNameLength bounds set names.
	MaxNameLength = 128
)

// Sentinel errors.
var (
	// ErrEmptyName indicates a missing set name.
	ErrEmptyName = errors.New("set name is required")
	// ErrNameTooLong indicates a set name over MaxNameLength bytes.
	ErrNameTooLong = errors.New("set name too long")
	// ErrUnknownSet indicates the named set does not exist.
	ErrUnknownSet = errors.New("unknown set")
)

// SetStats describes one set.
type SetStats struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Height int    `json:"height"`
	Min    string `json:"min,omitempty"`
	Max    string `json:"max,omitempty"`
}

// Store is a mutex-guarded registry of named sets.
type Store struct {
	mu    sync.Mutex
	alloc *rbtree.Allocator[string]
	sets  map[string]*rbtree.Tree[string]
}

// New creates an empty store. cacheCapacity bounds the shared free list and
// nodeLimit bounds live members across all sets; zero disables either.
func New(cacheCapacity, nodeLimit int) *Store {
	return &Store{
		alloc: rbtree.NewAllocator[string](cacheCapacity, nodeLimit),
		sets:  make(map[string]*rbtree.Tree[string]),
	}
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrNameTooLong, len(name), MaxNameLength)
	}

	return nil
}

func (s *Store) lookup(name string) (*rbtree.Tree[string], error) {
	err := validateName(name)
	if err != nil {
		return nil, err
	}

	tree, ok := s.sets[name]
	if !ok {
		known := make([]string, 0, len(s.sets))
		for existing := range s.sets {
			known = append(known, existing)
		}

		slices.Sort(known)

		return nil, fmt.Errorf("%w: %q%s", ErrUnknownSet, name, suggest.Hint(name, known))
	}

	return tree, nil
}

// Insert adds members to the named set, creating it on first use. It returns
// how many members were new. When the node limit is reached the members
// inserted so far stay and the error wraps rbtree.ErrOutOfMemory.
func (s *Store) Insert(name string, members []string) (int, error) {
	err := validateName(name)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, existed := s.sets[name]
	if !existed {
		tree = rbtree.New(strings.Compare, nil, rbtree.WithAllocator(s.alloc))
		s.sets[name] = tree
	}

	added := 0

	for _, member := range members {
		_, inserted, insertErr := tree.Insert(member)
		if insertErr != nil {
			// A set is only created once it holds a member.
			if !existed && tree.IsEmpty() {
				delete(s.sets, name)
			}

			return added, fmt.Errorf("insert %q into %q: %w", member, name, insertErr)
		}

		if inserted {
			added++
		}
	}

	return added, nil
}

// Erase removes members from the named set and returns how many were present.
func (s *Store) Erase(name string, members []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.lookup(name)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, member := range members {
		h := tree.Find(member)
		if !h.Valid() {
			continue
		}

		tree.Erase(h)

		removed++
	}

	return removed, nil
}

// Contains reports membership for each of members, in order.
func (s *Store) Contains(name string, members []string) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	found := make([]bool, len(members))

	for idx, member := range members {
		found[idx] = tree.Find(member).Valid()
	}

	return found, nil
}

// Range returns up to limit members in order starting at from. Forward
// ranges start at the first member >= from, reverse ranges at the last
// member <= from; an empty from starts at the respective end.
func (s *Store) Range(name, from string, limit int, reverse bool) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRangeLimit
	}

	limit = min(limit, MaxRangeLimit)

	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	var h rbtree.Handle[string]

	switch {
	case from == "" && reverse:
		h = tree.RBegin()
	case from == "":
		h = tree.Begin()
	case reverse:
		h = tree.FindLE(from)
	default:
		h = tree.FindGE(from)
	}

	out := make([]string, 0, min(limit, tree.Len()))

	for ; h.Valid() && len(out) < limit; h = step(h, reverse) {
		out = append(out, *h.Item())
	}

	return out, nil
}

func step(h rbtree.Handle[string], reverse bool) rbtree.Handle[string] {
	if reverse {
		return h.RNext()
	}

	return h.Next()
}

// Stats describes the named set.
func (s *Store) Stats(name string) (SetStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.lookup(name)
	if err != nil {
		return SetStats{}, err
	}

	stats := SetStats{Name: name, Size: tree.Len(), Height: tree.Height()}

	if first := tree.Begin(); first.Valid() {
		stats.Min = *first.Item()
		stats.Max = *tree.RBegin().Item()
	}

	return stats, nil
}

// Allocator returns the shared allocator counters.
func (s *Store) Allocator() rbtree.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alloc.Stats()
}

// Drop deletes the named set and reports whether it existed. Its nodes are
// released, not cached.
func (s *Store) Drop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.sets[name]
	if !ok {
		return false
	}

	tree.Clear()
	delete(s.sets, name)

	return true
}

// Names returns the set names in ascending order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Snapshot reports every set's shape and the allocator counters. It is
// suitable as an observability.TreeMetrics source.
func (s *Store) Snapshot() observability.TreeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := observability.TreeSnapshot{
		Trees:     make([]observability.TreeGauge, 0, len(s.sets)),
		Allocator: s.alloc.Stats(),
	}

	for name, tree := range s.sets {
		snap.Trees = append(snap.Trees, observability.TreeGauge{Name: name, Size: tree.Len(), Height: tree.Height()})
	}

	slices.SortFunc(snap.Trees, func(a, b observability.TreeGauge) int {
		return strings.Compare(a.Name, b.Name)
	})

	return snap
}
