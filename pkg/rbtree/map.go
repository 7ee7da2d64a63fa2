package rbtree

import "iter"

// Entry is the item type stored by Map.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Map is an ordered key/value map backed by a Tree of entries compared by
// key only. Unlike Tree.Insert, Put overwrites the value of an existing key.
type Map[K, V any] struct {
	tree    *Tree[Entry[K, V]]
	destroy func(key K, value V)
}

// NewMap creates an empty map. destroy may be nil and otherwise runs once for
// every entry that is deleted, cleared or overwritten.
func NewMap[K, V any](compare func(a, b K) int, destroy func(key K, value V), opts ...Option[Entry[K, V]]) *Map[K, V] {
	m := &Map[K, V]{destroy: destroy}

	var destroyEntry func(*Entry[K, V])
	if destroy != nil {
		destroyEntry = func(e *Entry[K, V]) {
			destroy(e.Key, e.Value)
		}
	}

	m.tree = New(func(a, b Entry[K, V]) int {
		return compare(a.Key, b.Key)
	}, destroyEntry, opts...)

	return m
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// Put stores value under key. It reports whether an existing entry was
// replaced.
func (m *Map[K, V]) Put(key K, value V) (bool, error) {
	h, inserted, err := m.tree.Insert(Entry[K, V]{Key: key, Value: value})
	if err != nil {
		return false, err
	}

	if inserted {
		return false, nil
	}

	stored := h.Item()

	if m.destroy != nil {
		m.destroy(stored.Key, stored.Value)
	}

	*stored = Entry[K, V]{Key: key, Value: value}

	return true, nil
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	h := m.tree.Find(Entry[K, V]{Key: key})
	if !h.Valid() {
		var zero V

		return zero, false
	}

	return h.Item().Value, true
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	h := m.tree.Find(Entry[K, V]{Key: key})
	if !h.Valid() {
		return false
	}

	m.tree.Erase(h)

	return true
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.tree.Clear()
}

// All yields the entries in ascending key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range m.tree.All() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Backward yields the entries in descending key order.
func (m *Map[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range m.tree.Backward() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}
