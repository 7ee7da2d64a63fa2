package rbtree

import "iter"

// Handle is a non-owning reference to a tree item. The zero Handle is the
// absent handle. A handle stays valid until its item is erased or the tree
// is cleared; inserting or erasing other items does not affect it.
type Handle[T any] struct {
	nd  *node[T]
	gen uint64
}

// Valid reports whether h refers to a live item.
func (h Handle[T]) Valid() bool {
	return h.nd != nil && h.nd.owner != nil && h.nd.gen == h.gen
}

// Item returns a pointer to the stored item. Changing the fields that take
// part in the comparison breaks the tree ordering.
//
// REQUIRES: h.Valid().
func (h Handle[T]) Item() *T {
	return &h.live().item
}

// Next returns the handle of the in-order successor, or the absent handle
// past the last item.
//
// REQUIRES: h.Valid().
func (h Handle[T]) Next() Handle[T] {
	return h.live().next().handle()
}

// RNext returns the handle of the in-order predecessor, or the absent handle
// before the first item.
//
// REQUIRES: h.Valid().
func (h Handle[T]) RNext() Handle[T] {
	return h.live().prev().handle()
}

func (h Handle[T]) live() *node[T] {
	if !h.Valid() {
		panic(ErrInvalidHandle)
	}

	return h.nd
}

// Begin returns the handle of the smallest item, or the absent handle when
// the tree is empty.
func (tree *Tree[T]) Begin() Handle[T] {
	return tree.minNode.handle()
}

// RBegin returns the handle of the largest item, or the absent handle when
// the tree is empty.
func (tree *Tree[T]) RBegin() Handle[T] {
	return tree.maxNode.handle()
}

// All yields the items in ascending order. The tree must not be modified
// during iteration.
func (tree *Tree[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for nd := tree.minNode; nd != nil; nd = nd.next() {
			if !yield(nd.item) {
				return
			}
		}
	}
}

// Backward yields the items in descending order. The tree must not be
// modified during iteration.
func (tree *Tree[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for nd := tree.maxNode; nd != nil; nd = nd.prev() {
			if !yield(nd.item) {
				return
			}
		}
	}
}
