// Package rbtree provides a generic red-black tree ordered set with stable
// node handles, bidirectional iteration and an optional free-list node cache.
//
// A Tree is not safe for concurrent use. Callers that share one across
// goroutines must serialize every call, including handle traversal.
package rbtree

import (
	"errors"
)

var (
	// ErrInvalidHandle is the panic value raised when an absent, erased, cleared
	// or foreign handle is dereferenced, advanced or erased.
	ErrInvalidHandle = errors.New("rbtree: invalid handle")
	// ErrOutOfMemory is returned by Insert when the node budget of the
	// allocator is exhausted. The tree is left unmodified.
	ErrOutOfMemory = errors.New("rbtree: node budget exhausted")
)

// Public definitions.

// Tree is a red-black tree holding unique items ordered by a three-way
// comparison function.
type Tree[T any] struct {
	root    *node[T]
	minNode *node[T]
	maxNode *node[T]

	compare func(a, b T) int
	destroy func(item *T)

	allocator *Allocator[T]
	ownsAlloc bool
	count     int
}

// Option configures a Tree.
type Option[T any] func(*options[T])

type options[T any] struct {
	allocator *Allocator[T]
	cacheSize int
	nodeLimit int
}

// WithNodeCache keeps up to capacity erased nodes for reuse by later inserts.
// Zero disables the cache.
func WithNodeCache[T any](capacity int) Option[T] {
	return func(o *options[T]) {
		o.cacheSize = capacity
	}
}

// WithNodeLimit caps the number of nodes the tree may hold at once. Insert
// reports ErrOutOfMemory once the limit is reached.
func WithNodeLimit[T any](limit int) Option[T] {
	return func(o *options[T]) {
		o.nodeLimit = limit
	}
}

// WithAllocator makes the tree draw nodes from a shared allocator. The
// WithNodeCache and WithNodeLimit options are ignored in that case.
func WithAllocator[T any](allocator *Allocator[T]) Option[T] {
	return func(o *options[T]) {
		o.allocator = allocator
	}
}

// New creates an empty tree. compare must be a total order returning a
// negative, zero or positive value; destroy may be nil and otherwise runs
// exactly once per item right before its node is released.
func New[T any](compare func(a, b T) int, destroy func(item *T), opts ...Option[T]) *Tree[T] {
	if compare == nil {
		panic("rbtree: nil compare function")
	}

	var cfg options[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	tree := &Tree[T]{
		compare:   compare,
		destroy:   destroy,
		allocator: cfg.allocator,
	}

	if tree.allocator == nil {
		tree.allocator = NewAllocator[T](cfg.cacheSize, cfg.nodeLimit)
		tree.ownsAlloc = true
	}

	return tree
}

// Len returns the number of items in the tree.
func (tree *Tree[T]) Len() int {
	return tree.count
}

// IsEmpty reports whether the tree holds no items.
func (tree *Tree[T]) IsEmpty() bool {
	return tree.count == 0
}

// Allocator returns the allocator supplying the tree's nodes.
func (tree *Tree[T]) Allocator() *Allocator[T] {
	return tree.allocator
}

// Insert adds item unless an equal one is already present. The returned bool
// is true when a new node was linked. On a duplicate the existing handle is
// returned and the stored item is left untouched; callers that want
// overwrite semantics write through Handle.Item.
func (tree *Tree[T]) Insert(item T) (Handle[T], bool, error) {
	var parent *node[T]

	link := &tree.root

	for *link != nil {
		parent = *link

		cmp := tree.compare(item, parent.item)

		switch {
		case cmp < 0:
			link = &parent.left
		case cmp > 0:
			link = &parent.right
		default:
			return parent.handle(), false, nil
		}
	}

	nd, err := tree.allocator.acquire()
	if err != nil {
		return Handle[T]{}, false, err
	}

	nd.item = item
	nd.parent = parent
	nd.owner = tree
	nd.color = red
	*link = nd
	tree.count++

	tree.maybeSetMinMax(nd)
	tree.insertFixup(nd)

	return nd.handle(), true, nil
}

// Find returns the handle of the item equal to item, or the absent handle.
func (tree *Tree[T]) Find(item T) Handle[T] {
	nd := tree.root

	for nd != nil {
		cmp := tree.compare(item, nd.item)

		switch {
		case cmp < 0:
			nd = nd.left
		case cmp > 0:
			nd = nd.right
		default:
			return nd.handle()
		}
	}

	return Handle[T]{}
}

// FindGE returns the handle of the smallest item >= item, or the absent handle.
func (tree *Tree[T]) FindGE(item T) Handle[T] {
	var best *node[T]

	for nd := tree.root; nd != nil; {
		cmp := tree.compare(item, nd.item)

		switch {
		case cmp == 0:
			return nd.handle()
		case cmp < 0:
			best = nd
			nd = nd.left
		default:
			nd = nd.right
		}
	}

	return best.handle()
}

// FindLE returns the handle of the largest item <= item, or the absent handle.
func (tree *Tree[T]) FindLE(item T) Handle[T] {
	var best *node[T]

	for nd := tree.root; nd != nil; {
		cmp := tree.compare(item, nd.item)

		switch {
		case cmp == 0:
			return nd.handle()
		case cmp > 0:
			best = nd
			nd = nd.right
		default:
			nd = nd.left
		}
	}

	return best.handle()
}

// Erase removes the item referenced by h. Every other handle stays valid.
// It panics with ErrInvalidHandle when h is not live in this tree.
func (tree *Tree[T]) Erase(h Handle[T]) {
	nd := tree.own(h)

	if nd == tree.minNode {
		tree.minNode = nd.next()
	}

	if nd == tree.maxNode {
		tree.maxNode = nd.prev()
	}

	tree.unlink(nd)
	tree.count--

	defer tree.allocator.release(nd)

	if tree.destroy != nil {
		tree.destroy(&nd.item)
	}
}

// Clear removes every item, calling destroy on each. Released nodes bypass
// the node cache.
func (tree *Tree[T]) Clear() {
	nd := tree.root

	for nd != nil {
		switch {
		case nd.left != nil:
			nd = nd.left
		case nd.right != nil:
			nd = nd.right
		default:
			parent := nd.parent
			if parent != nil {
				parent.setChild(parent.left == nd, nil)
			}

			if tree.destroy != nil {
				tree.destroy(&nd.item)
			}

			tree.allocator.drop(nd)

			nd = parent
		}
	}

	tree.root = nil
	tree.minNode = nil
	tree.maxNode = nil
	tree.count = 0
}

// Free clears the tree and flushes its private node cache. A shared
// allocator is left for its owner to flush.
func (tree *Tree[T]) Free() {
	tree.Clear()

	if tree.ownsAlloc {
		tree.allocator.Flush()
	}
}

// Private methods.

// own returns the node behind h after checking that it is live in this tree.
func (tree *Tree[T]) own(h Handle[T]) *node[T] {
	if !h.Valid() || h.nd.owner != tree {
		panic(ErrInvalidHandle)
	}

	return h.nd
}

func (tree *Tree[T]) maybeSetMinMax(nd *node[T]) {
	if tree.minNode == nil || tree.compare(nd.item, tree.minNode.item) < 0 {
		tree.minNode = nd
	}

	if tree.maxNode == nil || tree.compare(nd.item, tree.maxNode.item) > 0 {
		tree.maxNode = nd
	}
}
