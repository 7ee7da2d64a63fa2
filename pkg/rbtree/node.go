package rbtree

// color is the red-black color of a node.
type color bool

const (
	red   color = false
	black color = true
)

// node is a tree node. owner is nil while the node sits in a cache or has
// been dropped; gen changes every time the node is released so that handles
// taken before a reuse can be told apart from fresh ones.
type node[T any] struct {
	item   T
	left   *node[T]
	right  *node[T]
	parent *node[T]
	owner  *Tree[T]
	gen    uint64
	color  color
}

// Internal node attribute accessors.

// colorOf treats nil leaves as black.
func colorOf[T any](nd *node[T]) color {
	if nd == nil {
		return black
	}

	return nd.color
}

// child returns the left child when left is true, the right one otherwise.
func (nd *node[T]) child(left bool) *node[T] {
	if left {
		return nd.left
	}

	return nd.right
}

func (nd *node[T]) setChild(left bool, child *node[T]) {
	if left {
		nd.left = child
	} else {
		nd.right = child
	}
}

func (nd *node[T]) leftmost() *node[T] {
	for nd.left != nil {
		nd = nd.left
	}

	return nd
}

func (nd *node[T]) rightmost() *node[T] {
	for nd.right != nil {
		nd = nd.right
	}

	return nd
}

// next returns the in-order successor of nd, or nil.
func (nd *node[T]) next() *node[T] {
	if nd.right != nil {
		return nd.right.leftmost()
	}

	for nd.parent != nil && nd == nd.parent.right {
		nd = nd.parent
	}

	return nd.parent
}

// prev returns the in-order predecessor of nd, or nil.
func (nd *node[T]) prev() *node[T] {
	if nd.left != nil {
		return nd.left.rightmost()
	}

	for nd.parent != nil && nd == nd.parent.left {
		nd = nd.parent
	}

	return nd.parent
}

// handle wraps nd into a Handle. A nil node yields the absent handle.
func (nd *node[T]) handle() Handle[T] {
	if nd == nil {
		return Handle[T]{}
	}

	return Handle[T]{nd: nd, gen: nd.gen}
}
