package rbtree

// insertFixup restores the red-black properties after nd was linked as a red
// leaf.
func (tree *Tree[T]) insertFixup(nd *node[T]) {
	for {
		parent := nd.parent
		if parent == nil {
			nd.color = black

			return
		}

		if parent.color == black {
			return
		}

		// A red parent is never the root, so the grandparent exists.
		grandparent := parent.parent
		leftSide := parent == grandparent.left
		uncle := grandparent.child(!leftSide)

		if colorOf(uncle) == red {
			parent.color = black
			uncle.color = black
			grandparent.color = red
			nd = grandparent

			continue
		}

		if nd == parent.child(!leftSide) {
			tree.rotate(parent, leftSide)
			nd, parent = parent, nd
		}

		parent.color = black
		grandparent.color = red
		tree.rotate(grandparent, !leftSide)

		return
	}
}

// unlink detaches nd from the tree. A node with two children is replaced by
// its in-order successor through pointer surgery, so the successor keeps its
// identity and its handles stay valid.
func (tree *Tree[T]) unlink(nd *node[T]) {
	var child, parent *node[T]

	removed := nd.color

	switch {
	case nd.left == nil:
		child, parent = nd.right, nd.parent
		tree.transplant(nd, nd.right)
	case nd.right == nil:
		child, parent = nd.left, nd.parent
		tree.transplant(nd, nd.left)
	default:
		succ := nd.right.leftmost()
		removed = succ.color
		child = succ.right

		if succ.parent == nd {
			parent = succ
		} else {
			parent = succ.parent
			tree.transplant(succ, succ.right)
			succ.right = nd.right
			succ.right.parent = succ
		}

		tree.transplant(nd, succ)
		succ.left = nd.left
		succ.left.parent = succ
		succ.color = nd.color
	}

	if removed == black {
		tree.eraseFixup(child, parent)
	}
}

// eraseFixup resolves the extra black carried by nd, a possibly nil node
// whose parent is parent.
func (tree *Tree[T]) eraseFixup(nd, parent *node[T]) {
	for nd != tree.root && colorOf(nd) == black {
		leftSide := nd == parent.left
		// The removed black node leaves a non-empty sibling subtree.
		sibling := parent.child(!leftSide)

		if sibling.color == red {
			sibling.color = black
			parent.color = red
			tree.rotate(parent, leftSide)
			sibling = parent.child(!leftSide)
		}

		near := sibling.child(leftSide)
		far := sibling.child(!leftSide)

		if colorOf(near) == black && colorOf(far) == black {
			sibling.color = red
			nd = parent
			parent = nd.parent

			continue
		}

		if colorOf(far) == black {
			near.color = black
			sibling.color = red
			tree.rotate(sibling, !leftSide)
			sibling = parent.child(!leftSide)
			far = sibling.child(!leftSide)
		}

		sibling.color = parent.color
		parent.color = black
		far.color = black
		tree.rotate(parent, leftSide)

		nd = tree.root
	}

	if nd != nil {
		nd.color = black
	}
}

// transplant puts replacement where nd hangs from its parent.
func (tree *Tree[T]) transplant(nd, replacement *node[T]) {
	tree.replaceChild(nd.parent, nd, replacement)

	if replacement != nil {
		replacement.parent = nd.parent
	}
}

func (tree *Tree[T]) replaceChild(parent, old, replacement *node[T]) {
	switch {
	case parent == nil:
		tree.root = replacement
	case parent.left == old:
		parent.left = replacement
	default:
		parent.right = replacement
	}
}

// rotate performs a tree rotation around pivot. left=true performs a left
// rotation, left=false a right one.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree[T]) rotate(pivot *node[T], left bool) {
	child := pivot.child(!left)
	inner := child.child(left)

	pivot.setChild(!left, inner)

	if inner != nil {
		inner.parent = pivot
	}

	child.parent = pivot.parent
	tree.replaceChild(pivot.parent, pivot, child)

	child.setChild(left, pivot)
	pivot.parent = child
}
