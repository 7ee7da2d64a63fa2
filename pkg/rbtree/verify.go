package rbtree

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by Verify.
var (
	// ErrUnordered indicates two neighboring items are not strictly increasing.
	ErrUnordered = errors.New("items out of order")
	// ErrRedRoot indicates the root node is red.
	ErrRedRoot = errors.New("root is red")
	// ErrRedViolation indicates a red node with a red child.
	ErrRedViolation = errors.New("red node has a red child")
	// ErrBlackHeight indicates two paths with different black node counts.
	ErrBlackHeight = errors.New("unequal black height")
	// ErrBrokenLink indicates a parent or owner pointer that disagrees with the structure.
	ErrBrokenLink = errors.New("broken node link")
	// ErrSizeMismatch indicates Len disagrees with the number of reachable nodes.
	ErrSizeMismatch = errors.New("size mismatch")
)

// Verify walks the whole tree and checks the ordering, coloring, linkage and
// size invariants. It returns the first violation found.
func (tree *Tree[T]) Verify() error {
	if tree.root != nil {
		if tree.root.parent != nil {
			return fmt.Errorf("%w: root has a parent", ErrBrokenLink)
		}

		if tree.root.color == red {
			return ErrRedRoot
		}
	}

	reachable, _, err := tree.verifyNode(tree.root, 0)
	if err != nil {
		return err
	}

	if reachable != tree.count {
		return fmt.Errorf("%w: len %d, reachable %d", ErrSizeMismatch, tree.count, reachable)
	}

	return tree.verifyOrder()
}

// verifyNode returns the node count and black height of the subtree at nd.
func (tree *Tree[T]) verifyNode(nd *node[T], depth int) (count, blackHeight int, err error) {
	if nd == nil {
		return 0, 1, nil
	}

	if nd.owner != tree {
		return 0, 0, fmt.Errorf("%w: foreign node at depth %d", ErrBrokenLink, depth)
	}

	for _, child := range [2]*node[T]{nd.left, nd.right} {
		if child == nil {
			continue
		}

		if child.parent != nd {
			return 0, 0, fmt.Errorf("%w: child at depth %d", ErrBrokenLink, depth+1)
		}

		if nd.color == red && child.color == red {
			return 0, 0, fmt.Errorf("%w: depth %d", ErrRedViolation, depth)
		}
	}

	leftCount, leftHeight, err := tree.verifyNode(nd.left, depth+1)
	if err != nil {
		return 0, 0, err
	}

	rightCount, rightHeight, err := tree.verifyNode(nd.right, depth+1)
	if err != nil {
		return 0, 0, err
	}

	if leftHeight != rightHeight {
		return 0, 0, fmt.Errorf("%w: %d vs %d at depth %d", ErrBlackHeight, leftHeight, rightHeight, depth)
	}

	blackHeight = leftHeight
	if nd.color == black {
		blackHeight++
	}

	return leftCount + rightCount + 1, blackHeight, nil
}

func (tree *Tree[T]) verifyOrder() error {
	if tree.root == nil {
		if tree.minNode != nil || tree.maxNode != nil {
			return fmt.Errorf("%w: stale bounds on empty tree", ErrBrokenLink)
		}

		return nil
	}

	if tree.minNode != tree.root.leftmost() || tree.maxNode != tree.root.rightmost() {
		return fmt.Errorf("%w: cached bounds", ErrBrokenLink)
	}

	prev := tree.minNode

	for index := 1; ; index++ {
		nd := prev.next()
		if nd == nil {
			return nil
		}

		if tree.compare(prev.item, nd.item) >= 0 {
			return fmt.Errorf("%w: position %d", ErrUnordered, index)
		}

		prev = nd
	}
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (tree *Tree[T]) Height() int {
	return len(tree.DepthProfile())
}

// DepthProfile returns the number of nodes found at each depth, root first.
func (tree *Tree[T]) DepthProfile() []int {
	var profile []int

	level := []*node[T]{}
	if tree.root != nil {
		level = append(level, tree.root)
	}

	for len(level) > 0 {
		profile = append(profile, len(level))

		nextLevel := make([]*node[T], 0, 2*len(level))

		for _, nd := range level {
			if nd.left != nil {
				nextLevel = append(nextLevel, nd.left)
			}

			if nd.right != nil {
				nextLevel = append(nextLevel, nd.right)
			}
		}

		level = nextLevel
	}

	return profile
}
