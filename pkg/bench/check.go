package bench

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

// Check names.
const (
	CheckInvariants = "invariants"
	CheckOrder      = "ascending order"
	CheckReverse    = "reverse order"
	CheckSize       = "size"
	CheckFind       = "find every key"
	CheckDuplicates = "duplicate insert"
	CheckDrain      = "erase all"
	CheckReuse      = "node reuse"
)

// maxDiffLines bounds the diff attached to a failed order check.
const maxDiffLines = 12

// CheckResult is the outcome of one property check.
type CheckResult struct {
	Pattern workload.Pattern `json:"pattern" yaml:"pattern"`
	Name    string           `json:"name"    yaml:"name"`
	Passed  bool             `json:"passed"  yaml:"passed"`
	Detail  string           `json:"detail"  yaml:"detail,omitempty"`
}

// Check builds a set from n keys of pattern p and runs the property suite
// against it. Later checks still run when earlier ones fail.
func Check(p workload.Pattern, n int, seed int64) []CheckResult {
	keys := workload.Keys(p, n, seed)
	want := slices.Compact(slices.Sorted(slices.Values(keys)))

	tree := rbtree.New(cmp.Compare[uint32], nil, rbtree.WithNodeCache[uint32](len(want)))
	defer tree.Free()

	var results []CheckResult

	add := func(name string, err error) {
		res := CheckResult{Pattern: p, Name: name, Passed: err == nil}
		if err != nil {
			res.Detail = err.Error()
		}

		results = append(results, res)
	}

	for _, key := range keys {
		_, _, err := tree.Insert(key)
		if err != nil {
			add(CheckInvariants, fmt.Errorf("insert %d: %w", key, err))

			return results
		}
	}

	add(CheckInvariants, tree.Verify())

	forward := slices.Collect(tree.All())
	add(CheckOrder, diffSequences(want, forward))

	backward := slices.Collect(tree.Backward())
	slices.Reverse(backward)
	add(CheckReverse, diffSequences(forward, backward))

	add(CheckSize, checkSize(tree, len(want), len(forward)))
	add(CheckFind, checkFind(tree, keys))
	add(CheckDuplicates, checkDuplicates(tree, keys))
	add(CheckDrain, checkDrain(tree, keys))
	add(CheckReuse, checkReuse(tree, want))

	return results
}

// Failed reports whether any result failed.
func Failed(results []CheckResult) bool {
	return slices.ContainsFunc(results, func(r CheckResult) bool { return !r.Passed })
}

func checkSize(tree *rbtree.Tree[uint32], distinct, traversed int) error {
	if tree.Len() != distinct || traversed != distinct {
		return fmt.Errorf("len %d, traversal %d, distinct keys %d", tree.Len(), traversed, distinct)
	}

	return nil
}

func checkFind(tree *rbtree.Tree[uint32], keys []uint32) error {
	for _, key := range keys {
		h := tree.Find(key)
		if !h.Valid() || *h.Item() != key {
			return fmt.Errorf("key %d not found", key)
		}
	}

	if tree.Find(0).Valid() {
		return fmt.Errorf("found absent key 0")
	}

	return nil
}

func checkDuplicates(tree *rbtree.Tree[uint32], keys []uint32) error {
	size := tree.Len()

	for _, key := range keys {
		h, inserted, err := tree.Insert(key)
		if err != nil {
			return fmt.Errorf("reinsert %d: %w", key, err)
		}

		if inserted || *h.Item() != key {
			return fmt.Errorf("reinsert %d created a new entry", key)
		}
	}

	if tree.Len() != size {
		return fmt.Errorf("len changed from %d to %d", size, tree.Len())
	}

	return nil
}

func checkDrain(tree *rbtree.Tree[uint32], keys []uint32) error {
	for i, key := range keys {
		h := tree.Find(key)
		if !h.Valid() {
			continue
		}

		tree.Erase(h)

		if i%64 == 0 {
			err := tree.Verify()
			if err != nil {
				return fmt.Errorf("after erasing %d: %w", key, err)
			}
		}
	}

	if !tree.IsEmpty() || tree.Begin().Valid() || tree.RBegin().Valid() {
		return fmt.Errorf("tree not empty after erasing every key: len %d", tree.Len())
	}

	return tree.Verify()
}

func checkReuse(tree *rbtree.Tree[uint32], keys []uint32) error {
	before := tree.Allocator().Stats()

	for _, key := range keys {
		_, _, err := tree.Insert(key)
		if err != nil {
			return fmt.Errorf("insert %d: %w", key, err)
		}
	}

	after := tree.Allocator().Stats()
	reused := after.Reuses - before.Reuses

	if after.Allocations != before.Allocations || reused != int64(len(keys)) {
		return fmt.Errorf("reused %d of %d nodes, %d fresh allocations",
			reused, len(keys), after.Allocations-before.Allocations)
	}

	return tree.Verify()
}

// diffSequences returns nil when got equals want and otherwise an error
// carrying a line diff of the two sequences.
func diffSequences(want, got []uint32) error {
	if slices.Equal(want, got) {
		return nil
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(joinLines(want), joinLines(got))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var (
		out   []string
		shown int
	)

	for _, d := range diffs {
		prefix := ""

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for line := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if shown == maxDiffLines {
				out = append(out, "...")

				return fmt.Errorf("sequence mismatch: %s", strings.Join(out, " "))
			}

			out = append(out, prefix+line)
			shown++
		}
	}

	return fmt.Errorf("sequence mismatch: %s", strings.Join(out, " "))
}

func joinLines(values []uint32) string {
	var sb strings.Builder

	for _, v := range values {
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
		sb.WriteByte('\n')
	}

	return sb.String()
}
