package workload

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/rbset/pkg/safeconv"
)

// OpKind is the operation applied by a script step.
type OpKind uint8

// Operation kinds.
const (
	OpInsert OpKind = iota
	OpErase
	OpFind

	opKindCount
)

// String returns the lowercase operation name.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpErase:
		return "erase"
	case OpFind:
		return "find"
	default:
		return "op(" + strconv.Itoa(int(k)) + ")"
	}
}

// Op is one script step.
type Op struct {
	Kind OpKind
	Key  uint32
}

// Mix holds relative weights of the mixed phase of a script.
type Mix struct {
	Insert int `json:"insert" yaml:"insert"`
	Erase  int `json:"erase"  yaml:"erase"`
	Find   int `json:"find"   yaml:"find"`
}

// DefaultMix is the weighting used when no mix is configured.
var DefaultMix = Mix{Insert: 50, Erase: 30, Find: 20}

// ErrInvalidMix is returned by ParseMix for malformed or all-zero weights.
var ErrInvalidMix = errors.New("invalid operation mix")

const mixFields = 3

// ParseMix parses "insert:erase:find" weights such as "50:30:20".
func ParseMix(s string) (Mix, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != mixFields {
		return Mix{}, fmt.Errorf("%w: %q: want insert:erase:find", ErrInvalidMix, s)
	}

	weights := make([]int, mixFields)

	for i, part := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || w < 0 {
			return Mix{}, fmt.Errorf("%w: %q: weight %q", ErrInvalidMix, s, part)
		}

		weights[i] = w
	}

	mix := Mix{Insert: weights[0], Erase: weights[1], Find: weights[2]}
	if mix.total() == 0 {
		return Mix{}, fmt.Errorf("%w: %q: all weights are zero", ErrInvalidMix, s)
	}

	return mix, nil
}

// String formats the mix in the form accepted by ParseMix.
func (m Mix) String() string {
	return fmt.Sprintf("%d:%d:%d", m.Insert, m.Erase, m.Find)
}

func (m Mix) total() int {
	return m.Insert + m.Erase + m.Find
}

func (m Mix) pick(rng *rand.Rand) OpKind {
	roll := rng.Intn(m.total())

	switch {
	case roll < m.Insert:
		return OpInsert
	case roll < m.Insert+m.Erase:
		return OpErase
	default:
		return OpFind
	}
}

// Script builds a three-phase script over keys: every key is inserted in
// order, then len(keys) steps drawn from mix on random keys, then every key
// is erased in order so the set ends empty. A zero mix uses DefaultMix.
func Script(keys []uint32, seed int64, mix Mix) []Op {
	if len(keys) == 0 {
		return nil
	}

	if mix.total() <= 0 {
		mix = DefaultMix
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible workloads, not security.
	ops := make([]Op, 0, 3*len(keys))

	for _, key := range keys {
		ops = append(ops, Op{Kind: OpInsert, Key: key})
	}

	for range keys {
		ops = append(ops, Op{Kind: mix.pick(rng), Key: keys[rng.Intn(len(keys))]})
	}

	for _, key := range keys {
		ops = append(ops, Op{Kind: OpErase, Key: key})
	}

	return ops
}

// Count tallies ops by kind.
func Count(ops []Op) map[OpKind]int {
	counts := make(map[OpKind]int, int(opKindCount))

	for _, op := range ops {
		counts[op.Kind]++
	}

	return counts
}

// Stream generates an unbounded sequence of mix-weighted ops on keys drawn
// uniformly from [1, keySpace]. It is not safe for concurrent use.
type Stream struct {
	rng      *rand.Rand
	mix      Mix
	keySpace int
}

// NewStream creates a stream. A zero mix uses DefaultMix and keySpace is
// raised to at least 1.
func NewStream(keySpace int, seed int64, mix Mix) *Stream {
	if mix.total() <= 0 {
		mix = DefaultMix
	}

	return &Stream{
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // reproducible workloads, not security.
		mix:      mix,
		keySpace: max(keySpace, 1),
	}
}

// Next returns the next op.
func (s *Stream) Next() Op {
	kind := s.mix.pick(s.rng)

	return Op{Kind: kind, Key: safeconv.MustIntToUint32(s.rng.Intn(s.keySpace) + 1)}
}
