// Package workload generates key sequences and mixed operation scripts for
// exercising ordered sets, and encodes them as compact binary traces.
package workload

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Sumatoshi-tech/rbset/pkg/safeconv"
	"github.com/Sumatoshi-tech/rbset/pkg/suggest"
)

// Pattern names a key ordering.
type Pattern string

// Supported key patterns.
const (
	PatternAscending  Pattern = "ascending"
	PatternDescending Pattern = "descending"
	PatternRandom     Pattern = "random"
	PatternDuplicates Pattern = "duplicates"
	PatternSawtooth   Pattern = "sawtooth"
)

// duplicateFanout is the average number of repeats per key in PatternDuplicates.
const duplicateFanout = 10

// stringAlphabet is the character set used by Strings.
const stringAlphabet = "qwertyuiopasdfghjklzxcvbnm"

// ErrUnknownPattern is returned by ParsePattern for unrecognized names.
var ErrUnknownPattern = errors.New("unknown workload pattern")

// Patterns returns every supported pattern in a stable order.
func Patterns() []Pattern {
	return []Pattern{PatternAscending, PatternDescending, PatternRandom, PatternDuplicates, PatternSawtooth}
}

// ParsePattern resolves a pattern name, ignoring case and surrounding space.
func ParsePattern(name string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(name)))

	for _, known := range Patterns() {
		if p == known {
			return p, nil
		}
	}

	names := make([]string, 0, len(Patterns()))
	for _, known := range Patterns() {
		names = append(names, string(known))
	}

	return "", fmt.Errorf("%w: %q%s", ErrUnknownPattern, name, suggest.Hint(string(p), names))
}

// Keys returns n keys laid out according to p. Keys start at 1. Random and
// duplicate patterns are deterministic for a given seed.
func Keys(p Pattern, n int, seed int64) []uint32 {
	if n <= 0 {
		return nil
	}

	keys := make([]uint32, n)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible workloads, not security.

	switch p {
	case PatternDescending:
		for i := range keys {
			keys[i] = safeconv.MustIntToUint32(n - i)
		}
	case PatternRandom:
		for i, v := range rng.Perm(n) {
			keys[i] = safeconv.MustIntToUint32(v + 1)
		}
	case PatternDuplicates:
		distinct := max(n/duplicateFanout, 1)

		for i := range keys {
			keys[i] = safeconv.MustIntToUint32(rng.Intn(distinct) + 1)
		}
	case PatternSawtooth:
		lo, hi := 1, n

		for i := range keys {
			if i%2 == 0 {
				keys[i] = safeconv.MustIntToUint32(lo)
				lo++
			} else {
				keys[i] = safeconv.MustIntToUint32(hi)
				hi--
			}
		}
	default:
		for i := range keys {
			keys[i] = safeconv.MustIntToUint32(i + 1)
		}
	}

	return keys
}

// Strings returns n random lowercase strings of the given length.
func Strings(n, length int, seed int64) []string {
	if n <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible workloads, not security.
	out := make([]string, n)
	buf := make([]byte, length)

	for i := range out {
		for j := range buf {
			buf[j] = stringAlphabet[rng.Intn(len(stringAlphabet))]
		}

		out[i] = string(buf)
	}

	return out
}
