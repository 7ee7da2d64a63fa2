// Package suggest finds the closest known name to a mistyped one, for
// "did you mean" hints on unknown patterns and set names.
package suggest

// maxDistanceDivisor limits suggestions to names within a third of the
// input's length in edits.
const maxDistanceDivisor = 3

// Matcher computes edit distances while reusing one row buffer.
// It is not safe for concurrent use.
type Matcher struct {
	row []int
}

func (m *Matcher) buffer(length int) []int {
	if cap(m.row) < length {
		m.row = make([]int, length)
	}

	return m.row[:length]
}

// Distance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions and substitutions turning one
// into the other. It uses O(len(a)) space.
func (m *Matcher) Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(rb) == 0 {
		return len(ra)
	}

	row := m.buffer(len(ra) + 1)
	for i := range row {
		row[i] = i
	}

	for j, cb := range rb {
		diag := row[0]
		row[0] = j + 1

		for i, ca := range ra {
			cost := 1
			if ca == cb {
				cost = 0
			}

			above := row[i+1]
			row[i+1] = min(above+1, row[i]+1, diag+cost)
			diag = above
		}
	}

	return row[len(ra)]
}

// Closest returns the candidate nearest to input, or false when none is
// within max(1, len(input)/3) edits. Ties keep the earlier candidate.
func (m *Matcher) Closest(input string, candidates []string) (string, bool) {
	limit := max(1, len([]rune(input))/maxDistanceDivisor)

	best, bestDist := "", limit+1

	for _, candidate := range candidates {
		dist := m.Distance(input, candidate)
		if dist < bestDist {
			best, bestDist = candidate, dist
		}
	}

	return best, bestDist <= limit
}

// Closest is a convenience wrapper using a fresh Matcher.
func Closest(input string, candidates []string) (string, bool) {
	var m Matcher

	return m.Closest(input, candidates)
}

// Hint formats a "did you mean" suffix, or returns "" when nothing is close.
func Hint(input string, candidates []string) string {
	best, ok := Closest(input, candidates)
	if !ok {
		return ""
	}

	return " (did you mean " + `"` + best + `"` + "?)"
}
