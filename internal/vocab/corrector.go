package vocab

import (
	"github.com/equipfind/equipfind/internal/fuzzy"
	"github.com/equipfind/equipfind/internal/query"
	"github.com/equipfind/equipfind/internal/text"
)

const (
	correctionCutoff   = 84
	maxLengthDeviation = 6
)

// Corrector maps unknown terms onto the closest vocabulary term.
type Corrector struct {
	matcher fuzzy.Matcher
}

// NewCorrector creates a corrector using m, or the native matcher when m is nil.
func NewCorrector(m fuzzy.Matcher) *Corrector {
	if m == nil {
		m = fuzzy.NewNative()
	}
	return &Corrector{matcher: m}
}

// Correct returns the normalized terms with typos replaced and the map of
// original term to replacement. Noise, numeric, short and known terms are
// left as they are.
func (c *Corrector) Correct(terms []string, snap *Snapshot) ([]string, map[string]string) {
	corrections := make(map[string]string)
	if len(terms) == 0 || snap.Len() == 0 {
		return terms, corrections
	}

	out := make([]string, 0, len(terms))
	for _, term := range terms {
		n := text.Normalize(term)
		if n == "" {
			continue
		}
		if text.IsNoise(n) || text.IsNumeric(n) || text.Len(n) < 3 || snap.Contains(n) {
			out = append(out, n)
			continue
		}

		m, ok := c.matcher.ExtractOne(n, snap.Terms, correctionCutoff)
		if ok {
			candidate := text.Normalize(m.Choice)
			if candidate != "" && abs(text.Len(candidate)-text.Len(n)) <= maxLengthDeviation {
				corrections[n] = candidate
				out = append(out, candidate)
				continue
			}
		}
		out = append(out, n)
	}
	return out, corrections
}

// Expand returns the terms in order, each followed by its canonical type
// when it is a known alias. Everything is normalized and deduplicated.
func Expand(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	push := func(v string) {
		n := text.Normalize(v)
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	for _, t := range terms {
		push(t)
		if canonical, ok := query.CanonicalType(t); ok {
			push(canonical)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
