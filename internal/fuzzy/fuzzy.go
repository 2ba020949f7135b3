// Package fuzzy scores string similarity on a 0-100 scale.
//
// The scorers mirror the usual family found in fuzzy matching libraries:
// Ratio (indel similarity), PartialRatio (best aligned window), token sort
// and token set ratios, and WRatio which blends them according to the
// length difference of the inputs. All work on runes and are deterministic.
package fuzzy

import (
	"sort"
	"strings"
)

// Matcher is the similarity capability the search engine depends on.
type Matcher interface {
	Ratio(a, b string) float64
	PartialRatio(a, b string) float64
	TokenSetRatio(a, b string) float64
	WRatio(a, b string) float64
	// ExtractOne returns the choice with the best WRatio against query,
	// provided it reaches cutoff. Ties keep the earliest choice.
	ExtractOne(query string, choices []string, cutoff float64) (Match, bool)
}

// Match is a scored choice.
type Match struct {
	Choice string
	Score  float64
	Index  int
}

// Native is the built-in Matcher.
type Native struct{}

// NewNative returns the built-in matcher.
func NewNative() Native { return Native{} }

func (Native) Ratio(a, b string) float64         { return Ratio(a, b) }
func (Native) PartialRatio(a, b string) float64  { return PartialRatio(a, b) }
func (Native) TokenSetRatio(a, b string) float64 { return TokenSetRatio(a, b) }
func (Native) WRatio(a, b string) float64        { return WRatio(a, b) }

func (Native) ExtractOne(query string, choices []string, cutoff float64) (Match, bool) {
	return ExtractOne(query, choices, cutoff)
}

// Ratio is the normalized indel similarity 2*LCS/(len(a)+len(b))*100.
func Ratio(a, b string) float64 {
	return ratioRunes([]rune(a), []rune(b))
}

func ratioRunes(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcs(a, b)) / float64(total)
}

// lcs returns the length of the longest common subsequence.
func lcs(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// PartialRatio is the best Ratio between the shorter string and any
// equally long window of the longer one, including windows clipped at
// either end.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	n, m := len(short), len(long)
	best := 0.0
	consider := func(window []rune) bool {
		if s := ratioRunes(short, window); s > best {
			best = s
		}
		return best == 100
	}

	for i := 0; i+n <= m; i++ {
		if consider(long[i : i+n]) {
			return 100
		}
	}
	for k := 1; k < n && k <= m; k++ {
		if consider(long[:k]) || consider(long[m-k:]) {
			return 100
		}
	}
	return best
}

func tokens(s string) []string {
	return strings.Fields(s)
}

func sortedJoin(words []string) string {
	out := append([]string(nil), words...)
	sort.Strings(out)
	return strings.Join(out, " ")
}

// TokenSortRatio compares both strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedJoin(tokens(a)), sortedJoin(tokens(b)))
}

// PartialTokenSortRatio is PartialRatio over sorted tokens.
func PartialTokenSortRatio(a, b string) float64 {
	return PartialRatio(sortedJoin(tokens(a)), sortedJoin(tokens(b)))
}

// tokenSets splits a and b into their shared tokens and the tokens unique to
// each side, all sorted and deduplicated.
func tokenSets(a, b string) (common, onlyA, onlyB []string) {
	setA := toSet(tokens(a))
	setB := toSet(tokens(b))
	for t := range setA {
		if _, ok := setB[t]; ok {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return common, onlyA, onlyB
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// TokenSetRatio compares the shared tokens against each side's full token
// set. Returns 100 when one side's tokens are a subset of the other's.
func TokenSetRatio(a, b string) float64 {
	common, onlyA, onlyB := tokenSets(a, b)
	if len(common) == 0 && len(onlyA) == 0 && len(onlyB) == 0 {
		return 0
	}
	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sect := strings.Join(common, " ")
	ab := strings.Join(onlyA, " ")
	ba := strings.Join(onlyB, " ")
	if sect == "" {
		return Ratio(ab, ba)
	}

	combinedA := sect + " " + ab
	combinedB := sect + " " + ba
	return max(Ratio(sect, combinedA), Ratio(sect, combinedB), Ratio(combinedA, combinedB))
}

// PartialTokenSetRatio is 100 when any token is shared, else the
// PartialRatio of the differing tokens.
func PartialTokenSetRatio(a, b string) float64 {
	common, onlyA, onlyB := tokenSets(a, b)
	if len(common) > 0 {
		return 100
	}
	return PartialRatio(strings.Join(onlyA, " "), strings.Join(onlyB, " "))
}

// WRatio weighs the other scorers by how different the input lengths are.
func WRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}

	const unbaseScale = 0.95
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))
	end := Ratio(a, b)

	if lenRatio < 1.5 {
		tokenRatio := max(TokenSortRatio(a, b), TokenSetRatio(a, b))
		return max(end, tokenRatio*unbaseScale)
	}

	partialScale := 0.9
	if lenRatio >= 8 {
		partialScale = 0.6
	}
	end = max(end, PartialRatio(a, b)*partialScale)
	partialToken := max(PartialTokenSortRatio(a, b), PartialTokenSetRatio(a, b))
	return max(end, partialToken*unbaseScale*partialScale)
}

// ExtractOne returns the best WRatio match for query among choices whose
// score is at least cutoff. The earliest choice wins ties.
func ExtractOne(query string, choices []string, cutoff float64) (Match, bool) {
	best := Match{Index: -1}
	for i, c := range choices {
		s := WRatio(query, c)
		if s < cutoff {
			continue
		}
		if best.Index < 0 || s > best.Score {
			best = Match{Choice: c, Score: s, Index: i}
		}
	}
	return best, best.Index >= 0
}
