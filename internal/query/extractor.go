package query

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/fuzzy"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/text"
)

// Fuzzy cutoffs on the 0-100 WRatio scale.
const (
	typeTermCutoff    = 86
	typeResolveCutoff = 80
	valueCutoff       = 90
)

var (
	floorBefore = regexp.MustCompile(`(?i)(?:etage|étage|niveau|floor|طابق|الطابق)\s*(\p{Nd}+)`)
	floorAfter  = regexp.MustCompile(`(?i)(\p{Nd}+)\s*(?:er|e|eme)?\s*(?:etage|étage|niveau|floor)`)
	roomPattern = regexp.MustCompile(`(?i)(?:salle|room|قاعة|غرفة)\s*([\p{L}\p{N}_\-]+)`)
)

// Extractor infers Filters from a raw query and the catalog facets.
type Extractor struct {
	matcher fuzzy.Matcher
	log     *logger.Logger
}

// NewExtractor creates an extractor using m for fuzzy matching.
func NewExtractor(m fuzzy.Matcher, log *logger.Logger) *Extractor {
	if m == nil {
		m = fuzzy.NewNative()
	}
	return &Extractor{matcher: m, log: log}
}

// Extract applies every inference rule to the query. tokens are the
// analyzer's tokens for query.
func (e *Extractor) Extract(query string, tokens []string, facets catalog.Facets) Extraction {
	var f Filters
	normalized := text.Normalize(query)

	normTokens := make([]string, 0, len(tokens))
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if n := text.Normalize(t); n != "" {
			normTokens = append(normTokens, n)
			tokenSet[n] = struct{}{}
		}
	}

	if status, ok := detectStatus(normalized, tokenSet); ok {
		f.Status = ResolveStatus(status, facets.Statuses)
	}

	f.Floor = parseFloor(query)

	if m := roomPattern.FindStringSubmatch(query); m != nil {
		f.RoomText = strings.TrimSpace(m[1])
	}

	cleaned := text.FilterNoise(normTokens)
	terms := cleaned
	if len(terms) == 0 {
		terms = normTokens
	}

	f.Type = e.InferTypeFromIntent(normalized, facets.Types)
	if f.Type == "" {
		f.Type = e.InferTypeFromTerms(terms, facets.Types, normalized)
	}
	f.Brand = e.BestValue(terms, normalized, facets.Brands, valueCutoff)
	f.Feature = e.BestValue(terms, normalized, facets.Features, valueCutoff)

	e.log.Debug("Extracted filters",
		"query", query,
		"type", f.Type,
		"brand", f.Brand,
		"feature", f.Feature,
		"status", f.Status,
		"room", f.RoomText,
		"cleaned", len(cleaned),
	)

	return Extraction{Filters: f, Cleaned: cleaned}
}

func parseFloor(query string) *int {
	m := floorBefore.FindStringSubmatch(query)
	if m == nil {
		m = floorAfter.FindStringSubmatch(query)
	}
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(asciiDigits(m[1]))
	if err != nil {
		return nil
	}
	return &n
}

// asciiDigits rewrites any Unicode decimal digits (Arabic-Indic, Devanagari,
// fullwidth, ...) as ASCII. Nd characters come in contiguous runs of ten
// starting at zero, so a digit's value is its offset in the run modulo 10.
func asciiDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf || !unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		zero := r
		for unicode.IsDigit(zero - 1) {
			zero--
		}
		b.WriteByte(byte('0' + (r-zero)%10))
	}
	return b.String()
}

// InferTypeFromIntent resolves the first matching intent pattern onto the
// catalog types.
func (e *Extractor) InferTypeFromIntent(normalizedQuery string, types []string) string {
	canonical, ok := IntentType(normalizedQuery)
	if !ok {
		return ""
	}
	return e.ResolveType(canonical, types)
}

// InferTypeFromTerms tries, in order: an alias phrase in the query, an
// alias token, an exact catalog type, then the best fuzzy catalog type
// across terms.
func (e *Extractor) InferTypeFromTerms(terms, types []string, normalizedQuery string) string {
	if canonical, ok := aliasInQuery(normalizedQuery); ok {
		return e.ResolveType(canonical, types)
	}

	keys, byKey := normalizedValues(types)

	var best string
	var bestScore float64
	for _, term := range terms {
		n := text.Normalize(term)
		if n == "" || text.IsNoise(n) {
			continue
		}
		if canonical, ok := aliasIndex[n]; ok {
			return e.ResolveType(canonical, types)
		}
		if original, ok := byKey[n]; ok {
			return original
		}
		if m, ok := e.matcher.ExtractOne(n, keys, typeTermCutoff); ok && m.Score > bestScore {
			bestScore = m.Score
			best = byKey[m.Choice]
		}
	}
	return best
}

// ResolveType maps a canonical type onto the catalog's own spelling:
// exact, then substring either way, then fuzzy. Falls back to canonical.
func (e *Extractor) ResolveType(canonical string, types []string) string {
	if canonical == "" || len(types) == 0 {
		return canonical
	}
	keys, byKey := normalizedValues(types)
	target := text.Normalize(canonical)

	if original, ok := byKey[target]; ok {
		return original
	}
	if target != "" {
		for _, k := range keys {
			if strings.Contains(k, target) || strings.Contains(target, k) {
				return byKey[k]
			}
		}
	}
	if m, ok := e.matcher.ExtractOne(target, keys, typeResolveCutoff); ok {
		return byKey[m.Choice]
	}
	return canonical
}

// BestValue picks the catalog value a query refers to. A value of three or
// more runes contained in the query wins outright, then an exact term
// match, then the best fuzzy match at or above cutoff.
func (e *Extractor) BestValue(terms []string, normalizedQuery string, values []string, cutoff float64) string {
	if len(values) == 0 {
		return ""
	}
	keys, byKey := normalizedValues(values)

	for _, k := range keys {
		if text.Len(k) >= 3 && strings.Contains(normalizedQuery, k) {
			return byKey[k]
		}
	}

	var best string
	var bestScore float64
	for _, term := range terms {
		n := text.Normalize(term)
		if n == "" || text.IsNoise(n) {
			continue
		}
		if original, ok := byKey[n]; ok {
			return original
		}
		if text.IsNumeric(n) || text.Len(n) < 3 {
			continue
		}
		if m, ok := e.matcher.ExtractOne(n, keys, cutoff); ok && m.Score > bestScore {
			bestScore = m.Score
			best = byKey[m.Choice]
		}
	}
	return best
}

// normalizedValues returns the distinct normalized forms of values in order
// and a map back to the first original spelling.
func normalizedValues(values []string) ([]string, map[string]string) {
	keys := make([]string, 0, len(values))
	byKey := make(map[string]string, len(values))
	for _, v := range values {
		n := text.Normalize(v)
		if n == "" {
			continue
		}
		if _, ok := byKey[n]; ok {
			continue
		}
		byKey[n] = v
		keys = append(keys, n)
	}
	return keys, byKey
}
