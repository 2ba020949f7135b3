package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/fuzzy"
	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/security"
	"github.com/equipfind/equipfind/internal/text"
)

// MaxSuggestions is the upper bound on Suggest's limit.
const MaxSuggestions = 20

// Base scores of a suggestion label against the query.
const (
	prefixScore   = 120.0
	containsScore = 98.0
	minFuzzyScore = 70.0
	tokenHitBonus = 2.0
)

// Source weights added to the base score.
const (
	weightModel         = 16.0
	weightType          = 18.0
	weightBrand         = 8.0
	weightRoom          = 7.0
	weightFeature       = 7.0
	weightInferredType  = 24.0
	weightCorrected     = 22.0
	weightCorrectedType = 30.0
	weightFloor         = 12.0
)

var suggestSources = []struct {
	field  catalog.Field
	limit  int
	weight float64
}{
	{catalog.FieldModel, 120, weightModel},
	{catalog.FieldType, 80, weightType},
	{catalog.FieldBrand, 80, weightBrand},
	{catalog.FieldRoomName, 80, weightRoom},
	{catalog.FieldFeature, 80, weightFeature},
}

const suggestFloorLimit = 10

var floorKeywords = []string{"etage", "floor", "niveau", "طابق"}

// ClampSuggestLimit bounds limit to [1, MaxSuggestions].
func ClampSuggestLimit(limit int) int {
	return max(1, min(limit, MaxSuggestions))
}

// SuggestLimit is the default number of suggestions.
func (e *Engine) SuggestLimit() int {
	return e.cfg.SuggestLimit
}

// Suggest returns up to limit autocomplete labels for a partial query.
func (e *Engine) Suggest(ctx context.Context, q string, limit int) ([]string, error) {
	start := time.Now()
	out, err := e.suggest(ctx, q, ClampSuggestLimit(limit))
	if e.metrics != nil {
		e.metrics.RecordSearch("suggest", time.Since(start), len(out), err)
	}
	if err != nil {
		e.log.WithContext(ctx).WithError(err).Error("Suggest failed", "query", security.SanitizeForLog(q))
	}
	return out, err
}

func (e *Engine) suggest(ctx context.Context, q string, limit int) ([]string, error) {
	normalized := text.Normalize(q)
	if normalized == "" {
		return []string{}, nil
	}

	words := text.Tokenize(normalized)
	cleaned := text.FilterNoise(words)
	terms := cleaned
	if len(terms) == 0 {
		terms = words
	}
	match := strings.Join(cleaned, " ")
	if match == "" {
		match = normalized
	}

	values := make([][]string, len(suggestSources))
	var types []string
	var floors []int
	wantFloors := mentionsFloor(normalized)

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range suggestSources {
		g.Go(func() error {
			v, err := e.catalog.Distinct(gctx, src.field, src.limit)
			if err != nil {
				return apperrors.CatalogError("loading "+string(src.field)+" suggestions failed", err)
			}
			values[i] = v
			return nil
		})
	}
	g.Go(func() error {
		v, err := e.catalog.Distinct(gctx, catalog.FieldType, 0)
		if err != nil {
			return apperrors.CatalogError("loading types failed", err)
		}
		types = v
		return nil
	})
	if wantFloors {
		g.Go(func() error {
			v, err := e.catalog.Floors(gctx, suggestFloorLimit)
			if err != nil {
				return apperrors.CatalogError("loading floors failed", err)
			}
			floors = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := newSuggestions(e.matcher, match)
	for i, src := range suggestSources {
		for _, v := range values[i] {
			s.add(v, src.weight)
		}
	}

	inferred := e.extractor.InferTypeFromIntent(match, types)
	if inferred == "" {
		inferred = e.extractor.InferTypeFromTerms(terms, types, normalized)
	}
	s.add(inferred, weightInferredType)

	corrected, _ := e.corrector.Correct(terms, e.vocab.Get(ctx))
	if phrase := strings.TrimSpace(strings.Join(corrected, " ")); phrase != "" && phrase != match {
		s.add(phrase, weightCorrected)
		s.add(e.extractor.InferTypeFromTerms(corrected, types, phrase), weightCorrectedType)
	}

	for _, f := range floors {
		s.add(fmt.Sprintf("Étage %d", f), weightFloor)
	}

	return s.top(limit), nil
}

func mentionsFloor(normalized string) bool {
	for _, k := range floorKeywords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}

type suggestion struct {
	label string
	score float64
}

// suggestions scores labels against a query and keeps the best score per
// normalized label.
type suggestions struct {
	matcher fuzzy.Matcher
	query   string
	tokens  []string
	best    map[string]suggestion
}

func newSuggestions(m fuzzy.Matcher, query string) *suggestions {
	return &suggestions{
		matcher: m,
		query:   query,
		tokens:  strings.Fields(query),
		best:    make(map[string]suggestion),
	}
}

func (s *suggestions) add(label string, weight float64) {
	label = strings.TrimSpace(label)
	norm := text.Normalize(label)
	if norm == "" {
		return
	}

	var score float64
	switch {
	case strings.HasPrefix(norm, s.query):
		score = prefixScore
	case strings.Contains(norm, s.query):
		score = containsScore
	default:
		score = s.matcher.WRatio(s.query, norm)
		if score < minFuzzyScore {
			return
		}
	}

	for _, t := range s.tokens {
		if strings.Contains(norm, t) {
			score += tokenHitBonus
		}
	}
	score += weight

	if cur, ok := s.best[norm]; !ok || score > cur.score {
		s.best[norm] = suggestion{label: label, score: score}
	}
}

// top orders by score, then shorter label, then label.
func (s *suggestions) top(limit int) []string {
	all := make([]suggestion, 0, len(s.best))
	for _, v := range s.best {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.score != b.score {
			return a.score > b.score
		}
		la, lb := utf8.RuneCountInString(a.label), utf8.RuneCountInString(b.label)
		if la != lb {
			return la < lb
		}
		return a.label < b.label
	})

	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]string, len(all))
	for i, v := range all {
		out[i] = v.label
	}
	return out
}
