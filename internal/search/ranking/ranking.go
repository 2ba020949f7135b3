// Package ranking scores equipment candidates and orders them.
//
// Each candidate gets five signals on a 0-100 scale (text relevance,
// availability, distance, popularity and reservation queue pressure) which
// are blended with a weight profile, plus fixed bonuses for exact filter
// matches.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/fuzzy"
	"github.com/equipfind/equipfind/internal/query"
	"github.com/equipfind/equipfind/internal/text"
)

const (
	// MaxScoredDistance caps the distance signal; beyond it the score is 0.
	MaxScoredDistance = 5000.0

	// MinTextScore drops free-text candidates without any target filter.
	MinTextScore = 18.0

	textRankScale    = 125.0
	correctionBonus  = 4.0
	typeBonus        = 8.0
	statusBonus      = 6.0
	brandBonus       = 5.0
	featureBonus     = 4.0
	floorBonus       = 5.0
	tokenSetWeight   = 0.40
	partialWeight    = 0.25
	coverageWeight   = 0.20
	textRankWeight   = 0.15
	distanceDivisor  = 50.0
	roundingFactor   = 100.0
)

// Weights blends the five signals.
type Weights struct {
	Text         float64
	Availability float64
	Distance     float64
	Popularity   float64
	Queue        float64
}

// ProfileWeights returns the weight profile for a search.
//
//	text + distance sort  0.45 / 0.18 / 0.22 / 0.09 / 0.06
//	text                  0.60 / 0.20 / 0.05 / 0.10 / 0.05
//	distance sort         0    / 0.55 / 0.25 / 0.12 / 0.08
//	neither               0    / 0.55 / 0.10 / 0.12 / 0.08
func ProfileWeights(hasText, sortByDistance bool) Weights {
	switch {
	case hasText && sortByDistance:
		return Weights{Text: 0.45, Availability: 0.18, Distance: 0.22, Popularity: 0.09, Queue: 0.06}
	case hasText:
		return Weights{Text: 0.60, Availability: 0.20, Distance: 0.05, Popularity: 0.10, Queue: 0.05}
	case sortByDistance:
		return Weights{Availability: 0.55, Distance: 0.25, Popularity: 0.12, Queue: 0.08}
	default:
		return Weights{Availability: 0.55, Distance: 0.10, Popularity: 0.12, Queue: 0.08}
	}
}

// Targets are the resolved filters candidates earn bonuses for matching.
type Targets struct {
	Type    string
	Status  string
	Brand   string
	Feature string
	Floor   *int
}

// Any reports whether at least one target is set.
func (t Targets) Any() bool {
	return t.Type != "" || t.Status != "" || t.Brand != "" || t.Feature != "" || t.Floor != nil
}

// Input is everything Rank needs about one search.
type Input struct {
	Candidates []catalog.Equipment
	Stats      map[int64]catalog.ReservationStats
	TextRanks  map[int64]float64

	// QueryClean is the joined expanded terms; empty means no text signal.
	QueryClean  string
	Expanded    []string
	Corrections map[string]string

	Targets        Targets
	SortByDistance bool
	// MaxDistance drops candidates farther than it when non-nil and >= 0.
	MaxDistance *float64
}

// Result is a ranked equipment with its annotations.
type Result struct {
	catalog.Equipment
	// DistanceM is nil when the location has no coordinates.
	DistanceM       *float64 `json:"distance_m"`
	WaitingCount    int      `json:"waiting_count"`
	PopularityScore float64  `json:"popularity_score"`
	RelevanceScore  float64  `json:"relevance_score"`
}

// Ranker scores candidates.
type Ranker struct {
	matcher fuzzy.Matcher
}

// New creates a ranker using m, or the native matcher when m is nil.
func New(m fuzzy.Matcher) *Ranker {
	if m == nil {
		m = fuzzy.NewNative()
	}
	return &Ranker{matcher: m}
}

type scored struct {
	result       Result
	score        float64
	distance     float64
	availability float64
}

// Rank filters, scores and orders the candidates. The output order is
// fully determined by the input: ties fall back to equipment id.
func (r *Ranker) Rank(in Input) []Result {
	candidates := in.Candidates
	distances := make(map[int64]float64, len(candidates))
	for _, e := range candidates {
		distances[e.ID] = Distance(e.Location)
	}

	if in.MaxDistance != nil && *in.MaxDistance >= 0 {
		kept := make([]catalog.Equipment, 0, len(candidates))
		for _, e := range candidates {
			if distances[e.ID] <= *in.MaxDistance {
				kept = append(kept, e)
			}
		}
		candidates = kept
	}
	if len(candidates) == 0 {
		return []Result{}
	}

	var maxActive, maxWaiting int
	for _, e := range candidates {
		st := in.Stats[e.ID]
		maxActive = max(maxActive, st.Active)
		maxWaiting = max(maxWaiting, st.Waiting)
	}

	hasText := in.QueryClean != ""
	w := ProfileWeights(hasText, in.SortByDistance)

	ranked := make([]scored, 0, len(candidates))
	for _, e := range candidates {
		st := in.Stats[e.ID]
		dist := distances[e.ID]

		var textScore float64
		if hasText {
			textScore = r.TextScore(in.QueryClean, Haystack(e), in.Expanded, in.Corrections, in.TextRanks[e.ID])
		}
		availability := query.ClassifyStatus(e.Status).Score()
		popularity := 0.0
		if maxActive > 0 {
			popularity = float64(st.Active) / float64(maxActive) * 100
		}
		queue := 100.0
		if maxWaiting > 0 {
			queue = 100 - float64(st.Waiting)/float64(maxWaiting)*100
		}

		score := textScore*w.Text +
			availability*w.Availability +
			DistanceScore(dist)*w.Distance +
			popularity*w.Popularity +
			queue*w.Queue
		score += bonus(e, in.Targets)

		if hasText && textScore < MinTextScore && !in.Targets.Any() {
			continue
		}

		res := Result{
			Equipment:       e,
			WaitingCount:    st.Waiting,
			PopularityScore: round2(popularity),
			RelevanceScore:  round2(score),
		}
		if !math.IsInf(dist, 1) {
			d := round2(dist)
			res.DistanceM = &d
		}
		ranked = append(ranked, scored{result: res, score: score, distance: dist, availability: availability})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j], in.SortByDistance)
	})

	out := make([]Result, len(ranked))
	for i, s := range ranked {
		out[i] = s.result
	}
	return out
}

func less(a, b scored, byDistance bool) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if byDistance {
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.availability != b.availability {
			return a.availability > b.availability
		}
	} else {
		if a.availability != b.availability {
			return a.availability > b.availability
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
	}
	return a.result.ID < b.result.ID
}

// TextScore blends token-set similarity, partial similarity, term coverage
// and the native full-text rank, plus a bonus per correction target present
// in the haystack.
func (r *Ranker) TextScore(queryClean, haystack string, expanded []string, corrections map[string]string, textRank float64) float64 {
	tokenSet := r.matcher.TokenSetRatio(queryClean, haystack)
	partial := r.matcher.PartialRatio(queryClean, haystack)

	hits := 0
	for _, t := range expanded {
		if t != "" && strings.Contains(haystack, t) {
			hits++
		}
	}
	coverage := float64(hits) / float64(max(1, len(expanded))) * 100

	rank := math.Min(100, textRank*textRankScale)

	score := tokenSet*tokenSetWeight + partial*partialWeight + coverage*coverageWeight + rank*textRankWeight
	for _, target := range corrections {
		if target != "" && strings.Contains(haystack, target) {
			score += correctionBonus
		}
	}
	return score
}

// Haystack is the normalized text of an equipment matched against the query.
func Haystack(e catalog.Equipment) string {
	parts := make([]string, 0, 5+len(e.Features))
	for _, p := range append([]string{e.Type, e.Brand, e.Model, e.Description, e.Location.RoomName}, e.Features...) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return text.Normalize(strings.Join(parts, " "))
}

// Distance is the Euclidean distance of the location from the building
// origin, or +Inf when a coordinate is missing.
func Distance(l catalog.Location) float64 {
	if !l.HasCoordinates() {
		return math.Inf(1)
	}
	return math.Hypot(*l.X, *l.Y)
}

// DistanceScore maps a distance to [0,100]; closer is higher.
func DistanceScore(d float64) float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return 0
	}
	return math.Max(0, 100-math.Min(d, MaxScoredDistance)/distanceDivisor)
}

func bonus(e catalog.Equipment, t Targets) float64 {
	var b float64
	if t.Type != "" && text.Normalize(e.Type) == text.Normalize(t.Type) {
		b += typeBonus
	}
	if t.Status != "" && text.Normalize(e.Status) == text.Normalize(t.Status) {
		b += statusBonus
	}
	if t.Brand != "" && text.Normalize(e.Brand) == text.Normalize(t.Brand) {
		b += brandBonus
	}
	if t.Feature != "" {
		want := text.Normalize(t.Feature)
		for _, f := range e.Features {
			if text.Normalize(f) == want {
				b += featureBonus
				break
			}
		}
	}
	if t.Floor != nil && e.Location.Floor != nil && *e.Location.Floor == *t.Floor {
		b += floorBonus
	}
	return b
}

func round2(v float64) float64 {
	return math.Round(v*roundingFactor) / roundingFactor
}
