// Package search is the equipment search engine: it turns a free-text query
// into filters and corrected terms, retrieves a bounded candidate pool from
// the catalog and ranks it. It also serves autocomplete suggestions and the
// facet lists used to build filter UIs.
package search

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/equipfind/equipfind/internal/analyzer"
	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/fuzzy"
	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/pkg/security"
	"github.com/equipfind/equipfind/internal/query"
	"github.com/equipfind/equipfind/internal/search/ranking"
	"github.com/equipfind/equipfind/internal/text"
	"github.com/equipfind/equipfind/internal/vocab"
)

// Literal network identifiers bypass the whole pipeline.
var (
	ipPattern  = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
	macPattern = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)
)

// maxLikeTerms caps the expanded terms sent to the catalog as substring
// conditions.
const maxLikeTerms = 12

// Config tunes the engine.
type Config struct {
	// CandidateLimit caps the free-text candidate pool.
	CandidateLimit int
	// FallbackLimit caps the structured-only pool used when the free-text
	// pass finds nothing.
	FallbackLimit int
	// VocabularyTTL is how long a vocabulary snapshot is served.
	VocabularyTTL time.Duration
	// SuggestLimit is the number of suggestions when the caller gives none.
	SuggestLimit int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		CandidateLimit: 420,
		FallbackLimit:  520,
		VocabularyTTL:  vocab.DefaultTTL,
		SuggestLimit:   8,
	}
}

// Metrics records engine activity. It is optional.
type Metrics interface {
	vocab.Metrics
	RecordSearch(operation string, duration time.Duration, results int, err error)
	RecordCandidates(pool string, n int)
}

// Request is one search. Zero values mean "not set".
type Request struct {
	Query string `json:"query,omitempty"`
	// FloorID is a floor number.
	FloorID        *int     `json:"floor_id,omitempty"`
	RoomID         *int64   `json:"room_id,omitempty"`
	Type           string   `json:"type,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	Status         string   `json:"status,omitempty"`
	Feature        string   `json:"feature,omitempty"`
	SortByDistance bool     `json:"sort_by_distance,omitempty"`
	MaxDistance    *float64 `json:"max_distance,omitempty"`
}

func (r Request) filters() query.Filters {
	return query.Filters{
		Floor:   r.FloorID,
		Status:  strings.TrimSpace(r.Status),
		Type:    strings.TrimSpace(r.Type),
		Brand:   strings.TrimSpace(r.Brand),
		Feature: strings.TrimSpace(r.Feature),
	}
}

// Result is a ranked equipment with its search annotations.
type Result = ranking.Result

// SearchPerformed is the payload published on bus.TopicSearchPerformed.
type SearchPerformed struct {
	Query       string            `json:"query"`
	Filters     query.Filters     `json:"filters"`
	Corrections map[string]string `json:"corrections,omitempty"`
	Results     int               `json:"results"`
	TookMs      int64             `json:"took_ms"`
	// Shortcut is "ip" or "mac" when a literal network lookup answered.
	Shortcut string `json:"shortcut,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Engine runs searches and suggestions against a catalog.
type Engine struct {
	catalog catalog.Catalog
	stats   catalog.StatsProvider
	log     *logger.Logger
	cfg     Config

	analyzer  analyzer.Analyzer
	matcher   fuzzy.Matcher
	extractor *query.Extractor
	corrector *vocab.Corrector
	ranker    *ranking.Ranker
	vocab     *vocab.Cache
	vocabOpts []vocab.Option

	publisher bus.Publisher
	metrics   Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithAnalyzer sets the tokenizer. The default is analyzer.Plain.
func WithAnalyzer(a analyzer.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithMatcher replaces the native fuzzy matcher.
func WithMatcher(m fuzzy.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithPublisher publishes a SearchPerformed event after every search.
func WithPublisher(p bus.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithMetrics records searches, candidate pools and vocabulary rebuilds.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithVocabularyOptions passes options to the vocabulary cache.
func WithVocabularyOptions(opts ...vocab.Option) Option {
	return func(e *Engine) { e.vocabOpts = append(e.vocabOpts, opts...) }
}

// NewEngine creates an engine over cat. A nil stats provider reports no
// reservations for any equipment.
func NewEngine(cat catalog.Catalog, stats catalog.StatsProvider, log *logger.Logger, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	if cfg.FallbackLimit <= 0 {
		cfg.FallbackLimit = def.FallbackLimit
	}
	if cfg.VocabularyTTL <= 0 {
		cfg.VocabularyTTL = def.VocabularyTTL
	}
	if cfg.SuggestLimit <= 0 {
		cfg.SuggestLimit = def.SuggestLimit
	}
	if log == nil {
		log = logger.Default()
	}
	if stats == nil {
		stats = noStats{}
	}

	e := &Engine{
		catalog:  cat,
		stats:    stats,
		log:      log.WithComponent("search"),
		cfg:      cfg,
		analyzer: analyzer.Plain{},
		matcher:  fuzzy.NewNative(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.extractor = query.NewExtractor(e.matcher, e.log)
	e.corrector = vocab.NewCorrector(e.matcher)
	e.ranker = ranking.New(e.matcher)

	vopts := e.vocabOpts
	if e.metrics != nil {
		vopts = append([]vocab.Option{vocab.WithMetrics(e.metrics)}, vopts...)
	}
	e.vocab = vocab.NewCache(cat, cfg.VocabularyTTL, log, vopts...)

	e.log.Info("Search engine ready",
		"analyzer", e.analyzer.Name(),
		"candidate_limit", cfg.CandidateLimit,
		"fallback_limit", cfg.FallbackLimit,
		"vocabulary_ttl", cfg.VocabularyTTL,
	)
	return e
}

// Vocabulary exposes the engine's vocabulary cache.
func (e *Engine) Vocabulary() *vocab.Cache {
	return e.vocab
}

// WatchCatalog subscribes to catalog change events and invalidates the
// vocabulary on each one.
func (e *Engine) WatchCatalog(ctx context.Context, sub bus.Subscriber) error {
	return sub.Subscribe(ctx, bus.TopicCatalogChanged, func(ctx context.Context, event bus.Event) error {
		var changed catalog.Changed
		if err := bus.DecodePayload(event, &changed); err != nil {
			e.log.WithError(err).Debug("Catalog change without a readable payload", "event_id", event.ID)
		}
		e.vocab.Invalidate()
		e.log.Debug("Vocabulary invalidated",
			"event_id", event.ID,
			"reason", changed.Reason,
			"ids", len(changed.IDs),
		)
		return nil
	})
}

// Search runs the full pipeline for req. Only required collaborator
// failures are returned; optional enhancements degrade silently.
func (e *Engine) Search(ctx context.Context, req Request) ([]Result, error) {
	start := time.Now()
	out, trace, err := e.search(ctx, req)
	took := time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordSearch("search", took, len(out), err)
	}

	log := e.log.WithContext(ctx)
	if err != nil {
		log.WithError(err).Error("Search failed", "query", security.SanitizeForLog(req.Query))
	} else {
		log.Debug("Search completed",
			"query", security.SanitizeForLog(req.Query),
			"results", len(out),
			"took_ms", took.Milliseconds(),
			"shortcut", trace.Shortcut,
		)
	}

	trace.Query = req.Query
	trace.Results = len(out)
	trace.TookMs = took.Milliseconds()
	if err != nil {
		trace.Error = apperrors.CodeOf(err)
	}
	e.publish(ctx, trace)

	return out, err
}

func (e *Engine) search(ctx context.Context, req Request) ([]Result, SearchPerformed, error) {
	var trace SearchPerformed
	raw := strings.TrimSpace(req.Query)

	if kind, ok := networkKind(raw); ok {
		trace.Shortcut = string(kind)
		found, err := e.catalog.FindByNetwork(ctx, kind, raw)
		if err != nil {
			return nil, trace, apperrors.CatalogError("network lookup failed", err)
		}
		out := make([]Result, len(found))
		for i, eq := range found {
			out[i] = Result{Equipment: eq}
		}
		return out, trace, nil
	}

	facets, err := e.loadFacets(ctx)
	if err != nil {
		return nil, trace, err
	}

	tokens := e.analyzer.Tokens(raw)
	extraction := e.extractor.Extract(raw, tokens, facets)

	snap := e.vocab.Get(ctx)
	corrected, corrections := e.corrector.Correct(extraction.Cleaned, snap)
	expanded := vocab.Expand(corrected)

	normalized := text.Normalize(raw)
	if len(expanded) == 0 && normalized != "" {
		expanded = vocab.Expand(text.FilterNoise(text.Tokenize(normalized)))
	}

	inferred := extraction.Filters
	if req.Type == "" && inferred.Type == "" {
		terms := expanded
		if len(terms) == 0 {
			terms = tokens
		}
		inferred.Type = e.extractor.InferTypeFromTerms(terms, facets.Types, normalized)
	}

	filters := req.filters().Merge(inferred)
	queryClean := joinTerms(expanded)
	trace.Filters = filters
	trace.Corrections = corrections

	candidates, err := e.retrieve(ctx, filters, req.RoomID, queryClean, expanded)
	if err != nil {
		return nil, trace, err
	}
	if len(candidates) == 0 {
		return []Result{}, trace, nil
	}

	stats, ranks, err := e.annotate(ctx, candidates, queryClean)
	if err != nil {
		return nil, trace, err
	}

	out := e.ranker.Rank(ranking.Input{
		Candidates:  candidates,
		Stats:       stats,
		TextRanks:   ranks,
		QueryClean:  queryClean,
		Expanded:    expanded,
		Corrections: corrections,
		Targets: ranking.Targets{
			Type:    filters.Type,
			Status:  filters.Status,
			Brand:   filters.Brand,
			Feature: filters.Feature,
			Floor:   filters.Floor,
		},
		SortByDistance: req.SortByDistance,
		MaxDistance:    req.MaxDistance,
	})
	return out, trace, nil
}

// retrieve runs the bounded catalog scan, widening to the structured-only
// pool when the free-text pass finds nothing.
func (e *Engine) retrieve(ctx context.Context, f query.Filters, roomID *int64, queryClean string, expanded []string) ([]catalog.Equipment, error) {
	structured := catalog.ScanQuery{
		Floor:    f.Floor,
		RoomID:   roomID,
		RoomText: f.RoomText,
		Status:   f.Status,
		Type:     f.Type,
		Brand:    f.Brand,
		Feature:  f.Feature,
		Limit:    e.cfg.CandidateLimit,
	}

	q := structured
	if queryClean != "" {
		q.Terms = likeTerms(queryClean, expanded)
	}

	candidates, err := e.catalog.Scan(ctx, q)
	if err != nil {
		return nil, apperrors.CatalogError("candidate scan failed", err)
	}
	pool := "primary"

	if queryClean != "" && len(candidates) == 0 {
		structured.Limit = e.cfg.FallbackLimit
		candidates, err = e.catalog.Scan(ctx, structured)
		if err != nil {
			return nil, apperrors.CatalogError("fallback scan failed", err)
		}
		pool = "fallback"
	}

	if e.metrics != nil {
		e.metrics.RecordCandidates(pool, len(candidates))
	}
	e.log.Debug("Candidates retrieved", "pool", pool, "count", len(candidates), "terms", len(q.Terms))
	return candidates, nil
}

// annotate fetches reservation stats and native text ranks in parallel.
// Stats are required; a text rank failure counts as no rank.
func (e *Engine) annotate(ctx context.Context, candidates []catalog.Equipment, queryClean string) (map[int64]catalog.ReservationStats, map[int64]float64, error) {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	var stats map[int64]catalog.ReservationStats
	var ranks map[int64]float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := e.stats.Stats(gctx, ids)
		if err != nil {
			return apperrors.StatsError("reservation stats lookup failed", err)
		}
		stats = s
		return nil
	})
	if queryClean != "" {
		g.Go(func() error {
			r, err := e.catalog.TextRanks(gctx, queryClean, ids)
			if err != nil {
				e.log.WithError(err).Warn("Text ranking unavailable, ignoring")
				return nil
			}
			ranks = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stats, ranks, nil
}

// loadFacets reads every distinct type, brand, feature and status.
func (e *Engine) loadFacets(ctx context.Context) (catalog.Facets, error) {
	var f catalog.Facets
	targets := []struct {
		field catalog.Field
		dst   *[]string
	}{
		{catalog.FieldType, &f.Types},
		{catalog.FieldBrand, &f.Brands},
		{catalog.FieldFeature, &f.Features},
		{catalog.FieldStatus, &f.Statuses},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			values, err := e.catalog.Distinct(gctx, t.field, 0)
			if err != nil {
				return apperrors.CatalogError("loading "+string(t.field)+" values failed", err)
			}
			*t.dst = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return catalog.Facets{}, err
	}
	return f, nil
}

func (e *Engine) publish(ctx context.Context, payload SearchPerformed) {
	if e.publisher == nil {
		return
	}
	event := bus.NewEvent(bus.TopicSearchPerformed, "search", payload)
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		event.CorrelationID = reqID
	}
	if err := e.publisher.Publish(ctx, bus.TopicSearchPerformed, event); err != nil {
		e.log.WithError(err).Warn("Failed to publish search event")
	}
}

func networkKind(raw string) (catalog.NetworkKind, bool) {
	switch {
	case raw == "":
		return "", false
	case ipPattern.MatchString(raw):
		return catalog.NetworkIP, true
	case macPattern.MatchString(raw):
		return catalog.NetworkMAC, true
	}
	return "", false
}

// joinTerms joins the terms of two or more runes.
func joinTerms(terms []string) string {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if text.Len(t) >= 2 {
			kept = append(kept, t)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// likeTerms is the joined query followed by the first expanded terms,
// normalized, deduplicated and without one-rune terms.
func likeTerms(queryClean string, expanded []string) []string {
	if len(expanded) > maxLikeTerms {
		expanded = expanded[:maxLikeTerms]
	}
	out := make([]string, 0, len(expanded)+1)
	seen := make(map[string]struct{}, len(expanded)+1)
	for _, t := range append([]string{queryClean}, expanded...) {
		n := text.Normalize(t)
		if text.Len(n) < 2 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

type noStats struct{}

func (noStats) Stats(context.Context, []int64) (map[int64]catalog.ReservationStats, error) {
	return map[int64]catalog.ReservationStats{}, nil
}
