// Package vocab maintains the domain vocabulary used for typo correction and
// applies correction and synonym expansion to query terms.
package vocab

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/pkg/hash"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/query"
	"github.com/equipfind/equipfind/internal/text"
)

// DefaultTTL is how long a snapshot is served before the next call rebuilds it.
const DefaultTTL = 45 * time.Second

// Per-source caps on distinct values read from the catalog.
const (
	equipmentValueLimit = 400
	roomValueLimit      = 200
	featureValueLimit   = 200
)

var sources = []struct {
	field catalog.Field
	limit int
}{
	{catalog.FieldType, equipmentValueLimit},
	{catalog.FieldBrand, equipmentValueLimit},
	{catalog.FieldModel, equipmentValueLimit},
	{catalog.FieldDescription, equipmentValueLimit},
	{catalog.FieldRoomName, roomValueLimit},
	{catalog.FieldFeature, featureValueLimit},
}

// Source supplies distinct catalog values.
type Source interface {
	Distinct(ctx context.Context, field catalog.Field, limit int) ([]string, error)
}

// Metrics records vocabulary rebuilds. It is optional.
type Metrics interface {
	RecordVocabularyRebuild(duration time.Duration, terms int, err error)
}

// Snapshot is an immutable, sorted set of normalized vocabulary terms.
type Snapshot struct {
	Terms       []string
	Fingerprint string
	BuiltAt     time.Time

	set     map[string]struct{}
	expired bool
}

func newSnapshot(terms []string, at time.Time) *Snapshot {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return &Snapshot{
		Terms:       terms,
		Fingerprint: hash.Fingerprint(terms),
		BuiltAt:     at,
		set:         set,
	}
}

// Contains reports whether term is in the snapshot.
func (s *Snapshot) Contains(term string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[term]
	return ok
}

// Len returns the number of terms.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Terms)
}

// Cache serves vocabulary snapshots, rebuilding them from the catalog once
// they are older than the TTL. Concurrent rebuilds are allowed; the last one
// to finish wins.
type Cache struct {
	src     Source
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics Metrics

	current atomic.Pointer[Snapshot]
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records rebuilds to m.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a vocabulary cache over src. A non-positive ttl uses
// DefaultTTL.
func NewCache(src Source, ttl time.Duration, log *logger.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		src: src,
		ttl: ttl,
		now: time.Now,
		log: log.WithComponent("vocab"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a fresh snapshot, rebuilding it when stale. If the rebuild
// fails the previous snapshot (or an empty one) is returned.
func (c *Cache) Get(ctx context.Context) *Snapshot {
	cur := c.current.Load()
	now := c.now()
	if cur != nil && !cur.expired && now.Sub(cur.BuiltAt) < c.ttl {
		return cur
	}

	start := time.Now()
	next, err := c.Build(ctx)
	if c.metrics != nil {
		c.metrics.RecordVocabularyRebuild(time.Since(start), next.Len(), err)
	}
	if err != nil {
		c.log.WithError(err).Warn("Vocabulary rebuild failed, keeping previous snapshot",
			"terms", cur.Len(),
		)
		if cur == nil {
			return newSnapshot(nil, time.Time{})
		}
		return cur
	}

	c.current.Store(next)
	if cur == nil || cur.Fingerprint != next.Fingerprint {
		c.log.Debug("Vocabulary rebuilt", "terms", next.Len(), "fingerprint", next.Fingerprint)
	}
	return next
}

// Invalidate marks the current snapshot stale so the next Get rebuilds it.
// The stale terms are still served if that rebuild fails.
func (c *Cache) Invalidate() {
	cur := c.current.Load()
	if cur == nil {
		return
	}
	stale := *cur
	stale.expired = true
	c.current.CompareAndSwap(cur, &stale)
}

// Build reads every vocabulary source and returns a new snapshot without
// storing it.
func (c *Cache) Build(ctx context.Context) (*Snapshot, error) {
	values := make([][]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		g.Go(func() error {
			v, err := c.src.Distinct(gctx, s.field, s.limit)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	terms := make(map[string]struct{})
	for _, vs := range values {
		for _, v := range vs {
			addValue(terms, v)
		}
	}
	for _, a := range query.Aliases() {
		if text.Len(a) >= 3 && !text.IsNoise(a) {
			terms[a] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(terms))
	for t := range terms {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	return newSnapshot(sorted, c.now()), nil
}

// addValue adds the normalized value and its word chunks of three or more
// runes. Noise never enters the vocabulary.
func addValue(terms map[string]struct{}, value string) {
	n := text.Normalize(value)
	if n == "" {
		return
	}
	if text.Len(n) >= 2 && !text.IsNoise(n) {
		terms[n] = struct{}{}
	}
	for _, chunk := range text.Tokenize(n) {
		if text.Len(chunk) >= 3 && !text.IsNoise(chunk) {
			terms[chunk] = struct{}{}
		}
	}
}
