package search

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/catalog"
	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/logger"
)

func loadBuilding(t *testing.T) *catalog.Memory {
	t.Helper()
	m, err := catalog.LoadFixture("../catalog/testdata/building.yaml")
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	return m
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *catalog.Memory) {
	t.Helper()
	m := loadBuilding(t)
	return NewEngine(m, m, logger.Discard(), DefaultConfig(), opts...), m
}

func resultIDs(results []Result) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func f64(v float64) *float64 { return &v }

func TestSearch_NetworkShortcut(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"ip", "192.168.1.5", []int64{1}},
		{"ip with spaces", "  192.168.1.6 ", []int64{2}},
		{"mac any case", "aa:bb:cc:dd:ee:01", []int64{1}},
		{"unknown ip", "10.0.0.1", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Search(context.Background(), Request{Query: tt.query})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			ids := resultIDs(got)
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
				}
			}
			for _, r := range got {
				if r.DistanceM != nil || r.RelevanceScore != 0 || r.PopularityScore != 0 || r.WaitingCount != 0 {
					t.Errorf("shortcut result %d carries annotations: %+v", r.ID, r)
				}
			}
		})
	}
}

func TestSearch_Deterministic(t *testing.T) {
	e, _ := newTestEngine(t)
	req := Request{Query: "imprimante scanner hp"}

	first, err := e.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Search(context.Background(), req)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		a, b := resultIDs(first), resultIDs(again)
		if len(a) != len(b) {
			t.Fatalf("run %d ids = %v, want %v", i, b, a)
		}
		for j := range a {
			if a[j] != b[j] || first[j].RelevanceScore != again[j].RelevanceScore {
				t.Fatalf("run %d differs: %v vs %v", i, b, a)
			}
		}
	}
}

func TestSearch_MisspelledType(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Search(context.Background(), Request{Query: "sanne"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no results for a misspelled type")
	}
	for _, r := range got {
		if r.Type != "Scanner" {
			t.Errorf("result %d type = %q, want Scanner", r.ID, r.Type)
		}
	}
}

func TestSearch_SentenceFilters(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Search(context.Background(), Request{Query: "imprimante hp etage 1"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) == 0 || got[0].ID != 1 {
		t.Fatalf("ids = %v, want 1 first", resultIDs(got))
	}
	if got[0].DistanceM == nil || *got[0].DistanceM != 50 {
		t.Errorf("distance = %v, want 50", got[0].DistanceM)
	}
	if got[0].WaitingCount != 2 {
		t.Errorf("waiting = %d, want 2", got[0].WaitingCount)
	}
}

func TestSearch_ExplicitFiltersWin(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Search(context.Background(), Request{Query: "scanner", Brand: "Canon"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	ids := resultIDs(got)
	if len(ids) != 1 || ids[0] != 3 {
		t.Errorf("ids = %v, want [3]", ids)
	}
}

func TestSearch_MaxDistance(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Search(context.Background(), Request{Query: "scanner", MaxDistance: f64(100)})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	ids := resultIDs(got)
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("ids = %v, want [2]", ids)
	}
}

func TestSearch_EmptyQueryListsCatalog(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d results, want the whole catalog", len(got))
	}
}

type failingCatalog struct {
	*catalog.Memory
	failDistinct bool
	failScan     bool
}

func (c failingCatalog) Distinct(ctx context.Context, f catalog.Field, limit int) ([]string, error) {
	if c.failDistinct {
		return nil, errors.New("connection refused")
	}
	return c.Memory.Distinct(ctx, f, limit)
}

func (c failingCatalog) Scan(ctx context.Context, q catalog.ScanQuery) ([]catalog.Equipment, error) {
	if c.failScan {
		return nil, errors.New("connection reset")
	}
	return c.Memory.Scan(ctx, q)
}

type failingStats struct{}

func (failingStats) Stats(context.Context, []int64) (map[int64]catalog.ReservationStats, error) {
	return nil, errors.New("stats backend down")
}

func TestSearch_CollaboratorFailures(t *testing.T) {
	m := loadBuilding(t)

	tests := []struct {
		name  string
		cat   catalog.Catalog
		stats catalog.StatsProvider
		want  string
	}{
		{"distinct", failingCatalog{Memory: m, failDistinct: true}, m, apperrors.CodeCatalogError},
		{"scan", failingCatalog{Memory: m, failScan: true}, m, apperrors.CodeCatalogError},
		{"stats", m, failingStats{}, apperrors.CodeStatsError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.cat, tt.stats, logger.Discard(), DefaultConfig())
			_, err := e.Search(context.Background(), Request{Query: "imprimante"})
			if err == nil {
				t.Fatal("Search() error = nil")
			}
			if code := apperrors.CodeOf(err); code != tt.want {
				t.Errorf("code = %q, want %q", code, tt.want)
			}
		})
	}
}

func TestSearch_NilStatsMeansNoReservations(t *testing.T) {
	m := loadBuilding(t)
	e := NewEngine(m, nil, logger.Discard(), DefaultConfig())

	got, err := e.Search(context.Background(), Request{Query: "imprimante"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, r := range got {
		if r.WaitingCount != 0 {
			t.Errorf("result %d waiting = %d, want 0", r.ID, r.WaitingCount)
		}
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []bus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event bus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func TestSearch_PublishesSearchPerformed(t *testing.T) {
	pub := &recordingPublisher{}
	e, _ := newTestEngine(t, WithPublisher(pub))

	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-42")
	if _, err := e.Search(ctx, Request{Query: "192.168.1.5"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != bus.TopicSearchPerformed || ev.CorrelationID != "req-42" {
		t.Errorf("event = %+v", ev)
	}
	var payload SearchPerformed
	if err := bus.DecodePayload(ev, &payload); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if payload.Query != "192.168.1.5" || payload.Results != 1 || payload.Shortcut != "ip" {
		t.Errorf("payload = %+v", payload)
	}
}

type fakeMetrics struct {
	mu         sync.Mutex
	operations []string
	pools      []string
	rebuilds   int
}

func (m *fakeMetrics) RecordSearch(op string, d time.Duration, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, op)
}

func (m *fakeMetrics) RecordCandidates(pool string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = append(m.pools, pool)
}

func (m *fakeMetrics) RecordVocabularyRebuild(d time.Duration, terms int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilds++
}

func TestSearch_Metrics(t *testing.T) {
	fm := &fakeMetrics{}
	e, _ := newTestEngine(t, WithMetrics(fm))

	if _, err := e.Search(context.Background(), Request{Query: "zzzzqqq", Type: "Routeur"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, err := e.Suggest(context.Background(), "scan", 5); err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}

	if len(fm.operations) != 2 || fm.operations[0] != "search" || fm.operations[1] != "suggest" {
		t.Errorf("operations = %v", fm.operations)
	}
	if len(fm.pools) != 1 || fm.pools[0] != "fallback" {
		t.Errorf("pools = %v, want [fallback]", fm.pools)
	}
	if fm.rebuilds == 0 {
		t.Error("vocabulary rebuild not recorded")
	}
}

type recordingCatalog struct {
	*catalog.Memory
	mu     sync.Mutex
	limits []int
}

func (c *recordingCatalog) Scan(ctx context.Context, q catalog.ScanQuery) ([]catalog.Equipment, error) {
	c.mu.Lock()
	c.limits = append(c.limits, q.Limit)
	c.mu.Unlock()
	return c.Memory.Scan(ctx, q)
}

func (c *recordingCatalog) scanLimits() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.limits)
}

func TestSearch_CandidatePoolLimits(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		req  Request
		want []int
	}{
		{"hit uses the primary pool", DefaultConfig(), Request{Query: "imprimante"}, []int{420}},
		{"miss widens to the fallback pool", DefaultConfig(), Request{Query: "zzzzqqq", Type: "Routeur"}, []int{420, 520}},
		{"empty query scans once", DefaultConfig(), Request{}, []int{420}},
		{"configured limits", Config{CandidateLimit: 3, FallbackLimit: 7}, Request{Query: "zzzzqqq", Type: "Routeur"}, []int{3, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadBuilding(t)
			rc := &recordingCatalog{Memory: m}
			e := NewEngine(rc, m, logger.Discard(), tt.cfg)

			if _, err := e.Search(context.Background(), tt.req); err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got := rc.scanLimits(); !slices.Equal(got, tt.want) {
				t.Errorf("scan limits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_WatchCatalog(t *testing.T) {
	e, m := newTestEngine(t)
	b := bus.NewMemoryBus(logger.Discard())
	defer b.Close()

	if err := e.WatchCatalog(context.Background(), b); err != nil {
		t.Fatalf("WatchCatalog() error = %v", err)
	}
	if e.Vocabulary().Get(context.Background()).Contains("traceur") {
		t.Fatal("vocabulary already knows traceur")
	}

	m.Replace([]catalog.Equipment{{ID: 9, Model: "DesignJet T230", Brand: "HP", Type: "Traceur", Status: "Disponible"}}, nil, nil)
	event := bus.NewEvent(bus.TopicCatalogChanged, "admin", catalog.Changed{Reason: "equipment.created", IDs: []int64{9}})
	if err := b.Publish(context.Background(), bus.TopicCatalogChanged, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !e.Vocabulary().Get(context.Background()).Contains("traceur") {
		if time.Now().After(deadline) {
			t.Fatal("vocabulary not rebuilt after catalog change")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFilters(t *testing.T) {
	e, _ := newTestEngine(t)

	opts, err := e.Filters(context.Background())
	if err != nil {
		t.Fatalf("Filters() error = %v", err)
	}
	if got := opts.Types; len(got) != 4 || got[0] != "Imprimante" {
		t.Errorf("Types = %v", got)
	}
	if got := opts.Brands; len(got) != 4 || got[0] != "Canon" {
		t.Errorf("Brands = %v", got)
	}
	if got := opts.Floors; len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("Floors = %v", got)
	}
	if len(opts.Rooms) != 4 {
		t.Errorf("Rooms = %v", opts.Rooms)
	}
	if len(opts.Features) != 3 || len(opts.Statuses) != 3 {
		t.Errorf("Features = %v, Statuses = %v", opts.Features, opts.Statuses)
	}
}

func TestLikeTerms(t *testing.T) {
	got := likeTerms("scanner hp", []string{"scanner", "hp", "scan", "x", "Scanner"})
	want := []string{"scanner hp", "scanner", "hp", "scan"}
	if len(got) != len(want) {
		t.Fatalf("likeTerms() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("likeTerms() = %v, want %v", got, want)
		}
	}
}

func TestNetworkKind(t *testing.T) {
	tests := []struct {
		in   string
		want catalog.NetworkKind
		ok   bool
	}{
		{"192.168.1.5", catalog.NetworkIP, true},
		{"AA-BB-CC-DD-EE-01", catalog.NetworkMAC, true},
		{"192.168.1", "", false},
		{"imprimante", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := networkKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("networkKind(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
