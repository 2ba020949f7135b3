package search

import (
	"context"
	"testing"

	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/fuzzy"
	"github.com/equipfind/equipfind/internal/pkg/logger"
)

func scanCatalog() *catalog.Memory {
	return catalog.NewMemory([]catalog.Equipment{
		{ID: 1, Model: "Scan A4", Brand: "Canon", Type: "Scanner", Status: "Disponible"},
	}, nil, nil)
}

func TestSuggest_PrefixAndType(t *testing.T) {
	e := NewEngine(scanCatalog(), nil, logger.Discard(), DefaultConfig())

	got, err := e.Suggest(context.Background(), "scan", 8)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	want := []string{"Scanner", "Scan A4"}
	if len(got) != len(want) {
		t.Fatalf("Suggest() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Suggest() = %v, want %v", got, want)
		}
	}
	for _, s := range got {
		if s == "Canon" {
			t.Error("Canon should not be suggested for scan")
		}
	}
}

func TestSuggest_Limit(t *testing.T) {
	e := NewEngine(scanCatalog(), nil, logger.Discard(), DefaultConfig())

	got, err := e.Suggest(context.Background(), "scan", 1)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 || got[0] != "Scanner" {
		t.Errorf("Suggest() = %v, want [Scanner]", got)
	}
}

func TestSuggest_EmptyQuery(t *testing.T) {
	e := NewEngine(scanCatalog(), nil, logger.Discard(), DefaultConfig())

	for _, q := range []string{"", "   ", "?!"} {
		got, err := e.Suggest(context.Background(), q, 8)
		if err != nil {
			t.Fatalf("Suggest(%q) error = %v", q, err)
		}
		if len(got) != 0 {
			t.Errorf("Suggest(%q) = %v, want none", q, got)
		}
	}
}

func TestSuggest_Floors(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Suggest(context.Background(), "etage", 20)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	found := map[string]bool{}
	for _, s := range got {
		found[s] = true
	}
	for _, want := range []string{"Étage 0", "Étage 1", "Étage 2"} {
		if !found[want] {
			t.Errorf("Suggest() = %v, missing %q", got, want)
		}
	}
}

func TestSuggest_Unique(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Suggest(context.Background(), "scanner", 20)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s] {
			t.Errorf("duplicate suggestion %q in %v", s, got)
		}
		seen[s] = true
	}
}

func TestClampSuggestLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{-3, 1},
		{0, 1},
		{1, 1},
		{8, 8},
		{20, 20},
		{99, 20},
	}
	for _, tt := range tests {
		if got := ClampSuggestLimit(tt.in); got != tt.want {
			t.Errorf("ClampSuggestLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSuggestions_Order(t *testing.T) {
	s := newSuggestions(fuzzy.NewNative(), "ab")
	s.add("abcd", 0)
	s.add("abc", 0)
	s.add("ABC", 5)
	s.add("xyz", 100)

	got := s.top(10)
	want := []string{"ABC", "abcd"}
	if len(got) != len(want) {
		t.Fatalf("top() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("top() = %v, want %v", got, want)
		}
	}
}
