package fuzzy

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"scanner", "scanner", 100},
		{"abcd", "abce", 75},
		{"", "", 100},
		{"abc", "", 0},
		{"écran", "ecran", 80},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := Ratio(tt.a, tt.b); !approx(got, tt.want) {
				t.Errorf("Ratio(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"scan", "scanner", 100},
		{"scanner", "scan", 100},
		{"ner", "scanner", 100},
		{"xyz", "scanner", 0},
		{"", "scanner", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := PartialRatio(tt.a, tt.b); !approx(got, tt.want) {
				t.Errorf("PartialRatio(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"hp scanner", "scanner", 100},
		{"scanner hp", "hp scanner", 100},
		{"", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := TokenSetRatio(tt.a, tt.b); !approx(got, tt.want) {
				t.Errorf("TokenSetRatio(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}

	if got := TokenSetRatio("canon printer", "epson scanner"); got >= 100 {
		t.Errorf("disjoint token sets scored %.2f", got)
	}
}

func TestWRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"empty", "", "scanner", 0},
		{"identical", "scanner", "scanner", 100},
		{"word order", "laserjet hp", "hp laserjet", 95},
		{"short in long", "hp", "hp laserjet pro", 90},
		{"short in very long", "hp", "hp laserjet pro m404", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WRatio(tt.a, tt.b); !approx(got, tt.want) {
				t.Errorf("WRatio(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestWRatio_TypoAboveCorrectionCutoff(t *testing.T) {
	for _, pair := range [][2]string{
		{"scaner", "scanner"},
		{"imprimente", "imprimante"},
		{"projecter", "projecteur"},
	} {
		if got := WRatio(pair[0], pair[1]); got < 84 {
			t.Errorf("WRatio(%q, %q) = %.2f, want >= 84", pair[0], pair[1], got)
		}
	}
}

func TestExtractOne(t *testing.T) {
	choices := []string{"imprimante", "scanner", "projecteur"}

	m, ok := ExtractOne("scaner", choices, 84)
	if !ok {
		t.Fatal("ExtractOne found no match")
	}
	if m.Choice != "scanner" || m.Index != 1 {
		t.Errorf("ExtractOne = %+v, want scanner at 1", m)
	}

	if _, ok := ExtractOne("zzz", choices, 80); ok {
		t.Error("ExtractOne should respect the cutoff")
	}
	if _, ok := ExtractOne("scanner", nil, 0); ok {
		t.Error("ExtractOne over no choices should fail")
	}
}

func TestExtractOne_TieKeepsEarliest(t *testing.T) {
	m, ok := ExtractOne("hp", []string{"hp", "hp"}, 50)
	if !ok || m.Index != 0 {
		t.Errorf("ExtractOne tie = %+v, want index 0", m)
	}
}

func TestNativeImplementsMatcher(t *testing.T) {
	var m Matcher = NewNative()
	if m.WRatio("scanner", "scanner") != 100 {
		t.Error("Native.WRatio mismatch")
	}
}
