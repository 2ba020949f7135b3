package text

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Écran Tactile  ", "ecran tactile"},
		{"Étage 2", "etage 2"},
		{"IMPRIMANTE", "imprimante"},
		{"Año", "ano"},
		{"", ""},
		{"طابعة", "طابعة"},
		{"مَسْح", "مسح"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Écran", "  Projecteur Épson  ", "ﬁchier", "Ⅻ", "ÀÉÎÕÜ", "اريد شي لطباعة ورقة",
		"Salle B-12", "ǅemal", "straße", "ＦＵＬＬＷＩＤＴＨ", "",
	}

	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Je veux l'imprimante HP, étage 2!", []string{"je", "veux", "l", "imprimante", "hp", "etage", "2"}},
		{"اريد شي لطباعة ورقة", []string{"اريد", "شي", "لطباعة", "ورقة"}},
		{"scan-A4", []string{"scan", "a4"}},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterNoise_Multilingual(t *testing.T) {
	got := FilterNoise([]string{"je", "veux", "want", "اريد", "print", "scanner", "ورقة"})

	keep := []string{"print", "scanner", "ورقة"}
	for _, w := range keep {
		if !contains(got, w) {
			t.Errorf("FilterNoise dropped content word %q: %v", w, got)
		}
	}
	for _, w := range []string{"je", "veux", "want", "اريد"} {
		if contains(got, w) {
			t.Errorf("FilterNoise kept stopword %q: %v", w, got)
		}
	}
}

func TestFilterNoise_Rules(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"single letter dropped", []string{"x", "hp"}, []string{"hp"}},
		{"single digit kept", []string{"2", "hp"}, []string{"2", "hp"}},
		{"dedup keeps first", []string{"HP", "canon", "hp"}, []string{"hp", "canon"}},
		{"accents folded before lookup", []string{"Étage", "scanner"}, []string{"scanner"}},
		{"filler words", []string{"salle", "distance", "dispo", "projecteur"}, []string{"projecteur"}},
		{"empty input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterNoise(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterNoise(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsNoise(t *testing.T) {
	if !IsNoise("Étage") {
		t.Error("IsNoise(Étage) = false")
	}
	if IsNoise("imprimante") {
		t.Error("IsNoise(imprimante) = true")
	}
}

func TestIsNumeric(t *testing.T) {
	tests := map[string]bool{"12": true, "٣": true, "1a": false, "": false, "a": false}
	for in, want := range tests {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
