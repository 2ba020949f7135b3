package text

// noiseTerms lists stopwords (English, French, Spanish, Darija, Arabic) and
// domain filler words that carry no search signal on their own.
var noiseTerms = toSet(
	// english
	"i", "want", "need", "find", "show", "me", "please", "for", "to", "a", "an", "the",
	"with", "without", "and", "or", "in", "on", "at", "of", "my", "your",
	// french
	"je", "veux", "vieux", "cherche", "chercher", "recherche", "montre", "moi", "svp",
	"sil", "te", "plait", "un", "une", "des", "de", "du", "la", "le", "les", "dans",
	"avec", "sans", "et", "ou", "pour", "mon", "ma", "mes",
	// spanish
	"yo", "quiero", "buscar", "busca", "mostrar", "muestrame", "porfavor", "el", "los",
	"las", "del", "con", "sin", "y", "o", "para",
	// darija
	"ana", "nheb", "bghit", "bdit", "3tini", "arid", "law", "smahli",
	// arabic
	"اريد", "أريد", "ابحث", "بحث", "ابغي", "بغيت", "شي", "من", "في", "على", "الى", "إلى",
	"لو", "سمحت", "رجاء",
	// filler: status, location and distance words handled by filter extraction
	"disponible", "dispo", "libre", "occupe", "occup", "panne", "etage", "niveau",
	"floor", "salle", "room", "distance", "proche", "loin", "metre", "metres", "meter",
	"m", "batiment", "objet", "objets",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Normalize(w)] = struct{}{}
	}
	return set
}

// IsNoise reports whether the normalized form of term is a stopword or filler.
func IsNoise(term string) bool {
	_, ok := noiseTerms[Normalize(term)]
	return ok
}

// FilterNoise normalizes terms, drops noise, drops single-rune non-numeric
// tokens and removes duplicates keeping the first occurrence.
func FilterNoise(terms []string) []string {
	cleaned := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))

	for _, term := range terms {
		n := Normalize(term)
		if n == "" {
			continue
		}
		if _, ok := noiseTerms[n]; ok {
			continue
		}
		if Len(n) < 2 && !IsNumeric(n) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		cleaned = append(cleaned, n)
	}

	return cleaned
}
