package query

import (
	"regexp"
	"strings"

	"github.com/equipfind/equipfind/internal/text"
)

// TypeSynonyms lists, per canonical type, the words users type for it in
// French, English, Spanish, Darija and Arabic. Order matters: earlier types
// win when several match.
var TypeSynonyms = []struct {
	Canonical string
	Aliases   []string
}{
	{TypePrinter, []string{
		"imprimante", "printer", "print", "impression", "imprimer", "copieur",
		"photocopieur", "paper", "papier", "feuille", "document", "documento",
		"impresora", "imprimir", "طابعة", "طباعة", "ورقة", "ورق",
	}},
	{TypeScanner, []string{
		"scanner", "scan", "scanne", "sanne", "scaner", "scanear", "escaner",
		"numeriser", "numériser", "digitizer", "ماسح", "سكانر", "مسح",
	}},
	{TypeProjector, []string{
		"projecteur", "projector", "beamer", "video", "proyector", "presentation",
		"عرض", "عارض", "بروجيكتور", "عرض تقديمي",
	}},
	{TypeScreen, []string{
		"ecran", "écran", "screen", "display", "monitor", "pantalla", "شاشة",
	}},
	{TypeRouter, []string{
		"routeur", "router", "wifi", "reseau", "réseau", "network", "networking",
		"red", "شبكة", "راوتر",
	}},
}

type alias struct {
	term      string
	canonical string
}

// aliases holds every normalized alias, canonical names included, in
// TypeSynonyms order.
var aliases, aliasIndex = buildAliases()

func buildAliases() ([]alias, map[string]string) {
	var list []alias
	index := make(map[string]string)
	add := func(term, canonical string) {
		n := text.Normalize(term)
		if n == "" {
			return
		}
		if _, ok := index[n]; ok {
			return
		}
		index[n] = canonical
		list = append(list, alias{term: n, canonical: canonical})
	}
	for _, s := range TypeSynonyms {
		add(s.Canonical, s.Canonical)
		for _, a := range s.Aliases {
			add(a, s.Canonical)
		}
	}
	return list, index
}

// CanonicalType returns the canonical type a term is an alias of.
func CanonicalType(term string) (string, bool) {
	c, ok := aliasIndex[text.Normalize(term)]
	return c, ok
}

// Aliases returns every normalized alias, canonical names included.
func Aliases() []string {
	out := make([]string, len(aliases))
	for i, a := range aliases {
		out[i] = a.term
	}
	return out
}

// aliasInQuery returns the canonical type of the first alias that appears in
// the normalized query as a whole word or word sequence.
func aliasInQuery(normalizedQuery string) (string, bool) {
	padded := " " + strings.Join(text.Tokenize(normalizedQuery), " ") + " "
	if padded == "  " {
		return "", false
	}
	for _, a := range aliases {
		if strings.Contains(padded, " "+a.term+" ") {
			return a.canonical, true
		}
	}
	return "", false
}

// intentPatterns are tried in order against the normalized query.
var intentPatterns = []struct {
	canonical string
	patterns  []*regexp.Regexp
}{
	{TypePrinter, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:print|imprim|impression|imprimer|impresora|imprimir|طباعة|طابعة)`),
		regexp.MustCompile(`(?i)(?:papier|paper|feuille|document|ورقة|ورق)`),
	}},
	{TypeScanner, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:scan|scanner|scanne|scaner|scanear|escaner|numeris|مسح|ماسح|سكانر)`),
	}},
	{TypeProjector, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:project|beamer|proyector|presentation|عرض|عارض|بروجيكتور)`),
	}},
	{TypeScreen, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:screen|display|monitor|ecran|pantalla|شاشة)`),
	}},
	{TypeRouter, []*regexp.Regexp{
		// "red" is too short to match inside words.
		regexp.MustCompile(`(?i)(?:router|routeur|wifi|reseau|network|\bred\b|شبكة|راوتر)`),
	}},
}

// IntentType returns the first canonical type whose intent pattern matches
// the normalized query.
func IntentType(normalizedQuery string) (string, bool) {
	if normalizedQuery == "" {
		return "", false
	}
	for _, ip := range intentPatterns {
		for _, p := range ip.patterns {
			if p.MatchString(normalizedQuery) {
				return ip.canonical, true
			}
		}
	}
	return "", false
}
