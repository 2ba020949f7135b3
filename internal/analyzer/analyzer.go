// Package analyzer turns a raw query into search tokens. The backend is
// picked once by New and never probed per call.
package analyzer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"
	"github.com/kljensen/snowball/spanish"

	"github.com/equipfind/equipfind/internal/text"
)

// Backend names accepted by New.
const (
	KindPlain    = "plain"
	KindSnowball = "snowball"
)

// Analyzer splits text into tokens.
type Analyzer interface {
	Tokens(s string) []string
	Name() string
}

// New returns the analyzer for kind. language only matters for snowball.
func New(kind, language string) (Analyzer, error) {
	switch kind {
	case "", KindPlain:
		return Plain{}, nil
	case KindSnowball:
		stop, ok := stopWords[language]
		if !ok {
			return nil, fmt.Errorf("unsupported snowball language %q", language)
		}
		return &Snowball{language: language, isStopWord: stop}, nil
	default:
		return nil, fmt.Errorf("unknown analyzer %q", kind)
	}
}

// Plain is the normalizer's own tokenizer.
type Plain struct{}

func (Plain) Tokens(s string) []string { return text.Tokenize(s) }
func (Plain) Name() string             { return KindPlain }

var stopWords = map[string]func(string) bool{
	"english": english.IsStopWord,
	"french":  french.IsStopWord,
	"spanish": spanish.IsStopWord,
}

// Snowball stems Latin words with the Snowball stemmer for one language.
type Snowball struct {
	language   string
	isStopWord func(string) bool
}

func (s *Snowball) Name() string { return KindSnowball + ":" + s.language }

// Tokens keeps numbers verbatim, drops stop and noise words, stems the rest
// and re-splits the stems. Falls back to plain tokens when nothing is left.
func (s *Snowball) Tokens(input string) []string {
	words := text.Tokenize(input)
	out := make([]string, 0, len(words))

	for _, w := range words {
		if text.IsNumeric(w) {
			out = append(out, w)
			continue
		}
		if text.IsNoise(w) || s.isStopWord(w) {
			continue
		}
		if !isLatin(w) {
			out = append(out, w)
			continue
		}
		stem, err := snowball.Stem(w, s.language, false)
		if err != nil || stem == "" {
			stem = w
		}
		out = append(out, text.Tokenize(stem)...)
	}

	if len(out) == 0 {
		return words
	}
	return out
}

func isLatin(w string) bool {
	return strings.IndexFunc(w, func(r rune) bool { return r > unicode.MaxASCII }) < 0
}
