package query

import (
	"strings"

	"github.com/equipfind/equipfind/internal/text"
)

// Availability groups free-form status strings.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityAvailable
	AvailabilityOccupied
	AvailabilityFaulty
)

// Score is the ranking signal of the class, in [0,100].
func (a Availability) Score() float64 {
	switch a {
	case AvailabilityAvailable:
		return 100
	case AvailabilityOccupied:
		return 45
	case AvailabilityFaulty:
		return 10
	default:
		return 30
	}
}

// ClassifyStatus maps a catalog status onto its availability class.
func ClassifyStatus(status string) Availability {
	n := text.Normalize(status)
	switch {
	case n == "":
		return AvailabilityUnknown
	case strings.Contains(n, "dispon"), n == "available", n == "libre", n == "free":
		return AvailabilityAvailable
	case strings.Contains(n, "occup"), strings.Contains(n, "reserve"), strings.Contains(n, "busy"):
		return AvailabilityOccupied
	case strings.Contains(n, "panne"), strings.Contains(n, "signal"), strings.Contains(n, "error"),
		strings.Contains(n, "fault"), strings.Contains(n, "broken"):
		return AvailabilityFaulty
	default:
		return AvailabilityUnknown
	}
}

var statusKeywords = []struct {
	canonical string
	keywords  []string
}{
	{StatusAvailable, []string{"disponible", "dispo", "libre", "available", "free", "ready", "متاح", "فارغ"}},
	{StatusOccupied, []string{"occupe", "occupé", "busy", "reserved", "reserve", "used", "محجوز", "مشغول"}},
	{StatusFaulty, []string{"panne", "hs", "error", "critical", "broken", "down", "معطل", "عطل"}},
}

// detectStatus returns the canonical status of the first keyword set with a
// keyword inside the normalized query or equal to a token. Keywords shorter
// than three runes only match whole tokens.
func detectStatus(normalizedQuery string, tokens map[string]struct{}) (string, bool) {
	for _, s := range statusKeywords {
		for _, kw := range s.keywords {
			n := text.Normalize(kw)
			if _, ok := tokens[n]; ok {
				return s.canonical, true
			}
			if text.Len(n) >= 3 && strings.Contains(normalizedQuery, n) {
				return s.canonical, true
			}
		}
	}
	return "", false
}

// ResolveStatus maps a canonical status onto the first catalog status of the
// same availability class, or returns the canonical name.
func ResolveStatus(canonical string, statuses []string) string {
	want := ClassifyStatus(canonical)
	for _, s := range statuses {
		if ClassifyStatus(s) == want {
			return s
		}
	}
	return canonical
}
