// Package match scores how likely two station names denote the same place.
package match

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"github.com/mozillazg/go-unidecode"
)

// DefaultThreshold is the minimum similarity for two names to be treated as
// the same station.
const DefaultThreshold = 0.70

// Matcher compares names against a single identity threshold.
type Matcher struct {
	threshold float64
}

// New creates a Matcher. A non-positive threshold falls back to DefaultThreshold.
func New(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Similarity returns a score in [0,1]: 1 for a case-insensitive match,
// otherwise one minus the Damerau-Levenshtein distance of the lower-cased
// names over the longer one's length. Accents are not folded.
func (m *Matcher) Similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 1
	}

	longest := max(utf8.RuneCountInString(la), utf8.RuneCountInString(lb))
	dist := edlib.DamerauLevenshteinDistance(la, lb)
	if dist >= longest {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

// Same reports whether a and b score at or above the threshold.
func (m *Matcher) Same(a, b string) bool {
	return m.Similarity(a, b) >= m.threshold
}

// Normalize lower-cases a name, folds accents to ASCII and collapses
// whitespace. It is meant for ranking and searching names typed by a user,
// not for identity decisions.
func Normalize(name string) string {
	name = unidecode.Unidecode(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), " ")
}
