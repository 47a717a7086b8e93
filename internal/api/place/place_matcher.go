package place

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// Match is a candidate place with its similarity to the queried name.
type Match struct {
	Place    types.Place
	Score    float64
	Distance int
}

// Similarity returns 1 - distance/max(len) over normalized names, in [0, 1].
func Similarity(a, b string) (float64, int) {
	a, b = types.NormalizeIdentity(a), types.NormalizeIdentity(b)
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1, 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(maxLen), d
}

// BestMatch scores candidates against name and returns the best one at or above threshold.
// Ties go to the shorter edit distance, then to the alphabetically first name.
func BestMatch(name string, candidates []types.Place, threshold float64) (Match, bool) {
	var best Match
	found := false
	for _, c := range candidates {
		score, d := Similarity(name, c.Name)
		if score < threshold {
			continue
		}
		m := Match{Place: c, Score: score, Distance: d}
		if !found || better(m, best) {
			best, found = m, true
		}
	}
	return best, found
}

func better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return types.NormalizeIdentity(a.Place.Name) < types.NormalizeIdentity(b.Place.Name)
}
