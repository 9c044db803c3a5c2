package normalize

import (
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// SuggestThreshold is the minimum similarity for a "did you mean" hint.
const SuggestThreshold = 0.85

// similarity is edit-distance similarity in [0..1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	m := len(a)
	if len(b) > m {
		m = len(b)
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(m)
}

// bestSimilarity takes the better of edit distance and Jaro-Winkler; the
// latter rewards shared prefixes, which is how truncated names usually look.
func bestSimilarity(a, b string) float64 {
	x := similarity(a, b)
	if y := smetrics.JaroWinkler(a, b, 0.7, 4); y > x {
		return y
	}
	return x
}

// Suggest finds the canonical name whose closest variant is most similar to
// raw. It never changes resolution: it only feeds the pre-import review list.
func (d *Dictionary) Suggest(raw string) (string, float64, bool) {
	in := Canonicalize(raw)
	if in == "" {
		return "", 0, false
	}
	best, bestScore := -1, 0.0
	for i, e := range d.Entries {
		for _, k := range e.keys {
			if s := bestSimilarity(in, k); s > bestScore {
				best, bestScore = i, s
			}
		}
	}
	if best < 0 || bestScore < SuggestThreshold {
		return "", bestScore, false
	}
	return d.Entries[best].Canonical, bestScore, true
}
