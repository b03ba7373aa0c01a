// Package align makes independently trained embedding spaces comparable:
// Intersect reduces two spaces to their shared vocabulary and Align rotates
// one onto the other with orthogonal Procrustes.
package align

import (
	"sort"

	"diachron/internal/space"
)

// Intersect returns a and b restricted to their shared vocabulary, further
// restricted to words when words is non-nil. Both results are indexed 0..N-1
// by descending combined count (count in a + count in b); ties are broken by
// ascending word so the order is deterministic.
//
// When words is nil and both spaces already hold the same words in the same
// order, a and b are returned as is. Inputs are never modified.
// An empty intersection yields two zero-row spaces.
func Intersect(a, b *space.Space, words []string) (*space.Space, *space.Space) {
	if words == nil && a.SameVocabulary(b) {
		return a, b
	}

	var allow map[string]struct{}
	if words != nil {
		allow = make(map[string]struct{}, len(words))
		for _, w := range words {
			allow[w] = struct{}{}
		}
	}

	common := make([]string, 0, min(a.Len(), b.Len()))
	for _, w := range a.Words() {
		if !b.Contains(w) {
			continue
		}
		if allow != nil {
			if _, ok := allow[w]; !ok {
				continue
			}
		}
		common = append(common, w)
	}

	combined := make(map[string]int64, len(common))
	for _, w := range common {
		ca, _ := a.Count(w)
		cb, _ := b.Count(w)
		combined[w] = ca + cb
	}
	sort.Slice(common, func(i, j int) bool {
		ci, cj := combined[common[i]], combined[common[j]]
		if ci != cj {
			return ci > cj
		}
		return common[i] < common[j]
	})

	if len(common) == 0 {
		return space.Empty(a.Dim()), space.Empty(b.Dim())
	}
	// Subset cannot fail here: every common word is in both vocabularies.
	ia, _ := a.Subset(common)
	ib, _ := b.Subset(common)
	return ia, ib
}
