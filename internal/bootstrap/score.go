package bootstrap

import (
	"diachron/internal/domain"
	"diachron/internal/space"
)

// Score returns the anchor similarity of every target in sp, in target
// order, and the targets that could not be scored.
func Score(sp *space.Space, anchor string, targets []string) ([]domain.Score, []string) {
	out := make([]domain.Score, len(targets))
	var missing []string
	for i, t := range targets {
		sim, ok := sp.Similarity(anchor, t)
		if !ok {
			out[i] = domain.Missing()
			missing = append(missing, t)
			continue
		}
		out[i] = domain.Similarity(sim)
	}
	return out, missing
}

// allMissing is a row of missing markers for every target.
func allMissing(n int) []domain.Score {
	return make([]domain.Score, n)
}
