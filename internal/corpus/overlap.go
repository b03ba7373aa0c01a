package corpus

import (
	"math"

	perr "diachron/internal/platform/errors"
)

// DefaultOverlap is the fraction of each neighbouring era shared across a boundary.
const DefaultOverlap = 0.10

// WithOverlap returns a new corpus where each era also holds the leading
// fraction of the next era and the trailing fraction of the previous one.
// Cut points are round(fraction*n) from the head and round((1-fraction)*n)
// from the tail, rounding half to even, and are taken from the unaugmented
// eras. The receiver is not modified.
func (c *Corpus) WithOverlap(fraction float64) (*Corpus, error) {
	if fraction < 0 || fraction > 1 {
		return nil, perr.InvalidArgf("overlap fraction %g outside [0, 1]", fraction)
	}
	n := len(c.Eras)
	heads := make([][][]string, n)
	tails := make([][][]string, n)
	for i, e := range c.Eras {
		size := float64(len(e.Sentences))
		headCut := int(math.RoundToEven(fraction * size))
		tailCut := int(math.RoundToEven((1 - fraction) * size))
		heads[i] = e.Sentences[:headCut]
		tails[i] = e.Sentences[tailCut:]
	}

	out := &Corpus{Eras: make([]Era, n)}
	for i, e := range c.Eras {
		sentences := make([][]string, 0, len(e.Sentences))
		sentences = append(sentences, e.Sentences...)
		if i+1 < n {
			sentences = append(sentences, heads[i+1]...)
		}
		if i > 0 {
			sentences = append(sentences, tails[i-1]...)
		}
		out.Eras[i] = Era{Label: e.Label, Sentences: sentences}
	}
	return out, nil
}
