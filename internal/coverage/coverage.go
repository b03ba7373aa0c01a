// Package coverage reports how often the anchor and target words occur in
// each era, which predicts where bootstrap runs will record missing scores.
package coverage

import (
	"math"

	"diachron/internal/corpus"
)

// Row holds the counts of one era.
type Row struct {
	Era       string
	Sentences int
	Tokens    int
	// DocFreq is the number of sentences containing each tracked word.
	DocFreq map[string]int
}

// Report is the coverage of a fixed word list across eras.
type Report struct {
	Words []string
	Rows  []Row
}

// Compute counts sentence frequency of words in every era of c.
func Compute(c *corpus.Corpus, words []string) *Report {
	tracked := make(map[string]struct{}, len(words))
	for _, w := range words {
		tracked[w] = struct{}{}
	}
	r := &Report{Words: append([]string(nil), words...), Rows: make([]Row, 0, len(c.Eras))}
	for _, era := range c.Eras {
		row := Row{Era: era.Label, Sentences: len(era.Sentences), DocFreq: make(map[string]int, len(words))}
		for _, sen := range era.Sentences {
			row.Tokens += len(sen)
			seen := make(map[string]struct{})
			for _, tok := range sen {
				if _, ok := tracked[tok]; !ok {
					continue
				}
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				row.DocFreq[tok]++
			}
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// MissProbability is the chance that a same-size resample of era drops every
// sentence containing word: (1 - df/n)^n.
func (r *Report) MissProbability(era int, word string) float64 {
	row := r.Rows[era]
	if row.Sentences == 0 {
		return 1
	}
	n := float64(row.Sentences)
	return math.Pow(1-float64(row.DocFreq[word])/n, n)
}

// ExpectedMissing estimates how many of iterations runs will lack word or anchor.
func (r *Report) ExpectedMissing(era int, anchor, word string, iterations int) float64 {
	pa := r.MissProbability(era, anchor)
	pw := r.MissProbability(era, word)
	// upper bound treating the two absences as disjoint events
	return float64(iterations) * math.Min(1, pa+pw)
}
