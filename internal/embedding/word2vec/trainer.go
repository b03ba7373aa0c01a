// Package word2vec trains skip-gram negative-sampling word vectors and
// persists them as resumable checkpoints.
package word2vec

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"

	"diachron/internal/embedding"
	perr "diachron/internal/platform/errors"
	"diachron/internal/platform/logger"
)

// Trainer implements embedding.Trainer with skip-gram negative sampling.
type Trainer struct {
	params Params
	log    *logger.Logger
}

// NewTrainer creates a trainer for fresh models with the given parameters.
func NewTrainer(p Params) (*Trainer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{params: p, log: logger.Named("word2vec")}, nil
}

// Name returns the identifier of this trainer implementation.
func (t *Trainer) Name() string { return "word2vec-sgns" }

// Params returns the parameters used for fresh models.
func (t *Trainer) Params() Params { return t.params }

// Train builds the vocabulary from sentences (words seen at least MinCount
// times, most frequent first, first occurrence breaking ties) and trains a new
// model for Params.Epochs passes.
func (t *Trainer) Train(sentences [][]string, rng *rand.Rand) (embedding.Model, error) {
	words, counts := buildVocabulary(sentences, t.params.MinCount)
	if len(words) == 0 {
		return nil, perr.Degeneratef("no trainable words in %d sentences", len(sentences))
	}
	m := newModel(t.params, words, counts)
	dim := float64(t.params.Dim)
	for i := range m.syn0 {
		m.syn0[i] = (rng.Float64() - 0.5) / dim
	}
	tokens := m.train(sentences, rng)
	t.log.Debug().Int("vocab", len(words)).Int("tokens", tokens).Int("epochs", t.params.Epochs).Msg("trained model")
	return m, nil
}

// Update continues training m on sentences for m's own configured epochs.
// Words outside m's vocabulary are ignored.
func (t *Trainer) Update(em embedding.Model, sentences [][]string, rng *rand.Rand) error {
	m, ok := em.(*Model)
	if !ok {
		return perr.InvalidArgf("word2vec trainer cannot update a %T", em)
	}
	tokens := m.train(sentences, rng)
	t.log.Debug().Int("vocab", m.Len()).Int("tokens", tokens).Int("epochs", m.params.Epochs).Msg("updated model")
	return nil
}

func buildVocabulary(sentences [][]string, minCount int) ([]string, []int64) {
	counts := map[string]int64{}
	var order []string
	for _, sen := range sentences {
		for _, w := range sen {
			if _, seen := counts[w]; !seen {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	words := make([]string, 0, len(order))
	for _, w := range order {
		if counts[w] >= int64(minCount) {
			words = append(words, w)
		}
	}
	sort.SliceStable(words, func(i, j int) bool { return counts[words[i]] > counts[words[j]] })
	out := make([]int64, len(words))
	for i, w := range words {
		out[i] = counts[w]
	}
	return words, out
}

// train runs Epochs passes of skip-gram with negative sampling over sentences,
// decaying the learning rate linearly from Alpha to MinAlpha across all
// passes. It returns the number of in-vocabulary tokens per pass.
func (m *Model) train(sentences [][]string, rng *rand.Rand) int {
	encoded := make([][]int, 0, len(sentences))
	tokens := 0
	for _, sen := range sentences {
		ids := make([]int, 0, len(sen))
		for _, w := range sen {
			if i, ok := m.index[w]; ok {
				ids = append(ids, i)
			}
		}
		if len(ids) > 0 {
			encoded = append(encoded, ids)
			tokens += len(ids)
		}
	}
	if tokens == 0 {
		return 0
	}

	p := m.params
	keep := m.keepProbabilities()
	neu1e := make([]float64, p.Dim)
	buf := make([]int, 0, 64)
	total := float64(p.Epochs * tokens)
	processed := 0

	for epoch := 0; epoch < p.Epochs; epoch++ {
		for _, ids := range encoded {
			alpha := p.Alpha - (p.Alpha-p.MinAlpha)*float64(processed)/total
			if alpha < p.MinAlpha {
				alpha = p.MinAlpha
			}
			sen := buf[:0]
			for _, id := range ids {
				if keep[id] >= 1 || rng.Float64() < keep[id] {
					sen = append(sen, id)
				}
			}
			for pos, word := range sen {
				b := rng.IntN(p.Window)
				lo := max(0, pos-p.Window+b)
				hi := min(len(sen), pos+p.Window+1-b)
				for c := lo; c < hi; c++ {
					if c == pos {
						continue
					}
					m.trainPair(word, sen[c], alpha, neu1e, rng)
				}
			}
			processed += len(ids)
		}
	}
	return tokens
}

// trainPair updates the input vector of context towards predicting word.
func (m *Model) trainPair(word, context int, alpha float64, neu1e []float64, rng *rand.Rand) {
	dim := m.params.Dim
	l1 := m.syn0[context*dim : (context+1)*dim]
	for i := range neu1e {
		neu1e[i] = 0
	}
	for d := 0; d <= m.params.Negative; d++ {
		target, label := word, 1.0
		if d > 0 {
			target = m.drawNegative(rng.Float64())
			if target == word {
				continue
			}
			label = 0
		}
		l2 := m.syn1neg[target*dim : (target+1)*dim]
		f := floats.Dot(l1, l2)
		var g float64
		switch {
		case f > maxExp:
			g = (label - 1) * alpha
		case f < -maxExp:
			g = label * alpha
		default:
			g = (label - expTable[int((f+maxExp)*(expTableSize/maxExp/2))]) * alpha
		}
		floats.AddScaled(neu1e, g, l2)
		floats.AddScaled(l2, g, l1)
	}
	floats.Add(l1, neu1e)
}
