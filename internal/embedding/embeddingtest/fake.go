// Package embeddingtest provides a deterministic embedding.Trainer for tests
// of code that drives training without caring how vectors are learned.
package embeddingtest

import (
	"hash/fnv"
	"math/rand/v2"

	"diachron/internal/embedding"
	perr "diachron/internal/platform/errors"
	"diachron/internal/space"
)

// Model is a fake embedding.Model. Each vocabulary word has a fixed vector
// derived from the word, shifted by every Update that saw it.
type Model struct {
	Dim     int
	Words   []string
	Counts  []int64
	Vectors [][]float64
	// Updates counts calls to Trainer.Update on this model.
	Updates int
}

// Space implements embedding.Model.
func (m *Model) Space() *space.Space {
	flat := make([]float64, 0, len(m.Words)*m.Dim)
	for _, v := range m.Vectors {
		flat = append(flat, v...)
	}
	sp, err := space.New(m.Dim, m.Words, m.Counts, flat)
	if err != nil {
		panic(err)
	}
	return sp
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	c := *m
	c.Words = append([]string(nil), m.Words...)
	c.Counts = append([]int64(nil), m.Counts...)
	c.Vectors = make([][]float64, len(m.Vectors))
	for i, v := range m.Vectors {
		c.Vectors[i] = append([]float64(nil), v...)
	}
	return &c
}

// Trainer is a fake embedding.Trainer.
type Trainer struct {
	Dim int
	// Fixed overrides the derived vector of a word.
	Fixed map[string][]float64
	// Jitter adds uniform noise in [0, Jitter) drawn from the run's rng.
	Jitter float64
	// Step is added to the first coordinate of every word seen by Update.
	Step float64

	Trains  int
	Updated int
}

var _ embedding.Trainer = (*Trainer)(nil)

// Name implements embedding.Trainer.
func (t *Trainer) Name() string { return "fake" }

// Train implements embedding.Trainer.
func (t *Trainer) Train(sentences [][]string, rng *rand.Rand) (embedding.Model, error) {
	t.Trains++
	dim := t.Dim
	if dim == 0 {
		dim = 4
	}
	m := &Model{Dim: dim}
	index := make(map[string]int)
	for _, sen := range sentences {
		for _, w := range sen {
			i, ok := index[w]
			if !ok {
				i = len(m.Words)
				index[w] = i
				m.Words = append(m.Words, w)
				m.Counts = append(m.Counts, 0)
				m.Vectors = append(m.Vectors, t.vector(w, dim, rng))
			}
			m.Counts[i]++
		}
	}
	if len(m.Words) == 0 {
		return nil, perr.Degeneratef("no words")
	}
	return m, nil
}

// Update implements embedding.Trainer.
func (t *Trainer) Update(em embedding.Model, sentences [][]string, _ *rand.Rand) error {
	m, ok := em.(*Model)
	if !ok {
		return perr.InvalidArgf("fake trainer cannot update a %T", em)
	}
	t.Updated++
	m.Updates++
	seen := make(map[string]bool)
	for _, sen := range sentences {
		for _, w := range sen {
			seen[w] = true
		}
	}
	for i, w := range m.Words {
		if seen[w] {
			m.Vectors[i][0] += t.Step
		}
	}
	return nil
}

func (t *Trainer) vector(w string, dim int, rng *rand.Rand) []float64 {
	v := make([]float64, dim)
	if f, ok := t.Fixed[w]; ok {
		copy(v, f)
	} else {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		seed := h.Sum64()
		for i := range v {
			v[i] = float64((seed>>(8*uint(i%8)))&0xff)/255 + 0.01
		}
	}
	if t.Jitter > 0 {
		for i := range v {
			v[i] += rng.Float64() * t.Jitter
		}
	}
	return v
}

// Checkpoints is an in-memory checkpoint store holding deep copies.
type Checkpoints struct {
	Models map[string]*Model
}

// NewCheckpoints returns an empty store.
func NewCheckpoints() *Checkpoints { return &Checkpoints{Models: make(map[string]*Model)} }

// Save stores a copy of em under id.
func (c *Checkpoints) Save(id string, em embedding.Model) error {
	m, ok := em.(*Model)
	if !ok {
		return perr.InvalidArgf("cannot store a %T", em)
	}
	c.Models[id] = m.Clone()
	return nil
}

// Load returns a fresh copy of the model saved under id.
func (c *Checkpoints) Load(id string) (embedding.Model, error) {
	m, ok := c.Models[id]
	if !ok {
		return nil, perr.NotFoundf("checkpoint %s not found", id)
	}
	return m.Clone(), nil
}
