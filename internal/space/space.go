// Package space holds the immutable embedding space shared by the trainer,
// the aligner and the samplers.
//
// A Space maps an ordered vocabulary to fixed-dimension vectors together with
// a frequency count per word. Every transform returns a new Space, so a value
// is always internally consistent: one row per word and an index that
// round-trips.
package space

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	perr "diachron/internal/platform/errors"
)

// Space is an embedding space. The zero value is not usable; build one with New.
type Space struct {
	dim     int
	words   []string
	index   map[string]int
	counts  []int64
	vectors []float64 // row-major, len(words) x dim
	norms   []float64
}

// New copies its inputs into a Space. vectors is row-major with one row per word.
func New(dim int, words []string, counts []int64, vectors []float64) (*Space, error) {
	if dim <= 0 {
		return nil, perr.InvalidArgf("space dimension must be positive, got %d", dim)
	}
	if len(counts) != len(words) {
		return nil, perr.InvalidArgf("space has %d words but %d counts", len(words), len(counts))
	}
	if len(vectors) != len(words)*dim {
		return nil, perr.InvalidArgf("space has %d words of dim %d but %d vector values", len(words), dim, len(vectors))
	}
	index := make(map[string]int, len(words))
	for i, w := range words {
		if _, dup := index[w]; dup {
			return nil, perr.InvalidArgf("duplicate word %q in vocabulary", w)
		}
		index[w] = i
	}
	s := &Space{
		dim:     dim,
		words:   append([]string(nil), words...),
		index:   index,
		counts:  append([]int64(nil), counts...),
		vectors: append([]float64(nil), vectors...),
	}
	s.norms = rowNorms(s.vectors, dim)
	return s, nil
}

// Empty returns a zero-row space of the given dimension.
func Empty(dim int) *Space {
	return &Space{dim: dim, index: map[string]int{}}
}

func rowNorms(vectors []float64, dim int) []float64 {
	n := len(vectors) / dim
	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		norms[i] = floats.Norm(vectors[i*dim:(i+1)*dim], 2)
	}
	return norms
}

func (s *Space) Dim() int { return s.dim }
func (s *Space) Len() int { return len(s.words) }

// Words returns a copy of the vocabulary in index order.
func (s *Space) Words() []string { return append([]string(nil), s.words...) }

// Word returns the word at index i.
func (s *Space) Word(i int) string { return s.words[i] }

// Index returns the row of w.
func (s *Space) Index(w string) (int, bool) {
	i, ok := s.index[w]
	return i, ok
}

// Contains reports whether w is in the vocabulary.
func (s *Space) Contains(w string) bool {
	_, ok := s.index[w]
	return ok
}

// Count returns the frequency count of w.
func (s *Space) Count(w string) (int64, bool) {
	i, ok := s.index[w]
	if !ok {
		return 0, false
	}
	return s.counts[i], true
}

// Row returns a copy of the vector at index i.
func (s *Space) Row(i int) []float64 {
	return append([]float64(nil), s.vectors[i*s.dim:(i+1)*s.dim]...)
}

// Vector returns a copy of the vector of w.
func (s *Space) Vector(w string) ([]float64, bool) {
	i, ok := s.index[w]
	if !ok {
		return nil, false
	}
	return s.Row(i), true
}

// Norm returns the L2 norm of row i.
func (s *Space) Norm(i int) float64 { return s.norms[i] }

// Similarity returns the cosine similarity of a and b. ok is false when either
// word is out of vocabulary or has a zero vector.
func (s *Space) Similarity(a, b string) (sim float64, ok bool) {
	i, okA := s.index[a]
	j, okB := s.index[b]
	if !okA || !okB {
		return 0, false
	}
	if s.norms[i] == 0 || s.norms[j] == 0 {
		return 0, false
	}
	d := floats.Dot(s.vectors[i*s.dim:(i+1)*s.dim], s.vectors[j*s.dim:(j+1)*s.dim])
	return d / (s.norms[i] * s.norms[j]), true
}

// SameVocabulary reports whether both spaces hold the same words in the same order.
func (s *Space) SameVocabulary(o *Space) bool {
	if len(s.words) != len(o.words) {
		return false
	}
	for i, w := range s.words {
		if o.words[i] != w {
			return false
		}
	}
	return true
}

// Subset returns a new space holding only words, in the given order.
// Every word must be in the vocabulary.
func (s *Space) Subset(words []string) (*Space, error) {
	counts := make([]int64, len(words))
	vectors := make([]float64, 0, len(words)*s.dim)
	for k, w := range words {
		i, ok := s.index[w]
		if !ok {
			return nil, perr.InvalidArgf("subset word %q not in vocabulary", w)
		}
		counts[k] = s.counts[i]
		vectors = append(vectors, s.vectors[i*s.dim:(i+1)*s.dim]...)
	}
	return New(s.dim, words, counts, vectors)
}

// WithVectors returns a space with the same vocabulary and counts but new
// row-major vectors. Norms are recomputed.
func (s *Space) WithVectors(vectors []float64) (*Space, error) {
	return New(s.dim, s.words, s.counts, vectors)
}

// Dense returns the vectors as an n x dim matrix, or nil for an empty space.
func (s *Space) Dense() *mat.Dense {
	if len(s.words) == 0 {
		return nil
	}
	return mat.NewDense(len(s.words), s.dim, append([]float64(nil), s.vectors...))
}

// Normalized returns the unit-normalized vectors as an n x dim matrix, or nil
// for an empty space. Zero rows stay zero.
func (s *Space) Normalized() *mat.Dense {
	if len(s.words) == 0 {
		return nil
	}
	data := make([]float64, len(s.vectors))
	for i, n := range s.norms {
		row := data[i*s.dim : (i+1)*s.dim]
		copy(row, s.vectors[i*s.dim:(i+1)*s.dim])
		if n > 0 {
			floats.Scale(1/n, row)
		}
	}
	return mat.NewDense(len(s.words), s.dim, data)
}

// Validate checks the internal invariants of the space.
func (s *Space) Validate() error {
	if len(s.vectors) != len(s.words)*s.dim {
		return perr.Degeneratef("space holds %d vector values for %d words of dim %d", len(s.vectors), len(s.words), s.dim)
	}
	if len(s.counts) != len(s.words) || len(s.norms) != len(s.words) || len(s.index) != len(s.words) {
		return perr.Degeneratef("space bookkeeping out of sync (words=%d counts=%d norms=%d index=%d)",
			len(s.words), len(s.counts), len(s.norms), len(s.index))
	}
	for i, w := range s.words {
		if s.index[w] != i {
			return perr.Degeneratef("index of %q is %d, want %d", w, s.index[w], i)
		}
	}
	return nil
}

func (s *Space) String() string {
	return fmt.Sprintf("space(words=%d, dim=%d)", len(s.words), s.dim)
}
