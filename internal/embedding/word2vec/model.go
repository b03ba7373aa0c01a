package word2vec

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"diachron/internal/space"
)

const (
	expTableSize = 1000
	maxExp       = 6.0
	unigramPower = 0.75
)

var expTable = func() []float64 {
	t := make([]float64, expTableSize+1)
	for i := range t {
		e := math.Exp((float64(i)/expTableSize*2 - 1) * maxExp)
		t[i] = e / (e + 1)
	}
	return t
}()

// Model is a skip-gram negative-sampling model: input vectors (syn0), output
// vectors (syn1neg) and the vocabulary they are indexed by. Training mutates
// a Model in place; Space returns an immutable copy of its input vectors.
type Model struct {
	params  Params
	words   []string
	index   map[string]int
	counts  []int64
	syn0    []float64
	syn1neg []float64
	cum     []float64 // cumulative unigram^0.75 weights for negative draws
}

func newModel(p Params, words []string, counts []int64) *Model {
	m := &Model{
		params:  p,
		words:   words,
		counts:  counts,
		syn0:    make([]float64, len(words)*p.Dim),
		syn1neg: make([]float64, len(words)*p.Dim),
	}
	m.reindex()
	return m
}

func (m *Model) reindex() {
	m.index = make(map[string]int, len(m.words))
	for i, w := range m.words {
		m.index[w] = i
	}
	weights := make([]float64, len(m.counts))
	for i, c := range m.counts {
		weights[i] = math.Pow(float64(c), unigramPower)
	}
	m.cum = floats.CumSum(make([]float64, len(weights)), weights)
}

// Params returns the hyperparameters the model trains with.
func (m *Model) Params() Params { return m.params }

// Len returns the vocabulary size.
func (m *Model) Len() int { return len(m.words) }

// Space returns a copy of the input vectors as an embedding space.
func (m *Model) Space() *space.Space {
	s, err := space.New(m.params.Dim, m.words, m.counts, m.syn0)
	if err != nil {
		// words, counts and syn0 are sized together by construction
		panic(err)
	}
	return s
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := &Model{
		params:  m.params,
		words:   append([]string(nil), m.words...),
		counts:  append([]int64(nil), m.counts...),
		syn0:    append([]float64(nil), m.syn0...),
		syn1neg: append([]float64(nil), m.syn1neg...),
	}
	c.reindex()
	return c
}

// drawNegative picks a word index with probability proportional to count^0.75.
func (m *Model) drawNegative(u float64) int {
	total := m.cum[len(m.cum)-1]
	x := u * total
	i := sort.Search(len(m.cum), func(i int) bool { return m.cum[i] > x })
	if i >= len(m.cum) {
		i = len(m.cum) - 1
	}
	return i
}

// keepProbabilities returns the per-word probability of surviving
// frequent-word downsampling.
func (m *Model) keepProbabilities() []float64 {
	keep := make([]float64, len(m.counts))
	var total int64
	for _, c := range m.counts {
		total += c
	}
	threshold := m.params.Sample * float64(total)
	for i, c := range m.counts {
		if m.params.Sample == 0 || c == 0 {
			keep[i] = 1
			continue
		}
		f := float64(c)
		keep[i] = math.Min(1, (math.Sqrt(f/threshold)+1)*threshold/f)
	}
	return keep
}
