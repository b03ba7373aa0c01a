package space

import (
	"testing"

	perr "diachron/internal/platform/errors"
	kit "diachron/internal/platform/testkit"
)

func mustSpace(t *testing.T, dim int, words []string, counts []int64, vectors []float64) *Space {
	t.Helper()
	s, err := New(dim, words, counts, vectors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_RejectsInconsistentInput(t *testing.T) {
	cases := []struct {
		name    string
		dim     int
		words   []string
		counts  []int64
		vectors []float64
	}{
		{"zero dim", 0, nil, nil, nil},
		{"count mismatch", 2, []string{"a"}, nil, []float64{1, 0}},
		{"vector mismatch", 2, []string{"a"}, []int64{1}, []float64{1}},
		{"duplicate word", 1, []string{"a", "a"}, []int64{1, 1}, []float64{1, 2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.dim, c.words, c.counts, c.vectors)
			if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
				t.Fatalf("err = %v, want invalid argument", err)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	s := mustSpace(t, 2,
		[]string{"equality", "gender", "treaty", "void"},
		[]int64{3, 2, 1, 1},
		[]float64{1, 0, 1, 1, -1, 0, 0, 0})

	sim, ok := s.Similarity("equality", "gender")
	if !ok {
		t.Fatalf("expected similarity")
	}
	kit.AlmostEqual(t, "cos(equality,gender)", sim, 1/1.4142135623730951, 1e-12)

	sim, _ = s.Similarity("equality", "treaty")
	kit.AlmostEqual(t, "cos(equality,treaty)", sim, -1, 1e-12)

	if _, ok := s.Similarity("equality", "german"); ok {
		t.Fatalf("out-of-vocabulary word should be missing")
	}
	if _, ok := s.Similarity("equality", "void"); ok {
		t.Fatalf("zero vector should be missing")
	}
}

func TestSubset_ReordersRowsAndCopies(t *testing.T) {
	vecs := []float64{1, 2, 3, 4, 5, 6}
	s := mustSpace(t, 2, []string{"a", "b", "c"}, []int64{5, 6, 7}, vecs)
	vecs[0] = 100

	sub, err := s.Subset([]string{"c", "a"})
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if err := sub.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := sub.Row(0); got[0] != 5 || got[1] != 6 {
		t.Fatalf("row 0 = %v, want [5 6]", got)
	}
	if got := sub.Row(1); got[0] != 1 {
		t.Fatalf("row 1 = %v, input slice was aliased", got)
	}
	if c, _ := sub.Count("c"); c != 7 {
		t.Fatalf("count(c) = %d", c)
	}
	if _, err := s.Subset([]string{"zzz"}); err == nil {
		t.Fatalf("expected error for unknown word")
	}
}

func TestNormalized_And_Empty(t *testing.T) {
	s := mustSpace(t, 2, []string{"a", "z"}, []int64{1, 1}, []float64{3, 4, 0, 0})
	n := s.Normalized()
	kit.AlmostEqual(t, "n[0,0]", n.At(0, 0), 0.6, 1e-12)
	kit.AlmostEqual(t, "n[0,1]", n.At(0, 1), 0.8, 1e-12)
	if n.At(1, 0) != 0 || n.At(1, 1) != 0 {
		t.Fatalf("zero row should stay zero")
	}

	e := Empty(3)
	if e.Len() != 0 || e.Dense() != nil || e.Normalized() != nil {
		t.Fatalf("empty space should have no matrix")
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("empty Validate: %v", err)
	}
	if _, ok := e.Similarity("a", "b"); ok {
		t.Fatalf("empty space similarity should be missing")
	}
}
