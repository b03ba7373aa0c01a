package align

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	perr "diachron/internal/platform/errors"
	kit "diachron/internal/platform/testkit"
	"diachron/internal/space"
)

func mustSpace(t *testing.T, dim int, words []string, counts []int64, vectors []float64) *space.Space {
	t.Helper()
	s, err := space.New(dim, words, counts, vectors)
	if err != nil {
		t.Fatalf("space.New: %v", err)
	}
	return s
}

func randomSpace(t *testing.T, rng *rand.Rand, dim int, words []string) *space.Space {
	t.Helper()
	counts := make([]int64, len(words))
	vecs := make([]float64, len(words)*dim)
	for i := range counts {
		counts[i] = int64(rng.IntN(50) + 1)
	}
	for i := range vecs {
		vecs[i] = rng.NormFloat64()
	}
	return mustSpace(t, dim, words, counts, vecs)
}

func assertOrthogonal(t *testing.T, r *mat.Dense) {
	t.Helper()
	n, c := r.Dims()
	if n != c {
		t.Fatalf("R is %dx%d, want square", n, c)
	}
	var rrt mat.Dense
	rrt.Mul(r, r.T())
	if !mat.EqualApprox(&rrt, eye(n), 1e-9) {
		t.Fatalf("R·Rᵀ != I:\n%v", mat.Formatted(&rrt))
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestIntersect_SharedVocabularyRowsCorrespond(t *testing.T) {
	a := mustSpace(t, 1,
		[]string{"equality", "gender", "treaty", "only_a"},
		[]int64{10, 1, 4, 9},
		[]float64{1, 2, 3, 4})
	b := mustSpace(t, 1,
		[]string{"treaty", "only_b", "gender", "equality"},
		[]int64{1, 8, 2, 5},
		[]float64{30, 50, 20, 10})

	ia, ib := Intersect(a, b, nil)
	for _, s := range []*space.Space{ia, ib} {
		if err := s.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}
	want := []string{"equality", "treaty", "gender"} // combined 15, 5, 3
	if !ia.SameVocabulary(ib) {
		t.Fatalf("vocabularies differ: %v vs %v", ia.Words(), ib.Words())
	}
	for i, w := range want {
		if ia.Word(i) != w {
			t.Fatalf("word %d = %q, want %q (got %v)", i, ia.Word(i), w, ia.Words())
		}
		// each row still carries its own space's vector for that word
		va, _ := a.Vector(w)
		vb, _ := b.Vector(w)
		if ia.Row(i)[0] != va[0] || ib.Row(i)[0] != vb[0] {
			t.Fatalf("row %d (%s) not permuted with its word", i, w)
		}
	}
	// inputs untouched
	if a.Len() != 4 || b.Len() != 4 || a.Word(3) != "only_a" {
		t.Fatalf("inputs were modified")
	}
}

func TestIntersect_TiesAreDeterministic(t *testing.T) {
	a := mustSpace(t, 1, []string{"b", "a", "c"}, []int64{1, 1, 1}, []float64{1, 2, 3})
	b := mustSpace(t, 1, []string{"c", "a", "b", "d"}, []int64{1, 1, 1, 1}, []float64{1, 2, 3, 4})
	ia, _ := Intersect(a, b, nil)
	got := ia.Words()
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("tie order = %v, want [a b c]", got)
	}
}

func TestIntersect_FastPathAndRestriction(t *testing.T) {
	a := mustSpace(t, 1, []string{"x", "y"}, []int64{1, 9}, []float64{1, 2})
	b := mustSpace(t, 1, []string{"x", "y"}, []int64{1, 9}, []float64{3, 4})

	ia, ib := Intersect(a, b, nil)
	if ia != a || ib != b {
		t.Fatalf("identical vocabularies should be returned unchanged")
	}

	ra, rb := Intersect(a, b, []string{"x", "q"})
	if ra.Len() != 1 || rb.Len() != 1 || ra.Word(0) != "x" {
		t.Fatalf("restricted intersection = %v", ra.Words())
	}

	// same words, different order: must re-index
	c := mustSpace(t, 1, []string{"y", "x"}, []int64{9, 1}, []float64{4, 3})
	ia, ic := Intersect(a, c, nil)
	if !ia.SameVocabulary(ic) || ia.Word(0) != "y" {
		t.Fatalf("reordered vocabularies not re-indexed: %v / %v", ia.Words(), ic.Words())
	}
}

func TestIntersect_Empty(t *testing.T) {
	a := mustSpace(t, 2, []string{"a"}, []int64{1}, []float64{1, 0})
	b := mustSpace(t, 2, []string{"b"}, []int64{1}, []float64{0, 1})
	ia, ib := Intersect(a, b, nil)
	if ia.Len() != 0 || ib.Len() != 0 {
		t.Fatalf("expected empty spaces, got %d and %d", ia.Len(), ib.Len())
	}
	if err := ia.Validate(); err != nil {
		t.Fatalf("empty Validate: %v", err)
	}
}

func TestAlign_RotationIsOrthogonal(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	words := []string{"equality", "gender", "treaty", "german", "race", "social", "law", "war"}
	for _, dim := range []int{1, 3, 5} {
		base := randomSpace(t, rng, dim, words)
		other := randomSpace(t, rng, dim, words[2:])
		al, err := Align(base, other, nil)
		if err != nil {
			t.Fatalf("dim %d: Align: %v", dim, err)
		}
		assertOrthogonal(t, al.R)
		if !al.Base.SameVocabulary(al.Rotated) || al.Base.Len() != len(words)-2 {
			t.Fatalf("dim %d: aligned vocabularies mismatch", dim)
		}
	}
}

func TestAlign_SelfAlignmentIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	a := randomSpace(t, rng, 4, []string{"a", "b", "c", "d", "e", "f", "g"})
	al, err := Align(a, a, nil)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if !mat.EqualApprox(al.R, eye(4), 1e-9) {
		t.Fatalf("R != I:\n%v", mat.Formatted(al.R))
	}
}

func TestAlign_RecoversKnownRotation(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	words := []string{"a", "b", "c", "d", "e", "f"}
	base := randomSpace(t, rng, 2, words)

	// other = base · Qᵀ for a 30 degree rotation Q, so the best R is Q.
	th := math.Pi / 6
	q := mat.NewDense(2, 2, []float64{math.Cos(th), -math.Sin(th), math.Sin(th), math.Cos(th)})
	var rotated mat.Dense
	rotated.Mul(base.Dense(), q.T())
	otherVecs := make([]float64, 0, len(words)*2)
	for i := range words {
		otherVecs = append(otherVecs, rotated.RawRowView(i)...)
	}
	counts := make([]int64, len(words))
	for i, w := range words {
		counts[i], _ = base.Count(w)
	}
	other := mustSpace(t, 2, words, counts, otherVecs)

	al, err := Align(base, other, nil)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if !mat.EqualApprox(al.R, q, 1e-9) {
		t.Fatalf("R =\n%v\nwant\n%v", mat.Formatted(al.R), mat.Formatted(q))
	}
	for _, w := range words {
		bv, _ := base.Vector(w)
		i, _ := al.Rotated.Index(w)
		rv := al.Rotated.Row(i)
		kit.AlmostEqual(t, w+"[0]", rv[0], bv[0], 1e-9)
		kit.AlmostEqual(t, w+"[1]", rv[1], bv[1], 1e-9)
	}
}

func TestAlign_PreservesWithinSpaceSimilarity(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	words := []string{"equality", "gender", "race", "treaty", "law"}
	base := randomSpace(t, rng, 3, words)
	other := randomSpace(t, rng, 3, words)

	al, err := Align(base, other, nil)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	before, _ := other.Similarity("equality", "gender")
	after, _ := al.Rotated.Similarity("equality", "gender")
	kit.AlmostEqual(t, "similarity after rotation", after, before, 1e-9)
}

func TestAlign_SingleSharedWordOneDim(t *testing.T) {
	// era A: {"a","b","c"}, era B: {"a","d","e"}: the only shared word is "a"
	a := mustSpace(t, 1, []string{"a", "b", "c"}, []int64{2, 1, 1}, []float64{0.3, -0.2, 0.9})
	b := mustSpace(t, 1, []string{"a", "d", "e"}, []int64{2, 1, 1}, []float64{-0.7, 0.1, 0.4})

	ia, ib := Intersect(a, b, nil)
	if ia.Len() != 1 || ib.Len() != 1 || ia.Word(0) != "a" {
		t.Fatalf("intersection = %v / %v, want [a]", ia.Words(), ib.Words())
	}

	al, err := Align(a, b, nil)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	r, c := al.R.Dims()
	if r != 1 || c != 1 {
		t.Fatalf("R is %dx%d, want 1x1", r, c)
	}
	if v := math.Abs(al.R.At(0, 0)); math.Abs(v-1) > 1e-12 {
		t.Fatalf("R = %v, want ±1", al.R.At(0, 0))
	}
	kit.AlmostEqual(t, "R", al.R.At(0, 0), -1, 1e-12)
}

func TestAlign_Errors(t *testing.T) {
	a := mustSpace(t, 2, []string{"a"}, []int64{1}, []float64{1, 0})
	b := mustSpace(t, 2, []string{"b"}, []int64{1}, []float64{0, 1})
	if _, err := Align(a, b, nil); !perr.Is(err, ErrEmptyIntersection) {
		t.Fatalf("err = %v, want ErrEmptyIntersection", err)
	}
	if !perr.IsCode(ErrEmptyIntersection, perr.ErrorCodeDegenerate) {
		t.Fatalf("ErrEmptyIntersection should be degenerate")
	}

	c := mustSpace(t, 3, []string{"a"}, []int64{1}, []float64{1, 0, 0})
	if _, err := Align(a, c, nil); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}
