package align

import (
	"gonum.org/v1/gonum/mat"

	perr "diachron/internal/platform/errors"
	"diachron/internal/space"
)

// ErrEmptyIntersection is returned when two spaces share no vocabulary, which
// leaves the rotation undefined.
var ErrEmptyIntersection = perr.New(perr.ErrorCodeDegenerate, "spaces share no vocabulary")

// Alignment is the result of rotating one space onto another.
type Alignment struct {
	// R is the dim x dim orthogonal matrix minimizing ||other·R - base||_F.
	R *mat.Dense
	// Base is the base space pruned to the shared vocabulary.
	Base *space.Space
	// Rotated is the other space, pruned to the shared vocabulary, with R applied
	// to its raw vectors.
	Rotated *space.Space
}

// Procrustes returns the orthogonal R minimizing ||other·R - base||_F for two
// row-aligned n x d matrices: R = U·Vᵀ where otherᵀ·base = U·Σ·Vᵀ.
func Procrustes(base, other mat.Matrix) (*mat.Dense, error) {
	br, bc := base.Dims()
	or, oc := other.Dims()
	if br != or || bc != oc {
		return nil, perr.InvalidArgf("procrustes needs equal shapes, got %dx%d and %dx%d", br, bc, or, oc)
	}

	var m mat.Dense
	m.Mul(other.T(), base)

	var svd mat.SVD
	if ok := svd.Factorize(&m, mat.SVDFull); !ok {
		return nil, perr.Degeneratef("svd of %dx%d cross-covariance did not converge", bc, bc)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := mat.NewDense(bc, bc, nil)
	r.Mul(&u, v.T())
	return r, nil
}

// Align intersects base and other (restricted to words when non-nil), solves
// the rotation on their unit-normalized vectors and applies it to the raw
// vectors of the intersected other space. Neither input is modified.
func Align(base, other *space.Space, words []string) (*Alignment, error) {
	if base.Dim() != other.Dim() {
		return nil, perr.InvalidArgf("cannot align spaces of dim %d and %d", base.Dim(), other.Dim())
	}
	inBase, inOther := Intersect(base, other, words)
	if inBase.Len() == 0 {
		return nil, ErrEmptyIntersection
	}

	r, err := Procrustes(inBase.Normalized(), inOther.Normalized())
	if err != nil {
		return nil, err
	}

	var rotated mat.Dense
	rotated.Mul(inOther.Dense(), r)
	out, err := inOther.WithVectors(rowMajor(&rotated))
	if err != nil {
		return nil, err
	}
	return &Alignment{R: r, Base: inBase, Rotated: out}, nil
}

func rowMajor(m *mat.Dense) []float64 {
	r, c := m.Dims()
	raw := m.RawMatrix()
	if raw.Stride == c {
		return append([]float64(nil), raw.Data[:r*c]...)
	}
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
