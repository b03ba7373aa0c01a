package domain

import (
	"strconv"
	"time"
)

// Variant names one of the four ways cross-era continuity is modeled.
type Variant string

const (
	VariantNaive   Variant = "naive"
	VariantOverlap Variant = "overlap"
	VariantChrono  Variant = "chrono"
	VariantAligned Variant = "aligned"
)

// Variants lists every analysis variant in a stable order.
var Variants = []Variant{VariantNaive, VariantOverlap, VariantChrono, VariantAligned}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// MissingMarker is how a missing score is rendered in text outputs.
const MissingMarker = "NA"

// Score is one anchor-target similarity, or the missing marker when either
// word was absent from the model's vocabulary.
type Score struct {
	Value float64
	Valid bool
}

// Similarity wraps a computed similarity.
func Similarity(v float64) Score { return Score{Value: v, Valid: true} }

// Missing returns the missing marker.
func Missing() Score { return Score{} }

func (s Score) String() string {
	if !s.Valid {
		return MissingMarker
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// Runs is the run matrix of one analysis: scores indexed [target][era][run],
// runs kept in the order they were recorded.
type Runs struct {
	ID        string
	Variant   Variant
	Eras      []string
	Targets   []string
	Scores    [][][]Score
	CreatedAt time.Time
}

// NewRuns allocates an empty run matrix.
func NewRuns(variant Variant, eras, targets []string) *Runs {
	scores := make([][][]Score, len(targets))
	for t := range scores {
		scores[t] = make([][]Score, len(eras))
	}
	return &Runs{
		Variant: variant,
		Eras:    append([]string(nil), eras...),
		Targets: append([]string(nil), targets...),
		Scores:  scores,
	}
}

// Record appends one run for an era: scores[i] belongs to Targets[i].
func (r *Runs) Record(era int, scores []Score) {
	for t := range r.Targets {
		s := Missing()
		if t < len(scores) {
			s = scores[t]
		}
		r.Scores[t][era] = append(r.Scores[t][era], s)
	}
}

// Series returns the recorded scores of one (target, era) pair.
func (r *Runs) Series(target, era int) []Score { return r.Scores[target][era] }

// TargetIndex returns the position of word in Targets, or -1.
func (r *Runs) TargetIndex(word string) int {
	for i, t := range r.Targets {
		if t == word {
			return i
		}
	}
	return -1
}

// MissingCount counts missing markers in one (target, era) series.
func (r *Runs) MissingCount(target, era int) int {
	n := 0
	for _, s := range r.Scores[target][era] {
		if !s.Valid {
			n++
		}
	}
	return n
}

// Adopt copies the series of era from src when both matrices track the same
// targets and src has that era. It reports whether anything was copied.
func (r *Runs) Adopt(src *Runs, era string) bool {
	if src == nil || len(src.Targets) != len(r.Targets) {
		return false
	}
	for i := range r.Targets {
		if src.Targets[i] != r.Targets[i] {
			return false
		}
	}
	dst, from := indexOf(r.Eras, era), indexOf(src.Eras, era)
	if dst < 0 || from < 0 {
		return false
	}
	for t := range r.Targets {
		r.Scores[t][dst] = append([]Score(nil), src.Scores[t][from]...)
	}
	return true
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}
