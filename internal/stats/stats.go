// Package stats reduces run matrices to per-era means with a
// normal-approximation margin.
package stats

import (
	"math"

	"diachron/internal/domain"
	perr "diachron/internal/platform/errors"

	"gonum.org/v1/gonum/stat"
)

const (
	DefaultSampleSize = 99
	DefaultDivisor    = 100
	DefaultZ          = 1.95
)

// ErrInsufficientSamples marks a series with fewer valid scores than the
// sample size.
var ErrInsufficientSamples = perr.New(perr.ErrorCodeInsufficientSamples, "insufficient valid samples")

// EraStatistic summarizes one (target, era) series.
type EraStatistic struct {
	Mean    float64
	Margin  float64
	Lower   float64
	Upper   float64
	Valid   int
	Missing int
	// OK is false when the series had too few valid scores; the numeric
	// fields are then zero.
	OK bool
}

// Aggregator computes era statistics. The mean is taken over the first
// SampleSize valid scores while the spread uses every valid score.
type Aggregator struct {
	SampleSize int
	Divisor    float64
	Z          float64
}

// NewAggregator returns an Aggregator with the default constants.
func NewAggregator() Aggregator {
	return Aggregator{SampleSize: DefaultSampleSize, Divisor: DefaultDivisor, Z: DefaultZ}
}

// Validate checks the aggregator constants.
func (a Aggregator) Validate() error {
	switch {
	case a.SampleSize <= 0:
		return perr.WithField(perr.InvalidArgf("sample size must be positive, got %d", a.SampleSize), "stats.sample_size")
	case a.Divisor <= 0:
		return perr.WithField(perr.InvalidArgf("divisor must be positive, got %v", a.Divisor), "stats.divisor")
	case a.Z <= 0:
		return perr.WithField(perr.InvalidArgf("z must be positive, got %v", a.Z), "stats.z")
	}
	return nil
}

// Valid returns the non-missing values of series in order.
func Valid(series []domain.Score) []float64 {
	out := make([]float64, 0, len(series))
	for _, s := range series {
		if s.Valid {
			out = append(out, s.Value)
		}
	}
	return out
}

// Summarize reduces one series. Fewer than SampleSize valid scores yields an
// InsufficientSamples error; the returned statistic still carries the counts.
func (a Aggregator) Summarize(series []domain.Score) (EraStatistic, error) {
	vals := Valid(series)
	st := EraStatistic{Valid: len(vals), Missing: len(series) - len(vals)}
	if len(vals) < a.SampleSize {
		return st, perr.Wrapf(ErrInsufficientSamples, perr.ErrorCodeInsufficientSamples,
			"only %d valid scores of %d, need %d", len(vals), len(series), a.SampleSize)
	}

	st.Mean = stat.Mean(vals[:a.SampleSize], nil)
	_, std := stat.PopMeanStdDev(vals, nil)
	st.Margin = a.Z * std / math.Sqrt(a.Divisor)
	st.Lower = st.Mean - st.Margin
	st.Upper = st.Mean + st.Margin
	st.OK = true
	return st, nil
}

// Table is the statistics of a whole run matrix, indexed [target][era].
type Table struct {
	Variant domain.Variant
	Eras    []string
	Targets []string
	Stats   [][]EraStatistic
}

// Row returns the per-era statistics of target word, or nil.
func (t *Table) Row(word string) []EraStatistic {
	for i, w := range t.Targets {
		if w == word {
			return t.Stats[i]
		}
	}
	return nil
}

// Table summarizes every series of runs. Insufficient series are joined into
// the returned error, tagged with the target and era, and the table is still
// complete.
func (a Aggregator) Table(runs *domain.Runs) (*Table, error) {
	t := &Table{
		Variant: runs.Variant,
		Eras:    append([]string(nil), runs.Eras...),
		Targets: append([]string(nil), runs.Targets...),
		Stats:   make([][]EraStatistic, len(runs.Targets)),
	}
	var errs []error
	for ti, target := range runs.Targets {
		t.Stats[ti] = make([]EraStatistic, len(runs.Eras))
		for ei, era := range runs.Eras {
			st, err := a.Summarize(runs.Series(ti, ei))
			if err != nil {
				err = perr.Wrapf(err, perr.ErrorCodeInsufficientSamples, "%s in %s", target, era)
				errs = append(errs, perr.WithField(err, target))
			}
			t.Stats[ti][ei] = st
		}
	}
	return t, perr.Join(errs...)
}
