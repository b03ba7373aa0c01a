// Package resultstore holds helpers shared by the run-matrix stores. The
// stores themselves implement domain.RunStore.
package resultstore

import (
	"time"

	"github.com/google/uuid"

	"diachron/internal/domain"
	perr "diachron/internal/platform/errors"
)

// Prepare checks that runs is well formed and fills in a missing ID and
// creation time.
func Prepare(runs *domain.Runs) error {
	if runs == nil {
		return perr.InvalidArgf("nil runs")
	}
	if !runs.Variant.Valid() {
		return perr.WithField(perr.InvalidArgf("unknown variant %q", runs.Variant), "variant")
	}
	if len(runs.Scores) != len(runs.Targets) {
		return perr.InvalidArgf("runs have %d targets but %d score rows", len(runs.Targets), len(runs.Scores))
	}
	for t, row := range runs.Scores {
		if len(row) != len(runs.Eras) {
			return perr.WithField(perr.InvalidArgf("target has %d eras, want %d", len(row), len(runs.Eras)), runs.Targets[t])
		}
	}
	if runs.ID == "" {
		runs.ID = uuid.NewString()
	}
	if runs.CreatedAt.IsZero() {
		runs.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Clone deep-copies runs.
func Clone(runs *domain.Runs) *domain.Runs {
	c := *runs
	c.Eras = append([]string(nil), runs.Eras...)
	c.Targets = append([]string(nil), runs.Targets...)
	c.Scores = make([][][]domain.Score, len(runs.Scores))
	for t, row := range runs.Scores {
		c.Scores[t] = make([][]domain.Score, len(row))
		for e, series := range row {
			c.Scores[t][e] = append([]domain.Score(nil), series...)
		}
	}
	return &c
}
