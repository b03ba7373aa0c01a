package word2vec

import (
	perr "diachron/internal/platform/errors"
)

// Params are the skip-gram negative-sampling hyperparameters. They travel with
// a Model so a checkpoint can be resumed with the configuration it was
// trained under.
type Params struct {
	Dim      int     `json:"dim" yaml:"dim"`
	Window   int     `json:"window" yaml:"window"`
	Negative int     `json:"negative" yaml:"negative"`
	MinCount int     `json:"min_count" yaml:"min_count"`
	Epochs   int     `json:"epochs" yaml:"epochs"`
	Alpha    float64 `json:"alpha" yaml:"alpha"`
	MinAlpha float64 `json:"min_alpha" yaml:"min_alpha"`
	// Sample is the frequent-word downsampling threshold; 0 disables it.
	Sample float64 `json:"sample" yaml:"sample"`
}

// DefaultParams matches the study setup: 100 dims, window 10, 5 negatives,
// no vocabulary floor, 200 epochs.
func DefaultParams() Params {
	return Params{
		Dim:      100,
		Window:   10,
		Negative: 5,
		MinCount: 0,
		Epochs:   200,
		Alpha:    0.025,
		MinAlpha: 0.0001,
		Sample:   1e-3,
	}
}

// Validate rejects parameters the trainer cannot run with.
func (p Params) Validate() error {
	switch {
	case p.Dim <= 0:
		return perr.WithField(perr.InvalidArgf("dim must be positive, got %d", p.Dim), "dim")
	case p.Window <= 0:
		return perr.WithField(perr.InvalidArgf("window must be positive, got %d", p.Window), "window")
	case p.Negative < 0:
		return perr.WithField(perr.InvalidArgf("negative must not be negative, got %d", p.Negative), "negative")
	case p.Epochs <= 0:
		return perr.WithField(perr.InvalidArgf("epochs must be positive, got %d", p.Epochs), "epochs")
	case p.Alpha <= 0 || p.MinAlpha < 0 || p.MinAlpha > p.Alpha:
		return perr.WithField(perr.InvalidArgf("learning rate %g -> %g is not a decreasing schedule", p.Alpha, p.MinAlpha), "alpha")
	case p.Sample < 0:
		return perr.WithField(perr.InvalidArgf("sample must not be negative, got %g", p.Sample), "sample")
	}
	return nil
}
