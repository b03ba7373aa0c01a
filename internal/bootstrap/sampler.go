// Package bootstrap measures anchor-target similarity over many models
// trained on with-replacement resamples of each era.
package bootstrap

import (
	"math/rand/v2"

	"diachron/internal/corpus"
	"diachron/internal/domain"
	"diachron/internal/embedding"
	perr "diachron/internal/platform/errors"
	"diachron/internal/platform/logger"
)

// DefaultIterations is the number of resampled models per era.
const DefaultIterations = 200

// Study names the words whose similarity is tracked.
type Study struct {
	Anchor  string
	Targets []string
}

// Validate checks that the study tracks at least one target.
func (s Study) Validate() error {
	if s.Anchor == "" {
		return perr.WithField(perr.InvalidArgf("anchor word is empty"), "study.anchor")
	}
	if len(s.Targets) == 0 {
		return perr.WithField(perr.InvalidArgf("no target words"), "study.targets")
	}
	return nil
}

// Sampler trains an independent model per resample and scores it.
type Sampler struct {
	trainer    embedding.Trainer
	study      Study
	iterations int
	log        *logger.Logger
}

// NewSampler creates a sampler running iterations resamples per era.
func NewSampler(tr embedding.Trainer, study Study, iterations int) (*Sampler, error) {
	if err := study.Validate(); err != nil {
		return nil, err
	}
	if iterations <= 0 {
		return nil, perr.WithField(perr.InvalidArgf("iterations must be positive, got %d", iterations), "study.bootstrap_iterations")
	}
	return &Sampler{trainer: tr, study: study, iterations: iterations, log: logger.Named("bootstrap")}, nil
}

// Iterations returns the number of runs per era.
func (s *Sampler) Iterations() int { return s.iterations }

// Era runs the bootstrap loop over one era's sentences and returns one score
// row per run, each row in target order.
func (s *Sampler) Era(label string, sentences [][]string, rng *rand.Rand) ([][]domain.Score, error) {
	if len(sentences) == 0 {
		return nil, perr.WithField(perr.Degeneratef("era %s has no sentences", label), label)
	}
	log := s.log.With().Str("era", label).Logger()
	rows := make([][]domain.Score, 0, s.iterations)
	missed := 0
	for i := 0; i < s.iterations; i++ {
		m, err := s.trainer.Train(corpus.Resample(sentences, rng), rng)
		if err != nil {
			return nil, perr.Wrapf(err, perr.CodeOf(err), "train %s run %d", label, i)
		}
		row, missing := Score(m.Space(), s.study.Anchor, s.study.Targets)
		if len(missing) > 0 {
			missed++
			log.Debug().Int("run", i).Strs("missing", missing).Msg("words absent from resample")
		}
		rows = append(rows, row)
	}
	log.Info().Int("runs", s.iterations).Int("runs_with_missing", missed).Msg("era sampled")
	return rows, nil
}

// Run samples every era of c and returns the run matrix tagged as variant.
func (s *Sampler) Run(variant domain.Variant, c *corpus.Corpus, rng *rand.Rand) (*domain.Runs, error) {
	runs := domain.NewRuns(variant, c.Labels(), s.study.Targets)
	vs := *s
	vs.log = logger.Variant("bootstrap", string(variant))
	for ei, era := range c.Eras {
		rows, err := vs.Era(era.Label, era.Sentences, rng)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			runs.Record(ei, row)
		}
	}
	return runs, nil
}
