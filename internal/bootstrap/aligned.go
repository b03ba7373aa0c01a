package bootstrap

import (
	"math/rand/v2"

	"diachron/internal/align"
	"diachron/internal/corpus"
	"diachron/internal/domain"
	"diachron/internal/embedding"
	perr "diachron/internal/platform/errors"
	"diachron/internal/platform/logger"
	"diachron/internal/space"
)

// AlignedSampler scores each resampled model after rotating it onto a base
// space that follows the eras forward.
type AlignedSampler struct {
	trainer    embedding.Trainer
	study      Study
	iterations int
	log        *logger.Logger
}

// NewAlignedSampler creates an aligned sampler running iterations resamples
// per era.
func NewAlignedSampler(tr embedding.Trainer, study Study, iterations int) (*AlignedSampler, error) {
	s, err := NewSampler(tr, study, iterations)
	if err != nil {
		return nil, err
	}
	return &AlignedSampler{trainer: s.trainer, study: s.study, iterations: s.iterations, log: logger.Variant("bootstrap", string(domain.VariantAligned))}, nil
}

// Run returns runs for eras[1:]. The base starts as a model of era 0; after
// era k+1 is sampled it becomes a model of era k+1 rotated onto a model of
// era k, both trained on the unresampled eras.
func (a *AlignedSampler) Run(c *corpus.Corpus, rng *rand.Rand) (*domain.Runs, error) {
	if len(c.Eras) < 2 {
		return nil, perr.InvalidArgf("aligned sampling needs at least two eras, got %d", len(c.Eras))
	}
	labels := c.Labels()
	runs := domain.NewRuns(domain.VariantAligned, labels[1:], a.study.Targets)

	base, err := a.train(c.Eras[0], rng)
	if err != nil {
		return nil, err
	}
	for k := 0; k+1 < len(c.Eras); k++ {
		next := c.Eras[k+1]
		if len(next.Sentences) == 0 {
			return nil, perr.WithField(perr.Degeneratef("era %s has no sentences", next.Label), next.Label)
		}
		log := a.log.With().Str("era", next.Label).Logger()
		degenerate := 0
		for i := 0; i < a.iterations; i++ {
			m, err := a.trainer.Train(corpus.Resample(next.Sentences, rng), rng)
			if err != nil {
				return nil, perr.Wrapf(err, perr.CodeOf(err), "train %s run %d", next.Label, i)
			}
			al, err := align.Align(base, m.Space(), nil)
			if err != nil {
				if !perr.Is(err, align.ErrEmptyIntersection) {
					return nil, perr.Wrapf(err, perr.CodeOf(err), "align %s run %d", next.Label, i)
				}
				degenerate++
				runs.Record(k, allMissing(len(a.study.Targets)))
				continue
			}
			row, missing := Score(al.Rotated, a.study.Anchor, a.study.Targets)
			if len(missing) > 0 {
				log.Debug().Int("run", i).Strs("missing", missing).Msg("words absent after alignment")
			}
			runs.Record(k, row)
		}
		if degenerate > 0 {
			log.Warn().Int("runs", degenerate).Msg("no shared vocabulary with base")
		}
		log.Info().Int("runs", a.iterations).Msg("era sampled")

		if k+2 < len(c.Eras) {
			base = a.rollForward(c.Eras[k], next, base, rng)
		}
	}
	return runs, nil
}

// rollForward aligns a model of next onto a model of prev. On failure the
// current base is kept.
func (a *AlignedSampler) rollForward(prev, next corpus.Era, base *space.Space, rng *rand.Rand) *space.Space {
	log := a.log.With().Str("from", prev.Label).Str("to", next.Label).Logger()
	p, err := a.train(prev, rng)
	if err != nil {
		log.Warn().Err(err).Msg("keeping previous base")
		return base
	}
	n, err := a.train(next, rng)
	if err != nil {
		log.Warn().Err(err).Msg("keeping previous base")
		return base
	}
	al, err := align.Align(p, n, nil)
	if err != nil {
		log.Warn().Err(err).Msg("keeping previous base")
		return base
	}
	log.Debug().Int("shared", al.Rotated.Len()).Msg("base rolled forward")
	return al.Rotated
}

func (a *AlignedSampler) train(era corpus.Era, rng *rand.Rand) (*space.Space, error) {
	m, err := a.trainer.Train(era.Sentences, rng)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeOf(err), "train base on %s", era.Label)
	}
	return m.Space(), nil
}
