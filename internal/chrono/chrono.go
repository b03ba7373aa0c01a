// Package chrono trains one model forward through the eras, warm-starting
// each era from the previous era's checkpoint.
package chrono

import (
	"fmt"
	"math/rand/v2"

	"diachron/internal/bootstrap"
	"diachron/internal/corpus"
	"diachron/internal/domain"
	"diachron/internal/embedding"
	perr "diachron/internal/platform/errors"
	"diachron/internal/platform/logger"
)

// DefaultIterations is the number of warm-started runs per era.
const DefaultIterations = 100

// StartID names the checkpoint trained on the whole corpus.
const StartID = "model1_of_fullcorpus"

// CheckpointID names the checkpoint saved after era k.
func CheckpointID(k int, era string) string { return fmt.Sprintf("model%d_of_%s", k+2, era) }

// Checkpoints saves and restores models by id. Load must return a model
// independent of any previously loaded copy.
type Checkpoints interface {
	Save(id string, m embedding.Model) error
	Load(id string) (embedding.Model, error)
}

// Trainer carries the current model from era to era.
type Trainer struct {
	trainer    embedding.Trainer
	store      Checkpoints
	study      bootstrap.Study
	iterations int
	log        *logger.Logger
}

// New creates a chronological trainer running iterations updates per era.
func New(tr embedding.Trainer, store Checkpoints, study bootstrap.Study, iterations int) (*Trainer, error) {
	if err := study.Validate(); err != nil {
		return nil, err
	}
	if iterations <= 0 {
		return nil, perr.WithField(perr.InvalidArgf("iterations must be positive, got %d", iterations), "study.chrono_iterations")
	}
	return &Trainer{
		trainer:    tr,
		store:      store,
		study:      study,
		iterations: iterations,
		log:        logger.Variant("chrono", string(domain.VariantChrono)),
	}, nil
}

// Start trains the initial model on every era at once, saves it as StartID
// and returns its scores.
func (t *Trainer) Start(c *corpus.Corpus, rng *rand.Rand) ([]domain.Score, error) {
	m, err := t.trainer.Train(c.Flatten(), rng)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeOf(err), "train start model")
	}
	scores, missing := bootstrap.Score(m.Space(), t.study.Anchor, t.study.Targets)
	ev := t.log.Info().Str("checkpoint", StartID)
	for i, target := range t.study.Targets {
		ev = ev.Str(target, scores[i].String())
	}
	ev.Msg("start model trained")
	if len(missing) > 0 {
		t.log.Warn().Strs("missing", missing).Msg("words absent from full corpus")
	}
	if err := t.store.Save(StartID, m); err != nil {
		return nil, err
	}
	return scores, nil
}

// Transition runs the era's iterations. Every iteration loads prevID afresh,
// continues training on a resample of sentences and scores the result; the
// last iteration's model is saved as nextID.
func (t *Trainer) Transition(label string, sentences [][]string, prevID, nextID string, rng *rand.Rand) ([][]domain.Score, error) {
	if len(sentences) == 0 {
		return nil, perr.WithField(perr.Degeneratef("era %s has no sentences", label), label)
	}
	log := t.log.With().Str("era", label).Str("from", prevID).Logger()
	rows := make([][]domain.Score, 0, t.iterations)
	var last embedding.Model
	oov := 0
	for i := 0; i < t.iterations; i++ {
		m, err := t.store.Load(prevID)
		if err != nil {
			return nil, perr.Wrapf(err, perr.CodeOf(err), "load %s", prevID)
		}
		if err := t.trainer.Update(m, corpus.Resample(sentences, rng), rng); err != nil {
			return nil, perr.Wrapf(err, perr.CodeOf(err), "update %s run %d", label, i)
		}
		row, missing := bootstrap.Score(m.Space(), t.study.Anchor, t.study.Targets)
		if len(missing) > 0 {
			oov++
			log.Warn().Int("run", i).Strs("missing", missing).Msg("words outside model vocabulary")
		}
		rows = append(rows, row)
		last = m
	}
	if err := t.store.Save(nextID, last); err != nil {
		return nil, err
	}
	log.Info().Str("checkpoint", nextID).Int("runs", t.iterations).Int("runs_with_missing", oov).Msg("era trained")
	return rows, nil
}

// Run walks the eras starting at fromEra, or trains the start model and
// walks all eras when fromEra is empty. Eras before fromEra have empty
// series in the returned runs.
func (t *Trainer) Run(c *corpus.Corpus, fromEra string, rng *rand.Rand) (*domain.Runs, error) {
	labels := c.Labels()
	first := 0
	if fromEra != "" {
		first = c.Index(fromEra)
		if first < 0 {
			return nil, perr.WithField(perr.InvalidArgf("unknown era %q", fromEra), "from_era")
		}
	} else if _, err := t.Start(c, rng); err != nil {
		return nil, err
	}

	runs := domain.NewRuns(domain.VariantChrono, labels, t.study.Targets)
	for k := first; k < len(c.Eras); k++ {
		prevID := StartID
		if k > 0 {
			prevID = CheckpointID(k-1, labels[k-1])
		}
		rows, err := t.Transition(labels[k], c.Eras[k].Sentences, prevID, CheckpointID(k, labels[k]), rng)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			runs.Record(k, row)
		}
	}
	return runs, nil
}
