package service

import (
	"io"
	"math/rand/v2"
	"path/filepath"

	"diachron/internal/bootstrap"
	"diachron/internal/chrono"
	"diachron/internal/corpus"
	"diachron/internal/coverage"
	"diachron/internal/domain"
	"diachron/internal/embedding"
	"diachron/internal/export"
	perr "diachron/internal/platform/errors"
	"diachron/internal/platform/logger"
	"diachron/internal/stats"
)

// Options are the study settings the service needs beyond its components.
type Options struct {
	Study               bootstrap.Study
	Seed                uint64
	BootstrapIterations int
	ChronoIterations    int
	OverlapFraction     float64
	IntervalTarget      string
	OutputDir           string
}

// Result is one aggregated analysis.
type Result struct {
	Runs  *domain.Runs
	Table *stats.Table
	// Files lists the tables written for this result.
	Files []string
	// Insufficient joins the per-(target, era) sample errors; nil when every
	// cell has enough samples.
	Insufficient error
}

// StudyServiceImpl runs the four variants, stores their run matrices and
// exports aggregated tables.
type StudyServiceImpl struct {
	corpus      *corpus.Corpus
	trainer     embedding.Trainer
	checkpoints chrono.Checkpoints
	store       domain.RunStore
	agg         stats.Aggregator
	opts        Options
	log         *logger.Logger
}

// NewStudyService assembles the service. c may be nil when only stored runs
// are reported.
func NewStudyService(c *corpus.Corpus, trainer embedding.Trainer, checkpoints chrono.Checkpoints, store domain.RunStore, agg stats.Aggregator, opts Options) *StudyServiceImpl {
	return &StudyServiceImpl{
		corpus:      c,
		trainer:     trainer,
		checkpoints: checkpoints,
		store:       store,
		agg:         agg,
		opts:        opts,
		log:         logger.Named("service"),
	}
}

// rng returns the variant's own random stream.
func (s *StudyServiceImpl) rng(v domain.Variant) *rand.Rand {
	stream := uint64(0)
	for i, known := range domain.Variants {
		if known == v {
			stream = uint64(i + 1)
		}
	}
	return rand.New(rand.NewPCG(s.opts.Seed, stream))
}

func (s *StudyServiceImpl) requireCorpus() error {
	if s.corpus == nil || len(s.corpus.Eras) == 0 {
		return perr.InvalidArgf("no corpus loaded")
	}
	return nil
}

// Run trains and aggregates one variant from scratch.
func (s *StudyServiceImpl) Run(v domain.Variant) (*Result, error) {
	switch v {
	case domain.VariantNaive:
		return s.Naive()
	case domain.VariantOverlap:
		return s.Overlap()
	case domain.VariantAligned:
		return s.Aligned()
	case domain.VariantChrono:
		return s.Chrono("")
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown variant %q", v), "variant")
	}
}

// Naive samples independent models per era.
func (s *StudyServiceImpl) Naive() (*Result, error) {
	if err := s.requireCorpus(); err != nil {
		return nil, err
	}
	return s.sample(domain.VariantNaive, s.corpus)
}

// Overlap samples per era after sharing boundary sentences with the
// neighboring eras.
func (s *StudyServiceImpl) Overlap() (*Result, error) {
	if err := s.requireCorpus(); err != nil {
		return nil, err
	}
	c, err := s.corpus.WithOverlap(s.opts.OverlapFraction)
	if err != nil {
		return nil, err
	}
	return s.sample(domain.VariantOverlap, c)
}

func (s *StudyServiceImpl) sample(v domain.Variant, c *corpus.Corpus) (*Result, error) {
	sampler, err := bootstrap.NewSampler(s.trainer, s.opts.Study, s.opts.BootstrapIterations)
	if err != nil {
		return nil, err
	}
	runs, err := sampler.Run(v, c, s.rng(v))
	if err != nil {
		return nil, err
	}
	return s.finish(runs)
}

// Aligned samples eras 1.. against a rolling Procrustes-aligned base.
func (s *StudyServiceImpl) Aligned() (*Result, error) {
	if err := s.requireCorpus(); err != nil {
		return nil, err
	}
	sampler, err := bootstrap.NewAlignedSampler(s.trainer, s.opts.Study, s.opts.BootstrapIterations)
	if err != nil {
		return nil, err
	}
	runs, err := sampler.Run(s.corpus, s.rng(domain.VariantAligned))
	if err != nil {
		return nil, err
	}
	return s.finish(runs)
}

// Chrono trains forward through the eras from fromEra, or from a model of the
// whole corpus when fromEra is empty. On resume, earlier eras are taken from
// the latest stored chrono runs when available.
func (s *StudyServiceImpl) Chrono(fromEra string) (*Result, error) {
	if err := s.requireCorpus(); err != nil {
		return nil, err
	}
	if s.checkpoints == nil {
		return nil, perr.InvalidArgf("chrono training needs a checkpoint store")
	}
	ct, err := chrono.New(s.trainer, s.checkpoints, s.opts.Study, s.opts.ChronoIterations)
	if err != nil {
		return nil, err
	}
	runs, err := ct.Run(s.corpus, fromEra, s.rng(domain.VariantChrono))
	if err != nil {
		return nil, err
	}
	if fromEra != "" {
		s.adoptPrior(runs, fromEra)
	}
	return s.finish(runs)
}

func (s *StudyServiceImpl) adoptPrior(runs *domain.Runs, fromEra string) {
	prior, err := s.store.Latest(domain.VariantChrono)
	if err != nil {
		s.log.Warn().Err(err).Msg("no prior chrono runs to resume from")
		return
	}
	for _, era := range runs.Eras {
		if era == fromEra {
			break
		}
		if !runs.Adopt(prior, era) {
			s.log.Warn().Str("era", era).Str("prior", prior.ID).Msg("prior chrono runs lack era")
		}
	}
}

// Report re-aggregates the latest stored runs of v without training.
func (s *StudyServiceImpl) Report(v domain.Variant) (*Result, error) {
	runs, err := s.store.Latest(v)
	if err != nil {
		return nil, err
	}
	return s.aggregate(runs)
}

// Coverage counts the study words in every era.
func (s *StudyServiceImpl) Coverage() (*coverage.Report, error) {
	if err := s.requireCorpus(); err != nil {
		return nil, err
	}
	words := append([]string{s.opts.Study.Anchor}, s.opts.Study.Targets...)
	return coverage.Compute(s.corpus, words), nil
}

func (s *StudyServiceImpl) finish(runs *domain.Runs) (*Result, error) {
	id, err := s.store.Save(runs)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("variant", string(runs.Variant)).Str("id", id).Msg("runs stored")
	return s.aggregate(runs)
}

func (s *StudyServiceImpl) aggregate(runs *domain.Runs) (*Result, error) {
	table, insufficient := s.agg.Table(runs)
	if insufficient != nil {
		s.log.Warn().Str("variant", string(runs.Variant)).Err(insufficient).Msg("cells with insufficient samples")
	}
	res := &Result{Runs: runs, Table: table, Insufficient: insufficient}

	if s.opts.OutputDir == "" {
		return res, nil
	}
	path := filepath.Join(s.opts.OutputDir, export.MeansFileName(runs.Variant))
	if err := export.WriteFile(path, func(w io.Writer) error { return export.WriteMeans(w, table) }); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, path)

	if runs.Variant == domain.VariantChrono && s.opts.IntervalTarget != "" {
		row := table.Row(s.opts.IntervalTarget)
		if row == nil {
			s.log.Warn().Str("target", s.opts.IntervalTarget).Msg("interval target is not tracked")
			return res, nil
		}
		path := filepath.Join(s.opts.OutputDir, export.IntervalFileName(runs.Variant, s.opts.IntervalTarget))
		if err := export.WriteFile(path, func(w io.Writer) error { return export.WriteIntervals(w, row) }); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}
	return res, nil
}
