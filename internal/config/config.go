package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"diachron/internal/bootstrap"
	"diachron/internal/chrono"
	"diachron/internal/corpus"
	"diachron/internal/embedding/word2vec"
	perr "diachron/internal/platform/errors"
	"diachron/internal/resultstore/sqlite"
	"diachron/internal/stats"
)

// CorpusConfig locates the per-era corpus files.
type CorpusConfig struct {
	Dir             string   `yaml:"dir"`
	Eras            []string `yaml:"eras"`
	FilePattern     string   `yaml:"file_pattern"`
	OverlapFraction float64  `yaml:"overlap_fraction"`
}

// StudyConfig names the tracked words and the sampling effort.
type StudyConfig struct {
	Anchor              string   `yaml:"anchor"`
	Targets             []string `yaml:"targets"`
	Seed                uint64   `yaml:"seed"`
	BootstrapIterations int      `yaml:"bootstrap_iterations"`
	ChronoIterations    int      `yaml:"chrono_iterations"`
	IntervalTarget      string   `yaml:"interval_target"`
}

// StatsConfig holds the aggregation constants.
type StatsConfig struct {
	SampleSize int     `yaml:"sample_size"`
	Divisor    float64 `yaml:"divisor"`
	Z          float64 `yaml:"z"`
}

// StoreConfig selects the run-matrix store implementation.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// SQLiteConfig locates the SQLite database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig locates generated tables and model checkpoints.
type OutputConfig struct {
	Dir           string `yaml:"dir"`
	CheckpointDir string `yaml:"checkpoint_dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus   CorpusConfig    `yaml:"corpus"`
	Study    StudyConfig     `yaml:"study"`
	Word2Vec word2vec.Params `yaml:"word2vec"`
	Stats    StatsConfig     `yaml:"stats"`
	Store    StoreConfig     `yaml:"store"`
	Output   OutputConfig    `yaml:"output"`
}

// Aggregator returns the configured statistics aggregator.
func (c *AppConfig) Aggregator() stats.Aggregator {
	return stats.Aggregator{SampleSize: c.Stats.SampleSize, Divisor: c.Stats.Divisor, Z: c.Stats.Z}
}

// StudyWords returns the anchor and targets.
func (c *AppConfig) StudyWords() bootstrap.Study {
	return bootstrap.Study{Anchor: c.Study.Anchor, Targets: append([]string(nil), c.Study.Targets...)}
}

// Validate checks values that defaults cannot repair.
func (c *AppConfig) Validate() error {
	if err := c.Word2Vec.Validate(); err != nil {
		if e, ok := perr.As(err); ok {
			return perr.WithField(err, "word2vec."+e.Field())
		}
		return err
	}
	if err := c.StudyWords().Validate(); err != nil {
		return err
	}
	if err := c.Aggregator().Validate(); err != nil {
		return err
	}
	if f := c.Corpus.OverlapFraction; f < 0 || f >= 0.5 {
		return perr.WithField(perr.InvalidArgf("overlap fraction %v outside [0, 0.5)", f), "corpus.overlap_fraction")
	}
	if len(c.Corpus.Eras) == 0 {
		return perr.WithField(perr.InvalidArgf("no eras configured"), "corpus.eras")
	}
	switch c.Store.Type {
	case "memory", "sqlite":
	default:
		return perr.WithField(perr.InvalidArgf("unknown store type %q", c.Store.Type), "store.type")
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "read config %s", path)
	}
	// keys absent from the file keep their defaults, so explicit zeros such
	// as word2vec.sample survive
	cfg := *defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "parse config %s", path)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./diachron.yaml first, then ~/.config/diachron/config.yaml.
// If neither exists, it writes defaults to ~/.config/diachron/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "diachron.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "create %s", filepath.Dir(path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "write config %s", path)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "diachron", "config.yaml"), nil
}

// DefaultTargets are the words tracked against the anchor "equality".
var DefaultTargets = []string{"gender", "treaty", "german", "race", "african_american", "social"}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus: CorpusConfig{
			Dir:             ".",
			Eras:            append([]string(nil), corpus.DefaultEras...),
			FilePattern:     corpus.DefaultFilePattern,
			OverlapFraction: corpus.DefaultOverlap,
		},
		Study: StudyConfig{
			Anchor:              "equality",
			Targets:             append([]string(nil), DefaultTargets...),
			Seed:                6801,
			BootstrapIterations: bootstrap.DefaultIterations,
			ChronoIterations:    chrono.DefaultIterations,
			IntervalTarget:      "social",
		},
		Word2Vec: word2vec.DefaultParams(),
		Stats:    StatsConfig{SampleSize: stats.DefaultSampleSize, Divisor: stats.DefaultDivisor, Z: stats.DefaultZ},
		Store:    StoreConfig{Type: "sqlite", SQLite: &SQLiteConfig{Path: sqlite.DefaultPath}},
		Output:   OutputConfig{Dir: ".", CheckpointDir: "models"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = def.Corpus.Dir
	}
	if len(cfg.Corpus.Eras) == 0 {
		cfg.Corpus.Eras = def.Corpus.Eras
	}
	if cfg.Corpus.FilePattern == "" {
		cfg.Corpus.FilePattern = def.Corpus.FilePattern
	}
	if cfg.Corpus.OverlapFraction == 0 {
		cfg.Corpus.OverlapFraction = def.Corpus.OverlapFraction
	}
	if cfg.Study.Anchor == "" {
		cfg.Study.Anchor = def.Study.Anchor
	}
	if len(cfg.Study.Targets) == 0 {
		cfg.Study.Targets = def.Study.Targets
	}
	if cfg.Study.Seed == 0 {
		cfg.Study.Seed = def.Study.Seed
	}
	if cfg.Study.BootstrapIterations == 0 {
		cfg.Study.BootstrapIterations = def.Study.BootstrapIterations
	}
	if cfg.Study.ChronoIterations == 0 {
		cfg.Study.ChronoIterations = def.Study.ChronoIterations
	}
	if cfg.Study.IntervalTarget == "" {
		cfg.Study.IntervalTarget = def.Study.IntervalTarget
	}
	w, dw := &cfg.Word2Vec, def.Word2Vec
	if w.Dim == 0 {
		w.Dim = dw.Dim
	}
	if w.Window == 0 {
		w.Window = dw.Window
	}
	if w.Negative == 0 {
		w.Negative = dw.Negative
	}
	if w.Epochs == 0 {
		w.Epochs = dw.Epochs
	}
	if w.Alpha == 0 {
		w.Alpha = dw.Alpha
	}
	if w.MinAlpha == 0 {
		w.MinAlpha = dw.MinAlpha
	}
	if cfg.Stats.SampleSize == 0 {
		cfg.Stats.SampleSize = def.Stats.SampleSize
	}
	if cfg.Stats.Divisor == 0 {
		cfg.Stats.Divisor = def.Stats.Divisor
	}
	if cfg.Stats.Z == 0 {
		cfg.Stats.Z = def.Stats.Z
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Type == "sqlite" {
		if cfg.Store.SQLite == nil {
			cfg.Store.SQLite = &SQLiteConfig{}
		}
		if cfg.Store.SQLite.Path == "" {
			cfg.Store.SQLite.Path = sqlite.DefaultPath
		}
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = def.Output.Dir
	}
	if cfg.Output.CheckpointDir == "" {
		cfg.Output.CheckpointDir = def.Output.CheckpointDir
	}
}
