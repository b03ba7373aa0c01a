package word2vec

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"diachron/internal/embedding"
	perr "diachron/internal/platform/errors"
)

const checkpointVersion = 1

// checkpoint is the on-disk form of a Model. encoding/json writes float64
// values in their shortest round-trip form, so a load reproduces the saved
// weights exactly.
type checkpoint struct {
	Version int       `json:"version"`
	Params  Params    `json:"params"`
	Words   []string  `json:"words"`
	Counts  []int64   `json:"counts"`
	Syn0    []float64 `json:"syn0"`
	Syn1Neg []float64 `json:"syn1neg"`
}

// Encode writes m as a JSON checkpoint.
func Encode(w io.Writer, m *Model) error {
	cp := checkpoint{
		Version: checkpointVersion,
		Params:  m.params,
		Words:   m.words,
		Counts:  m.counts,
		Syn0:    m.syn0,
		Syn1Neg: m.syn1neg,
	}
	return json.NewEncoder(w).Encode(&cp)
}

// Decode reads a JSON checkpoint written by Encode.
func Decode(r io.Reader) (*Model, error) {
	var cp checkpoint
	if err := json.NewDecoder(r).Decode(&cp); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeIO, "decode checkpoint")
	}
	if cp.Version != checkpointVersion {
		return nil, perr.InvalidArgf("unsupported checkpoint version %d", cp.Version)
	}
	if err := cp.Params.Validate(); err != nil {
		return nil, err
	}
	n := len(cp.Words)
	if len(cp.Counts) != n || len(cp.Syn0) != n*cp.Params.Dim || len(cp.Syn1Neg) != n*cp.Params.Dim {
		return nil, perr.Degeneratef("checkpoint sizes disagree: words=%d counts=%d syn0=%d syn1neg=%d dim=%d",
			n, len(cp.Counts), len(cp.Syn0), len(cp.Syn1Neg), cp.Params.Dim)
	}
	m := &Model{
		params:  cp.Params,
		words:   cp.Words,
		counts:  cp.Counts,
		syn0:    cp.Syn0,
		syn1neg: cp.Syn1Neg,
	}
	m.reindex()
	return m, nil
}

// FileStore keeps checkpoints as <dir>/<id>.model files.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "create checkpoint dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing id.
func (s *FileStore) Path(id string) string { return filepath.Join(s.dir, id+".model") }

// Exists reports whether a checkpoint for id is present.
func (s *FileStore) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Save writes m under id, replacing any previous checkpoint atomically.
func (s *FileStore) Save(id string, em embedding.Model) error {
	m, ok := em.(*Model)
	if !ok {
		return perr.InvalidArgf("cannot checkpoint a %T", em)
	}
	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "create checkpoint %s", id)
	}
	defer os.Remove(tmp.Name())
	if err := Encode(tmp, m); err != nil {
		tmp.Close()
		return perr.Wrapf(err, perr.ErrorCodeIO, "write checkpoint %s", id)
	}
	if err := tmp.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "close checkpoint %s", id)
	}
	if err := os.Rename(tmp.Name(), s.Path(id)); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "commit checkpoint %s", id)
	}
	return nil
}

// Load reads the checkpoint saved under id.
func (s *FileStore) Load(id string) (embedding.Model, error) {
	f, err := os.Open(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "checkpoint %s", id)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "open checkpoint %s", id)
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, perr.WithOp(err, "load "+id)
	}
	return m, nil
}
