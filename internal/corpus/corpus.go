// Package corpus loads the per-era sentence files and derives the resampled
// and overlap-augmented views the samplers train on.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	perr "diachron/internal/platform/errors"
)

// DefaultFilePattern names one era file; %s is the era label.
const DefaultFilePattern = "processed_%sera.txt"

// DefaultEras are the study's era labels in chronological order.
var DefaultEras = []string{"1855", "1880", "1905", "1930", "1955", "1980", "2005"}

// Era is one labeled time slice of the corpus.
type Era struct {
	Label     string
	Sentences [][]string
}

// Corpus is an ordered sequence of eras.
type Corpus struct {
	Eras []Era
}

// Labels returns the era labels in order.
func (c *Corpus) Labels() []string {
	out := make([]string, len(c.Eras))
	for i, e := range c.Eras {
		out[i] = e.Label
	}
	return out
}

// Index returns the position of the era labeled label, or -1.
func (c *Corpus) Index(label string) int {
	for i, e := range c.Eras {
		if e.Label == label {
			return i
		}
	}
	return -1
}

// Flatten concatenates the sentences of every era in order.
func (c *Corpus) Flatten() [][]string {
	n := 0
	for _, e := range c.Eras {
		n += len(e.Sentences)
	}
	out := make([][]string, 0, n)
	for _, e := range c.Eras {
		out = append(out, e.Sentences...)
	}
	return out
}

// Load reads one file per era from dir. pattern is a fmt pattern taking the
// era label; empty means DefaultFilePattern.
func Load(dir, pattern string, labels []string) (*Corpus, error) {
	if pattern == "" {
		pattern = DefaultFilePattern
	}
	if len(labels) == 0 {
		return nil, perr.InvalidArgf("no eras configured")
	}
	c := &Corpus{Eras: make([]Era, 0, len(labels))}
	for _, label := range labels {
		path := filepath.Join(dir, fmt.Sprintf(pattern, label))
		sentences, err := ReadFile(path)
		if err != nil {
			return nil, perr.WithField(err, label)
		}
		c.Eras = append(c.Eras, Era{Label: label, Sentences: sentences})
	}
	return c, nil
}

// ReadFile reads a pre-tokenized file: one sentence per line, whitespace
// separated tokens, blank lines skipped.
func ReadFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "era file %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "open era file %s", path)
	}
	defer f.Close()
	sentences, err := Read(f)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "read era file %s", path)
	}
	return sentences, nil
}

// Read parses sentences from r in the era file format.
func Read(r io.Reader) ([][]string, error) {
	var sentences [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		tokens := strings.Fields(sc.Text())
		if len(tokens) == 0 {
			continue
		}
		sentences = append(sentences, tokens)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}
