package word2vec

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"

	perr "diachron/internal/platform/errors"
	"diachron/internal/space"
)

var tinyCorpus = [][]string{
	{"equality", "of", "rights", "for", "women", "and", "gender"},
	{"the", "treaty", "secured", "equality", "between", "nations"},
	{"race", "and", "equality", "before", "the", "law"},
	{"gender", "equality", "and", "social", "reform"},
	{"the", "german", "treaty", "was", "signed"},
}

func smallParams() Params {
	return Params{Dim: 8, Window: 3, Negative: 3, MinCount: 0, Epochs: 5, Alpha: 0.025, MinAlpha: 0.0001, Sample: 0}
}

func mustTrainer(t *testing.T, p Params) *Trainer {
	t.Helper()
	tr, err := NewTrainer(p)
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	return tr
}

func mustTrain(t *testing.T, tr *Trainer, sentences [][]string, seed uint64) *Model {
	t.Helper()
	m, err := tr.Train(sentences, rand.New(rand.NewPCG(seed, 0)))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return m.(*Model)
}

func TestBuildVocabulary_OrderAndFloor(t *testing.T) {
	words, counts := buildVocabulary([][]string{{"b", "a", "a"}, {"c", "b", "a"}, {"d"}}, 0)
	if want := []string{"a", "b", "c", "d"}; !slices.Equal(words, want) {
		t.Fatalf("words = %v, want %v", words, want)
	}
	if want := []int64{3, 2, 1, 1}; !slices.Equal(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}

	words, _ = buildVocabulary([][]string{{"b", "a", "a"}, {"c", "b", "a"}}, 2)
	if want := []string{"a", "b"}; !slices.Equal(words, want) {
		t.Fatalf("min_count words = %v, want %v", words, want)
	}
}

func TestParams_Validate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := []func(*Params){
		func(p *Params) { p.Dim = 0 },
		func(p *Params) { p.Window = 0 },
		func(p *Params) { p.Negative = -1 },
		func(p *Params) { p.Epochs = 0 },
		func(p *Params) { p.MinAlpha = 1 },
		func(p *Params) { p.Sample = -1 },
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("case %d: err = %v, want invalid argument", i, err)
		}
	}
}

func TestTrain_ProducesConsistentSpace(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	m := mustTrain(t, tr, tinyCorpus, 1)
	sp := m.Space()
	if err := sp.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sp.Dim() != 8 {
		t.Fatalf("dim = %d", sp.Dim())
	}
	if sp.Word(0) != "equality" {
		t.Fatalf("most frequent word = %q, want equality", sp.Word(0))
	}
	sim, ok := sp.Similarity("equality", "gender")
	if !ok || sim < -1-1e-9 || sim > 1+1e-9 {
		t.Fatalf("similarity = %v ok=%v", sim, ok)
	}
	if _, ok := sp.Similarity("equality", "african_american"); ok {
		t.Fatalf("unseen word should be out of vocabulary")
	}
}

func TestTrain_SameSeedSameVectors(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	a := mustTrain(t, tr, tinyCorpus, 42)
	b := mustTrain(t, tr, tinyCorpus, 42)
	c := mustTrain(t, tr, tinyCorpus, 43)
	if !slices.Equal(a.syn0, b.syn0) || !slices.Equal(a.syn1neg, b.syn1neg) {
		t.Fatalf("same seed produced different weights")
	}
	if slices.Equal(a.syn0, c.syn0) {
		t.Fatalf("different seeds produced identical weights")
	}
}

func TestTrain_Degenerate(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	_, err := tr.Train([][]string{{}, {}}, rand.New(rand.NewPCG(1, 1)))
	if !perr.IsCode(err, perr.ErrorCodeDegenerate) {
		t.Fatalf("err = %v, want degenerate", err)
	}
}

func TestUpdate_KeepsVocabularyAndMovesVectors(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	m := mustTrain(t, tr, tinyCorpus, 7)
	before := m.Clone()

	next := [][]string{{"equality", "and", "social", "justice", "unknown_word"}}
	if err := tr.Update(m, next, rand.New(rand.NewPCG(8, 0))); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !slices.Equal(m.words, before.words) || !slices.Equal(m.counts, before.counts) {
		t.Fatalf("update changed the vocabulary")
	}
	if m.Space().Contains("unknown_word") {
		t.Fatalf("update should ignore out-of-vocabulary words")
	}
	if slices.Equal(m.syn0, before.syn0) {
		t.Fatalf("update did not move any vector")
	}

	// nothing trainable: weights stay put
	snap := m.Clone()
	if err := tr.Update(m, [][]string{{"zzz"}}, rand.New(rand.NewPCG(9, 0))); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !slices.Equal(m.syn0, snap.syn0) {
		t.Fatalf("out-of-vocabulary update moved vectors")
	}
}

type fakeModel struct{}

func (fakeModel) Space() *space.Space { return space.Empty(8) }

func TestUpdate_RejectsForeignModel(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	var foreign fakeModel
	if err := tr.Update(foreign, tinyCorpus, rand.New(rand.NewPCG(1, 1))); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestEncodeDecode_ExactRoundTrip(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	m := mustTrain(t, tr, tinyCorpus, 11)

	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.params != m.params || !slices.Equal(got.words, m.words) || !slices.Equal(got.counts, m.counts) {
		t.Fatalf("metadata differs after round trip")
	}
	if !slices.Equal(got.syn0, m.syn0) || !slices.Equal(got.syn1neg, m.syn1neg) {
		t.Fatalf("weights differ after round trip")
	}
}

func TestFileStore_ResumeMatchesUninterruptedTraining(t *testing.T) {
	tr := mustTrainer(t, smallParams())
	m := mustTrain(t, tr, tinyCorpus, 5)
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save("model1_of_fullcorpus", m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !store.Exists("model1_of_fullcorpus") {
		t.Fatalf("checkpoint not found after save")
	}

	loaded, err := store.Load("model1_of_fullcorpus")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inMemory := m.Clone()
	if err := tr.Update(loaded, tinyCorpus[:2], rand.New(rand.NewPCG(6, 0))); err != nil {
		t.Fatalf("Update loaded: %v", err)
	}
	if err := tr.Update(inMemory, tinyCorpus[:2], rand.New(rand.NewPCG(6, 0))); err != nil {
		t.Fatalf("Update in memory: %v", err)
	}
	if !slices.Equal(loaded.(*Model).syn0, inMemory.syn0) {
		t.Fatalf("resumed training diverged from uninterrupted training")
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Load("model9_of_2005"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
