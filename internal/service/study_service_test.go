package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diachron/internal/bootstrap"
	"diachron/internal/corpus"
	"diachron/internal/domain"
	"diachron/internal/embedding/embeddingtest"
	perr "diachron/internal/platform/errors"
	kit "diachron/internal/platform/testkit"
	"diachron/internal/resultstore/memory"
	"diachron/internal/stats"
)

func testCorpus() *corpus.Corpus {
	sentences := func(extra string) [][]string {
		out := make([][]string, 10)
		for i := range out {
			out[i] = []string{"equality", "social", extra}
		}
		return out
	}
	return &corpus.Corpus{Eras: []corpus.Era{
		{Label: "1855", Sentences: sentences("treaty")},
		{Label: "1880", Sentences: sentences("race")},
		{Label: "1905", Sentences: sentences("race")},
	}}
}

type fixture struct {
	svc   *StudyServiceImpl
	store *memory.Storage
	out   string
}

func newFixture(t *testing.T, c *corpus.Corpus) fixture {
	t.Helper()
	store := memory.NewStorage()
	out := t.TempDir()
	svc := NewStudyService(c, &embeddingtest.Trainer{Jitter: 0.05, Step: 0.01}, embeddingtest.NewCheckpoints(), store,
		stats.Aggregator{SampleSize: 3, Divisor: 100, Z: 1.95},
		Options{
			Study:               bootstrap.Study{Anchor: "equality", Targets: []string{"social", "race"}},
			Seed:                6801,
			BootstrapIterations: 4,
			ChronoIterations:    3,
			OverlapFraction:     0.1,
			IntervalTarget:      "social",
			OutputDir:           out,
		})
	return fixture{svc: svc, store: store, out: out}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestNaive_StoresAndExports(t *testing.T) {
	f := newFixture(t, testCorpus())
	res, err := f.svc.Naive()
	if err != nil {
		t.Fatalf("Naive: %v", err)
	}
	if res.Runs.ID == "" {
		t.Fatalf("runs were not stored")
	}
	// race never occurs in 1855
	if res.Insufficient == nil || !perr.IsCode(res.Insufficient, perr.ErrorCodeInsufficientSamples) {
		t.Fatalf("Insufficient = %v", res.Insufficient)
	}
	lines := readLines(t, filepath.Join(f.out, "naive_mean_output.csv"))
	if len(lines) != 3 || lines[0] != "1855,1880,1905" {
		t.Fatalf("means csv = %q", lines)
	}
	if !strings.HasPrefix(lines[2], "NA,") {
		t.Fatalf("race row = %q, want NA for 1855", lines[2])
	}
	if len(res.Files) != 1 {
		t.Fatalf("files = %v", res.Files)
	}

	again, err := f.svc.Report(domain.VariantNaive)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	kit.AlmostEqual(t, "social 1880", again.Table.Stats[0][1].Mean, res.Table.Stats[0][1].Mean, 0)
}

func TestOverlap_UsesOwnVariant(t *testing.T) {
	f := newFixture(t, testCorpus())
	res, err := f.svc.Run(domain.VariantOverlap)
	if err != nil {
		t.Fatalf("Overlap: %v", err)
	}
	if res.Runs.Variant != domain.VariantOverlap {
		t.Fatalf("variant = %s", res.Runs.Variant)
	}
	// one boundary sentence of 1880 reaches 1855, so race can appear there
	if len(res.Runs.Series(1, 0)) != 4 {
		t.Fatalf("race/1855 runs = %d", len(res.Runs.Series(1, 0)))
	}
	if _, err := f.svc.Report(domain.VariantOverlap); err != nil {
		t.Fatalf("Report: %v", err)
	}
}

func TestAligned_CoversLaterEras(t *testing.T) {
	f := newFixture(t, testCorpus())
	res, err := f.svc.Aligned()
	if err != nil {
		t.Fatalf("Aligned: %v", err)
	}
	lines := readLines(t, filepath.Join(f.out, "aligned_mean_output.csv"))
	if lines[0] != "1880,1905" {
		t.Fatalf("aligned header = %q", lines[0])
	}
	if !res.Table.Stats[0][0].OK {
		t.Fatalf("social/1880 = %+v", res.Table.Stats[0][0])
	}
}

func TestChrono_WritesIntervalsAndResumes(t *testing.T) {
	f := newFixture(t, testCorpus())
	res, err := f.svc.Chrono("")
	if err != nil {
		t.Fatalf("Chrono: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %v", res.Files)
	}
	intervals := readLines(t, filepath.Join(f.out, "chrono_social_output.csv"))
	if len(intervals) != 3 || len(strings.Split(intervals[0], ",")) != 3 {
		t.Fatalf("interval csv = %q", intervals)
	}

	resumed, err := f.svc.Chrono("1905")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if n := len(resumed.Runs.Series(0, 0)); n != 3 {
		t.Fatalf("resumed 1855 has %d runs, want 3 adopted", n)
	}
	if resumed.Runs.ID == res.Runs.ID {
		t.Fatalf("resumed runs overwrote the original")
	}
}

func TestService_Errors(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Naive(); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("Naive without corpus: %v", err)
	}
	if _, err := f.svc.Run("glove"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown variant: %v", err)
	}
	if _, err := f.svc.Report(domain.VariantAligned); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("report without runs: %v", err)
	}
}

func TestCoverage(t *testing.T) {
	f := newFixture(t, testCorpus())
	r, err := f.svc.Coverage()
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if r.Words[0] != "equality" || r.Rows[1].DocFreq["race"] != 10 || r.Rows[0].DocFreq["race"] != 0 {
		t.Fatalf("coverage = %+v", r)
	}
}
