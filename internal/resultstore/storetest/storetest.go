// Package storetest checks domain.RunStore implementations against the
// same behavior.
package storetest

import (
	"testing"
	"time"

	"diachron/internal/domain"
	perr "diachron/internal/platform/errors"
)

// Sample returns a small run matrix with a missing score.
func Sample(variant domain.Variant, created time.Time) *domain.Runs {
	r := domain.NewRuns(variant, []string{"1855", "1880"}, []string{"social", "race"})
	r.Record(0, []domain.Score{domain.Similarity(0.25), domain.Missing()})
	r.Record(0, []domain.Score{domain.Similarity(-0.125), domain.Similarity(0.5)})
	r.Record(1, []domain.Score{domain.Similarity(0.1234567890123)})
	r.CreatedAt = created
	return r
}

// Run exercises store, which must start empty.
func Run(t *testing.T, store domain.RunStore) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		in := Sample(domain.VariantNaive, base)
		id, err := store.Save(in)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if id == "" || in.ID != id {
			t.Fatalf("Save returned id %q, runs carry %q", id, in.ID)
		}
		out, err := store.Load(id)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		Equal(t, in, out)
	})

	t.Run("latest per variant", func(t *testing.T) {
		older := Sample(domain.VariantOverlap, base.Add(time.Hour))
		newer := Sample(domain.VariantOverlap, base.Add(2*time.Hour))
		newer.Record(1, []domain.Score{domain.Similarity(0.9), domain.Similarity(0.8)})
		for _, r := range []*domain.Runs{older, newer} {
			if _, err := store.Save(r); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		got, err := store.Latest(domain.VariantOverlap)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if got.ID != newer.ID {
			t.Fatalf("Latest = %s, want %s", got.ID, newer.ID)
		}
		if _, err := store.Latest(domain.VariantChrono); !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("Latest(chrono) err = %v, want NotFound", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if _, err := store.Load("no-such-run"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("Load err = %v, want NotFound", err)
		}
	})

	t.Run("rejects malformed runs", func(t *testing.T) {
		bad := Sample(domain.VariantNaive, base)
		bad.Scores[1] = bad.Scores[1][:1]
		if _, err := store.Save(bad); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("Save err = %v, want InvalidArgument", err)
		}
		if _, err := store.Save(&domain.Runs{Variant: "glove"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("Save err = %v, want InvalidArgument", err)
		}
	})

	t.Run("save replaces same id", func(t *testing.T) {
		r := Sample(domain.VariantAligned, base)
		if _, err := store.Save(r); err != nil {
			t.Fatal(err)
		}
		r.Record(1, []domain.Score{domain.Similarity(0.7), domain.Similarity(0.6)})
		if _, err := store.Save(r); err != nil {
			t.Fatal(err)
		}
		out, err := store.Load(r.ID)
		if err != nil {
			t.Fatal(err)
		}
		Equal(t, r, out)
	})
}

// Equal fails t unless two run matrices hold the same data.
func Equal(t *testing.T, want, got *domain.Runs) {
	t.Helper()
	if got.ID != want.ID || got.Variant != want.Variant || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("header = (%s %s %v), want (%s %s %v)", got.ID, got.Variant, got.CreatedAt, want.ID, want.Variant, want.CreatedAt)
	}
	if len(got.Eras) != len(want.Eras) || len(got.Targets) != len(want.Targets) {
		t.Fatalf("shape = %v x %v, want %v x %v", got.Targets, got.Eras, want.Targets, want.Eras)
	}
	for ti := range want.Targets {
		if got.Targets[ti] != want.Targets[ti] {
			t.Fatalf("target %d = %q, want %q", ti, got.Targets[ti], want.Targets[ti])
		}
		for ei := range want.Eras {
			if got.Eras[ei] != want.Eras[ei] {
				t.Fatalf("era %d = %q, want %q", ei, got.Eras[ei], want.Eras[ei])
			}
			ws, gs := want.Series(ti, ei), got.Series(ti, ei)
			if len(ws) != len(gs) {
				t.Fatalf("%s/%s has %d runs, want %d", want.Targets[ti], want.Eras[ei], len(gs), len(ws))
			}
			for i := range ws {
				if ws[i] != gs[i] {
					t.Fatalf("%s/%s run %d = %v, want %v", want.Targets[ti], want.Eras[ei], i, gs[i], ws[i])
				}
			}
		}
	}
}
