package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"diachron/internal/domain"
	"diachron/internal/resultstore/storetest"
)

func TestStorage(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	storetest.Run(t, s)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	in := storetest.Sample(domain.VariantChrono, time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC))
	if _, err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	out, err := s.Latest(domain.VariantChrono)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	storetest.Equal(t, in, out)
}
