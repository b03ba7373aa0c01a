package testkit

import (
	"os"
	"testing"
)

func TestMustPanic(t *testing.T) {
	MustPanic(t, func() { panic("boom") })
}

func TestMustWriteFile(t *testing.T) {
	p := MustWriteFile(t, t.TempDir(), "nested/a.txt", "hello")
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	MustContain(t, string(b), "hello")
}

func TestAlmostEqual(t *testing.T) {
	AlmostEqual(t, "x", 1.0000001, 1, 1e-6)
}
