package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFiles_OrderIndependent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")

	if err := os.WriteFile(a, []byte("x,y\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(b, []byte("x,y\n3,4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	h1, err := Files([]string{a, b})
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}

	h2, _ := Files([]string{b, a})
	if h1 != h2 {
		t.Errorf("hash depends on order: %s != %s", h1, h2)
	}

	if err := os.WriteFile(b, []byte("x,y\n3,5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	h3, _ := Files([]string{a, b})
	if h3 == h1 {
		t.Error("hash did not change with content")
	}

	if _, err := Files([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Files on a missing path returned no error")
	}
}

func TestStamp_RoundTrip(t *testing.T) {
	hash := strings.Repeat("0a", 32)

	got, err := ParseStamp("datascrubber " + Stamp(hash) + " 2024-01-01")
	if err != nil || got != hash {
		t.Errorf("ParseStamp = %q, %v, want %q", got, err, hash)
	}

	if _, err := ParseStamp("nothing here"); !errors.Is(err, ErrNoStamp) {
		t.Errorf("ParseStamp error = %v, want ErrNoStamp", err)
	}

	if _, err := ParseStamp(Prefix + "abc"); !errors.Is(err, ErrNoStamp) {
		t.Errorf("short hash error = %v, want ErrNoStamp", err)
	}
}

func TestShort(t *testing.T) {
	if got := Short(strings.Repeat("f", 64)); got != "ffffffffffff" {
		t.Errorf("Short = %q", got)
	}

	if got := Short("abc"); got != "abc" {
		t.Errorf("Short(abc) = %q", got)
	}
}
