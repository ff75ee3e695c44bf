package discover

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// writeTree creates the given files (slash separated, relative to root).
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	t.Run("walks directories recursively in lexical order", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTree(t, root, "b.txt", "a.txt", "sub/c.txt", "sub/deeper/d.txt", "notes.md", "sub/image.png")

		got, err := Discover([]string{root}, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"a.txt", "b.txt", "sub/c.txt", "sub/deeper/d.txt"}
		if targets := rel(t, root, got.Targets); !slices.Equal(targets, want) {
			t.Errorf("expected %v, got %v", want, targets)
		}
		wantIgnored := []string{"notes.md", "sub/image.png"}
		if ignored := rel(t, root, got.Ignored); !slices.Equal(ignored, wantIgnored) {
			t.Errorf("expected ignored %v, got %v", wantIgnored, ignored)
		}
	})

	t.Run("keeps argument order and removes duplicates", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTree(t, root, "a.txt", "b.txt")
		a := filepath.Join(root, "a.txt")
		b := filepath.Join(root, "b.txt")

		got, err := Discover([]string{b, a, root}, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got.Targets, []string{b, a}) {
			t.Errorf("unexpected targets %v", got.Targets)
		}
	})

	t.Run("explicit file with wrong extension is ignored", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeTree(t, root, "profile.log")

		got, err := Discover([]string{filepath.Join(root, "profile.log")}, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Targets) != 0 || len(got.Ignored) != 1 {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("empty directory yields no targets", func(t *testing.T) {
		t.Parallel()

		got, err := Discover([]string{t.TempDir()}, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Targets) != 0 {
			t.Errorf("expected no targets, got %v", got.Targets)
		}
	})

	t.Run("missing path is an error", func(t *testing.T) {
		t.Parallel()

		_, err := Discover([]string{filepath.Join(t.TempDir(), "missing")}, Options{})
		if err == nil {
			t.Error("expected error for missing path")
		}
	})
}

func TestDiscoverOptions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "run1.txt", "run2.prof", "result.txt", "scratch-1.txt")

	var logs bytes.Buffer
	got, err := Discover([]string{root}, Options{
		Extensions: []string{".txt", ".PROF"},
		Exclude:    []string{"scratch-*"},
		Skip:       []string{filepath.Join(root, "result.txt")},
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"run1.txt", "run2.prof"}
	if targets := rel(t, root, got.Targets); !slices.Equal(targets, want) {
		t.Errorf("expected %v, got %v", want, targets)
	}

	for _, reason := range []string{"output file", "excluded by scratch-*"} {
		if !strings.Contains(logs.String(), reason) {
			t.Errorf("expected log to mention %q, got %s", reason, logs.String())
		}
	}
	if strings.Count(logs.String(), "file ignored") != 2 {
		t.Errorf("expected two notices, got %s", logs.String())
	}
}

func TestValidatePatterns(t *testing.T) {
	t.Parallel()

	if err := ValidatePatterns([]string{"*.bak", "tmp-?"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePatterns([]string{"ok", "[broken"}); err == nil {
		t.Error("expected error for malformed pattern")
	}
}
