package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/songstream/internal/shared"
	tu "github.com/desertthunder/songstream/internal/testing"
)

const cookieJar = "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tf6=40000000\n"

func TestStore(t *testing.T) {
	t.Run("Has Without Artifact", func(t *testing.T) {
		store := New(filepath.Join(t.TempDir(), "cookies", "youtube.txt"))

		if store.Has() {
			t.Error("expected no artifact in a fresh directory")
		}

		info := store.Info()
		if info.Present || info.Version != 0 {
			t.Errorf("expected empty info, got %+v", info)
		}
	})

	t.Run("Save Rejects Wrong Extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies", "youtube.txt")
		store := New(path)

		for _, name := range []string{"cookies.json", "cookies", "cookies.TXT", "cookies.txt.bak"} {
			t.Run(name, func(t *testing.T) {
				err := store.Save(strings.NewReader(cookieJar), name)
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
			})
		}

		if store.Has() {
			t.Error("rejected upload must not create the artifact")
		}
		if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
			t.Error("rejected upload must not create the directory")
		}
	})

	t.Run("Save Stores Artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies", "youtube.txt")
		store := New(path)

		if err := store.Save(strings.NewReader(cookieJar), "cookies.txt"); err != nil {
			t.Fatalf("failed to save artifact: %v", err)
		}

		tu.AssertDirExists(t, filepath.Dir(path))
		tu.AssertFileExists(t, path)

		if !store.Has() {
			t.Error("expected artifact after save")
		}
		if got := tu.MustReadFile(t, path); got != cookieJar {
			t.Errorf("unexpected artifact contents: %q", got)
		}

		stat, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat artifact: %v", err)
		}
		if perm := stat.Mode().Perm(); perm != 0600 {
			t.Errorf("expected mode 0600, got %o", perm)
		}

		info := store.Info()
		if !info.Present || info.Version != 1 || info.Size != int64(len(cookieJar)) {
			t.Errorf("unexpected info after save: %+v", info)
		}
	})

	t.Run("Save Replaces Artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "youtube.txt")
		store := New(path)

		if err := store.Save(strings.NewReader("first"), "a.txt"); err != nil {
			t.Fatalf("first save failed: %v", err)
		}
		if err := store.Save(strings.NewReader("second"), "b.txt"); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		if got := tu.MustReadFile(t, path); got != "second" {
			t.Errorf("expected replaced contents, got %q", got)
		}
		if v := store.Info().Version; v != 2 {
			t.Errorf("expected version 2, got %d", v)
		}

		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatalf("failed to read dir: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
		}
	})

	t.Run("Save Read Failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "youtube.txt")
		store := New(path)

		err := store.Save(&tu.FCloser{}, "cookies.txt")
		if !errors.Is(err, shared.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
		if store.Has() {
			t.Error("failed upload must not leave an artifact")
		}
	})

	t.Run("Existing Artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "youtube.txt")
		if err := os.WriteFile(path, []byte(cookieJar), 0600); err != nil {
			t.Fatalf("failed to seed artifact: %v", err)
		}

		store := New(path)
		if !store.Has() {
			t.Error("expected pre-existing artifact to be detected")
		}

		info := store.Info()
		if !info.Present || info.Version != 0 || info.UpdatedAt.IsZero() {
			t.Errorf("unexpected info for pre-existing artifact: %+v", info)
		}
	})

	t.Run("Directory At Path", func(t *testing.T) {
		path := t.TempDir()
		if New(path).Has() {
			t.Error("a directory is not an artifact")
		}
	})

	t.Run("Concurrent Save And Has", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "youtube.txt")
		store := New(path)

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := store.Save(strings.NewReader(cookieJar), "cookies.txt"); err != nil {
					t.Errorf("save %d failed: %v", i, err)
				}
			}()
			go func() {
				defer wg.Done()
				store.Has()
			}()
		}
		wg.Wait()

		if v := store.Info().Version; v != 8 {
			t.Errorf("expected version 8, got %d", v)
		}
		if got := tu.MustReadFile(t, path); got != cookieJar {
			t.Errorf("artifact corrupted by concurrent writes: %q", got)
		}
	})
}
