// package credentials holds the site-credential artifact (exported browser cookies) used to
// authorize extraction requests against the video platform.
//
// The artifact is a single file at a fixed path shared by the whole process. Readers take a
// shared lock and a replacement takes the exclusive lock, so a resolution never observes a
// half-written file.
package credentials

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/songstream/internal/shared"
)

// Extension is the only accepted artifact suffix (Netscape cookie jar text format).
const Extension = ".txt"

// Info describes the artifact currently on disk.
type Info struct {
	Present   bool      `json:"present"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Size      int64     `json:"size"`
}

// Store guards the credential artifact at a fixed location.
type Store struct {
	path      string
	mu        sync.RWMutex
	version   uint64
	updatedAt time.Time
}

// New creates a [Store] for the artifact at path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the fixed artifact location.
func (s *Store) Path() string {
	return s.path
}

// Has reports whether the artifact exists. It does not inspect the contents.
func (s *Store) Has() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Save replaces the artifact with the contents of r.
//
// filename is the name the uploader declared; anything not ending in [Extension] is rejected with
// [shared.ErrInvalidInput] before touching the disk.
func (s *Store) Save(r io.Reader, filename string) error {
	if !strings.HasSuffix(filename, Extension) {
		return fmt.Errorf("%w: credential file must end in %s, got %q", shared.ErrInvalidInput, Extension, filename)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create credential directory: %w", shared.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", shared.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write credential file: %w", shared.ErrPersistence, err)
	}

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to set credential permissions: %w", shared.ErrPersistence, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close credential file: %w", shared.ErrPersistence, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: failed to replace credential file: %w", shared.ErrPersistence, err)
	}

	s.version++
	s.updatedAt = time.Now()
	return nil
}

// Info reports presence, size, and the in-process replacement generation.
//
// A file that existed before startup reports version 0 and its modification time.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{Version: s.version, UpdatedAt: s.updatedAt}

	stat, err := os.Stat(s.path)
	if err != nil || stat.IsDir() {
		return info
	}

	info.Present = true
	info.Size = stat.Size()
	if info.UpdatedAt.IsZero() {
		info.UpdatedAt = stat.ModTime()
	}
	return info
}
