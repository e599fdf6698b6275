package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrOutsideStore is returned for paths that resolve outside the store root.
var ErrOutsideStore = errors.New("path escapes export store")

// FileStore keeps rendered exports on local disk, one directory per job.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates root when missing.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = "./exports"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve export store: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create export store: %w", err)
	}
	return &FileStore{root: abs, now: time.Now}, nil
}

// Save writes data at rel and returns rel in slash form.
func (s *FileStore) Save(rel string, data []byte) (string, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return filepath.ToSlash(filepath.Clean(rel)), nil
}

// Open returns a read-only handle on a stored export.
func (s *FileStore) Open(rel string) (*os.File, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored export and its job directory once empty. Missing
// files are not an error.
func (s *FileStore) Delete(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete export file: %w", err)
	}
	s.pruneDir(filepath.Dir(path))
	return nil
}

// Sweep removes exports last written more than ttl ago and returns their
// relative paths. Job directories left empty are removed as well.
func (s *FileStore) Sweep(ttl time.Duration) ([]string, error) {
	cutoff := s.now().Add(-ttl)
	removed := make([]string, 0)
	dirs := make([]string, 0)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		rel, _ := filepath.Rel(s.root, path)
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep exports: %w", err)
	}
	// deepest first so parents see their children gone
	for i := len(dirs) - 1; i >= 0; i-- {
		s.pruneDir(dirs[i])
	}
	return removed, nil
}

func (s *FileStore) pruneDir(dir string) {
	if dir == s.root {
		return
	}
	// fails while the directory still has entries
	_ = os.Remove(dir)
}

func (s *FileStore) resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", ErrOutsideStore
	}
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	inner, err := filepath.Rel(s.root, path)
	if err != nil || inner == "." || inner == ".." || strings.HasPrefix(inner, ".."+string(filepath.Separator)) {
		return "", ErrOutsideStore
	}
	return path, nil
}
