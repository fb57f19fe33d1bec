package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store manages artifact lookups rooted at the memory-bank directory.
type Store struct {
	projectDir string
	root       string
	fsys       fs.FS
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithFS overrides the filesystem used for pattern matching. Tests use it to
// supply an in-memory tree; paths still resolve against the store root.
func WithFS(fsys fs.FS) StoreOption {
	return func(s *Store) {
		s.fsys = fsys
	}
}

// NewStore builds a store for root, resolved against projectDir when relative.
func NewStore(projectDir, root string, opts ...StoreOption) *Store {
	projectDir = filepath.Clean(projectDir)
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectDir, root)
	}
	store := &Store{
		projectDir: projectDir,
		root:       filepath.Clean(root),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.fsys == nil {
		store.fsys = os.DirFS(store.root)
	}
	return store
}

// Root returns the absolute store root.
func (s *Store) Root() string {
	return s.root
}

// Display renders path relative to the project dir when it lies inside it.
func (s *Store) Display(path string) string {
	abs := s.Resolve(path)
	rel, err := filepath.Rel(s.projectDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Name returns the final element of the store root, e.g. "memory-bank".
func (s *Store) Name() string {
	return filepath.Base(s.root)
}

// Fragment returns the path fragment documents use to point into the store,
// e.g. "memory-bank/".
func (s *Store) Fragment() string {
	return s.Name() + "/"
}

// Resolve returns an absolute path; relative paths are taken from the project dir.
func (s *Store) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.projectDir, path)
}

// Rel returns the store-relative form of path and whether it lies under the root.
func (s *Store) Rel(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, s.Resolve(path))
	if err != nil {
		return "", false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Contains reports whether path lies strictly under the store root.
func (s *Store) Contains(path string) bool {
	_, ok := s.Rel(path)
	return ok
}

// Glob returns store-relative files matching a single pattern.
func (s *Store) Glob(p Pattern) ([]string, error) {
	return p.Glob(s.fsys)
}

// MatchAny returns the de-duplicated store-relative files matching any of the
// patterns, in pattern order.
func (s *Store) MatchAny(patterns []Pattern) ([]string, error) {
	seen := map[string]struct{}{}
	var found []string
	for _, p := range patterns {
		matches, err := s.Glob(p)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			found = append(found, m)
		}
	}
	return found, nil
}

// Read returns the content of a file the caller claims exists. Unlike Exists,
// read failures are reported.
func (s *Store) Read(path string) ([]byte, error) {
	abs := s.Resolve(path)
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact: %s does not exist: %w", abs, err)
		}
		return nil, fmt.Errorf("artifact: read %s: %w", abs, err)
	}
	return data, nil
}
