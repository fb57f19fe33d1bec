// Package templates resolves template and guide documents from the configured
// template roots and extracts their heading structure.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/lattice-warden/internal/registry"
)

// ErrNotFound indicates the requested template or guide does not exist.
var ErrNotFound = errors.New("templates: not found")

// GuideSuffix names guide files after their command: "/creative" reads
// "creative-guide.md".
const GuideSuffix = "-guide.md"

// Store reads templates from templateRoot and guides from guideRoot.
type Store struct {
	templateRoot string
	guideRoot    string
}

// NewStore builds a template store.
func NewStore(templateRoot, guideRoot string) *Store {
	return &Store{
		templateRoot: filepath.Clean(templateRoot),
		guideRoot:    filepath.Clean(guideRoot),
	}
}

// TemplateRoot returns the directory templates are resolved against.
func (s *Store) TemplateRoot() string {
	return s.templateRoot
}

// GuideRoot returns the directory guides are resolved against.
func (s *Store) GuideRoot() string {
	return s.guideRoot
}

// Path resolves a template reference such as "plan/tasks.md".
func (s *Store) Path(ref string) string {
	return filepath.Join(s.templateRoot, filepath.FromSlash(ref))
}

// Exists reports whether a template file is present. Any stat failure counts
// as missing.
func (s *Store) Exists(ref string) bool {
	return isFile(s.Path(ref))
}

// Load reads and parses a template. A missing file yields ErrNotFound; other
// read failures are returned as-is.
func (s *Store) Load(ref string) (Document, error) {
	return load(s.Path(ref))
}

// GuidePath returns where the guide for a command would live.
func (s *Store) GuidePath(commandID string) string {
	return filepath.Join(s.guideRoot, registry.BareName(commandID)+GuideSuffix)
}

// Guide loads the guide for a command. The boolean is false when no guide file
// exists; read failures on an existing file are errors.
func (s *Store) Guide(commandID string) (Document, bool, error) {
	path := s.GuidePath(commandID)
	if !isFile(path) {
		return Document{}, false, nil
	}
	doc, err := load(path)
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

func load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Document{}, fmt.Errorf("templates: read %s: %w", path, err)
	}
	return Parse(path, data), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
