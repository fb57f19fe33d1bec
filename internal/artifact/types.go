// Package artifact owns the memory-bank store: where governed command outputs
// live, how output patterns are matched against it, and how documents inside
// it carry YAML frontmatter.

package artifact

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a glob-style output pattern relative to the store root. A `*`
// matches within a single path segment; `**` spans segments.
type Pattern struct {
	raw string
}

// Compile validates a pattern and returns its matcher.
func Compile(raw string) (Pattern, error) {
	cleaned := strings.TrimSpace(filepath.ToSlash(raw))
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "" {
		return Pattern{}, fmt.Errorf("artifact: pattern is empty")
	}
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return Pattern{}, fmt.Errorf("artifact: pattern %q must be relative to the store root", raw)
	}
	if !doublestar.ValidatePattern(cleaned) {
		return Pattern{}, fmt.Errorf("artifact: invalid pattern %q", raw)
	}
	return Pattern{raw: cleaned}, nil
}

// CompileAll compiles patterns in order, failing on the first invalid one.
func CompileAll(raws []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(raws))
	for _, raw := range raws {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// String returns the normalized pattern text.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether a store-relative path satisfies the pattern.
func (p Pattern) Match(rel string) bool {
	if p.raw == "" {
		return false
	}
	ok, err := doublestar.Match(p.raw, filepath.ToSlash(rel))
	return err == nil && ok
}

// Glob returns the regular files in fsys matching the pattern, sorted.
// Missing directories yield no matches rather than an error.
func (p Pattern) Glob(fsys fs.FS) ([]string, error) {
	if p.raw == "" {
		return nil, nil
	}
	matches, err := doublestar.Glob(fsys, p.raw, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("artifact: glob %s: %w", p.raw, err)
	}
	sort.Strings(matches)
	return matches, nil
}
