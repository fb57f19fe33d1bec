package templates

import (
	"strings"

	"github.com/kingrea/lattice-warden/internal/artifact"
)

const (
	headingMarker = "#"
	sectionMarker = "## "
)

// Document is a parsed template or guide.
type Document struct {
	Path string
	Text string
	// Headings holds every heading line in document order, trimmed.
	Headings []string
	// Sections maps second-level heading titles to their raw bodies.
	Sections     map[string]string
	SectionOrder []string
	// Meta is the decoded frontmatter, nil when absent or malformed.
	Meta map[string]any
}

// Parse builds a Document from raw text without touching the filesystem.
func Parse(path string, content []byte) Document {
	text := normalize(string(content))
	sections, order := SplitSections(text)
	doc := Document{
		Path:         path,
		Text:         text,
		Headings:     ExtractHeadings(text),
		Sections:     sections,
		SectionOrder: order,
	}
	if meta, _, err := artifact.ParseFrontMatter(content); err == nil {
		doc.Meta = meta
	}
	return doc
}

// ExtractHeadings returns the lines that open with a heading marker, trimmed,
// in order. Duplicates are kept.
func ExtractHeadings(text string) []string {
	var headings []string
	for _, line := range strings.Split(normalize(text), "\n") {
		if strings.HasPrefix(line, headingMarker) {
			headings = append(headings, strings.TrimSpace(line))
		}
	}
	return headings
}

// SplitSections splits text on second-level headings. Text before the first
// section is dropped; a repeated title keeps its first position and its last
// body.
func SplitSections(text string) (map[string]string, []string) {
	sections := map[string]string{}
	var order []string
	var (
		current string
		open    bool
		body    []string
	)
	flush := func() {
		if !open {
			return
		}
		if _, seen := sections[current]; !seen {
			order = append(order, current)
		}
		sections[current] = strings.Join(body, "\n")
	}
	for _, line := range strings.Split(normalize(text), "\n") {
		if strings.HasPrefix(line, sectionMarker) {
			flush()
			current = strings.TrimSpace(line[len(sectionMarker):])
			open = true
			body = body[:0]
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	flush()
	return sections, order
}

func normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
