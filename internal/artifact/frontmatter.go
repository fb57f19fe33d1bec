package artifact

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not open and close a `---` fence.
	ErrMissingFrontMatter = errors.New("artifact: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("artifact: malformed frontmatter")
)

var (
	openFence  = []byte("---\n")
	closeFence = []byte("\n---\n")
	finalFence = []byte("\n---")
)

// HasFrontMatter reports whether content starts with a `---` line and closes
// the block with a second `---` line later in the text. The YAML inside the
// block is not inspected.
func HasFrontMatter(content []byte) bool {
	_, _, ok := splitFrontMatter(content)
	return ok
}

// ParseFrontMatter extracts the metadata block and body from a document that
// starts with `---` YAML fences.
func ParseFrontMatter(content []byte) (map[string]any, []byte, error) {
	block, body, ok := splitFrontMatter(content)
	if !ok {
		return nil, nil, ErrMissingFrontMatter
	}
	meta := map[string]any{}
	if len(bytes.TrimSpace(block)) == 0 {
		return meta, body, nil
	}
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	return meta, body, nil
}

func splitFrontMatter(content []byte) (block, body []byte, ok bool) {
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, openFence) {
		return nil, nil, false
	}
	// rest keeps the newline that ended the opening fence so an empty block
	// ("---\n---\n") closes immediately.
	rest := normalized[len(openFence)-1:]
	if idx := bytes.Index(rest, closeFence); idx >= 0 {
		if idx > 0 {
			block = rest[1:idx]
		}
		return block, rest[idx+len(closeFence):], true
	}
	if bytes.HasSuffix(rest, finalFence) {
		end := len(rest) - len(finalFence)
		if end > 0 {
			block = rest[1:end]
		}
		return block, nil, true
	}
	return nil, nil, false
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
