// Package registry holds the static table of governed workflow commands: which
// templates each one must follow, where its outputs land in the store, and
// which parent commands it builds on.
package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/lattice-warden/internal/artifact"
)

// Marker prefixes every command identifier, e.g. "/plan".
const Marker = "/"

//go:embed commands.yaml
var defaultCommandsYAML []byte

// Definition is the on-disk shape of a command entry.
type Definition struct {
	Templates []string `yaml:"templates"`
	Outputs   []string `yaml:"outputs"`
	Required  *bool    `yaml:"required,omitempty"`
	LinksTo   []string `yaml:"links_to,omitempty"`
}

type definitionFile struct {
	Commands map[string]Definition `yaml:"commands"`
}

// CommandSpec is the resolved, immutable contract for one command.
type CommandSpec struct {
	ID             string
	Templates      []string
	OutputPatterns []artifact.Pattern
	Required       bool
	LinksTo        []string
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (s CommandSpec) Clone() CommandSpec {
	return CommandSpec{
		ID:             s.ID,
		Templates:      append([]string(nil), s.Templates...),
		OutputPatterns: append([]artifact.Pattern(nil), s.OutputPatterns...),
		Required:       s.Required,
		LinksTo:        append([]string(nil), s.LinksTo...),
	}
}

// Lookup is the result of resolving an identifier: either a governed command
// or NotGoverned.
type Lookup struct {
	spec     CommandSpec
	governed bool
}

// NotGoverned is returned for identifiers outside the registry.
var NotGoverned = Lookup{}

// Found wraps a governed command spec.
func Found(spec CommandSpec) Lookup {
	return Lookup{spec: spec, governed: true}
}

// Governed reports whether the identifier names a registered command.
func (l Lookup) Governed() bool {
	return l.governed
}

// Spec returns the command spec and whether the lookup found one.
func (l Lookup) Spec() (CommandSpec, bool) {
	if !l.governed {
		return CommandSpec{}, false
	}
	return l.spec.Clone(), true
}

// Registry maps command identifiers to their specs. It is built once and never
// mutated afterwards.
type Registry struct {
	specs map[string]CommandSpec
	ids   []string
}

// ParseDefinitions decodes a `commands:` YAML document.
func ParseDefinitions(data []byte) (map[string]Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("registry: definition payload is empty")
	}
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: decode definitions: %w", err)
	}
	return file.Commands, nil
}

// DefaultDefinitions returns the built-in command table.
func DefaultDefinitions() (map[string]Definition, error) {
	return ParseDefinitions(defaultCommandsYAML)
}

// Default builds the registry from the built-in table only.
func Default() (*Registry, error) {
	return Load(nil)
}

// Load builds a registry from the built-in table with overrides applied. An
// override replaces the built-in entry with the same id.
func Load(overrides map[string]Definition) (*Registry, error) {
	defs, err := DefaultDefinitions()
	if err != nil {
		return nil, err
	}
	for id, def := range overrides {
		defs[strings.TrimSpace(id)] = def
	}
	return New(defs)
}

// New validates definitions and builds an immutable registry.
func New(defs map[string]Definition) (*Registry, error) {
	reg := &Registry{specs: make(map[string]CommandSpec, len(defs))}
	for rawID, def := range defs {
		id := strings.TrimSpace(rawID)
		if id == "" || id == Marker {
			return nil, fmt.Errorf("registry: command id is required")
		}
		if !strings.HasPrefix(id, Marker) {
			return nil, fmt.Errorf("registry: command %q must start with %q", id, Marker)
		}
		if _, exists := reg.specs[id]; exists {
			return nil, fmt.Errorf("registry: %s already registered", id)
		}
		spec, err := def.toSpec(id)
		if err != nil {
			return nil, err
		}
		reg.specs[id] = spec
		reg.ids = append(reg.ids, id)
	}
	sort.Strings(reg.ids)
	for _, id := range reg.ids {
		for _, parent := range reg.specs[id].LinksTo {
			if parent == id {
				return nil, fmt.Errorf("registry: %s links to itself", id)
			}
			if _, ok := reg.specs[parent]; !ok {
				return nil, fmt.Errorf("registry: %s links to unknown command %s", id, parent)
			}
		}
	}
	return reg, nil
}

func (d Definition) toSpec(id string) (CommandSpec, error) {
	templates := trimAll(d.Templates)
	outputs := trimAll(d.Outputs)
	if len(outputs) == 0 {
		return CommandSpec{}, fmt.Errorf("registry: %s requires at least one output pattern", id)
	}
	patterns, err := artifact.CompileAll(outputs)
	if err != nil {
		return CommandSpec{}, fmt.Errorf("registry: %s: %w", id, err)
	}
	required := true
	if d.Required != nil {
		required = *d.Required
	}
	return CommandSpec{
		ID:             id,
		Templates:      templates,
		OutputPatterns: patterns,
		Required:       required,
		LinksTo:        dedupe(trimAll(d.LinksTo)),
	}, nil
}

// Lookup resolves an identifier. Unknown identifiers are not errors: they are
// simply not governed.
func (r *Registry) Lookup(id string) Lookup {
	if r == nil {
		return NotGoverned
	}
	spec, ok := r.specs[id]
	if !ok {
		return NotGoverned
	}
	return Found(spec)
}

// IDs returns the sorted list of governed identifiers.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.ids...)
}

// Len returns the number of governed commands.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// Parents returns the commands id links to, in declaration order.
func (r *Registry) Parents(id string) []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.specs[id].LinksTo...)
}

// Children returns the commands that link to parent, sorted.
func (r *Registry) Children(parent string) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, id := range r.ids {
		for _, p := range r.specs[id].LinksTo {
			if p == parent {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Normalize maps user input such as "plan" or " /plan " onto the canonical
// identifier form. It does not check registration.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, Marker) {
		return id
	}
	return Marker + id
}

// BareName strips the leading marker: "/plan" becomes "plan".
func BareName(id string) string {
	return strings.TrimPrefix(id, Marker)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
