// Package guidance implements flexible mode: advisory guidance before a
// command runs, non-blocking feedback afterwards, and prompt rendering for an
// upstream content generator.
package guidance

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/lattice-warden/internal/registry"
)

//go:embed guidance.yaml
var defaultGuidanceYAML []byte

// Principle is one named guiding principle.
type Principle struct {
	Name string
	Text string
}

// Principles keeps the declaration order of a YAML mapping.
type Principles []Principle

// UnmarshalYAML decodes a mapping while preserving key order.
func (p *Principles) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("guidance: principles must be a mapping, got line %d", node.Line)
	}
	out := make(Principles, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name, text string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&text); err != nil {
			return err
		}
		out = append(out, Principle{Name: name, Text: text})
	}
	*p = out
	return nil
}

// MarshalYAML writes the principles back as an ordered mapping.
func (p Principles) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, principle := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: principle.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: principle.Text},
		)
	}
	return node, nil
}

// MarshalJSON renders an object with keys in declaration order.
func (p Principles) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, principle := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(principle.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(principle.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Constraints are the only hard expectations flexible mode states.
type Constraints struct {
	MustHave []string `yaml:"must_have" json:"must_have"`
	Format   string   `yaml:"format" json:"format"`
	Output   string   `yaml:"output" json:"output"`
}

// MarkerRule inspects produced content for a vocabulary marker. A present
// marker earns Commend, an absent one earns Suggest; either may be empty.
type MarkerRule struct {
	Any           []string `yaml:"any" json:"any"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	Commend       string   `yaml:"commend,omitempty" json:"commend,omitempty"`
	Suggest       string   `yaml:"suggest,omitempty" json:"suggest,omitempty"`
}

// Spec describes the conceptual shape a command's output should take.
type Spec struct {
	Purpose            string       `yaml:"purpose" json:"purpose"`
	EssentialStructure []string     `yaml:"essential_structure" json:"essential_structure"`
	Principles         Principles   `yaml:"principles" json:"guidance_principles"`
	FreedomAreas       []string     `yaml:"freedom_areas" json:"freedom_areas"`
	MinimalConstraints Constraints  `yaml:"minimal_constraints" json:"minimal_constraints"`
	Markers            []MarkerRule `yaml:"markers,omitempty" json:"-"`
}

type tableFile struct {
	Default  Spec            `yaml:"default"`
	Commands map[string]Spec `yaml:"commands"`
}

// DefaultKey addresses the fallback spec in overrides.
const DefaultKey = "default"

// Table maps command ids to guidance specs with a fallback for everything
// else. It is read-only after construction.
type Table struct {
	specs    map[string]Spec
	fallback Spec
}

// ParseTable decodes a guidance document.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("guidance: decode table: %w", err)
	}
	table := &Table{specs: map[string]Spec{}, fallback: file.Default}
	for id, spec := range file.Commands {
		table.specs[registry.Normalize(id)] = spec
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// DefaultTable returns the built-in guidance.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultGuidanceYAML)
}

// LoadTable applies overrides on top of the built-in table. The key "default"
// replaces the fallback spec.
func LoadTable(overrides map[string]Spec) (*Table, error) {
	table, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	for id, spec := range overrides {
		id = strings.TrimSpace(id)
		if id == DefaultKey {
			table.fallback = spec
			continue
		}
		table.specs[registry.Normalize(id)] = spec
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *Table) validate() error {
	if strings.TrimSpace(t.fallback.Purpose) == "" {
		return fmt.Errorf("guidance: default spec requires a purpose")
	}
	for id, spec := range t.specs {
		if strings.TrimSpace(spec.Purpose) == "" {
			return fmt.Errorf("guidance: %s requires a purpose", id)
		}
		for i, rule := range spec.Markers {
			if len(rule.Any) == 0 {
				return fmt.Errorf("guidance: %s markers[%d] has no terms", id, i)
			}
		}
	}
	return nil
}

// Lookup returns the spec registered for id.
func (t *Table) Lookup(id string) (Spec, bool) {
	spec, ok := t.specs[id]
	return spec, ok
}

// For returns the spec for id, or the default spec when none is registered.
func (t *Table) For(id string) Spec {
	if spec, ok := t.specs[id]; ok {
		return spec
	}
	return t.fallback
}

// Default returns the fallback spec.
func (t *Table) Default() Spec {
	return t.fallback
}
