package registry

import (
	"strings"
	"testing"
)

func TestDefaultRegistryCoversWorkflow(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	if reg.Len() != 11 {
		t.Fatalf("expected 11 governed commands, got %d (%v)", reg.Len(), reg.IDs())
	}
	spec, ok := reg.Lookup("/review-code").Spec()
	if !ok {
		t.Fatalf("/review-code should be governed")
	}
	if !spec.Required {
		t.Fatalf("required should default to true")
	}
	if strings.Join(spec.LinksTo, ",") != "/implement,/write-tests" {
		t.Fatalf("links = %v", spec.LinksTo)
	}
	if spec.Templates[0] != "review-code/code-review-report.md" {
		t.Fatalf("template = %s", spec.Templates[0])
	}
}

func TestLookupUnknownIsNotGoverned(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	lookup := reg.Lookup("/deploy")
	if lookup.Governed() {
		t.Fatalf("/deploy must not be governed")
	}
	if _, ok := lookup.Spec(); ok {
		t.Fatalf("NotGoverned must not carry a spec")
	}
	if reg.Lookup("plan").Governed() {
		t.Fatalf("lookup does not normalize; use Normalize first")
	}
	if !reg.Lookup(Normalize("plan")).Governed() {
		t.Fatalf("normalized plan should be governed")
	}
}

func TestSpecIsACopy(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	spec, _ := reg.Lookup("/debug").Spec()
	spec.LinksTo[0] = "/mutated"
	spec.Templates = nil
	again, _ := reg.Lookup("/debug").Spec()
	if again.LinksTo[0] != "/implement" || len(again.Templates) != 1 {
		t.Fatalf("registry state leaked through Spec(): %+v", again)
	}
}

func TestLoadOverridesReplaceEntries(t *testing.T) {
	optional := false
	reg, err := Load(map[string]Definition{
		"/reflect": {Templates: []string{"reflect/retro.md"}, Outputs: []string{"retro/*.md"}, Required: &optional},
		"/retro":   {Templates: []string{"retro/retro.md"}, Outputs: []string{"retro/retro-*.md"}, LinksTo: []string{"/reflect"}},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 12 {
		t.Fatalf("expected 12 commands, got %d", reg.Len())
	}
	spec, _ := reg.Lookup("/reflect").Spec()
	if spec.Required {
		t.Fatalf("override should make /reflect optional")
	}
	if got := reg.Children("/reflect"); len(got) != 1 || got[0] != "/retro" {
		t.Fatalf("children of /reflect = %v", got)
	}
	if got := reg.Parents("/retro"); len(got) != 1 || got[0] != "/reflect" {
		t.Fatalf("parents of /retro = %v", got)
	}
	if got := reg.Parents("/unknown"); len(got) != 0 {
		t.Fatalf("unknown command should have no parents, got %v", got)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		defs map[string]Definition
		want string
	}{
		{
			name: "missing marker",
			defs: map[string]Definition{"plan": {Templates: []string{"a.md"}, Outputs: []string{"a.md"}}},
			want: "must start with",
		},
		{
			name: "no outputs",
			defs: map[string]Definition{"/plan": {Templates: []string{"a.md"}}},
			want: "at least one output pattern",
		},
		{
			name: "bad pattern",
			defs: map[string]Definition{"/plan": {Templates: []string{"a.md"}, Outputs: []string{"../escape/*.md"}}},
			want: "relative to the store root",
		},
		{
			name: "unknown parent",
			defs: map[string]Definition{"/plan": {Templates: []string{"a.md"}, Outputs: []string{"a.md"}, LinksTo: []string{"/van"}}},
			want: "unknown command /van",
		},
		{
			name: "self link",
			defs: map[string]Definition{"/plan": {Templates: []string{"a.md"}, Outputs: []string{"a.md"}, LinksTo: []string{"/plan"}}},
			want: "links to itself",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.defs)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Fatalf("err = %v, want containing %q", err, test.want)
			}
		})
	}
}

func TestNormalizeAndBareName(t *testing.T) {
	if Normalize(" plan ") != "/plan" {
		t.Fatalf("Normalize(plan) = %q", Normalize(" plan "))
	}
	if Normalize("/plan") != "/plan" {
		t.Fatalf("Normalize(/plan) changed the id")
	}
	if BareName("/write-tests") != "write-tests" {
		t.Fatalf("BareName = %q", BareName("/write-tests"))
	}
}

func TestCommandWithoutTemplates(t *testing.T) {
	reg, err := New(map[string]Definition{"/notes": {Outputs: []string{"notes/*.md"}}})
	if err != nil {
		t.Fatalf("template-less command should register: %v", err)
	}
	spec, ok := reg.Lookup("/notes").Spec()
	if !ok {
		t.Fatalf("expected /notes to be governed")
	}
	if len(spec.Templates) != 0 || !spec.Required {
		t.Fatalf("spec = %+v", spec)
	}
}
