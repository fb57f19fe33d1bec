package compliance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/lattice-warden/internal/artifact"
	"github.com/kingrea/lattice-warden/internal/audit"
	"github.com/kingrea/lattice-warden/internal/registry"
	"github.com/kingrea/lattice-warden/internal/templates"
)

type memRecorder struct {
	records []audit.Record
}

func (m *memRecorder) Append(rec audit.Record) (audit.Record, error) {
	m.records = append(m.records, rec)
	return rec, nil
}

type fixture struct {
	project   string
	store     *artifact.Store
	templates *templates.Store
	recorder  *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	project := t.TempDir()
	return &fixture{
		project: project,
		store:   artifact.NewStore(project, "memory-bank"),
		templates: templates.NewStore(
			filepath.Join(project, ".ai", "template", "outputs"),
			filepath.Join(project, ".ai", "template", "guides"),
		),
		recorder: &memRecorder{},
	}
}

func (f *fixture) validator(t *testing.T, reg *registry.Registry, opts ...Option) *Validator {
	t.Helper()
	return New(reg, f.templates, f.store, f.recorder, opts...)
}

func (f *fixture) writeTemplate(t *testing.T, ref, content string) {
	t.Helper()
	writeFile(t, f.templates.Path(ref), content)
}

func (f *fixture) writeArtifact(t *testing.T, rel, content string) {
	t.Helper()
	writeFile(t, filepath.Join(f.store.Root(), rel), content)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustRegistry(t *testing.T, defs map[string]registry.Definition) *registry.Registry {
	t.Helper()
	reg, err := registry.New(defs)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestEnforcePreBlocksEveryCommandWithMissingTemplate(t *testing.T) {
	f := newFixture(t)
	reg, err := registry.Default()
	if err != nil {
		t.Fatal(err)
	}
	v := f.validator(t, reg)
	for _, id := range reg.IDs() {
		decision, err := v.EnforcePre(id)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if decision.Allowed {
			t.Fatalf("%s should be blocked without templates", id)
		}
		if len(decision.Violations) != 1 || decision.Violations[0].Type != audit.MissingTemplate {
			t.Fatalf("%s violations = %+v", id, decision.Violations)
		}
		if len(decision.Remediation) == 0 || !strings.Contains(decision.Remediation[0], "ENFORCEMENT FAILED") {
			t.Fatalf("%s remediation = %v", id, decision.Remediation)
		}
	}
	if len(f.recorder.records) != reg.Len() {
		t.Fatalf("recorded %d, want %d", len(f.recorder.records), reg.Len())
	}
	for _, rec := range f.recorder.records {
		if rec.Status != audit.StatusBlocked {
			t.Fatalf("status = %s", rec.Status)
		}
		detail := rec.Details[CheckTemplates]
		if detail.Valid || len(detail.Violations) != 1 || detail.Violations[0].Type != audit.MissingTemplate {
			t.Fatalf("detail = %+v", detail)
		}
	}
}

func TestEnforcePreShortCircuitsOnFirstMissingTemplate(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/plan": {Templates: []string{"plan/a.md", "plan/b.md", "plan/c.md"}, Outputs: []string{"tasks.md"}},
	})
	f.writeTemplate(t, "plan/a.md", "# A")
	decision, err := f.validator(t, reg).EnforcePre("/plan")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed || decision.Violations[0].Template != "plan/b.md" || len(decision.Violations) != 1 {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestEnforcePreAllowedWritesNothing(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/plan": {Templates: []string{"plan/tasks.md"}, Outputs: []string{"tasks.md"}},
	})
	f.writeTemplate(t, "plan/tasks.md", "# Tasks")
	decision, err := f.validator(t, reg).EnforcePre("/plan")
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed || !decision.Governed {
		t.Fatalf("decision = %+v", decision)
	}
	if len(f.recorder.records) != 0 {
		t.Fatalf("allowed pre-check must not be recorded")
	}
}

func TestUngovernedCommandsAreNoOps(t *testing.T) {
	f := newFixture(t)
	reg, err := registry.Default()
	if err != nil {
		t.Fatal(err)
	}
	v := f.validator(t, reg)
	for _, id := range []string{"/deploy", "plan", "", "/"} {
		decision, err := v.EnforcePre(id)
		if err != nil || !decision.Allowed || decision.Governed {
			t.Fatalf("pre %q = %+v, %v", id, decision, err)
		}
		outcome, err := v.EnforcePost(id, []string{"/etc/passwd"}, "anything")
		if err != nil || !outcome.Passed || outcome.Governed {
			t.Fatalf("post %q = %+v, %v", id, outcome, err)
		}
	}
	if len(f.recorder.records) != 0 {
		t.Fatalf("ungoverned commands must not be recorded, got %d", len(f.recorder.records))
	}
}

func TestValidateOutputsEndToEnd(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/x": {Templates: []string{"x.md"}, Outputs: []string{"out/*.md"}},
	})
	v := f.validator(t, reg)
	spec, _ := reg.Lookup("/x").Spec()

	result, err := v.ValidateOutputs(spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid || result.Violations[0].Type != audit.NoOutputGenerated {
		t.Fatalf("empty store result = %+v", result)
	}

	f.writeArtifact(t, "out/report.md", "# Report")
	result, err = v.ValidateOutputs(spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid || len(result.Matched) != 1 || result.Matched[0] != "out/report.md" {
		t.Fatalf("after write result = %+v", result)
	}
}

func TestValidateOutputsOptionalCommand(t *testing.T) {
	f := newFixture(t)
	optional := false
	reg := mustRegistry(t, map[string]registry.Definition{
		"/x": {Templates: []string{"x.md"}, Outputs: []string{"out/*.md"}, Required: &optional},
	})
	spec, _ := reg.Lookup("/x").Spec()
	result, err := f.validator(t, reg).ValidateOutputs(spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid || result.Message != "Found 0 outputs" {
		t.Fatalf("result = %+v", result)
	}
}

func TestValidateOutputsRejectsFilesOutsideStore(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/x": {Templates: []string{"x.md"}, Outputs: []string{"out/*.md"}},
	})
	spec, _ := reg.Lookup("/x").Spec()
	f.writeArtifact(t, "out/report.md", "# Report")
	files := []string{
		filepath.Join(f.store.Root(), "out", "report.md"),
		filepath.Join(f.project, "memory-bank-old", "report.md"),
		filepath.Join(f.project, "elsewhere.md"),
	}
	result, err := f.validator(t, reg).ValidateOutputs(spec, files)
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatalf("expected failure for sibling directory with shared prefix")
	}
	if len(result.Violations) != 1 || result.Violations[0].File != files[1] {
		t.Fatalf("first offender should be reported, got %+v", result.Violations)
	}
}

func TestStructuralSimilaritySamplesFirstFiveHeadings(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/x": {Templates: []string{"x.md"}, Outputs: []string{"out/*.md"}},
	})
	f.writeTemplate(t, "x.md", "---\nkind: x\n---\n# A\n## B\n## C\n## D\n## E\n## F\n")
	spec, _ := reg.Lookup("/x").Spec()
	v := f.validator(t, reg)

	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{name: "first three", content: "---\nx: 1\n---\n# A\n## B\n## C\n", valid: true},
		{name: "reordered first three", content: "---\nx: 1\n---\n## C\n# A\n## B\n", valid: true},
		{name: "last three only", content: "---\nx: 1\n---\n## D\n## E\n## F\n", valid: false},
		{name: "two of five", content: "---\nx: 1\n---\n# A\n## B\n## F\n", valid: false},
		{name: "no content headings", content: "---\nx: 1\n---\nplain text\n", valid: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := v.CheckStructuralSimilarity(spec, test.content)
			if err != nil {
				t.Fatal(err)
			}
			if result.Valid != test.valid {
				t.Fatalf("valid = %v, want %v (%s)", result.Valid, test.valid, result.Message)
			}
			if !test.valid && result.Violations[len(result.Violations)-1].Type != audit.TemplateNotUsed {
				t.Fatalf("violations = %+v", result.Violations)
			}
		})
	}
}

func TestStructuralSimilarityNotesMissingFrontMatter(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/x": {Templates: []string{"x.md"}, Outputs: []string{"out/*.md"}},
	})
	f.writeTemplate(t, "x.md", "# A\n## B\n## C\n")
	spec, _ := reg.Lookup("/x").Spec()
	result, err := f.validator(t, reg).CheckStructuralSimilarity(spec, "# A\n## B\n## C\n")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid {
		t.Fatalf("missing front matter alone must not fail: %+v", result)
	}
	if len(result.Violations) != 1 || result.Violations[0].Type != audit.MissingFrontMatter || result.Violations[0].Severity != audit.SeverityMedium {
		t.Fatalf("violations = %+v", result.Violations)
	}
}

func TestStructuralSimilarityMissingTemplatePassesVacuously(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/x": {Templates: []string{"x.md"}, Outputs: []string{"out/*.md"}},
	})
	spec, _ := reg.Lookup("/x").Spec()
	result, err := f.validator(t, reg).CheckStructuralSimilarity(spec, "---\na: b\n---\n# Z\n")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid {
		t.Fatalf("absent template should not fail similarity: %+v", result)
	}
}

func TestCommandWithoutTemplatesIsCheckedOnOutputsOnly(t *testing.T) {
	f := newFixture(t)
	reg := mustRegistry(t, map[string]registry.Definition{
		"/notes": {Outputs: []string{"notes/*.md"}},
	})
	v := f.validator(t, reg)

	decision, err := v.EnforcePre("/notes")
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed {
		t.Fatalf("nothing to block without templates: %+v", decision)
	}

	spec, _ := reg.Lookup("/notes").Spec()
	result, err := v.CheckStructuralSimilarity(spec, "---\na: b\n---\n# Anything\n")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid || result.Message != "No template to compare" {
		t.Fatalf("similarity = %+v", result)
	}

	f.writeArtifact(t, "notes/today.md", "# Today\n")
	outcome, err := v.EnforcePost("/notes", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Passed {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func linkageRegistry(t *testing.T) *registry.Registry {
	return mustRegistry(t, map[string]registry.Definition{
		"/plan":  {Templates: []string{"plan.md"}, Outputs: []string{"tasks.md"}},
		"/van":   {Templates: []string{"van.md"}, Outputs: []string{"projectbrief.md"}},
		"/debug": {Templates: []string{"debug.md"}, Outputs: []string{"debug/*.md"}, LinksTo: []string{"/plan", "/van"}},
	})
}

func TestValidateLinkageReportsMissingParentsRegardlessOfContent(t *testing.T) {
	f := newFixture(t)
	reg := linkageRegistry(t)
	spec, _ := reg.Lookup("/debug").Spec()
	v := f.validator(t, reg)
	for _, content := range []string{"", "see memory-bank/tasks.md for the plan", "nothing"} {
		result, err := v.ValidateLinkage(spec, content)
		if err != nil {
			t.Fatal(err)
		}
		if result.Valid {
			t.Fatalf("content %q: expected failure", content)
		}
		got := result.Violations[0]
		if got.Type != audit.MissingParentOutput || strings.Join(got.MissingParents, ",") != "/plan,/van" {
			t.Fatalf("violation = %+v", got)
		}
	}
}

func TestValidateLinkageReferencePolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  ReferencePolicy
		content string
		valid   bool
	}{
		{name: "loose store fragment", policy: ReferenceLoose, content: "context in memory-bank/ somewhere", valid: true},
		{name: "loose bare name", policy: ReferenceLoose, content: "follows the plan", valid: true},
		{name: "loose nothing", policy: ReferenceLoose, content: "no pointers here", valid: false},
		{name: "strict bare name", policy: ReferenceStrict, content: "follows the plan", valid: false},
		{name: "strict artifact path", policy: ReferenceStrict, content: "see memory-bank/tasks.md", valid: true},
		{name: "no content", policy: ReferenceStrict, content: "", valid: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			f.writeArtifact(t, "tasks.md", "# Tasks")
			f.writeArtifact(t, "projectbrief.md", "# Brief")
			reg := linkageRegistry(t)
			spec, _ := reg.Lookup("/debug").Spec()
			result, err := f.validator(t, reg, WithReferencePolicy(test.policy)).ValidateLinkage(spec, test.content)
			if err != nil {
				t.Fatal(err)
			}
			if result.Valid != test.valid {
				t.Fatalf("valid = %v, want %v (%s)", result.Valid, test.valid, result.Message)
			}
			if !test.valid && result.Violations[0].Type != audit.NoParentReference {
				t.Fatalf("violation = %+v", result.Violations[0])
			}
		})
	}
}

func TestEnforcePostRecordsOneRecordWithAllChecks(t *testing.T) {
	f := newFixture(t)
	reg := linkageRegistry(t)
	f.writeTemplate(t, "debug.md", "# Debug\n## Symptoms\n## Cause\n## Fix\n")
	f.writeArtifact(t, "tasks.md", "# Tasks")
	v := f.validator(t, reg)

	outcome, err := v.EnforcePost("/debug", nil, "# Debug\n## Symptoms\n")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Passed {
		t.Fatalf("expected violations: %s", outcome.Summary())
	}
	if len(outcome.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(outcome.Results))
	}
	if len(f.recorder.records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.recorder.records))
	}
	rec := f.recorder.records[0]
	if rec.Status != audit.StatusViolation {
		t.Fatalf("status = %s", rec.Status)
	}
	for _, name := range []string{CheckOutputs, CheckUsage, CheckLinkage} {
		if _, ok := rec.Details[name]; !ok {
			t.Fatalf("missing detail %q in %v", name, rec.CheckNames())
		}
	}
	if rec.Details[CheckLinkage].Violations[0].MissingParents[0] != "/van" {
		t.Fatalf("linkage detail = %+v", rec.Details[CheckLinkage])
	}
	joined := strings.Join(outcome.Remediation, "\n")
	if !strings.Contains(joined, "Output validation: No outputs generated") {
		t.Fatalf("remediation = %s", joined)
	}
}

func TestEnforcePostSuccess(t *testing.T) {
	f := newFixture(t)
	reg := linkageRegistry(t)
	f.writeArtifact(t, "tasks.md", "# Tasks")
	f.writeArtifact(t, "projectbrief.md", "# Brief")
	f.writeArtifact(t, "debug/crash.md", "# Crash")

	outcome, err := f.validator(t, reg).EnforcePost("/debug", []string{"memory-bank/debug/crash.md"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Passed || len(outcome.Results) != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if f.recorder.records[0].Status != audit.StatusSuccess {
		t.Fatalf("status = %s", f.recorder.records[0].Status)
	}
}

func TestParseReferencePolicy(t *testing.T) {
	if p, err := ParseReferencePolicy(""); err != nil || p != ReferenceLoose {
		t.Fatalf("empty = %v, %v", p, err)
	}
	if p, err := ParseReferencePolicy(" Strict "); err != nil || p != ReferenceStrict {
		t.Fatalf("strict = %v, %v", p, err)
	}
	if _, err := ParseReferencePolicy("fuzzy"); err == nil {
		t.Fatalf("expected error")
	}
}
