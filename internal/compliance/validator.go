// Package compliance implements strict-mode enforcement: the pre-check that can
// block a workflow command and the post-checks that classify what it produced.
package compliance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kingrea/lattice-warden/internal/artifact"
	"github.com/kingrea/lattice-warden/internal/audit"
	"github.com/kingrea/lattice-warden/internal/registry"
	"github.com/kingrea/lattice-warden/internal/templates"
)

// Structural similarity compares the first SampleHeadings template headings
// and requires MinHeadingMatches of them among the content headings.
const (
	SampleHeadings    = 5
	MinHeadingMatches = 3
)

// ReferencePolicy selects how the linkage check recognizes a parent reference.
type ReferencePolicy string

const (
	// ReferenceLoose accepts the store fragment or a bare parent name anywhere.
	ReferenceLoose ReferencePolicy = "loose"
	// ReferenceStrict requires the store-relative path of an existing parent
	// artifact.
	ReferenceStrict ReferencePolicy = "strict"
)

// ParseReferencePolicy validates a configured policy; empty means loose.
func ParseReferencePolicy(value string) (ReferencePolicy, error) {
	switch ReferencePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", ReferenceLoose:
		return ReferenceLoose, nil
	case ReferenceStrict:
		return ReferenceStrict, nil
	}
	return "", fmt.Errorf("compliance: unknown reference policy %q", value)
}

// Recorder persists terminal enforcement decisions.
type Recorder interface {
	Append(audit.Record) (audit.Record, error)
}

// Option customizes a Validator.
type Option func(*Validator)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithReferencePolicy sets the linkage reference policy.
func WithReferencePolicy(policy ReferencePolicy) Option {
	return func(v *Validator) {
		if policy != "" {
			v.policy = policy
		}
	}
}

// Validator runs the strict-mode checks against one project.
type Validator struct {
	registry  *registry.Registry
	templates *templates.Store
	store     *artifact.Store
	recorder  Recorder
	logger    *slog.Logger
	policy    ReferencePolicy
}

// New wires a validator. recorder may be nil, in which case nothing is logged.
func New(reg *registry.Registry, tmpl *templates.Store, store *artifact.Store, recorder Recorder, opts ...Option) *Validator {
	v := &Validator{
		registry:  reg,
		templates: tmpl,
		store:     store,
		recorder:  recorder,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:    ReferenceLoose,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// EnforcePre runs the template check. Only a governed command with a missing
// template is denied, and only a denial is recorded.
func (v *Validator) EnforcePre(id string) (Decision, error) {
	spec, ok := v.registry.Lookup(id).Spec()
	if !ok {
		return Decision{Command: id, Allowed: true, Message: "Not a workflow command"}, nil
	}
	result := v.ValidateTemplates(spec)
	decision := Decision{
		Command:    id,
		Governed:   true,
		Allowed:    result.Valid,
		Message:    result.Message,
		Violations: result.Violations,
	}
	if result.Valid {
		v.logger.Debug("pre-check passed", "command", id)
		return decision, nil
	}
	decision.Remediation = v.blockedRemediation(spec, result.Message)
	v.logger.Warn("command blocked", "command", id, "reason", result.Message)
	if err := v.record(id, audit.StatusBlocked, map[string]audit.Detail{result.Name: result.Detail()}); err != nil {
		return decision, err
	}
	return decision, nil
}

// EnforcePost classifies what a command produced. An empty content string
// skips the structural check and the reference half of the linkage check.
func (v *Validator) EnforcePost(id string, files []string, content string) (Outcome, error) {
	spec, ok := v.registry.Lookup(id).Spec()
	if !ok {
		return Outcome{Command: id, Passed: true}, nil
	}
	outcome := Outcome{Command: id, Governed: true}

	outputs, err := v.ValidateOutputs(spec, files)
	if err != nil {
		return outcome, err
	}
	outcome.Results = append(outcome.Results, outputs)

	if content != "" {
		usage, err := v.CheckStructuralSimilarity(spec, content)
		if err != nil {
			return outcome, err
		}
		outcome.Results = append(outcome.Results, usage)
	}

	linkage, err := v.ValidateLinkage(spec, content)
	if err != nil {
		return outcome, err
	}
	outcome.Results = append(outcome.Results, linkage)

	outcome.Passed = len(outcome.Failed()) == 0
	status := audit.StatusSuccess
	if !outcome.Passed {
		status = audit.StatusViolation
		outcome.Remediation = v.violationRemediation(outcome)
		v.logger.Warn("post-check violations", "command", id, "summary", outcome.Summary())
	} else {
		v.logger.Info("post-check passed", "command", id)
	}
	if err := v.record(id, status, outcome.Details()); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (v *Validator) record(id string, status audit.Status, details map[string]audit.Detail) error {
	if v.recorder == nil {
		return nil
	}
	if _, err := v.recorder.Append(audit.Record{Command: id, Status: status, Details: details}); err != nil {
		return fmt.Errorf("compliance: record %s for %s: %w", status, id, err)
	}
	return nil
}

// ValidateTemplates checks that every template exists, stopping at the first
// missing one.
func (v *Validator) ValidateTemplates(spec registry.CommandSpec) CheckResult {
	for _, ref := range spec.Templates {
		if !v.templates.Exists(ref) {
			return fail(CheckTemplates, "Template missing: "+ref, audit.Violation{
				Type:     audit.MissingTemplate,
				Command:  spec.ID,
				Severity: audit.SeverityCritical,
				Template: ref,
			})
		}
	}
	return pass(CheckTemplates, "Templates available")
}

// ValidateOutputs checks explicit files for location, then matches the output
// patterns against the store.
func (v *Validator) ValidateOutputs(spec registry.CommandSpec, files []string) (CheckResult, error) {
	for _, file := range files {
		if !v.store.Contains(file) {
			return fail(CheckOutputs, fmt.Sprintf("Output not in %s: %s", v.store.Name(), file), audit.Violation{
				Type:     audit.InvalidOutputLocation,
				Command:  spec.ID,
				Severity: audit.SeverityHigh,
				File:     file,
			}), nil
		}
	}
	matched, err := v.store.MatchAny(spec.OutputPatterns)
	if err != nil {
		return CheckResult{}, fmt.Errorf("compliance: match outputs for %s: %w", spec.ID, err)
	}
	if len(matched) == 0 && spec.Required {
		return fail(CheckOutputs, "No outputs generated", audit.Violation{
			Type:     audit.NoOutputGenerated,
			Command:  spec.ID,
			Severity: audit.SeverityHigh,
		}), nil
	}
	result := pass(CheckOutputs, fmt.Sprintf("Found %d outputs", len(matched)))
	result.Matched = matched
	return result, nil
}

// CheckStructuralSimilarity compares content headings with the first
// template's headings. Missing front matter is noted but does not fail.
func (v *Validator) CheckStructuralSimilarity(spec registry.CommandSpec, content string) (CheckResult, error) {
	result := pass(CheckUsage, "Template structure detected")
	if !artifact.HasFrontMatter([]byte(content)) {
		result.Violations = append(result.Violations, audit.Violation{
			Type:     audit.MissingFrontMatter,
			Command:  spec.ID,
			Severity: audit.SeverityMedium,
		})
	}
	if len(spec.Templates) == 0 {
		result.Message = "No template to compare"
		return result, nil
	}
	doc, err := v.templates.Load(spec.Templates[0])
	if errors.Is(err, templates.ErrNotFound) {
		result.Message = "Template unavailable; structure not compared"
		return result, nil
	}
	if err != nil {
		return CheckResult{}, fmt.Errorf("compliance: load template for %s: %w", spec.ID, err)
	}
	contentHeadings := templates.ExtractHeadings(content)
	if len(doc.Headings) == 0 || len(contentHeadings) == 0 {
		result.Message = "No headings to compare"
		return result, nil
	}
	if HeadingMatches(doc.Headings, contentHeadings) < MinHeadingMatches {
		result.Valid = false
		result.Message = "Content doesn't match template structure"
		result.Violations = append(result.Violations, audit.Violation{
			Type:     audit.TemplateNotUsed,
			Command:  spec.ID,
			Severity: audit.SeverityHigh,
			Template: spec.Templates[0],
		})
	}
	return result, nil
}

// HeadingMatches counts how many of the first SampleHeadings template headings
// appear verbatim among the content headings.
func HeadingMatches(templateHeadings, contentHeadings []string) int {
	present := make(map[string]struct{}, len(contentHeadings))
	for _, h := range contentHeadings {
		present[h] = struct{}{}
	}
	sample := templateHeadings
	if len(sample) > SampleHeadings {
		sample = sample[:SampleHeadings]
	}
	matches := 0
	for _, h := range sample {
		if _, ok := present[h]; ok {
			matches++
		}
	}
	return matches
}

// ValidateLinkage checks that every parent command has produced output and,
// when content is given, that the content points at a parent.
func (v *Validator) ValidateLinkage(spec registry.CommandSpec, content string) (CheckResult, error) {
	if len(spec.LinksTo) == 0 {
		return pass(CheckLinkage, "No linkage requirements"), nil
	}
	var missing []string
	parentArtifacts := map[string][]string{}
	for _, parentID := range spec.LinksTo {
		parent, ok := v.registry.Lookup(parentID).Spec()
		if !ok {
			continue
		}
		matched, err := v.store.MatchAny(parent.OutputPatterns)
		if err != nil {
			return CheckResult{}, fmt.Errorf("compliance: match outputs for %s: %w", parentID, err)
		}
		if len(matched) == 0 {
			missing = append(missing, parentID)
			continue
		}
		parentArtifacts[parentID] = matched
	}
	if len(missing) > 0 {
		return fail(CheckLinkage, "Parent command outputs missing: "+strings.Join(missing, ", "), audit.Violation{
			Type:           audit.MissingParentOutput,
			Command:        spec.ID,
			Severity:       audit.SeverityHigh,
			MissingParents: missing,
		}), nil
	}
	if content != "" && !v.referencesParent(spec.LinksTo, parentArtifacts, content) {
		return fail(CheckLinkage, "Content doesn't reference parent command outputs", audit.Violation{
			Type:     audit.NoParentReference,
			Command:  spec.ID,
			Severity: audit.SeverityMedium,
		}), nil
	}
	return pass(CheckLinkage, "Linkage validation passed"), nil
}

func (v *Validator) referencesParent(parents []string, artifacts map[string][]string, content string) bool {
	switch v.policy {
	case ReferenceStrict:
		for _, parent := range parents {
			for _, rel := range artifacts[parent] {
				if strings.Contains(content, rel) {
					return true
				}
			}
		}
		return false
	default:
		if strings.Contains(content, v.store.Fragment()) {
			return true
		}
		for _, parent := range parents {
			if strings.Contains(content, registry.BareName(parent)) {
				return true
			}
		}
		return false
	}
}
