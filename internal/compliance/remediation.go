package compliance

import (
	"fmt"

	"github.com/kingrea/lattice-warden/internal/registry"
)

func (v *Validator) blockedRemediation(spec registry.CommandSpec, message string) []string {
	template := ""
	if len(spec.Templates) > 0 {
		template = v.store.Display(v.templates.Path(spec.Templates[0]))
	}
	return []string{
		"ENFORCEMENT FAILED: " + message,
		fmt.Sprintf("Command '%s' blocked due to template enforcement rules.", spec.ID),
		"",
		"Required action:",
		"1. Ensure template exists: " + template,
		"2. Use the template when executing the command",
		"3. Save output to " + v.store.Fragment(),
	}
}

func (v *Validator) violationRemediation(outcome Outcome) []string {
	lines := []string{"TEMPLATE ENFORCEMENT VIOLATIONS DETECTED:"}
	for _, r := range outcome.Failed() {
		lines = append(lines, fmt.Sprintf("  - %s: %s", r.Name, r.Message))
	}
	return append(lines,
		"",
		"Required corrections:",
		"1. Use the provided template from "+v.store.Display(v.templates.TemplateRoot())+"/",
		"2. Fill all required template variables",
		"3. Save to the correct "+v.store.Name()+" location",
	)
}
