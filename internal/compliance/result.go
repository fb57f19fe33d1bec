package compliance

import (
	"fmt"
	"strings"

	"github.com/kingrea/lattice-warden/internal/audit"
)

// Check names used as detail keys in audit records.
const (
	CheckTemplates = "Template validation"
	CheckOutputs   = "Output validation"
	CheckUsage     = "Template usage"
	CheckLinkage   = "Linkage validation"
)

// CheckResult is the value every check returns. Violations may be present on a
// passing result when they are only noted (MISSING_FRONTMATTER).
type CheckResult struct {
	Name       string
	Valid      bool
	Message    string
	Violations []audit.Violation
	// Matched lists store-relative artifacts found by the output check.
	Matched []string
}

// Detail converts the result into its audit form.
func (r CheckResult) Detail() audit.Detail {
	return audit.Detail{
		Valid:      r.Valid,
		Message:    r.Message,
		Violations: append([]audit.Violation(nil), r.Violations...),
	}
}

func pass(name, message string) CheckResult {
	return CheckResult{Name: name, Valid: true, Message: message}
}

func fail(name, message string, v audit.Violation) CheckResult {
	return CheckResult{Name: name, Valid: false, Message: message, Violations: []audit.Violation{v}}
}

// Decision is the outcome of a pre-check.
type Decision struct {
	Command     string
	Governed    bool
	Allowed     bool
	Message     string
	Violations  []audit.Violation
	Remediation []string
}

// Outcome is the outcome of a post-check.
type Outcome struct {
	Command     string
	Governed    bool
	Passed      bool
	Results     []CheckResult
	Remediation []string
}

// Failed returns the checks that did not pass.
func (o Outcome) Failed() []CheckResult {
	var out []CheckResult
	for _, r := range o.Results {
		if !r.Valid {
			out = append(out, r)
		}
	}
	return out
}

// Violations flattens the violations of every check, in check order.
func (o Outcome) Violations() []audit.Violation {
	var out []audit.Violation
	for _, r := range o.Results {
		out = append(out, r.Violations...)
	}
	return out
}

// Details builds the per-check map stored in the audit record.
func (o Outcome) Details() map[string]audit.Detail {
	details := make(map[string]audit.Detail, len(o.Results))
	for _, r := range o.Results {
		details[r.Name] = r.Detail()
	}
	return details
}

// Summary renders a one-line description, mainly for logs.
func (o Outcome) Summary() string {
	if o.Passed {
		return fmt.Sprintf("%s: all checks passed", o.Command)
	}
	names := make([]string, 0, len(o.Results))
	for _, r := range o.Failed() {
		names = append(names, r.Name)
	}
	return fmt.Sprintf("%s: failed %s", o.Command, strings.Join(names, ", "))
}
