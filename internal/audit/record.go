// Package audit keeps the append-only enforcement history: one JSON line per
// terminal enforcement decision, replayed on startup and summarized on demand.
package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the terminal state of one command invocation.
type Status string

const (
	StatusBlocked   Status = "BLOCKED"
	StatusSuccess   Status = "SUCCESS"
	StatusViolation Status = "VIOLATION"
)

// Valid reports whether s is one of the three terminal statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBlocked, StatusSuccess, StatusViolation:
		return true
	}
	return false
}

// Severity ranks a violation.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// ViolationType names the check that failed.
type ViolationType string

const (
	MissingTemplate       ViolationType = "MISSING_TEMPLATE"
	InvalidOutputLocation ViolationType = "INVALID_OUTPUT_LOCATION"
	NoOutputGenerated     ViolationType = "NO_OUTPUT_GENERATED"
	MissingFrontMatter    ViolationType = "MISSING_FRONTMATTER"
	TemplateNotUsed       ViolationType = "TEMPLATE_NOT_USED"
	MissingParentOutput   ViolationType = "MISSING_PARENT_OUTPUT"
	NoParentReference     ViolationType = "NO_PARENT_REFERENCE"
)

// Violation is a structured failed or partially failed check. The payload
// fields are set only for the types that carry them.
type Violation struct {
	Type           ViolationType `json:"type"`
	Command        string        `json:"command"`
	Severity       Severity      `json:"severity"`
	Template       string        `json:"template,omitempty"`
	File           string        `json:"file,omitempty"`
	MissingParents []string      `json:"missing_parents,omitempty"`
}

// Detail is the per-check outcome stored inside a record.
type Detail struct {
	Valid      bool        `json:"valid"`
	Message    string      `json:"message"`
	Violations []Violation `json:"violations,omitempty"`
}

// Record is one line of the enforcement log.
type Record struct {
	Timestamp time.Time         `json:"-"`
	Command   string            `json:"command"`
	Status    Status            `json:"status"`
	Details   map[string]Detail `json:"details"`
}

// CheckNames returns the detail keys in sorted order.
func (r Record) CheckNames() []string {
	names := make([]string, 0, len(r.Details))
	for name := range r.Details {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Violations flattens the violations embedded in the record's details.
func (r Record) Violations() []Violation {
	var out []Violation
	for _, name := range r.CheckNames() {
		out = append(out, r.Details[name].Violations...)
	}
	return out
}

// legacyCheck is the detail key used when an old BLOCKED line stored its
// message as a plain string.
const legacyCheck = "Template validation"

type wireRecord struct {
	Timestamp string          `json:"timestamp"`
	Command   string          `json:"command"`
	Status    Status          `json:"status"`
	Details   json.RawMessage `json:"details"`
}

// MarshalJSON renders the record with an ISO-8601 UTC timestamp.
func (r Record) MarshalJSON() ([]byte, error) {
	details := r.Details
	if details == nil {
		details = map[string]Detail{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireRecord{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		Command:   r.Command,
		Status:    r.Status,
		Details:   raw,
	})
}

// UnmarshalJSON accepts current records plus older shapes: naive ISO
// timestamps without a zone and string-valued details.
func (r *Record) UnmarshalJSON(data []byte) error {
	var wire wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if strings.TrimSpace(wire.Command) == "" {
		return fmt.Errorf("audit: record missing command")
	}
	if !wire.Status.Valid() {
		return fmt.Errorf("audit: record has unknown status %q", wire.Status)
	}
	ts, err := parseTimestamp(wire.Timestamp)
	if err != nil {
		return err
	}
	details, err := decodeDetails(wire.Details)
	if err != nil {
		return err
	}
	*r = Record{
		Timestamp: ts,
		Command:   wire.Command,
		Status:    wire.Status,
		Details:   details,
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("audit: record missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("audit: unparseable timestamp %q", value)
}

func decodeDetails(raw json.RawMessage) (map[string]Detail, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]Detail{}, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var message string
		if err := json.Unmarshal(raw, &message); err != nil {
			return nil, fmt.Errorf("audit: decode details: %w", err)
		}
		return map[string]Detail{legacyCheck: {Valid: false, Message: message}}, nil
	}
	var details map[string]Detail
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("audit: decode details: %w", err)
	}
	if details == nil {
		details = map[string]Detail{}
	}
	return details, nil
}
