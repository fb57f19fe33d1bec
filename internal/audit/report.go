package audit

import (
	"encoding/json"
	"time"
)

// Report summarizes the history for `warden report`.
type Report struct {
	Timestamp       time.Time
	TotalCommands   int
	Violations      []Violation
	EnforcementRate float64
	Statuses        map[Status]int
	Skipped         int
}

type wireReport struct {
	Timestamp       string         `json:"timestamp"`
	TotalCommands   int            `json:"total_commands"`
	Violations      []Violation    `json:"violations"`
	EnforcementRate float64        `json:"enforcement_rate"`
	Statuses        map[Status]int `json:"statuses"`
	Skipped         int            `json:"skipped_lines"`
}

// MarshalJSON keeps the report keys stable for scripts that grep them.
func (r Report) MarshalJSON() ([]byte, error) {
	violations := r.Violations
	if violations == nil {
		violations = []Violation{}
	}
	statuses := r.Statuses
	if statuses == nil {
		statuses = map[Status]int{}
	}
	return json.Marshal(wireReport{
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339Nano),
		TotalCommands:   r.TotalCommands,
		Violations:      violations,
		EnforcementRate: r.EnforcementRate,
		Statuses:        statuses,
		Skipped:         r.Skipped,
	})
}

// Report aggregates the full history. Violations are those raised by records
// appended in this process; the rate is the share of SUCCESS records.
func (l *Log) Report() Report {
	records := l.Records()
	session := l.Session()
	report := Report{
		Timestamp:     l.clock(),
		TotalCommands: len(records),
		Statuses:      map[Status]int{},
		Skipped:       l.Skipped(),
	}
	for _, rec := range records {
		report.Statuses[rec.Status]++
	}
	for _, rec := range session {
		report.Violations = append(report.Violations, rec.Violations()...)
	}
	report.EnforcementRate = Rate(report.Statuses[StatusSuccess], report.TotalCommands)
	return report
}

// Rate is successes as a percentage of total, 0 when total is 0.
func Rate(successes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successes) / float64(total) * 100
}

func (l *Log) clock() time.Time {
	if l == nil || l.now == nil {
		return time.Now()
	}
	return l.now()
}
