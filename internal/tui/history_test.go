package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/lattice-warden/internal/audit"
)

func sampleRecords() []audit.Record {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []audit.Record{
		{Timestamp: base, Command: "/van", Status: audit.StatusSuccess, Details: map[string]audit.Detail{
			"Output validation": {Valid: true, Message: "Found 1 outputs"},
		}},
		{Timestamp: base.Add(time.Minute), Command: "/plan", Status: audit.StatusBlocked, Details: map[string]audit.Detail{
			"Template validation": {Valid: false, Message: "Template missing: plan/tasks.md", Violations: []audit.Violation{
				{Type: audit.MissingTemplate, Command: "/plan", Severity: audit.SeverityCritical, Template: "plan/tasks.md"},
			}},
		}},
		{Timestamp: base.Add(2 * time.Minute), Command: "/debug", Status: audit.StatusViolation, Details: map[string]audit.Detail{
			"Linkage validation": {Valid: false, Message: "Parent command outputs missing: /implement", Violations: []audit.Violation{
				{Type: audit.MissingParentOutput, Command: "/debug", Severity: audit.SeverityHigh, MissingParents: []string{"/implement"}},
			}},
		}},
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m *HistoryModel, msg tea.Msg) (*HistoryModel, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	next, ok := model.(*HistoryModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return next, cmd
}

func TestHistoryShowsNewestFirst(t *testing.T) {
	m := NewHistoryModel(sampleRecords(), audit.Report{TotalCommands: 3})
	rec, ok := m.Selected()
	if !ok || rec.Command != "/debug" {
		t.Fatalf("selected = %+v", rec)
	}
	if !strings.Contains(m.detailText, "Linkage validation") || !strings.Contains(m.detailText, "/implement") {
		t.Fatalf("detail = %s", m.detailText)
	}
}

func TestHistoryNavigationUpdatesDetail(t *testing.T) {
	m := NewHistoryModel(sampleRecords(), audit.Report{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	rec, _ := m.Selected()
	if rec.Command != "/plan" {
		t.Fatalf("after down selected = %s", rec.Command)
	}
	if !strings.Contains(m.detailText, "MISSING_TEMPLATE") || !strings.Contains(m.detailText, "plan/tasks.md") {
		t.Fatalf("detail = %s", m.detailText)
	}
}

func TestHistoryStatusFilterCycles(t *testing.T) {
	m := NewHistoryModel(sampleRecords(), audit.Report{})
	m, _ = update(t, m, keyRunes("s"))
	if got := len(m.list.Items()); got != 1 {
		t.Fatalf("BLOCKED filter shows %d items", got)
	}
	rec, _ := m.Selected()
	if rec.Status != audit.StatusBlocked {
		t.Fatalf("selected status = %s", rec.Status)
	}
	for i := 0; i < len(statusCycle)-1; i++ {
		m, _ = update(t, m, keyRunes("s"))
	}
	if got := len(m.list.Items()); got != 3 {
		t.Fatalf("cycling back to all shows %d items", got)
	}
	if !strings.Contains(m.View(), "showing all") {
		t.Fatalf("summary should name the filter")
	}
}

func TestHistoryTabSwitchesFocus(t *testing.T) {
	m := NewHistoryModel(sampleRecords(), audit.Report{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != paneDetail {
		t.Fatalf("focus = %v", m.focus)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if rec, _ := m.Selected(); rec.Command != "/debug" {
		t.Fatalf("list must not move while the detail pane has focus")
	}
}

func TestHistoryQuit(t *testing.T) {
	m := NewHistoryModel(nil, audit.Report{})
	if !strings.Contains(m.detailText, "No records") {
		t.Fatalf("empty detail = %s", m.detailText)
	}
	_, cmd := update(t, m, keyRunes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestHistoryFromLog(t *testing.T) {
	log, err := audit.Open(filepath.Join(t.TempDir(), "audit.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()
	for _, rec := range sampleRecords() {
		if _, err := log.Append(rec); err != nil {
			t.Fatal(err)
		}
	}
	m := NewHistoryModel(log.Records(), log.Report())
	if !strings.Contains(m.summary(), "3 records") {
		t.Fatalf("summary = %s", m.summary())
	}
}
