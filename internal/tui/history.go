// internal/tui/history.go
//
// The history browser is a bubbletea program over the enforcement log:
// a filterable list of records on the left and the selected record's
// per-check detail on the right.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-warden/internal/audit"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	timeLayout    = "2006-01-02 15:04:05"
)

type pane int

const (
	paneList pane = iota
	paneDetail
)

// statusCycle is the order the status filter steps through; "" shows all.
var statusCycle = []audit.Status{"", audit.StatusBlocked, audit.StatusViolation, audit.StatusSuccess}

type recordItem struct {
	rec audit.Record
}

func (i recordItem) Title() string {
	return fmt.Sprintf("%s  %s", i.rec.Timestamp.Local().Format(timeLayout), i.rec.Command)
}

func (i recordItem) Description() string {
	failed := failedChecks(i.rec)
	if len(failed) == 0 {
		return string(i.rec.Status)
	}
	return fmt.Sprintf("%s · %s", i.rec.Status, strings.Join(failed, ", "))
}

func (i recordItem) FilterValue() string {
	return i.rec.Command + " " + string(i.rec.Status)
}

// HistoryModel is the bubbletea model behind `warden history`.
type HistoryModel struct {
	records []audit.Record
	report  audit.Report

	list   list.Model
	detail viewport.Model
	help   help.Model
	keys   historyKeys

	focus        pane
	statusFilter int
	detailText   string
	width        int
	height       int
}

// NewHistoryModel shows records newest first.
func NewHistoryModel(records []audit.Record, report audit.Report) *HistoryModel {
	ordered := make([]audit.Record, len(records))
	for i, rec := range records {
		ordered[len(records)-1-i] = rec
	}
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, defaultWidth/2, defaultHeight-8)
	l.Title = "Enforcement history"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	m := &HistoryModel{
		records: ordered,
		report:  report,
		list:    l,
		detail:  viewport.New(defaultWidth/2, defaultHeight-8),
		help:    help.New(),
		keys:    newHistoryKeys(),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.list.SetItems(m.visibleItems())
	m.refreshDetail()
	return m
}

// Init implements tea.Model.
func (m *HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		filtering := m.list.FilterState() == list.Filtering
		if msg.String() == "ctrl+c" || (!filtering && key.Matches(msg, m.keys.Quit)) {
			return m, tea.Quit
		}
		if !filtering {
			switch {
			case key.Matches(msg, m.keys.Switch):
				if m.focus == paneList {
					m.focus = paneDetail
				} else {
					m.focus = paneList
				}
				return m, nil
			case key.Matches(msg, m.keys.Status):
				m.statusFilter = (m.statusFilter + 1) % len(statusCycle)
				cmd := m.list.SetItems(m.visibleItems())
				m.list.ResetSelected()
				m.refreshDetail()
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	if m.focus == paneDetail {
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	m.refreshDetail()
	return m, cmd
}

// View implements tea.Model.
func (m *HistoryModel) View() string {
	leftWidth, rightWidth := m.paneWidths()
	listStyle, detailStyle := paneStyle, paneStyle
	if m.focus == paneList {
		listStyle = focusedPaneStyle
	} else {
		detailStyle = focusedPaneStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Width(leftWidth).Render(m.list.View()),
		detailStyle.Width(rightWidth).Render(m.detail.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("⬡ WARDEN"),
		summaryStyle.Render(m.summary()),
		body,
		m.help.View(m.keys),
	)
}

func (m *HistoryModel) summary() string {
	filter := "all"
	if status := statusCycle[m.statusFilter]; status != "" {
		filter = string(status)
	}
	return fmt.Sprintf("%d records · enforcement rate %.1f%% · %d unreadable lines · showing %s",
		m.report.TotalCommands, m.report.EnforcementRate, m.report.Skipped, filter)
}

func (m *HistoryModel) paneWidths() (int, int) {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	left := max(30, width/2-2)
	right := max(20, width-left-6)
	return left, right
}

func (m *HistoryModel) resize() {
	left, right := m.paneWidths()
	height := max(5, m.height-8)
	m.list.SetSize(left, height)
	m.detail.Width = right
	m.detail.Height = height
	m.help.Width = m.width
	m.refreshDetail()
}

func (m *HistoryModel) visibleItems() []list.Item {
	status := statusCycle[m.statusFilter]
	items := make([]list.Item, 0, len(m.records))
	for _, rec := range m.records {
		if status != "" && rec.Status != status {
			continue
		}
		items = append(items, recordItem{rec: rec})
	}
	return items
}

func (m *HistoryModel) refreshDetail() {
	item, ok := m.list.SelectedItem().(recordItem)
	if !ok {
		m.detailText = mutedStyle.Render("No records to show.")
	} else {
		m.detailText = renderRecord(item.rec)
	}
	m.detail.SetContent(m.detailText)
}

// Selected returns the highlighted record.
func (m *HistoryModel) Selected() (audit.Record, bool) {
	item, ok := m.list.SelectedItem().(recordItem)
	return item.rec, ok
}

func renderRecord(rec audit.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", StatusStyle(rec.Status).Render(string(rec.Status)), rec.Command)
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(rec.Timestamp.Local().Format(timeLayout)))
	for _, name := range rec.CheckNames() {
		detail := rec.Details[name]
		mark := checkPassStyle.Render("✓")
		if !detail.Valid {
			mark = checkFailStyle.Render("✗")
		}
		fmt.Fprintf(&b, "\n%s %s\n  %s\n", mark, name, detail.Message)
		for _, v := range detail.Violations {
			fmt.Fprintf(&b, "  • %s %s%s\n", SeverityStyle(v.Severity).Render(string(v.Severity)), v.Type, violationPayload(v))
		}
	}
	return b.String()
}

func violationPayload(v audit.Violation) string {
	switch {
	case v.Template != "":
		return " (" + v.Template + ")"
	case v.File != "":
		return " (" + v.File + ")"
	case len(v.MissingParents) > 0:
		return " (" + strings.Join(v.MissingParents, ", ") + ")"
	}
	return ""
}

func failedChecks(rec audit.Record) []string {
	var failed []string
	for _, name := range rec.CheckNames() {
		if !rec.Details[name].Valid {
			failed = append(failed, name)
		}
	}
	return failed
}

// RunHistory starts the interactive browser over log.
func RunHistory(log *audit.Log, opts ...tea.ProgramOption) error {
	model := NewHistoryModel(log.Records(), log.Report())
	if _, err := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...).Run(); err != nil {
		return fmt.Errorf("tui: run history: %w", err)
	}
	return nil
}
