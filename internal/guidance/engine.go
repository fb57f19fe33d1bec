package guidance

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/kingrea/lattice-warden/internal/artifact"
	"github.com/kingrea/lattice-warden/internal/registry"
	"github.com/kingrea/lattice-warden/internal/templates"
)

// Action is always proceed: flexible mode has no blocking path.
const ActionProceed = "proceed"

// Guidance statuses.
const (
	StatusGuided   = "guided"
	StatusUnguided = "unguided"
	StatusReviewed = "reviewed"
)

// ModeCreative is reported when no guide shapes the work.
const ModeCreative = "creative"

// GuideContent is the parsed guide handed back by PreGuidance.
type GuideContent struct {
	Type        string            `json:"type"`
	Sections    map[string]string `json:"sections"`
	Order       []string          `json:"section_order"`
	Flexibility string            `json:"flexibility_level"`
}

// Pre is the advisory answer before a command runs.
type Pre struct {
	Status   string        `json:"status"`
	Message  string        `json:"message"`
	Guidance *GuideContent `json:"guidance,omitempty"`
	Mode     string        `json:"mode"`
	Action   string        `json:"action"`
}

// Feedback is the advisory review after a command runs.
type Feedback struct {
	Status        string   `json:"status"`
	Suggestions   []string `json:"suggestions"`
	Warnings      []string `json:"warnings"`
	Commendations []string `json:"commendations"`
	Action        string   `json:"action"`
	Overall       string   `json:"overall"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMode sets the mode reported on guided answers.
func WithMode(mode string) Option {
	return func(e *Engine) {
		if mode != "" {
			e.mode = mode
		}
	}
}

// Engine answers flexible-mode requests. It holds no mutable state.
type Engine struct {
	table     *Table
	templates *templates.Store
	store     *artifact.Store
	mode      string
	logger    *slog.Logger
}

// New wires an engine.
func New(table *Table, tmpl *templates.Store, store *artifact.Store, opts ...Option) *Engine {
	e := &Engine{
		table:     table,
		templates: tmpl,
		store:     store,
		mode:      "flexible",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// guide loads the guide document for id. Identifiers that would leave the
// guide directory never have a guide.
func (e *Engine) guide(id string) (templates.Document, bool, error) {
	name := registry.BareName(id)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return templates.Document{}, false, nil
	}
	return e.templates.Guide(id)
}

// PreGuidance returns the guide sections for id, or a free-form answer when no
// guide exists.
func (e *Engine) PreGuidance(id string) (Pre, error) {
	doc, ok, err := e.guide(id)
	if err != nil {
		return Pre{}, fmt.Errorf("guidance: load guide for %s: %w", id, err)
	}
	if !ok {
		e.logger.Debug("no guide", "command", id)
		return Pre{
			Status:  StatusUnguided,
			Message: "No guide file; free-form creation",
			Mode:    ModeCreative,
			Action:  ActionProceed,
		}, nil
	}
	e.logger.Debug("guide found", "command", id, "path", doc.Path)
	return Pre{
		Status:  StatusGuided,
		Message: "Found guide file: " + filepath.Base(doc.Path),
		Guidance: &GuideContent{
			Type:        "guidance",
			Sections:    doc.Sections,
			Order:       doc.SectionOrder,
			Flexibility: "high",
		},
		Mode:   e.mode,
		Action: ActionProceed,
	}, nil
}

// PostFeedback reviews produced files without ever blocking. Files outside the
// store earn warnings; the first file's content is checked for the command's
// vocabulary markers.
func (e *Engine) PostFeedback(id string, files []string) (Feedback, error) {
	feedback := Feedback{
		Status:        StatusReviewed,
		Suggestions:   []string{},
		Warnings:      []string{},
		Commendations: []string{},
		Action:        ActionProceed,
	}
	for _, file := range files {
		if !e.store.Contains(file) {
			feedback.Warnings = append(feedback.Warnings,
				fmt.Sprintf("Consider saving %s under %s so it can be tracked", file, e.store.Fragment()))
		}
	}
	if len(files) > 0 {
		content, ok, err := e.readOutput(files[0])
		if err != nil {
			return Feedback{}, err
		}
		if ok {
			commendations, suggestions := e.inspect(id, content)
			feedback.Commendations = append(feedback.Commendations, commendations...)
			feedback.Suggestions = append(feedback.Suggestions, suggestions...)
		}
	}
	feedback.Overall = overall(feedback)
	return feedback, nil
}

// readOutput returns the content of a produced file. A missing file or a
// directory has no content; any other failure is reported.
func (e *Engine) readOutput(file string) (string, bool, error) {
	path := e.store.Resolve(file)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("guidance: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", false, nil
	}
	data, err := e.store.Read(path)
	if err != nil {
		return "", false, fmt.Errorf("guidance: %w", err)
	}
	return string(data), true, nil
}

func (e *Engine) inspect(id, content string) (commendations, suggestions []string) {
	spec, ok := e.table.Lookup(id)
	if !ok {
		return nil, nil
	}
	folded := cases.Fold().String(content)
	for _, rule := range spec.Markers {
		if rule.matches(content, folded) {
			if rule.Commend != "" {
				commendations = append(commendations, rule.Commend)
			}
		} else if rule.Suggest != "" {
			suggestions = append(suggestions, rule.Suggest)
		}
	}
	return commendations, suggestions
}

func (r MarkerRule) matches(content, folded string) bool {
	fold := cases.Fold()
	for _, term := range r.Any {
		if r.CaseSensitive {
			if strings.Contains(content, term) {
				return true
			}
			continue
		}
		if strings.Contains(folded, fold.String(term)) {
			return true
		}
	}
	return false
}

func overall(f Feedback) string {
	if len(f.Commendations) > 0 && len(f.Warnings) == 0 {
		return "Well-crafted document! " + strings.Join(f.Commendations, " ")
	}
	if len(f.Suggestions) > 0 {
		return "Document accepted. Some improvement suggestions are included for reference."
	}
	return "Document saved."
}
