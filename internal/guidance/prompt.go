package guidance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{"join": strings.Join}).Parse(`
# Task guidance: {{.ID}}

## Purpose
{{.Spec.Purpose}}

## Essential structure (required, form is free)
{{range .Spec.EssentialStructure}}- {{.}}
{{end}}
## Guiding principles (direction, not hard rules)
{{range .Spec.Principles}}- **{{.Name}}**: {{.Text}}
{{end}}
## Freedom areas (adapt to the project)
{{range .Spec.FreedomAreas}}- {{.}}
{{end}}
## Minimal constraints (the only mandatory parts)
- Required elements: {{join .Spec.MinimalConstraints.MustHave ", "}}
- Format: {{.Spec.MinimalConstraints.Format}}
- Output location: {{.Spec.MinimalConstraints.Output}}

## Project context
{{.Context}}

---
Create the document using the guidance above. Remember:
1. Keep the essential structure; the form is yours
2. Adjust depth and style to the project
3. Innovate, but stay on purpose
4. Focus on value rather than form
`))

var guidePromptTemplate = template.Must(template.New("guide").Parse(`
# {{.ID}} task guide

{{.Guide}}

## Important reminders
1. The above is guidance, not rules; adapt it to the project
2. Focus on creating value rather than matching a template
3. Form serves content, not the other way round
4. Innovation and project-specific solutions are encouraged

Create the document that best fits the project as it actually is.
`))

var freeFormTemplate = template.Must(template.New("free").Parse(`
# {{.ID}} free-form creation

No template applies. Create freely by these principles:

1. **Clear purpose**: the document serves the project's goals
2. **Audience**: create value for the reader
3. **Clear structure**: the reasoning is easy to follow
4. **Practical first**: actionable beats theoretically perfect

Be creative and produce the document that best fits the project right now.
`))

// BuildPrompt renders the directive for id with the caller's context. Unknown
// ids use the default spec.
func (e *Engine) BuildPrompt(id string, context map[string]any) (string, error) {
	if context == nil {
		context = map[string]any{}
	}
	rendered, err := renderJSON(context)
	if err != nil {
		return "", fmt.Errorf("guidance: encode context: %w", err)
	}
	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, struct {
		ID      string
		Spec    Spec
		Context string
	}{ID: id, Spec: e.table.For(id), Context: rendered})
	if err != nil {
		return "", fmt.Errorf("guidance: render prompt for %s: %w", id, err)
	}
	return buf.String(), nil
}

// GuidePrompt renders the command's guide document wrapped in reminders, or a
// free-form directive when the command has no guide.
func (e *Engine) GuidePrompt(id string) (string, error) {
	doc, ok, err := e.guide(id)
	if err != nil {
		return "", fmt.Errorf("guidance: load guide for %s: %w", id, err)
	}
	var buf bytes.Buffer
	if ok {
		err = guidePromptTemplate.Execute(&buf, struct{ ID, Guide string }{ID: id, Guide: doc.Text})
	} else {
		err = freeFormTemplate.Execute(&buf, struct{ ID string }{ID: id})
	}
	if err != nil {
		return "", fmt.Errorf("guidance: render guide prompt for %s: %w", id, err)
	}
	return buf.String(), nil
}

// ParseContext decodes a JSON object for BuildPrompt.
func ParseContext(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var context map[string]any
	if err := json.Unmarshal([]byte(raw), &context); err != nil {
		return nil, fmt.Errorf("guidance: context must be a JSON object: %w", err)
	}
	if context == nil {
		context = map[string]any{}
	}
	return context, nil
}

func renderJSON(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
