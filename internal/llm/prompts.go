package llm

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

const (
	// PromptAnalysis renders the budget plan request.
	PromptAnalysis = "analysis.tmpl"
	// PromptStatement renders the statement categorisation request.
	PromptStatement = "statement.tmpl"

	// SystemJSON is the system message for every JSON-producing request.
	SystemJSON = "You are a financial planning engine. Respond with JSON only. No markdown."
)

// RenderPrompt executes the named embedded template with data.
func RenderPrompt(name string, data any) (string, error) {
	var b strings.Builder
	if err := promptTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}
