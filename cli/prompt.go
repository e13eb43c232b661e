// System prompt rendering.
//
// Information Hiding:
// - Default prompt wording
// - Template data passed to custom prompt templates

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/richinex/abbot/command"
)

// DefaultPromptTemplate names the built-in system prompt template.
const DefaultPromptTemplate = "default"

const defaultPrompt = `You are {{.BotName}}, an assistant that answers questions for members of the {{.Organization}} organization.

You work in iterations. In each iteration you receive a request and respond with exactly one command.
Commands that look something up give you their result as the next request. Commands that post a message end your turn.
Prefer answers retrieved from memory. When you compose an answer yourself, say so by setting "synthesized" to true.

Respond ONLY with a JSON object in this shape, with exactly one element in "action":
{"thought": "why you chose this command", "action": [{"command": "<name>", ...fields}]}

Available commands:
{{.Catalog}}
`

// PromptData is the data available to system prompt templates.
type PromptData struct {
	BotName      string
	Organization string
	Catalog      string
	Commands     []command.Descriptor
}

// RenderSystemPrompt renders the template at path, or the built-in prompt
// when path is empty, against the registry's command catalog.
func RenderSystemPrompt(path, botName, organization string, registry *command.Registry) (string, error) {
	text := defaultPrompt
	name := DefaultPromptTemplate
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt template: %w", err)
		}
		text = string(raw)
		name = path
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}

	var b strings.Builder
	err = tmpl.Execute(&b, PromptData{
		BotName:      botName,
		Organization: organization,
		Catalog:      strings.TrimRight(registry.Catalog(), "\n"),
		Commands:     registry.Descriptors(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return b.String(), nil
}
