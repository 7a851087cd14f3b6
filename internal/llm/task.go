package llm

import (
	"fmt"
	"strings"
	"text/template"
)

// Task is one classification or generation contract. Each task is sent as its
// own request; tasks are never batched together.
type Task struct {
	Name         string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	tmpl         *template.Template
}

// NewTask compiles a prompt template. It panics on an invalid template since
// prompts are compiled once at package initialization.
func NewTask(name, systemPrompt, prompt string, temperature float32, maxTokens int) Task {
	tmpl := template.Must(template.New(name).Option("missingkey=zero").Parse(prompt))
	return Task{
		Name:         name,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		tmpl:         tmpl,
	}
}

// Render executes the prompt template with the given inputs
func (t Task) Render(inputs any) (string, error) {
	if t.tmpl == nil {
		return "", fmt.Errorf("task %s has no prompt template", t.Name)
	}

	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, inputs); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name, err)
	}
	return sb.String(), nil
}
