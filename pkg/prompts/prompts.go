// Package prompts holds the planner's prompt templates, overridable from a
// prompts.yaml next to the binary.
package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

const defaultMetadataSystem = `You craft high converting YouTube metadata. Respond only with valid JSON following the user instructions.`

const defaultMetadataPlan = `You are an elite YouTube content strategist. Produce metadata for a video.

Topic: {{.Topic}}
{{- if .Transcript}}

Transcript: {{.Transcript}}
{{- end}}
{{- if .Keywords}}

Target keywords: {{.Keywords}}
{{- end}}

Tone: {{.Tone}}
{{- if .Persona}}

{{.Persona}}
{{- end}}

Return JSON with keys: title, description, tags (array of at most {{.MaxTags}}), thumbnailIdea, hook, outline (array of bullet points).`

// Prompts is the full prompt set.
type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Plan   PlanPrompts   `yaml:"plan"`
}

type SystemPrompts struct {
	Metadata string `yaml:"metadata"`
}

type PlanPrompts struct {
	Metadata string `yaml:"metadata"`
}

// PlanParams fills the metadata plan template.
type PlanParams struct {
	Topic      string
	Transcript string
	Keywords   string
	Tone       string
	Persona    string
	MaxTags    int
}

// Load reads prompt overrides from prompts.yaml when present and fills the
// defaults for anything unset.
func Load() (*Prompts, error) {
	p := &Prompts{}

	if data, err := os.ReadFile(defaultPromptsPath); err == nil {
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parse %s: %w", defaultPromptsPath, err)
		}
	}

	if p.System.Metadata == "" {
		p.System.Metadata = defaultMetadataSystem
	}
	if p.Plan.Metadata == "" {
		p.Plan.Metadata = defaultMetadataPlan
	}
	return p, nil
}

// RenderPlan produces the user prompt for a metadata planning call.
func (p *Prompts) RenderPlan(params PlanParams) (string, error) {
	return render("plan.metadata", p.Plan.Metadata, params)
}

func render(name, text string, params any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
