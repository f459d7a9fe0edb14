// Package metadata generates upload metadata plans with an LLM, optionally
// biased by a stored AI profile. Plans pre-populate task fields before
// execution; the executor never reads or interprets them.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conneroisu/groq-go"

	"tubepilot/internal/model"
	"tubepilot/pkg/prompts"
)

const (
	maxTags            = 12
	maxTranscriptChars = 4000
	defaultTone        = "energetic but professional"
)

// Plan is the structured metadata the model returns.
type Plan struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	ThumbnailIdea string   `json:"thumbnailIdea"`
	Hook          string   `json:"hook"`
	Outline       []string `json:"outline"`
}

// PlanRequest describes what to plan for.
type PlanRequest struct {
	Topic      string
	Transcript string
	Profile    *model.AIProfile
}

// Planner produces metadata plans via groq.
type Planner struct {
	client  *groq.Client
	model   groq.ChatModel
	prompts *prompts.Prompts
}

// NewPlanner creates a planner.
func NewPlanner(apiKey, chatModel string, p *prompts.Prompts) (*Planner, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}
	return &Planner{
		client:  client,
		model:   groq.ChatModel(chatModel),
		prompts: p,
	}, nil
}

// Plan asks the model for upload metadata.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if len(req.Topic) < 5 {
		return nil, fmt.Errorf("topic must be at least 5 characters")
	}

	prompt, err := p.prompts.RenderPlan(planParams(req))
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := p.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: p.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: p.prompts.System.Metadata},
			{Role: groq.RoleUser, Content: prompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("model response missing")
	}

	return parsePlan(resp.Choices[0].Message.Content)
}

func planParams(req PlanRequest) prompts.PlanParams {
	params := prompts.PlanParams{
		Topic:   req.Topic,
		Tone:    defaultTone,
		MaxTags: maxTags,
	}
	if req.Transcript != "" {
		transcript := req.Transcript
		if len(transcript) > maxTranscriptChars {
			transcript = transcript[:maxTranscriptChars]
		}
		params.Transcript = transcript
	}
	if req.Profile != nil {
		if req.Profile.Tone != "" {
			params.Tone = req.Profile.Tone
		}
		params.Keywords = strings.Join(req.Profile.Keywords, ", ")
		params.Persona = req.Profile.Prompt
	}
	return params
}

func parsePlan(content string) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %w", err)
	}
	if plan.Title == "" {
		return nil, fmt.Errorf("plan is missing a title")
	}
	plan.Tags = cleanTags(plan.Tags)
	return &plan, nil
}

func cleanTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool)

	for _, tag := range tags {
		tag = strings.ToLower(strings.Trim(strings.TrimSpace(tag), "#"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
		if len(result) == maxTags {
			break
		}
	}
	return result
}

// Apply writes the plan into the task: metadata fields are replaced where
// the plan provides them, and the raw plan is preserved in the AI fields
// for later inspection.
func Apply(t *model.UploadTask, plan *Plan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	if plan.Title != "" {
		t.Title = plan.Title
	}
	if plan.Description != "" {
		t.Description = plan.Description
	}
	if len(plan.Tags) > 0 {
		t.Tags = plan.Tags
	}

	var summary strings.Builder
	if plan.Hook != "" {
		fmt.Fprintf(&summary, "Hook: %s\n", plan.Hook)
	}
	if plan.ThumbnailIdea != "" {
		fmt.Fprintf(&summary, "Thumbnail: %s\n", plan.ThumbnailIdea)
	}
	for _, point := range plan.Outline {
		fmt.Fprintf(&summary, "- %s\n", point)
	}
	t.AISummary = strings.TrimRight(summary.String(), "\n")
	t.AutomationPlan = string(raw)
	return nil
}
