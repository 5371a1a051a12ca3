// Package planner asks an OpenAI-compatible model for a slide plan.
package planner

import (
	"context"
	"errors"

	"auto_ppt_generator/outline"
)

// Request is the input to one planning call.
type Request struct {
	Text         string
	Guidance     string
	IncludeNotes bool
}

// Planner turns text into an outline through an LLM.
type Planner struct {
	llm LLMClient
}

func New(llm LLMClient) (*Planner, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Planner{llm: llm}, nil
}

// Plan prompts the model and parses its reply. The outline is unclamped.
func (p *Planner) Plan(ctx context.Context, req Request) (outline.Outline, error) {
	raw, err := p.llm.Complete(ctx, BuildPrompt(req))
	if err != nil {
		return outline.Outline{}, err
	}
	return PostProcess(raw, req.IncludeNotes)
}
