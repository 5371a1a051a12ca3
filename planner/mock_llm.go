package planner

import (
	"context"
	"encoding/json"
	"strings"
)

// MockLLM answers without calling a model. With Response set it returns
// that verbatim; with Err set it fails. Otherwise it echoes the first lines
// of the input text as a one-slide plan.
type MockLLM struct {
	Response string
	Err      error
}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	var bullets []string
	_, text, _ := strings.Cut(prompt.User, inputMarker)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Return ONLY") {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == 5 {
			break
		}
	}
	plan := map[string]any{
		"title": "Draft",
		"slides": []map[string]any{
			{"title": "Overview", "bullets": bullets, "layout": "auto"},
		},
	}
	out, err := json.Marshal(plan)
	return string(out), err
}
