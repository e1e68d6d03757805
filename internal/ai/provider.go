package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/executor"
)

// Step actions a provider may choose.
const (
	StepClick = "click"
	StepType  = "type"
	StepDone  = "done"
)

// Step is one decision of the planner.
type Step struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Done reports whether the provider considers the goal reached.
func (s Step) Done() bool {
	return strings.EqualFold(s.Action, StepDone)
}

// Payload converts the step into a bridge action payload.
func (s Step) Payload() (executor.Payload, error) {
	kind, err := executor.ParseKind(s.Action)
	if err != nil {
		return executor.Payload{}, err
	}
	return executor.Payload{
		ID:     s.ID,
		Type:   s.Type,
		Text:   s.Text,
		Value:  s.Value,
		Action: string(kind),
	}, nil
}

// Provider picks the next UI action toward a goal.
type Provider interface {
	NextStep(ctx context.Context, state *crawler.PageState, goal string, completed []Step) (*Step, error)
}

// NewProvider creates a provider by name.
func NewProvider(name, model string) (Provider, error) {
	switch strings.ToLower(name) {
	case "", "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

// parseStep extracts the first JSON object from a response that may
// contain surrounding text or markdown fences.
func parseStep(response string) (*Step, error) {
	var step Step
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &step); err == nil {
		return validate(&step)
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString, escaped := false, false
	end := -1
	for i := start; i < len(response) && end == -1; i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &step); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return validate(&step)
}

func validate(step *Step) (*Step, error) {
	step.Action = strings.ToLower(strings.TrimSpace(step.Action))
	switch step.Action {
	case StepDone:
		return step, nil
	case StepClick, StepType:
		if step.ID == "" && step.Text == "" {
			return nil, fmt.Errorf("%s step names no target", step.Action)
		}
		return step, nil
	default:
		return nil, fmt.Errorf("unknown step action %q", step.Action)
	}
}
