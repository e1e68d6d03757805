package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/v0xg/shadow/internal/crawler"
)

const systemPrompt = `You are operating a headless web browser for a user. You never see the page itself, only a compact semantic summary of it.

You will receive:
1. The page state: URL, title, page type, main goal, description, price entities and the interactive elements. Each element has an "id", a "type" (heading, link, button, input, select, other), its visible "text" and an "intent".
2. The user's goal.
3. The steps already taken.

Choose exactly ONE next step and output it as a JSON object:
- {"action": "click", "id": "<element id>", "reason": "..."}
- {"action": "type", "id": "<element id>", "value": "<text to enter>", "reason": "..."}
- {"action": "done", "reason": "..."}

Rules:
- Only use ids that appear in the current page state.
- If an element has no usable id, give its "type" and a substring of its "text" instead.
- Type into inputs before clicking the button that submits them.
- If the goal is reached, or cannot be reached from this page, answer "done".

Respond ONLY with the JSON object, no explanation or markdown.`

func buildUserPrompt(state *crawler.PageState, goal string, completed []Step) (string, error) {
	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal page state: %w", err)
	}

	var b strings.Builder
	b.WriteString("Page state:\n")
	b.Write(stateJSON)
	b.WriteString("\n\nGoal: ")
	b.WriteString(goal)
	b.WriteString("\n\nSteps taken so far:\n")
	if len(completed) == 0 {
		b.WriteString("(none)\n")
	}
	for i, s := range completed {
		fmt.Fprintf(&b, "%d. %s", i+1, s.Action)
		if s.ID != "" {
			fmt.Fprintf(&b, " id=%s", s.ID)
		}
		if s.Text != "" {
			fmt.Fprintf(&b, " text=%q", s.Text)
		}
		if s.Value != "" {
			fmt.Fprintf(&b, " value=%q", s.Value)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
