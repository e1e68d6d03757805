package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/executor"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     *Step
		wantErr  bool
	}{
		{
			name:     "plain object",
			response: `{"action":"click","id":"buy-now","reason":"add to cart"}`,
			want:     &Step{Action: "click", ID: "buy-now", Reason: "add to cart"},
		},
		{
			name:     "fenced with prose",
			response: "Sure.\n```json\n{\"action\": \"TYPE\", \"id\": \"q\", \"value\": \"shoes\"}\n```",
			want:     &Step{Action: "type", ID: "q", Value: "shoes"},
		},
		{
			name:     "braces inside strings",
			response: `next: {"action":"click","text":"Open {menu}","type":"button","reason":"a \"quoted\" }"} ok`,
			want:     &Step{Action: "click", Text: "Open {menu}", Type: "button", Reason: `a "quoted" }`},
		},
		{
			name:     "done",
			response: `{"action":"done","reason":"price found"}`,
			want:     &Step{Action: "done", Reason: "price found"},
		},
		{name: "no object", response: "I cannot help", wantErr: true},
		{name: "unterminated", response: `{"action":"click"`, wantErr: true},
		{name: "unknown action", response: `{"action":"scroll","id":"x"}`, wantErr: true},
		{name: "click without target", response: `{"action":"click"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStep(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStepPayload(t *testing.T) {
	p, err := Step{Action: "type", ID: "q", Value: "shoes"}.Payload()
	require.NoError(t, err)
	assert.Equal(t, executor.Payload{ID: "q", Value: "shoes", Action: "TYPE"}, p)

	_, err = Step{Action: "done"}.Payload()
	assert.Error(t, err)
}

func TestBuildUserPrompt(t *testing.T) {
	state := &crawler.PageState{
		URL:      "https://shop.example.com",
		Title:    "Shop",
		PageType: crawler.PageEcommerce,
		MainGoal: "purchase_or_research",
		Elements: []crawler.Element{{Type: crawler.TypeButton, Text: "Buy", ID: "buy", Intent: crawler.IntentAction}},
	}

	prompt, err := buildUserPrompt(state, "buy the cheapest item", nil)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"page_type": "ecommerce"`)
	assert.Contains(t, prompt, `"id": "buy"`)
	assert.Contains(t, prompt, "Goal: buy the cheapest item")
	assert.Contains(t, prompt, "(none)")

	prompt, err = buildUserPrompt(state, "g", []Step{{Action: "type", ID: "q", Value: "socks"}, {Action: "click", Text: "Go"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, `1. type id=q value="socks"`)
	assert.Contains(t, prompt, `2. click text="Go"`)
}

func TestNewProvider(t *testing.T) {
	t.Setenv("SHADOW_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("SHADOW_OPENAI_KEY", "test-key")

	_, err := NewProvider("claude", "")
	assert.Error(t, err)

	p, err := NewProvider("openai", "")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, p)

	_, err = NewProvider("llama", "")
	assert.Error(t, err)
}

type scriptedProvider struct {
	steps []Step
	seen  []string
}

func (p *scriptedProvider) NextStep(_ context.Context, state *crawler.PageState, _ string, completed []Step) (*Step, error) {
	p.seen = append(p.seen, state.Title)
	if len(completed) >= len(p.steps) {
		return &Step{Action: StepDone}, nil
	}
	s := p.steps[len(completed)]
	return &s, nil
}

type fakeDriver struct {
	payloads []executor.Payload
	err      error
}

func (d *fakeDriver) Navigate(_ context.Context, target string) (*crawler.PageState, error) {
	return &crawler.PageState{URL: target, Title: "start"}, nil
}

func (d *fakeDriver) Action(_ context.Context, p executor.Payload) (*crawler.PageState, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.payloads = append(d.payloads, p)
	return &crawler.PageState{Title: p.ID}, nil
}

func TestRun(t *testing.T) {
	provider := &scriptedProvider{steps: []Step{
		{Action: "type", ID: "q", Value: "socks"},
		{Action: "click", ID: "go"},
	}}
	driver := &fakeDriver{}

	out, err := Run(context.Background(), driver, provider, "https://shop.example.com", "find socks", 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Len(t, out.Steps, 2)
	assert.Equal(t, "go", out.State.Title)
	assert.Equal(t, []string{"start", "q", "go"}, provider.seen)
	require.Len(t, driver.payloads, 2)
	assert.Equal(t, "TYPE", driver.payloads[0].Action)
	assert.Equal(t, "CLICK", driver.payloads[1].Action)
}

func TestRunStepLimit(t *testing.T) {
	provider := &scriptedProvider{steps: []Step{
		{Action: "click", ID: "a"}, {Action: "click", ID: "b"}, {Action: "click", ID: "c"},
	}}

	out, err := Run(context.Background(), &fakeDriver{}, provider, "x", "g", 2, nil)
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Len(t, out.Steps, 2)
}

func TestRunActionError(t *testing.T) {
	provider := &scriptedProvider{steps: []Step{{Action: "click", ID: "a"}}}
	boom := errors.New("bridge down")

	_, err := Run(context.Background(), &fakeDriver{err: boom}, provider, "x", "g", 0, nil)
	assert.ErrorIs(t, err, boom)
}
