package compressor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/shadow/internal/crawler"
)

func el(t crawler.ElementType, text string) crawler.Element {
	return crawler.Element{Type: t, Text: text, ID: text, Intent: crawler.IntentFor(t)}
}

func rawState() *crawler.PageState {
	return &crawler.PageState{
		URL:      "https://example.com",
		Title:    "Example",
		PageType: crawler.PageInformational,
		Elements: []crawler.Element{
			el(crawler.TypeHeading, "Title"),
			el(crawler.TypeOther, "paragraph"),
			el(crawler.TypeLink, "More"),
			el(crawler.TypeButton, "Go"),
			el(crawler.TypeInput, "q"),
			{Type: crawler.TypeLink, Text: "view-only link", ID: "v", Intent: crawler.IntentView},
		},
		Entities: []crawler.Entity{{Type: "price", Value: "$1"}},
	}
}

func TestCompress_KeepPredicate(t *testing.T) {
	in := rawState()
	out := Compress(in, DefaultOptions())

	var texts []string
	for _, e := range out.Elements {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"Title", "More", "Go", "q"}, texts)
	assert.Equal(t, GoalInformation, out.MainGoal)
	assert.Equal(t, in.Entities, out.Entities)

	// input untouched
	assert.Len(t, in.Elements, 6)
	assert.Empty(t, in.MainGoal)
}

func TestCompress_Truncates(t *testing.T) {
	state := &crawler.PageState{PageType: crawler.PageGeneral}
	for i := 0; i < 120; i++ {
		state.Elements = append(state.Elements, el(crawler.TypeButton, fmt.Sprintf("b%d", i)))
	}

	out := Compress(state, DefaultOptions())
	require.Len(t, out.Elements, MaxElements)
	assert.Equal(t, "b0", out.Elements[0].Text)
	assert.Equal(t, "b49", out.Elements[49].Text)
}

func TestCompress_LimitNeverExceedsBudget(t *testing.T) {
	state := &crawler.PageState{PageType: crawler.PageGeneral}
	for i := 0; i < 150; i++ {
		state.Elements = append(state.Elements, el(crawler.TypeButton, fmt.Sprintf("b%d", i)))
	}

	tests := []struct {
		max  int
		want int
	}{
		{max: 120, want: MaxElements},
		{max: -3, want: MaxElements},
		{max: 10, want: 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.max), func(t *testing.T) {
			out := Compress(state, Options{MaxElements: tt.max})
			assert.Len(t, out.Elements, tt.want)
		})
	}
}

func TestCompress_Idempotent(t *testing.T) {
	for _, opts := range []Options{DefaultOptions(), {MaxElements: 3, PrioritizeByIntent: true}} {
		once := Compress(rawState(), opts)
		twice := Compress(once, opts)
		assert.Equal(t, once, twice)
	}
}

func TestCompress_PrioritizeByIntent(t *testing.T) {
	out := Compress(rawState(), Options{PrioritizeByIntent: true})

	var intents []crawler.Intent
	for _, e := range out.Elements {
		intents = append(intents, e.Intent)
	}
	assert.Equal(t, []crawler.Intent{
		crawler.IntentAction,
		crawler.IntentInput,
		crawler.IntentNavigation,
		crawler.IntentView,
	}, intents)
}

func TestCompress_EmptyElements(t *testing.T) {
	out := Compress(&crawler.PageState{Title: "Example Domain", Elements: []crawler.Element{}}, DefaultOptions())
	assert.NotNil(t, out.Elements)
	assert.Empty(t, out.Elements)
}

func TestMainGoal(t *testing.T) {
	assert.Equal(t, GoalPurchase, MainGoal(crawler.PageEcommerce))
	assert.Equal(t, GoalInformation, MainGoal(crawler.PageInformational))
	assert.Equal(t, GoalInformation, MainGoal(crawler.PageGeneral))
	assert.Equal(t, GoalInformation, MainGoal(""))
}
