package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	raw     json.RawMessage
	err     error
	url     string
	scripts []string
	args    []any
}

func (f *fakePage) Evaluate(_ context.Context, script string, args ...any) (json.RawMessage, error) {
	f.scripts = append(f.scripts, script)
	f.args = append(f.args, args...)
	return f.raw, f.err
}

func (f *fakePage) CurrentURL(context.Context) (string, error) {
	return f.url, nil
}

func pageJSON(t *testing.T, rp rawPage) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(rp)
	require.NoError(t, err)
	return raw
}

func TestExtract_ReducesNodes(t *testing.T) {
	page := &fakePage{raw: pageJSON(t, rawPage{
		URL:         "https://shop.example.com/item",
		Title:       "Widget",
		PageType:    "ecommerce",
		Description: " A widget ",
		Nodes: []rawNode{
			{Index: 0, Tag: "h1", Text: "Widget"},
			{Index: 1, Tag: "a", Text: "Home", Href: "https://shop.example.com/"},
			{Index: 2, Tag: "button", Text: "Add to cart", DomID: "add"},
			{Index: 3, Tag: "input", Text: "", ZeroSize: true},
			{Index: 4, Tag: "a", Text: "hidden link", ZeroSize: true},
			{Index: 5, Tag: "button", Text: "   "},
			{Index: 6, Tag: "select", Text: "Size", Role: "listbox"},
		},
		Text: "Now $19.99, was €25",
	})}

	res := Extract(context.Background(), page)
	require.NoError(t, res.Degraded)
	require.Len(t, page.scripts, 1, "extraction must be a single round trip")

	s := res.State
	assert.Equal(t, "Widget", s.Title)
	assert.Equal(t, PageEcommerce, s.PageType)
	assert.Equal(t, "A widget", s.Description)

	require.Len(t, s.Elements, 5)
	assert.Equal(t, Element{Type: TypeHeading, Text: "Widget", ID: "node-0", Intent: IntentView}, s.Elements[0])
	assert.Equal(t, Element{Type: TypeLink, Text: "Home", ID: "node-1", Intent: IntentNavigation, Href: "https://shop.example.com/"}, s.Elements[1])
	assert.Equal(t, Element{Type: TypeButton, Text: "Add to cart", ID: "add", Intent: IntentAction}, s.Elements[2])
	assert.Equal(t, Element{Type: TypeInput, Text: "", ID: "node-3", Intent: IntentInput}, s.Elements[3])
	assert.Equal(t, Element{Type: TypeSelect, Text: "Size", ID: "node-6", Intent: IntentInput, Role: "listbox"}, s.Elements[4])

	assert.Equal(t, []Entity{{Type: "price", Value: "$19.99"}, {Type: "price", Value: "€25"}}, s.Entities)
}

func TestExtract_ElementShape(t *testing.T) {
	var nodes []rawNode
	for i := 0; i < 200; i++ {
		nodes = append(nodes, rawNode{Index: i, Tag: "a", Text: strings.Repeat("é", 180)})
	}
	page := &fakePage{raw: pageJSON(t, rawPage{Title: "Big", Nodes: nodes})}

	res := Extract(context.Background(), page)
	require.NoError(t, res.Degraded)
	assert.Len(t, res.State.Elements, MaxCandidates)
	for _, el := range res.State.Elements {
		assert.LessOrEqual(t, utf8.RuneCountInString(el.Text), MaxTextLength)
		assert.True(t, el.Text != "" || el.Type == TypeInput)
	}
}

func TestExtract_UnknownPageTypeIsGeneral(t *testing.T) {
	page := &fakePage{raw: pageJSON(t, rawPage{Title: "x", PageType: "forum"})}
	res := Extract(context.Background(), page)
	assert.Equal(t, PageGeneral, res.State.PageType)
	assert.NotNil(t, res.State.Elements)
	assert.NotNil(t, res.State.Entities)
}

func TestExtract_Degraded(t *testing.T) {
	tests := []struct {
		name string
		page *fakePage
	}{
		{"in-page exception", &fakePage{raw: json.RawMessage(`{"error":"document.body is null"}`)}},
		{"evaluate failure", &fakePage{err: errors.New("target closed")}},
		{"undecodable result", &fakePage{raw: json.RawMessage(`"not an object"`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.page.url = "https://example.com/"
			res := Extract(context.Background(), tt.page)

			require.ErrorIs(t, res.Degraded, ErrDegraded)
			require.NotNil(t, res.State)
			assert.Equal(t, DegradedTitle, res.State.Title)
			assert.Equal(t, "https://example.com/", res.State.URL)
			assert.Empty(t, res.State.Elements)
			assert.Empty(t, res.State.Entities)
		})
	}
}

func TestExtract_PassesStructuredArgs(t *testing.T) {
	page := &fakePage{raw: pageJSON(t, rawPage{Title: "x"})}
	Extract(context.Background(), page)

	require.Len(t, page.args, 1)
	opts, ok := page.args[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, CandidateSelector, opts["selector"])
	assert.Equal(t, MaxCandidates, opts["limit"])
}

func TestFindPrices(t *testing.T) {
	got := findPrices("Deals: $19.99 and €5 today", MaxEntities)
	assert.Equal(t, []Entity{{Type: "price", Value: "$19.99"}, {Type: "price", Value: "€5"}}, got)

	many := strings.Repeat("£1,000.50 ₹20 ", 10)
	assert.Len(t, findPrices(many, MaxEntities), MaxEntities)

	assert.Empty(t, findPrices("no prices, just $ and €", MaxEntities))
}

func TestClassifyTag(t *testing.T) {
	tests := map[string]ElementType{
		"h1":       TypeHeading,
		"H3":       TypeHeading,
		"a":        TypeLink,
		"button":   TypeButton,
		"input":    TypeInput,
		"textarea": TypeInput,
		"select":   TypeSelect,
		"div":      TypeOther,
	}
	for tag, want := range tests {
		assert.Equal(t, want, ClassifyTag(tag), tag)
	}
}

func TestIntentFor(t *testing.T) {
	assert.Equal(t, IntentAction, IntentFor(TypeButton))
	assert.Equal(t, IntentNavigation, IntentFor(TypeLink))
	assert.Equal(t, IntentInput, IntentFor(TypeInput))
	assert.Equal(t, IntentInput, IntentFor(TypeSelect))
	assert.Equal(t, IntentView, IntentFor(TypeHeading))
	assert.Equal(t, IntentView, IntentFor(TypeOther))
}
