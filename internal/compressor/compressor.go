// Package compressor cuts a raw page extraction down to the elements an
// agent can act on or needs for orientation.
package compressor

import (
	"sort"

	"github.com/v0xg/shadow/internal/crawler"
)

// MaxElements is the element budget of a compressed state. Options may
// lower it but never raise it.
const MaxElements = 50

const (
	GoalPurchase    = "purchase_or_research"
	GoalInformation = "information_gathering"
)

// Options tunes compression.
type Options struct {
	MaxElements int
	// PrioritizeByIntent stable-sorts survivors by intent (action, input,
	// navigation, view) before truncation. Off by default, which keeps
	// document order.
	PrioritizeByIntent bool
}

// DefaultOptions keeps document order and the standard budget.
func DefaultOptions() Options {
	return Options{MaxElements: MaxElements}
}

var intentRank = map[crawler.Intent]int{
	crawler.IntentAction:     0,
	crawler.IntentInput:      1,
	crawler.IntentNavigation: 2,
	crawler.IntentView:       3,
}

// Compress returns a filtered copy of state with main_goal set. The input is
// not modified.
func Compress(state *crawler.PageState, opts Options) *crawler.PageState {
	limit := opts.MaxElements
	if limit <= 0 || limit > MaxElements {
		limit = MaxElements
	}

	out := *state
	out.MainGoal = MainGoal(state.PageType)
	out.Entities = append([]crawler.Entity{}, state.Entities...)

	kept := make([]crawler.Element, 0, min(len(state.Elements), limit))
	for _, el := range state.Elements {
		if Keep(el) {
			kept = append(kept, el)
		}
	}

	if opts.PrioritizeByIntent {
		sort.SliceStable(kept, func(i, j int) bool {
			return intentRank[kept[i].Intent] < intentRank[kept[j].Intent]
		})
	}

	if len(kept) > limit {
		kept = kept[:limit]
	}
	out.Elements = kept
	return &out
}

// Keep reports whether an element survives compression: headings always,
// otherwise anything that is not view-only.
func Keep(el crawler.Element) bool {
	if el.Type == crawler.TypeHeading {
		return true
	}
	switch el.Intent {
	case crawler.IntentAction, crawler.IntentInput, crawler.IntentNavigation:
		return true
	}
	return false
}

// MainGoal derives the page goal from its type.
func MainGoal(pt crawler.PageType) string {
	if pt == crawler.PageEcommerce {
		return GoalPurchase
	}
	return GoalInformation
}
