package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxCandidates bounds how many nodes one extraction looks at.
	MaxCandidates = 150
	// MaxTextLength is the longest element text kept, in runes.
	MaxTextLength = 100
	// MaxEntities bounds the entities reported per page.
	MaxEntities = 5

	maxBodyText = 50000
)

// CandidateSelector selects the structural and interactive nodes considered
// for extraction. Synthetic ids (node-<i>) index into this query.
const CandidateSelector = "h1, h2, h3, a, button, input, textarea, select"

// DegradedTitle is the title of a state produced after an extraction failure.
const DegradedTitle = "Error Extracting"

// ErrDegraded marks an extraction that fell back to an empty state.
var ErrDegraded = errors.New("extraction degraded")

var commerceHosts = []string{"amazon", "ebay", "etsy", "shop", "store"}

var pricePattern = regexp.MustCompile(`[$£€₹]\d[\d,]*(?:\.\d+)?`)

// Evaluator is the part of a render surface extraction needs.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error)
	CurrentURL(ctx context.Context) (string, error)
}

// Result is the outcome of Extract. State is always usable; Degraded is
// non-nil when it is a fallback.
type Result struct {
	State    *PageState
	Degraded error
}

// extractScript classifies the page and reports candidate nodes in document
// order. All filtering and labelling happens in Go.
const extractScript = `(opts) => {
	try {
		const host = window.location.hostname || '';
		const commerceHost = opts.commerceHosts.some(h => host.includes(h));
		const productMarkup = !!document.querySelector('[class*="product"], [itemtype*="Product"]');
		const pageType = (commerceHost || productMarkup) ? 'ecommerce' :
			(document.querySelector('article') ? 'informational' : 'general');

		const meta = document.querySelector('meta[name="description"]');
		const all = document.querySelectorAll(opts.selector);
		const limit = Math.min(all.length, opts.limit);
		const nodes = [];

		for (let i = 0; i < limit; i++) {
			const el = all[i];
			const rect = el.getBoundingClientRect();
			const text = String(el.innerText || el.value || el.placeholder || '').trim();
			nodes.push({
				index: i,
				tag: el.tagName.toLowerCase(),
				text: text.slice(0, opts.maxText * 2),
				dom_id: el.id || '',
				href: el.tagName === 'A' ? (el.href || '') : '',
				role: el.getAttribute('role') || '',
				zero_size: rect.width === 0 && rect.height === 0
			});
		}

		const body = document.body ? (document.body.innerText || '') : '';
		return {
			url: window.location.href,
			title: document.title || 'Untitled Page',
			page_type: pageType,
			description: meta ? (meta.getAttribute('content') || '') : '',
			nodes: nodes,
			text: body.slice(0, opts.maxBody)
		};
	} catch (e) {
		return { error: e.message };
	}
}`

type rawPage struct {
	Error       string    `json:"error"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PageType    string    `json:"page_type"`
	Description string    `json:"description"`
	Nodes       []rawNode `json:"nodes"`
	Text        string    `json:"text"`
}

type rawNode struct {
	Index    int    `json:"index"`
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	DomID    string `json:"dom_id"`
	Href     string `json:"href"`
	Role     string `json:"role"`
	ZeroSize bool   `json:"zero_size"`
}

// Extract reads the current page in one evaluation round trip. It never
// fails: script errors produce a degraded, empty state.
func Extract(ctx context.Context, page Evaluator) Result {
	raw, err := page.Evaluate(ctx, extractScript, map[string]any{
		"selector":      CandidateSelector,
		"limit":         MaxCandidates,
		"maxText":       MaxTextLength,
		"maxBody":       maxBodyText,
		"commerceHosts": commerceHosts,
	})
	if err != nil {
		return degraded(ctx, page, err.Error())
	}

	var rp rawPage
	if err := json.Unmarshal(raw, &rp); err != nil {
		return degraded(ctx, page, fmt.Sprintf("decode extraction result: %v", err))
	}
	if rp.Error != "" {
		return degraded(ctx, page, rp.Error)
	}

	return Result{State: reduce(&rp)}
}

func degraded(ctx context.Context, page Evaluator, reason string) Result {
	url, _ := page.CurrentURL(ctx)
	return Result{
		State: &PageState{
			URL:      url,
			Title:    DegradedTitle,
			PageType: PageGeneral,
			Elements: []Element{},
			Entities: []Entity{},
		},
		Degraded: fmt.Errorf("%w: %s", ErrDegraded, reason),
	}
}

// reduce turns raw script output into a PageState in document order.
func reduce(rp *rawPage) *PageState {
	state := &PageState{
		URL:         rp.URL,
		Title:       rp.Title,
		PageType:    normalizePageType(rp.PageType),
		Description: strings.TrimSpace(rp.Description),
		Elements:    make([]Element, 0, len(rp.Nodes)),
		Entities:    findPrices(rp.Text, MaxEntities),
	}

	for i, n := range rp.Nodes {
		if i >= MaxCandidates {
			break
		}
		el, ok := reduceNode(n)
		if ok {
			state.Elements = append(state.Elements, el)
		}
	}
	return state
}

func reduceNode(n rawNode) (Element, bool) {
	t := ClassifyTag(n.Tag)
	formControl := t == TypeInput || t == TypeSelect

	// Inputs hidden by zero size are still actionable.
	if n.ZeroSize && !formControl {
		return Element{}, false
	}

	text := truncate(strings.TrimSpace(n.Text), MaxTextLength)
	if text == "" && t != TypeInput {
		return Element{}, false
	}

	id := n.DomID
	if id == "" {
		id = fmt.Sprintf("node-%d", n.Index)
	}

	return Element{
		Type:   t,
		Text:   text,
		ID:     id,
		Intent: IntentFor(t),
		Href:   n.Href,
		Role:   n.Role,
	}, true
}

// ClassifyTag maps an HTML tag name to its element type.
func ClassifyTag(tag string) ElementType {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return TypeHeading
	case "a":
		return TypeLink
	case "button":
		return TypeButton
	case "input", "textarea":
		return TypeInput
	case "select":
		return TypeSelect
	default:
		return TypeOther
	}
}

// IntentFor assigns the intent of an element type.
func IntentFor(t ElementType) Intent {
	switch t {
	case TypeButton:
		return IntentAction
	case TypeLink:
		return IntentNavigation
	case TypeInput, TypeSelect:
		return IntentInput
	default:
		return IntentView
	}
}

func normalizePageType(s string) PageType {
	switch PageType(s) {
	case PageEcommerce, PageInformational:
		return PageType(s)
	default:
		return PageGeneral
	}
}

// findPrices returns up to limit currency-prefixed amounts in text order.
func findPrices(text string, limit int) []Entity {
	entities := []Entity{}
	for _, m := range pricePattern.FindAllString(text, limit) {
		entities = append(entities, Entity{Type: "price", Value: m})
	}
	return entities
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
