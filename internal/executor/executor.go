package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/v0xg/shadow/internal/crawler"
)

var (
	// ErrTargetNotFound means no element matched the payload.
	ErrTargetNotFound = errors.New("action target not found")
	// ErrTargetAmbiguous means several elements matched and the first was used.
	ErrTargetAmbiguous = errors.New("action target ambiguous")
)

// actionScript resolves the target and performs the action. Parameters
// arrive as one structured argument and are never spliced into the source.
//
// Resolution order: DOM id, synthetic node-<i> id (index into the
// extraction query), then the first element of the tag class whose visible
// text contains req.text.
const actionScript = `(req) => {
	const byIndex = (id) => {
		const m = /^node-(\d+)$/.exec(id || '');
		if (!m) return null;
		const i = Number(m[1]);
		const all = document.querySelectorAll(req.candidates);
		return i < Math.min(all.length, req.limit) ? all[i] : null;
	};

	let el = null, via = '', count = 0;
	if (req.id) {
		el = document.getElementById(req.id);
		if (el) {
			via = 'id'; count = 1;
		} else {
			el = byIndex(req.id);
			if (el) { via = 'index'; count = 1; }
		}
	}

	if (!el && req.text) {
		let matches = [];
		try {
			matches = Array.from(document.querySelectorAll(req.selector))
				.filter(e => String(e.innerText || e.value || e.placeholder || '').includes(req.text));
		} catch (e) {
			matches = [];
		}
		if (matches.length > 0) {
			el = matches[0]; via = 'text'; count = matches.length;
		}
	}

	if (!el) return { found: false, candidates: 0, via: '' };

	if (req.kind === 'CLICK') {
		el.click();
	} else if (req.kind === 'TYPE') {
		if (el.focus) el.focus();
		el.value = req.value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}
	return { found: true, candidates: count, via: via };
}`

// Evaluator runs scripts against the current page.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error)
}

// Perform locates the payload's target and performs kind on it in one
// round trip. A missing target is not an error; check Outcome.Found.
func Perform(ctx context.Context, page Evaluator, kind Kind, p Payload) (Outcome, error) {
	if kind != Click && kind != Type {
		return Outcome{}, fmt.Errorf("unsupported action: %q", kind)
	}

	raw, err := page.Evaluate(ctx, actionScript, map[string]any{
		"kind":       string(kind),
		"id":         p.ID,
		"text":       p.Text,
		"value":      p.Value,
		"selector":   SelectorFor(p.Type),
		"candidates": crawler.CandidateSelector,
		"limit":      crawler.MaxCandidates,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("run action script: %w", err)
	}

	var res struct {
		Outcome
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return Outcome{}, fmt.Errorf("decode action result: %w", err)
	}
	if res.Error != "" {
		// the page threw before acting; treat as nothing found
		return Outcome{}, nil
	}
	return res.Outcome, nil
}

// Err maps an outcome to ErrTargetNotFound or ErrTargetAmbiguous, or nil.
func (o Outcome) Err() error {
	switch {
	case !o.Found:
		return ErrTargetNotFound
	case o.Ambiguous():
		return fmt.Errorf("%w: %d candidates", ErrTargetAmbiguous, o.Candidates)
	}
	return nil
}

// SelectorFor returns the CSS selector for a tag class. Unknown values are
// used as raw selectors; empty values search every extraction candidate.
func SelectorFor(elementType string) string {
	t := strings.ToLower(strings.TrimSpace(elementType))
	if _, err := ParseKind(t); err == nil {
		return crawler.CandidateSelector
	}
	switch crawler.ElementType(t) {
	case "", crawler.TypeOther:
		return crawler.CandidateSelector
	case crawler.TypeHeading:
		return "h1, h2, h3, h4, h5, h6"
	case crawler.TypeLink:
		return "a"
	case crawler.TypeButton:
		return `button, [role="button"], input[type="submit"], input[type="button"]`
	case crawler.TypeInput:
		return "input, textarea"
	case crawler.TypeSelect:
		return "select"
	}
	return strings.TrimSpace(elementType)
}
