package executor

import (
	"fmt"
	"strings"
)

// Kind is the UI action to perform on a target element.
type Kind string

const (
	Click Kind = "CLICK"
	Type  Kind = "TYPE"
)

// ParseKind accepts click/type in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case Click:
		return Click, nil
	case Type:
		return Type, nil
	default:
		return "", fmt.Errorf("unsupported action: %q (supported: click, type)", s)
	}
}

// Payload loosely describes the target of an action. It is a selector
// description, not a unique locator.
type Payload struct {
	ID     string `json:"id,omitempty"`     // DOM id or synthetic node-<i> id
	Type   string `json:"type,omitempty"`   // tag class (button, link, input...) or raw tag
	Text   string `json:"text,omitempty"`   // substring of the target's visible text
	Value  string `json:"value,omitempty"`  // text to set (TYPE)
	Action string `json:"action,omitempty"` // CLICK or TYPE
}

// Kind resolves the action kind: an explicit action wins, then a type field
// carrying CLICK/TYPE, then TYPE when a value is present, else CLICK.
func (p Payload) Kind() (Kind, error) {
	if p.Action != "" {
		return ParseKind(p.Action)
	}
	if k, err := ParseKind(p.Type); err == nil {
		return k, nil
	}
	if p.Value != "" {
		return Type, nil
	}
	return Click, nil
}

// Outcome reports how the target was resolved.
type Outcome struct {
	Found      bool   `json:"found"`
	Candidates int    `json:"candidates"` // elements matching the resolution step that succeeded
	Via        string `json:"via"`        // id, index or text
}

// Ambiguous reports whether more than one element matched; the first in
// document order was used.
func (o Outcome) Ambiguous() bool {
	return o.Candidates > 1
}
