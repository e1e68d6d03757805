package crawler

// ElementType is the tag class of a semantic element.
type ElementType string

const (
	TypeHeading ElementType = "heading"
	TypeLink    ElementType = "link"
	TypeButton  ElementType = "button"
	TypeInput   ElementType = "input"
	TypeSelect  ElementType = "select"
	TypeOther   ElementType = "other"
)

// Intent is what a caller can do with an element.
type Intent string

const (
	IntentView       Intent = "view"
	IntentAction     Intent = "action"
	IntentNavigation Intent = "navigation"
	IntentInput      Intent = "input"
)

// PageType is the coarse classification of a page.
type PageType string

const (
	PageEcommerce     PageType = "ecommerce"
	PageInformational PageType = "informational"
	PageGeneral       PageType = "general"
)

// PageState is the semantic summary of a loaded page
type PageState struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PageType    PageType  `json:"page_type"`
	MainGoal    string    `json:"main_goal"`
	Description string    `json:"description"`
	Elements    []Element `json:"elements"`
	Entities    []Entity  `json:"entities"`
}

// Element is a page node reduced to what an agent needs to read or act on it
type Element struct {
	Type   ElementType `json:"type"`
	Text   string      `json:"text"`
	ID     string      `json:"id"`
	Intent Intent      `json:"intent"`
	Href   string      `json:"href,omitempty"`
	Role   string      `json:"role,omitempty"`
}

// Entity is a typed value found in the page text
type Entity struct {
	Type  string `json:"type"` // price
	Value string `json:"value"`
}
