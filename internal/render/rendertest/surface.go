// Package rendertest provides an in-memory render.Surface for tests.
package rendertest

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/v0xg/shadow/internal/render"
)

// Page is the document the fake serves for a URL.
type Page struct {
	Title       string
	PageType    string
	Description string
	Nodes       []Node
	Text        string
}

// Node is one extraction candidate.
type Node struct {
	Tag      string
	Text     string
	ID       string
	Href     string
	ZeroSize bool
}

// Surface is a scriptable render.Surface. Exported fields must be set
// before the surface is shared between goroutines.
type Surface struct {
	Pages   map[string]Page // keyed by resolved URL
	Default Page            // served for unknown URLs

	OpenErr    error
	LoadErr    error
	SettleErr  error
	EvalErr    error  // transport failure for every Evaluate
	ExtractErr string // in-page exception raised by extraction

	// Action is the action script result; "not found" when nil.
	Action json.RawMessage
	// Navigate, when set, is where a found action takes the page.
	Navigate string
	// OnLoad runs inside Load, outside the lock; it may block.
	OnLoad func(url string)

	mu          sync.Mutex
	opened      bool
	closed      bool
	current     string
	loads       []string
	actions     []map[string]any
	active      int
	maxActive   int
	extractions int
}

var _ render.Surface = (*Surface)(nil)

func (s *Surface) EnsureOpen(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.opened = true
	return nil
}

func (s *Surface) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Surface) Load(ctx context.Context, url string) error {
	s.mu.Lock()
	s.loads = append(s.loads, url)
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	hook := s.OnLoad
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		s.active--
		return s.LoadErr
	}
	s.current = url
	return ctx.Err()
}

func (s *Surface) WaitUntilSettled(context.Context) error {
	return s.SettleErr
}

func (s *Surface) Evaluate(_ context.Context, _ string, args ...any) (json.RawMessage, error) {
	if s.EvalErr != nil {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		return nil, s.EvalErr
	}

	var req map[string]any
	if len(args) > 0 {
		req, _ = args[0].(map[string]any)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := req["kind"]; ok {
		s.actions = append(s.actions, req)
		if s.Action == nil {
			return json.RawMessage(`{"found":false,"candidates":0,"via":""}`), nil
		}
		if s.Navigate != "" {
			s.current = s.Navigate
		}
		return s.Action, nil
	}

	s.extractions++
	s.active--
	if s.ExtractErr != "" {
		return render.ErrorValue(s.ExtractErr), nil
	}
	return json.Marshal(s.render(s.current))
}

func (s *Surface) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

// Screenshot returns a 1600x900 solid PNG.
func (s *Surface) Screenshot(context.Context) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1600, 900))
	for y := 0; y < 900; y++ {
		for x := 0; x < 1600; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 11, B: 14, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.opened = false
	return nil
}

// Loads returns the URLs passed to Load, in order.
func (s *Surface) Loads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loads...)
}

// Actions returns the arguments of every action script run.
func (s *Surface) Actions() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.actions...)
}

// Extractions counts extraction script runs.
func (s *Surface) Extractions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extractions
}

// MaxActive is the highest number of navigations seen between Load and
// extraction at the same time.
func (s *Surface) MaxActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

// Closed reports whether Close was called.
func (s *Surface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Surface) render(url string) map[string]any {
	page, ok := s.Pages[url]
	if !ok {
		page = s.Default
	}
	pageType := page.PageType
	if pageType == "" {
		pageType = "general"
	}

	nodes := make([]map[string]any, 0, len(page.Nodes))
	for i, n := range page.Nodes {
		nodes = append(nodes, map[string]any{
			"index":     i,
			"tag":       n.Tag,
			"text":      n.Text,
			"dom_id":    n.ID,
			"href":      n.Href,
			"role":      "",
			"zero_size": n.ZeroSize,
		})
	}

	return map[string]any{
		"url":         url,
		"title":       page.Title,
		"page_type":   pageType,
		"description": page.Description,
		"nodes":       nodes,
		"text":        page.Text,
	}
}
