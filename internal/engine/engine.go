// Package engine drives the shadow browsing session: it loads pages on the
// render surface, extracts and compresses their semantic state, and performs
// UI actions. All surface access is serialized through one FIFO queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/v0xg/shadow/internal/compressor"
	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/executor"
	"github.com/v0xg/shadow/internal/render"
	"github.com/v0xg/shadow/internal/thumb"
)

// DefaultActionSettle is the wait after an action before re-extraction.
const DefaultActionSettle = 2 * time.Second

// ErrNoActiveSession is returned when an action or screenshot is requested
// before any page was loaded.
var ErrNoActiveSession = errors.New("no active shadow session")

// NavigationError reports a page that could not be loaded.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Recorder receives every state the engine returns from a navigation.
type Recorder interface {
	Record(ctx context.Context, state *crawler.PageState) error
}

// Snapshot is a shrunken screenshot of the current page.
type Snapshot struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    []byte `json:"png"`
}

// Engine owns the render surface for the lifetime of the process.
type Engine struct {
	surface      render.Surface
	queue        *semaphore.Weighted
	logger       *zap.Logger
	recorder     Recorder
	aliases      map[string]string
	compression  compressor.Options
	actionSettle time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder records every successful navigation.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithAliases sets reserved local page names.
func WithAliases(aliases map[string]string) Option {
	return func(e *Engine) { e.aliases = aliases }
}

// WithCompression overrides compression options.
func WithCompression(opts compressor.Options) Option {
	return func(e *Engine) { e.compression = opts }
}

// WithActionSettle sets the wait after an action.
func WithActionSettle(d time.Duration) Option {
	return func(e *Engine) { e.actionSettle = d }
}

// New creates an Engine around surface. The surface is opened lazily.
func New(surface render.Surface, opts ...Option) *Engine {
	e := &Engine{
		surface:      surface,
		queue:        semaphore.NewWeighted(1),
		logger:       zap.NewNop(),
		compression:  compressor.DefaultOptions(),
		actionSettle: DefaultActionSettle,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Navigate loads target and returns its compressed semantic state.
func (e *Engine) Navigate(ctx context.Context, target string) (*crawler.PageState, error) {
	if err := e.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.queue.Release(1)

	return e.navigate(ctx, target)
}

// ExecuteAction performs kind against the element described by payload,
// waits for the page to react and returns the new state. A target that
// cannot be found is logged and the page is re-read unchanged.
func (e *Engine) ExecuteAction(ctx context.Context, kind executor.Kind, payload executor.Payload) (*crawler.PageState, error) {
	if err := e.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.queue.Release(1)

	if !e.surface.Opened() {
		return nil, ErrNoActiveSession
	}

	log := e.logger.With(
		zap.String("action", string(kind)),
		zap.String("id", payload.ID),
		zap.String("type", payload.Type),
		zap.String("text", payload.Text))

	outcome, err := executor.Perform(ctx, e.surface, kind, payload)
	if err != nil {
		return nil, fmt.Errorf("perform %s: %w", kind, err)
	}
	if err := outcome.Err(); err != nil {
		log.Warn("action target", zap.Error(err), zap.String("via", outcome.Via))
	} else {
		log.Debug("action performed", zap.String("via", outcome.Via))
	}

	if err := render.Sleep(ctx, e.actionSettle); err != nil {
		return nil, err
	}

	current, err := e.surface.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current url: %w", err)
	}
	return e.navigate(ctx, current)
}

// Screenshot captures the current page scaled to at most maxWidth.
func (e *Engine) Screenshot(ctx context.Context, maxWidth uint) (*Snapshot, error) {
	if err := e.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.queue.Release(1)

	if !e.surface.Opened() {
		return nil, ErrNoActiveSession
	}

	data, err := e.surface.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	img, err := thumb.Shrink(data, maxWidth)
	if err != nil {
		return nil, err
	}
	current, err := e.surface.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current url: %w", err)
	}
	return &Snapshot{URL: current, Width: img.Width, Height: img.Height, PNG: img.PNG}, nil
}

// Close tears the render surface down.
func (e *Engine) Close() error {
	return e.surface.Close()
}

// navigate must be called while holding the queue.
func (e *Engine) navigate(ctx context.Context, target string) (*crawler.PageState, error) {
	resolved, err := render.ResolveURL(target, e.aliases)
	if err != nil {
		return nil, &NavigationError{URL: target, Err: err}
	}

	if err := e.surface.EnsureOpen(ctx); err != nil {
		return nil, &NavigationError{URL: resolved, Err: err}
	}

	log := e.logger.With(zap.String("url", resolved))
	log.Info("navigating")
	start := time.Now()

	if err := e.surface.Load(ctx, resolved); err != nil {
		return nil, &NavigationError{URL: resolved, Err: err}
	}

	if err := e.surface.WaitUntilSettled(ctx); err != nil {
		if !errors.Is(err, render.ErrSettleTimeout) {
			return nil, &NavigationError{URL: resolved, Err: err}
		}
		log.Warn("page still loading, extracting anyway")
	}

	res := crawler.Extract(ctx, e.surface)
	if res.Degraded != nil {
		log.Warn("extraction degraded", zap.Error(res.Degraded))
	}
	state := compressor.Compress(res.State, e.compression)

	log.Info("page extracted",
		zap.String("title", state.Title),
		zap.String("page_type", string(state.PageType)),
		zap.Int("elements", len(state.Elements)),
		zap.Duration("took", time.Since(start)))

	if e.recorder != nil && res.Degraded == nil {
		if err := e.recorder.Record(ctx, state); err != nil {
			log.Warn("history not recorded", zap.Error(err))
		}
	}
	return state, nil
}
