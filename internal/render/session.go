package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Options configures the headless browser behind a Session.
type Options struct {
	Bin         string // browser binary; looked up on PATH when empty
	Headless    bool
	ProfileDir  string // Chrome/Chromium profile directory for authenticated sessions
	Width       int
	Height      int
	LoadTimeout time.Duration // upper bound for the load-complete wait
	SettleDelay time.Duration // fixed wait after load for client-side rendering
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Headless:    true,
		Width:       1280,
		Height:      720,
		LoadTimeout: 30 * time.Second,
		SettleDelay: 3 * time.Second,
	}
}

var _ Surface = (*Session)(nil)

// Session is a Surface backed by a single go-rod page.
type Session struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

// NewSession creates a Session. Nothing is launched until EnsureOpen.
func NewSession(opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{opts: opts, logger: logger}
}

// EnsureOpen launches the browser and opens the page once per process.
func (s *Session) EnsureOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return nil
	}

	bin := s.opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	l := launcher.New().
		Headless(s.opts.Headless).
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check")
	if bin != "" {
		l = l.Bin(bin)
	}
	if s.opts.ProfileDir != "" {
		l = l.UserDataDir(s.opts.ProfileDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("open page: %w", err)
	}

	if s.opts.Width > 0 && s.opts.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             s.opts.Width,
			Height:            s.opts.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = browser.Close()
			return fmt.Errorf("set viewport: %w", err)
		}
	}

	s.logger.Info("render surface opened",
		zap.String("cdp", controlURL),
		zap.Bool("headless", s.opts.Headless))

	s.browser = browser
	s.page = page
	return nil
}

// Opened reports whether the page exists.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page != nil
}

// Load navigates the page. The returned error carries the browser's reason.
func (s *Session) Load(ctx context.Context, url string) error {
	page, err := s.current()
	if err != nil {
		return err
	}
	return page.Context(ctx).Navigate(url)
}

// WaitUntilSettled waits for the load event for at most LoadTimeout, then
// sleeps SettleDelay so deferred client-side rendering can finish.
func (s *Session) WaitUntilSettled(ctx context.Context) error {
	page, err := s.current()
	if err != nil {
		return err
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	if err := page.Context(loadCtx).WaitLoad(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrSettleTimeout
		}
		return fmt.Errorf("wait for load: %w", err)
	}

	return Sleep(ctx, s.opts.SettleDelay)
}

// Evaluate runs script with args passed as structured JSON arguments.
func (s *Session) Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	page, err := s.current()
	if err != nil {
		return nil, err
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           script,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		var evalErr *rod.EvalError
		if errors.As(err, &evalErr) {
			return ErrorValue(evalErr.Error()), nil
		}
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if res == nil {
		return json.RawMessage("null"), nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode evaluation result: %w", err)
	}
	return raw, nil
}

// CurrentURL returns the URL the page is showing now.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	page, err := s.current()
	if err != nil {
		return "", err
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	page, err := s.current()
	if err != nil {
		return nil, err
	}
	return page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close cleans up browser resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func (s *Session) current() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, ErrNotOpen
	}
	return s.page, nil
}
