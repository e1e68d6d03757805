// Package render owns the headless rendering surface. It is the only
// package that talks to the browser engine; everything else drives pages
// through the Surface interface.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Surface is one off-screen, script-capable page.
type Surface interface {
	// EnsureOpen creates the surface on first call and is a no-op afterwards.
	EnsureOpen(ctx context.Context) error
	// Opened reports whether EnsureOpen has succeeded.
	Opened() bool
	// Load navigates to an already resolved URL.
	Load(ctx context.Context, url string) error
	// WaitUntilSettled waits for the load event, bounded by a timeout, and
	// then for the settle delay.
	WaitUntilSettled(ctx context.Context) error
	// Evaluate runs a function expression with JSON-serializable args and
	// returns its JSON result. An exception thrown inside the page is
	// returned as the value {"error": message} with a nil error.
	Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error)
	// CurrentURL returns the live URL of the page.
	CurrentURL(ctx context.Context) (string, error)
	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

var (
	// ErrSettleTimeout is returned by WaitUntilSettled when the page keeps
	// loading past the load timeout.
	ErrSettleTimeout = errors.New("page still loading after timeout")
	// ErrNotOpen is returned by page operations before EnsureOpen.
	ErrNotOpen = errors.New("render surface not open")
)

// ErrorValue builds the {"error": message} result used for in-page exceptions.
func ErrorValue(message string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"error": message})
	return raw
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
