package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/engine"
	"github.com/v0xg/shadow/internal/executor"
	"github.com/v0xg/shadow/internal/history"
)

// ErrBridgeUnavailable means nothing answered on the bridge address.
var ErrBridgeUnavailable = errors.New("could not connect to the Shadow Engine. Is it running?")

// RemoteError is an error reply from the bridge.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge error (%d): %s", e.StatusCode, e.Message)
}

// Client calls a running bridge.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the bridge at addr (host:port). A zero
// timeout leaves requests bounded only by their context.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		baseURL: "http://" + addr + "/",
		http:    &http.Client{Timeout: timeout},
	}
}

// Call sends req and decodes the reply into out (which may be nil).
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w (%v)", ErrBridgeUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return errors.New("empty response from the Shadow Engine")
	}

	if resp.StatusCode != http.StatusOK {
		var e errorReply
		if err := json.Unmarshal(data, &e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &RemoteError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response from the Shadow Engine: %w", err)
	}
	return nil
}

func (c *Client) pageState(ctx context.Context, req Request) (*crawler.PageState, error) {
	var state crawler.PageState
	if err := c.Call(ctx, req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Search navigates to a URL or searches for free text.
func (c *Client) Search(ctx context.Context, target string) (*crawler.PageState, error) {
	return c.pageState(ctx, Request{Command: CmdSearch, Target: target})
}

func (c *Client) Navigate(ctx context.Context, target string) (*crawler.PageState, error) {
	return c.pageState(ctx, Request{Command: CmdNavigate, Target: target})
}

func (c *Client) Action(ctx context.Context, payload executor.Payload) (*crawler.PageState, error) {
	return c.pageState(ctx, Request{Command: CmdAction, Payload: &payload})
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.Call(ctx, Request{Command: CmdStatus}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// History returns up to limit recent visits; limit <= 0 uses the server
// default.
func (c *Client) History(ctx context.Context, limit int) ([]history.Entry, error) {
	req := Request{Command: CmdHistory}
	if limit > 0 {
		req.Target = strconv.Itoa(limit)
	}
	var reply HistoryReply
	if err := c.Call(ctx, req, &reply); err != nil {
		return nil, err
	}
	return reply.Entries, nil
}

func (c *Client) Screenshot(ctx context.Context) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.Call(ctx, Request{Command: CmdScreenshot}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
