// Package bridge exposes the engine to other processes over a loopback
// HTTP endpoint speaking a small JSON command protocol.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/engine"
	"github.com/v0xg/shadow/internal/executor"
	"github.com/v0xg/shadow/internal/history"
	"github.com/v0xg/shadow/internal/render"
	"github.com/v0xg/shadow/internal/thumb"
)

const (
	DefaultAddr = "127.0.0.1:3030"

	// MaxBodyBytes caps a request body; larger bodies are malformed.
	MaxBodyBytes = 1 << 20

	EngineName = "Shadow Engine"
)

// Commands understood by the bridge.
const (
	CmdSearch     = "search"
	CmdNavigate   = "navigate"
	CmdAction     = "action"
	CmdStatus     = "status"
	CmdHistory    = "history"
	CmdScreenshot = "screenshot"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrNotLoopback      = errors.New("bridge address must be loopback")
	ErrNoHistory        = errors.New("history is not enabled")
)

// Request is the body of every bridge call.
type Request struct {
	Command string            `json:"command"`
	Target  string            `json:"target,omitempty"`
	Payload *executor.Payload `json:"payload,omitempty"`
}

// Status is the reply to the status command.
type Status struct {
	Status string `json:"status"`
	Engine string `json:"engine,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// HistoryReply is the reply to the history command.
type HistoryReply struct {
	Entries []history.Entry `json:"entries"`
}

type errorReply struct {
	Error string `json:"error"`
}

// Browser is the part of the engine the bridge drives.
type Browser interface {
	Navigate(ctx context.Context, target string) (*crawler.PageState, error)
	ExecuteAction(ctx context.Context, kind executor.Kind, payload executor.Payload) (*crawler.PageState, error)
	Screenshot(ctx context.Context, maxWidth uint) (*engine.Snapshot, error)
}

// HistoryReader lists recent navigations.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	SearchEngine    string            // "duckduckgo" (default) or "google"
	Aliases         map[string]string // reserved names search passes through
	ScreenshotWidth uint
	History         HistoryReader // nil disables the history command
	Logger          *zap.Logger
}

type Server struct {
	browser Browser
	opts    Options
	logger  *zap.Logger
}

// NewServer validates opts and builds a Server. Only loopback addresses
// are accepted.
func NewServer(browser Browser, opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if err := checkLoopback(opts.Addr); err != nil {
		return nil, err
	}
	if opts.ScreenshotWidth == 0 {
		opts.ScreenshotWidth = thumb.DefaultMaxWidth
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{browser: browser, opts: opts, logger: logger}, nil
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid bridge address %q: %w", addr, err)
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotLoopback, addr)
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.opts.Addr }

// Handler returns the bridge HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCommand)
	return mux
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("bridge shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, errorReply{Error: "Not found"})
		return
	}

	log := s.logger.With(zap.String("request_id", uuid.NewString()))
	start := time.Now()

	req, err := decodeRequest(w, r)
	if err != nil {
		log.Warn("bad bridge request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: err.Error()})
		return
	}
	log = log.With(zap.String("command", req.Command))

	result, err := s.dispatch(r.Context(), req)
	if err != nil {
		log.Error("bridge command failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: err.Error()})
		return
	}
	log.Info("bridge command", zap.Duration("took", time.Since(start)))
	writeJSON(w, http.StatusOK, result)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*Request, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return &req, nil
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Command {
	case CmdSearch:
		target, err := requireTarget(req)
		if err != nil {
			return nil, err
		}
		return s.browser.Navigate(ctx, s.searchTarget(target))

	case CmdNavigate:
		target, err := requireTarget(req)
		if err != nil {
			return nil, err
		}
		return s.browser.Navigate(ctx, target)

	case CmdAction:
		if req.Payload == nil {
			return nil, fmt.Errorf("%w: action requires a payload", ErrMalformedRequest)
		}
		kind, err := req.Payload.Kind()
		if err != nil {
			return nil, err
		}
		return s.browser.ExecuteAction(ctx, kind, *req.Payload)

	case CmdStatus:
		return Status{Status: "ok", Engine: EngineName, Active: true}, nil

	case CmdHistory:
		if s.opts.History == nil {
			return nil, ErrNoHistory
		}
		limit := 0
		if t := strings.TrimSpace(req.Target); t != "" {
			n, err := strconv.Atoi(t)
			if err != nil {
				return nil, fmt.Errorf("%w: history limit %q", ErrMalformedRequest, t)
			}
			limit = n
		}
		entries, err := s.opts.History.Recent(ctx, limit)
		if err != nil {
			return nil, err
		}
		return HistoryReply{Entries: entries}, nil

	case CmdScreenshot:
		return s.browser.Screenshot(ctx, s.opts.ScreenshotWidth)

	default:
		return Status{Status: "unknown_command"}, nil
	}
}

// searchTarget keeps URLs and reserved aliases loadable and turns free text
// into a search engine query.
func (s *Server) searchTarget(target string) string {
	if _, ok := render.LookupAlias(target, s.opts.Aliases); ok || render.LooksLikeURL(target) {
		return target
	}
	return render.SearchURL(target, s.opts.SearchEngine)
}

func requireTarget(req *Request) (string, error) {
	t := strings.TrimSpace(req.Target)
	if t == "" {
		return "", fmt.Errorf("%w: %s requires a target", ErrMalformedRequest, req.Command)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
