package main

import (
	"bytes"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0xg/shadow/internal/bridge"
	"github.com/v0xg/shadow/internal/config"
	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/engine"
	"github.com/v0xg/shadow/internal/history"
	"github.com/v0xg/shadow/internal/render/rendertest"
)

// startBridge serves a bridge over a fake surface and points the CLI
// globals at it.
func startBridge(t *testing.T, s *rendertest.Surface) {
	t.Helper()
	logger = zap.NewNop()

	eng := engine.New(s, engine.WithActionSettle(0))
	srv, err := bridge.NewServer(eng, bridge.Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg = config.Default()
	cfg.Bridge.Addr = strings.TrimPrefix(ts.URL, "http://")
	timeout = 5 * time.Second
}

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestStatusCmd(t *testing.T) {
	startBridge(t, &rendertest.Surface{})
	cmd, out, _ := newTestCmd()

	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, out.String(), "Shadow Engine: RUNNING")
	assert.Contains(t, out.String(), "Active bridge: http://"+cfg.Bridge.Addr)
}

func TestStatusCmdStopped(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg = config.Default()
	cfg.Bridge.Addr = ln.Addr().String()
	require.NoError(t, ln.Close())

	cmd, out, _ := newTestCmd()
	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, out.String(), "STOPPED")
}

func TestSearchCmd(t *testing.T) {
	startBridge(t, &rendertest.Surface{Default: rendertest.Page{
		Title:       "Shop",
		PageType:    "ecommerce",
		Description: "Shoes and more",
		Text:        "Sale $19.99",
		Nodes: []rendertest.Node{
			{Tag: "h1", Text: "Running shoes"},
			{Tag: "button", Text: "Add to cart", ID: "add"},
		},
	}})
	cmd, out, _ := newTestCmd()

	require.NoError(t, searchCmd.RunE(cmd, []string{"shop.example.com"}))
	got := out.String()
	assert.Contains(t, got, "### [Page Context: Shop]")
	assert.Contains(t, got, "> Shoes and more")
	assert.Contains(t, got, "- **Goal**: purchase_or_research")
	assert.Contains(t, got, "  - price: $19.99")
	assert.Contains(t, got, "  - [ACTION] Add to cart (ID: add)")
}

func TestSearchCmdBridgeDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg = config.Default()
	cfg.Bridge.Addr = ln.Addr().String()
	require.NoError(t, ln.Close())

	cmd, _, errOut := newTestCmd()
	require.NoError(t, navigateCmd.RunE(cmd, []string{"example.com"}))
	assert.Contains(t, errOut.String(), "could not connect to the Shadow Engine")
}

func TestActionCmd(t *testing.T) {
	s := &rendertest.Surface{}
	startBridge(t, s)
	cmd, _, _ := newTestCmd()

	require.NoError(t, searchCmd.RunE(cmd, []string{"example.com"}))

	actionID, actionValue = "q", "socks"
	t.Cleanup(func() { actionID, actionValue = "", "" })
	require.NoError(t, runAction(cmd, []string{"type"}))

	actions := s.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "TYPE", actions[0]["kind"])
	assert.Equal(t, "socks", actions[0]["value"])

	assert.Error(t, runAction(cmd, []string{"hover"}))
}

func TestActionCmdNeedsTarget(t *testing.T) {
	cmd, _, _ := newTestCmd()
	assert.Error(t, runAction(cmd, []string{"click"}))
}

func TestScreenshotCmd(t *testing.T) {
	startBridge(t, &rendertest.Surface{})
	cmd, out, _ := newTestCmd()
	require.NoError(t, searchCmd.RunE(cmd, []string{"example.com"}))

	screenshotPath = filepath.Join(t.TempDir(), "shot.png")
	t.Cleanup(func() { screenshotPath = "shadow.png" })
	require.NoError(t, runScreenshot(cmd, nil))

	data, err := os.ReadFile(screenshotPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, out.String(), "Saved 800x450 screenshot")
}

func TestPrintStateEmpty(t *testing.T) {
	var buf bytes.Buffer
	printState(&buf, &crawler.PageState{URL: "about:blank"})

	got := buf.String()
	assert.Contains(t, got, "No Title Found")
	assert.Contains(t, got, "- **Type**: unknown")
	assert.Contains(t, got, "[INFO] No semantic elements identified on this page.")
}

func TestPrintStateTopFive(t *testing.T) {
	state := &crawler.PageState{Title: "Links", PageType: crawler.PageGeneral, MainGoal: "information_gathering"}
	for i := 0; i < 8; i++ {
		state.Elements = append(state.Elements, crawler.Element{
			Type: crawler.TypeLink, Text: "link", ID: "node-" + string(rune('0'+i)), Intent: crawler.IntentNavigation,
		})
	}

	var buf bytes.Buffer
	printState(&buf, state)
	assert.Contains(t, buf.String(), "Top 5 of 8")
	assert.Equal(t, 5, strings.Count(buf.String(), "[NAVIGATION]"))
	assert.NotContains(t, buf.String(), "node-5")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No pages visited yet")

	buf.Reset()
	printHistory(&buf, []history.Entry{{URL: "https://a.example", Title: "A", PageType: "general", VisitedAt: time.Now()}})
	assert.Contains(t, buf.String(), "https://a.example  A")
}

func TestInstallAlias(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")
	require.NoError(t, os.WriteFile(rc, []byte("export PATH=$PATH:/opt/bin\n"), 0o644))

	added, err := installAlias(rc, "/usr/local/bin/shadow")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = installAlias(rc, "/usr/local/bin/shadow")
	require.NoError(t, err)
	assert.False(t, added)

	data, err := os.ReadFile(rc)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "alias shadow="))
	assert.True(t, strings.HasPrefix(string(data), "export PATH"))
	assert.Contains(t, string(data), "alias shadow='/usr/local/bin/shadow'")
}

func TestInstallAliasCreatesFile(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")

	added, err := installAlias(rc, "/bin/shadow")
	require.NoError(t, err)
	assert.True(t, added)
	assert.FileExists(t, rc)
}
