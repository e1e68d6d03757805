package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/v0xg/shadow/internal/bridge"
	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/executor"
)

var (
	actionID    string
	actionType  string
	actionText  string
	actionValue string

	historyLimit   int
	screenshotPath string
)

var searchCmd = &cobra.Command{
	Use:   "search <query-or-url>",
	Short: "Open a URL, or search the web for free text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(cmd, args[0], (*bridge.Client).Search)
	},
}

var navigateCmd = &cobra.Command{
	Use:   "navigate <target>",
	Short: "Open a URL or a reserved local page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(cmd, args[0], (*bridge.Client).Navigate)
	},
}

var actionCmd = &cobra.Command{
	Use:   "action <click|type>",
	Short: "Click or type into an element of the current page",
	Long: `Performs a UI action on the page the engine currently shows.

The target is resolved by --id first (DOM id or node-<n> id printed by
search), then by the first element of --type whose text contains --text.

Example:
  shadow action type --id search --value "running shoes"
  shadow action click --type button --text "Add to cart"`,
	Args: cobra.ExactArgs(1),
	RunE: runAction,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the Shadow Engine is running",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently visited pages",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Save a scaled screenshot of the current page",
	Args:  cobra.NoArgs,
	RunE:  runScreenshot,
}

func init() {
	actionCmd.Flags().StringVar(&actionID, "id", "", "element id")
	actionCmd.Flags().StringVar(&actionType, "type", "", "element type (button, link, input, select, heading) or a CSS selector")
	actionCmd.Flags().StringVar(&actionText, "text", "", "substring of the element text")
	actionCmd.Flags().StringVar(&actionValue, "value", "", "text to type")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	screenshotCmd.Flags().StringVarP(&screenshotPath, "output", "o", "shadow.png", "output file")
}

func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// bridgeFailed prints a friendly line when the engine is not running and
// swallows the error; other errors are returned.
func bridgeFailed(cmd *cobra.Command, err error) error {
	if errors.Is(err, bridge.ErrBridgeUnavailable) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[ERROR] %s\n", bridge.ErrBridgeUnavailable)
		fmt.Fprintln(cmd.ErrOrStderr(), "Start it with: shadow serve")
		return nil
	}
	return err
}

type pageCall func(*bridge.Client, context.Context, string) (*crawler.PageState, error)

func browse(cmd *cobra.Command, target string, call pageCall) error {
	ctx, stop := callContext(cmd)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Searching via Shadow Engine: %q...\n", target)
	state, err := call(newClient(), ctx, target)
	if err != nil {
		return bridgeFailed(cmd, err)
	}
	printState(cmd.OutOrStdout(), state)
	return nil
}

func runAction(cmd *cobra.Command, args []string) error {
	kind, err := executor.ParseKind(args[0])
	if err != nil {
		return err
	}
	if actionID == "" && actionText == "" {
		return errors.New("give --id or --text to pick the target")
	}

	ctx, stop := callContext(cmd)
	defer stop()

	state, err := newClient().Action(ctx, executor.Payload{
		ID:     actionID,
		Type:   actionType,
		Text:   actionText,
		Value:  actionValue,
		Action: string(kind),
	})
	if err != nil {
		return bridgeFailed(cmd, err)
	}
	printState(cmd.OutOrStdout(), state)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, stop := callContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	st, err := newClient().Status(ctx)
	if err != nil {
		if errors.Is(err, bridge.ErrBridgeUnavailable) {
			fmt.Fprintln(out, "Shadow Engine: STOPPED (not running)")
			return nil
		}
		return err
	}
	fmt.Fprintln(out, "Shadow Engine: RUNNING")
	fmt.Fprintf(out, "Engine: %s (active: %t)\n", st.Engine, st.Active)
	fmt.Fprintf(out, "Active bridge: http://%s\n", cfg.Bridge.Addr)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, stop := callContext(cmd)
	defer stop()

	entries, err := newClient().History(ctx, historyLimit)
	if err != nil {
		return bridgeFailed(cmd, err)
	}
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func runScreenshot(cmd *cobra.Command, _ []string) error {
	ctx, stop := callContext(cmd)
	defer stop()

	snap, err := newClient().Screenshot(ctx)
	if err != nil {
		return bridgeFailed(cmd, err)
	}
	if err := os.WriteFile(screenshotPath, snap.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %dx%d screenshot of %s to %s\n", snap.Width, snap.Height, snap.URL, screenshotPath)
	return nil
}
