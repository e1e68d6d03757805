package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v0xg/shadow/internal/ai"
)

var (
	askProvider string
	askModel    string
	askMaxSteps int
)

var askCmd = &cobra.Command{
	Use:   "ask <target> <goal>",
	Short: "Let an LLM browse from target until the goal is reached",
	Long: `ask opens target in the running engine, then repeatedly shows the page
state to an LLM which picks one click or type action at a time.

Example:
  shadow ask "shop.example.com" "find the cheapest pair of running shoes"`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askProvider, "provider", "", "AI provider: claude, openai (default from config)")
	askCmd.Flags().StringVar(&askModel, "model", "", "specific model override")
	askCmd.Flags().IntVar(&askMaxSteps, "max-steps", 0, "action limit (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	name := askProvider
	if name == "" {
		name = cfg.AI.Provider
	}
	model := askModel
	if model == "" {
		model = cfg.AI.Model
	}
	steps := askMaxSteps
	if steps <= 0 {
		steps = cfg.AI.MaxSteps
	}

	provider, err := ai.NewProvider(name, model)
	if err != nil {
		return fmt.Errorf("AI provider init failed: %w", err)
	}

	ctx, stop := callContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "→ Browsing %s via %s\n", args[0], name)
	res, err := ai.Run(ctx, newClient(), provider, args[0], args[1], steps, logger)
	if res != nil {
		for i, s := range res.Steps {
			fmt.Fprintf(out, "  %d. %s %s%s %s\n", i+1, s.Action, s.ID, quoted(s.Value), s.Reason)
		}
		if res.State != nil {
			printState(out, res.State)
		}
	}
	if errors.Is(err, ai.ErrStepLimit) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[WARN] stopped after %d steps\n", steps)
		return nil
	}
	if err != nil {
		return bridgeFailed(cmd, err)
	}
	return nil
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf(" %q", s)
}
