package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/executor"
)

// DefaultMaxSteps bounds a Run when the caller gives no limit.
const DefaultMaxSteps = 20

var ErrStepLimit = errors.New("step limit reached before the goal was done")

// Driver is the browsing surface a Run steers. bridge.Client satisfies it.
type Driver interface {
	Navigate(ctx context.Context, target string) (*crawler.PageState, error)
	Action(ctx context.Context, payload executor.Payload) (*crawler.PageState, error)
}

// Outcome is what a Run did and where it ended up.
type Outcome struct {
	Steps []Step
	State *crawler.PageState
}

// Run opens target and lets p act on each new page state until it answers
// done or maxSteps actions were taken.
func Run(ctx context.Context, d Driver, p Provider, target, goal string, maxSteps int, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	state, err := d.Navigate(ctx, target)
	if err != nil {
		return nil, err
	}
	out := &Outcome{State: state}

	for i := 0; i < maxSteps; i++ {
		step, err := p.NextStep(ctx, out.State, goal, out.Steps)
		if err != nil {
			return out, fmt.Errorf("plan step %d: %w", i+1, err)
		}
		if step.Done() {
			logger.Info("goal done", zap.Int("steps", len(out.Steps)), zap.String("reason", step.Reason))
			return out, nil
		}

		payload, err := step.Payload()
		if err != nil {
			return out, err
		}
		logger.Info("step",
			zap.Int("n", i+1),
			zap.String("action", step.Action),
			zap.String("id", step.ID),
			zap.String("reason", step.Reason))

		next, err := d.Action(ctx, payload)
		if err != nil {
			return out, fmt.Errorf("step %d %s: %w", i+1, step.Action, err)
		}
		out.Steps = append(out.Steps, *step)
		out.State = next
	}
	return out, ErrStepLimit
}
