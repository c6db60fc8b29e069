package steps

import (
	"context"
	"time"

	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
)

func init() {
	Register(&RetryExecutor{})
}

// RetryExecutor runs its child subtree up to MaxAttempts times,
// sleeping between attempts per the configured backoff. A failure in
// any descendant only aborts the current attempt; the last attempt's
// error propagates if they all fail.
type RetryExecutor struct{}

func (e *RetryExecutor) Type() models.StepType {
	return models.StepTypeRetry
}

func (e *RetryExecutor) Execute(ctx context.Context, run *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.Retry

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	if len(step.Children) == 0 {
		return input, nil
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		run.ReportAttempts(attempt)

		output, err := run.RunChildren(ctx, run.Context, step, input)
		if err == nil {
			return output, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		logging.Warn("retry attempt failed",
			logging.String("step_id", step.ID),
			logging.Int("attempt", attempt),
			logging.Duration("next_delay", delay),
			logging.Err(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errors.StepExecutionError(step.ID, string(step.Type), "execution canceled", ctx.Err())
		}
	}

	return nil, lastErr
}

// backoffDelay computes the sleep before the next attempt. attempt is
// the 1-based number of the attempt that just failed.
func backoffDelay(cfg *models.RetryConfig, attempt int) time.Duration {
	base := cfg.DelayDuration()

	var delay time.Duration
	switch cfg.Backoff {
	case models.RetryBackoffLinear:
		delay = base * time.Duration(attempt)
	case models.RetryBackoffExponential:
		delay = base << (attempt - 1)
	default:
		delay = base
	}

	if cap := cfg.MaxDelayDuration(); cap > 0 && delay > cap {
		delay = cap
	}
	return delay
}
