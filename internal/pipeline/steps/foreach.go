package steps

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/fieldpath"
)

func init() {
	Register(&ForEachExecutor{})
}

// maxForEachConcurrency caps whatever bound a step config asks for
var maxForEachConcurrency = 10

// SetMaxForEachConcurrency sets the process-wide concurrency ceiling for
// ForEach steps, usually from FOREACH_MAX_CONCURRENCY
func SetMaxForEachConcurrency(n int) {
	if n > 0 {
		maxForEachConcurrency = n
	}
}

// ForEachExecutor runs its child subtree once per payload item and
// outputs the per-item results in the original item order. Iterations
// run sequentially unless a concurrency bound above one is configured;
// each iteration gets a forked context with "item" and "index" set.
type ForEachExecutor struct{}

func (e *ForEachExecutor) Type() models.StepType {
	return models.StepTypeForEach
}

func (e *ForEachExecutor) Execute(ctx context.Context, run *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.ForEach

	container := input
	if cfg.ItemsPath != "" {
		value, ok := fieldpath.Get(input, cfg.ItemsPath)
		if !ok {
			return nil, errors.ValidationError(fmt.Sprintf("items path %s not found in payload", cfg.ItemsPath))
		}
		container = value
	}

	items, ok := container.([]interface{})
	if !ok {
		return nil, errors.ValidationError("foreach step requires a list payload")
	}

	if len(step.Children) == 0 || len(items) == 0 {
		return items, nil
	}

	bound := cfg.Concurrency
	if bound > maxForEachConcurrency {
		bound = maxForEachConcurrency
	}
	if bound > 1 {
		return e.runConcurrent(ctx, run, step, items, bound)
	}
	return e.runSequential(ctx, run, step, items)
}

func (e *ForEachExecutor) runSequential(ctx context.Context, run *core.Run, step *core.Step, items []interface{}) (interface{}, error) {
	results := make([]interface{}, len(items))

	for i, item := range items {
		output, err := e.runItem(ctx, run, step, item, i)
		if err != nil {
			return nil, err
		}
		results[i] = output
	}

	return results, nil
}

func (e *ForEachExecutor) runConcurrent(ctx context.Context, run *core.Run, step *core.Step, items []interface{}, bound int) (interface{}, error) {
	results := make([]interface{}, len(items))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(bound)

	for i, item := range items {
		i, item := i, item
		group.Go(func() error {
			output, err := e.runItem(groupCtx, run, step, item, i)
			if err != nil {
				return err
			}
			results[i] = output
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *ForEachExecutor) runItem(ctx context.Context, run *core.Run, step *core.Step, item interface{}, index int) (interface{}, error) {
	itemCtx := run.Context.Fork()
	itemCtx.Set(core.KeyItem, item)
	itemCtx.Set(core.KeyIndex, index)

	return run.RunChildren(ctx, itemCtx, step, item)
}
