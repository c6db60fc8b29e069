package steps

import (
	"context"
	"fmt"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/expression"
)

func init() {
	Register(&FilterExecutor{})
}

// FilterExecutor keeps the payload items whose condition evaluates
// truthy. The condition sees each element as "item" with its position
// as "index", on top of the execution context values.
type FilterExecutor struct{}

func (e *FilterExecutor) Type() models.StepType {
	return models.StepTypeFilter
}

func (e *FilterExecutor) Execute(ctx context.Context, run *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.Filter
	if cfg.Condition == "" {
		return nil, errors.ValidationError("filter step requires a condition")
	}

	items, isList := input.([]interface{})
	if !isList {
		// single payloads are filtered as a whole
		pass, err := e.matches(run, cfg.Condition, input, 0)
		if err != nil {
			return nil, err
		}
		if pass {
			return input, nil
		}
		return nil, nil
	}

	kept := make([]interface{}, 0, len(items))
	for i, item := range items {
		pass, err := e.matches(run, cfg.Condition, item, i)
		if err != nil {
			return nil, err
		}
		if pass {
			kept = append(kept, item)
		}
	}

	return kept, nil
}

func (e *FilterExecutor) matches(run *core.Run, condition string, item interface{}, index int) (bool, error) {
	env := run.Context.GetAll()
	env[core.KeyItem] = item
	env[core.KeyIndex] = index

	pass, err := expression.EvaluateBool(condition, env)
	if err != nil {
		return false, fmt.Errorf("filter condition failed: %w", err)
	}
	return pass, nil
}
