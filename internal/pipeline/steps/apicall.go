package steps

import (
	"context"

	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
)

func init() {
	Register(&ApiCallExecutor{})
}

// ApiCallExecutor performs the pipeline's bound function call and
// replaces the current payload with the decoded response.
type ApiCallExecutor struct{}

func (e *ApiCallExecutor) Type() models.StepType {
	return models.StepTypeApiCall
}

func (e *ApiCallExecutor) Execute(ctx context.Context, run *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.ApiCall

	target, err := targetFromContext(run.Context)
	if err != nil {
		return nil, err
	}

	params := target.params
	if len(cfg.ParameterOverrides) > 0 {
		params = params.Clone()
		for name, value := range cfg.ParameterOverrides {
			location := models.ParameterLocationQuery
			if declared := target.function.Parameter(name); declared != nil {
				location = declared.Location
			}
			params.Set(location, name, value)
		}
	}

	payload, err := performCall(ctx, target, params, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return projectResponse(payload, cfg.ResponsePath)
}
