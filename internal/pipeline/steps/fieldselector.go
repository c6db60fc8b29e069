package steps

import (
	"context"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/fieldpath"
)

func init() {
	Register(&FieldSelectorExecutor{})
}

// FieldSelectorExecutor projects object payloads onto the configured
// field paths, mapped element-wise over list payloads. Fields that do
// not resolve are dropped silently.
type FieldSelectorExecutor struct{}

func (e *FieldSelectorExecutor) Type() models.StepType {
	return models.StepTypeFieldSelector
}

func (e *FieldSelectorExecutor) Execute(_ context.Context, _ *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.FieldSelector
	if len(cfg.Fields) == 0 {
		return nil, errors.ValidationError("field selector requires at least one field")
	}

	if items, ok := input.([]interface{}); ok {
		results := make([]interface{}, len(items))
		for i, item := range items {
			selected, err := selectFields(item, cfg.Fields)
			if err != nil {
				return nil, err
			}
			results[i] = selected
		}
		return results, nil
	}

	return selectFields(input, cfg.Fields)
}

func selectFields(payload interface{}, fields []string) (interface{}, error) {
	doc, ok := payload.(map[string]interface{})
	if !ok {
		return nil, errors.ValidationError("field selector requires object payloads")
	}
	return fieldpath.Select(doc, fields), nil
}
