package steps

import (
	"context"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/storage"
)

func init() {
	Register(&StoreDatabaseExecutor{})
}

// StoreDatabaseExecutor writes the current payload to a configured sink
// and passes the payload through unchanged.
type StoreDatabaseExecutor struct{}

func (e *StoreDatabaseExecutor) Type() models.StepType {
	return models.StepTypeStoreDatabase
}

func (e *StoreDatabaseExecutor) Execute(ctx context.Context, _ *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.StoreDatabase
	if cfg.Collection == "" {
		return nil, errors.ValidationError("store database step requires a collection")
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	sink, err := storage.Get(driver)
	if err != nil {
		return nil, err
	}

	records := normalizeRecords(input)
	if err := sink.Store(ctx, cfg.Collection, records); err != nil {
		return nil, err
	}

	return input, nil
}

// normalizeRecords coerces any payload into a record batch: object
// lists pass through, single objects become a one-element batch, and
// scalar values are wrapped under a "value" key.
func normalizeRecords(payload interface{}) []map[string]interface{} {
	switch v := payload.(type) {
	case nil:
		return nil
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if record, ok := item.(map[string]interface{}); ok {
				records = append(records, record)
			} else {
				records = append(records, map[string]interface{}{"value": item})
			}
		}
		return records
	case map[string]interface{}:
		return []map[string]interface{}{v}
	default:
		return []map[string]interface{}{{"value": v}}
	}
}
