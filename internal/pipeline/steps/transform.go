package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/expression"
	"api-collector/internal/pipeline/fieldpath"
)

const defaultScriptTimeout = 5 * time.Second

func init() {
	Register(&TransformExecutor{})
}

// TransformExecutor reshapes the payload. The set, delete, rename and
// template operations work field-wise on object payloads and are mapped
// over list payloads element by element. The javascript operation hands
// the whole payload to a script.
type TransformExecutor struct{}

func (e *TransformExecutor) Type() models.StepType {
	return models.StepTypeTransform
}

func (e *TransformExecutor) Execute(ctx context.Context, run *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.Transform

	if cfg.Operation == models.TransformOpJavaScript {
		return e.runScript(ctx, cfg, input)
	}

	if items, ok := input.([]interface{}); ok {
		results := make([]interface{}, len(items))
		for i, item := range items {
			output, err := e.applyOne(run, cfg, item)
			if err != nil {
				return nil, err
			}
			results[i] = output
		}
		return results, nil
	}

	return e.applyOne(run, cfg, input)
}

func (e *TransformExecutor) applyOne(run *core.Run, cfg *models.TransformConfig, payload interface{}) (interface{}, error) {
	doc, ok := payload.(map[string]interface{})
	if !ok {
		return nil, errors.ValidationError(fmt.Sprintf("transform %s requires object payloads", cfg.Operation))
	}
	result := copyDocument(doc)

	switch cfg.Operation {
	case models.TransformOpSet:
		value, err := e.setValue(run, cfg, result)
		if err != nil {
			return nil, err
		}
		fieldpath.Set(result, cfg.Field, value)

	case models.TransformOpDelete:
		fieldpath.Delete(result, cfg.Field)

	case models.TransformOpRename:
		if value, found := fieldpath.Get(result, cfg.From); found {
			fieldpath.Delete(result, cfg.From)
			fieldpath.Set(result, cfg.To, value)
		}

	case models.TransformOpTemplate:
		resolver := payloadResolver{run: run, payload: result}
		for field, template := range cfg.Template {
			rendered, err := expression.ResolveTemplates(template, resolver)
			if err != nil {
				return nil, err
			}
			fieldpath.Set(result, field, rendered)
		}

	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown transform operation: %s", cfg.Operation))
	}

	return result, nil
}

func (e *TransformExecutor) setValue(run *core.Run, cfg *models.TransformConfig, payload map[string]interface{}) (interface{}, error) {
	if cfg.Expression == "" {
		return cfg.Value, nil
	}

	env := run.Context.GetAll()
	env["payload"] = payload

	value, err := expression.Evaluate(cfg.Expression, env)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// runScript executes the javascript operation in a fresh goja runtime
// with the payload bound as "payload". The script's final expression
// value becomes the new payload; undefined keeps the input.
func (e *TransformExecutor) runScript(ctx context.Context, cfg *models.TransformConfig, input interface{}) (interface{}, error) {
	if cfg.Script == "" {
		return nil, errors.ValidationError("javascript transform requires a script")
	}

	timeout := defaultScriptTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	scriptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vm := goja.New()
	vm.Set("payload", input)

	done := make(chan struct{})
	var result goja.Value
	var execErr error

	go func() {
		defer close(done)
		result, execErr = vm.RunString(cfg.Script)
	}()

	select {
	case <-done:
	case <-scriptCtx.Done():
		vm.Interrupt("script timeout")
		<-done
		return nil, errors.TimeoutError("javascript transform")
	}

	if execErr != nil {
		return nil, errors.ValidationError(fmt.Sprintf("script error: %v", execErr))
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return input, nil
	}
	return result.Export(), nil
}

func copyDocument(doc map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		result[k] = v
	}
	return result
}

// payloadResolver resolves template paths against the payload first,
// then the execution context.
type payloadResolver struct {
	run     *core.Run
	payload map[string]interface{}
}

func (r payloadResolver) GetPath(path string) (interface{}, bool) {
	if value, ok := fieldpath.Get(r.payload, path); ok {
		return value, true
	}
	return r.run.Context.GetPath(path)
}
