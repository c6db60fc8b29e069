package core

import (
	"context"
	"sync"
	"time"

	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
)

// Executor walks a step tree depth-first. Siblings run sequentially in
// order, each consuming the previous sibling's output. A step's children
// run as a sub-pipeline over the step's own output, and the last child's
// output becomes the step's effective output. The first failure aborts
// the remaining siblings.
type Executor struct {
	registry Registry
	logger   logging.Logger
}

// NewExecutor creates an executor backed by the given step registry
func NewExecutor(registry Registry) *Executor {
	return &Executor{
		registry: registry,
		logger:   logging.GetGlobalLogger(),
	}
}

// Run carries per-execution state through the recursion. Retry and
// ForEach executors call RunChildren to drive their subtrees; results
// reported there are attached to the owning step's result node.
type Run struct {
	executor *Executor
	Context  *Context

	mu    sync.Mutex
	frame *stepFrame
}

type stepFrame struct {
	children []models.StepResult
	attempts int
}

// Execute runs a sibling sequence against the initial input and returns
// the final output plus one result node per sibling.
func (e *Executor) Execute(ctx context.Context, runCtx *Context, steps []*Step, input interface{}) (interface{}, []models.StepResult, error) {
	run := &Run{executor: e, Context: runCtx}
	return run.runSequence(ctx, steps, input)
}

// RunChildren executes a step's child sequence with a fresh frame stack
// and records the child results on the calling step. Safe to call
// concurrently from a single step's executor.
func (r *Run) RunChildren(ctx context.Context, runCtx *Context, step *Step, input interface{}) (interface{}, error) {
	sub := &Run{executor: r.executor, Context: runCtx}
	output, results, err := sub.runSequence(ctx, step.Children, input)
	r.reportChildren(results)
	return output, err
}

// ReportAttempts records how many attempts the current step consumed
func (r *Run) ReportAttempts(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame != nil {
		r.frame.attempts = n
	}
}

func (r *Run) reportChildren(results []models.StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame != nil {
		r.frame.children = append(r.frame.children, results...)
	}
}

func (r *Run) runSequence(ctx context.Context, steps []*Step, input interface{}) (interface{}, []models.StepResult, error) {
	results := make([]models.StepResult, 0, len(steps))
	current := input

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return current, results, errors.StepExecutionError(step.ID, string(step.Type), "execution canceled", err)
		}

		if !step.Enabled {
			results = append(results, models.StepResult{
				StepID:   step.ID,
				StepName: step.Name,
				StepType: step.Type,
				Success:  true,
				Skipped:  true,
			})
			continue
		}

		output, result, err := r.runStep(ctx, step, current)
		results = append(results, result)
		if err != nil {
			return current, results, err
		}
		current = output
	}

	return current, results, nil
}

func (r *Run) runStep(ctx context.Context, step *Step, input interface{}) (interface{}, models.StepResult, error) {
	started := time.Now()
	result := models.StepResult{
		StepID:    step.ID,
		StepName:  step.Name,
		StepType:  step.Type,
		Attempts:  1,
		StartedAt: started,
	}

	executor, found := r.executor.registry.Executor(step.Type)
	if !found {
		err := errors.StepExecutionError(step.ID, string(step.Type), "no executor registered for step type", nil)
		return nil, finalize(result, started, err), err
	}

	r.mu.Lock()
	parent := r.frame
	frame := &stepFrame{}
	r.frame = frame
	r.mu.Unlock()

	output, err := executor.Execute(ctx, r, step, input)

	r.mu.Lock()
	r.frame = parent
	r.mu.Unlock()

	result.Children = frame.children
	if frame.attempts > 0 {
		result.Attempts = frame.attempts
	}

	// Steps that do not manage their own children get the generic
	// sub-pipeline behavior: children consume the step's output.
	if err == nil && len(step.Children) > 0 && !managesChildren(step.Type) {
		sub := &Run{executor: r.executor, Context: r.Context}
		childOutput, childResults, childErr := sub.runSequence(ctx, step.Children, output)
		result.Children = append(result.Children, childResults...)
		if childErr != nil {
			err = childErr
		} else {
			output = childOutput
		}
	}

	if err != nil {
		err = wrapStepError(step, err)
		r.executor.logger.Error("step failed", err,
			logging.String("step_id", step.ID),
			logging.String("step_type", string(step.Type)),
		)
		return nil, finalize(result, started, err), err
	}

	r.executor.logger.Debug("step completed",
		logging.String("step_id", step.ID),
		logging.String("step_type", string(step.Type)),
		logging.Duration("duration", time.Since(started)),
	)

	return output, finalize(result, started, nil), nil
}

func finalize(result models.StepResult, started time.Time, err error) models.StepResult {
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(started)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// managesChildren reports whether a step type drives its own subtree
// instead of the generic children-as-sub-pipeline behavior.
func managesChildren(stepType models.StepType) bool {
	return stepType == models.StepTypeRetry || stepType == models.StepTypeForEach
}

// wrapStepError tags an error with the failing step unless an inner
// step already claimed it.
func wrapStepError(step *Step, err error) error {
	if errors.IsType(err, errors.ErrTypeStepExecution) {
		return err
	}
	return errors.StepExecutionError(step.ID, string(step.Type), err.Error(), err)
}
