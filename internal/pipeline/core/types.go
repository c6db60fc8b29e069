// Package core builds runtime step trees from pipeline definitions and
// executes them recursively. Step behaviors live in the steps package
// and are looked up through the Registry interface.
package core

import (
	"context"

	"api-collector/internal/models"
)

// Step is one node of the runtime tree: a validated pipeline step with
// its config decoded and its children ordered.
type Step struct {
	ID       string
	Name     string
	Type     models.StepType
	Order    int
	Enabled  bool
	Config   *models.StepConfig
	Children []*Step
}

// StepExecutor runs one step type. Input is the output of the previous
// sibling (or the initial payload), the return value feeds the next.
type StepExecutor interface {
	Type() models.StepType
	Execute(ctx context.Context, run *Run, step *Step, input interface{}) (interface{}, error)
}

// Registry resolves step types to their executors
type Registry interface {
	Executor(stepType models.StepType) (StepExecutor, bool)
}
