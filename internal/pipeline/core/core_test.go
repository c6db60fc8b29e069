package core

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
)

// appendExecutor tags the payload with its step ID so tests can observe
// execution order.
type appendExecutor struct {
	stepType models.StepType
	fail     map[string]bool
}

func (e *appendExecutor) Type() models.StepType {
	return e.stepType
}

func (e *appendExecutor) Execute(_ context.Context, _ *Run, step *Step, input interface{}) (interface{}, error) {
	if e.fail[step.ID] {
		return nil, fmt.Errorf("boom in %s", step.ID)
	}
	trail, _ := input.([]string)
	return append(trail, step.ID), nil
}

type fakeRegistry map[models.StepType]StepExecutor

func (r fakeRegistry) Executor(stepType models.StepType) (StepExecutor, bool) {
	executor, found := r[stepType]
	return executor, found
}

func testRegistry(fail map[string]bool) fakeRegistry {
	return fakeRegistry{
		models.StepTypeTransform: &appendExecutor{stepType: models.StepTypeTransform, fail: fail},
	}
}

func step(id string, order int, children ...*Step) *Step {
	return &Step{
		ID:       id,
		Type:     models.StepTypeTransform,
		Order:    order,
		Enabled:  true,
		Config:   &models.StepConfig{},
		Children: children,
	}
}

func TestExecute_SiblingsRunInOrder(t *testing.T) {
	executor := NewExecutor(testRegistry(nil))

	output, results, err := executor.Execute(context.Background(), NewContext(),
		[]*Step{step("b", 2), step("a", 1), step("c", 3)}, nil)
	require.NoError(t, err)

	// builder sorts; the executor honors whatever order it receives
	assert.Equal(t, []string{"b", "a", "c"}, output)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
}

func TestExecute_DisabledStepSkippedWithPassthrough(t *testing.T) {
	disabled := step("skipped", 2, step("childOfSkipped", 1))
	disabled.Enabled = false

	executor := NewExecutor(testRegistry(nil))
	output, results, err := executor.Execute(context.Background(), NewContext(),
		[]*Step{step("first", 1), disabled, step("last", 3)}, nil)
	require.NoError(t, err)

	// the disabled subtree contributes nothing
	assert.Equal(t, []string{"first", "last"}, output)

	require.Len(t, results, 3)
	assert.True(t, results[1].Skipped)
	assert.True(t, results[1].Success)
	assert.Empty(t, results[1].Children)
}

func TestExecute_ChildrenConsumeParentOutput(t *testing.T) {
	executor := NewExecutor(testRegistry(nil))

	output, results, err := executor.Execute(context.Background(), NewContext(),
		[]*Step{step("parent", 1, step("child1", 1), step("child2", 2))}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"parent", "child1", "child2"}, output)
	require.Len(t, results, 1)
	require.Len(t, results[0].Children, 2)
	assert.Equal(t, "child1", results[0].Children[0].StepID)
}

func TestExecute_FailureAbortsRemainingSiblings(t *testing.T) {
	executor := NewExecutor(testRegistry(map[string]bool{"second": true}))

	_, results, err := executor.Execute(context.Background(), NewContext(),
		[]*Step{step("first", 1), step("second", 2), step("third", 3)}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeStepExecution))

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "second")
}

func TestExecute_ChildFailureFailsParent(t *testing.T) {
	executor := NewExecutor(testRegistry(map[string]bool{"child": true}))

	_, results, err := executor.Execute(context.Background(), NewContext(),
		[]*Step{step("parent", 1, step("child", 1))}, nil)
	require.Error(t, err)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	require.Len(t, results[0].Children, 1)
	assert.False(t, results[0].Children[0].Success)

	// the inner step's identity is preserved in the error
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, "child", appErr.Context["step_id"])
}

func TestExecute_UnknownStepType(t *testing.T) {
	executor := NewExecutor(fakeRegistry{})

	_, _, err := executor.Execute(context.Background(), NewContext(),
		[]*Step{step("only", 1)}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeStepExecution))
}

func TestExecute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutor(testRegistry(nil))
	_, _, err := executor.Execute(ctx, NewContext(), []*Step{step("only", 1)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}

func TestBuildTree_SortsAndDecodes(t *testing.T) {
	steps, err := BuildTree([]models.ProcessingStep{
		{ID: "late", Type: models.StepTypeFilter, Order: 5, Enabled: true,
			Config: json.RawMessage(`{"condition":"item.ok"}`)},
		{ID: "early", Type: models.StepTypeTransform, Order: 1, Enabled: true,
			Steps: []models.ProcessingStep{
				{ID: "nested", Type: models.StepTypeFieldSelector, Order: 1, Enabled: true,
					Config: json.RawMessage(`{"fields":["id"]}`)},
			}},
	})
	require.NoError(t, err)

	require.Len(t, steps, 2)
	assert.Equal(t, "early", steps[0].ID)
	assert.Equal(t, "late", steps[1].ID)
	assert.Equal(t, "item.ok", steps[1].Config.Filter.Condition)
	require.Len(t, steps[0].Children, 1)
	assert.Equal(t, []string{"id"}, steps[0].Children[0].Config.FieldSelector.Fields)
}

func TestBuildTree_Validation(t *testing.T) {
	_, err := BuildTree([]models.ProcessingStep{{Type: models.StepTypeFilter}})
	assert.Error(t, err, "missing id")

	_, err = BuildTree([]models.ProcessingStep{
		{ID: "dup", Type: models.StepTypeFilter, Order: 1},
		{ID: "dup", Type: models.StepTypeFilter, Order: 2},
	})
	assert.Error(t, err, "duplicate id")

	_, err = BuildTree([]models.ProcessingStep{
		{ID: "a", Type: models.StepTypeFilter, Order: 1},
		{ID: "b", Type: models.StepTypeFilter, Order: 1},
	})
	assert.Error(t, err, "duplicate sibling order")

	_, err = BuildTree([]models.ProcessingStep{
		{ID: "x", Type: "Bogus", Order: 1},
	})
	assert.Error(t, err, "unknown type")

	_, err = BuildTree([]models.ProcessingStep{
		{ID: "x", Type: models.StepTypeFilter, Order: 1, Config: json.RawMessage(`{broken`)},
	})
	assert.Error(t, err, "invalid config")
}

func TestContext_ForkShadowsParent(t *testing.T) {
	parent := NewContext()
	parent.Set("shared", "from-parent")
	parent.Set("input", map[string]interface{}{"id": 7})

	child := parent.Fork()
	child.Set("shared", "from-child")

	value, _ := child.Get("shared")
	assert.Equal(t, "from-child", value)

	value, _ = parent.Get("shared")
	assert.Equal(t, "from-parent", value)

	// parent values visible through the fork
	value, found := child.GetPath("input.id")
	require.True(t, found)
	assert.Equal(t, 7, value)
}

func TestContext_GetAllMergesChain(t *testing.T) {
	parent := NewContext()
	parent.Set("a", 1)
	parent.Set("b", 1)

	child := parent.Fork()
	child.Set("b", 2)

	all := child.GetAll()
	assert.Equal(t, 1, all["a"])
	assert.Equal(t, 2, all["b"])

	// later writes are observed, wherever they land in the chain
	child.Set("c", 3)
	parent.Set("a", 10)
	all = child.GetAll()
	assert.Equal(t, 3, all["c"])
	assert.Equal(t, 10, all["a"])
}

func TestContext_GetPathArrayAccess(t *testing.T) {
	ctx := NewContext()
	ctx.Set("items", []interface{}{
		map[string]interface{}{"id": "first"},
	})

	value, found := ctx.GetPath("items[0].id")
	require.True(t, found)
	assert.Equal(t, "first", value)

	_, found = ctx.GetPath("items[9].id")
	assert.False(t, found)
}
