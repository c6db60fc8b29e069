// Package coordinator is the execution facade over the pipeline runtime.
// It owns the pipeline registry, resolves the target function and its
// parameters, builds the runtime step tree and drives the executor.
//
// Execute never returns an error for business failures: a missing
// function, an unresolvable parameter or a failed step all come back as
// an ExecutionResult with Success=false and the failure in Message and
// StepResults. Callers only see the result shape.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"api-collector/internal/catalog"
	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/resolver"
	"api-collector/internal/pipeline/steps"
)

// Coordinator runs pipelines against one function catalog
type Coordinator struct {
	catalog  *catalog.Catalog
	executor *core.Executor
	logger   logging.Logger

	mu        sync.RWMutex
	pipelines map[string]*models.Pipeline
	baseURL   string
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithBaseURL sets the base URL prepended to function paths on outbound
// calls. Usually the BaseURL reported by the importer that built the
// catalog.
func WithBaseURL(url string) Option {
	return func(c *Coordinator) {
		c.baseURL = url
	}
}

// New creates a coordinator over the given catalog
func New(cat *catalog.Catalog, opts ...Option) *Coordinator {
	c := &Coordinator{
		catalog:   cat,
		executor:  core.NewExecutor(steps.NewRegistry()),
		logger:    logging.GetGlobalLogger(),
		pipelines: make(map[string]*models.Pipeline),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBaseURL replaces the outbound base URL, e.g. after a re-import
func (c *Coordinator) SetBaseURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = url
}

// Register adds or replaces a pipeline definition. The step forest is
// built once here so malformed definitions are rejected at registration
// time, not on the first run.
func (c *Coordinator) Register(pipeline *models.Pipeline) error {
	if pipeline == nil || pipeline.ID == "" {
		return errors.ValidationError("pipeline requires an id")
	}
	if pipeline.FunctionID == "" {
		return errors.ValidationError(fmt.Sprintf("pipeline %s has no function id", pipeline.ID))
	}
	if _, err := core.BuildTree(pipeline.Steps); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelines[pipeline.ID] = pipeline

	c.logger.Info("pipeline registered",
		logging.String("pipeline_id", pipeline.ID),
		logging.String("function_id", pipeline.FunctionID),
	)
	return nil
}

// Pipeline returns a registered pipeline by id
func (c *Coordinator) Pipeline(id string) (*models.Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pipelines[id]
	return p, ok
}

// Pipelines lists all registered pipelines
func (c *Coordinator) Pipelines() []*models.Pipeline {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Pipeline, 0, len(c.pipelines))
	for _, p := range c.pipelines {
		out = append(out, p)
	}
	return out
}

// Execute runs one pipeline. The request names a registered pipeline by
// id or carries the definition inline. The returned result is always
// non-nil and complete; err reporting happens inside it.
func (c *Coordinator) Execute(ctx context.Context, req *models.ExecuteRequest) *models.ExecutionResult {
	started := time.Now()
	result := &models.ExecutionResult{
		ExecutionID: uuid.NewString(),
		StartedAt:   started,
	}

	pipeline := req.Pipeline
	if pipeline == nil {
		registered, ok := c.Pipeline(req.PipelineID)
		if !ok {
			return c.fail(result, errors.NotFoundError(fmt.Sprintf("pipeline %s", req.PipelineID)))
		}
		pipeline = registered
	}
	result.PipelineID = pipeline.ID

	if !pipeline.Enabled {
		return c.fail(result, errors.DomainError(fmt.Sprintf("pipeline %s is disabled", pipeline.ID)))
	}

	function, err := c.catalog.Get(pipeline.FunctionID)
	if err != nil {
		return c.fail(result, err)
	}

	resolved, err := resolver.Resolve(&function, pipeline, req.Parameters, req.Input)
	if err != nil {
		return c.fail(result, err)
	}

	if req.DryRun {
		return c.dryRun(result, &function, resolved)
	}

	tree, err := core.BuildTree(pipeline.Steps)
	if err != nil {
		return c.fail(result, err)
	}

	runLogger := c.logger.WithFields(
		logging.String("pipeline_id", pipeline.ID),
		logging.String("execution_id", result.ExecutionID),
	)

	c.mu.RLock()
	baseURL := c.baseURL
	c.mu.RUnlock()

	runCtx := core.NewContext()
	runCtx.Set(core.KeyFunction, &function)
	runCtx.Set(core.KeyParameters, resolved)
	runCtx.Set(core.KeyBaseURL, baseURL)
	runCtx.Set(core.KeyInput, req.Parameters)

	output, stepResults, err := c.executor.Execute(ctx, runCtx, tree, nil)
	result.StepResults = stepResults
	result.RecordsProcessed = countExecuted(stepResults)

	if err != nil {
		runLogger.Error("pipeline run failed", err)
		return c.fail(result, err)
	}

	result.Success = true
	result.Message = "pipeline completed"
	result.CompletedAt = time.Now()
	if output != nil {
		result.Details = map[string]interface{}{"output": output}
	}

	runLogger.Info("pipeline run completed",
		logging.Int("records_processed", result.RecordsProcessed),
		logging.Duration("duration", time.Since(started)),
	)
	return result
}

// dryRun reports what would be called without performing any step
func (c *Coordinator) dryRun(result *models.ExecutionResult, function *models.FunctionDefinition, resolved *resolver.Resolved) *models.ExecutionResult {
	result.Success = true
	result.Message = "dry run"
	result.CompletedAt = time.Now()
	result.Details = map[string]interface{}{
		"function": map[string]interface{}{
			"id":     function.ID,
			"name":   function.Name,
			"method": function.Method,
			"path":   function.Path,
		},
		"parameters": map[string]interface{}{
			"path":   resolved.Path,
			"query":  resolved.Query,
			"header": resolved.Header,
			"body":   resolved.Body,
		},
	}
	return result
}

func (c *Coordinator) fail(result *models.ExecutionResult, err error) *models.ExecutionResult {
	result.Success = false
	result.Message = err.Error()
	result.CompletedAt = time.Now()
	return result
}

// countExecuted counts the root-level steps that actually ran
func countExecuted(results []models.StepResult) int {
	n := 0
	for _, r := range results {
		if !r.Skipped {
			n++
		}
	}
	return n
}
