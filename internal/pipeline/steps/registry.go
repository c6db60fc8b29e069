// Package steps implements the nine processing step behaviors. Each
// executor registers itself at init time; the coordinator hands the
// registry to the core executor.
package steps

import (
	"fmt"
	"sync"

	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
)

var (
	mu       sync.RWMutex
	registry = make(map[models.StepType]core.StepExecutor)
)

// Register adds a step executor under its type. Duplicate registration
// is a programming error and panics during init.
func Register(executor core.StepExecutor) {
	mu.Lock()
	defer mu.Unlock()

	stepType := executor.Type()
	if _, exists := registry[stepType]; exists {
		panic(fmt.Sprintf("step type already registered: %s", stepType))
	}
	registry[stepType] = executor
}

// Registry exposes the registered executors to the core executor
type Registry struct{}

// NewRegistry creates a registry view over the registered executors
func NewRegistry() *Registry {
	return &Registry{}
}

// Executor returns the executor for a step type
func (r *Registry) Executor(stepType models.StepType) (core.StepExecutor, bool) {
	mu.RLock()
	defer mu.RUnlock()

	executor, found := registry[stepType]
	return executor, found
}

// RegisteredTypes lists every registered step type
func (r *Registry) RegisteredTypes() []models.StepType {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]models.StepType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
