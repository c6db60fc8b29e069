// Package catalog holds the normalized function definitions owned by one
// datasource. The catalog guarantees id-uniqueness only; guarding against
// removal of functions still referenced by pipelines is the owning
// datasource store's responsibility.
package catalog

import (
	"sort"
	"sync"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
)

// Catalog is a thread-safe collection of function definitions keyed by id
type Catalog struct {
	mu        sync.RWMutex
	functions map[string]models.FunctionDefinition
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		functions: make(map[string]models.FunctionDefinition),
	}
}

// Add inserts a function definition, rejecting duplicate ids
func (c *Catalog) Add(function models.FunctionDefinition) error {
	if function.ID == "" {
		return errors.ValidationError("function id must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.functions[function.ID]; exists {
		return errors.ValidationError("duplicate function id: " + function.ID).WithCode("duplicate_function")
	}

	c.functions[function.ID] = function
	return nil
}

// Get returns the function definition for an id
func (c *Catalog) Get(id string) (models.FunctionDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	function, exists := c.functions[id]
	if !exists {
		return models.FunctionDefinition{}, errors.FunctionNotFoundError(id)
	}

	return function, nil
}

// Remove deletes a function definition by id
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.functions[id]; !exists {
		return errors.FunctionNotFoundError(id)
	}

	delete(c.functions, id)
	return nil
}

// List returns all function definitions ordered by id
func (c *Catalog) List() []models.FunctionDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	functions := make([]models.FunctionDefinition, 0, len(c.functions))
	for _, function := range c.functions {
		functions = append(functions, function)
	}

	sort.Slice(functions, func(i, j int) bool {
		return functions[i].ID < functions[j].ID
	})

	return functions
}

// Replace swaps the entire catalog content, used when an importer re-run
// regenerates a datasource's functions
func (c *Catalog) Replace(functions []models.FunctionDefinition) error {
	replacement := make(map[string]models.FunctionDefinition, len(functions))
	for _, function := range functions {
		if function.ID == "" {
			return errors.ValidationError("function id must not be empty")
		}
		if _, exists := replacement[function.ID]; exists {
			return errors.ValidationError("duplicate function id: " + function.ID).WithCode("duplicate_function")
		}
		replacement[function.ID] = function
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.functions = replacement
	return nil
}

// Len returns the number of functions in the catalog
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.functions)
}
