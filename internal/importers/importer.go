// Package importers provides registry functionality for the schema
// importers. Each importer consumes one raw schema source and produces
// the normalized function definitions for a datasource catalog.
package importers

import (
	"context"
	"fmt"
	"sync"

	"api-collector/internal/models"
)

// Importer turns one schema source into function definitions. The source
// is raw document text for the OpenAPI and WSDL importers and an endpoint
// URL for the GraphQL importer.
//
// A parse failure aborts the whole run: importers never return a
// partially-populated function list alongside an error. Failures of
// individual sub-elements (one malformed parameter, an unresolvable
// type) skip that element and append a warning to the metadata instead.
type Importer interface {
	// Type returns the schema type this importer handles
	Type() string

	// Parse normalizes the source into function definitions
	Parse(ctx context.Context, source string) ([]models.FunctionDefinition, *models.ImportMetadata, error)
}

// Registry manages importers and provides thread-safe access by type
type Registry struct {
	importers map[string]Importer
	mu        sync.RWMutex
}

// NewRegistry creates a new empty importer registry
func NewRegistry() *Registry {
	return &Registry{
		importers: make(map[string]Importer),
	}
}

// Register adds an importer to the registry, replacing any existing
// importer of the same type
func (r *Registry) Register(importer Importer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importers[importer.Type()] = importer
}

// Get returns the importer for a schema type
func (r *Registry) Get(schemaType string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	importer, exists := r.importers[schemaType]
	if !exists {
		return nil, fmt.Errorf("schema type %s not registered", schemaType)
	}

	return importer, nil
}

// AvailableTypes returns all registered schema types
func (r *Registry) AvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.importers))
	for t := range r.importers {
		types = append(types, t)
	}
	return types
}
