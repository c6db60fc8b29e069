package models

import (
	"encoding/json"
	"time"
)

// StepType identifies one of the nine processing step behaviors
type StepType string

const (
	StepTypeApiCall       StepType = "ApiCall"
	StepTypePagination    StepType = "Pagination"
	StepTypeRetry         StepType = "Retry"
	StepTypeFilter        StepType = "Filter"
	StepTypeForEach       StepType = "ForEach"
	StepTypeTransform     StepType = "Transform"
	StepTypeFieldSelector StepType = "FieldSelector"
	StepTypeStoreDatabase StepType = "StoreDatabase"
	StepTypeStoreDisk     StepType = "StoreDisk"
)

// KnownStepTypes lists every supported step type
var KnownStepTypes = []StepType{
	StepTypeApiCall,
	StepTypePagination,
	StepTypeRetry,
	StepTypeFilter,
	StepTypeForEach,
	StepTypeTransform,
	StepTypeFieldSelector,
	StepTypeStoreDatabase,
	StepTypeStoreDisk,
}

// ProcessingStep is one node of a pipeline's execution tree. Children are
// owned by construction, so the step graph is always a forest: no step has
// more than one parent and cycles cannot be expressed.
type ProcessingStep struct {
	ID      string           `json:"id"`
	Name    string           `json:"name,omitempty"`
	Type    StepType         `json:"type"`
	Order   int              `json:"order"`
	Enabled bool             `json:"enabled"`
	Config  json.RawMessage  `json:"config,omitempty"`
	Steps   []ProcessingStep `json:"steps,omitempty"`
}

// Pipeline binds exactly one catalog function to a forest of processing
// steps plus the parameter configuration used to call it.
type Pipeline struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DataSourceID string `json:"datasource_id,omitempty"`
	FunctionID   string `json:"function_id"`
	Enabled      bool   `json:"enabled"`

	// StaticParameters are literal values configured on the pipeline
	StaticParameters map[string]interface{} `json:"static_parameters,omitempty"`

	// ParameterMappings are reference expressions resolved against the
	// execution's accumulated prior-step output, e.g. "prev.id"
	ParameterMappings map[string]string `json:"parameter_mappings,omitempty"`

	Steps []ProcessingStep `json:"steps"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
