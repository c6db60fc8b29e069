package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Typed configuration payloads for the nine step behaviors. Each step's
// opaque Config blob is decoded exactly once, when the runtime step tree
// is built, never inspected dynamically during execution.

// ApiCallConfig configures an ApiCall step
type ApiCallConfig struct {
	// ParameterOverrides take precedence over the pipeline's resolved
	// parameters for this call only
	ParameterOverrides map[string]interface{} `json:"parameter_overrides,omitempty"`
	Timeout            string                 `json:"timeout,omitempty"`
	// ResponsePath optionally projects the response payload to a nested
	// field, e.g. "data.items"
	ResponsePath string `json:"response_path,omitempty"`
}

// PaginationStrategy selects how subsequent pages are requested
type PaginationStrategy string

const (
	PaginationStrategyOffset PaginationStrategy = "offset"
	PaginationStrategyCursor PaginationStrategy = "cursor"
)

// PaginationConfig configures a Pagination step
type PaginationConfig struct {
	Strategy PaginationStrategy `json:"strategy"`

	// Offset strategy: OffsetParam/LimitParam name the query parameters,
	// PageSize is sent as the limit. Exhausted when a page returns fewer
	// than PageSize items.
	OffsetParam string `json:"offset_param,omitempty"`
	LimitParam  string `json:"limit_param,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`

	// Cursor strategy: CursorParam is the request parameter, CursorPath
	// the response field holding the next cursor. Exhausted when empty.
	CursorParam string `json:"cursor_param,omitempty"`
	CursorPath  string `json:"cursor_path,omitempty"`

	// ItemsPath locates the item list inside each page response
	ItemsPath string `json:"items_path,omitempty"`

	// MaxPages bounds the fetch loop; 0 means the default cap
	MaxPages int `json:"max_pages,omitempty"`
}

// RetryBackoff selects the delay growth between attempts
type RetryBackoff string

const (
	RetryBackoffFixed       RetryBackoff = "fixed"
	RetryBackoffLinear      RetryBackoff = "linear"
	RetryBackoffExponential RetryBackoff = "exponential"
)

// RetryConfig configures a Retry step
type RetryConfig struct {
	MaxAttempts int          `json:"max_attempts"`
	Delay       string       `json:"delay,omitempty"`
	Backoff     RetryBackoff `json:"backoff,omitempty"`
	MaxDelay    string       `json:"max_delay,omitempty"`
}

// DelayDuration parses the configured base delay, defaulting to one second
func (c *RetryConfig) DelayDuration() time.Duration {
	if c.Delay == "" {
		return time.Second
	}
	d, err := time.ParseDuration(c.Delay)
	if err != nil {
		return time.Second
	}
	return d
}

// MaxDelayDuration parses the configured delay cap; 0 means uncapped
func (c *RetryConfig) MaxDelayDuration() time.Duration {
	if c.MaxDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(c.MaxDelay)
	if err != nil {
		return 0
	}
	return d
}

// FilterConfig configures a Filter step. Condition is an expression
// evaluated once per item with "item" and "index" in scope.
type FilterConfig struct {
	Condition string `json:"condition"`
}

// ForEachConfig configures a ForEach step
type ForEachConfig struct {
	// ItemsPath optionally locates the item list inside the current
	// payload; empty means the payload itself is the list
	ItemsPath string `json:"items_path,omitempty"`

	// Concurrency > 1 runs per-item subtrees concurrently with that
	// bound; results are always merged back in original item order
	Concurrency int `json:"concurrency,omitempty"`
}

// TransformOperation selects the Transform step behavior
type TransformOperation string

const (
	TransformOpSet        TransformOperation = "set"
	TransformOpDelete     TransformOperation = "delete"
	TransformOpRename     TransformOperation = "rename"
	TransformOpTemplate   TransformOperation = "template"
	TransformOpJavaScript TransformOperation = "javascript"
)

// TransformConfig configures a Transform step
type TransformConfig struct {
	Operation TransformOperation `json:"operation"`

	// set: Field receives Value (literal) or Expression (evaluated)
	Field      string      `json:"field,omitempty"`
	Value      interface{} `json:"value,omitempty"`
	Expression string      `json:"expression,omitempty"`

	// rename: From moves to To
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// template: map of output field to ${...} template string
	Template map[string]string `json:"template,omitempty"`

	// javascript: script body; the payload is bound as "payload" and the
	// last evaluated expression becomes the new payload
	Script    string `json:"script,omitempty"`
	TimeoutMs int64  `json:"timeout_ms,omitempty"`
}

// FieldSelectorConfig configures a FieldSelector step
type FieldSelectorConfig struct {
	Fields []string `json:"fields"`
}

// StoreDatabaseConfig configures a StoreDatabase step
type StoreDatabaseConfig struct {
	// Driver names a registered sink: sqlite, postgres or redis
	Driver     string `json:"driver"`
	Collection string `json:"collection"`
}

// StoreDiskConfig configures a StoreDisk step
type StoreDiskConfig struct {
	Directory string `json:"directory,omitempty"`
	// Format is currently always json
	Format string `json:"format,omitempty"`
}

// StepConfig is the decoded tagged union of the per-type configurations.
// Exactly one field matching the owning step's Type is populated.
type StepConfig struct {
	ApiCall       *ApiCallConfig
	Pagination    *PaginationConfig
	Retry         *RetryConfig
	Filter        *FilterConfig
	ForEach       *ForEachConfig
	Transform     *TransformConfig
	FieldSelector *FieldSelectorConfig
	StoreDatabase *StoreDatabaseConfig
	StoreDisk     *StoreDiskConfig
}

// DecodeStepConfig decodes a step's raw config blob into the typed variant
// for its type. A nil blob yields a zero-valued config so that steps with
// all-default settings stay valid.
func DecodeStepConfig(stepType StepType, raw json.RawMessage) (*StepConfig, error) {
	if raw == nil {
		raw = json.RawMessage("{}")
	}

	cfg := &StepConfig{}
	var err error

	switch stepType {
	case StepTypeApiCall:
		cfg.ApiCall = &ApiCallConfig{}
		err = json.Unmarshal(raw, cfg.ApiCall)
	case StepTypePagination:
		cfg.Pagination = &PaginationConfig{}
		err = json.Unmarshal(raw, cfg.Pagination)
	case StepTypeRetry:
		cfg.Retry = &RetryConfig{}
		err = json.Unmarshal(raw, cfg.Retry)
	case StepTypeFilter:
		cfg.Filter = &FilterConfig{}
		err = json.Unmarshal(raw, cfg.Filter)
	case StepTypeForEach:
		cfg.ForEach = &ForEachConfig{}
		err = json.Unmarshal(raw, cfg.ForEach)
	case StepTypeTransform:
		cfg.Transform = &TransformConfig{}
		err = json.Unmarshal(raw, cfg.Transform)
	case StepTypeFieldSelector:
		cfg.FieldSelector = &FieldSelectorConfig{}
		err = json.Unmarshal(raw, cfg.FieldSelector)
	case StepTypeStoreDatabase:
		cfg.StoreDatabase = &StoreDatabaseConfig{}
		err = json.Unmarshal(raw, cfg.StoreDatabase)
	case StepTypeStoreDisk:
		cfg.StoreDisk = &StoreDiskConfig{}
		err = json.Unmarshal(raw, cfg.StoreDisk)
	default:
		return nil, fmt.Errorf("unknown step type: %s", stepType)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", stepType, err)
	}

	return cfg, nil
}
