package models

import (
	"time"
)

// StepResult records the outcome of one executed step. Children mirror the
// step forest so a failed run can be traced to the exact node.
type StepResult struct {
	StepID      string        `json:"step_id"`
	StepName    string        `json:"step_name,omitempty"`
	StepType    StepType      `json:"step_type"`
	Success     bool          `json:"success"`
	Skipped     bool          `json:"skipped,omitempty"`
	Error       string        `json:"error,omitempty"`
	Attempts    int           `json:"attempts,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Children    []StepResult  `json:"children,omitempty"`
}

// ExecutionResult is the structured outcome of one pipeline run. Business
// failures are reported here with Success=false, never as returned errors.
type ExecutionResult struct {
	ExecutionID string                 `json:"execution_id"`
	PipelineID  string                 `json:"pipeline_id"`
	Success     bool                   `json:"success"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`

	// RecordsProcessed counts one unit per executed root-level step
	RecordsProcessed int `json:"records_processed"`

	StepResults []StepResult `json:"step_results,omitempty"`
}
