package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeFormat represents malformed schema input
	ErrTypeFormat ErrorType = "format"
	// ErrTypeUnsupportedSchema represents a recognized but unsupported schema version
	ErrTypeUnsupportedSchema ErrorType = "unsupported_schema"
	// ErrTypeIntrospection represents a transport failure reaching a GraphQL endpoint
	ErrTypeIntrospection ErrorType = "introspection"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeMissingParameter represents a required parameter with no resolvable value
	ErrTypeMissingParameter ErrorType = "missing_parameter"
	// ErrTypeStepExecution represents a failed processing step
	ErrTypeStepExecution ErrorType = "step_execution"
	// ErrTypeDomain represents a policy violation such as a disabled pipeline
	ErrTypeDomain ErrorType = "domain"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// FormatError creates a new malformed-input error
func FormatError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeFormat,
		Message: msg,
		Cause:   cause,
	}
}

// UnsupportedSchemaError creates a new unsupported schema version error
func UnsupportedSchemaError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeUnsupportedSchema,
		Message: msg,
	}
}

// IntrospectionError creates a new introspection transport error
func IntrospectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeIntrospection,
		Message: msg,
		Cause:   cause,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// FunctionNotFoundError creates a not found error for a catalog function id
func FunctionNotFoundError(functionID string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("function '%s' not found in catalog", functionID),
		Code:    "function_not_found",
	}
}

// MissingParameterError creates an error for a required parameter with no value
func MissingParameterError(parameter, functionName string) *AppError {
	e := &AppError{
		Type:    ErrTypeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' has no value for function '%s'", parameter, functionName),
	}
	return e.WithContext("parameter", parameter).WithContext("function", functionName)
}

// StepExecutionError creates an error for a failed processing step
func StepExecutionError(stepID, stepType, msg string, cause error) *AppError {
	e := &AppError{
		Type:    ErrTypeStepExecution,
		Message: msg,
		Cause:   cause,
	}
	return e.WithContext("step_id", stepID).WithContext("step_type", stepType)
}

// DomainError creates a new domain policy error
func DomainError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeDomain,
		Message: msg,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}
