package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeNotFound,
				Message: "function 'f1' not found in catalog",
				Code:    "function_not_found",
			},
			want: "not_found: function 'f1' not found in catalog: code=function_not_found",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeIntrospection,
				Message: "introspection request failed",
				Cause:   errors.New("network timeout"),
			},
			want: "introspection: introspection request failed: cause=network timeout",
		},
		{
			name: "error with context",
			appError: &AppError{
				Type:    ErrTypeMissingParameter,
				Message: "required parameter has no value",
				Context: map[string]interface{}{
					"parameter": "petId",
				},
			},
			want: "missing_parameter: required parameter has no value: context={parameter=petId}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := &AppError{
		Type:    ErrTypeInternal,
		Message: "wrapper error",
		Cause:   cause,
	}

	unwrapped := appError.Unwrap()
	if unwrapped != cause {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}

	appErrorNoCause := &AppError{
		Type:    ErrTypeConfig,
		Message: "no cause error",
	}

	if appErrorNoCause.Unwrap() != nil {
		t.Errorf("AppError.Unwrap() without cause = %v, want nil", appErrorNoCause.Unwrap())
	}
}

func TestMissingParameterError(t *testing.T) {
	err := MissingParameterError("petId", "getPet")

	if err.Type != ErrTypeMissingParameter {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeMissingParameter)
	}

	if err.Context["parameter"] != "petId" {
		t.Errorf("Context[parameter] = %v, want petId", err.Context["parameter"])
	}

	if err.Context["function"] != "getPet" {
		t.Errorf("Context[function] = %v, want getPet", err.Context["function"])
	}
}

func TestStepExecutionError(t *testing.T) {
	cause := errors.New("connection refused")
	err := StepExecutionError("step_1", "ApiCall", "request failed", cause)

	if err.Type != ErrTypeStepExecution {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeStepExecution)
	}

	if err.Context["step_id"] != "step_1" {
		t.Errorf("Context[step_id] = %v, want step_1", err.Context["step_id"])
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should resolve the underlying cause")
	}
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{
			name:    "matching type",
			err:     FormatError("bad json", nil),
			errType: ErrTypeFormat,
			want:    true,
		},
		{
			name:    "non-matching type",
			err:     UnsupportedSchemaError("swagger 1.2"),
			errType: ErrTypeFormat,
			want:    false,
		},
		{
			name:    "plain error",
			err:     errors.New("plain"),
			errType: ErrTypeInternal,
			want:    false,
		},
		{
			name:    "nil error",
			err:     nil,
			errType: ErrTypeInternal,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.want {
				t.Errorf("IsType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetType(t *testing.T) {
	if got := GetType(DomainError("pipeline disabled")); got != ErrTypeDomain {
		t.Errorf("GetType() = %v, want %v", got, ErrTypeDomain)
	}

	if got := GetType(errors.New("plain")); got != ErrTypeInternal {
		t.Errorf("GetType() = %v, want %v", got, ErrTypeInternal)
	}

	if got := GetType(nil); got != ErrorType("") {
		t.Errorf("GetType(nil) = %v, want empty", got)
	}
}
