package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
)

func lookupFunction() *models.FunctionDefinition {
	minLen := 2
	min := 1.0

	return &models.FunctionDefinition{
		ID:     "getUser",
		Name:   "getUser",
		Method: "GET",
		Path:   "/users/{userId}",
		Parameters: []models.FunctionParameter{
			{
				Name:     "userId",
				Type:     models.ParameterTypeString,
				Location: models.ParameterLocationPath,
				Required: true,
				Validation: &models.ValidationRules{
					MinLength: &minLen,
				},
			},
			{
				Name:     "limit",
				Type:     models.ParameterTypeInteger,
				Location: models.ParameterLocationQuery,
				Default:  25,
				Validation: &models.ValidationRules{
					Minimum: &min,
				},
			},
			{
				Name:     "X-Tenant",
				Type:     models.ParameterTypeString,
				Location: models.ParameterLocationHeader,
			},
			{
				Name:     "profile",
				Type:     models.ParameterTypeObject,
				Location: models.ParameterLocationBody,
			},
		},
	}
}

func TestResolve_PrecedenceOrder(t *testing.T) {
	function := lookupFunction()
	pipeline := &models.Pipeline{
		StaticParameters:  map[string]interface{}{"userId": "static-id", "limit": 50},
		ParameterMappings: map[string]string{"userId": "user.id"},
	}
	prior := map[string]interface{}{
		"user": map[string]interface{}{"id": "mapped-id"},
	}

	// runtime beats mapping
	resolved, err := Resolve(function, pipeline, map[string]interface{}{"userId": "runtime-id"}, prior)
	require.NoError(t, err)
	assert.Equal(t, "runtime-id", resolved.Path["userId"])

	// mapping beats static
	resolved, err = Resolve(function, pipeline, nil, prior)
	require.NoError(t, err)
	assert.Equal(t, "mapped-id", resolved.Path["userId"])

	// static wins when the mapping path does not resolve
	resolved, err = Resolve(function, pipeline, nil, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "static-id", resolved.Path["userId"])
	assert.Equal(t, "50", resolved.Query["limit"])
}

func TestResolve_RootedMappingExpressions(t *testing.T) {
	function := &models.FunctionDefinition{
		Name: "fn",
		Parameters: []models.FunctionParameter{
			{Name: "limit", Type: models.ParameterTypeInteger, Location: models.ParameterLocationQuery},
			{Name: "id", Type: models.ParameterTypeString, Location: models.ParameterLocationQuery, Required: true},
		},
	}
	pipeline := &models.Pipeline{
		StaticParameters:  map[string]interface{}{"limit": 50},
		ParameterMappings: map[string]string{"id": "$.prev.id"},
	}
	prior := map[string]interface{}{"id": "abc"}

	resolved, err := Resolve(function, pipeline, map[string]interface{}{"limit": 10}, prior)
	require.NoError(t, err)
	assert.Equal(t, "10", resolved.Query["limit"])
	assert.Equal(t, "abc", resolved.Query["id"])
}

func TestNormalizeMapping(t *testing.T) {
	for _, path := range []string{"$.prev.user.id", "$.user.id", "prev.user.id", "user.id"} {
		assert.Equal(t, "user.id", normalizeMapping(path), path)
	}
	assert.Equal(t, "", normalizeMapping("$.prev"))
}

func TestResolve_FunctionDefault(t *testing.T) {
	resolved, err := Resolve(lookupFunction(), &models.Pipeline{
		StaticParameters: map[string]interface{}{"userId": "u1"},
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "25", resolved.Query["limit"])
}

func TestResolve_MissingRequiredParameter(t *testing.T) {
	_, err := Resolve(lookupFunction(), &models.Pipeline{}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeMissingParameter))

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, "userId", appErr.Context["parameter"])
}

func TestResolve_OptionalParameterOmitted(t *testing.T) {
	resolved, err := Resolve(lookupFunction(), &models.Pipeline{
		StaticParameters: map[string]interface{}{"userId": "u1"},
	}, nil, nil)
	require.NoError(t, err)

	_, present := resolved.Header["X-Tenant"]
	assert.False(t, present)
}

func TestResolve_LocationPartitioning(t *testing.T) {
	profile := map[string]interface{}{"role": "admin"}

	resolved, err := Resolve(lookupFunction(), &models.Pipeline{
		StaticParameters: map[string]interface{}{
			"userId":   "u1",
			"X-Tenant": "acme",
			"profile":  profile,
		},
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "u1", resolved.Path["userId"])
	assert.Equal(t, "acme", resolved.Header["X-Tenant"])
	assert.Equal(t, profile, resolved.Body["profile"])
}

func TestResolve_ValidationFailures(t *testing.T) {
	// string below minimum length
	_, err := Resolve(lookupFunction(), &models.Pipeline{
		StaticParameters: map[string]interface{}{"userId": "x"},
	}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	// number below minimum
	_, err = Resolve(lookupFunction(), &models.Pipeline{
		StaticParameters: map[string]interface{}{"userId": "u1", "limit": 0},
	}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestResolve_EnumRule(t *testing.T) {
	function := &models.FunctionDefinition{
		Name: "listPets",
		Parameters: []models.FunctionParameter{
			{
				Name:     "status",
				Type:     models.ParameterTypeString,
				Location: models.ParameterLocationQuery,
				Required: true,
				Validation: &models.ValidationRules{
					Enum: []interface{}{"available", "sold"},
				},
			},
		},
	}

	resolved, err := Resolve(function, &models.Pipeline{
		StaticParameters: map[string]interface{}{"status": "sold"},
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "sold", resolved.Query["status"])

	_, err = Resolve(function, &models.Pipeline{
		StaticParameters: map[string]interface{}{"status": "pending"},
	}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestResolved_CloneIsIndependent(t *testing.T) {
	resolved, err := Resolve(lookupFunction(), &models.Pipeline{
		StaticParameters: map[string]interface{}{"userId": "u1"},
	}, nil, nil)
	require.NoError(t, err)

	clone := resolved.Clone()
	clone.Query["offset"] = "100"

	_, present := resolved.Query["offset"]
	assert.False(t, present)
}
