package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-collector/internal/catalog"
	commonhttp "api-collector/internal/common/http"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/steps"
)

func seededCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.Add(models.FunctionDefinition{
		ID:     "listPets",
		Name:   "listPets",
		Method: "GET",
		Path:   "/pets",
		Parameters: []models.FunctionParameter{
			{Name: "status", Type: models.ParameterTypeString, Location: models.ParameterLocationQuery, Required: true},
		},
	}))
	return cat
}

func petsPipeline() *models.Pipeline {
	return &models.Pipeline{
		ID:               "collect-pets",
		Name:             "Collect pets",
		FunctionID:       "listPets",
		Enabled:          true,
		StaticParameters: map[string]interface{}{"status": "available"},
		Steps: []models.ProcessingStep{
			{ID: "fetch", Type: models.StepTypeApiCall, Order: 1, Enabled: true},
			{ID: "trim", Type: models.StepTypeFieldSelector, Order: 2, Enabled: true,
				Config: json.RawMessage(`{"fields":["id"]}`)},
		},
	}
}

func TestExecute_FullRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "available", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1,"name":"rex"},{"id":2,"name":"milo"}]`)
	}))
	defer server.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(server.Client()))

	coord := New(seededCatalog(t), WithBaseURL(server.URL))
	require.NoError(t, coord.Register(petsPipeline()))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: "collect-pets"})

	require.True(t, result.Success, result.Message)
	assert.NotEmpty(t, result.ExecutionID)
	assert.Equal(t, "collect-pets", result.PipelineID)
	assert.Equal(t, 2, result.RecordsProcessed)
	require.Len(t, result.StepResults, 2)
	assert.True(t, result.StepResults[0].Success)
	assert.False(t, result.CompletedAt.IsZero())

	output := result.Details["output"].([]interface{})
	require.Len(t, output, 2)
	assert.Equal(t, map[string]interface{}{"id": 1.0}, output[0])
}

func TestExecute_InlinePipeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(server.Client()))

	coord := New(seededCatalog(t), WithBaseURL(server.URL))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{
		Pipeline: petsPipeline(),
	})
	assert.True(t, result.Success, result.Message)
}

func TestExecute_UnknownPipeline(t *testing.T) {
	coord := New(seededCatalog(t))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: "nope"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "nope")
	assert.NotEmpty(t, result.ExecutionID)
}

func TestExecute_DisabledPipeline(t *testing.T) {
	coord := New(seededCatalog(t))
	pipeline := petsPipeline()
	pipeline.Enabled = false
	require.NoError(t, coord.Register(pipeline))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: pipeline.ID})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "disabled")
}

func TestExecute_UnknownFunction(t *testing.T) {
	coord := New(seededCatalog(t))
	pipeline := petsPipeline()
	pipeline.FunctionID = "missing"
	require.NoError(t, coord.Register(pipeline))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: pipeline.ID})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "missing")
}

func TestExecute_MissingRequiredParameter(t *testing.T) {
	coord := New(seededCatalog(t))
	pipeline := petsPipeline()
	pipeline.StaticParameters = nil
	require.NoError(t, coord.Register(pipeline))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: pipeline.ID})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "status")
	assert.Empty(t, result.StepResults)
}

func TestExecute_RuntimeParameterWins(t *testing.T) {
	var gotStatus string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStatus = r.URL.Query().Get("status")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(server.Client()))

	coord := New(seededCatalog(t), WithBaseURL(server.URL))
	require.NoError(t, coord.Register(petsPipeline()))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{
		PipelineID: "collect-pets",
		Parameters: map[string]interface{}{"status": "sold"},
	})

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "sold", gotStatus)
}

func TestExecute_MappedParameterFromInput(t *testing.T) {
	var gotStatus string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStatus = r.URL.Query().Get("status")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(server.Client()))

	coord := New(seededCatalog(t), WithBaseURL(server.URL))
	pipeline := petsPipeline()
	pipeline.StaticParameters = nil
	pipeline.ParameterMappings = map[string]string{"status": "$.prev.last_status"}
	require.NoError(t, coord.Register(pipeline))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{
		PipelineID: pipeline.ID,
		Input:      map[string]interface{}{"last_status": "sold"},
	})

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "sold", gotStatus)

	// without the input the mapped required parameter cannot bind
	result = coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: pipeline.ID})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "status")
}

func TestExecute_DryRun(t *testing.T) {
	coord := New(seededCatalog(t), WithBaseURL("http://unreachable.invalid"))
	require.NoError(t, coord.Register(petsPipeline()))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{
		PipelineID: "collect-pets",
		DryRun:     true,
	})

	require.True(t, result.Success)
	assert.Equal(t, "dry run", result.Message)
	assert.Empty(t, result.StepResults)

	function := result.Details["function"].(map[string]interface{})
	assert.Equal(t, "listPets", function["name"])

	params := result.Details["parameters"].(map[string]interface{})
	query := params["query"].(map[string]string)
	assert.Equal(t, "available", query["status"])
}

func TestExecute_StepFailureReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(server.Client()))

	coord := New(seededCatalog(t), WithBaseURL(server.URL))
	require.NoError(t, coord.Register(petsPipeline()))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: "collect-pets"})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.StepResults)
	assert.False(t, result.StepResults[0].Success)
	assert.NotEmpty(t, result.StepResults[0].Error)
	// second sibling never ran
	assert.Len(t, result.StepResults, 1)
	assert.Equal(t, 1, result.RecordsProcessed)
}

func TestExecute_DisabledStepsNotCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1}]`)
	}))
	defer server.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(server.Client()))

	coord := New(seededCatalog(t), WithBaseURL(server.URL))
	pipeline := petsPipeline()
	pipeline.Steps[1].Enabled = false
	require.NoError(t, coord.Register(pipeline))

	result := coord.Execute(context.Background(), &models.ExecuteRequest{PipelineID: pipeline.ID})

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 1, result.RecordsProcessed)
	require.Len(t, result.StepResults, 2)
	assert.True(t, result.StepResults[1].Skipped)
}

func TestRegister_Validation(t *testing.T) {
	coord := New(seededCatalog(t))

	assert.Error(t, coord.Register(nil))
	assert.Error(t, coord.Register(&models.Pipeline{ID: "p"}))

	broken := petsPipeline()
	broken.Steps[1].ID = broken.Steps[0].ID
	assert.Error(t, coord.Register(broken))
}
