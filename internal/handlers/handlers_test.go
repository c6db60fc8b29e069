package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-collector/internal/catalog"
	commonhttp "api-collector/internal/common/http"
	"api-collector/internal/importers"
	"api-collector/internal/importers/openapi"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/coordinator"
	"api-collector/internal/pipeline/steps"
	"api-collector/internal/storage"
)

const petstoreDoc = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "servers": [{"url": "https://petstore.example.com/v1"}],
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "parameters": [
          {"name": "status", "in": "query", "required": false, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

type fixture struct {
	handlers *Handlers
	catalog  *catalog.Catalog
	coord    *coordinator.Coordinator
	router   *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := importers.NewRegistry()
	reg.Register(openapi.New())

	cat := catalog.New()
	coord := coordinator.New(cat)

	h := New(reg, cat, coord, storage.NewRegistry())
	router := mux.NewRouter()
	SetupRoutes(router, h)

	return &fixture{handlers: h, catalog: cat, coord: coord, router: router}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleImport_OpenAPI(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/import", models.ImportRequest{
		Type:    "openapi",
		Content: petstoreDoc,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Functions, 1)
	assert.Equal(t, "listPets", resp.Functions[0].Name)
	assert.Equal(t, "Petstore", resp.Metadata.Title)
	assert.Equal(t, "https://petstore.example.com/v1", resp.Metadata.BaseURL)

	// catalog replaced
	assert.Equal(t, 1, f.catalog.Len())
}

func TestHandleImport_UnknownType(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/import", models.ImportRequest{
		Type:    "grpc",
		Content: "{}",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unsupported_schema", resp.Type)
}

func TestHandleImport_MalformedDocument(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/import", models.ImportRequest{
		Type:    "openapi",
		Content: "not json",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "format", resp.Type)
}

func TestHandleImport_MissingSource(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/import", models.ImportRequest{Type: "openapi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRegisterAndListPipelines(t *testing.T) {
	f := newFixture(t)

	pipeline := models.Pipeline{
		ID:         "p1",
		Name:       "collect",
		FunctionID: "listPets",
		Enabled:    true,
	}

	rec := f.do(t, http.MethodPost, "/api/pipelines", pipeline)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/pipelines", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []models.Pipeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "p1", listed[0].ID)
}

func TestHandleRegisterPipeline_Invalid(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/pipelines", models.Pipeline{Name: "no id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExecute_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1},{"id":2}]`)
	}))
	defer upstream.Close()
	steps.SetCaller(commonhttp.NewCallerWithClient(upstream.Client()))

	f := newFixture(t)
	require.NoError(t, f.catalog.Add(models.FunctionDefinition{
		ID: "listPets", Name: "listPets", Method: "GET", Path: "/pets",
	}))
	f.coord.SetBaseURL(upstream.URL)

	rec := f.do(t, http.MethodPost, "/api/execute", models.ExecuteRequest{
		Pipeline: &models.Pipeline{
			ID:         "inline",
			FunctionID: "listPets",
			Enabled:    true,
			Steps: []models.ProcessingStep{
				{ID: "fetch", Type: models.StepTypeApiCall, Order: 1, Enabled: true},
			},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success, result.Message)
	assert.Equal(t, 1, result.RecordsProcessed)
}

func TestHandleExecute_BusinessFailureIs200(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/execute", models.ExecuteRequest{PipelineID: "ghost"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "ghost")
}

func TestHandleExecute_MissingTarget(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/execute", models.ExecuteRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
}

type failingSink struct{}

func (failingSink) Driver() string { return "failing" }
func (failingSink) Store(context.Context, string, []map[string]interface{}) error {
	return nil
}
func (failingSink) Health(context.Context) error { return fmt.Errorf("connection refused") }
func (failingSink) Close() error                 { return nil }

func TestHealthCheck_DegradedSink(t *testing.T) {
	reg := importers.NewRegistry()
	cat := catalog.New()
	coord := coordinator.New(cat)

	sinks := storage.NewRegistry()
	sinks.Install(failingSink{})

	h := New(reg, cat, coord, sinks)
	router := mux.NewRouter()
	SetupRoutes(router, h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
