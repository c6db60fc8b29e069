// Package handlers is the HTTP shell over the importer registry, the
// function catalog and the execution coordinator.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"api-collector/internal/catalog"
	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/importers"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/coordinator"
	"api-collector/internal/storage"
)

type Handlers struct {
	importers   *importers.Registry
	catalog     *catalog.Catalog
	coordinator *coordinator.Coordinator
	sinks       *storage.Registry
	logger      logging.Logger
}

func New(reg *importers.Registry, cat *catalog.Catalog, coord *coordinator.Coordinator, sinks *storage.Registry) *Handlers {
	return &Handlers{
		importers:   reg,
		catalog:     cat,
		coordinator: coord,
		sinks:       sinks,
		logger:      logging.GetGlobalLogger(),
	}
}

// HandleImport normalizes one schema document and replaces the catalog
// with the resulting functions
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}
	if req.Type == "" {
		writeError(w, errors.ValidationError("type is required"))
		return
	}

	source := req.Content
	if source == "" {
		source = req.Endpoint
	}
	if source == "" {
		writeError(w, errors.ValidationError("content or endpoint is required"))
		return
	}

	importer, err := h.importers.Get(req.Type)
	if err != nil {
		writeError(w, errors.UnsupportedSchemaError(fmt.Sprintf("schema type %s not supported", req.Type)))
		return
	}

	functions, metadata, err := importer.Parse(r.Context(), source)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.catalog.Replace(functions); err != nil {
		writeError(w, err)
		return
	}
	if metadata != nil && metadata.BaseURL != "" {
		h.coordinator.SetBaseURL(metadata.BaseURL)
	}

	h.logger.Info("schema imported",
		logging.String("type", req.Type),
		logging.Int("functions", len(functions)),
	)
	writeJSON(w, http.StatusOK, models.ImportResponse{
		Functions: functions,
		Metadata:  metadata,
	})
}

// HandleListFunctions returns the current catalog contents
func (h *Handlers) HandleListFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.List())
}

// HandleRegisterPipeline registers a pipeline definition for later runs
func (h *Handlers) HandleRegisterPipeline(w http.ResponseWriter, r *http.Request) {
	var pipeline models.Pipeline
	if err := json.NewDecoder(r.Body).Decode(&pipeline); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}
	if err := h.coordinator.Register(&pipeline); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pipeline)
}

// HandleListPipelines returns the registered pipelines
func (h *Handlers) HandleListPipelines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.Pipelines())
}

// HandleExecute runs one pipeline and returns its ExecutionResult.
// Business failures come back as 200 with Success=false; only an
// unreadable request is an HTTP error.
func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}
	if req.PipelineID == "" && req.Pipeline == nil {
		writeError(w, errors.ValidationError("pipeline_id or pipeline is required"))
		return
	}

	result := h.coordinator.Execute(r.Context(), &req)
	writeJSON(w, http.StatusOK, result)
}

// HealthCheck reports process liveness plus the configured sink's health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}

	if h.sinks != nil {
		for _, sink := range h.sinks.Opened() {
			if err := sink.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status[sink.Driver()] = err.Error()
				writeJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status[sink.Driver()] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	errType := errors.GetType(err)
	writeJSON(w, statusFor(errType), models.ErrorResponse{
		Error: err.Error(),
		Type:  string(errType),
	})
}

func statusFor(errType errors.ErrorType) int {
	switch errType {
	case errors.ErrTypeValidation, errors.ErrTypeFormat, errors.ErrTypeMissingParameter, errors.ErrTypeDomain:
		return http.StatusBadRequest
	case errors.ErrTypeUnsupportedSchema:
		return http.StatusUnprocessableEntity
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeIntrospection, errors.ErrTypeConnection:
		return http.StatusBadGateway
	case errors.ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
