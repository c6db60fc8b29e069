package handlers

import (
	"github.com/gorilla/mux"

	"api-collector/internal/middleware"
)

// SetupRoutes wires the API surface onto the router
func SetupRoutes(router *mux.Router, h *Handlers) {
	router.Use(middleware.Logging)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/import", h.HandleImport).Methods("POST")
	api.HandleFunc("/functions", h.HandleListFunctions).Methods("GET")
	api.HandleFunc("/pipelines", h.HandleRegisterPipeline).Methods("POST")
	api.HandleFunc("/pipelines", h.HandleListPipelines).Methods("GET")
	api.HandleFunc("/execute", h.HandleExecute).Methods("POST")
}
