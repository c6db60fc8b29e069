package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"api-collector/internal/catalog"
	commonhttp "api-collector/internal/common/http"
	"api-collector/internal/common/logging"
	"api-collector/internal/config"
	"api-collector/internal/handlers"
	"api-collector/internal/importers"
	"api-collector/internal/importers/graphql"
	"api-collector/internal/importers/openapi"
	"api-collector/internal/importers/wsdl"
	"api-collector/internal/pipeline/coordinator"
	"api-collector/internal/pipeline/steps"
	"api-collector/internal/storage"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	// Outbound call machinery for the pipeline steps
	httpTimeout, _ := time.ParseDuration(cfg.HTTPTimeout)
	steps.SetCaller(commonhttp.NewCaller(commonhttp.WithTimeout(httpTimeout)))
	steps.SetDiskBaseDir(cfg.StorageDir)
	if n, err := strconv.Atoi(cfg.ForEachMaxConcurrency); err == nil {
		steps.SetMaxForEachConcurrency(n)
	}

	// Open the configured database sink
	if err := openSink(cfg); err != nil {
		log.Fatalf("Failed to open %s sink: %v", cfg.DatabaseType, err)
	}
	defer storage.DefaultRegistry.CloseAll()

	// Schema importers
	introspectionTimeout, _ := time.ParseDuration(cfg.IntrospectionTimeout)
	registry := importers.NewRegistry()
	registry.Register(openapi.New())
	registry.Register(wsdl.New())
	registry.Register(graphql.New(commonhttp.NewCaller(commonhttp.WithTimeout(introspectionTimeout))))

	cat := catalog.New()
	coord := coordinator.New(cat)

	h := handlers.New(registry, cat, coord, storage.DefaultRegistry)
	router := mux.NewRouter()
	handlers.SetupRoutes(router, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", logging.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// openSink opens the sink named by DATABASE_TYPE in the default registry
func openSink(cfg *config.Config) error {
	switch cfg.DatabaseType {
	case "sqlite":
		_, err := storage.DefaultRegistry.Open(storage.SinkConfig{
			Driver: "sqlite",
			Path:   cfg.DatabasePath,
		})
		return err
	case "postgres", "postgresql":
		_, err := storage.DefaultRegistry.Open(storage.SinkConfig{
			Driver: "postgres",
			DSN:    cfg.PostgresDSN(),
		})
		return err
	case "redis":
		db, _ := strconv.Atoi(cfg.RedisDB)
		_, err := storage.DefaultRegistry.Open(storage.SinkConfig{
			Driver:   "redis",
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       db,
		})
		return err
	default:
		// "none": records only flow to disk or not at all
		return nil
	}
}
