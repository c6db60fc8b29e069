package storage

import (
	"fmt"
	"sync"

	"api-collector/internal/common/errors"
)

// Registry maps driver names to factories and holds the sinks opened
// from configuration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]SinkFactory
	sinks     map[string]Sink
}

// NewRegistry creates an empty sink registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]SinkFactory),
		sinks:     make(map[string]Sink),
	}
}

// DefaultRegistry is the process-wide registry drivers register into
var DefaultRegistry = NewRegistry()

// Register adds a factory to the default registry
func Register(factory SinkFactory) {
	DefaultRegistry.RegisterFactory(factory)
}

// Get returns an opened sink from the default registry
func Get(driver string) (Sink, error) {
	return DefaultRegistry.Sink(driver)
}

// RegisterFactory adds a driver factory
func (r *Registry) RegisterFactory(factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Driver()] = factory
}

// Open creates a sink from config and caches it under its driver name,
// closing any previously opened sink for that driver.
func (r *Registry) Open(config SinkConfig) (Sink, error) {
	r.mu.RLock()
	factory, found := r.factories[config.Driver]
	r.mu.RUnlock()

	if !found {
		return nil, errors.ConfigError(fmt.Sprintf("sink driver not registered: %s", config.Driver))
	}

	sink, err := factory.Create(config)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if previous, ok := r.sinks[config.Driver]; ok {
		previous.Close()
	}
	r.sinks[config.Driver] = sink
	r.mu.Unlock()

	return sink, nil
}

// Sink returns a previously opened sink
func (r *Registry) Sink(driver string) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, found := r.sinks[driver]
	if !found {
		return nil, errors.ConfigError(fmt.Sprintf("sink not configured: %s", driver))
	}
	return sink, nil
}

// Install caches an already-open sink, used by tests and custom wiring
func (r *Registry) Install(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[sink.Driver()] = sink
}

// Opened returns every currently opened sink
func (r *Registry) Opened() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]Sink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}

// AvailableDrivers lists the registered driver names
func (r *Registry) AvailableDrivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	drivers := make([]string, 0, len(r.factories))
	for name := range r.factories {
		drivers = append(drivers, name)
	}
	return drivers
}

// CloseAll closes every opened sink
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, sink := range r.sinks {
		sink.Close()
		delete(r.sinks, name)
	}
}
