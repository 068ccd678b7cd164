// Package registry maps transport type names to factories. Transport
// packages register themselves in init; import them for side effects:
//
//	import _ "github.com/ajitpratap0/objectdag/pkg/transport/disk"
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"go.uber.org/zap"
)

// Registry manages transport registration and instantiation
type Registry struct {
	factories map[string]core.Factory
	mu        sync.RWMutex
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]core.Factory)}
}

// Register registers a factory under a transport type name
func (r *Registry) Register(typeName string, factory core.Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeName]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("transport type %s already registered", typeName))
	}

	r.factories[typeName] = factory
	return nil
}

// Create builds one transport from its configuration
func (r *Registry) Create(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid transport configuration")
	}

	r.mu.RLock()
	factory, exists := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("transport type %s not registered", cfg.Type)).
			WithDetail("available", r.List())
	}

	t, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create transport %s", cfg.Name)).
			WithDetail("type", cfg.Type)
	}

	logger.Get().Info("transport created",
		zap.String("name", cfg.Name),
		zap.String("type", cfg.Type),
		zap.Duration("write_timeout", cfg.Timeouts.Write))
	return core.WithWriteTimeout(t, cfg.Timeouts.Write), nil
}

// CreateAll builds every transport of cfg in order. If one fails, the
// ones already created are closed.
func (r *Registry) CreateAll(ctx context.Context, cfg *config.Config) ([]core.Transport, error) {
	transports := make([]core.Transport, 0, len(cfg.Transports))
	for _, tc := range cfg.Transports {
		t, err := r.Create(ctx, tc)
		if err != nil {
			_ = core.CloseAll(ctx, transports)
			return nil, err
		}
		transports = append(transports, t)
	}
	return transports, nil
}

// List returns the registered type names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a transport type is registered
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[typeName]
	return exists
}

// Register registers a factory in the global registry. It panics on a
// duplicate name since it only runs from init.
func Register(typeName string, factory core.Factory) {
	if err := globalRegistry.Register(typeName, factory); err != nil {
		panic(err)
	}
}

// Create builds a transport from the global registry
func Create(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
	return globalRegistry.Create(ctx, cfg)
}

// CreateAll builds every configured transport from the global registry
func CreateAll(ctx context.Context, cfg *config.Config) ([]core.Transport, error) {
	return globalRegistry.CreateAll(ctx, cfg)
}

// List returns the type names registered in the global registry
func List() []string {
	return globalRegistry.List()
}

// Has checks if a type is registered in the global registry
func Has(typeName string) bool {
	return globalRegistry.Has(typeName)
}

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}
