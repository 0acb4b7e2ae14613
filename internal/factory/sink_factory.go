package factory

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SinkFactory creates a sink from its config definition. timeout bounds
// connection setup.
type SinkFactory func(ctx context.Context, def config.SinkDef, timeout time.Duration, logger *zap.Logger) (model.Writer, error)

// registry holds the mapping of sink types to their factory functions.
var registry = make(map[string]SinkFactory)

// RegisterSink registers a new sink type with its factory function.
func RegisterSink(name string, factory SinkFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("sink type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered reports whether a sink type is known.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// Create builds every enabled sink. An unknown sink type is a configuration
// error and nothing is built. A sink with a bad timeout or one that fails to
// connect is logged and left out; those failures are joined into the
// returned error alongside the sinks that were built.
func Create(ctx context.Context, defs []config.SinkDef, logger *zap.Logger) ([]model.Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var sinks []model.Writer
	var errs []error
	for _, def := range defs {
		if !def.Enabled {
			continue
		}

		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown sink type: '%s'", def.Type)
		}

		timeout, err := time.ParseDuration(def.Timeout)
		if err != nil || timeout <= 0 {
			logger.Warn("Invalid sink timeout, skipping sink", zap.String("type", def.Type), zap.String("timeout", def.Timeout))
			errs = append(errs, fmt.Errorf("sink %s: invalid timeout '%s'", def.Type, def.Timeout))
			continue
		}

		sink, err := factory(ctx, def, timeout, logger)
		if err != nil {
			logger.Warn("Failed to create sink, skipping", zap.String("type", def.Type), zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", def.Type, err))
			continue
		}
		logger.Debug("Sink created", zap.String("type", def.Type))
		sinks = append(sinks, sink)
	}

	return sinks, errors.Join(errs...)
}
