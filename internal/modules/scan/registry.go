package scan

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Registry manages the set of active strategies.
//
// Strategies are registered explicitly at startup and run in registration
// order. A strategy that fails to register is skipped with a logged warning;
// one bad strategy never prevents the others from loading.
type Registry struct {
	strategies []Strategy
	byName     map[string]Strategy
	log        zerolog.Logger
}

// NewRegistry creates a new strategy registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		byName: make(map[string]Strategy),
		log:    log.With().Str("component", "strategy_registry").Logger(),
	}
}

// Register adds a strategy to the active set, preserving registration order.
// Nil strategies and duplicate names are skipped with a warning.
func (r *Registry) Register(strategy Strategy) {
	if strategy == nil {
		r.log.Warn().Msg("Skipping nil strategy registration")
		return
	}

	name := strategy.Name()
	if name == "" {
		r.log.Warn().Msg("Skipping strategy with empty name")
		return
	}
	if _, exists := r.byName[name]; exists {
		r.log.Warn().Str("name", name).Msg("Strategy already registered, skipping duplicate")
		return
	}

	r.byName[name] = strategy
	r.strategies = append(r.strategies, strategy)
	r.log.Debug().Str("name", name).Msg("Registered strategy")
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	strategy, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("strategy not found: %s", name)
	}
	return strategy, nil
}

// List returns the active strategies in registration order.
func (r *Registry) List() []Strategy {
	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Names returns the registered strategy names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// NewPopulatedRegistry creates a registry with all built-in strategies
// registered.
func NewPopulatedRegistry(boxCfg BoxBreakoutConfig, crossCfg CrossoverConfig, log zerolog.Logger) *Registry {
	registry := NewRegistry(log)

	registry.Register(NewBoxBreakoutStrategy(boxCfg, log))
	registry.Register(NewMACrossoverStrategy(crossCfg, log))

	log.Info().
		Strs("strategies", registry.Names()).
		Msg("Strategy registry initialized")

	return registry
}
