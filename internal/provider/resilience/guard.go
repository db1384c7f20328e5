package resilience

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// GuardConfig holds configuration for a Guard.
type GuardConfig struct {
	Name           string
	CircuitBreaker *CircuitBreakerConfig
	// Registry receives the guard and its outcomes. Optional.
	Registry *Registry
}

// Guard runs calls to one provider through a circuit breaker. It never retries:
// a failed call is reported to the caller as is.
type Guard struct {
	name     string
	cb       *gobreaker.CircuitBreaker[struct{}]
	registry *Registry
}

// NewGuard creates a guard and registers it with cfg.Registry when set.
func NewGuard(cfg GuardConfig) *Guard {
	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
		cbConfig.Name = cfg.Name
	}

	g := &Guard{
		name:     cfg.Name,
		cb:       NewCircuitBreaker[struct{}](cbConfig),
		registry: cfg.Registry,
	}

	if g.registry != nil {
		g.registry.Register(cfg.Name, g)
	}
	return g
}

// Execute runs fn unless the circuit is open. Context cancellation by the
// caller does not count as a provider failure.
func (g *Guard) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})

	switch {
	case err == nil:
		g.recordSuccess()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrCircuitOpen
	case errors.Is(err, context.Canceled):
		return err
	default:
		g.recordFailure(err)
		return err
	}
}

// Name returns the provider name.
func (g *Guard) Name() string {
	return g.name
}

// State returns the current state of the circuit breaker.
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

// Counts returns the current counts of the circuit breaker.
func (g *Guard) Counts() gobreaker.Counts {
	return g.cb.Counts()
}

func (g *Guard) recordSuccess() {
	if g.registry != nil {
		g.registry.RecordSuccess(g.name)
	}
}

func (g *Guard) recordFailure(err error) {
	if g.registry != nil {
		g.registry.RecordFailure(g.name, err)
	}
}
