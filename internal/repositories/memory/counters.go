package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type counterState struct {
	current  int64
	step     int64
	maxValue *int64
}

type counterRepository struct{ r *Registry }

func (c *counterRepository) Next(_ context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step < 0 {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	state := c.r.counters[id]
	increment := step
	if increment == 0 {
		increment = state.step
	}
	if increment <= 0 {
		increment = 1
	}
	next := state.current + increment
	if state.maxValue != nil && next > *state.maxValue {
		return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, *state.maxValue), nil)
	}
	state.current = next
	c.r.counters[id] = state
	return next, nil
}

func (c *counterRepository) Configure(_ context.Context, counterID string, cfg repositories.CounterConfig) error {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	state := c.r.counters[id]
	if cfg.Step > 0 {
		state.step = cfg.Step
	}
	if cfg.MaxValue != nil {
		state.maxValue = clonePtr(cfg.MaxValue)
	}
	if cfg.InitialValue != nil {
		state.current = *cfg.InitialValue
	}
	c.r.counters[id] = state
	return nil
}
