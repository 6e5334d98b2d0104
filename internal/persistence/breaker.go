package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/prewutils/internal/fit"
)

// BreakerConfig controls when a store is considered down.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 3, Timeout: 60 * time.Second}
}

// BreakerStore guards a ResultStore with a circuit breaker. While the
// breaker is open calls fail with gobreaker.ErrOpenState without reaching
// the store. Not-found and duplicate errors do not count as failures.
type BreakerStore struct {
	store ResultStore
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerStore(name string, store ResultStore, config BreakerConfig) *BreakerStore {
	st := gobreaker.Settings{
		Name:    name,
		Timeout: config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("store", name).Str("from", from.String()).Str("to", to.String()).Msg("Result store breaker changed state")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate)
		},
	}
	return &BreakerStore{store: store, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerStore) SaveRun(ctx context.Context, run Run) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.store.SaveRun(ctx, run) })
	return err
}

func (b *BreakerStore) LoadRun(ctx context.Context, id string) (Run, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.store.LoadRun(ctx, id) })
	if err != nil {
		return Run{}, err
	}
	return v.(Run), nil
}

func (b *BreakerStore) SaveToys(ctx context.Context, runID string, energy int, results []fit.Result) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.store.SaveToys(ctx, runID, energy, results) })
	return err
}

func (b *BreakerStore) LoadToys(ctx context.Context, runID string, energy int) ([]fit.Result, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.store.LoadToys(ctx, runID, energy) })
	if err != nil {
		return nil, err
	}
	return v.([]fit.Result), nil
}
