// Package redisstore keeps toy fit results in Redis lists, one list per run
// and energy.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/persistence"
)

const defaultPrefix = "prewutils:"

// Store implements persistence.ResultStore. Keys expire after ttl; zero
// keeps them forever.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, prefix: defaultPrefix, ttl: ttl}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string, db int, ttl time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return New(client, ttl), nil
}

func (s *Store) runKey(id string) string { return s.prefix + "run:" + id }

func (s *Store) toysKey(id string, energy int) string {
	return s.prefix + "run:" + id + ":toys:" + strconv.Itoa(energy)
}

func (s *Store) SaveRun(ctx context.Context, run persistence.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.runKey(run.ID), string(b), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	if !ok {
		return fmt.Errorf("run %s: %w", run.ID, persistence.ErrDuplicate)
	}
	return nil
}

func (s *Store) LoadRun(ctx context.Context, id string) (persistence.Run, error) {
	val, err := s.client.Get(ctx, s.runKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return persistence.Run{}, fmt.Errorf("run %s: %w", id, persistence.ErrNotFound)
	}
	if err != nil {
		return persistence.Run{}, fmt.Errorf("failed to load run: %w", err)
	}
	var run persistence.Run
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return persistence.Run{}, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return run, nil
}

// SaveToys appends the results to the energy list.
func (s *Store) SaveToys(ctx context.Context, runID string, energy int, results []fit.Result) error {
	if len(results) == 0 {
		return nil
	}
	vals := make([]any, 0, len(results))
	for _, res := range results {
		b, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal toy %d: %w", res.Toy, err)
		}
		vals = append(vals, string(b))
	}
	key := s.toysKey(runID, energy)
	if err := s.client.RPush(ctx, key, vals...).Err(); err != nil {
		return fmt.Errorf("failed to store toys: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set expiry: %w", err)
		}
	}
	return nil
}

// LoadToys returns the stored results sorted by toy index.
func (s *Store) LoadToys(ctx context.Context, runID string, energy int) ([]fit.Result, error) {
	vals, err := s.client.LRange(ctx, s.toysKey(runID, energy), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load toys: %w", err)
	}
	out := make([]fit.Result, 0, len(vals))
	for _, v := range vals {
		var res fit.Result
		if err := json.Unmarshal([]byte(v), &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal toy: %w", err)
		}
		out = append(out, res)
	}
	slices.SortStableFunc(out, func(a, b fit.Result) int { return a.Toy - b.Toy })
	return out, nil
}

// Close closes the client if the store owns one.
func (s *Store) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
