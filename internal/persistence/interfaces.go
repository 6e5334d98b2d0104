package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/prewutils/internal/fit"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Run describes one toy fit campaign. Toy results reference it by ID.
type Run struct {
	ID        string    `json:"id"`
	Chain     string    `json:"chain"`
	Seed      uint64    `json:"seed"`
	NToys     int       `json:"n_toys"`
	Energies  []int     `json:"energies"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRun creates a run with a fresh ID.
func NewRun(chain string, seed uint64, nToys int, energies []int) Run {
	return Run{
		ID:        uuid.NewString(),
		Chain:     chain,
		Seed:      seed,
		NToys:     nToys,
		Energies:  append([]int(nil), energies...),
		CreatedAt: time.Now().UTC(),
	}
}

// ResultStore persists toy fit results.
type ResultStore interface {
	// SaveRun stores the run description. Saving an ID twice is ErrDuplicate.
	SaveRun(ctx context.Context, run Run) error

	LoadRun(ctx context.Context, id string) (Run, error)

	// SaveToys appends the results of one energy, in toy order.
	SaveToys(ctx context.Context, runID string, energy int, results []fit.Result) error

	// LoadToys returns the results of one energy ordered by toy index.
	LoadToys(ctx context.Context, runID string, energy int) ([]fit.Result, error)
}

// SaveAll stores a run and all its results.
func SaveAll(ctx context.Context, store ResultStore, run Run, results map[int][]fit.Result) error {
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	for _, energy := range run.Energies {
		res, ok := results[energy]
		if !ok {
			continue
		}
		if err := store.SaveToys(ctx, run.ID, energy, res); err != nil {
			return err
		}
	}
	return nil
}
