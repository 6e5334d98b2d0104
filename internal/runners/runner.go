// Package runners executes toy fits of an assembled setup in parallel.
package runners

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
	"github.com/sawpanic/prewutils/internal/parallel"
	"github.com/sawpanic/prewutils/internal/setups"
	"github.com/sawpanic/prewutils/internal/toys"
)

// ToyGenerator creates one pseudo-measurement from the nominal prediction.
// It is called concurrently and must keep its randomness in rng.
type ToyGenerator interface {
	Generate(conn data.Connector, pars fit.ParVec, rng *rand.Rand) ([]data.PredDistr, error)
}

// ProgressObserver is told about toy progress. ToyDone is called from the
// worker goroutines.
type ProgressObserver interface {
	Start(energy, nToys int)
	ToyDone(energy, toy int, err error)
	Finish(energy int)
}

// Recorder receives per-toy measurements, e.g. for metrics.
type Recorder interface {
	ToyStarted(energy int)
	ToyFinished(energy int, res fit.Result, elapsed time.Duration, err error)
}

// Option configures a ParallelRunner.
type Option func(*ParallelRunner)

func WithToyGenerator(g ToyGenerator) Option {
	return func(r *ParallelRunner) { r.generator = g }
}

func WithMinimizerFactory(f fit.MinimizerFactory) Option {
	return func(r *ParallelRunner) { r.factory = f }
}

// WithBinSelector removes low prediction bins before every fit.
func WithBinSelector(s datahelp.BinSelector) Option {
	return func(r *ParallelRunner) { r.selector = &s }
}

func WithProgress(p ProgressObserver) Option {
	return func(r *ParallelRunner) { r.progress = p }
}

func WithRecorder(rec Recorder) Option {
	return func(r *ParallelRunner) { r.recorder = rec }
}

// WithSeed sets the base seed all toy random streams derive from.
func WithSeed(seed uint64) Option {
	return func(r *ParallelRunner) { r.seed = seed }
}

func WithRegistry(reg *fit.Registry) Option {
	return func(r *ParallelRunner) { r.registry = reg }
}

// energySetup is the read-only state shared by all toys of one energy.
type energySetup struct {
	pars  fit.ParVec
	conn  data.Connector
	model *fit.Model
}

// ParallelRunner runs toy fits of a completed setup on a worker pool.
// After construction it is read-only and safe for concurrent use.
type ParallelRunner struct {
	energies  []int
	setups    map[int]energySetup
	chain     []names.MinimizerInfo
	registry  *fit.Registry
	generator ToyGenerator
	factory   fit.MinimizerFactory
	selector  *datahelp.BinSelector
	progress  ProgressObserver
	recorder  Recorder
	seed      uint64
}

// NewParallelRunner copies energies, parameters and the connector out of a
// completed setup and parses the minimizer chain.
func NewParallelRunner(setup setups.Setup, chain string, opts ...Option) (*ParallelRunner, error) {
	infos, err := names.ParseMinimizerChain(chain)
	if err != nil {
		return nil, err
	}
	r := &ParallelRunner{
		energies: slices.Clone(setup.Energies()),
		setups:   make(map[int]energySetup),
		chain:    infos,
		factory:  fit.NewDescentFactory(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = fit.NewRegistry()
	}
	if r.generator == nil {
		r.generator = &toys.PoissonGenerator{Registry: r.registry}
	}

	conn, err := setup.DataConnector()
	if err != nil {
		return nil, err
	}
	for _, energy := range r.energies {
		pars, err := setup.Pars(energy)
		if err != nil {
			return nil, err
		}
		econn := conn.ForEnergy(energy)
		model, err := fit.Compile(r.registry, econn, pars)
		if err != nil {
			return nil, fmt.Errorf("compile %d GeV: %w", energy, err)
		}
		r.setups[energy] = energySetup{pars: pars, conn: econn, model: model}
	}
	log.Info().Ints("energies", r.energies).Str("chain", chain).Msg("Toy fit runner ready")
	return r, nil
}

func (r *ParallelRunner) Energies() []int { return slices.Clone(r.energies) }

// DataConnector returns the connector used at energy.
func (r *ParallelRunner) DataConnector(energy int) (data.Connector, bool) {
	s, ok := r.setups[energy]
	return s.conn, ok
}

// RunToyFitsWithPool runs n toys at energy on the given pool. results[i]
// belongs to toy i. The first failing toy aborts the batch; toys already
// submitted still run to completion. An unknown energy is logged and gives
// an empty result.
func (r *ParallelRunner) RunToyFitsWithPool(energy, n int, pool *parallel.Pool) ([]fit.Result, error) {
	s, ok := r.setups[energy]
	if !ok {
		log.Error().Int("energy", energy).Ints("known", r.energies).Msg("Energy not part of setup, no toys fitted")
		return []fit.Result{}, nil
	}
	if r.progress != nil {
		r.progress.Start(energy, n)
		defer r.progress.Finish(energy)
	}

	futures := make([]*parallel.Future[fit.Result], n)
	for toy := range n {
		futures[toy] = parallel.Submit(pool, func() (fit.Result, error) {
			return r.toyTask(s, energy, toy)
		})
	}

	results := make([]fit.Result, 0, n)
	for toy, f := range futures {
		res, err := f.Get()
		if err != nil {
			return nil, fmt.Errorf("toy %d at %d GeV: %w", toy, energy, err)
		}
		results = append(results, res)
	}
	log.Info().Int("energy", energy).Int("toys", n).Msg("Toy fits finished")
	return results, nil
}

// RunToyFits runs n toys at energy on a new pool of the given size.
func (r *ParallelRunner) RunToyFits(energy, n, threads int) ([]fit.Result, error) {
	pool := parallel.NewPool(threads)
	defer pool.Close()
	return r.RunToyFitsWithPool(energy, n, pool)
}

// RunAllToyFits runs n toys at every energy, one energy after the other on
// a shared pool.
func (r *ParallelRunner) RunAllToyFits(n, threads int) (map[int][]fit.Result, error) {
	pool := parallel.NewPool(threads)
	defer pool.Close()
	out := make(map[int][]fit.Result, len(r.energies))
	for _, energy := range r.energies {
		res, err := r.RunToyFitsWithPool(energy, n, pool)
		if err != nil {
			return nil, err
		}
		out[energy] = res
	}
	return out, nil
}

// toyTask fits a single toy. It only reads the shared energy setup.
func (r *ParallelRunner) toyTask(s energySetup, energy, toy int) (res fit.Result, err error) {
	start := time.Now()
	if r.recorder != nil {
		r.recorder.ToyStarted(energy)
	}
	defer func() {
		if r.recorder != nil {
			r.recorder.ToyFinished(energy, res, time.Since(start), err)
		}
		if r.progress != nil {
			r.progress.ToyDone(energy, toy, err)
		}
	}()

	measRng, constrRng := toys.Streams(r.seed, energy, toy)
	meas, err := r.generator.Generate(s.conn, s.pars, measRng)
	if err != nil {
		return fit.Result{}, fmt.Errorf("generate toy: %w", err)
	}
	pars := toys.FluctuateConstraints(s.pars, constrRng)

	c, err := s.model.NewContainer(meas, pars)
	if err != nil {
		return fit.Result{}, err
	}
	c.Toy, c.Seed = toy, r.seed
	if r.selector != nil {
		removed, err := r.selector.RemoveBins(c)
		if err != nil {
			return fit.Result{}, err
		}
		if removed > 0 {
			log.Debug().Int("toy", toy).Int("removed", removed).Msg("Removed bins below cut")
		}
	}
	return fit.RunChain(r.factory, r.chain, c)
}
