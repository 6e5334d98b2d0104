package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/prewutils/internal/config"
	"github.com/sawpanic/prewutils/internal/fit"
	logpkg "github.com/sawpanic/prewutils/internal/log"
	"github.com/sawpanic/prewutils/internal/metrics"
	"github.com/sawpanic/prewutils/internal/persistence"
	"github.com/sawpanic/prewutils/internal/runners"
)

const (
	stepConfig = "load config"
	stepSetup  = "complete setup"
	stepToys   = "run toys"
	stepStore  = "store results"
)

func newToysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toys",
		Short: "Run toy fits of the configured setup",
		Long: `Completes the configured setup and fits the configured number of toys at
every energy in parallel. Results go to the configured store, metrics to the
configured endpoint.`,
		RunE: runToys,
	}
	cmd.Flags().AddFlagSet(commonFlags())
	cmd.Flags().Int("toys", 0, "Number of toys per energy (overrides config)")
	cmd.Flags().Int("threads", 0, "Number of worker threads (overrides config, 0 = all CPUs)")
	cmd.Flags().Uint64("seed", 0, "Base seed of the toy streams (overrides config)")
	cmd.Flags().Int("energy", 0, "Only run this energy")
	cmd.Flags().Bool("no-store", false, "Do not store results even if a store is configured")
	cmd.Flags().Bool("progress", true, "Show toy progress")
	return cmd
}

func runToys(cmd *cobra.Command, _ []string) (err error) {
	sl := logpkg.NewStepLogger("toys", []string{stepConfig, stepSetup, stepToys, stepStore})
	defer func() {
		if err != nil {
			sl.Fail(err)
			return
		}
		sl.Finish()
	}()

	sl.StartStep(stepConfig)
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("toys") {
		c.Runner.Toys, _ = cmd.Flags().GetInt("toys")
	}
	if cmd.Flags().Changed("threads") {
		c.Runner.Threads, _ = cmd.Flags().GetInt("threads")
	}
	if cmd.Flags().Changed("seed") {
		c.Runner.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if c.Runner.Toys <= 0 {
		return fmt.Errorf("%w: no toys requested", config.ErrInvalidConfig)
	}

	sl.StartStep(stepSetup)
	s, err := c.BuildSetup()
	if err != nil {
		return err
	}

	m := metrics.NewToyMetrics()
	if sc, ok := c.MetricsServerConfig(); ok {
		srv := metrics.NewServer(sc, m)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	extra := []runners.Option{runners.WithRecorder(m)}
	if show, _ := cmd.Flags().GetBool("progress"); show {
		extra = append(extra, runners.WithProgress(logpkg.NewToyProgress(os.Stderr, logpkg.ProgressConfig{})))
	}
	r, err := c.NewRunner(s, extra...)
	if err != nil {
		return err
	}

	sl.StartStep(stepToys)
	results := make(map[int][]fit.Result)
	energy, _ := cmd.Flags().GetInt("energy")
	if energy != 0 {
		res, err := r.RunToyFits(energy, c.Runner.Toys, c.Runner.Threads)
		if err != nil {
			return err
		}
		results[energy] = res
	} else {
		results, err = r.RunAllToyFits(c.Runner.Toys, c.Runner.Threads)
		if err != nil {
			return err
		}
	}
	for _, e := range r.Energies() {
		if _, ok := results[e]; !ok {
			continue
		}
		st := m.Status(e)
		log.Info().
			Int("energy", e).
			Float64("converged", st.Converged).
			Float64("not_converged", st.NotConverged).
			Float64("failed", st.Failed).
			Msg("Toy fits finished")
	}

	noStore, _ := cmd.Flags().GetBool("no-store")
	if c.Store == nil || noStore {
		return nil
	}
	sl.StartStep(stepStore)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, closer, err := c.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	energies := make([]int, 0, len(results))
	for _, e := range r.Energies() {
		if _, ok := results[e]; ok {
			energies = append(energies, e)
		}
	}
	run := persistence.NewRun(c.Runner.Chain, c.Runner.Seed, c.Runner.Toys, energies)
	if err := persistence.SaveAll(ctx, store, run, results); err != nil {
		return err
	}
	log.Info().Str("run_id", run.ID).Ints("energies", energies).Msg("Results stored")
	return nil
}
