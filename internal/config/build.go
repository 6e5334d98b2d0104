package config

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/input"
	"github.com/sawpanic/prewutils/internal/metrics"
	"github.com/sawpanic/prewutils/internal/persistence"
	"github.com/sawpanic/prewutils/internal/persistence/redisstore"
	"github.com/sawpanic/prewutils/internal/persistence/sqlstore"
	"github.com/sawpanic/prewutils/internal/runners"
	"github.com/sawpanic/prewutils/internal/setuphelp"
	"github.com/sawpanic/prewutils/internal/setups"
)

// BuildSetup assembles and completes the configured setup. A configured
// modifier is applied to the completed setup.
func (c *Config) BuildSetup(opts ...setups.Option) (setups.Setup, error) {
	var (
		s   setups.Setup
		err error
	)
	switch c.Setup {
	case SetupGeneral:
		s, err = c.buildGeneral(opts)
	case SetupRK:
		s, err = c.buildRK(opts)
	default:
		err = fmt.Errorf("%w: unknown setup %q", ErrInvalidConfig, c.Setup)
	}
	if err != nil {
		return nil, err
	}
	if c.Modifier == nil {
		return s, nil
	}
	return setups.ApplyModifier(s, c.buildModifier())
}

func (c *Config) buildGeneral(opts []setups.Option) (*setups.GeneralSetup, error) {
	s := setups.NewGeneralSetup(c.Energy, opts...)
	if err := c.addInputs(s.AddInputFile, s.AddInputFiles); err != nil {
		return nil, err
	}
	for _, d := range c.Distributions {
		s.UseDistr(d.Name, setups.DistrMode(d.Mode))
	}

	run, err := buildRun(c.Runs[0])
	if err != nil {
		return nil, err
	}
	if err := s.SetRun(run); err != nil {
		return nil, err
	}

	for _, b := range c.AccBoxes {
		box := setuphelp.NewAccBoxInfo(b.Name, b.Coord, b.Center, b.Width)
		for _, d := range b.Distrs {
			box.AddDistr(d.Name, d.CoordIndex, d.BinWidth)
		}
		if b.FixCenter {
			box.FixCenter()
		}
		if b.FixWidth {
			box.FixWidth()
		}
		s.AddAccBox(box)
	}
	for _, b := range c.PolyBoxes {
		box := setuphelp.NewAccBoxPolynomialInfo(b.Name)
		for _, d := range b.Distrs {
			box.AddDistr(d)
		}
		if b.FixCenter {
			box.FixCenter()
		}
		if b.FixWidth {
			box.FixWidth()
		}
		s.AddAccBoxPolynomial(box)
	}
	for _, e := range c.Efficiencies {
		eff := setuphelp.NewConstEffInfo(e.Distr, e.Eff)
		if e.Constr != nil {
			eff.Constrain(e.Constr.Val, e.Constr.Unc)
		}
		if e.Fixed {
			eff.Fix()
		}
		s.AddConstEff(eff)
	}
	for _, t := range c.TGCs {
		tgc, err := setuphelp.NewTGCInfo(t.Distrs, setuphelp.TGCMode(t.Mode), setuphelp.TGCStyle(t.Style))
		if err != nil {
			return nil, err
		}
		s.AddTGC(tgc)
	}
	for _, x := range c.CrossSections {
		xs, err := setuphelp.NewCrossSectionInfo(x.Distr, x.Configs)
		if err != nil {
			return nil, err
		}
		if x.Total {
			xs.UseTotalChiralCrossSection()
		}
		if x.Asymmetries {
			if err := xs.UseChiralAsymmetries(x.AsymmNames...); err != nil {
				return nil, err
			}
		}
		s.AddCrossSection(xs)
	}
	if c.Ordering != nil {
		s.SetParOrdering(setuphelp.Ordering(c.Ordering.Order), setuphelp.IDMap(c.Ordering.IDs))
	}

	if err := s.CompleteSetup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Config) buildRK(opts []setups.Option) (*setups.RKDistrSetup, error) {
	s := setups.NewRKDistrSetup(opts...)
	for _, e := range c.Energies {
		s.AddEnergy(e)
	}
	addFiles := func(dir, pattern string, format input.Format) error {
		files, err := setuphelp.RegexSearch(dir, pattern)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := s.AddInputFile(f, format); err != nil {
				return err
			}
		}
		return nil
	}
	if err := c.addInputs(s.AddInputFile, addFiles); err != nil {
		return nil, err
	}
	for _, d := range c.Distributions {
		s.UseDistr(d.Name, setups.DistrMode(d.Mode))
	}

	for _, r := range c.Runs {
		s.SetLumi(r.Energy, r.Lumi.Val, r.Lumi.Unc)
		for _, p := range r.Pols {
			s.AddPol(p.Name, r.Energy, p.Val, p.Unc)
		}
		for _, pc := range r.PolConfigs {
			s.AddPolConfig(pc.Config, r.Energy, pc.EPol, pc.PPol, pc.ESign, pc.PSign, pc.LumiFraction)
		}
		if err := applyRunConstraints(r,
			func(val, unc float64) error { return s.AddLumiConstr(r.Energy, val, unc) },
			func(name string, val, unc float64) error { return s.AddPolConstr(name, r.Energy, val, unc) },
			func() error { return s.FixLumi(r.Energy) },
			func(name string) error { return s.FixPol(name, r.Energy) },
		); err != nil {
			return nil, err
		}
	}

	if c.RK.CTGCs != "" {
		if err := s.ActivateCTGCs(setuphelp.TGCMode(c.RK.CTGCs)); err != nil {
			return nil, err
		}
	}
	for _, x := range c.RK.FreeChiralXS {
		if err := s.FreeChiralXSection(x.Distr, x.Config); err != nil {
			return nil, err
		}
	}
	for _, d := range c.RK.FreeTotalXS {
		s.FreeTotalChiralXSection(d)
	}
	for _, a := range c.RK.Asymmetries {
		name := func(i int) string {
			if i < len(a.ParNames) {
				return a.ParNames[i]
			}
			return setuphelp.DefaultName
		}
		var err error
		if len(a.Configs) == 2 {
			err = s.FreeAsymmetry2XS(a.Distr, a.Configs[0], a.Configs[1], name(0))
		} else {
			err = s.FreeAsymmetry3XS(a.Distr, a.Configs[0], a.Configs[1], a.Configs[2], name(0), name(1))
		}
		if err != nil {
			return nil, err
		}
	}
	for _, af := range c.RK.FinalStateAfs {
		s.Free2fFinalStateAsymmetry(af.Distr, af.Par)
	}
	if c.RK.WWMuOnly {
		s.SetWWMuOnly()
	}
	if c.RK.ZZMuOnly {
		s.SetZZMuOnly()
	}

	if err := s.CompleteSetup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Config) addInputs(addFile func(string, input.Format) error, addFiles func(string, string, input.Format) error) error {
	for _, in := range c.Inputs {
		format, err := input.ParseFormat(in.Format)
		if err != nil {
			return err
		}
		if in.Path != "" {
			err = addFile(in.Path, format)
		} else {
			err = addFiles(in.Dir, in.Pattern, format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func buildRun(r RunConfig) (*setuphelp.RunInfo, error) {
	run := setuphelp.NewRunInfo(r.Energy)
	run.SetLumi(r.Lumi.Val, r.Lumi.Unc)
	for _, p := range r.Pols {
		run.AddPol(p.Name, p.Val, p.Unc)
	}
	for _, pc := range r.PolConfigs {
		run.AddPolConfig(pc.Config, pc.EPol, pc.PPol, pc.ESign, pc.PSign, pc.LumiFraction)
	}
	err := applyRunConstraints(r, run.AddLumiConstr, run.AddPolConstr, run.FixLumi, run.FixPol)
	return run, err
}

func applyRunConstraints(
	r RunConfig,
	lumiConstr func(val, unc float64) error,
	polConstr func(name string, val, unc float64) error,
	fixLumi func() error,
	fixPol func(name string) error,
) error {
	if c := r.Lumi.Constr; c != nil {
		if err := lumiConstr(c.Val, c.Unc); err != nil {
			return err
		}
	}
	if r.Lumi.Fixed {
		if err := fixLumi(); err != nil {
			return err
		}
	}
	for _, p := range r.Pols {
		if p.Constr != nil {
			if err := polConstr(p.Name, p.Constr.Val, p.Constr.Unc); err != nil {
				return err
			}
		}
		if p.Fixed {
			if err := fixPol(p.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Config) buildModifier() *setups.FitModifier {
	m := setups.NewFitModifier(c.Modifier.Energy)
	for _, af := range c.Modifier.Afs {
		m.AddAf(setuphelp.NewAfInfo(af.Distr, af.Par, af.CosThetaIndex))
	}
	for _, d := range c.Modifier.Difermions {
		m.AddDifermion(setuphelp.NewDifermionParamInfo(d.Distr, d.Pars))
	}
	if c.Ordering != nil {
		m.SetParOrdering(setuphelp.Ordering(c.Ordering.Order), setuphelp.IDMap(c.Ordering.IDs))
	}
	return m
}

// RunnerOptions translates the runner section. Extra options are applied
// after the configured ones.
func (c *Config) RunnerOptions(extra ...runners.Option) []runners.Option {
	opts := []runners.Option{runners.WithSeed(c.Runner.Seed)}
	if c.Runner.BinCut != nil {
		var pars fit.ParVec
		for _, p := range c.Runner.ParsForCut {
			pars = append(pars, fit.NewPar(p.Name, p.Val, 0))
		}
		opts = append(opts, runners.WithBinSelector(datahelp.NewBinSelector(*c.Runner.BinCut, pars)))
	}
	return append(opts, extra...)
}

// NewRunner builds the toy fit runner of a completed setup.
func (c *Config) NewRunner(s setups.Setup, extra ...runners.Option) (*runners.ParallelRunner, error) {
	return runners.NewParallelRunner(s, c.Runner.Chain, c.RunnerOptions(extra...)...)
}

// OpenStore connects the configured result store behind a circuit breaker.
// The returned closer releases the connection.
func (c *Config) OpenStore(ctx context.Context) (persistence.ResultStore, io.Closer, error) {
	if c.Store == nil {
		return nil, nil, fmt.Errorf("%w: no store configured", ErrInvalidConfig)
	}
	var (
		store  persistence.ResultStore
		closer io.Closer
	)
	switch c.Store.Driver {
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		s, err := sqlstore.Open(ctx, c.Store.Driver, c.Store.DSN, c.Store.Timeout)
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, s
	case "redis":
		s, err := redisstore.Dial(ctx, c.Store.Addr, c.Store.DB, c.Store.TTL)
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, s
	default:
		return nil, nil, fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	log.Info().Str("driver", c.Store.Driver).Msg("Result store connected")
	return persistence.NewBreakerStore(c.Store.Driver, store, persistence.DefaultBreakerConfig()), closer, nil
}

// MetricsServerConfig returns the metrics endpoint configuration, or false
// if no endpoint is configured.
func (c *Config) MetricsServerConfig() (metrics.ServerConfig, bool) {
	if c.Metrics == nil {
		return metrics.ServerConfig{}, false
	}
	sc := metrics.DefaultServerConfig()
	if c.Metrics.Host != "" {
		sc.Host = c.Metrics.Host
	}
	if c.Metrics.Port != 0 {
		sc.Port = c.Metrics.Port
	}
	return sc, true
}
