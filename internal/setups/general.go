package setups

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/input"
	"github.com/sawpanic/prewutils/internal/setuphelp"
)

// GeneralSetup assembles a single-energy setup from Info objects.
// Register inputs and parametrisations, then call CompleteSetup once.
type GeneralSetup struct {
	energy int
	reader input.Reader
	run    *setuphelp.RunInfo

	inputDistrs []data.PredDistr
	inputCoefs  []data.CoefDistr
	usedDistrs  []data.PredDistr
	usedCoefs   []data.CoefDistr

	accBoxes  []*setuphelp.AccBoxInfo
	polyBoxes []*setuphelp.AccBoxPolynomialInfo
	effs      []*setuphelp.ConstEffInfo
	tgcs      []*setuphelp.TGCInfo
	xsections []*setuphelp.CrossSectionInfo

	ordering setuphelp.Ordering
	idMap    setuphelp.IDMap

	completed bool
	pars      fit.ParVec
	conn      data.Connector
}

func NewGeneralSetup(energy int, opts ...Option) *GeneralSetup {
	o := newOptions(opts)
	return &GeneralSetup{
		energy:   energy,
		reader:   o.reader,
		run:      setuphelp.NewRunInfo(energy),
		ordering: setuphelp.DefaultOrdering(),
		idMap:    setuphelp.DefaultIDMap(),
	}
}

// AddInputFile reads all distributions and coefficients of a file.
func (s *GeneralSetup) AddInputFile(path string, format input.Format) error {
	if _, err := input.ParseFormat(string(format)); err != nil {
		return err
	}
	preds, coefs, err := s.reader.Read(input.Source{Path: path, Format: format, Energy: s.energy})
	if err != nil {
		return err
	}
	log.Debug().Str("file", path).Int("distrs", len(preds)).Int("coefs", len(coefs)).Msg("Read input file")
	s.inputDistrs = append(s.inputDistrs, preds...)
	s.inputCoefs = append(s.inputCoefs, coefs...)
	return nil
}

// AddInputFiles reads every file in dir whose name matches pattern.
func (s *GeneralSetup) AddInputFiles(dir, pattern string, format input.Format) error {
	paths, err := setuphelp.RegexSearch(dir, pattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Warn().Str("dir", dir).Str("pattern", pattern).Msg("No input files found")
	}
	for _, p := range paths {
		if err := s.AddInputFile(p, format); err != nil {
			return err
		}
	}
	return nil
}

// UseDistr selects a distribution of the setup energy for the fit.
func (s *GeneralSetup) UseDistr(distr string, mode DistrMode) {
	preds := data.SubvecEnergyAndName(s.inputDistrs, s.energy, distr)
	coefs := data.SubvecEnergyAndName(s.inputCoefs, s.energy, distr)
	if len(preds) == 0 {
		log.Warn().Str("distr", distr).Int("energy", s.energy).Msg("Didn't find any predictions for distribution")
	} else {
		log.Debug().Str("distr", distr).Int("n", len(preds)).Msg("Found chiral distributions")
	}
	preds, coefs = applyMode(distr, parseMode(distr, mode), preds, coefs)
	s.usedDistrs = append(s.usedDistrs, preds...)
	s.usedCoefs = append(s.usedCoefs, coefs...)
}

// SetRun replaces the collider run of the setup.
func (s *GeneralSetup) SetRun(run *setuphelp.RunInfo) error {
	if run.Energy() != s.energy {
		return fmt.Errorf("run at %d GeV in setup at %d GeV: %w", run.Energy(), s.energy, ErrWrongEnergy)
	}
	s.run = run
	return nil
}

func (s *GeneralSetup) AddAccBox(b *setuphelp.AccBoxInfo) { s.accBoxes = append(s.accBoxes, b) }

func (s *GeneralSetup) AddAccBoxPolynomial(b *setuphelp.AccBoxPolynomialInfo) {
	s.polyBoxes = append(s.polyBoxes, b)
}

func (s *GeneralSetup) AddConstEff(e *setuphelp.ConstEffInfo) { s.effs = append(s.effs, e) }

func (s *GeneralSetup) AddTGC(t *setuphelp.TGCInfo) { s.tgcs = append(s.tgcs, t) }

func (s *GeneralSetup) AddCrossSection(x *setuphelp.CrossSectionInfo) {
	s.xsections = append(s.xsections, x)
}

// SetParOrdering replaces the output parameter ordering. A nil idMap keeps
// the default categories.
func (s *GeneralSetup) SetParOrdering(ordering setuphelp.Ordering, idMap setuphelp.IDMap) {
	s.ordering = ordering
	if idMap != nil {
		s.idMap = idMap
	}
}

// CompleteSetup creates all parameters, links and coefficients. The steps
// run in a fixed order: run, acceptance boxes, polynomial boxes,
// efficiencies, TGCs, cross sections and finally the parameter ordering.
func (s *GeneralSetup) CompleteSetup() error {
	if s.completed {
		return ErrAlreadyCompleted
	}
	infos := data.FindInfos(s.usedDistrs)
	p := pieces{coefs: append([]data.CoefDistr(nil), s.usedCoefs...)}

	log.Debug().Int("energy", s.energy).Msg("Completing individual setups")
	p.add(s.run.Pars(), s.run.PredLinks(infos), s.run.Coefs(infos))
	for _, b := range s.accBoxes {
		p.add(b.Pars(), b.PredLinks(infos), b.Coefs(infos))
	}
	for _, b := range s.polyBoxes {
		p.add(b.Pars(), b.PredLinks(infos), nil)
	}
	for _, e := range s.effs {
		p.add(e.Pars(), e.PredLinks(infos), nil)
	}
	for _, t := range s.tgcs {
		p.add(t.Pars(), t.PredLinks(infos), t.Coefs(infos))
	}
	for _, x := range s.xsections {
		links, err := x.PredLinks(infos)
		if err != nil {
			return fmt.Errorf("cross section of %s: %w", x.DistrName(), err)
		}
		coefs, err := x.Coefs(s.usedDistrs)
		if err != nil {
			return fmt.Errorf("cross section of %s: %w", x.DistrName(), err)
		}
		p.add(x.Pars(), links, coefs)
	}

	log.Debug().Msg("Reordering parameters")
	pars, err := setuphelp.ReorderPars(p.pars, s.ordering, s.idMap)
	if err != nil {
		return err
	}

	s.pars = pars
	s.conn = data.NewConnector(s.usedDistrs, p.coefs, p.links, s.run.PolLinks())
	s.completed = true
	logState("GeneralSetup", s.pars, s.conn)
	return nil
}

func (s *GeneralSetup) Energy() int { return s.energy }

func (s *GeneralSetup) Energies() []int { return []int{s.energy} }

// Pars returns the ordered parameters. The setup is energy specific, any
// other energy is an error.
func (s *GeneralSetup) Pars(energy int) (fit.ParVec, error) {
	if !s.completed {
		return nil, ErrNotCompleted
	}
	if energy != s.energy {
		return nil, wrongEnergy(energy)
	}
	return s.pars.Clone(), nil
}

func (s *GeneralSetup) DataConnector() (data.Connector, error) {
	if !s.completed {
		return data.Connector{}, ErrNotCompleted
	}
	return s.conn, nil
}
