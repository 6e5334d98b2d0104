package setups

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/input"
	"github.com/sawpanic/prewutils/internal/names"
	"github.com/sawpanic/prewutils/internal/setuphelp"
)

// Distributions with lepton flavour mixtures that the mu-only switches
// correct.
const (
	WWSemileptonic = "WWsemileptonic"
	ZZSemileptonic = "ZZsemileptonic"

	tauRemovalFactor      = 0.5
	nuAndTauRemovalFactor = 0.168

	rkAsymmUnc   = 0.0001
	rkChiXSUnc   = 0.0001
	tgcAvailCoef = "TGCA"
)

type rkFile struct {
	path   string
	format input.Format
}

// RKDistrSetup is the multi-energy setup for the tabulated 4f/2f
// distributions. Luminosity and polarisations are separate per energy, all
// other parameters are shared between energies.
type RKDistrSetup struct {
	reader   input.Reader
	files    []rkFile
	energies []int
	modes    map[string]DistrMode

	runs    map[int]*setuphelp.RunInfo
	lumiSet map[int]bool
	common  fit.ParVec

	wwMuOnly bool
	zzMuOnly bool
	tgc      *setuphelp.TGCInfo
	freeXS   map[string][]string
	freeTot  []string
	asymms   []*setuphelp.ChiAsymmInfo
	afs      []*setuphelp.AfInfo

	inputDistrs []data.PredDistr
	inputCoefs  []data.CoefDistr
	usedDistrs  []data.PredDistr

	completed bool
	conn      data.Connector
}

func NewRKDistrSetup(opts ...Option) *RKDistrSetup {
	o := newOptions(opts)
	return &RKDistrSetup{
		reader:  o.reader,
		modes:   make(map[string]DistrMode),
		runs:    make(map[int]*setuphelp.RunInfo),
		lumiSet: make(map[int]bool),
		freeXS:  make(map[string][]string),
	}
}

// AddInputFile registers a file. Files are read for every energy when the
// setup is completed.
func (s *RKDistrSetup) AddInputFile(path string, format input.Format) error {
	if _, err := input.ParseFormat(string(format)); err != nil {
		return err
	}
	s.files = append(s.files, rkFile{path: path, format: format})
	return nil
}

// AddEnergy selects an energy the setup is produced for.
func (s *RKDistrSetup) AddEnergy(energy int) {
	if slices.Contains(s.energies, energy) {
		return
	}
	s.energies = append(s.energies, energy)
}

// UseDistr selects a distribution at all energies. Unknown modes are
// reported here and replaced by differential.
func (s *RKDistrSetup) UseDistr(distr string, mode DistrMode) {
	s.modes[distr] = parseMode(distr, mode)
}

func (s *RKDistrSetup) run(energy int) *setuphelp.RunInfo {
	r, ok := s.runs[energy]
	if !ok {
		r = setuphelp.NewRunInfo(energy)
		s.runs[energy] = r
	}
	return r
}

// SetLumi sets the total luminosity of an energy. A second call is ignored.
func (s *RKDistrSetup) SetLumi(energy int, val, unc float64) {
	if s.lumiSet[energy] {
		log.Warn().Int("energy", energy).Msg("Lumi for energy already set, not resetting")
		return
	}
	s.run(energy).SetLumi(val, unc)
	s.lumiSet[energy] = true
}

func (s *RKDistrSetup) AddPol(name string, energy int, val, unc float64) {
	s.run(energy).AddPol(name, val, unc)
}

// AddPolConfig adds a polarisation configuration with its luminosity
// fraction.
func (s *RKDistrSetup) AddPolConfig(config string, energy int, ePolName, pPolName, ePolSign, pPolSign string, lumiFraction float64) {
	s.run(energy).AddPolConfig(config, ePolName, pPolName, ePolSign, pPolSign, lumiFraction)
}

func (s *RKDistrSetup) AddLumiConstr(energy int, val, unc float64) error {
	return s.run(energy).AddLumiConstr(val, unc)
}

func (s *RKDistrSetup) AddPolConstr(name string, energy int, val, unc float64) error {
	return s.run(energy).AddPolConstr(name, val, unc)
}

func (s *RKDistrSetup) FixLumi(energy int) error { return s.run(energy).FixLumi() }

func (s *RKDistrSetup) FixPol(name string, energy int) error { return s.run(energy).FixPol(name) }

// ActivateCTGCs adds the charged TGCs to all distributions that provide
// TGC coefficients.
func (s *RKDistrSetup) ActivateCTGCs(mode setuphelp.TGCMode) error {
	tgc, err := setuphelp.NewTGCInfo(nil, mode, setuphelp.TGCStyleRK)
	if err != nil {
		return err
	}
	s.tgc = tgc
	s.common = datahelp.AddPars(s.common, tgc.Pars())
	return nil
}

// FreeChiralXSection scales one chiral cross section by a free parameter.
func (s *RKDistrSetup) FreeChiralXSection(distr, config string) error {
	name, err := names.ChiXSParName(distr, config)
	if err != nil {
		return err
	}
	s.common = datahelp.AddPar(s.common, fit.NewPar(name, 1.0, rkChiXSUnc))
	if !slices.Contains(s.freeXS[distr], config) {
		s.freeXS[distr] = append(s.freeXS[distr], config)
	}
	return nil
}

// FreeTotalChiralXSection scales all chiral cross sections of a
// distribution by one free parameter.
func (s *RKDistrSetup) FreeTotalChiralXSection(distr string) {
	s.common = datahelp.AddPar(s.common, fit.NewPar(names.TotalChiXSParName(distr), 1.0, 0.001))
	if !slices.Contains(s.freeTot, distr) {
		s.freeTot = append(s.freeTot, distr)
	}
}

// FreeAsymmetry2XS frees the asymmetry between two chiral cross sections.
// A parName of DefaultName selects the conventional name.
func (s *RKDistrSetup) FreeAsymmetry2XS(distr, config0, config1, parName string) error {
	var parNames []string
	if parName != setuphelp.DefaultName {
		parNames = []string{parName}
	}
	return s.addAsymm(distr, []string{config0, config1}, parNames)
}

// FreeAsymmetry3XS frees the two asymmetries between three chiral cross
// sections. Custom names are used unless both are DefaultName.
func (s *RKDistrSetup) FreeAsymmetry3XS(distr, config0, config1, config2, nameI, nameII string) error {
	var parNames []string
	if nameI != setuphelp.DefaultName || nameII != setuphelp.DefaultName {
		parNames = []string{nameI, nameII}
	}
	return s.addAsymm(distr, []string{config0, config1, config2}, parNames)
}

func (s *RKDistrSetup) addAsymm(distr string, configs, parNames []string) error {
	asymm, err := setuphelp.NewChiAsymmInfo(distr, configs, parNames)
	if err != nil {
		return err
	}
	s.asymms = append(s.asymms, asymm)
	return nil
}

// Free2fFinalStateAsymmetry frees Af of a 2-fermion distribution.
func (s *RKDistrSetup) Free2fFinalStateAsymmetry(distr, parName string) {
	s.afs = append(s.afs, setuphelp.NewAfInfo(distr, parName, 0))
}

func (s *RKDistrSetup) SetWWMuOnly() { s.wwMuOnly = true }

func (s *RKDistrSetup) SetZZMuOnly() { s.zzMuOnly = true }

// CompleteSetup reads the input files and creates all links, coefficients
// and parameters. Distributions are completed per energy in name order,
// then the chiral asymmetries and final state asymmetries are added.
func (s *RKDistrSetup) CompleteSetup() error {
	if s.completed {
		return ErrAlreadyCompleted
	}
	if err := s.readInputs(); err != nil {
		return err
	}

	p := pieces{pars: s.common.Clone()}
	for _, energy := range s.energies {
		if !s.lumiSet[energy] {
			log.Warn().Int("energy", energy).Msg("No lumi set for energy")
		}
		for _, distr := range slices.Sorted(maps.Keys(s.modes)) {
			s.completeDistr(&p, distr, energy)
		}
	}
	if err := s.completeAsymms(&p); err != nil {
		return err
	}
	if err := s.completeAfs(&p); err != nil {
		return err
	}

	var polLinks []data.PolLink
	for _, energy := range s.energies {
		polLinks = append(polLinks, s.run(energy).PolLinks()...)
	}
	s.common = p.pars
	s.conn = data.NewConnector(s.usedDistrs, p.coefs, p.links, polLinks)
	s.completed = true
	logState("RKDistrSetup", s.allPars(), s.conn)
	return nil
}

// readInputs reads every file once per energy and keeps that energy only.
func (s *RKDistrSetup) readInputs() error {
	for _, f := range s.files {
		for _, energy := range s.energies {
			preds, coefs, err := s.reader.Read(input.Source{Path: f.path, Format: f.format, Energy: energy})
			if err != nil {
				return fmt.Errorf("read %s at %d GeV: %w", f.path, energy, err)
			}
			for _, p := range preds {
				if p.Info.Energy == energy {
					s.inputDistrs = append(s.inputDistrs, p)
				}
			}
			for _, c := range coefs {
				if c.Info.Energy == energy {
					s.inputCoefs = append(s.inputCoefs, c)
				}
			}
		}
	}
	return nil
}

func (s *RKDistrSetup) completeDistr(p *pieces, distr string, energy int) {
	preds := data.SubvecEnergyAndName(s.inputDistrs, energy, distr)
	coefs := data.SubvecEnergyAndName(s.inputCoefs, energy, distr)
	if len(preds) == 0 {
		log.Warn().Str("distr", distr).Int("energy", energy).Msg("Didn't find any predictions for distribution, skipping")
		return
	}
	preds, coefs = applyMode(distr, s.modes[distr], preds, coefs)
	s.usedDistrs = append(s.usedDistrs, preds...)
	p.coefs = datahelp.AddCoefs(p.coefs, coefs)

	withTGCs := s.tgc != nil && slices.ContainsFunc(coefs, func(c data.CoefDistr) bool {
		return c.CoefName == tgcAvailCoef
	})
	for _, pred := range preds {
		if names.IsChiral(pred.Info.PolConfig) {
			s.completeChiral(p, pred.Info, withTGCs)
		}
	}

	run := s.run(energy)
	infos := data.FindInfos(preds)
	p.add(nil, run.PredLinks(infos), run.Coefs(infos))
}

// completeChiral builds the signal links of one chiral distribution.
func (s *RKDistrSetup) completeChiral(p *pieces, info data.DistrInfo, withTGCs bool) {
	var sig []data.FctLink
	if s.wwMuOnly && info.DistrName == WWSemileptonic {
		p.coefs = datahelp.AddCoef(p.coefs, data.NewScalarCoef(names.TauRemovalCoefName, info, tauRemovalFactor))
		sig = append(sig, data.FctLink{FctName: names.FctConstantCoef, CoefNames: []string{names.TauRemovalCoefName}})
	}
	if s.zzMuOnly && info.DistrName == ZZSemileptonic {
		p.coefs = datahelp.AddCoef(p.coefs, data.NewScalarCoef(names.NuAndTauRemovalCoefName, info, nuAndTauRemovalFactor))
		sig = append(sig, data.FctLink{FctName: names.FctConstantCoef, CoefNames: []string{names.NuAndTauRemovalCoefName}})
	}
	if withTGCs {
		p.coefs = datahelp.AddCoef(p.coefs, data.NewScalarCoef(names.UnityCoefName, info, 1.0))
		sig = append(sig, s.tgc.FctLink())
	}
	if slices.Contains(s.freeXS[info.DistrName], info.PolConfig) {
		// Config validated when freed.
		name, _ := names.ChiXSParName(info.DistrName, info.PolConfig)
		sig = append(sig, data.FctLink{FctName: names.FctConstant, ParNames: []string{name}})
	}
	if slices.Contains(s.freeTot, info.DistrName) {
		sig = append(sig, data.FctLink{FctName: names.FctConstant, ParNames: []string{names.TotalChiXSParName(info.DistrName)}})
	}
	if len(sig) > 0 {
		p.links = datahelp.AddLink(p.links, data.PredLink{Info: info, SigFctLinks: sig})
	}
}

func (s *RKDistrSetup) completeAsymms(p *pieces) error {
	for _, a := range s.asymms {
		p.pars = datahelp.AddPars(p.pars, a.Pars(0, rkAsymmUnc))
		for _, energy := range s.energies {
			preds := data.SubvecEnergyAndName(s.usedDistrs, energy, a.DistrName())
			if len(preds) == 0 {
				log.Warn().Str("distr", a.DistrName()).Int("energy", energy).Msg("Asymmetry without distribution")
				continue
			}
			var links []data.PredLink
			for _, c := range a.ChiralConfigs() {
				link, err := a.FctLink(energy, c)
				if err != nil {
					return err
				}
				info := data.DistrInfo{DistrName: a.DistrName(), PolConfig: c, Energy: energy}
				links = append(links, data.PredLink{Info: info, SigFctLinks: []data.FctLink{link}})
			}
			coefs, err := a.Coefs(preds)
			if err != nil {
				return fmt.Errorf("asymmetry of %s at %d GeV: %w", a.DistrName(), energy, err)
			}
			p.add(nil, links, coefs)
		}
	}
	return nil
}

func (s *RKDistrSetup) completeAfs(p *pieces) error {
	for _, af := range s.afs {
		p.pars = datahelp.AddPars(p.pars, af.Pars())
		for _, energy := range s.energies {
			preds := data.SubvecEnergyAndName(s.usedDistrs, energy, af.DistrName())
			if len(preds) == 0 {
				log.Warn().Str("distr", af.DistrName()).Int("energy", energy).Msg("Final state asymmetry without distribution")
				continue
			}
			links, err := af.PredLinks(data.FindInfos(preds))
			if err != nil {
				return err
			}
			coefs, err := af.Coefs(preds)
			if err != nil {
				return fmt.Errorf("final state asymmetry of %s at %d GeV: %w", af.DistrName(), energy, err)
			}
			p.add(nil, links, coefs)
		}
	}
	return nil
}

func (s *RKDistrSetup) Energies() []int { return append([]int(nil), s.energies...) }

// Pars returns the shared parameters followed by those of energy.
func (s *RKDistrSetup) Pars(energy int) (fit.ParVec, error) {
	if !s.completed {
		return nil, ErrNotCompleted
	}
	if !slices.Contains(s.energies, energy) {
		return nil, wrongEnergy(energy)
	}
	pars := s.common.Clone()
	return append(pars, s.run(energy).Pars()...), nil
}

// AllPars returns the shared parameters followed by those of every energy
// in ascending energy order.
func (s *RKDistrSetup) AllPars() (fit.ParVec, error) {
	if !s.completed {
		return nil, ErrNotCompleted
	}
	return s.allPars(), nil
}

func (s *RKDistrSetup) allPars() fit.ParVec {
	pars := s.common.Clone()
	for _, energy := range slices.Sorted(slices.Values(s.energies)) {
		pars = append(pars, s.run(energy).Pars()...)
	}
	return pars
}

func (s *RKDistrSetup) DataConnector() (data.Connector, error) {
	if !s.completed {
		return data.Connector{}, ErrNotCompleted
	}
	return s.conn, nil
}
