package setuphelp

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

const asymmUnc = 0.0001

// ChiAsymmInfo describes the chiral asymmetries of one distribution: n chiral
// configurations are reparametrised by n-1 asymmetry parameters that leave
// the total cross section unchanged.
type ChiAsymmInfo struct {
	distr    string
	configs  []string
	parNames []string
}

// NewChiAsymmInfo creates the asymmetry description. Empty or wrongly sized
// parNames fall back to the conventional names.
func NewChiAsymmInfo(distr string, configs, parNames []string) (*ChiAsymmInfo, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: asymmetries of %s", ErrNoConfigs, distr)
	}
	if len(configs) < 2 {
		return nil, fmt.Errorf("%w: %s has %d", ErrTooFewConfigs, distr, len(configs))
	}
	for i, c := range configs {
		for _, o := range configs[:i] {
			if c == o {
				return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateChirality, c, distr)
			}
		}
	}

	a := &ChiAsymmInfo{distr: distr, configs: append([]string(nil), configs...)}
	if len(parNames) == len(configs)-1 {
		a.parNames = append([]string(nil), parNames...)
		return a, nil
	}
	if len(parNames) > 0 {
		log.Warn().Str("distr", distr).Int("names", len(parNames)).Int("asymmetries", len(configs)-1).
			Msg("Asymmetry parameter names do not match config count, using default names")
	}
	var err error
	if a.parNames, err = defaultAsymmNames(distr, len(configs)); err != nil {
		return nil, err
	}
	return a, nil
}

// defaultAsymmNames uses the single unnumbered name for two configs and
// numbered names otherwise.
func defaultAsymmNames(distr string, nConfigs int) ([]string, error) {
	if nConfigs == 2 {
		name, err := names.AsymmParName(distr, 0)
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}
	out := make([]string, 0, nConfigs-1)
	for i := 1; i < nConfigs; i++ {
		name, err := names.AsymmParName(distr, i)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func (a *ChiAsymmInfo) DistrName() string { return a.distr }

func (a *ChiAsymmInfo) ChiralConfigs() []string { return append([]string(nil), a.configs...) }

func (a *ChiAsymmInfo) ParNames() []string { return append([]string(nil), a.parNames...) }

func (a *ChiAsymmInfo) NAsymms() int { return len(a.parNames) }

// Pars returns all asymmetry parameters with the same start value.
func (a *ChiAsymmInfo) Pars(val, unc float64) fit.ParVec {
	pars := make(fit.ParVec, 0, len(a.parNames))
	for _, n := range a.parNames {
		pars = append(pars, fit.NewPar(n, val, unc))
	}
	return pars
}

// FctLink is the asymmetry factor of one chiral configuration at energy.
func (a *ChiAsymmInfo) FctLink(energy int, config string) (data.FctLink, error) {
	index := -1
	for i, c := range a.configs {
		if c == config {
			index = i
		}
	}
	if index < 0 {
		return data.FctLink{}, fmt.Errorf("%w: %s not in asymmetries of %s", names.ErrUnknownChirality, config, a.distr)
	}
	coefs := make([]string, 0, len(a.configs))
	for _, c := range a.configs {
		coefs = append(coefs, names.ChiXSCoefName(a.distr, c, energy))
	}
	return data.FctLink{
		FctName:   names.ChiralAsymmName(index, len(a.configs)),
		ParNames:  a.ParNames(),
		CoefNames: coefs,
	}, nil
}

// Coefs broadcasts the summed signal of every configuration onto all
// configurations at the energy of the first prediction.
func (a *ChiAsymmInfo) Coefs(preds []data.PredDistr) ([]data.CoefDistr, error) {
	energy, err := predsEnergy(preds)
	if err != nil {
		return nil, err
	}
	var coefs []data.CoefDistr
	for _, c := range a.configs {
		pred, err := findPred(preds, data.DistrInfo{DistrName: a.distr, PolConfig: c, Energy: energy})
		if err != nil {
			return nil, err
		}
		xs, err := datahelp.PredSum(pred, datahelp.TypeSignal)
		if err != nil {
			return nil, err
		}
		name := names.ChiXSCoefName(a.distr, c, energy)
		for _, target := range a.configs {
			coefs = append(coefs, data.NewScalarCoef(name, data.DistrInfo{DistrName: a.distr, PolConfig: target, Energy: energy}, xs))
		}
	}
	return coefs, nil
}

type xsLinkKind int

const (
	xsTotal xsLinkKind = iota
	xsAsymm
)

// CrossSectionInfo describes cross section freedoms of one distribution:
// a total chiral scaling, chiral asymmetries or both. Links are emitted in
// the order the freedoms were enabled.
type CrossSectionInfo struct {
	distr   string
	configs []string
	pars    fit.ParVec
	kinds   []xsLinkKind
	asymm   *ChiAsymmInfo
}

func NewCrossSectionInfo(distr string, configs []string) (*CrossSectionInfo, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: cross section of %s", ErrNoConfigs, distr)
	}
	return &CrossSectionInfo{distr: distr, configs: append([]string(nil), configs...)}, nil
}

// UseTotalChiralCrossSection scales all chiral cross sections by one factor.
func (x *CrossSectionInfo) UseTotalChiralCrossSection() {
	for _, k := range x.kinds {
		if k == xsTotal {
			return
		}
	}
	x.pars = datahelp.AddPar(x.pars, fit.NewPar(names.TotalChiXSParName(x.distr), 1.0, 0.001))
	x.kinds = append(x.kinds, xsTotal)
}

// UseChiralAsymmetries frees the chiral asymmetries, optionally with custom
// parameter names.
func (x *CrossSectionInfo) UseChiralAsymmetries(parNames ...string) error {
	if x.asymm != nil {
		return nil
	}
	asymm, err := NewChiAsymmInfo(x.distr, x.configs, parNames)
	if err != nil {
		return err
	}
	x.asymm = asymm
	x.pars = datahelp.AddPars(x.pars, asymm.Pars(0, asymmUnc))
	x.kinds = append(x.kinds, xsAsymm)
	return nil
}

func (x *CrossSectionInfo) DistrName() string { return x.distr }

func (x *CrossSectionInfo) Pars() fit.ParVec { return x.pars.Clone() }

// PredLinks creates the signal links of every configuration at the energy
// of the first info.
func (x *CrossSectionInfo) PredLinks(infos []data.DistrInfo) ([]data.PredLink, error) {
	energy, err := infosEnergy(infos)
	if err != nil {
		return nil, err
	}
	var links []data.PredLink
	for _, kind := range x.kinds {
		for _, c := range x.configs {
			info := data.DistrInfo{DistrName: x.distr, PolConfig: c, Energy: energy}
			var link data.FctLink
			switch kind {
			case xsTotal:
				link = data.FctLink{FctName: names.FctConstant, ParNames: []string{names.TotalChiXSParName(x.distr)}}
			case xsAsymm:
				if link, err = x.asymm.FctLink(energy, c); err != nil {
					return nil, err
				}
			}
			links = append(links, data.PredLink{Info: info, SigFctLinks: []data.FctLink{link}})
		}
	}
	return links, nil
}

// Coefs provides the summed chiral cross sections the asymmetries need.
// Without asymmetries no coefficients are required.
func (x *CrossSectionInfo) Coefs(preds []data.PredDistr) ([]data.CoefDistr, error) {
	if x.asymm == nil {
		return nil, nil
	}
	return x.asymm.Coefs(preds)
}
