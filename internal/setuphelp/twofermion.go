package setuphelp

import (
	"fmt"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

// twoFermionCoefs are the coefficients shared by all 2-fermion
// parametrisations: each chiral config gets its own signal shape, both
// get both summed cross sections and the cos(theta) coordinate index.
func twoFermionCoefs(distr string, cosThetaIndex int, preds []data.PredDistr) ([]data.CoefDistr, error) {
	energy, err := predsEnergy(preds)
	if err != nil {
		return nil, err
	}
	lr, rl := twoChiralInfos(distr, energy)
	targets := []data.DistrInfo{lr, rl}

	var coefs []data.CoefDistr
	for _, info := range targets {
		pred, err := findPred(preds, info)
		if err != nil {
			return nil, err
		}
		shape, err := datahelp.PredToCoef(pred, datahelp.TypeSignal)
		if err != nil {
			return nil, err
		}
		coefs = append(coefs, data.NewCoef(names.ChiDistrCoefName(distr, info.PolConfig, energy, names.CoefTypeSignal), info, shape))

		xs, err := datahelp.PredSum(pred, datahelp.TypeSignal)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			coefs = append(coefs, data.NewScalarCoef(names.ChiXSCoefName(distr, info.PolConfig, energy), target, xs))
		}
	}
	for _, target := range targets {
		coefs = append(coefs, data.NewScalarCoef(names.CosThetaIndexCoefName, target, float64(cosThetaIndex)))
	}
	return coefs, nil
}

// AfInfo frees the final state asymmetry of a 2-fermion distribution while
// keeping its chiral cross sections.
type AfInfo struct {
	distr         string
	cosThetaIndex int
	par           fit.Par
}

// NewAfInfo creates the Af parameter. The name DefaultName selects Af_<distr>.
func NewAfInfo(distr, parName string, cosThetaIndex int) *AfInfo {
	if isDefault(parName) {
		parName = names.AfParName(distr)
	}
	return &AfInfo{distr: distr, cosThetaIndex: cosThetaIndex, par: fit.NewPar(parName, 0, 0.0001)}
}

func (a *AfInfo) DistrName() string { return a.distr }

func (a *AfInfo) Pars() fit.ParVec { return fit.ParVec{a.par.Clone()} }

// FctLink is the asymmetry factor for one of the two chiral configs.
func (a *AfInfo) FctLink(info data.DistrInfo) (data.FctLink, error) {
	var fct string
	switch info.PolConfig {
	case names.ELpR:
		fct = names.FctAsymmFactorLRAf
	case names.ERpL:
		fct = names.FctAsymmFactorRLAf
	default:
		return data.FctLink{}, fmt.Errorf("%w: Af of %s got %s", ErrInvalidChirality, a.distr, info.PolConfig)
	}
	return data.FctLink{
		FctName:  fct,
		ParNames: []string{a.par.Name},
		CoefNames: []string{
			names.ChiXSCoefName(a.distr, info.PolConfig, info.Energy),
			names.ChiDistrCoefName(a.distr, info.PolConfig, info.Energy, names.CoefTypeSignal),
			names.CosThetaIndexCoefName,
		},
	}, nil
}

// PredLinks links both chiral signals at the energy of the first info.
func (a *AfInfo) PredLinks(infos []data.DistrInfo) ([]data.PredLink, error) {
	energy, err := infosEnergy(infos)
	if err != nil {
		return nil, err
	}
	lr, rl := twoChiralInfos(a.distr, energy)
	var links []data.PredLink
	for _, info := range []data.DistrInfo{lr, rl} {
		link, err := a.FctLink(info)
		if err != nil {
			return nil, err
		}
		links = append(links, data.PredLink{Info: info, SigFctLinks: []data.FctLink{link}})
	}
	return links, nil
}

func (a *AfInfo) Coefs(preds []data.PredDistr) ([]data.CoefDistr, error) {
	return twoFermionCoefs(a.distr, a.cosThetaIndex, preds)
}

// DifermionPar configures one parameter of the general 2-fermion
// parametrisation.
type DifermionPar struct {
	Name   string           `yaml:"name" json:"name"`
	Val    float64          `yaml:"val" json:"val"`
	Constr *fit.GaussConstr `yaml:"constr,omitempty" json:"constr,omitempty"`
}

// DifermionPars configures a general 2-fermion parametrisation. In the
// unpolarised variant AFB, K0 and DK take their values from Ae, Af, Ef, KL
// and KR; only their names and constraints are read.
type DifermionPars struct {
	S0            DifermionPar `yaml:"s0" json:"s0"`
	Ae            DifermionPar `yaml:"Ae" json:"Ae"`
	Af            DifermionPar `yaml:"Af" json:"Af"`
	Ef            DifermionPar `yaml:"ef" json:"ef"`
	KL            DifermionPar `yaml:"kL" json:"kL"`
	KR            DifermionPar `yaml:"kR" json:"kR"`
	AFB           DifermionPar `yaml:"AFB" json:"AFB"`
	K0            DifermionPar `yaml:"k0" json:"k0"`
	DK            DifermionPar `yaml:"dk" json:"dk"`
	CosThetaIndex int          `yaml:"cos_theta_index" json:"cos_theta_index"`
	Unpolarised   bool         `yaml:"unpolarised" json:"unpolarised"`
}

// DefaultDifermionPars starts at the Standard Model-like point s0=1, all
// asymmetries and corrections zero.
func DefaultDifermionPars() DifermionPars {
	return DifermionPars{S0: DifermionPar{Val: 1}}
}

const difermionUnc = 0.001

// DifermionParamInfo replaces the chiral signals of a 2-fermion
// distribution by the general s0/Ae/Af/ef/kL/kR parametrisation.
type DifermionParamInfo struct {
	distr         string
	cosThetaIndex int
	unpol         bool
	pars          fit.ParVec
}

func NewDifermionParamInfo(distr string, cfg DifermionPars) *DifermionParamInfo {
	d := &DifermionParamInfo{distr: distr, cosThetaIndex: cfg.CosThetaIndex, unpol: cfg.Unpolarised}
	add := func(prefix string, p DifermionPar, val float64) {
		name := p.Name
		if isDefault(name) {
			name = prefix + "_" + distr
		}
		par := fit.NewPar(name, val, difermionUnc)
		if p.Constr != nil {
			par.SetConstrGauss(p.Constr.Val, p.Constr.Unc)
		}
		d.pars = append(d.pars, par)
	}

	add("s0", cfg.S0, cfg.S0.Val)
	add("Ae", cfg.Ae, cfg.Ae.Val)
	if cfg.Unpolarised {
		add("AFB", cfg.AFB, 3.0/8.0*(cfg.Ef.Val+2*cfg.Ae.Val*cfg.Af.Val))
		add("k0", cfg.K0, (cfg.KL.Val+cfg.KR.Val)/2)
		add("dk", cfg.DK, (cfg.KL.Val-cfg.KR.Val)/2)
		return d
	}
	add("Af", cfg.Af, cfg.Af.Val)
	add("ef", cfg.Ef, cfg.Ef.Val)
	add("kL", cfg.KL, cfg.KL.Val)
	add("kR", cfg.KR, cfg.KR.Val)
	return d
}

func (d *DifermionParamInfo) DistrName() string { return d.distr }

func (d *DifermionParamInfo) Pars() fit.ParVec { return d.pars.Clone() }

func (d *DifermionParamInfo) FctLink(info data.DistrInfo) (data.FctLink, error) {
	lrFct, rlFct := names.FctGeneral2fParamLR, names.FctGeneral2fParamRL
	if d.unpol {
		lrFct, rlFct = names.FctGeneral2fParamUnpolLR, names.FctGeneral2fParamUnpolRL
	}
	var fct string
	switch info.PolConfig {
	case names.ELpR:
		fct = lrFct
	case names.ERpL:
		fct = rlFct
	default:
		return data.FctLink{}, fmt.Errorf("%w: 2f parametrisation of %s got %s", ErrInvalidChirality, d.distr, info.PolConfig)
	}
	return data.FctLink{
		FctName:  fct,
		ParNames: d.pars.Names(),
		CoefNames: []string{
			names.ChiDistrCoefName(d.distr, info.PolConfig, info.Energy, names.CoefTypeSignal),
			names.ChiXSCoefName(d.distr, names.ELpR, info.Energy),
			names.ChiXSCoefName(d.distr, names.ERpL, info.Energy),
			names.CosThetaIndexCoefName,
		},
	}, nil
}

func (d *DifermionParamInfo) PredLinks(infos []data.DistrInfo) ([]data.PredLink, error) {
	energy, err := infosEnergy(infos)
	if err != nil {
		return nil, err
	}
	lr, rl := twoChiralInfos(d.distr, energy)
	var links []data.PredLink
	for _, info := range []data.DistrInfo{lr, rl} {
		link, err := d.FctLink(info)
		if err != nil {
			return nil, err
		}
		links = append(links, data.PredLink{Info: info, SigFctLinks: []data.FctLink{link}})
	}
	return links, nil
}

func (d *DifermionParamInfo) Coefs(preds []data.PredDistr) ([]data.CoefDistr, error) {
	return twoFermionCoefs(d.distr, d.cosThetaIndex, preds)
}
