package setuphelp

import (
	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

type polConfig struct {
	link         data.PolLink
	lumiFraction float64
}

// RunInfo describes one collider run: its luminosity, beam polarisations and
// the polarisation configurations with their share of the luminosity.
type RunInfo struct {
	energy  int
	pars    fit.ParVec
	configs []polConfig
}

// NewRunInfo creates a run at energy with a luminosity parameter of value 0.
func NewRunInfo(energy int) *RunInfo {
	return &RunInfo{energy: energy, pars: fit.ParVec{fit.NewPar(names.LumiName(energy), 0, 1)}}
}

func (r *RunInfo) Energy() int { return r.energy }

func (r *RunInfo) LumiName() string { return names.LumiName(r.energy) }

// SetLumi sets the start value and uncertainty of the luminosity.
func (r *RunInfo) SetLumi(val, unc float64) {
	_ = datahelp.UpdatePar(r.pars, r.LumiName(), func(p *fit.Par) {
		p.ValIni, p.ValMod, p.UncIni = val, val, unc
	})
}

// AddPol adds a beam polarisation parameter. A repeated name keeps the
// first definition.
func (r *RunInfo) AddPol(name string, val, unc float64) {
	r.pars = datahelp.AddPar(r.pars, fit.NewPar(name, val, unc))
}

// AddPolConfig adds a polarisation configuration built from the named
// polarisations with the given signs, receiving lumiFraction of the
// luminosity.
func (r *RunInfo) AddPolConfig(config, ePolName, pPolName, ePolSign, pPolSign string, lumiFraction float64) {
	r.configs = append(r.configs, polConfig{
		link: data.PolLink{
			Energy:    r.energy,
			PolConfig: config,
			EPolName:  ePolName,
			PPolName:  pPolName,
			EPolSign:  ePolSign,
			PPolSign:  pPolSign,
		},
		lumiFraction: lumiFraction,
	})
}

func (r *RunInfo) AddLumiConstr(val, unc float64) error {
	return datahelp.ConstrainPar(r.pars, r.LumiName(), val, unc)
}

func (r *RunInfo) AddPolConstr(name string, val, unc float64) error {
	return datahelp.ConstrainPar(r.pars, name, val, unc)
}

func (r *RunInfo) FixLumi() error { return datahelp.FixPar(r.pars, r.LumiName()) }

func (r *RunInfo) FixPol(name string) error { return datahelp.FixPar(r.pars, name) }

func (r *RunInfo) Pars() fit.ParVec { return r.pars.Clone() }

func (r *RunInfo) PolLinks() []data.PolLink {
	out := make([]data.PolLink, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c.link)
	}
	return out
}

// PredLinks scales signal and background of every polarised distribution
// with its luminosity share. One link is created per distribution name and
// polarisation configuration.
func (r *RunInfo) PredLinks(infos []data.DistrInfo) []data.PredLink {
	var links []data.PredLink
	for _, distr := range data.FindDistrNames(infos) {
		for _, c := range r.configs {
			link := data.FctLink{
				FctName:   names.FctLuminosityFraction,
				ParNames:  []string{r.LumiName()},
				CoefNames: []string{names.LumiFractionName(c.link.PolConfig, r.energy)},
			}
			links = append(links, data.PredLink{
				Info:        data.DistrInfo{DistrName: distr, PolConfig: c.link.PolConfig, Energy: r.energy},
				SigFctLinks: []data.FctLink{link},
				BkgFctLinks: []data.FctLink{link.Clone()},
			})
		}
	}
	return links
}

// Coefs provides the luminosity fractions for every distribution name.
func (r *RunInfo) Coefs(infos []data.DistrInfo) []data.CoefDistr {
	var coefs []data.CoefDistr
	for _, distr := range data.FindDistrNames(infos) {
		for _, c := range r.configs {
			info := data.DistrInfo{DistrName: distr, PolConfig: c.link.PolConfig, Energy: r.energy}
			coefs = append(coefs, data.NewScalarCoef(names.LumiFractionName(c.link.PolConfig, r.energy), info, c.lumiFraction))
		}
	}
	return coefs
}
