package setuphelp

import (
	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

// ConstEffInfo scales the signal of one distribution by a constant
// efficiency.
type ConstEffInfo struct {
	distr string
	par   fit.Par
}

func NewConstEffInfo(distr string, eff float64) *ConstEffInfo {
	return &ConstEffInfo{distr: distr, par: fit.NewPar(names.ConstEffName(distr), eff, 0.0001*eff)}
}

func (e *ConstEffInfo) Fix() { e.par.Fix() }

func (e *ConstEffInfo) Constrain(val, unc float64) { e.par.SetConstrGauss(val, unc) }

func (e *ConstEffInfo) Pars() fit.ParVec { return fit.ParVec{e.par.Clone()} }

func (e *ConstEffInfo) PredLinks(infos []data.DistrInfo) []data.PredLink {
	var links []data.PredLink
	for _, info := range infos {
		if info.DistrName != e.distr {
			continue
		}
		links = append(links, data.PredLink{
			Info:        info,
			SigFctLinks: []data.FctLink{{FctName: names.FctConstant, ParNames: []string{e.par.Name}}},
		})
	}
	return links
}
