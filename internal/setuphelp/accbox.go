package setuphelp

import (
	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

const accBoxUnc = 0.0001

// AccBoxInfo describes an acceptance box (center and width) on one
// coordinate of the affected distributions.
type AccBoxInfo struct {
	name      string
	coordName string
	pars      fit.ParVec
	coefs     []data.CoefDistr
	distrs    []string
}

// NewAccBoxInfo creates a box named name acting on the coordinate whose index
// coefficient is called coordName.
func NewAccBoxInfo(name, coordName string, center, width float64) *AccBoxInfo {
	b := &AccBoxInfo{name: name, coordName: coordName}
	b.pars = fit.ParVec{
		fit.NewPar(b.CenterName(), center, accBoxUnc),
		fit.NewPar(b.WidthName(), width, accBoxUnc),
	}
	return b
}

func (b *AccBoxInfo) CenterName() string { return b.name + "_center" }
func (b *AccBoxInfo) WidthName() string  { return b.name + "_width" }

// AddDistr adds an affected distribution together with the index of the
// box coordinate and the bin width of the distribution.
func (b *AccBoxInfo) AddDistr(distr string, coordIndex int, binWidth float64) {
	named := data.DistrInfo{DistrName: distr}
	b.coefs = append(b.coefs,
		data.NewScalarCoef(b.coordName, named, float64(coordIndex)),
		data.NewScalarCoef(names.BinWidthCoefName, named, binWidth),
	)
	b.distrs = append(b.distrs, distr)
}

func (b *AccBoxInfo) FixCenter() { _ = datahelp.FixPar(b.pars, b.CenterName()) }
func (b *AccBoxInfo) FixWidth()  { _ = datahelp.FixPar(b.pars, b.WidthName()) }

// Pars returns the center and width parameters.
func (b *AccBoxInfo) Pars() fit.ParVec { return b.pars.Clone() }

// ParsWith returns the box parameters with other starting values. Fixed
// flags are kept.
func (b *AccBoxInfo) ParsWith(center, width, unc float64) fit.ParVec {
	out := fit.ParVec{
		fit.NewPar(b.CenterName(), center, unc),
		fit.NewPar(b.WidthName(), width, unc),
	}
	for i := range out {
		out[i].Fixed = b.pars[i].Fixed
	}
	return out
}

// FctLink is the acceptance box instruction shared by all affected bins.
func (b *AccBoxInfo) FctLink() data.FctLink {
	return data.FctLink{
		FctName:   names.FctAcceptanceBox,
		ParNames:  []string{b.CenterName(), b.WidthName()},
		CoefNames: []string{b.coordName, names.BinWidthCoefName},
	}
}

// PredLinks links signal and background of every affected distribution.
func (b *AccBoxInfo) PredLinks(infos []data.DistrInfo) []data.PredLink {
	var links []data.PredLink
	link := b.FctLink()
	for _, info := range infos {
		if affects(b.distrs, info) {
			links = append(links, data.PredLink{
				Info:        info,
				SigFctLinks: []data.FctLink{link.Clone()},
				BkgFctLinks: []data.FctLink{link.Clone()},
			})
		}
	}
	return links
}

// Coefs attaches the coordinate index and bin width to every affected info.
func (b *AccBoxInfo) Coefs(infos []data.DistrInfo) []data.CoefDistr {
	var coefs []data.CoefDistr
	for _, info := range infos {
		for _, c := range b.coefs {
			if c.Info.DistrName == info.DistrName {
				coefs = append(coefs, data.NewCoef(c.CoefName, info, c.Coefs))
			}
		}
	}
	return coefs
}

// AccBoxPolynomialInfo describes acceptance box deviations whose effect is
// a second order polynomial with coefficients provided by the input files.
type AccBoxPolynomialInfo struct {
	name   string
	pars   fit.ParVec
	distrs []string
}

// NewAccBoxPolynomialInfo creates the dCenter/dWidth deviation parameters.
func NewAccBoxPolynomialInfo(name string) *AccBoxPolynomialInfo {
	b := &AccBoxPolynomialInfo{name: name}
	b.pars = fit.ParVec{
		fit.NewPar(b.CenterName(), 0, accBoxUnc),
		fit.NewPar(b.WidthName(), 0, accBoxUnc),
	}
	return b
}

func (b *AccBoxPolynomialInfo) CenterName() string { return b.name + "_dCenter" }
func (b *AccBoxPolynomialInfo) WidthName() string  { return b.name + "_dWidth" }

func (b *AccBoxPolynomialInfo) AddDistr(distr string) { b.distrs = append(b.distrs, distr) }

func (b *AccBoxPolynomialInfo) FixCenter() { _ = datahelp.FixPar(b.pars, b.CenterName()) }
func (b *AccBoxPolynomialInfo) FixWidth()  { _ = datahelp.FixPar(b.pars, b.WidthName()) }

func (b *AccBoxPolynomialInfo) Pars() fit.ParVec { return b.pars.Clone() }

// CoefNames lists the polynomial coefficients k0, kc, kw, kc2, kw2, kcw.
func (b *AccBoxPolynomialInfo) CoefNames() []string {
	out := make([]string, 0, 6)
	for _, k := range []string{"k0", "kc", "kw", "kc2", "kw2", "kcw"} {
		out = append(out, b.name+"_"+k)
	}
	return out
}

func (b *AccBoxPolynomialInfo) FctLink() data.FctLink {
	return data.FctLink{
		FctName:   names.FctAcceptanceBoxPolynomial,
		ParNames:  []string{b.CenterName(), b.WidthName()},
		CoefNames: b.CoefNames(),
	}
}

func (b *AccBoxPolynomialInfo) PredLinks(infos []data.DistrInfo) []data.PredLink {
	var links []data.PredLink
	link := b.FctLink()
	for _, info := range infos {
		if affects(b.distrs, info) {
			links = append(links, data.PredLink{
				Info:        info,
				SigFctLinks: []data.FctLink{link.Clone()},
				BkgFctLinks: []data.FctLink{link.Clone()},
			})
		}
	}
	return links
}
