package fit

import (
	"errors"
	"fmt"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/names"
)

var (
	ErrMissingPar  = errors.New("linked parameter not found")
	ErrMissingCoef = errors.New("linked coefficient not found")
	ErrBinMismatch = errors.New("bin count mismatch")
)

// boundFct is a function link resolved against a parameter order and the
// coefficient values of a single bin.
type boundFct struct {
	eval   EvalFunc
	parIdx []int
	coefs  []float64
	center []float64
}

func (b *boundFct) value(vals []float64) float64 {
	pars := make([]float64, len(b.parIdx))
	for i, idx := range b.parIdx {
		pars[i] = vals[idx]
	}
	return b.eval(pars, b.coefs, b.center)
}

func product(fcts []*boundFct, vals []float64) float64 {
	out := 1.0
	for _, f := range fcts {
		out *= f.value(vals)
	}
	return out
}

// polWeight is the fraction of a chiral configuration in a polarised beam
// configuration: (1 + hE*Pe)/2 * (1 + hP*Pp)/2.
type polWeight struct {
	ePar, pPar   int // -1 when unpolarised
	eSign, pSign float64
	eHand, pHand float64
}

func (w polWeight) value(vals []float64) float64 {
	var pe, pp float64
	if w.ePar >= 0 {
		pe = w.eSign * vals[w.ePar]
	}
	if w.pPar >= 0 {
		pp = w.pSign * vals[w.pPar]
	}
	return (1 + w.eHand*pe) / 2 * (1 + w.pHand*pp) / 2
}

type term struct {
	weight  *polWeight // nil for directly measured distributions
	sig     float64
	bkg     float64
	sigFcts []*boundFct
	bkgFcts []*boundFct
}

// binModel computes the prediction of one measured bin.
type binModel struct {
	terms  []term
	polSig []*boundFct
	polBkg []*boundFct
	center []float64
}

func (b *binModel) predict(vals []float64) float64 {
	var sig, bkg float64
	for _, t := range b.terms {
		w := 1.0
		if t.weight != nil {
			w = t.weight.value(vals)
		}
		sig += w * t.sig * product(t.sigFcts, vals)
		bkg += w * t.bkg * product(t.bkgFcts, vals)
	}
	return sig*product(b.polSig, vals) + bkg*product(b.polBkg, vals)
}

type distrModel struct {
	info data.DistrInfo
	bins []*binModel
}

// Model is the compiled, immutable prediction model of a connector. It can be
// shared between goroutines; every toy builds its own Container from it.
type Model struct {
	parNames []string
	distrs   []distrModel
	index    map[data.DistrInfo]int
}

type compiler struct {
	reg    *Registry
	parIdx map[string]int
	coefs  map[string]map[data.DistrInfo]data.CoefDistr
	links  map[data.DistrInfo]data.PredLink
}

// Compile resolves all links of the connector against the given parameter
// order. Measured distributions are the polarised configurations of every
// chiral distribution plus every non-chiral prediction.
func Compile(reg *Registry, conn data.Connector, pars ParVec) (*Model, error) {
	c := compiler{
		reg:    reg,
		parIdx: make(map[string]int, len(pars)),
		coefs:  make(map[string]map[data.DistrInfo]data.CoefDistr),
		links:  make(map[data.DistrInfo]data.PredLink),
	}
	for i, p := range pars {
		c.parIdx[p.Name] = i
	}
	for _, co := range conn.CoefDistrs() {
		if c.coefs[co.CoefName] == nil {
			c.coefs[co.CoefName] = make(map[data.DistrInfo]data.CoefDistr)
		}
		c.coefs[co.CoefName][co.Info] = co
	}
	for _, l := range conn.PredLinks() {
		if existing, ok := c.links[l.Info]; ok {
			existing.Merge(l)
			c.links[l.Info] = existing
			continue
		}
		c.links[l.Info] = l
	}

	m := &Model{parNames: pars.Names(), index: make(map[data.DistrInfo]int)}
	preds := conn.PredDistrs()

	var chiral []data.PredDistr
	for _, p := range preds {
		if names.IsChiral(p.Info.PolConfig) {
			chiral = append(chiral, p)
			continue
		}
		dm, err := c.direct(p)
		if err != nil {
			return nil, err
		}
		m.add(dm)
	}

	for _, pl := range conn.PolLinks() {
		for _, distr := range data.FindDistrNames(data.FindInfos(chiral)) {
			dm, err := c.polarised(pl, distr, data.SubvecEnergyAndName(chiral, pl.Energy, distr))
			if err != nil {
				return nil, err
			}
			if dm != nil {
				m.add(dm)
			}
		}
	}
	return m, nil
}

func (m *Model) add(dm *distrModel) {
	m.index[dm.info] = len(m.distrs)
	m.distrs = append(m.distrs, *dm)
}

func (c *compiler) direct(p data.PredDistr) (*distrModel, error) {
	link := c.links[p.Info]
	dm := &distrModel{info: p.Info}
	for bin := 0; bin < p.NBins(); bin++ {
		center := binCenter(p, bin)
		polSig, err := c.bind(link.SigFctLinks, p.Info, bin, center)
		if err != nil {
			return nil, err
		}
		polBkg, err := c.bind(link.BkgFctLinks, p.Info, bin, center)
		if err != nil {
			return nil, err
		}
		dm.bins = append(dm.bins, &binModel{
			terms:  []term{{sig: p.SigDistr[bin], bkg: valueAt(p.BkgDistr, bin)}},
			polSig: polSig,
			polBkg: polBkg,
			center: center,
		})
	}
	return dm, nil
}

func (c *compiler) polarised(pl data.PolLink, distr string, chiral []data.PredDistr) (*distrModel, error) {
	if len(chiral) == 0 {
		return nil, nil
	}
	info := data.DistrInfo{DistrName: distr, PolConfig: pl.PolConfig, Energy: pl.Energy}
	nBins := chiral[0].NBins()
	for _, p := range chiral[1:] {
		if p.NBins() != nBins {
			return nil, fmt.Errorf("%w: %s has %d bins, %s has %d", ErrBinMismatch, p.Info, p.NBins(), chiral[0].Info, nBins)
		}
	}

	weights := make([]*polWeight, len(chiral))
	for i, p := range chiral {
		w, err := c.weight(pl, p.Info.PolConfig)
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}

	polLink := c.links[info]
	dm := &distrModel{info: info}
	for bin := 0; bin < nBins; bin++ {
		center := binCenter(chiral[0], bin)
		bm := &binModel{center: center}
		for i, p := range chiral {
			chiLink := c.links[p.Info]
			pc := binCenter(p, bin)
			sigFcts, err := c.bind(chiLink.SigFctLinks, p.Info, bin, pc)
			if err != nil {
				return nil, err
			}
			bkgFcts, err := c.bind(chiLink.BkgFctLinks, p.Info, bin, pc)
			if err != nil {
				return nil, err
			}
			bm.terms = append(bm.terms, term{
				weight:  weights[i],
				sig:     p.SigDistr[bin],
				bkg:     valueAt(p.BkgDistr, bin),
				sigFcts: sigFcts,
				bkgFcts: bkgFcts,
			})
		}
		var err error
		if bm.polSig, err = c.bind(polLink.SigFctLinks, info, bin, center); err != nil {
			return nil, err
		}
		if bm.polBkg, err = c.bind(polLink.BkgFctLinks, info, bin, center); err != nil {
			return nil, err
		}
		dm.bins = append(dm.bins, bm)
	}
	return dm, nil
}

func (c *compiler) weight(pl data.PolLink, chiral string) (*polWeight, error) {
	w := &polWeight{ePar: -1, pPar: -1, eSign: sign(pl.EPolSign), pSign: sign(pl.PPolSign)}
	if len(chiral) != 4 {
		return nil, fmt.Errorf("%w: %q", names.ErrUnknownChirality, chiral)
	}
	w.eHand = hand(chiral[1])
	w.pHand = hand(chiral[3])
	if pl.EPolName != "" {
		idx, ok := c.parIdx[pl.EPolName]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPar, pl.EPolName)
		}
		w.ePar = idx
	}
	if pl.PPolName != "" {
		idx, ok := c.parIdx[pl.PPolName]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPar, pl.PPolName)
		}
		w.pPar = idx
	}
	return w, nil
}

func (c *compiler) bind(links []data.FctLink, info data.DistrInfo, bin int, center []float64) ([]*boundFct, error) {
	out := make([]*boundFct, 0, len(links))
	for _, l := range links {
		fn, err := c.reg.Lookup(l.FctName)
		if err != nil {
			return nil, err
		}
		if err := fn.check(l.FctName, len(l.ParNames), len(l.CoefNames)); err != nil {
			return nil, fmt.Errorf("%s: %w", info, err)
		}
		b := &boundFct{eval: fn.Eval, center: center}
		for _, name := range l.ParNames {
			idx, ok := c.parIdx[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s in %s link of %s", ErrMissingPar, name, l.FctName, info)
			}
			b.parIdx = append(b.parIdx, idx)
		}
		for _, name := range l.CoefNames {
			co, ok := c.coefs[name][info]
			if !ok {
				return nil, fmt.Errorf("%w: %s for %s", ErrMissingCoef, name, info)
			}
			v, err := co.Coef(bin)
			if err != nil {
				return nil, err
			}
			b.coefs = append(b.coefs, v)
		}
		out = append(out, b)
	}
	return out, nil
}

func binCenter(p data.PredDistr, bin int) []float64 {
	if bin < len(p.BinCenters) {
		return p.BinCenters[bin]
	}
	return nil
}

func valueAt(v []float64, bin int) float64 {
	if bin < len(v) {
		return v[bin]
	}
	return 0
}

func sign(s string) float64 {
	if s == "-" {
		return -1
	}
	return 1
}

// hand maps a helicity letter to -1 (L) or +1 (R).
func hand(h byte) float64 {
	if h == 'L' {
		return -1
	}
	return 1
}

// ParNames is the parameter order the model was compiled against.
func (m *Model) ParNames() []string { return append([]string(nil), m.parNames...) }

// Infos lists the measured distributions of the model.
func (m *Model) Infos() []data.DistrInfo {
	out := make([]data.DistrInfo, len(m.distrs))
	for i, d := range m.distrs {
		out[i] = d.info
	}
	return out
}

// Predict evaluates every measured distribution at the given values. The
// prediction is returned as signal with an empty background.
func (m *Model) Predict(vals []float64) ([]data.PredDistr, error) {
	if len(vals) != len(m.parNames) {
		return nil, fmt.Errorf("model has %d parameters, got %d values", len(m.parNames), len(vals))
	}
	out := make([]data.PredDistr, len(m.distrs))
	for i, d := range m.distrs {
		p := data.PredDistr{
			Info:       d.info,
			SigDistr:   make([]float64, len(d.bins)),
			BkgDistr:   make([]float64, len(d.bins)),
			BinCenters: make([][]float64, len(d.bins)),
		}
		for b, bm := range d.bins {
			p.SigDistr[b] = bm.predict(vals)
			p.BinCenters[b] = append([]float64(nil), bm.center...)
		}
		out[i] = p
	}
	return out, nil
}
