package setuphelp

import (
	"fmt"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

// TGCMode selects the order of the TGC dependence.
type TGCMode string

const (
	TGCLinear    TGCMode = "linear"
	TGCQuadratic TGCMode = "quadratic"
)

// TGCStyle selects the naming scheme of the TGC coefficients in the input.
type TGCStyle string

const (
	TGCStyleRK TGCStyle = "RK"
	TGCStyleJB TGCStyle = "JB"
)

var tgcCoefNames = map[TGCStyle]map[TGCMode][]string{
	TGCStyleRK: {
		TGCLinear:    {"TGCA", "TGCB", "TGCC"},
		TGCQuadratic: {"TGCD", "TGCE", "TGCF", "TGCG", "TGCH", "TGCI"},
	},
	TGCStyleJB: {
		TGCLinear:    {"TGC_k_g", "TGC_k_k", "TGC_k_l"},
		TGCQuadratic: {"TGC_k_g2", "TGC_k_k2", "TGC_k_l2", "TGC_k_gk", "TGC_k_gl", "TGC_k_kl"},
	},
}

// TGCInfo describes the charged triple gauge couplings acting on the signal
// of the given distributions through per-bin polynomial coefficients.
type TGCInfo struct {
	distrs []string
	mode   TGCMode
	style  TGCStyle
	pars   fit.ParVec
}

func NewTGCInfo(distrs []string, mode TGCMode, style TGCStyle) (*TGCInfo, error) {
	if mode != TGCLinear && mode != TGCQuadratic {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTGCMode, mode)
	}
	if _, ok := tgcCoefNames[style]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTGCStyle, style)
	}
	t := &TGCInfo{distrs: append([]string(nil), distrs...), mode: mode, style: style}
	for _, n := range names.TGCParNames() {
		t.pars = append(t.pars, fit.NewPar(n, 0, 0.0001))
	}
	return t, nil
}

func (t *TGCInfo) Pars() fit.ParVec { return t.pars.Clone() }

// CoefNames lists the link coefficients: the unity coefficient, then the
// linear and, in quadratic mode, the quadratic ones.
func (t *TGCInfo) CoefNames() []string {
	out := []string{names.UnityCoefName}
	out = append(out, tgcCoefNames[t.style][TGCLinear]...)
	if t.mode == TGCQuadratic {
		out = append(out, tgcCoefNames[t.style][TGCQuadratic]...)
	}
	return out
}

func (t *TGCInfo) FctLink() data.FctLink {
	fct := names.FctLinear3DPolynomial
	if t.mode == TGCQuadratic {
		fct = names.FctQuadratic3DPolynomial
	}
	return data.FctLink{FctName: fct, ParNames: t.pars.Names(), CoefNames: t.CoefNames()}
}

func (t *TGCInfo) PredLinks(infos []data.DistrInfo) []data.PredLink {
	var links []data.PredLink
	link := t.FctLink()
	for _, info := range infos {
		if affects(t.distrs, info) {
			links = append(links, data.PredLink{Info: info, SigFctLinks: []data.FctLink{link.Clone()}})
		}
	}
	return links
}

// Coefs provides the unity coefficient; the TGC coefficients come from the
// input files.
func (t *TGCInfo) Coefs(infos []data.DistrInfo) []data.CoefDistr {
	var coefs []data.CoefDistr
	for _, info := range infos {
		if affects(t.distrs, info) {
			coefs = append(coefs, data.NewScalarCoef(names.UnityCoefName, info, 1.0))
		}
	}
	return coefs
}
