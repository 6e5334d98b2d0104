package fit

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sawpanic/prewutils/internal/names"
)

var ErrUnknownFunction = errors.New("unknown prediction function")

// EvalFunc computes a multiplicative factor for one bin from the linked
// parameter values, the bin's coefficient values and the bin center.
type EvalFunc func(pars, coefs, center []float64) float64

// Function is a prediction function together with the number of parameters
// and coefficients it consumes. Negative counts are checked by the function
// itself at bind time.
type Function struct {
	NPars  int
	NCoefs int
	Eval   EvalFunc
}

func (f Function) check(name string, nPars, nCoefs int) error {
	if f.NPars >= 0 && nPars != f.NPars {
		return fmt.Errorf("function %s expects %d parameters, got %d", name, f.NPars, nPars)
	}
	if f.NCoefs >= 0 && nCoefs != f.NCoefs {
		return fmt.Errorf("function %s expects %d coefficients, got %d", name, f.NCoefs, nCoefs)
	}
	return nil
}

// Registry dispatches function links by name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry returns a registry holding all functions the setups link to.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Function)}
	r.funcs[names.FctConstant] = Function{1, 0, constant}
	r.funcs[names.FctConstantCoef] = Function{0, 1, constantCoef}
	r.funcs[names.FctLuminosityFraction] = Function{1, 1, luminosityFraction}
	r.funcs[names.FctAcceptanceBox] = Function{2, 2, acceptanceBox}
	r.funcs[names.FctAcceptanceBoxPolynomial] = Function{2, 6, acceptanceBoxPolynomial}
	r.funcs[names.FctLinear3DPolynomial] = Function{3, 4, linear3DPolynomial}
	r.funcs[names.FctQuadratic3DPolynomial] = Function{3, 10, quadratic3DPolynomial}
	r.funcs[names.FctAsymmFactorLRAf] = Function{1, 3, afFactor(+1)}
	r.funcs[names.FctAsymmFactorRLAf] = Function{1, 3, afFactor(-1)}
	r.funcs[names.FctGeneral2fParamLR] = Function{6, 4, general2fParam(+1)}
	r.funcs[names.FctGeneral2fParamRL] = Function{6, 4, general2fParam(-1)}
	r.funcs[names.FctGeneral2fParamUnpolLR] = Function{5, 4, general2fParamUnpol(+1)}
	r.funcs[names.FctGeneral2fParamUnpolRL] = Function{5, 4, general2fParamUnpol(-1)}
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = f
}

// Lookup resolves a function name. Chiral asymmetry factors are resolved
// from their index and configuration count.
func (r *Registry) Lookup(name string) (Function, error) {
	r.mu.RLock()
	f, ok := r.funcs[name]
	r.mu.RUnlock()
	if ok {
		return f, nil
	}

	if index, n, ok := names.ParseChiralAsymmName(name); ok && n >= 2 && index >= 0 && index < n {
		return Function{n - 1, n, chiralAsymmFactor(index, n)}, nil
	}
	return Function{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
}

func constant(p, _, _ []float64) float64 { return p[0] }

func constantCoef(_, c, _ []float64) float64 { return c[0] }

func luminosityFraction(p, c, _ []float64) float64 { return p[0] * c[0] }

// coordinate returns center[idx] or 0 when the index is out of range.
func coordinate(center []float64, idx float64) float64 {
	i := int(math.Round(idx))
	if i < 0 || i >= len(center) {
		return 0
	}
	return center[i]
}

// acceptanceBox is the fraction of the bin lying inside [center-width/2, center+width/2].
func acceptanceBox(p, c, x []float64) float64 {
	boxLo, boxHi := p[0]-p[1]/2, p[0]+p[1]/2
	binWidth := c[1]
	coord := coordinate(x, c[0])
	binLo, binHi := coord-binWidth/2, coord+binWidth/2
	if binWidth <= 0 {
		if coord >= boxLo && coord <= boxHi {
			return 1
		}
		return 0
	}
	overlap := math.Min(boxHi, binHi) - math.Max(boxLo, binLo)
	if overlap <= 0 {
		return 0
	}
	return math.Min(overlap/binWidth, 1)
}

func acceptanceBoxPolynomial(p, c, _ []float64) float64 {
	dc, dw := p[0], p[1]
	return c[0] + c[1]*dc + c[2]*dw + c[3]*dc*dc + c[4]*dw*dw + c[5]*dc*dw
}

// Coefficient layout: [One, k_1, k_2, k_3] for linear.
func linear3DPolynomial(p, c, _ []float64) float64 {
	return c[0] + c[1]*p[0] + c[2]*p[1] + c[3]*p[2]
}

// Coefficient layout: [One, linear(3), quadratic(3), mixed 01/02/12].
func quadratic3DPolynomial(p, c, x []float64) float64 {
	return linear3DPolynomial(p, c[:4], x) +
		c[4]*p[0]*p[0] + c[5]*p[1]*p[1] + c[6]*p[2]*p[2] +
		c[7]*p[0]*p[1] + c[8]*p[0]*p[2] + c[9]*p[1]*p[2]
}

// chiralAsymmFactor shifts asymmetry a between configs a and a+1 while keeping
// the total cross section. For two configs this is A = (xs0-xs1)/(xs0+xs1).
func chiralAsymmFactor(index, n int) EvalFunc {
	return func(p, c, _ []float64) float64 {
		var total float64
		for _, xs := range c {
			total += xs
		}
		xs := c[index]
		if xs == 0 {
			return 1
		}
		var shift float64
		if index < n-1 {
			shift += p[index]
		}
		if index > 0 {
			shift -= p[index-1]
		}
		return 1 + total*shift/(2*xs)
	}
}

// Symmetric reference shape of the tabulated chiral distributions.
func flatShape(cos float64) float64 { return 3.0 / 8.0 * (1 + cos*cos) }

// afFactor shifts the forward-backward term of a chiral 2f distribution.
// Coefficients: [ChiXS own, ChiDistr own, CosThetaIndex].
func afFactor(chi float64) EvalFunc {
	return func(p, c, x []float64) float64 {
		cos := coordinate(x, c[2])
		return 1 + 2*chi*p[0]*cos/(1+cos*cos)
	}
}

// general2fParam replaces a chiral 2f distribution by the parametrised shape.
// Parameters: [s0, Ae, Af, ef, kL, kR].
// Coefficients: [ChiDistr own, ChiXS LR, ChiXS RL, CosThetaIndex].
func general2fParam(chi float64) EvalFunc {
	return func(p, c, x []float64) float64 {
		s0, ae, af, ef, kL, kR := p[0], p[1], p[2], p[3], p[4], p[5]
		k := kL
		if chi < 0 {
			k = kR
		}
		cos := coordinate(x, c[3])
		shape := flatShape(cos) + 3.0/8.0*k*(1-3*cos*cos) + 3.0/8.0*(ef+2*chi*af)*cos
		return twoFermionFactor(chi, s0, ae, shape, c, cos)
	}
}

// general2fParamUnpol is the unpolarised variant.
// Parameters: [s0, Ae, AFB, k0, dk].
func general2fParamUnpol(chi float64) EvalFunc {
	return func(p, c, x []float64) float64 {
		s0, ae, afb, k0, dk := p[0], p[1], p[2], p[3], p[4]
		cos := coordinate(x, c[3])
		shape := flatShape(cos) + 3.0/8.0*(k0+chi*dk)*(1-3*cos*cos) + afb*cos
		return twoFermionFactor(chi, s0, ae, shape, c, cos)
	}
}

// twoFermionFactor normalises the parametrised chiral shape to the tabulated
// chiral fraction, assuming the tabulated distribution follows flatShape.
func twoFermionFactor(chi, s0, ae, shape float64, c []float64, cos float64) float64 {
	xsLR, xsRL := c[1], c[2]
	total := xsLR + xsRL
	xsOwn := xsLR
	if chi < 0 {
		xsOwn = xsRL
	}
	if total == 0 || xsOwn == 0 {
		return 0
	}
	fraction := xsOwn / total
	return s0 * (1 + chi*ae) / 2 * shape / (fraction * flatShape(cos))
}
