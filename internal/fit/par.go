// Package fit is the reference fit engine: parameters, the per-bin
// prediction model built from a data connector, chi-square evaluation and a
// bounded coordinate-descent minimizer.
package fit

// GaussConstr is a Gaussian constraint on a parameter value.
type GaussConstr struct {
	Val float64 `json:"val" yaml:"val"`
	Unc float64 `json:"unc" yaml:"unc"`
}

// Bounds limits the values a parameter may take during minimization.
type Bounds struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Par is a named scalar fit parameter.
type Par struct {
	Name   string       `json:"name"`
	ValIni float64      `json:"val_ini"`
	UncIni float64      `json:"unc_ini"`
	ValMod float64      `json:"val_mod"`
	Fixed  bool         `json:"fixed"`
	Constr *GaussConstr `json:"constr,omitempty"`
	Bounds *Bounds      `json:"bounds,omitempty"`
}

// NewPar creates a free parameter starting at val.
func NewPar(name string, val, unc float64) Par {
	return Par{Name: name, ValIni: val, UncIni: unc, ValMod: val}
}

func (p *Par) Fix() { p.Fixed = true }

func (p *Par) Release() { p.Fixed = false }

func (p *Par) SetConstrGauss(val, unc float64) {
	p.Constr = &GaussConstr{Val: val, Unc: unc}
}

func (p *Par) SetBounds(lower, upper float64) {
	p.Bounds = &Bounds{Lower: lower, Upper: upper}
}

// IsConstrained reports whether a Gaussian constraint is attached.
func (p Par) IsConstrained() bool { return p.Constr != nil }

// Equal compares parameters by name, the identity used across a setup.
func (p Par) Equal(o Par) bool { return p.Name == o.Name }

// Clamp restricts v to the parameter bounds.
func (p Par) Clamp(v float64) float64 {
	if p.Bounds == nil {
		return v
	}
	if v < p.Bounds.Lower {
		return p.Bounds.Lower
	}
	if v > p.Bounds.Upper {
		return p.Bounds.Upper
	}
	return v
}

// Clone returns a copy that shares no pointers with p.
func (p Par) Clone() Par {
	out := p
	if p.Constr != nil {
		c := *p.Constr
		out.Constr = &c
	}
	if p.Bounds != nil {
		b := *p.Bounds
		out.Bounds = &b
	}
	return out
}

// ParVec is an ordered parameter collection.
type ParVec []Par

// Clone deep-copies the collection.
func (v ParVec) Clone() ParVec {
	if v == nil {
		return nil
	}
	out := make(ParVec, len(v))
	for i, p := range v {
		out[i] = p.Clone()
	}
	return out
}

// Names lists the parameter names in order.
func (v ParVec) Names() []string {
	out := make([]string, len(v))
	for i, p := range v {
		out[i] = p.Name
	}
	return out
}

// Index returns the position of the named parameter or -1.
func (v ParVec) Index(name string) int {
	for i, p := range v {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Values returns the current (modified) values.
func (v ParVec) Values() []float64 {
	out := make([]float64, len(v))
	for i, p := range v {
		out[i] = p.ValMod
	}
	return out
}
