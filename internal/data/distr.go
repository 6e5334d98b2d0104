// Package data holds the tabulated inputs of a fit setup and the declarative
// linking records that tell the fit engine how to build bin predictions.
package data

import "fmt"

// DistrInfo identifies one distribution under one beam configuration at one
// energy. It is the key of every lookup in a setup.
type DistrInfo struct {
	DistrName string `json:"distr_name" yaml:"distr_name"`
	PolConfig string `json:"pol_config" yaml:"pol_config"`
	Energy    int    `json:"energy" yaml:"energy"`
}

func (i DistrInfo) String() string {
	return fmt.Sprintf("%s @ %d & %s", i.DistrName, i.Energy, i.PolConfig)
}

// WithEnergy returns a copy of the info at another energy.
func (i DistrInfo) WithEnergy(energy int) DistrInfo {
	i.Energy = energy
	return i
}

// WithDistr returns a copy of the info for another distribution.
func (i DistrInfo) WithDistr(distr string) DistrInfo {
	i.DistrName = distr
	return i
}

// PredDistr is a tabulated prediction: signal and background contents plus
// the bin centers in every observable coordinate.
type PredDistr struct {
	Info       DistrInfo   `json:"info"`
	SigDistr   []float64   `json:"sig"`
	BkgDistr   []float64   `json:"bkg"`
	BinCenters [][]float64 `json:"bin_centers"`
}

// NBins is the number of bins of the distribution.
func (p PredDistr) NBins() int { return len(p.SigDistr) }

// Clone returns a deep copy.
func (p PredDistr) Clone() PredDistr {
	out := PredDistr{
		Info:     p.Info,
		SigDistr: append([]float64(nil), p.SigDistr...),
		BkgDistr: append([]float64(nil), p.BkgDistr...),
	}
	if p.BinCenters != nil {
		out.BinCenters = make([][]float64, len(p.BinCenters))
		for b, c := range p.BinCenters {
			out.BinCenters[b] = append([]float64(nil), c...)
		}
	}
	return out
}

// CoefDistr is a named per-bin constant attached to one distribution.
// A single value is broadcast to every bin.
type CoefDistr struct {
	CoefName string    `json:"coef_name"`
	Info     DistrInfo `json:"info"`
	Coefs    []float64 `json:"coefs"`
}

// NewCoef creates a bin-by-bin coefficient.
func NewCoef(name string, info DistrInfo, coefs []float64) CoefDistr {
	return CoefDistr{CoefName: name, Info: info, Coefs: append([]float64(nil), coefs...)}
}

// NewScalarCoef creates a coefficient with the same value in every bin.
func NewScalarCoef(name string, info DistrInfo, val float64) CoefDistr {
	return CoefDistr{CoefName: name, Info: info, Coefs: []float64{val}}
}

// Coef returns the coefficient value in the given bin.
func (c CoefDistr) Coef(bin int) (float64, error) {
	switch {
	case len(c.Coefs) == 1:
		return c.Coefs[0], nil
	case bin >= 0 && bin < len(c.Coefs):
		return c.Coefs[bin], nil
	default:
		return 0, fmt.Errorf("coefficient %s for %s has no bin %d (%d values)", c.CoefName, c.Info, bin, len(c.Coefs))
	}
}

// SameKey reports whether both coefficients share name and distribution.
func (c CoefDistr) SameKey(o CoefDistr) bool {
	return c.CoefName == o.CoefName && c.Info == o.Info
}
