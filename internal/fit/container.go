package fit

import (
	"fmt"
	"math"

	"github.com/sawpanic/prewutils/internal/data"
)

// Bin is one measured bin of a fit container.
type Bin struct {
	Info  data.DistrInfo
	Index int
	Meas  float64
	model *binModel
}

// Container binds a measurement to the compiled model and a private
// parameter copy. A container is owned by a single goroutine.
type Container struct {
	Pars ParVec
	Bins []Bin
	Toy  int
	Seed uint64

	vals []float64
}

// NewContainer matches every measured distribution against the model. The
// parameters must carry the names the model was compiled with, in order.
func (m *Model) NewContainer(meas []data.PredDistr, pars ParVec) (*Container, error) {
	if len(pars) != len(m.parNames) {
		return nil, fmt.Errorf("model has %d parameters, container got %d", len(m.parNames), len(pars))
	}
	for i, p := range pars {
		if p.Name != m.parNames[i] {
			return nil, fmt.Errorf("parameter %d is %s, model expects %s", i, p.Name, m.parNames[i])
		}
	}

	c := &Container{Pars: pars.Clone()}
	for _, md := range meas {
		idx, ok := m.index[md.Info]
		if !ok {
			return nil, fmt.Errorf("no prediction for measured distribution %s", md.Info)
		}
		dm := m.distrs[idx]
		if md.NBins() != len(dm.bins) {
			return nil, fmt.Errorf("%w: measurement %s has %d bins, prediction %d", ErrBinMismatch, md.Info, md.NBins(), len(dm.bins))
		}
		for b := range dm.bins {
			c.Bins = append(c.Bins, Bin{
				Info:  md.Info,
				Index: b,
				Meas:  md.SigDistr[b] + valueAt(md.BkgDistr, b),
				model: dm.bins[b],
			})
		}
	}
	c.vals = c.Pars.Values()
	for i := range c.Pars {
		c.vals[i] = c.Pars[i].Clamp(c.vals[i])
		c.Pars[i].ValMod = c.vals[i]
	}
	return c, nil
}

// NBins is the number of bins still in the fit.
func (c *Container) NBins() int { return len(c.Bins) }

// Values returns a copy of the current parameter values.
func (c *Container) Values() []float64 { return append([]float64(nil), c.vals...) }

// SetValues overwrites all current parameter values, clamped to the bounds.
func (c *Container) SetValues(vals []float64) error {
	if len(vals) != len(c.Pars) {
		return fmt.Errorf("container has %d parameters, got %d values", len(c.Pars), len(vals))
	}
	for i, v := range vals {
		c.vals[i] = c.Pars[i].Clamp(v)
		c.Pars[i].ValMod = c.vals[i]
	}
	return nil
}

// SetValue overwrites a single parameter value by name.
func (c *Container) SetValue(name string, v float64) error {
	i := c.Pars.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMissingPar, name)
	}
	c.vals[i] = c.Pars[i].Clamp(v)
	c.Pars[i].ValMod = c.vals[i]
	return nil
}

// Prediction evaluates bin i at the current parameter values.
func (c *Container) Prediction(i int) float64 {
	return c.Bins[i].model.predict(c.vals)
}

// RemoveBin drops bin i from the fit.
func (c *Container) RemoveBin(i int) {
	c.Bins = append(c.Bins[:i], c.Bins[i+1:]...)
}

// Chi2 evaluates the objective at the current values.
func (c *Container) Chi2() float64 { return c.Chi2At(c.vals) }

// Chi2At evaluates the objective at vals without changing the container:
// a Neyman-style bin term with the variance floored at one event, plus a
// Gaussian term for every constrained parameter.
func (c *Container) Chi2At(vals []float64) float64 {
	var chi2 float64
	for _, b := range c.Bins {
		pred := b.model.predict(vals)
		diff := b.Meas - pred
		chi2 += diff * diff / math.Max(b.Meas, 1)
	}
	for i, p := range c.Pars {
		if p.Constr == nil || p.Constr.Unc <= 0 {
			continue
		}
		pull := (vals[i] - p.Constr.Val) / p.Constr.Unc
		chi2 += pull * pull
	}
	return chi2
}
