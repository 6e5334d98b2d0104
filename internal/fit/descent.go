package fit

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/prewutils/internal/names"
)

// DescentConfig tunes the coordinate-descent minimizer. The per-stage limits
// come from the minimizer chain.
type DescentConfig struct {
	BacktrackingRatio float64 `json:"backtracking_ratio" yaml:"backtracking_ratio"` // step reduction factor (default: 0.5)
	ExpansionRatio    float64 `json:"expansion_ratio" yaml:"expansion_ratio"`       // step growth after a success (default: 2)
	MinStepScale      float64 `json:"min_step_scale" yaml:"min_step_scale"`         // relative step at which the search stops (default: 1e-6)
	Trace             bool    `json:"trace" yaml:"trace"`
}

// DefaultDescentConfig returns the default minimizer configuration.
func DefaultDescentConfig() DescentConfig {
	return DescentConfig{
		BacktrackingRatio: 0.5,
		ExpansionRatio:    2,
		MinStepScale:      1e-6,
	}
}

// DescentStep is one recorded trial of the minimizer.
type DescentStep struct {
	Evaluation int     `json:"evaluation"`
	Par        string  `json:"par"`
	Value      float64 `json:"value"`
	Chi2       float64 `json:"chi2"`
	Accepted   bool    `json:"accepted"`
}

// CoordinateDescent minimizes a container one free parameter at a time with
// steps proportional to the initial parameter uncertainties.
type CoordinateDescent struct {
	info    names.MinimizerInfo
	config  DescentConfig
	history []DescentStep
}

// NewCoordinateDescent creates a minimizer for one chain stage.
func NewCoordinateDescent(info names.MinimizerInfo, config DescentConfig) (*CoordinateDescent, error) {
	if _, ok := kindScale[info.Kind]; !ok {
		return nil, fmt.Errorf("%w: %s", names.ErrUnknownMinimizer, info.Kind)
	}
	if info.MaxFcnCalls <= 0 || info.MaxIters <= 0 || info.Tolerance <= 0 {
		return nil, fmt.Errorf("%w: %s", names.ErrMinimizerOptions, info)
	}
	if config.BacktrackingRatio <= 0 || config.BacktrackingRatio >= 1 {
		return nil, fmt.Errorf("backtracking ratio must be in (0,1), got %g", config.BacktrackingRatio)
	}
	if config.ExpansionRatio < 1 {
		config.ExpansionRatio = 1
	}
	return &CoordinateDescent{info: info, config: config}, nil
}

// Initial step multiplier per strategy; coarse strategies start wider.
var kindScale = map[names.MinimizerKind]float64{
	names.Migrad:     1,
	names.Simplex:    2,
	names.Combined:   1,
	names.Scan:       10,
	names.Fumili:     1,
	names.MigradBFGS: 1,
}

// Strategies reporting curvature based uncertainties.
var hesseKinds = map[names.MinimizerKind]bool{
	names.Migrad:     true,
	names.Combined:   true,
	names.Fumili:     true,
	names.MigradBFGS: true,
}

// History returns the recorded trials when tracing is enabled.
func (cd *CoordinateDescent) History() []DescentStep { return cd.history }

// Minimize runs the descent and leaves the best values in the container.
func (cd *CoordinateDescent) Minimize(c *Container) (Result, error) {
	start := time.Now()

	vals := c.Values()
	for i := range vals {
		vals[i] = c.Pars[i].Clamp(vals[i])
	}
	best := c.Chi2At(vals)
	if math.IsNaN(best) {
		return Result{}, fmt.Errorf("objective is NaN at the starting point")
	}
	evaluations := 1

	var free []int
	for i, p := range c.Pars {
		if !p.Fixed {
			free = append(free, i)
		}
	}
	base := make([]float64, len(vals))
	steps := make([]float64, len(vals))
	for _, i := range free {
		base[i] = stepBase(c.Pars[i])
		steps[i] = base[i] * kindScale[cd.info.Kind]
	}

	iterations := 0
	converged := len(free) == 0
	for !converged && iterations < cd.info.MaxIters && evaluations < cd.info.MaxFcnCalls {
		iterations++
		sweepStart := best
		for _, i := range free {
			if evaluations >= cd.info.MaxFcnCalls {
				break
			}
			accepted := false
			for _, dir := range []float64{1, -1} {
				if evaluations >= cd.info.MaxFcnCalls {
					break
				}
				trial := c.Pars[i].Clamp(vals[i] + dir*steps[i])
				if trial == vals[i] {
					continue
				}
				old := vals[i]
				vals[i] = trial
				chi2 := c.Chi2At(vals)
				evaluations++
				ok := chi2 < best
				cd.record(evaluations, c.Pars[i].Name, trial, chi2, ok)
				if ok {
					best = chi2
					accepted = true
					steps[i] *= cd.config.ExpansionRatio
					break
				}
				vals[i] = old
			}
			if !accepted {
				steps[i] *= cd.config.BacktrackingRatio
			}
		}

		if sweepStart-best < cd.info.Tolerance*1e-3 {
			converged = true
			for _, i := range free {
				if steps[i] > base[i]*cd.config.MinStepScale {
					converged = false
					break
				}
			}
		}
	}

	if err := c.SetValues(vals); err != nil {
		return Result{}, err
	}

	res := Result{
		Kind:        cd.info.Kind,
		Chi2:        best,
		NBins:       c.NBins(),
		Evaluations: evaluations,
		Iterations:  iterations,
		Converged:   converged,
		Toy:         c.Toy,
		Seed:        c.Seed,
	}
	res.Pars = make([]ParResult, len(c.Pars))
	for i, p := range c.Pars {
		pr := ParResult{Name: p.Name, Val: vals[i], Fixed: p.Fixed}
		if !p.Fixed {
			if hesseKinds[cd.info.Kind] {
				pr.Unc = curvatureUnc(c, vals, i, base[i])
				res.Evaluations += 3
			} else {
				pr.Unc = steps[i]
			}
		}
		res.Pars[i] = pr
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func (cd *CoordinateDescent) record(eval int, par string, val, chi2 float64, accepted bool) {
	if !cd.config.Trace {
		return
	}
	cd.history = append(cd.history, DescentStep{Evaluation: eval, Par: par, Value: val, Chi2: chi2, Accepted: accepted})
}

func stepBase(p Par) float64 {
	if p.UncIni > 0 {
		return p.UncIni
	}
	return 0.01 * math.Max(math.Abs(p.ValIni), 1)
}

// curvatureUnc estimates the uncertainty sqrt(2/f'') from a central second
// difference of the objective. A non-positive curvature reports zero.
func curvatureUnc(c *Container, vals []float64, i int, h float64) float64 {
	x := vals[i]
	f0 := c.Chi2At(vals)
	vals[i] = x + h
	fp := c.Chi2At(vals)
	vals[i] = x - h
	fm := c.Chi2At(vals)
	vals[i] = x

	d2 := (fp - 2*f0 + fm) / (h * h)
	if d2 <= 0 || math.IsNaN(d2) {
		return 0
	}
	return math.Sqrt(2 / d2)
}

// DescentFactory builds coordinate-descent minimizers for every chain stage.
type DescentFactory struct {
	Config DescentConfig
}

// NewDescentFactory returns a factory with the default configuration.
func NewDescentFactory() DescentFactory {
	return DescentFactory{Config: DefaultDescentConfig()}
}

func (f DescentFactory) NewMinimizer(info names.MinimizerInfo) (Minimizer, error) {
	cd, err := NewCoordinateDescent(info, f.Config)
	if err != nil {
		return nil, err
	}
	return cd, nil
}
