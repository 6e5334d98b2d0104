package fit

import (
	"time"

	"github.com/sawpanic/prewutils/internal/names"
)

// ParResult is the fitted state of one parameter.
type ParResult struct {
	Name  string  `json:"name"`
	Val   float64 `json:"val"`
	Unc   float64 `json:"unc"`
	Fixed bool    `json:"fixed"`
}

// Result holds the outcome of one minimization
type Result struct {
	Kind        names.MinimizerKind `json:"kind"`
	Pars        []ParResult         `json:"pars"`
	Chi2        float64             `json:"chi2"`
	NBins       int                 `json:"n_bins"`
	Evaluations int                 `json:"evaluations"`
	Iterations  int                 `json:"iterations"`
	Converged   bool                `json:"converged"`
	Toy         int                 `json:"toy"`
	Seed        uint64              `json:"seed"`
	Elapsed     time.Duration       `json:"elapsed"`
}

// Values returns the fitted values in parameter order.
func (r Result) Values() []float64 {
	out := make([]float64, len(r.Pars))
	for i, p := range r.Pars {
		out[i] = p.Val
	}
	return out
}

// Par looks up the fitted state of a parameter by name.
func (r Result) Par(name string) (ParResult, bool) {
	for _, p := range r.Pars {
		if p.Name == name {
			return p, true
		}
	}
	return ParResult{}, false
}
