// Package toys generates pseudo-experiments: Poisson fluctuated
// measurements of the nominal prediction and Gaussian fluctuated
// constraint centers.
package toys

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
)

// Poisson counts above this mean use the normal approximation.
const normalApproxMean = 30

// PoissonGenerator fluctuates the nominal polarised predictions of a
// connector. It holds no mutable state and is safe for concurrent use as long
// as every caller passes its own random source.
type PoissonGenerator struct {
	Registry *fit.Registry
	// Asimov disables the fluctuation and returns the nominal prediction.
	Asimov bool
}

// NewPoissonGenerator returns a generator using the default function registry.
func NewPoissonGenerator() *PoissonGenerator {
	return &PoissonGenerator{Registry: fit.NewRegistry()}
}

// Generate produces one pseudo-measurement. Measured counts are stored as
// signal with an empty background.
func (g *PoissonGenerator) Generate(conn data.Connector, pars fit.ParVec, rng *rand.Rand) ([]data.PredDistr, error) {
	model, err := fit.Compile(g.Registry, conn, pars)
	if err != nil {
		return nil, fmt.Errorf("compile nominal prediction: %w", err)
	}
	preds, err := model.Predict(pars.Values())
	if err != nil {
		return nil, err
	}
	if g.Asimov {
		return preds, nil
	}
	for i := range preds {
		for b, mean := range preds[i].SigDistr {
			preds[i].SigDistr[b] = float64(Poisson(rng, mean))
		}
	}
	return preds, nil
}

// Poisson draws a Poisson distributed count with the given mean.
func Poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 || math.IsNaN(mean) {
		return 0
	}
	if mean >= normalApproxMean {
		n := math.Round(mean + math.Sqrt(mean)*rng.NormFloat64())
		if n < 0 {
			return 0
		}
		return int(n)
	}
	limit := math.Exp(-mean)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

// FluctuateConstraints returns a copy of pars where the center of every
// Gaussian constraint is drawn from N(center, width).
func FluctuateConstraints(pars fit.ParVec, rng *rand.Rand) fit.ParVec {
	out := pars.Clone()
	for i := range out {
		if c := out[i].Constr; c != nil {
			c.Val += c.Unc * rng.NormFloat64()
		}
	}
	return out
}

// Streams returns the two independent random sources of one toy: one for
// the measurement and one for the constraint centers.
func Streams(seed uint64, energy, toy int) (meas, constr *rand.Rand) {
	key := splitmix(seed ^ splitmix(uint64(energy)<<32|uint64(uint32(toy))))
	meas = rand.New(rand.NewPCG(key, splitmix(key+1)))
	constr = rand.New(rand.NewPCG(splitmix(key+2), splitmix(key+3)))
	return meas, constr
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
