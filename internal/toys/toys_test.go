package toys

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

func testSetup() (data.Connector, fit.ParVec) {
	info := data.DistrInfo{DistrName: "Z", PolConfig: "-+", Energy: 250}
	preds := []data.PredDistr{{
		Info:       info,
		SigDistr:   []float64{5, 500},
		BkgDistr:   []float64{0, 0},
		BinCenters: [][]float64{{-0.5}, {0.5}},
	}}
	link := data.FctLink{FctName: names.FctConstant, ParNames: []string{"scale"}}
	links := []data.PredLink{{Info: info, SigFctLinks: []data.FctLink{link}}}
	return data.NewConnector(preds, nil, links, nil), fit.ParVec{fit.NewPar("scale", 2, 0.01)}
}

func TestPoissonMoments(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, mean := range []float64{0.5, 4, 25, 120} {
		const n = 20000
		var sum, sum2 float64
		for i := 0; i < n; i++ {
			k := float64(Poisson(rng, mean))
			sum += k
			sum2 += k * k
		}
		avg := sum / n
		variance := sum2/n - avg*avg
		assert.InDelta(t, mean, avg, 5*math.Sqrt(mean/n)+0.01, "mean %g", mean)
		assert.InDelta(t, mean, variance, 0.1*mean+0.05, "variance %g", mean)
	}
	assert.Equal(t, 0, Poisson(rng, 0))
	assert.Equal(t, 0, Poisson(rng, -3))
}

func TestGenerate(t *testing.T) {
	conn, pars := testSetup()

	asimov := &PoissonGenerator{Registry: fit.NewRegistry(), Asimov: true}
	nominal, err := asimov.Generate(conn, pars, nil)
	require.NoError(t, err)
	require.Len(t, nominal, 1)
	assert.Equal(t, []float64{10, 1000}, nominal[0].SigDistr)

	gen := NewPoissonGenerator()
	meas1, _ := Streams(42, 250, 3)
	meas2, _ := Streams(42, 250, 3)
	a, err := gen.Generate(conn, pars, meas1)
	require.NoError(t, err)
	b, err := gen.Generate(conn, pars, meas2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for _, v := range a[0].SigDistr {
		assert.Equal(t, math.Trunc(v), v)
	}

	_, err = gen.Generate(conn, nil, meas1)
	assert.ErrorIs(t, err, fit.ErrMissingPar)
}

func TestStreamsIndependent(t *testing.T) {
	m0, c0 := Streams(7, 250, 0)
	m1, _ := Streams(7, 250, 1)
	mOther, _ := Streams(7, 500, 0)

	x := m0.Uint64()
	assert.NotEqual(t, x, c0.Uint64())
	assert.NotEqual(t, x, m1.Uint64())
	assert.NotEqual(t, x, mOther.Uint64())
}

func TestFluctuateConstraints(t *testing.T) {
	pars := fit.ParVec{fit.NewPar("free", 1, 0.1), fit.NewPar("constr", 1, 0.1)}
	pars[1].SetConstrGauss(1, 0.05)

	_, rng := Streams(1, 250, 0)
	out := FluctuateConstraints(pars, rng)

	assert.Nil(t, out[0].Constr)
	assert.NotEqual(t, 1.0, out[1].Constr.Val)
	assert.Equal(t, 0.05, out[1].Constr.Unc)
	assert.Equal(t, 1.0, pars[1].Constr.Val, "input must stay untouched")
}
