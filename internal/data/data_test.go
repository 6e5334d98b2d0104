package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPreds() []PredDistr {
	return []PredDistr{
		{
			Info:       DistrInfo{"Z", "eLpR", 250},
			SigDistr:   []float64{1, 2, 3},
			BkgDistr:   []float64{0.5, 0.5, 1},
			BinCenters: [][]float64{{-0.5}, {0}, {0.5}},
		},
		{
			Info:       DistrInfo{"Z", "eRpL", 250},
			SigDistr:   []float64{4, 5, 6},
			BkgDistr:   []float64{0, 0, 0},
			BinCenters: [][]float64{{-0.5}, {0}, {0.5}},
		},
		{
			Info:       DistrInfo{"WW", "eLpR", 500},
			SigDistr:   []float64{10},
			BkgDistr:   []float64{1},
			BinCenters: [][]float64{{0}},
		},
	}
}

func TestCoefBroadcast(t *testing.T) {
	scalar := NewScalarCoef("One", DistrInfo{"Z", "eLpR", 250}, 1.5)
	for bin := 0; bin < 4; bin++ {
		v, err := scalar.Coef(bin)
		require.NoError(t, err)
		assert.Equal(t, 1.5, v)
	}

	vec := NewCoef("k", DistrInfo{"Z", "eLpR", 250}, []float64{1, 2})
	v, err := vec.Coef(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	_, err = vec.Coef(2)
	assert.Error(t, err)
}

func TestSubvecs(t *testing.T) {
	preds := testPreds()

	got := SubvecInfo(preds, DistrInfo{"Z", "eRpL", 250})
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0].SigDistr[0])

	assert.Len(t, SubvecEnergyAndName(preds, 250, "Z"), 2)
	assert.Len(t, SubvecEnergyAndName(preds, 500, "Z"), 0)

	infos := FindInfos(preds)
	assert.Equal(t, []DistrInfo{{"Z", "eLpR", 250}, {"Z", "eRpL", 250}, {"WW", "eLpR", 500}}, infos)
	assert.Equal(t, []string{"Z", "WW"}, FindDistrNames(infos))
}

func TestCombineBins(t *testing.T) {
	combined := CombineBins(testPreds()[0])
	assert.Equal(t, []float64{6}, combined.SigDistr)
	assert.Equal(t, []float64{2}, combined.BkgDistr)
	require.Len(t, combined.BinCenters, 1)
	assert.InDelta(t, 0.0, combined.BinCenters[0][0], 1e-12)
	assert.Equal(t, DistrInfo{"Z", "eLpR", 250}, combined.Info)
}

func TestPredLinkMerge(t *testing.T) {
	link := PredLink{Info: DistrInfo{"Z", "eLpR", 250}, SigFctLinks: []FctLink{{FctName: "Constant", ParNames: []string{"a"}}}}
	link.Merge(PredLink{
		Info:        link.Info,
		SigFctLinks: []FctLink{{FctName: "Constant", ParNames: []string{"b"}}},
		BkgFctLinks: []FctLink{{FctName: "LuminosityFraction"}},
	})
	assert.Len(t, link.SigFctLinks, 2)
	assert.Len(t, link.BkgFctLinks, 1)
}

func TestConnectorIsolation(t *testing.T) {
	preds := testPreds()
	conn := NewConnector(preds, nil, nil, []PolLink{{Energy: 250, PolConfig: "-+"}, {Energy: 500, PolConfig: "+-"}})

	preds[0].SigDistr[0] = 99
	assert.Equal(t, 1.0, conn.PredDistrs()[0].SigDistr[0])

	out := conn.PredDistrs()
	out[0].SigDistr[0] = 42
	assert.Equal(t, 1.0, conn.PredDistrs()[0].SigDistr[0])

	assert.Equal(t, []int{250, 500}, conn.Energies())

	sub := conn.ForEnergy(500)
	assert.Len(t, sub.PredDistrs(), 1)
	assert.Equal(t, []PolLink{{Energy: 500, PolConfig: "+-"}}, sub.PolLinks())
}
