package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChiralShort(t *testing.T) {
	tests := []struct {
		config  string
		want    string
		wantErr bool
	}{
		{ELpR, "LR", false},
		{ERpL, "RL", false},
		{ELpL, "LL", false},
		{ERpR, "RR", false},
		{"+-", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.config, func(t *testing.T) {
			got, err := ChiralShort(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownChirality)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParNames(t *testing.T) {
	assert.Equal(t, "Lumi250GeV", LumiName(250))
	assert.Equal(t, "ScaleTotChiXS_Z_mumu", TotalChiXSParName("Z_mumu"))
	assert.Equal(t, "ConstEff_WW", ConstEffName("WW"))
	assert.Equal(t, "Af_Z_mumu", AfParName("Z_mumu"))

	name, err := ChiXSParName("WW", ERpL)
	require.NoError(t, err)
	assert.Equal(t, "ChiXS_WW_RL", name)

	_, err = ChiXSParName("WW", "bogus")
	assert.ErrorIs(t, err, ErrUnknownChirality)
}

func TestAsymmParName(t *testing.T) {
	tests := []struct {
		index   int
		want    string
		wantErr bool
	}{
		{0, "DeltaA_Z", false},
		{1, "DeltaA_I_Z", false},
		{2, "DeltaA_II_Z", false},
		{3, "DeltaA_III_Z", false},
		{4, "", true},
		{-1, "", true},
	}

	for _, tt := range tests {
		got, err := AsymmParName("Z", tt.index)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrAsymmIndex, "index %d", tt.index)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCoefNames(t *testing.T) {
	assert.Equal(t, "LumiFr-+250GeV", LumiFractionName("-+", 250))
	assert.Equal(t, "ChiXS_Z_mumu_eLpR_250", ChiXSCoefName("Z_mumu", ELpR, 250))
	assert.Equal(t, "ChiDistr_Z_mumu_eRpL_500_signal", ChiDistrCoefName("Z_mumu", ERpL, 500, CoefTypeSignal))
}

func TestChiralAsymmName(t *testing.T) {
	assert.Equal(t, "AsymmFactor0_2allowed", ChiralAsymmName(0, 2))
	assert.Equal(t, "AsymmFactor3_4allowed", ChiralAsymmName(3, 4))

	idx, n, ok := ParseChiralAsymmName("AsymmFactor2_3allowed")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"AsymmFactorLR_Af_2f", "Constant", "AsymmFactor_allowed", "AsymmFactor1x2allowed"} {
		_, _, ok := ParseChiralAsymmName(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseMinimizerChain(t *testing.T) {
	tests := []struct {
		name    string
		chain   string
		want    []MinimizerInfo
		wantErr error
	}{
		{
			name:  "single default stage",
			chain: "Migrad",
			want:  []MinimizerInfo{{Migrad, DefaultMaxFcnCalls, DefaultMaxIters, DefaultTolerance}},
		},
		{
			name:  "coarse to fine",
			chain: "Simplex(1000,500,0.01)->Migrad",
			want: []MinimizerInfo{
				{Simplex, 1000, 500, 0.01},
				{Migrad, DefaultMaxFcnCalls, DefaultMaxIters, DefaultTolerance},
			},
		},
		{
			name:  "whitespace tolerated",
			chain: " Combined ( 10, 20, 1e-3 ) -> MigradBFGS ",
			want: []MinimizerInfo{
				{Combined, 10, 20, 0.001},
				{MigradBFGS, DefaultMaxFcnCalls, DefaultMaxIters, DefaultTolerance},
			},
		},
		{name: "unknown minimizer", chain: "Migrad->Minuit", wantErr: ErrUnknownMinimizer},
		{name: "two options", chain: "Migrad(100,0.1)", wantErr: ErrMinimizerOptions},
		{name: "bad number", chain: "Migrad(a,1,0.1)", wantErr: ErrMinimizerOptions},
		{name: "missing bracket", chain: "Migrad(1,1,0.1", wantErr: ErrMinimizerOptions},
		{name: "empty", chain: "  ", wantErr: ErrEmptyChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMinimizerChain(tt.chain)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinimizerKindString(t *testing.T) {
	assert.Equal(t, "Simplex", Simplex.String())
	assert.Equal(t, "Migrad(100,200,0.5)", MinimizerInfo{Migrad, 100, 200, 0.5}.String())
}
