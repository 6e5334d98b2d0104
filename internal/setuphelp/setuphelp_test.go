package setuphelp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

func chiralInfos(distr string, energy int) []data.DistrInfo {
	return []data.DistrInfo{
		{DistrName: distr, PolConfig: names.ELpR, Energy: energy},
		{DistrName: distr, PolConfig: names.ERpL, Energy: energy},
	}
}

func chiralPreds(distr string, energy int) []data.PredDistr {
	infos := chiralInfos(distr, energy)
	return []data.PredDistr{
		{Info: infos[0], SigDistr: []float64{30, 50, 20}, BkgDistr: []float64{1, 1, 1}, BinCenters: [][]float64{{-0.5}, {0}, {0.5}}},
		{Info: infos[1], SigDistr: []float64{10, 20, 30}, BkgDistr: []float64{1, 1, 1}, BinCenters: [][]float64{{-0.5}, {0}, {0.5}}},
	}
}

func coefByName(coefs []data.CoefDistr, name string, info data.DistrInfo) (data.CoefDistr, bool) {
	for _, c := range coefs {
		if c.CoefName == name && c.Info == info {
			return c, true
		}
	}
	return data.CoefDistr{}, false
}

func TestAccBoxInfo(t *testing.T) {
	box := NewAccBoxInfo("Box1", "cosTheta", 0, 1)
	box.AddDistr("WW", 0, 0.1)

	pars := box.ParsWith(0.0, 0.9, 0.0001)
	require.Len(t, pars, 2)
	assert.Equal(t, "Box1_center", pars[0].Name)
	assert.Equal(t, 0.0, pars[0].ValIni)
	assert.Equal(t, 0.0001, pars[0].UncIni)
	assert.Equal(t, "Box1_width", pars[1].Name)
	assert.Equal(t, 0.9, pars[1].ValIni)
	assert.Equal(t, 0.0001, pars[1].UncIni)

	link := box.FctLink()
	assert.Equal(t, "AcceptanceBox", link.FctName)
	assert.Equal(t, []string{"Box1_center", "Box1_width"}, link.ParNames)
	assert.Equal(t, []string{"cosTheta", "BinWidth"}, link.CoefNames)

	infos := append(chiralInfos("WW", 250), chiralInfos("Z", 250)...)
	links := box.PredLinks(infos)
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Equal(t, "WW", l.Info.DistrName)
		assert.Len(t, l.SigFctLinks, 1)
		assert.Len(t, l.BkgFctLinks, 1)
	}

	coefs := box.Coefs(infos)
	assert.Len(t, coefs, 4)
	bw, ok := coefByName(coefs, names.BinWidthCoefName, infos[1])
	require.True(t, ok)
	assert.Equal(t, []float64{0.1}, bw.Coefs)

	box.FixWidth()
	assert.True(t, box.Pars()[1].Fixed)
	assert.True(t, box.ParsWith(0, 1, 1)[1].Fixed)
	assert.False(t, box.Pars()[0].Fixed)
}

func TestAccBoxPolynomialInfo(t *testing.T) {
	box := NewAccBoxPolynomialInfo("Box1")
	box.AddDistr("WW")
	assert.Equal(t, []string{"Box1_dCenter", "Box1_dWidth"}, box.Pars().Names())

	links := box.PredLinks(chiralInfos("WW", 500))
	require.Len(t, links, 2)
	assert.Equal(t, names.FctAcceptanceBoxPolynomial, links[0].SigFctLinks[0].FctName)
	assert.Equal(t, []string{"Box1_k0", "Box1_kc", "Box1_kw", "Box1_kc2", "Box1_kw2", "Box1_kcw"}, links[0].BkgFctLinks[0].CoefNames)
}

func TestConstEffInfo(t *testing.T) {
	eff := NewConstEffInfo("Z", 0.8)
	eff.Fix()
	eff.Constrain(0.8, 0.01)

	pars := eff.Pars()
	require.Len(t, pars, 1)
	assert.Equal(t, "ConstEff_Z", pars[0].Name)
	assert.InDelta(t, 0.00008, pars[0].UncIni, 1e-12)
	assert.True(t, pars[0].Fixed)
	assert.True(t, pars[0].IsConstrained())

	links := eff.PredLinks(append(chiralInfos("Z", 250), chiralInfos("WW", 250)...))
	require.Len(t, links, 2)
	assert.Empty(t, links[0].BkgFctLinks)
}

func TestCrossSectionTotal(t *testing.T) {
	xs, err := NewCrossSectionInfo("Z_mumu", []string{names.ELpR, names.ERpL})
	require.NoError(t, err)
	xs.UseTotalChiralCrossSection()
	xs.UseTotalChiralCrossSection()

	pars := xs.Pars()
	require.Len(t, pars, 1)
	assert.Equal(t, "ScaleTotChiXS_Z_mumu", pars[0].Name)
	assert.Equal(t, 1.0, pars[0].ValIni)
	assert.Equal(t, 0.001, pars[0].UncIni)
	assert.Equal(t, pars, xs.Pars(), "pars must be stable between calls")

	links, err := xs.PredLinks(chiralInfos("Z_mumu", 250))
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, l := range links {
		require.Len(t, l.SigFctLinks, 1)
		assert.Equal(t, "Constant", l.SigFctLinks[0].FctName)
		assert.Equal(t, []string{"ScaleTotChiXS_Z_mumu"}, l.SigFctLinks[0].ParNames)
		assert.Empty(t, l.SigFctLinks[0].CoefNames)
		assert.Empty(t, l.BkgFctLinks)
	}

	coefs, err := xs.Coefs(chiralPreds("Z_mumu", 250))
	require.NoError(t, err)
	assert.Empty(t, coefs)

	_, err = NewCrossSectionInfo("Z_mumu", nil)
	assert.ErrorIs(t, err, ErrNoConfigs)
	_, err = xs.PredLinks(nil)
	assert.ErrorIs(t, err, ErrNoInfos)
}

func TestCrossSectionAsymmetries(t *testing.T) {
	xs, err := NewCrossSectionInfo("Z", []string{names.ELpR, names.ERpL})
	require.NoError(t, err)
	require.NoError(t, xs.UseChiralAsymmetries())

	assert.Equal(t, []string{"DeltaA_Z"}, xs.Pars().Names())

	links, err := xs.PredLinks(chiralInfos("Z", 250))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, names.ChiralAsymmName(1, 2), links[1].SigFctLinks[0].FctName)
	assert.Equal(t, []string{"ChiXS_Z_eLpR_250", "ChiXS_Z_eRpL_250"}, links[0].SigFctLinks[0].CoefNames)

	coefs, err := xs.Coefs(chiralPreds("Z", 250))
	require.NoError(t, err)
	assert.Len(t, coefs, 4)
	c, ok := coefByName(coefs, "ChiXS_Z_eRpL_250", chiralInfos("Z", 250)[0])
	require.True(t, ok)
	assert.Equal(t, []float64{60}, c.Coefs)

	_, err = xs.Coefs(chiralPreds("Z", 250)[:1])
	assert.ErrorIs(t, err, ErrMissingPrediction)

	single, err := NewCrossSectionInfo("Z", []string{names.ELpR})
	require.NoError(t, err)
	assert.ErrorIs(t, single.UseChiralAsymmetries(), ErrTooFewConfigs)
}

func TestChiAsymmInfoNames(t *testing.T) {
	configs := []string{names.ELpR, names.ERpL, names.ELpL, names.ERpR}
	tests := []struct {
		name     string
		parNames []string
		want     []string
	}{
		{name: "default", want: []string{"DeltaA_I_WW", "DeltaA_II_WW", "DeltaA_III_WW"}},
		{name: "custom", parNames: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "wrong length falls back", parNames: []string{"a"}, want: []string{"DeltaA_I_WW", "DeltaA_II_WW", "DeltaA_III_WW"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewChiAsymmInfo("WW", configs, tt.parNames)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.ParNames())
			assert.Equal(t, tt.want, a.Pars(0, 0.0001).Names())
		})
	}

	a, err := NewChiAsymmInfo("WW", configs, nil)
	require.NoError(t, err)
	link, err := a.FctLink(500, names.ELpL)
	require.NoError(t, err)
	assert.Equal(t, "AsymmFactor2_4allowed", link.FctName)
	assert.Len(t, link.CoefNames, 4)

	_, err = a.FctLink(500, "eXpY")
	assert.ErrorIs(t, err, names.ErrUnknownChirality)
	_, err = NewChiAsymmInfo("WW", nil, nil)
	assert.ErrorIs(t, err, ErrNoConfigs)
	_, err = NewChiAsymmInfo("WW", []string{names.ELpR, names.ELpR}, nil)
	assert.ErrorIs(t, err, ErrDuplicateChirality)
}

func TestAfInfo(t *testing.T) {
	af := NewAfInfo("Z_mumu", DefaultName, 0)
	assert.Equal(t, []string{"Af_Z_mumu"}, af.Pars().Names())

	links, err := af.PredLinks(chiralInfos("Z_mumu", 250))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, names.FctAsymmFactorLRAf, links[0].SigFctLinks[0].FctName)
	assert.Equal(t, names.FctAsymmFactorRLAf, links[1].SigFctLinks[0].FctName)
	assert.Equal(t, []string{"ChiXS_Z_mumu_eRpL_250", "ChiDistr_Z_mumu_eRpL_250_signal", "CosThetaIndex"}, links[1].SigFctLinks[0].CoefNames)

	_, err = af.FctLink(data.DistrInfo{DistrName: "Z_mumu", PolConfig: names.ELpL, Energy: 250})
	assert.ErrorIs(t, err, ErrInvalidChirality)

	coefs, err := af.Coefs(chiralPreds("Z_mumu", 250))
	require.NoError(t, err)
	lr := chiralInfos("Z_mumu", 250)[0]
	shape, ok := coefByName(coefs, "ChiDistr_Z_mumu_eLpR_250_signal", lr)
	require.True(t, ok)
	assert.Equal(t, []float64{30, 50, 20}, shape.Coefs)
	xs, ok := coefByName(coefs, "ChiXS_Z_mumu_eRpL_250", lr)
	require.True(t, ok)
	assert.Equal(t, []float64{60}, xs.Coefs)
	_, ok = coefByName(coefs, names.CosThetaIndexCoefName, lr)
	assert.True(t, ok)

	custom := NewAfInfo("Z_mumu", "Af_mu", 1)
	assert.Equal(t, []string{"Af_mu"}, custom.Pars().Names())
}

func TestDifermionParamInfo(t *testing.T) {
	cfg := DefaultDifermionPars()
	cfg.Ae.Val, cfg.Af.Val, cfg.Ef.Val = 0.2, 0.1, 0.4
	cfg.KL.Val, cfg.KR.Val = 0.06, 0.02
	cfg.S0.Constr = &fit.GaussConstr{Val: 1, Unc: 0.01}

	pol := NewDifermionParamInfo("Z_mumu", cfg)
	assert.Equal(t, []string{"s0_Z_mumu", "Ae_Z_mumu", "Af_Z_mumu", "ef_Z_mumu", "kL_Z_mumu", "kR_Z_mumu"}, pol.Pars().Names())
	assert.True(t, pol.Pars()[0].IsConstrained())
	assert.Equal(t, 0.001, pol.Pars()[1].UncIni)

	links, err := pol.PredLinks(chiralInfos("Z_mumu", 250))
	require.NoError(t, err)
	assert.Equal(t, names.FctGeneral2fParamLR, links[0].SigFctLinks[0].FctName)
	assert.Equal(t, []string{"ChiDistr_Z_mumu_eRpL_250_signal", "ChiXS_Z_mumu_eLpR_250", "ChiXS_Z_mumu_eRpL_250", "CosThetaIndex"},
		links[1].SigFctLinks[0].CoefNames)

	cfg.Unpolarised = true
	cfg.AFB.Name = "AFB_custom"
	unpol := NewDifermionParamInfo("Z_mumu", cfg)
	pars := unpol.Pars()
	assert.Equal(t, []string{"s0_Z_mumu", "Ae_Z_mumu", "AFB_custom", "k0_Z_mumu", "dk_Z_mumu"}, pars.Names())
	assert.InDelta(t, 3.0/8.0*(0.4+2*0.2*0.1), pars[2].ValIni, 1e-12)
	assert.InDelta(t, 0.04, pars[3].ValIni, 1e-12)
	assert.InDelta(t, 0.02, pars[4].ValIni, 1e-12)

	links, err = unpol.PredLinks(chiralInfos("Z_mumu", 250))
	require.NoError(t, err)
	assert.Equal(t, names.FctGeneral2fParamUnpolRL, links[1].SigFctLinks[0].FctName)

	coefs, err := unpol.Coefs(chiralPreds("Z_mumu", 250))
	require.NoError(t, err)
	assert.Len(t, coefs, 8)
}

func TestTGCInfo(t *testing.T) {
	tests := []struct {
		mode  TGCMode
		style TGCStyle
		fct   string
		coefs []string
		errIs error
	}{
		{mode: TGCLinear, style: TGCStyleRK, fct: names.FctLinear3DPolynomial, coefs: []string{"One", "TGCA", "TGCB", "TGCC"}},
		{mode: TGCQuadratic, style: TGCStyleJB, fct: names.FctQuadratic3DPolynomial,
			coefs: []string{"One", "TGC_k_g", "TGC_k_k", "TGC_k_l", "TGC_k_g2", "TGC_k_k2", "TGC_k_l2", "TGC_k_gk", "TGC_k_gl", "TGC_k_kl"}},
		{mode: "cubic", style: TGCStyleRK, errIs: ErrUnknownTGCMode},
		{mode: TGCLinear, style: "XY", errIs: ErrUnknownTGCStyle},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"_"+string(tt.style), func(t *testing.T) {
			tgc, err := NewTGCInfo([]string{"WW"}, tt.mode, tt.style)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, names.TGCParNames(), tgc.Pars().Names())

			infos := append(chiralInfos("WW", 250), chiralInfos("Z", 250)...)
			links := tgc.PredLinks(infos)
			require.Len(t, links, 2)
			assert.Equal(t, tt.fct, links[0].SigFctLinks[0].FctName)
			assert.Equal(t, tt.coefs, links[0].SigFctLinks[0].CoefNames)
			assert.Len(t, tgc.Coefs(infos), 2)
		})
	}
}

func TestRunInfo(t *testing.T) {
	run := NewRunInfo(250)
	run.SetLumi(2000, 20)
	run.AddPol("ePol-", -0.8, 0.0001)
	run.AddPol("pPol+", 0.3, 0.0001)
	run.AddPolConfig("-+", "ePol-", "pPol+", "-", "+", 0.45)
	run.AddPolConfig("+-", "ePol-", "pPol+", "+", "-", 0.45)
	require.NoError(t, run.AddLumiConstr(2000, 40))
	require.NoError(t, run.FixPol("pPol+"))
	assert.ErrorIs(t, run.FixPol("pPol-"), datahelp.ErrParNotFound)

	pars := run.Pars()
	assert.Equal(t, []string{"Lumi250GeV", "ePol-", "pPol+"}, pars.Names())
	assert.Equal(t, 2000.0, pars[0].ValIni)
	assert.True(t, pars[0].IsConstrained())
	assert.True(t, pars[2].Fixed)

	require.Len(t, run.PolLinks(), 2)
	assert.Equal(t, data.PolLink{Energy: 250, PolConfig: "-+", EPolName: "ePol-", PPolName: "pPol+", EPolSign: "-", PPolSign: "+"}, run.PolLinks()[0])

	infos := []data.DistrInfo{{DistrName: "Z", PolConfig: names.ELpR, Energy: 250}, {DistrName: "WW", PolConfig: names.ELpR, Energy: 250}}
	links := run.PredLinks(infos)
	require.Len(t, links, 4)
	assert.Equal(t, data.DistrInfo{DistrName: "Z", PolConfig: "+-", Energy: 250}, links[1].Info)
	assert.Equal(t, []string{"LumiFr+-250GeV"}, links[1].BkgFctLinks[0].CoefNames)

	coefs := run.Coefs(infos)
	require.Len(t, coefs, 4)
	assert.Equal(t, []float64{0.45}, coefs[3].Coefs)
}

func TestReorderPars(t *testing.T) {
	pars := fit.ParVec{
		fit.NewPar("Acceptance_center_WW", 0, 1),
		fit.NewPar("DeltaA_Z", 0, 1),
		fit.NewPar("Lumi250GeV", 0, 1),
		fit.NewPar("ConstEff_Z", 0, 1),
		fit.NewPar("ePol-", 0, 1),
		fit.NewPar("Delta-g1Z", 0, 1),
		fit.NewPar("ScaleTotChiXS_Z", 0, 1),
		fit.NewPar("pPol+", 0, 1),
		fit.NewPar("s0_Z", 0, 1),
		fit.NewPar("Af_Z", 0, 1),
		fit.NewPar("DeltaA_I_WW", 0, 1),
		fit.NewPar("Box_dWidth", 0, 1),
	}
	got, err := ReorderPars(pars, DefaultOrdering(), DefaultIDMap())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Lumi250GeV", "ePol-", "pPol+", "Delta-g1Z", "DeltaA_Z", "DeltaA_I_WW", "Af_Z",
		"s0_Z", "ScaleTotChiXS_Z", "ConstEff_Z", "Acceptance_center_WW", "Box_dWidth",
	}, got.Names())

	partial, err := ReorderPars(pars, Ordering{CatPols, CatLumi}, DefaultIDMap())
	require.NoError(t, err)
	assert.Equal(t, []string{"ePol-", "pPol+", "Lumi250GeV"}, partial.Names())

	_, err = ReorderPars(append(pars, fit.NewPar("mystery", 0, 1)), DefaultOrdering(), DefaultIDMap())
	assert.ErrorIs(t, err, ErrUncategorizedPar)
	_, err = ReorderPars(pars, Ordering{"Nope"}, DefaultIDMap())
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestRegexSearch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"WW_250.txt", "WW_500.txt", "ZZ_250.txt", "xWW_250.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	got, err := RegexSearch(dir, `WW_\d+\.txt`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "WW_250.txt"), filepath.Join(dir, "WW_500.txt")}, got)

	_, err = RegexSearch(dir, "(")
	assert.Error(t, err)
	_, err = RegexSearch(filepath.Join(dir, "missing"), ".*")
	assert.Error(t, err)
}
