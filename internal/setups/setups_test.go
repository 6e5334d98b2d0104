package setups

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/input"
	"github.com/sawpanic/prewutils/internal/names"
	"github.com/sawpanic/prewutils/internal/setuphelp"
)

type fakeReader struct {
	preds []data.PredDistr
	coefs []data.CoefDistr
	calls []input.Source
}

func (f *fakeReader) Read(src input.Source) ([]data.PredDistr, []data.CoefDistr, error) {
	f.calls = append(f.calls, src)
	return f.preds, f.coefs, nil
}

func info(distr, config string, energy int) data.DistrInfo {
	return data.DistrInfo{DistrName: distr, PolConfig: config, Energy: energy}
}

func pred(distr, config string, energy int, sig ...float64) data.PredDistr {
	p := data.PredDistr{Info: info(distr, config, energy), SigDistr: sig, BkgDistr: make([]float64, len(sig))}
	for i := range sig {
		p.BinCenters = append(p.BinCenters, []float64{-0.5 + float64(i)})
	}
	return p
}

func findLink(t *testing.T, links []data.PredLink, i data.DistrInfo) data.PredLink {
	t.Helper()
	for _, l := range links {
		if l.Info == i {
			return l
		}
	}
	require.Failf(t, "link not found", "%s", i)
	return data.PredLink{}
}

func findCoef(coefs []data.CoefDistr, name string, i data.DistrInfo) (data.CoefDistr, bool) {
	for _, c := range coefs {
		if c.CoefName == name && c.Info == i {
			return c, true
		}
	}
	return data.CoefDistr{}, false
}

func generalReader() *fakeReader {
	return &fakeReader{
		preds: []data.PredDistr{
			pred("WW", names.ELpR, 250, 10, 20),
			pred("WW", names.ERpL, 250, 1, 2),
			pred("Z", names.ELpR, 250, 3, 5),
			pred("Z", names.ERpL, 250, 1, 1),
			pred("WW", names.ELpR, 500, 4, 6),
		},
		coefs: []data.CoefDistr{
			data.NewCoef("TGCA", info("WW", names.ELpR, 250), []float64{0.1, 0.2}),
		},
	}
}

func TestGeneralSetup(t *testing.T) {
	r := generalReader()
	s := NewGeneralSetup(250, WithReader(r))
	require.NoError(t, s.AddInputFile("in.csv", input.FormatCSV))
	require.Len(t, r.calls, 1)
	assert.Equal(t, 250, r.calls[0].Energy)
	s.UseDistr("WW", Differential)
	s.UseDistr("Z", Summed)

	run := setuphelp.NewRunInfo(250)
	run.SetLumi(2000, 1)
	run.AddPol("ePol-", -0.8, 0.0001)
	run.AddPol("pPol+", 0.3, 0.0001)
	run.AddPolConfig("neg_pos", "ePol-", "pPol+", "-", "+", 0.5)
	require.NoError(t, s.SetRun(run))
	s.AddConstEff(setuphelp.NewConstEffInfo("WW", 0.9))
	tgc, err := setuphelp.NewTGCInfo([]string{"WW"}, setuphelp.TGCLinear, setuphelp.TGCStyleRK)
	require.NoError(t, err)
	s.AddTGC(tgc)
	xs, err := setuphelp.NewCrossSectionInfo("Z", []string{names.ELpR, names.ERpL})
	require.NoError(t, err)
	xs.UseTotalChiralCrossSection()
	require.NoError(t, xs.UseChiralAsymmetries())
	s.AddCrossSection(xs)

	_, err = s.Pars(250)
	assert.ErrorIs(t, err, ErrNotCompleted)
	_, err = s.DataConnector()
	assert.ErrorIs(t, err, ErrNotCompleted)

	require.NoError(t, s.CompleteSetup())
	assert.ErrorIs(t, s.CompleteSetup(), ErrAlreadyCompleted)

	pars, err := s.Pars(250)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Lumi250GeV", "ePol-", "pPol+",
		names.TGCg1Z, names.TGCKappaGamma, names.TGCLambdaGamma,
		"DeltaA_Z", "ScaleTotChiXS_Z", "ConstEff_WW",
	}, pars.Names())
	assert.Equal(t, 2000.0, pars[0].ValIni)
	_, err = s.Pars(500)
	assert.ErrorIs(t, err, ErrWrongEnergy)
	assert.Equal(t, []int{250}, s.Energies())

	conn, err := s.DataConnector()
	require.NoError(t, err)
	preds := conn.PredDistrs()
	require.Len(t, preds, 4)
	assert.Equal(t, []float64{8}, preds[2].SigDistr)
	assert.Len(t, conn.PolLinks(), 1)

	links := conn.PredLinks()
	ww := findLink(t, links, info("WW", names.ELpR, 250))
	assert.Equal(t, []string{names.FctConstant, names.FctLinear3DPolynomial}, fctNames(ww.SigFctLinks))
	z := findLink(t, links, info("Z", names.ERpL, 250))
	assert.Equal(t, []string{names.FctConstant, names.ChiralAsymmName(1, 2)}, fctNames(z.SigFctLinks))
	pol := findLink(t, links, info("Z", "neg_pos", 250))
	assert.Equal(t, []string{names.FctLuminosityFraction}, fctNames(pol.SigFctLinks))
	assert.Equal(t, []string{names.FctLuminosityFraction}, fctNames(pol.BkgFctLinks))

	coefs := conn.CoefDistrs()
	c, ok := findCoef(coefs, names.ChiXSCoefName("Z", names.ELpR, 250), info("Z", names.ERpL, 250))
	require.True(t, ok)
	assert.Equal(t, []float64{8}, c.Coefs)
	_, ok = findCoef(coefs, "TGCA", info("WW", names.ELpR, 250))
	assert.True(t, ok)
	_, ok = findCoef(coefs, names.UnityCoefName, info("WW", names.ERpL, 250))
	assert.True(t, ok)
	c, ok = findCoef(coefs, names.LumiFractionName("neg_pos", 250), info("WW", "neg_pos", 250))
	require.True(t, ok)
	assert.Equal(t, []float64{0.5}, c.Coefs)
}

func TestGeneralSetupModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      DistrMode
		wantBins  int
		wantCoefs int
	}{
		{name: "differential", mode: Differential, wantBins: 2, wantCoefs: 1},
		{name: "summed drops coefs", mode: Summed, wantBins: 1, wantCoefs: 0},
		{name: "unknown is differential", mode: "weird", wantBins: 2, wantCoefs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewGeneralSetup(250, WithReader(generalReader()))
			require.NoError(t, s.AddInputFile("in.csv", input.FormatCSV))
			s.UseDistr("WW", tt.mode)
			require.NoError(t, s.CompleteSetup())
			conn, err := s.DataConnector()
			require.NoError(t, err)
			require.Len(t, conn.PredDistrs(), 2)
			assert.Equal(t, tt.wantBins, conn.PredDistrs()[0].NBins())
			assert.Len(t, conn.CoefDistrs(), tt.wantCoefs)
		})
	}
}

func TestGeneralSetupErrors(t *testing.T) {
	s := NewGeneralSetup(250, WithReader(generalReader()))
	assert.ErrorIs(t, s.AddInputFile("in.xml", "XML"), input.ErrUnknownFormat)
	assert.ErrorIs(t, s.SetRun(setuphelp.NewRunInfo(500)), ErrWrongEnergy)

	s.UseDistr("WW", Differential)
	s.SetParOrdering(setuphelp.Ordering{"Lumi", "Nope"}, nil)
	assert.ErrorIs(t, s.CompleteSetup(), setuphelp.ErrUnknownCategory)
}

func TestGeneralSetupInputFiles(t *testing.T) {
	dir := t.TempDir()
	table := "distr,pol,energy,sig\nWW,eLpR,250,5\nWW,eRpL,250,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_a.csv"), []byte(table), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	s := NewGeneralSetup(250)
	require.NoError(t, s.AddInputFiles(dir, `in_.*\.csv`, input.FormatCSV))
	require.NoError(t, s.AddInputFiles(dir, `none_.*`, input.FormatCSV))
	s.UseDistr("WW", Differential)
	require.NoError(t, s.CompleteSetup())
	conn, err := s.DataConnector()
	require.NoError(t, err)
	assert.Len(t, conn.PredDistrs(), 2)
}

// RKSetupSuite covers the legacy multi-energy setup.
type RKSetupSuite struct {
	suite.Suite
	reader *fakeReader
	setup  *RKDistrSetup
}

func (s *RKSetupSuite) SetupTest() {
	s.reader = &fakeReader{
		preds: []data.PredDistr{
			pred(WWSemileptonic, names.ELpR, 250, 10, 20),
			pred(WWSemileptonic, names.ERpL, 250, 1, 2),
			pred(ZZSemileptonic, names.ELpR, 250, 2, 2),
			pred("Z", names.ELpR, 250, 3, 5),
			pred("Z", names.ERpL, 250, 1, 1),
			pred(WWSemileptonic, names.ELpR, 500, 4, 6),
			pred(WWSemileptonic, names.ERpL, 500, 1, 1),
			pred("Z", names.ELpR, 500, 2, 2),
			pred("Z", names.ERpL, 500, 1, 1),
		},
		coefs: []data.CoefDistr{
			data.NewCoef("TGCA", info(WWSemileptonic, names.ELpR, 250), []float64{0.1, 0.2}),
		},
	}
	rk := NewRKDistrSetup(WithReader(s.reader))
	s.Require().NoError(rk.AddInputFile("rk.txt", input.FormatRK))
	rk.AddEnergy(250)
	rk.AddEnergy(500)
	rk.AddEnergy(250)
	for _, d := range []string{WWSemileptonic, ZZSemileptonic, "Z", "missing"} {
		rk.UseDistr(d, Differential)
	}
	rk.SetLumi(250, 2000, 1)
	rk.SetLumi(250, 9, 9)
	rk.SetLumi(500, 4000, 1)
	rk.AddPol("ePol250", 250, -0.8, 0.0001)
	rk.AddPol("pPol250", 250, 0.3, 0.0001)
	rk.AddPolConfig("neg_pos", 250, "ePol250", "pPol250", "-", "+", 0.5)
	s.Require().NoError(rk.FixPol("pPol250", 250))
	s.Require().NoError(rk.AddLumiConstr(500, 4000, 40))
	s.Require().NoError(rk.ActivateCTGCs(setuphelp.TGCQuadratic))
	s.Require().NoError(rk.FreeChiralXSection(WWSemileptonic, names.ERpL))
	rk.FreeTotalChiralXSection(WWSemileptonic)
	s.Require().NoError(rk.FreeAsymmetry2XS(WWSemileptonic, names.ELpR, names.ERpL, setuphelp.DefaultName))
	rk.Free2fFinalStateAsymmetry("Z", setuphelp.DefaultName)
	rk.SetWWMuOnly()
	rk.SetZZMuOnly()
	s.setup = rk
}

func (s *RKSetupSuite) TestCompletion() {
	_, err := s.setup.Pars(250)
	s.ErrorIs(err, ErrNotCompleted)
	s.Require().NoError(s.setup.CompleteSetup())
	s.ErrorIs(s.setup.CompleteSetup(), ErrAlreadyCompleted)

	s.Require().Len(s.reader.calls, 2)
	s.Equal(250, s.reader.calls[0].Energy)
	s.Equal(500, s.reader.calls[1].Energy)
	s.Equal([]int{250, 500}, s.setup.Energies())
}

func (s *RKSetupSuite) TestPars() {
	s.Require().NoError(s.setup.CompleteSetup())
	common := []string{
		names.TGCg1Z, names.TGCKappaGamma, names.TGCLambdaGamma,
		"ChiXS_WWsemileptonic_RL", "ScaleTotChiXS_WWsemileptonic",
		"DeltaA_WWsemileptonic", "Af_Z",
	}

	pars, err := s.setup.Pars(250)
	s.Require().NoError(err)
	s.Equal(append(append([]string(nil), common...), "Lumi250GeV", "ePol250", "pPol250"), pars.Names())
	lumi := pars[pars.Index("Lumi250GeV")]
	s.Equal(2000.0, lumi.ValIni)
	s.True(pars[pars.Index("pPol250")].Fixed)

	pars, err = s.setup.Pars(500)
	s.Require().NoError(err)
	s.Equal(append(append([]string(nil), common...), "Lumi500GeV"), pars.Names())
	s.True(pars[len(pars)-1].IsConstrained())

	all, err := s.setup.AllPars()
	s.Require().NoError(err)
	s.Len(all, len(common)+4)

	_, err = s.setup.Pars(1000)
	s.ErrorIs(err, ErrWrongEnergy)
}

func (s *RKSetupSuite) TestLinks() {
	s.Require().NoError(s.setup.CompleteSetup())
	conn, err := s.setup.DataConnector()
	s.Require().NoError(err)
	t := s.T()
	links := conn.PredLinks()

	lr := findLink(t, links, info(WWSemileptonic, names.ELpR, 250))
	s.Equal([]string{
		names.FctConstantCoef, names.FctQuadratic3DPolynomial, names.FctConstant, names.ChiralAsymmName(0, 2),
	}, fctNames(lr.SigFctLinks))
	s.Equal(names.TGCParNames(), lr.SigFctLinks[1].ParNames)
	s.Len(lr.SigFctLinks[1].CoefNames, 10)

	rl := findLink(t, links, info(WWSemileptonic, names.ERpL, 250))
	s.Equal([]string{
		names.FctConstantCoef, names.FctQuadratic3DPolynomial, names.FctConstant, names.FctConstant, names.ChiralAsymmName(1, 2),
	}, fctNames(rl.SigFctLinks))
	s.Equal([]string{"ChiXS_WWsemileptonic_RL"}, rl.SigFctLinks[2].ParNames)

	// No TGC coefficients at 500 GeV.
	lr500 := findLink(t, links, info(WWSemileptonic, names.ELpR, 500))
	s.Equal([]string{names.FctConstantCoef, names.FctConstant, names.ChiralAsymmName(0, 2)}, fctNames(lr500.SigFctLinks))

	zz := findLink(t, links, info(ZZSemileptonic, names.ELpR, 250))
	s.Equal([]string{names.NuAndTauRemovalCoefName}, zz.SigFctLinks[0].CoefNames)

	z := findLink(t, links, info("Z", names.ERpL, 500))
	s.Equal([]string{names.FctAsymmFactorRLAf}, fctNames(z.SigFctLinks))

	pol := findLink(t, links, info("Z", "neg_pos", 250))
	s.Equal([]string{names.FctLuminosityFraction}, fctNames(pol.SigFctLinks))
	s.Equal([]string{names.FctLuminosityFraction}, fctNames(pol.BkgFctLinks))
	s.Len(conn.PolLinks(), 1)
}

func (s *RKSetupSuite) TestCoefs() {
	s.Require().NoError(s.setup.CompleteSetup())
	conn, err := s.setup.DataConnector()
	s.Require().NoError(err)
	coefs := conn.CoefDistrs()

	c, ok := findCoef(coefs, names.TauRemovalCoefName, info(WWSemileptonic, names.ELpR, 250))
	s.Require().True(ok)
	s.Equal([]float64{0.5}, c.Coefs)
	c, ok = findCoef(coefs, names.NuAndTauRemovalCoefName, info(ZZSemileptonic, names.ELpR, 250))
	s.Require().True(ok)
	s.Equal([]float64{0.168}, c.Coefs)

	_, ok = findCoef(coefs, names.UnityCoefName, info(WWSemileptonic, names.ERpL, 250))
	s.True(ok)
	_, ok = findCoef(coefs, names.UnityCoefName, info(WWSemileptonic, names.ELpR, 500))
	s.False(ok)

	c, ok = findCoef(coefs, names.ChiXSCoefName(WWSemileptonic, names.ERpL, 500), info(WWSemileptonic, names.ELpR, 500))
	s.Require().True(ok)
	s.Equal([]float64{2}, c.Coefs)

	c, ok = findCoef(coefs, names.ChiDistrCoefName("Z", names.ELpR, 250, names.CoefTypeSignal), info("Z", names.ELpR, 250))
	s.Require().True(ok)
	s.Len(c.Coefs, 2)
	_, ok = findCoef(coefs, names.CosThetaIndexCoefName, info("Z", names.ERpL, 500))
	s.True(ok)

	for _, p := range conn.PredDistrs() {
		s.NotEqual("missing", p.Info.DistrName)
	}
}

func (s *RKSetupSuite) TestInvalidFreedoms() {
	s.ErrorIs(s.setup.FreeChiralXSection("Z", "eXpY"), names.ErrUnknownChirality)
	s.ErrorIs(s.setup.FreeAsymmetry2XS("Z", names.ELpR, names.ELpR, setuphelp.DefaultName), setuphelp.ErrDuplicateChirality)
	s.ErrorIs(s.setup.ActivateCTGCs("cubic"), setuphelp.ErrUnknownTGCMode)
	s.ErrorIs(s.setup.AddInputFile("x", "XML"), input.ErrUnknownFormat)
}

func TestRKSetupSuite(t *testing.T) {
	suite.Run(t, new(RKSetupSuite))
}

func TestFitModifier(t *testing.T) {
	preds := []data.PredDistr{
		pred("Z", names.ELpR, 250, 3, 5),
		pred("Z", names.ERpL, 250, 1, 1),
		pred("WW", names.ELpR, 500, 4, 6),
	}
	conn := data.NewConnector(preds, nil, nil, nil)
	pars := fit.ParVec{fit.NewPar("Lumi250GeV", 2000, 1)}

	m := NewFitModifier(250)
	m.AddAf(setuphelp.NewAfInfo("Z", setuphelp.DefaultName, 0))
	m.AddDifermion(setuphelp.NewDifermionParamInfo("Z", setuphelp.DefaultDifermionPars()))

	out, outPars, err := m.ModifySetup(conn, pars)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lumi250GeV", "Af_Z", "Ae_Z", "ef_Z", "kL_Z", "kR_Z", "s0_Z"}, outPars.Names())
	assert.Equal(t, []string{"Lumi250GeV"}, pars.Names())
	assert.Empty(t, conn.PredLinks())

	assert.Equal(t, conn.PredDistrs(), out.PredDistrs())
	link := findLink(t, out.PredLinks(), info("Z", names.ELpR, 250))
	assert.Equal(t, []string{names.FctAsymmFactorLRAf, names.FctGeneral2fParamLR}, fctNames(link.SigFctLinks))
	assert.Len(t, out.CoefDistrs(), 8)
	for _, l := range out.PredLinks() {
		assert.Equal(t, 250, l.Info.Energy)
	}

	bad := NewFitModifier(1000)
	bad.AddAf(setuphelp.NewAfInfo("Z", setuphelp.DefaultName, 0))
	_, _, err = bad.ModifySetup(conn, pars)
	assert.ErrorIs(t, err, setuphelp.ErrNoInfos)
}

func TestApplyModifier(t *testing.T) {
	reader := &fakeReader{preds: []data.PredDistr{
		pred("Z", names.ELpR, 250, 3, 5),
		pred("Z", names.ERpL, 250, 1, 1),
	}}
	s := NewGeneralSetup(250, WithReader(reader))
	require.NoError(t, s.AddInputFile("z.csv", input.FormatCSV))
	s.UseDistr("Z", Differential)
	require.NoError(t, s.CompleteSetup())

	m := NewFitModifier(250)
	m.AddAf(setuphelp.NewAfInfo("Z", setuphelp.DefaultName, 0))
	modified, err := ApplyModifier(s, m)
	require.NoError(t, err)

	assert.Equal(t, []int{250}, modified.Energies())
	pars, err := modified.Pars(250)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lumi250GeV", "Af_Z"}, pars.Names())
	_, err = modified.Pars(500)
	assert.ErrorIs(t, err, ErrWrongEnergy)

	conn, err := modified.DataConnector()
	require.NoError(t, err)
	link := findLink(t, conn.PredLinks(), info("Z", names.ELpR, 250))
	assert.Contains(t, fctNames(link.SigFctLinks), names.FctAsymmFactorLRAf)

	orig, err := s.Pars(250)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lumi250GeV"}, orig.Names())

	_, err = ApplyModifier(s, NewFitModifier(500))
	assert.ErrorIs(t, err, ErrWrongEnergy)
}
