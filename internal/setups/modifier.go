package setups

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/setuphelp"
)

// FitModifier changes an assembled setup afterwards, e.g. to fit toys
// generated from a different setup with 2-fermion parametrisations.
// Predictions and polarisation links are never modified.
type FitModifier struct {
	energy     int
	afs        []*setuphelp.AfInfo
	difermions []*setuphelp.DifermionParamInfo
	ordering   setuphelp.Ordering
	idMap      setuphelp.IDMap
}

func NewFitModifier(energy int) *FitModifier {
	return &FitModifier{
		energy:   energy,
		ordering: setuphelp.DefaultOrdering(),
		idMap:    setuphelp.DefaultIDMap(),
	}
}

func (m *FitModifier) Energy() int { return m.energy }

func (m *FitModifier) AddAf(info *setuphelp.AfInfo) { m.afs = append(m.afs, info) }

func (m *FitModifier) AddDifermion(info *setuphelp.DifermionParamInfo) {
	m.difermions = append(m.difermions, info)
}

// SetParOrdering replaces the output ordering. A nil idMap keeps the
// default categories.
func (m *FitModifier) SetParOrdering(ordering setuphelp.Ordering, idMap setuphelp.IDMap) {
	m.ordering = ordering
	if idMap != nil {
		m.idMap = idMap
	}
}

type modification interface {
	DistrName() string
	Pars() fit.ParVec
	PredLinks(infos []data.DistrInfo) ([]data.PredLink, error)
	Coefs(preds []data.PredDistr) ([]data.CoefDistr, error)
}

// ModifySetup returns a modified copy of the connector and parameters:
// Af modifications first, then 2-fermion parametrisations, then the
// parameters are reordered. The inputs are not changed.
func (m *FitModifier) ModifySetup(conn data.Connector, pars fit.ParVec) (data.Connector, fit.ParVec, error) {
	log.Debug().Int("energy", m.energy).Msg("Applying modifications")
	mods := make([]modification, 0, len(m.afs)+len(m.difermions))
	for _, a := range m.afs {
		mods = append(mods, a)
	}
	for _, d := range m.difermions {
		mods = append(mods, d)
	}

	// Only the modifier energy feeds the parametrisations; the output keeps
	// every energy of the input.
	preds := conn.ForEnergy(m.energy).PredDistrs()
	infos := data.FindInfos(preds)
	outPars := pars.Clone()
	coefs := conn.CoefDistrs()
	links := conn.PredLinks()
	for _, mod := range mods {
		newLinks, err := mod.PredLinks(infos)
		if err != nil {
			return data.Connector{}, nil, fmt.Errorf("modify %s: %w", mod.DistrName(), err)
		}
		newCoefs, err := mod.Coefs(preds)
		if err != nil {
			return data.Connector{}, nil, fmt.Errorf("modify %s: %w", mod.DistrName(), err)
		}
		outPars = datahelp.AddPars(outPars, mod.Pars())
		coefs = datahelp.AddCoefs(coefs, newCoefs)
		links = datahelp.AddLinks(links, newLinks)
	}

	log.Debug().Msg("Reordering parameters")
	outPars, err := setuphelp.ReorderPars(outPars, m.ordering, m.idMap)
	if err != nil {
		return data.Connector{}, nil, err
	}
	out := data.NewConnector(conn.PredDistrs(), coefs, links, conn.PolLinks())
	logState("FitModifier", outPars, out)
	return out, outPars, nil
}

// modifiedSetup is a completed setup with a modifier applied.
type modifiedSetup struct {
	energies []int
	pars     map[int]fit.ParVec
	conn     data.Connector
}

func (s *modifiedSetup) Energies() []int { return append([]int(nil), s.energies...) }

func (s *modifiedSetup) Pars(energy int) (fit.ParVec, error) {
	pars, ok := s.pars[energy]
	if !ok {
		return nil, wrongEnergy(energy)
	}
	return pars.Clone(), nil
}

func (s *modifiedSetup) DataConnector() (data.Connector, error) { return s.conn, nil }

// ApplyModifier modifies a completed setup at the modifier energy. The
// parameters of the other energies are kept.
func ApplyModifier(s Setup, m *FitModifier) (Setup, error) {
	conn, err := s.DataConnector()
	if err != nil {
		return nil, err
	}
	out := &modifiedSetup{energies: s.Energies(), pars: make(map[int]fit.ParVec)}
	found := false
	for _, energy := range out.energies {
		pars, err := s.Pars(energy)
		if err != nil {
			return nil, err
		}
		out.pars[energy] = pars
		found = found || energy == m.energy
	}
	if !found {
		return nil, wrongEnergy(m.energy)
	}
	out.conn, out.pars[m.energy], err = m.ModifySetup(conn, out.pars[m.energy])
	if err != nil {
		return nil, err
	}
	return out, nil
}
