// Package setuphelp holds the parametrisation descriptors a setup is built
// from. Every Info object owns its fit parameters and produces prediction
// links and coefficients for the distributions it is asked about.
package setuphelp

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/names"
)

// DefaultName selects the conventional parameter name.
const DefaultName = "default"

var (
	ErrNoConfigs          = errors.New("empty chiral config list")
	ErrTooFewConfigs      = errors.New("asymmetries need at least two chiral configs")
	ErrInvalidChirality   = errors.New("need eLpR/eRpL chiral configs")
	ErrNoInfos            = errors.New("no distributions given")
	ErrMissingPrediction  = errors.New("prediction not found")
	ErrUnknownTGCMode     = errors.New("unknown TGC mode")
	ErrUnknownTGCStyle    = errors.New("unknown TGC coefficient style")
	ErrUncategorizedPar   = errors.New("can't find category for parameter")
	ErrUnknownCategory    = errors.New("unknown parameter category")
	ErrDuplicateChirality = errors.New("duplicate chiral config")
)

// isDefault reports whether name asks for the conventional name.
func isDefault(name string) bool { return name == "" || name == DefaultName }

func infosEnergy(infos []data.DistrInfo) (int, error) {
	if len(infos) == 0 {
		return 0, ErrNoInfos
	}
	return infos[0].Energy, nil
}

func predsEnergy(preds []data.PredDistr) (int, error) {
	if len(preds) == 0 {
		return 0, ErrNoInfos
	}
	return preds[0].Info.Energy, nil
}

// findPred returns the single prediction of info.
func findPred(preds []data.PredDistr, info data.DistrInfo) (data.PredDistr, error) {
	found := data.SubvecInfo(preds, info)
	if len(found) == 0 {
		return data.PredDistr{}, fmt.Errorf("%w: %s", ErrMissingPrediction, info)
	}
	return found[0], nil
}

// twoChiralInfos returns the eLpR and eRpL infos of a 2-fermion distribution.
func twoChiralInfos(distr string, energy int) (lr, rl data.DistrInfo) {
	return data.DistrInfo{DistrName: distr, PolConfig: names.ELpR, Energy: energy},
		data.DistrInfo{DistrName: distr, PolConfig: names.ERpL, Energy: energy}
}

// affects reports whether the info belongs to one of the distributions.
func affects(distrs []string, info data.DistrInfo) bool {
	return slices.Contains(distrs, info.DistrName)
}
