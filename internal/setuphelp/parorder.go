package setuphelp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
)

// IDMap assigns parameter categories to name fragments. A parameter belongs
// to a category if its name equals or contains one of the fragments.
type IDMap map[string][]string

// Ordering lists categories in the order their parameters are placed.
type Ordering []string

// Parameter categories of the default map.
const (
	CatLumi           = "Lumi"
	CatPols           = "Pols"
	CatAccBoxes       = "AccBoxes"
	CatEfficiencies   = "Efficiencies"
	CatTGCs           = "TGCs"
	CatAsymmetries    = "Asymmetries"
	Cat2fScale        = "2f_scale"
	Cat2fShape        = "2f_shape"
	CatXSectionScales = "XSectionScalings"
)

// DefaultIDMap covers every parameter the Info objects create with their
// conventional names.
func DefaultIDMap() IDMap {
	return IDMap{
		CatLumi:           {"Lumi"},
		CatPols:           {"ePol", "pPol"},
		CatAccBoxes:       {"Acceptance_center", "Acceptance_width", "_dCenter", "_dWidth"},
		CatEfficiencies:   {"ConstEff"},
		CatTGCs:           names.TGCParNames(),
		CatAsymmetries:    {"DeltaA"},
		Cat2fScale:        {"s0_"},
		Cat2fShape:        {"Ae_", "Af_", "ef_", "AFB_", "kL_", "kR_", "k0_", "dk_"},
		CatXSectionScales: {"ScaleTotChiXS"},
	}
}

func DefaultOrdering() Ordering {
	return Ordering{
		CatLumi, CatPols, CatTGCs, CatAsymmetries, Cat2fShape,
		Cat2fScale, CatXSectionScales, CatEfficiencies, CatAccBoxes,
	}
}

// ParFitsID reports whether the parameter name matches one of the ids.
func ParFitsID(par fit.Par, ids []string) bool {
	for _, id := range ids {
		if par.Name == id || strings.Contains(par.Name, id) {
			return true
		}
	}
	return false
}

// CategorizePars sorts every parameter into the first matching category,
// trying categories in lexical order. Parameters keep their relative order
// within a category.
func CategorizePars(pars fit.ParVec, idMap IDMap) (map[string]fit.ParVec, error) {
	cats := make([]string, 0, len(idMap))
	for cat := range idMap {
		cats = append(cats, cat)
	}
	slices.Sort(cats)

	out := make(map[string]fit.ParVec, len(cats))
	for _, p := range pars {
		found := false
		for _, cat := range cats {
			if ParFitsID(p, idMap[cat]) {
				out[cat] = append(out[cat], p)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUncategorizedPar, p.Name)
		}
	}
	return out, nil
}

// ReorderPars arranges the parameters by category following ordering.
// Categories missing from ordering are dropped.
func ReorderPars(pars fit.ParVec, ordering Ordering, idMap IDMap) (fit.ParVec, error) {
	for _, cat := range ordering {
		if _, ok := idMap[cat]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
		}
	}
	byCat, err := CategorizePars(pars, idMap)
	if err != nil {
		return nil, err
	}

	out := make(fit.ParVec, 0, len(pars))
	for _, cat := range ordering {
		out = append(out, byCat[cat]...)
	}
	if len(out) != len(pars) {
		log.Warn().Int("pars", len(pars)).Int("ordered", len(out)).Msg("Parameter categories without ordering were dropped")
	}
	return out, nil
}
