package names

import (
	"errors"
	"fmt"
	"strconv"
)

// EnergyUnit is appended to every energy-labelled name.
const EnergyUnit = "GeV"

var ErrAsymmIndex = errors.New("asymmetry index out of range")

// TGC parameter names in LEP parametrisation.
const (
	TGCg1Z         = "Delta-g1Z"
	TGCKappaGamma  = "Delta-kappa_gamma"
	TGCLambdaGamma = "Delta-lambda_gamma"
)

// TGCParNames returns the three charged TGC parameter names.
func TGCParNames() []string {
	return []string{TGCg1Z, TGCKappaGamma, TGCLambdaGamma}
}

// LumiName is the luminosity parameter of the run at the given energy.
func LumiName(energy int) string {
	return "Lumi" + strconv.Itoa(energy) + EnergyUnit
}

// ChiXSParName names the free scaling of one chiral cross section.
func ChiXSParName(distr, config string) (string, error) {
	short, err := ChiralShort(config)
	if err != nil {
		return "", fmt.Errorf("chiral cross section parameter for %s: %w", distr, err)
	}
	return "ChiXS_" + distr + "_" + short, nil
}

// TotalChiXSParName names the common scaling of all chiral cross sections.
func TotalChiXSParName(distr string) string {
	return "ScaleTotChiXS_" + distr
}

// AsymmParName names a chiral asymmetry parameter. Index 0 is the single
// asymmetry of a two-configuration decomposition, 1-3 the numbered ones.
func AsymmParName(distr string, index int) (string, error) {
	var suffix string
	switch index {
	case 0:
		suffix = ""
	case 1:
		suffix = "_I"
	case 2:
		suffix = "_II"
	case 3:
		suffix = "_III"
	default:
		return "", fmt.Errorf("%w: %d for %s", ErrAsymmIndex, index, distr)
	}
	return "DeltaA" + suffix + "_" + distr, nil
}

// ConstEffName names a constant efficiency parameter.
func ConstEffName(distr string) string {
	return "ConstEff_" + distr
}

// AfParName names the final state asymmetry of a 2-fermion distribution.
func AfParName(distr string) string {
	return "Af_" + distr
}
