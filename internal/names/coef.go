package names

import "strconv"

// Fixed coefficient names.
const (
	CosThetaIndexCoefName = "CosThetaIndex"
	BinWidthCoefName      = "BinWidth"
	UnityCoefName         = "One"

	TauRemovalCoefName      = "TauRemovalFactor"
	NuAndTauRemovalCoefName = "NuAndTauRemovalFactor"
)

// Distribution coefficient types.
const (
	CoefTypeSignal     = "signal"
	CoefTypeBackground = "background"
)

// LumiFractionName names the luminosity fraction of a polarisation config.
func LumiFractionName(polConfig string, energy int) string {
	return "LumiFr" + polConfig + strconv.Itoa(energy) + EnergyUnit
}

// ChiXSCoefName names the summed chiral cross section coefficient.
func ChiXSCoefName(distr, config string, energy int) string {
	return "ChiXS_" + distr + "_" + config + "_" + strconv.Itoa(energy)
}

// ChiDistrCoefName names the bin-by-bin chiral distribution coefficient.
func ChiDistrCoefName(distr, config string, energy int, typ string) string {
	return "ChiDistr_" + distr + "_" + config + "_" + strconv.Itoa(energy) + "_" + typ
}
