package names

import (
	"strconv"
	"strings"
)

// Prediction function names understood by the fit engine.
const (
	FctConstant                = "Constant"
	FctConstantCoef            = "ConstantCoef"
	FctLuminosityFraction      = "LuminosityFraction"
	FctAcceptanceBox           = "AcceptanceBox"
	FctAcceptanceBoxPolynomial = "AcceptanceBoxPolynomial"
	FctLinear3DPolynomial      = "Linear3DPolynomial_Coeff"
	FctQuadratic3DPolynomial   = "Quadratic3DPolynomial_Coeff"
	FctAsymmFactorLRAf         = "AsymmFactorLR_Af_2f"
	FctAsymmFactorRLAf         = "AsymmFactorRL_Af_2f"
	FctGeneral2fParamLR        = "General2fParam_LR"
	FctGeneral2fParamRL        = "General2fParam_RL"
	FctGeneral2fParamUnpolLR   = "General2fParamUnpol_LR"
	FctGeneral2fParamUnpolRL   = "General2fParamUnpol_RL"
	chiralAsymmPrefix          = "AsymmFactor"
	chiralAsymmSuffix          = "allowed"
)

// ChiralAsymmName selects the asymmetry factor for the config at index out of
// n configurations taking part in the asymmetry.
func ChiralAsymmName(index, n int) string {
	return chiralAsymmPrefix + strconv.Itoa(index) + "_" + strconv.Itoa(n) + chiralAsymmSuffix
}

// ParseChiralAsymmName is the inverse of ChiralAsymmName.
func ParseChiralAsymmName(fct string) (index, n int, ok bool) {
	body, found := strings.CutPrefix(fct, chiralAsymmPrefix)
	if !found {
		return 0, 0, false
	}
	body, found = strings.CutSuffix(body, chiralAsymmSuffix)
	if !found {
		return 0, 0, false
	}
	idxStr, nStr, found := strings.Cut(body, "_")
	if !found {
		return 0, 0, false
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, 0, false
	}
	cnt, err := strconv.Atoi(nStr)
	if err != nil {
		return 0, 0, false
	}
	return idx, cnt, true
}
