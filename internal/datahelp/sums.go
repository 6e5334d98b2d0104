package datahelp

import (
	"errors"
	"fmt"

	"github.com/sawpanic/prewutils/internal/data"
)

// Sum and coefficient types.
const (
	TypeSignal     = "signal"
	TypeBackground = "background"
	TypeSigBkg     = "S+B"
	TypeTotal      = "total"
)

var (
	ErrInvalidSumType  = errors.New("invalid prediction sum type")
	ErrInvalidCoefType = errors.New("invalid prediction coefficient type")
)

// PredSum sums the signal, the background or both over all bins.
func PredSum(pred data.PredDistr, typ string) (float64, error) {
	var sum float64
	switch typ {
	case TypeSignal:
		for _, v := range pred.SigDistr {
			sum += v
		}
	case TypeBackground:
		for _, v := range pred.BkgDistr {
			sum += v
		}
	case TypeSigBkg:
		sig, _ := PredSum(pred, TypeSignal)
		bkg, _ := PredSum(pred, TypeBackground)
		sum = sig + bkg
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSumType, typ)
	}
	return sum, nil
}

// PredToCoef copies the signal, the background or their sum bin by bin.
func PredToCoef(pred data.PredDistr, typ string) ([]float64, error) {
	out := make([]float64, pred.NBins())
	switch typ {
	case TypeSignal:
		copy(out, pred.SigDistr)
	case TypeBackground:
		copy(out, pred.BkgDistr)
	case TypeTotal:
		for i := range out {
			out[i] = pred.SigDistr[i]
			if i < len(pred.BkgDistr) {
				out[i] += pred.BkgDistr[i]
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCoefType, typ)
	}
	return out, nil
}
