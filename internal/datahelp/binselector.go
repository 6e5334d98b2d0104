package datahelp

import (
	"fmt"

	"github.com/sawpanic/prewutils/internal/fit"
)

// BinSelector removes bins whose prediction, evaluated with a fixed set of
// parameter values, falls below a cut.
type BinSelector struct {
	Cut        float64
	ParsForCut fit.ParVec
}

// NewBinSelector creates a selector evaluating predictions at the current
// values (ValMod) of parsForCut.
func NewBinSelector(cut float64, parsForCut fit.ParVec) BinSelector {
	return BinSelector{Cut: cut, ParsForCut: parsForCut.Clone()}
}

// RemoveBins drops every bin with a prediction strictly below the cut and
// returns the number of removed bins. The container's parameter values are
// the same before and after the call.
func (s BinSelector) RemoveBins(c *fit.Container) (int, error) {
	saved := c.Values()
	restore := func() error { return c.SetValues(saved) }

	for _, p := range s.ParsForCut {
		if err := c.SetValue(p.Name, p.ValMod); err != nil {
			if rerr := restore(); rerr != nil {
				return 0, rerr
			}
			return 0, fmt.Errorf("bin selection: %w", err)
		}
	}

	preds := make([]float64, c.NBins())
	for i := range preds {
		preds[i] = c.Prediction(i)
	}

	removed := 0
	for i := len(preds) - 1; i >= 0; i-- {
		if preds[i] < s.Cut {
			c.RemoveBin(i)
			removed++
		}
	}
	return removed, restore()
}
