// Package datahelp holds the deduplicating collection helpers used while
// assembling a setup, the prediction sums that turn tabulated distributions
// into coefficients, and the bin selection policy of the toy fits.
package datahelp

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/fit"
)

var ErrParNotFound = errors.New("parameter not found")

// IndexOf returns the position of the first element equal to item under eq, or -1.
func IndexOf[T any](items []T, item T, eq func(a, b T) bool) int {
	for i, v := range items {
		if eq(v, item) {
			return i
		}
	}
	return -1
}

// AddUnique appends item unless an equal element is already present.
func AddUnique[T any](items []T, item T, eq func(a, b T) bool) ([]T, bool) {
	if IndexOf(items, item, eq) >= 0 {
		return items, false
	}
	return append(items, item), true
}

func sameName(a, b fit.Par) bool { return a.Equal(b) }

func sameCoef(a, b data.CoefDistr) bool { return a.SameKey(b) }

// AddPar adds a parameter unless one with the same name exists.
func AddPar(pars fit.ParVec, p fit.Par) fit.ParVec {
	out, added := AddUnique(pars, p.Clone(), sameName)
	if !added {
		log.Debug().Str("par", p.Name).Msg("parameter already present, skipped")
	}
	return out
}

// AddPars adds every parameter of src in order.
func AddPars(pars fit.ParVec, src fit.ParVec) fit.ParVec {
	for _, p := range src {
		pars = AddPar(pars, p)
	}
	return pars
}

// AddCoef adds a coefficient unless one with the same name and info exists.
func AddCoef(coefs []data.CoefDistr, c data.CoefDistr) []data.CoefDistr {
	out, added := AddUnique(coefs, data.NewCoef(c.CoefName, c.Info, c.Coefs), sameCoef)
	if !added {
		log.Debug().Str("coef", c.CoefName).Stringer("info", c.Info).Msg("coefficient already present, skipped")
	}
	return out
}

// AddCoefs adds every coefficient of src in order.
func AddCoefs(coefs []data.CoefDistr, src []data.CoefDistr) []data.CoefDistr {
	for _, c := range src {
		coefs = AddCoef(coefs, c)
	}
	return coefs
}

// AddLink adds a prediction link. A link for an info that is already present
// is merged into the existing one by appending its function links.
func AddLink(links []data.PredLink, l data.PredLink) []data.PredLink {
	for i := range links {
		if links[i].Info == l.Info {
			links[i].Merge(l)
			return links
		}
	}
	return append(links, l.Clone())
}

// AddLinks adds every link of src in order.
func AddLinks(links []data.PredLink, src []data.PredLink) []data.PredLink {
	for _, l := range src {
		links = AddLink(links, l)
	}
	return links
}

// FindPar returns a copy of the named parameter.
func FindPar(name string, pars fit.ParVec) (fit.Par, error) {
	i := pars.Index(name)
	if i < 0 {
		return fit.Par{}, fmt.Errorf("%w: %s", ErrParNotFound, name)
	}
	return pars[i].Clone(), nil
}

// UpdatePar applies fn to the named parameter in place.
func UpdatePar(pars fit.ParVec, name string, fn func(p *fit.Par)) error {
	i := pars.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrParNotFound, name)
	}
	fn(&pars[i])
	return nil
}

// FixPar fixes the named parameter.
func FixPar(pars fit.ParVec, name string) error {
	return UpdatePar(pars, name, func(p *fit.Par) { p.Fix() })
}

// ConstrainPar attaches a Gaussian constraint to the named parameter.
func ConstrainPar(pars fit.ParVec, name string, val, unc float64) error {
	return UpdatePar(pars, name, func(p *fit.Par) { p.SetConstrGauss(val, unc) })
}
