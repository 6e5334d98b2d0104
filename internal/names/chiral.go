// Package names holds the naming conventions shared by all parametrisations.
// Parameters and coefficients are only ever referred to by name, so every
// component that needs to talk about the same quantity goes through here.
package names

import (
	"errors"
	"fmt"
)

// Chiral beam configurations.
const (
	ELpR = "eLpR"
	ERpL = "eRpL"
	ELpL = "eLpL"
	ERpR = "eRpR"
)

// ChiralConfigs lists all four chiral configurations in canonical order.
var ChiralConfigs = []string{ELpR, ERpL, ELpL, ERpR}

var ErrUnknownChirality = errors.New("unknown chiral config")

var chiralShort = map[string]string{
	ELpR: "LR",
	ERpL: "RL",
	ELpL: "LL",
	ERpR: "RR",
}

// ChiralShort returns the two-letter tag of a chiral configuration.
func ChiralShort(config string) (string, error) {
	short, ok := chiralShort[config]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChirality, config)
	}
	return short, nil
}

// IsChiral reports whether config is one of the four chiral configurations.
func IsChiral(config string) bool {
	_, ok := chiralShort[config]
	return ok
}
