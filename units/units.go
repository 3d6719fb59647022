// Package units resolves conversion factors between emissions unit strings
// such as "Gg", "Mg" or "Gg CO2 / yr". It covers exactly what unit
// harmonization needs: a dimensionless factor between two compatible units,
// and a clear error when they are not compatible.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompatible is returned (wrapped) when two units cannot be converted
// into each other.
var ErrIncompatible = errors.New("incompatible units")

// Converter yields the dimensionless factor that converts a value in unit
// from into a value in unit to.
type Converter interface {
	Factor(from, to string) (float64, error)
}

// massGrams maps mass tokens to their magnitude in grams.
var massGrams = map[string]float64{
	"g":  1,
	"kg": 1e3,
	"t":  1e6,
	"Mg": 1e6,
	"kt": 1e9,
	"Gg": 1e9,
	"Mt": 1e12,
	"Tg": 1e12,
	"Gt": 1e15,
	"Pg": 1e15,
}

// Registry converts between unit strings of the form "<mass>" or
// "<mass> <species> / <time>". Two units are compatible when everything but
// the mass token matches.
type Registry struct{}

// Default is the process-wide registry used by unit harmonization.
var Default = Registry{}

type unit struct {
	mass float64
	rest string // species and time part, "" for bare mass units
}

func parse(s string) (unit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return unit{}, errors.New("empty unit")
	}
	mass, rest, _ := strings.Cut(s, " ")
	m, ok := massGrams[mass]
	if !ok {
		return unit{}, fmt.Errorf("unknown mass unit %q in %q", mass, s)
	}
	return unit{mass: m, rest: strings.Join(strings.Fields(rest), " ")}, nil
}

// Factor returns the dimensionless factor converting a value in from into a
// value in to. It fails if either unit cannot be parsed or if the units
// differ in anything but their mass magnitude.
func (Registry) Factor(from, to string) (float64, error) {
	fu, err := parse(from)
	if err != nil {
		return 0, err
	}
	tu, err := parse(to)
	if err != nil {
		return 0, err
	}
	if fu.rest != tu.rest {
		return 0, fmt.Errorf("cannot convert %q to %q: %w", from, to, ErrIncompatible)
	}
	return fu.mass / tu.mass, nil
}

// Factor converts using the default registry.
func Factor(from, to string) (float64, error) {
	return Default.Factor(from, to)
}
