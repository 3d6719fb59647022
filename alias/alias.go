// Package alias translates short dimension names ("area") into the full,
// terminology-qualified axis names used by labeled containers
// ("area (ISO3)"), so that selection operations can be written with the
// convenient short forms.
//
// A Translations table is built from the container being indexed: FromDims
// derives it from the axis names of a single array, FromAttrs from the
// attributes record of a dataset. Resolution happens immediately before an
// operation runs, against the container's state at that moment.
package alias

import (
	"fmt"

	"github.com/openemissions/ghgdata/interchange"
)

// Translations maps short dimension aliases to full dimension names.
type Translations map[string]string

// Selection maps dimension names to selector values (a single label or a
// list of labels).
type Selection map[string]any

// DimensionNotExistingError reports a dimension name that, after alias
// resolution, is not an axis of the container.
type DimensionNotExistingError struct {
	Dim string
}

func (e *DimensionNotExistingError) Error() string {
	return fmt.Sprintf("dimension %q does not exist", e.Dim)
}

// FromDims derives a translation table purely from axis names: every name
// containing " (" maps its short prefix to the full name. This is all that is
// available at the single-array level, where dataset attributes are out of
// reach.
func FromDims(dims []string) Translations {
	tr := Translations{}
	for _, dim := range dims {
		if short, ok := interchange.ShortName(dim); ok {
			tr[short] = dim
		}
	}
	return tr
}

// FromAttrs derives a translation table from a dataset's attributes record:
// category, scenario and area map to their recorded qualified names, and
// every secondary category short name maps to its full name.
func FromAttrs(a *interchange.Attrs) Translations {
	return Translations(a.DimTranslations(false))
}

// Translate substitutes a single name through the table, returning it
// unchanged when no translation exists.
func (tr Translations) Translate(name string) string {
	if full, ok := tr[name]; ok {
		return full
	}
	return name
}

// TranslateSelection returns a new selection with every key substituted
// through the table. Selector values are untouched.
func (tr Translations) TranslateSelection(sel Selection) Selection {
	out := make(Selection, len(sel))
	for key, value := range sel {
		out[tr.Translate(key)] = value
	}
	return out
}

// Resolve translates dim and validates that the result is one of the allowed
// dimension names.
func Resolve(dim string, tr Translations, allowed []string) (string, error) {
	resolved := tr.Translate(dim)
	for _, a := range allowed {
		if resolved == a {
			return resolved, nil
		}
	}
	return "", &DimensionNotExistingError{Dim: resolved}
}

// ResolveDims resolves each name independently, preserving order.
func ResolveDims(dims []string, tr Translations, allowed []string) ([]string, error) {
	out := make([]string, 0, len(dims))
	for _, dim := range dims {
		resolved, err := Resolve(dim, tr, allowed)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// Container is a labeled container whose operations take dimension
// arguments: a single array or a dataset of arrays.
type Container interface {
	// DimNames returns the container's axis names.
	DimNames() []string

	// AliasTranslations returns the container's translation table.
	AliasTranslations() Translations
}

// ResolveArgs resolves the dimension arguments of a container operation. It
// fetches the translation table and the axis names from the container at
// call time; extraAllowed lists additional values that are valid even though
// they are not axes (e.g. a reduce-over-everything marker).
func ResolveArgs(c Container, extraAllowed []string, dims ...string) ([]string, error) {
	allowed := append(append([]string{}, c.DimNames()...), extraAllowed...)
	return ResolveDims(dims, c.AliasTranslations(), allowed)
}
