// Package ingest converts heterogeneous tabular CSV input into the
// normalized interchange format. Input comes in wide layout (one column per
// time point) or long layout (a single data column plus a time column);
// conversion filters rows, renames and terminology-qualifies columns, maps
// and fills metadata values, harmonizes units per entity, pivots long data,
// and sorts columns and rows into canonical order.
//
// All failures are synchronous specification or input errors; a conversion
// either produces a complete normalized table or aborts without partial
// results.
package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/openemissions/ghgdata/interchange"
	"github.com/openemissions/ghgdata/units"
)

// SecCatsPrefix namespaces secondary category dimensions in conversion
// specifications. The prefix is stripped from the stored column name.
const SecCatsPrefix = "sec_cats__"

// AddCoord declares an auxiliary coordinate: Column is the input column it
// is read from, Dimension the dimension it belongs to (e.g. a category_name
// coordinate belonging to the category dimension). Auxiliary coordinates are
// not dimensions themselves.
type AddCoord struct {
	Column    string
	Dimension string
}

// Filter is a set of column conditions, ANDed: a row matches when every
// named column's value is among the listed values.
type Filter map[string][]string

func (f Filter) matches(t *interchange.Table, row int) (bool, error) {
	for column, values := range f {
		c := t.Column(column)
		if c == nil {
			return false, fmt.Errorf("filter column %q not found", column)
		}
		if c.IsData() {
			return false, fmt.Errorf("cannot filter on data column %q", column)
		}
		found := false
		for _, v := range values {
			if c.Str[row] == v {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// MapFunc computes the mapped value for the first argument; further
// arguments carry the declared extra columns' values for the same row.
type MapFunc func(values ...string) (string, error)

// ValueMapping describes how a column's metadata values are rewritten:
// Literal, Func or Preset.
type ValueMapping interface {
	valueMapping()
}

// Literal is a direct value-to-value substitution over a column; values
// without an entry stay unchanged.
type Literal map[string]string

func (Literal) valueMapping() {}

// Func applies Fn over the distinct combinations of the target column and
// the ExtraCols values, so redundant computation over repeated rows is
// avoided.
type Func struct {
	Fn        MapFunc
	ExtraCols []string
}

func (Func) valueMapping() {}

// Preset names a built-in mapping rule, resolved per column name.
type Preset string

func (Preset) valueMapping() {}

// PRIMAP1 translates PRIMAP1 metadata to PRIMAP2: the IPCC category code for
// the category column, the GWP-aware entity name for the entity column, and
// the entity-dependent unit string for the unit column.
const PRIMAP1 Preset = "PRIMAP1"

// FillSpec sets the target column from the source column: every row whose
// source value has an entry in Mapping gets the target value replaced. Fill
// specs are applied in declared order and may overwrite each other.
type FillSpec struct {
	Target  string
	Source  string
	Mapping map[string]string
}

// Spec is a conversion specification. Dimension names are the base names
// without terminology ("area", not "area (ISO3)"); secondary categories use
// the sec_cats__ prefix.
type Spec struct {
	// CoordsCols maps dimensions to input column names. Long layout uses
	// the "data" key for the value column and the "time" key for the time
	// column.
	CoordsCols map[string]string

	// AddCoordsCols declares auxiliary coordinates by name.
	AddCoordsCols map[string]AddCoord

	// CoordsDefaults gives dimensions not present as input columns a single
	// constant value.
	CoordsDefaults map[string]string

	// CoordsTerminologies maps dimensions to their categorization scheme,
	// qualified into the column name as "<dim> (<terminology>)".
	CoordsTerminologies map[string]string

	// ValueMapping rewrites metadata values per dimension.
	ValueMapping map[string]ValueMapping

	// ValueFilling sets values in one column based on another column.
	ValueFilling []FillSpec

	// FilterKeep keeps the rows matching at least one named filter;
	// empty keeps all rows. Filtering runs before renaming, so conditions
	// use input column names and original values.
	FilterKeep map[string]Filter

	// FilterRemove removes the rows matching at least one named filter.
	FilterRemove map[string]Filter

	// Meta is free-text dataset metadata (title, references, rights,
	// contact, comment, institution, history).
	Meta map[string]string

	// TimeFormat is the strftime-style format of the time information.
	// Default: "%Y" for wide layout, "%Y-%m-%d" for long layout.
	TimeFormat string

	// TimeCols explicitly lists the wide-layout time columns; when empty
	// they are detected by matching column headers against TimeFormat.
	TimeCols []string

	// Units resolves conversion factors during unit harmonization.
	// Default: the units package's default registry.
	Units units.Converter
}

func (s *Spec) converter() units.Converter {
	if s.Units != nil {
		return s.Units
	}
	return units.Default
}

// check validates the specification before any row processing.
func (s *Spec) check(longLayout bool) error {
	mandatory := append([]string{}, interchange.MandatoryColumns...)
	if longLayout {
		mandatory = append(mandatory, "time")
	}
	for _, coord := range mandatory {
		_, inCols := s.CoordsCols[coord]
		_, inDefaults := s.CoordsDefaults[coord]
		if !inCols && !inDefaults {
			slog.Error("mandatory dimension not found in specification",
				"dimension", coord, "coords_cols", s.CoordsCols, "coords_defaults", s.CoordsDefaults)
			return fmt.Errorf("mandatory dimension %q not defined", coord)
		}
	}

	var both []string
	for coord := range s.CoordsCols {
		if _, ok := s.CoordsDefaults[coord]; ok {
			both = append(both, coord)
		}
	}
	if len(both) > 0 {
		sort.Strings(both)
		slog.Error("dimensions given in both coords_cols and coords_defaults", "dimensions", both)
		return fmt.Errorf("%v given in coords_cols and coords_defaults, but must only be given in one of them", both)
	}

	if len(s.AddCoordsCols) > 0 {
		dimCols := map[string]bool{}
		for _, col := range s.CoordsCols {
			dimCols[col] = true
		}
		var overlap []string
		for _, ac := range s.AddCoordsCols {
			if dimCols[ac.Column] {
				overlap = append(overlap, ac.Column)
			}
		}
		if len(overlap) > 0 {
			sort.Strings(overlap)
			slog.Error("columns used for both dimensions and additional coordinates", "columns", overlap)
			return fmt.Errorf("columns %v given in coords_cols and add_coords_cols, but should be used in only one of them", overlap)
		}
	}
	return nil
}

// additionalCoordinateMetadata builds the additional_coordinates attribute
// and checks the auxiliary coordinate configuration.
func additionalCoordinateMetadata(s *Spec) (map[string]string, error) {
	if len(s.AddCoordsCols) == 0 {
		return nil, nil
	}
	out := map[string]string{}
	for _, coord := range sortedKeys(s.AddCoordsCols) {
		ac := s.AddCoordsCols[coord]
		if _, ok := s.CoordsTerminologies[coord]; ok {
			slog.Error("additional coordinate has terminology definition", "coordinate", coord)
			return nil, fmt.Errorf("additional coordinate %q has terminology definition, which is not supported", coord)
		}
		if _, ok := s.CoordsCols[ac.Dimension]; !ok {
			slog.Error("additional coordinate refers to unknown coordinate",
				"coordinate", coord, "dimension", ac.Dimension)
			return nil, fmt.Errorf("additional coordinate %q refers to unknown coordinate %q", coord, ac.Dimension)
		}
		if term, ok := s.CoordsTerminologies[ac.Dimension]; ok {
			out[coord] = ac.Dimension + " (" + term + ")"
		} else {
			out[coord] = ac.Dimension
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSecCat(coord string) bool { return strings.HasPrefix(coord, SecCatsPrefix) }
