package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openemissions/ghgdata/interchange"
	"github.com/openemissions/ghgdata/primap1"
	"github.com/openemissions/ghgdata/units"
)

// filterData applies the keep and remove filters. A row survives when it
// matches at least one keep filter (or no keep filters are given) and no
// remove filter. Surviving rows are re-indexed contiguously.
func filterData(t *interchange.Table, spec *Spec) error {
	if len(spec.FilterKeep) == 0 && len(spec.FilterRemove) == 0 {
		return nil
	}
	keep := make([]bool, t.NumRows())
	for row := range keep {
		kept := len(spec.FilterKeep) == 0
		for _, name := range sortedKeys(spec.FilterKeep) {
			ok, err := spec.FilterKeep[name].matches(t, row)
			if err != nil {
				return fmt.Errorf("filter_keep %q: %w", name, err)
			}
			if ok {
				kept = true
				break
			}
		}
		if kept {
			for _, name := range sortedKeys(spec.FilterRemove) {
				ok, err := spec.FilterRemove[name].matches(t, row)
				if err != nil {
					return fmt.Errorf("filter_remove %q: %w", name, err)
				}
				if ok {
					kept = false
					break
				}
			}
		}
		keep[row] = kept
	}
	t.KeepRows(keep)
	return nil
}

// addDimensionsFromDefaults materializes every defaulted dimension as a
// constant column. additionalAllowed lists names valid beyond the known
// interchange columns, such as "time" in long layout.
func addDimensionsFromDefaults(t *interchange.Table, spec *Spec, additionalAllowed []string) error {
	allowed := map[string]bool{}
	for _, a := range additionalAllowed {
		allowed[a] = true
	}
	for _, coord := range sortedKeys(spec.CoordsDefaults) {
		if !interchange.KnownColumn(coord) && !allowed[coord] && !isSecCat(coord) {
			slog.Error("unknown dimension in coords_defaults", "dimension", coord)
			return fmt.Errorf(
				"%q given in coords_defaults is unknown, prefix with %q to add a secondary category",
				coord, SecCatsPrefix)
		}
		if err := t.AddConstColumn(coord, spec.CoordsDefaults[coord]); err != nil {
			return err
		}
	}
	return nil
}

// renameColumns renames the input columns to their dimension names, qualified
// with a terminology where one is declared, and builds the attributes record
// along the way: the qualified category, scenario and area names, the entity
// terminology, the secondary category list and the free-text metadata.
func renameColumns(t *interchange.Table, spec *Spec) (*interchange.Attrs, error) {
	attrs := &interchange.Attrs{}
	if len(spec.Meta) > 0 {
		attrs.Meta = make(map[string]string, len(spec.Meta))
		for k, v := range spec.Meta {
			attrs.Meta[k] = v
		}
	}

	rename := func(old, coord string) error {
		name := coord
		if term, ok := spec.CoordsTerminologies[coord]; ok {
			name = coord + " (" + term + ")"
		}
		if isSecCat(coord) {
			name = strings.TrimPrefix(name, SecCatsPrefix)
			attrs.SecCats = append(attrs.SecCats, name)
		}
		switch coord {
		case "category":
			attrs.Cat = name
		case "scenario":
			attrs.Scen = name
		case "area":
			attrs.Area = name
		case "entity":
			if term, ok := spec.CoordsTerminologies["entity"]; ok {
				attrs.EntityTerminology = term
			}
		}
		return t.Rename(old, name)
	}

	for _, coord := range sortedKeys(spec.CoordsCols) {
		if err := rename(spec.CoordsCols[coord], coord); err != nil {
			return nil, err
		}
	}
	for _, coord := range sortedKeys(spec.CoordsDefaults) {
		if err := rename(coord, coord); err != nil {
			return nil, err
		}
	}
	for _, coord := range sortedKeys(spec.AddCoordsCols) {
		if err := t.Rename(spec.AddCoordsCols[coord].Column, coord); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// mapMetadata rewrites metadata values per the value mapping. The entity
// column is mapped first: the unit preset depends on already-mapped entity
// names.
func mapMetadata(t *interchange.Table, spec *Spec, attrs *interchange.Attrs) error {
	if len(spec.ValueMapping) == 0 {
		return nil
	}
	var ordered []string
	if _, ok := spec.ValueMapping["entity"]; ok {
		ordered = append(ordered, "entity")
	}
	for _, dim := range sortedKeys(spec.ValueMapping) {
		if dim != "entity" {
			ordered = append(ordered, dim)
		}
	}

	aliases := attrs.DimTranslations(true)
	for _, dim := range ordered {
		if err := mapColumn(t, spec, attrs, aliases, dim, spec.ValueMapping[dim]); err != nil {
			return err
		}
	}
	return nil
}

func mapColumn(t *interchange.Table, spec *Spec, attrs *interchange.Attrs, aliases map[string]string, dim string, mapping ValueMapping) error {
	full := dim
	if f, ok := aliases[dim]; ok {
		full = f
	}
	col := t.Column(full)
	if col == nil {
		return fmt.Errorf("value mapping given for %q, but column %q does not exist", dim, full)
	}
	if col.IsData() {
		return fmt.Errorf("cannot map values of data column %q", full)
	}

	switch m := mapping.(type) {
	case Literal:
		for i, v := range col.Str {
			if mapped, ok := m[v]; ok {
				col.Str[i] = mapped
			}
		}
		return nil

	case Preset:
		if m != PRIMAP1 {
			slog.Error("unknown metadata mapping", "mapping", string(m), "column", dim)
			return fmt.Errorf("unknown metadata mapping %q for column %q", string(m), dim)
		}
		return applyPRIMAP1(t, attrs, dim, col)

	case Func:
		return applyMapFunc(t, aliases, dim, col, m)

	default:
		return fmt.Errorf("unsupported value mapping %T for column %q", mapping, dim)
	}
}

// applyPRIMAP1 resolves the PRIMAP1 preset per column: the category code
// translation for category, the GWP-aware entity translation for entity, and
// the entity-dependent unit translation for unit. Each distinct input is
// translated once.
func applyPRIMAP1(t *interchange.Table, attrs *interchange.Attrs, dim string, col *interchange.Column) error {
	switch dim {
	case "category":
		cache := map[string]string{}
		for i, v := range col.Str {
			mapped, ok := cache[v]
			if !ok {
				mapped = primap1.ConvertCategory(v)
				cache[v] = mapped
			}
			col.Str[i] = mapped
		}
	case "entity":
		cache := map[string]string{}
		for i, v := range col.Str {
			mapped, ok := cache[v]
			if !ok {
				mapped = primap1.ConvertEntity(v)
				cache[v] = mapped
			}
			col.Str[i] = mapped
		}
	case "unit":
		entity := t.Column(attrs.EntityColumn())
		if entity == nil {
			return fmt.Errorf("unit mapping %q needs the entity column %q", PRIMAP1, attrs.EntityColumn())
		}
		cache := map[[2]string]string{}
		for i, v := range col.Str {
			key := [2]string{v, entity.Str[i]}
			mapped, ok := cache[key]
			if !ok {
				mapped = primap1.ConvertUnit(v, entity.Str[i])
				cache[key] = mapped
			}
			col.Str[i] = mapped
		}
	default:
		slog.Error("unknown metadata mapping", "mapping", string(PRIMAP1), "column", dim)
		return fmt.Errorf("unknown metadata mapping %q for column %q", string(PRIMAP1), dim)
	}
	return nil
}

// applyMapFunc applies a mapping function over the distinct combinations of
// the target column and the declared extra columns, so repeated rows are
// translated only once.
func applyMapFunc(t *interchange.Table, aliases map[string]string, dim string, col *interchange.Column, m Func) error {
	extras := make([]*interchange.Column, len(m.ExtraCols))
	for i, extra := range m.ExtraCols {
		full := extra
		if f, ok := aliases[extra]; ok {
			full = f
		}
		c := t.Column(full)
		if c == nil {
			return fmt.Errorf("value mapping for %q uses column %q, which does not exist", dim, full)
		}
		if c.IsData() {
			return fmt.Errorf("value mapping for %q cannot use data column %q", dim, full)
		}
		extras[i] = c
	}

	cache := map[string]string{}
	args := make([]string, 1+len(extras))
	for i := range col.Str {
		args[0] = col.Str[i]
		for j, e := range extras {
			args[1+j] = e.Str[i]
		}
		key := strings.Join(args, "\x1f")
		mapped, ok := cache[key]
		if !ok {
			var err error
			mapped, err = m.Fn(args...)
			if err != nil {
				return fmt.Errorf("mapping value %q in column %q: %w", args[0], dim, err)
			}
			cache[key] = mapped
		}
		col.Str[i] = mapped
	}
	return nil
}

// fillFromOtherCol overwrites target column values from source column values
// according to each fill specification, in declared order.
func fillFromOtherCol(t *interchange.Table, spec *Spec, attrs *interchange.Attrs) error {
	aliases := attrs.DimTranslations(true)
	for _, fs := range spec.ValueFilling {
		target := fs.Target
		if f, ok := aliases[target]; ok {
			target = f
		}
		source := fs.Source
		if f, ok := aliases[source]; ok {
			source = f
		}
		tc := t.Column(target)
		sc := t.Column(source)
		if tc == nil || sc == nil {
			return fmt.Errorf("cannot fill %q from %q: column does not exist", target, source)
		}
		if tc.IsData() || sc.IsData() {
			return fmt.Errorf("cannot fill %q from %q: data columns cannot be filled", target, source)
		}
		for i, v := range sc.Str {
			if mapped, ok := fs.Mapping[v]; ok {
				tc.Str[i] = mapped
			}
		}
	}
	return nil
}

// harmonizeUnits converts every entity's values to a single unit: the unit
// first encountered for that entity, in row order. dataCols names the numeric
// value columns to scale.
func harmonizeUnits(t *interchange.Table, attrs *interchange.Attrs, conv units.Converter, dataCols []string) error {
	entity := t.Column(attrs.EntityColumn())
	if entity == nil {
		return fmt.Errorf("entity column %q does not exist", attrs.EntityColumn())
	}
	unit := t.Column("unit")
	if unit == nil {
		return fmt.Errorf("unit column does not exist")
	}
	data := make([]*interchange.Column, len(dataCols))
	for i, name := range dataCols {
		c := t.Column(name)
		if c == nil || !c.IsData() {
			return fmt.Errorf("column %q is not a data column", name)
		}
		data[i] = c
	}

	unitTo := map[string]string{}
	for row, e := range entity.Str {
		to, seen := unitTo[e]
		if !seen {
			unitTo[e] = unit.Str[row]
			continue
		}
		if unit.Str[row] == to {
			continue
		}
		factor, err := conv.Factor(unit.Str[row], to)
		if err != nil {
			return fmt.Errorf("harmonizing units for entity %q: %w", e, err)
		}
		for _, c := range data {
			c.Num[row] *= factor
		}
		unit.Str[row] = to
	}
	return nil
}
