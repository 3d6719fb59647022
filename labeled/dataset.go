package labeled

import (
	"fmt"
	"math"
	"sort"

	"github.com/openemissions/ghgdata/alias"
	"github.com/openemissions/ghgdata/interchange"
)

// Dataset is a collection of labeled arrays, keyed by entity, sharing one
// attributes record.
type Dataset struct {
	Attrs  *interchange.Attrs
	arrays map[string]*Array
}

// NewDataset returns an empty dataset with the given attributes.
func NewDataset(attrs *interchange.Attrs) *Dataset {
	return &Dataset{Attrs: attrs, arrays: map[string]*Array{}}
}

// AddArray inserts an array under its name.
func (d *Dataset) AddArray(a *Array) error {
	if _, ok := d.arrays[a.Name]; ok {
		return fmt.Errorf("array %q already exists", a.Name)
	}
	d.arrays[a.Name] = a
	return nil
}

// ArrayNames returns the array names, sorted.
func (d *Dataset) ArrayNames() []string {
	names := make([]string, 0, len(d.arrays))
	for name := range d.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DimNames returns the union of all arrays' axis names, sorted.
func (d *Dataset) DimNames() []string {
	seen := map[string]bool{}
	var dims []string
	for _, a := range d.arrays {
		for _, dim := range a.dims {
			if !seen[dim] {
				seen[dim] = true
				dims = append(dims, dim)
			}
		}
	}
	sort.Strings(dims)
	return dims
}

// AliasTranslations derives the translation table from the dataset's
// attributes record.
func (d *Dataset) AliasTranslations() alias.Translations {
	return alias.FromAttrs(d.Attrs)
}

// Get returns the array stored under key, resolving dimension aliases in the
// key the same way selection does.
func (d *Dataset) Get(key string) (*Array, error) {
	resolved := d.AliasTranslations().Translate(key)
	a, ok := d.arrays[resolved]
	if !ok {
		return nil, fmt.Errorf("no array %q in dataset", resolved)
	}
	return a, nil
}

// Loc selects from every array, alias-translating the selection keys using
// the dataset attributes. Every key must be a dimension of the dataset;
// arrays lacking a selected dimension are passed through unchanged for the
// missing axes.
func (d *Dataset) Loc(sel alias.Selection) (*Dataset, error) {
	translated := d.AliasTranslations().TranslateSelection(sel)

	dims := map[string]bool{}
	for _, dim := range d.DimNames() {
		dims[dim] = true
	}
	for key := range translated {
		if !dims[key] {
			return nil, &alias.DimensionNotExistingError{Dim: key}
		}
	}

	out := NewDataset(d.Attrs)
	for _, name := range d.ArrayNames() {
		a := d.arrays[name]
		sub := alias.Selection{}
		for key, value := range translated {
			for _, dim := range a.dims {
				if dim == key {
					sub[key] = value
					break
				}
			}
		}
		selected, err := a.Sel(sub)
		if err != nil {
			return nil, fmt.Errorf("selecting from %q: %w", name, err)
		}
		out.arrays[name] = selected
	}
	return out, nil
}

// FromInterchange builds a dataset from a normalized interchange table: one
// array per entity, with the time columns as a "time" dimension and the
// remaining dimension columns as axes. The table must carry its metadata
// record and be unit-harmonized (one unit per entity).
func FromInterchange(t *interchange.Table) (*Dataset, error) {
	meta := t.Meta()
	if meta == nil {
		return nil, fmt.Errorf("table has no metadata attached")
	}

	entityCol := meta.Attrs.EntityColumn()
	entity := t.Column(entityCol)
	if entity == nil {
		return nil, fmt.Errorf("entity column %q does not exist", entityCol)
	}
	unit := t.Column("unit")
	if unit == nil {
		return nil, fmt.Errorf("unit column does not exist")
	}

	isDim := map[string]bool{}
	for _, dim := range meta.Dimensions {
		isDim[dim] = true
	}
	isAux := map[string]bool{}
	for aux := range meta.AdditionalCoordinates {
		isAux[aux] = true
	}

	var axes []string // dimension columns spanning each array, minus entity and unit
	var timeCols []string
	for _, name := range t.ColumnNames() {
		switch {
		case name == entityCol || name == "unit" || isAux[name]:
		case isDim[name]:
			axes = append(axes, name)
		default:
			timeCols = append(timeCols, name)
		}
	}
	sort.Strings(timeCols)

	ds := NewDataset(meta.Attrs)
	for _, name := range uniqueInOrder(entity.Str) {
		a, err := entityArray(t, name, entityCol, unit, axes, timeCols)
		if err != nil {
			return nil, err
		}
		if err := ds.AddArray(a); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func entityArray(t *interchange.Table, name, entityCol string, unit *interchange.Column, axes, timeCols []string) (*Array, error) {
	entity := t.Column(entityCol)

	var rows []int
	for i, e := range entity.Str {
		if e == name {
			rows = append(rows, i)
		}
	}

	dims := append(append([]string{}, axes...), "time")
	coords := map[string][]string{"time": timeCols}
	for _, axis := range axes {
		col := t.Column(axis)
		var labels []string
		for _, i := range rows {
			labels = append(labels, col.Str[i])
		}
		labels = uniqueInOrder(labels)
		sort.Strings(labels)
		coords[axis] = labels
	}

	size := len(timeCols)
	for _, axis := range axes {
		size *= len(coords[axis])
	}
	data := make([]float64, size)
	for i := range data {
		data[i] = math.NaN()
	}
	a := &Array{Name: name, Unit: unit.Str[rows[0]], dims: dims, coords: coords, data: data}

	strides := a.strides()
	for _, row := range rows {
		base := 0
		for i, axis := range axes {
			idx := labelIndex(coords[axis], t.Column(axis).Str[row])
			base += idx * strides[i]
		}
		for ti, tc := range timeCols {
			col := t.Column(tc)
			if col == nil || !col.IsData() {
				return nil, fmt.Errorf("time column %q is not a data column", tc)
			}
			a.data[base+ti*strides[len(axes)]] = col.Num[row]
		}
	}
	return a, nil
}

func labelIndex(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

func uniqueInOrder(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
