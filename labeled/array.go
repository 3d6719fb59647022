// Package labeled provides minimal labeled containers, a single
// multi-dimensional array and a dataset of arrays, implementing the
// collaborator contract the alias layer wraps: label-based selection and
// assignment, dimension-argument operations, and construction from a
// normalized interchange table. It is deliberately small; a full labeled
// array engine is outside this project's scope.
package labeled

import (
	"fmt"
	"math"

	"github.com/openemissions/ghgdata/alias"
)

// Array is a labeled multi-dimensional array: named axes in a fixed order,
// string labels along every axis, and float64 values in row-major order with
// NaN for missing.
type Array struct {
	Name string
	Unit string

	dims   []string
	coords map[string][]string
	data   []float64
}

// NewArray builds an array. coords must supply labels for every dim and the
// data length must match the coordinate grid.
func NewArray(name string, dims []string, coords map[string][]string, data []float64) (*Array, error) {
	size := 1
	for _, dim := range dims {
		labels, ok := coords[dim]
		if !ok || len(labels) == 0 {
			return nil, fmt.Errorf("no coordinates for dimension %q", dim)
		}
		size *= len(labels)
	}
	if size != len(data) {
		return nil, fmt.Errorf("array %q: %d values for a %d-cell coordinate grid", name, len(data), size)
	}
	cp := make(map[string][]string, len(coords))
	for dim, labels := range coords {
		cp[dim] = append([]string{}, labels...)
	}
	return &Array{Name: name, dims: append([]string{}, dims...), coords: cp, data: data}, nil
}

// DimNames returns the axis names in order.
func (a *Array) DimNames() []string { return append([]string{}, a.dims...) }

// Coords returns the labels along the named axis, or nil for an unknown axis.
func (a *Array) Coords(dim string) []string { return append([]string(nil), a.coords[dim]...) }

// Values returns the raw row-major values.
func (a *Array) Values() []float64 { return a.data }

// AliasTranslations derives the translation table from the axis names alone;
// dataset attributes are not available at the array level.
func (a *Array) AliasTranslations() alias.Translations {
	return alias.FromDims(a.dims)
}

func (a *Array) lens() []int {
	lens := make([]int, len(a.dims))
	for i, dim := range a.dims {
		lens[i] = len(a.coords[dim])
	}
	return lens
}

func (a *Array) strides() []int {
	lens := a.lens()
	strides := make([]int, len(lens))
	s := 1
	for i := len(lens) - 1; i >= 0; i-- {
		strides[i] = s
		s *= lens[i]
	}
	return strides
}

// axisSel is the per-axis result of resolving a selection: the kept label
// indices, and whether the axis is dropped (scalar selector).
type axisSel struct {
	keep []int
	drop bool
}

func (a *Array) resolveSelection(sel alias.Selection) ([]axisSel, error) {
	sels := make([]axisSel, len(a.dims))
	for i, dim := range a.dims {
		labels := a.coords[dim]
		all := make([]int, len(labels))
		for j := range labels {
			all[j] = j
		}
		sels[i] = axisSel{keep: all}
	}

	for key, value := range sel {
		axis := -1
		for i, dim := range a.dims {
			if dim == key {
				axis = i
				break
			}
		}
		if axis < 0 {
			return nil, &alias.DimensionNotExistingError{Dim: key}
		}

		var wanted []string
		drop := false
		switch v := value.(type) {
		case string:
			wanted = []string{v}
			drop = true
		case []string:
			wanted = v
		default:
			return nil, fmt.Errorf("unsupported selector %T for dimension %q", value, key)
		}

		var keep []int
		for _, w := range wanted {
			found := false
			for j, label := range a.coords[key] {
				if label == w {
					keep = append(keep, j)
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("label %q not found in dimension %q", w, key)
			}
		}
		sels[axis] = axisSel{keep: keep, drop: drop}
	}
	return sels, nil
}

// cellIndices iterates the selected cells in row-major order of the kept
// axes, calling fn with the flat index into the original data. An axis with
// no kept labels selects no cells at all.
func (a *Array) cellIndices(sels []axisSel, fn func(flat int)) {
	for i := range sels {
		if len(sels[i].keep) == 0 {
			return
		}
	}
	strides := a.strides()
	pos := make([]int, len(sels))
	for {
		flat := 0
		for i := range sels {
			flat += sels[i].keep[pos[i]] * strides[i]
		}
		fn(flat)

		axis := len(sels) - 1
		for axis >= 0 {
			pos[axis]++
			if pos[axis] < len(sels[axis].keep) {
				break
			}
			pos[axis] = 0
			axis--
		}
		if axis < 0 {
			return
		}
	}
}

// Sel selects by exact dimension names and labels. Scalar selectors drop
// their axis, list selectors keep it with the chosen labels.
func (a *Array) Sel(sel alias.Selection) (*Array, error) {
	sels, err := a.resolveSelection(sel)
	if err != nil {
		return nil, err
	}

	var dims []string
	coords := map[string][]string{}
	size := 1
	for i, dim := range a.dims {
		if sels[i].drop {
			continue
		}
		labels := make([]string, len(sels[i].keep))
		for j, idx := range sels[i].keep {
			labels[j] = a.coords[dim][idx]
		}
		dims = append(dims, dim)
		coords[dim] = labels
		size *= len(labels)
	}

	data := make([]float64, 0, size)
	a.cellIndices(sels, func(flat int) {
		data = append(data, a.data[flat])
	})

	// A fully scalar selection still yields a zero-dimensional array with
	// one value.
	out := &Array{Name: a.Name, Unit: a.Unit, dims: dims, coords: coords, data: data}
	return out, nil
}

// Loc selects like Sel, but alias-translates the selection keys first.
func (a *Array) Loc(sel alias.Selection) (*Array, error) {
	return a.Sel(alias.Selection(a.AliasTranslations().TranslateSelection(sel)))
}

// SetLoc assigns value to every cell matched by the alias-translated
// selection.
func (a *Array) SetLoc(sel alias.Selection, value float64) error {
	sels, err := a.resolveSelection(a.AliasTranslations().TranslateSelection(sel))
	if err != nil {
		return err
	}
	a.cellIndices(sels, func(flat int) {
		a.data[flat] = value
	})
	return nil
}

// Sum reduces over the given dimensions, which may be aliases; missing
// values are skipped. With no dimensions given, all axes are reduced.
func (a *Array) Sum(dims ...string) (*Array, error) {
	if len(dims) == 0 {
		dims = a.dims
	}
	resolved, err := alias.ResolveArgs(a, nil, dims...)
	if err != nil {
		return nil, err
	}
	reduce := make(map[string]bool, len(resolved))
	for _, dim := range resolved {
		reduce[dim] = true
	}

	var outDims []string
	outCoords := map[string][]string{}
	outSize := 1
	for _, dim := range a.dims {
		if reduce[dim] {
			continue
		}
		outDims = append(outDims, dim)
		outCoords[dim] = append([]string{}, a.coords[dim]...)
		outSize *= len(a.coords[dim])
	}

	out := make([]float64, outSize)
	lens := a.lens()
	outStrides := make([]int, len(a.dims))
	s := 1
	for i := len(a.dims) - 1; i >= 0; i-- {
		if reduce[a.dims[i]] {
			outStrides[i] = 0
			continue
		}
		outStrides[i] = s
		s *= lens[i]
	}

	pos := make([]int, len(a.dims))
	for flat := range a.data {
		if !math.IsNaN(a.data[flat]) {
			outFlat := 0
			for i := range pos {
				outFlat += pos[i] * outStrides[i]
			}
			out[outFlat] += a.data[flat]
		}
		for axis := len(pos) - 1; axis >= 0; axis-- {
			pos[axis]++
			if pos[axis] < lens[axis] {
				break
			}
			pos[axis] = 0
		}
	}

	return &Array{Name: a.Name, Unit: a.Unit, dims: outDims, coords: outCoords, data: out}, nil
}
