package ingest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/openemissions/ghgdata/interchange"
	"github.com/openemissions/ghgdata/logging"
)

// ConvertWide runs the conversion pipeline over a wide-layout table already
// in memory: time columns hold the numeric values, every other column is
// metadata. Time columns are taken from the specification, or detected by
// matching column names against the time format. The result is a normalized
// interchange table: metadata columns in canonical order, time columns
// ascending, rows sorted, metadata record attached.
func ConvertWide(t *interchange.Table, spec Spec) (*interchange.Table, error) {
	if spec.TimeFormat == "" {
		spec.TimeFormat = "%Y"
	}
	if err := spec.check(false); err != nil {
		return nil, err
	}
	timeCols := spec.TimeCols
	if len(timeCols) == 0 {
		for _, name := range t.ColumnNames() {
			if matchesTimeFormat(name, spec.TimeFormat) {
				timeCols = append(timeCols, name)
			}
		}
	}
	return convertWide(t, &spec, timeCols)
}

func convertWide(t *interchange.Table, spec *Spec, timeCols []string) (*interchange.Table, error) {
	if err := filterData(t, spec); err != nil {
		return nil, err
	}
	if err := addDimensionsFromDefaults(t, spec, nil); err != nil {
		return nil, err
	}
	attrs, err := renameColumns(t, spec)
	if err != nil {
		return nil, err
	}
	if err := mapMetadata(t, spec, attrs); err != nil {
		return nil, err
	}
	if err := fillFromOtherCol(t, spec, attrs); err != nil {
		return nil, err
	}
	if err := harmonizeUnits(t, attrs, spec.converter(), timeCols); err != nil {
		return nil, err
	}
	return finishTable(t, spec, attrs, timeCols)
}

// ReadWideCSV converts a wide-layout CSV (one column per time point) into a
// normalized interchange table. See ConvertWide.
func ReadWideCSV(r io.Reader, spec Spec) (*interchange.Table, error) {
	if spec.TimeFormat == "" {
		spec.TimeFormat = "%Y"
	}
	if err := spec.check(false); err != nil {
		return nil, err
	}
	t, timeCols, err := readWideCSV(r, &spec)
	if err != nil {
		return nil, err
	}
	return convertWide(t, &spec, timeCols)
}

// ReadWideCSVFile converts the wide-layout CSV at path. See ReadWideCSV.
func ReadWideCSVFile(path string, spec Spec) (*interchange.Table, error) {
	log := logging.WithFields("source", path, "layout", "wide")
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadWideCSV(f, spec)
	if err != nil {
		return nil, err
	}
	log.Info("converted CSV", "rows", t.NumRows(), "columns", t.NumColumns())
	return t, nil
}

// ConvertLong runs the conversion pipeline over a long-layout table already
// in memory. The coords_cols "data" and "time" keys name the value and time
// columns; units are harmonized per entity before the data is pivoted to one
// column per time point.
func ConvertLong(t *interchange.Table, spec Spec) (*interchange.Table, error) {
	if spec.TimeFormat == "" {
		spec.TimeFormat = "%Y-%m-%d"
	}
	if err := spec.check(true); err != nil {
		return nil, err
	}
	return convertLong(t, &spec)
}

func convertLong(t *interchange.Table, spec *Spec) (*interchange.Table, error) {
	if err := filterData(t, spec); err != nil {
		return nil, err
	}
	if err := addDimensionsFromDefaults(t, spec, []string{"time"}); err != nil {
		return nil, err
	}
	attrs, err := renameColumns(t, spec)
	if err != nil {
		return nil, err
	}
	if err := mapMetadata(t, spec, attrs); err != nil {
		return nil, err
	}
	if err := fillFromOtherCol(t, spec, attrs); err != nil {
		return nil, err
	}
	if err := harmonizeUnits(t, attrs, spec.converter(), []string{"data"}); err != nil {
		return nil, err
	}
	wide, timeCols, err := longToWide(t, spec)
	if err != nil {
		return nil, err
	}
	return finishTable(wide, spec, attrs, timeCols)
}

// ReadLongCSV converts a long-layout CSV (one data column, one time column)
// into a normalized interchange table. See ConvertLong.
func ReadLongCSV(r io.Reader, spec Spec) (*interchange.Table, error) {
	if spec.TimeFormat == "" {
		spec.TimeFormat = "%Y-%m-%d"
	}
	if err := spec.check(true); err != nil {
		return nil, err
	}
	t, err := readLongCSV(r, &spec)
	if err != nil {
		return nil, err
	}
	return convertLong(t, &spec)
}

// ReadLongCSVFile converts the long-layout CSV at path. See ReadLongCSV.
func ReadLongCSVFile(path string, spec Spec) (*interchange.Table, error) {
	log := logging.WithFields("source", path, "layout", "long")
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadLongCSV(f, spec)
	if err != nil {
		return nil, err
	}
	log.Info("converted CSV", "rows", t.NumRows(), "columns", t.NumColumns())
	return t, nil
}

// finishTable sorts columns and rows into canonical order and attaches the
// metadata record. Auxiliary coordinates are sorted like dimension columns
// but excluded from the dimensions attribute.
func finishTable(t *interchange.Table, spec *Spec, attrs *interchange.Attrs, timeCols []string) (*interchange.Table, error) {
	isTime := make(map[string]bool, len(timeCols))
	for _, tc := range timeCols {
		isTime[tc] = true
	}
	var metaCols []string
	for _, name := range t.ColumnNames() {
		if !isTime[name] {
			metaCols = append(metaCols, name)
		}
	}

	colsSorted, err := interchange.SortColumnsAndRows(t, metaCols)
	if err != nil {
		return nil, err
	}

	addCoords, err := additionalCoordinateMetadata(spec)
	if err != nil {
		return nil, err
	}
	var dims []string
	for _, name := range colsSorted {
		if _, ok := addCoords[name]; !ok {
			dims = append(dims, name)
		}
	}

	t.SetMeta(&interchange.Metadata{
		Attrs:                 attrs,
		TimeFormat:            spec.TimeFormat,
		Dimensions:            dims,
		AdditionalCoordinates: addCoords,
	})
	return t, nil
}

// longToWide pivots a harmonized long table into wide layout: one row per
// distinct metadata combination (unit excluded, it follows the combination),
// one numeric column per distinct time point, missing cells NaN. Time values
// are reparsed and reformatted so equivalent spellings land in one column.
func longToWide(t *interchange.Table, spec *Spec) (*interchange.Table, []string, error) {
	timeCol := t.Column("time")
	if timeCol == nil || timeCol.IsData() {
		return nil, nil, fmt.Errorf("time column missing or not a metadata column")
	}
	dataCol := t.Column("data")
	if dataCol == nil || !dataCol.IsData() {
		return nil, nil, fmt.Errorf("data column missing or not numeric")
	}
	unitCol := t.Column("unit")
	if unitCol == nil {
		return nil, nil, fmt.Errorf("unit column does not exist")
	}

	var keyCols []*interchange.Column
	for _, name := range t.ColumnNames() {
		if name == "time" || name == "data" || name == "unit" {
			continue
		}
		c := t.Column(name)
		if c.IsData() {
			return nil, nil, fmt.Errorf("unexpected data column %q in long layout", name)
		}
		keyCols = append(keyCols, c)
	}

	headers := make([]string, t.NumRows())
	for i, raw := range timeCol.Str {
		parsed, err := parseTime(raw, spec.TimeFormat)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing time value %q: %w", raw, err)
		}
		headers[i], err = formatTime(parsed, spec.TimeFormat)
		if err != nil {
			return nil, nil, err
		}
	}

	type group struct {
		values []string // key column values, in key column order
		unit   string
		cells  map[string]float64
	}
	groups := map[string]*group{}
	var order []string
	timeSeen := map[string]bool{}
	var timeCols []string

	parts := make([]string, len(keyCols))
	for row := 0; row < t.NumRows(); row++ {
		for i, c := range keyCols {
			parts[i] = c.Str[row]
		}
		key := strings.Join(parts, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{
				values: append([]string{}, parts...),
				unit:   unitCol.Str[row],
				cells:  map[string]float64{},
			}
			groups[key] = g
			order = append(order, key)
		}
		h := headers[row]
		if _, dup := g.cells[h]; dup {
			return nil, nil, fmt.Errorf(
				"duplicate value for time %q and metadata combination %v", h, g.values)
		}
		g.cells[h] = dataCol.Num[row]
		if !timeSeen[h] {
			timeSeen[h] = true
			timeCols = append(timeCols, h)
		}
	}
	sort.Strings(timeCols)

	out := interchange.NewTable()
	for i, c := range keyCols {
		vals := make([]string, len(order))
		for j, key := range order {
			vals[j] = groups[key].values[i]
		}
		if err := out.AddColumn(&interchange.Column{Name: c.Name, Str: vals}); err != nil {
			return nil, nil, err
		}
	}
	units := make([]string, len(order))
	for j, key := range order {
		units[j] = groups[key].unit
	}
	if err := out.AddColumn(&interchange.Column{Name: "unit", Str: units}); err != nil {
		return nil, nil, err
	}
	for _, h := range timeCols {
		vals := make([]float64, len(order))
		for j, key := range order {
			if v, ok := groups[key].cells[h]; ok {
				vals[j] = v
			} else {
				vals[j] = math.NaN()
			}
		}
		if err := out.AddColumn(&interchange.Column{Name: h, Num: vals}); err != nil {
			return nil, nil, err
		}
	}
	return out, timeCols, nil
}
