package ingest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openemissions/ghgdata/interchange"
)

func TestSpecCheck(t *testing.T) {
	t.Parallel()

	base := func() *Spec {
		return &Spec{
			CoordsCols: map[string]string{
				"area": "country", "entity": "gas", "unit": "unit",
			},
			CoordsDefaults: map[string]string{"category": "0"},
		}
	}

	t.Run("valid wide", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, base().check(false))
	})

	t.Run("mandatory dimension missing", func(t *testing.T) {
		t.Parallel()
		s := base()
		delete(s.CoordsCols, "entity")
		err := s.check(false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "entity")
	})

	t.Run("time required for long layout", func(t *testing.T) {
		t.Parallel()
		s := base()
		err := s.check(true)
		require.Error(t, err)
		require.Contains(t, err.Error(), "time")

		s.CoordsCols["time"] = "date"
		require.NoError(t, s.check(true))
	})

	t.Run("dimension in cols and defaults", func(t *testing.T) {
		t.Parallel()
		s := base()
		s.CoordsDefaults["area"] = "DEU"
		err := s.check(false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "area")
	})

	t.Run("column shared with additional coordinate", func(t *testing.T) {
		t.Parallel()
		s := base()
		s.AddCoordsCols = map[string]AddCoord{
			"category_name": {Column: "country", Dimension: "area"},
		}
		err := s.check(false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "country")
	})
}

func TestAdditionalCoordinateMetadata(t *testing.T) {
	t.Parallel()

	t.Run("linked to qualified dimension", func(t *testing.T) {
		t.Parallel()
		s := &Spec{
			CoordsCols:          map[string]string{"category": "class"},
			CoordsTerminologies: map[string]string{"category": "IPCC2006"},
			AddCoordsCols: map[string]AddCoord{
				"category_name": {Column: "class_name", Dimension: "category"},
			},
		}
		got, err := additionalCoordinateMetadata(s)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"category_name": "category (IPCC2006)"}, got)
	})

	t.Run("coordinate with terminology rejected", func(t *testing.T) {
		t.Parallel()
		s := &Spec{
			CoordsCols:          map[string]string{"category": "class"},
			CoordsTerminologies: map[string]string{"category_name": "names"},
			AddCoordsCols: map[string]AddCoord{
				"category_name": {Column: "class_name", Dimension: "category"},
			},
		}
		_, err := additionalCoordinateMetadata(s)
		require.Error(t, err)
		require.Contains(t, err.Error(), "terminology")
	})

	t.Run("unknown dimension rejected", func(t *testing.T) {
		t.Parallel()
		s := &Spec{
			CoordsCols: map[string]string{"category": "class"},
			AddCoordsCols: map[string]AddCoord{
				"model_name": {Column: "mname", Dimension: "model"},
			},
		}
		_, err := additionalCoordinateMetadata(s)
		require.Error(t, err)
		require.Contains(t, err.Error(), "model")
	})
}

func stepTable(t *testing.T) *interchange.Table {
	t.Helper()
	tb := interchange.NewTable()
	require.NoError(t, tb.AddColumn(&interchange.Column{Name: "country", Str: []string{"DEU", "DEU", "FRA"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{Name: "gas", Str: []string{"CO2", "CH4", "CO2"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{Name: "unit", Str: []string{"Gg", "Mg", "Mg"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{Name: "2010", Num: []float64{1, 2, 3000}}))
	return tb
}

func TestFilterData(t *testing.T) {
	t.Parallel()

	t.Run("keep", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{FilterKeep: map[string]Filter{
			"germany_co2": {"country": {"DEU"}, "gas": {"CO2"}},
			"france":      {"country": {"FRA"}},
		}}
		require.NoError(t, filterData(tb, spec))
		require.Equal(t, 2, tb.NumRows())
		require.Equal(t, []string{"DEU", "FRA"}, tb.Column("country").Str)
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{FilterRemove: map[string]Filter{
			"no_methane": {"gas": {"CH4"}},
		}}
		require.NoError(t, filterData(tb, spec))
		require.Equal(t, 2, tb.NumRows())
		require.Equal(t, []string{"CO2", "CO2"}, tb.Column("gas").Str)
	})

	t.Run("keep and remove combined", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{
			FilterKeep:   map[string]Filter{"germany": {"country": {"DEU"}}},
			FilterRemove: map[string]Filter{"no_methane": {"gas": {"CH4"}}},
		}
		require.NoError(t, filterData(tb, spec))
		require.Equal(t, 1, tb.NumRows())
		require.Equal(t, []string{"CO2"}, tb.Column("gas").Str)
	})

	t.Run("unknown filter column", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{FilterKeep: map[string]Filter{"bad": {"missing": {"x"}}}}
		require.Error(t, filterData(tb, spec))
	})

	t.Run("data column rejected", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{FilterRemove: map[string]Filter{"bad": {"2010": {"1"}}}}
		require.Error(t, filterData(tb, spec))
	})
}

func TestAddDimensionsFromDefaults(t *testing.T) {
	t.Parallel()

	t.Run("known and secondary dimensions", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{CoordsDefaults: map[string]string{
			"source":          "TEST2026",
			"sec_cats__Class": "TOTAL",
		}}
		require.NoError(t, addDimensionsFromDefaults(tb, spec, nil))
		require.Equal(t, []string{"TEST2026", "TEST2026", "TEST2026"}, tb.Column("source").Str)
		require.Equal(t, []string{"TOTAL", "TOTAL", "TOTAL"}, tb.Column("sec_cats__Class").Str)
	})

	t.Run("unknown dimension", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{CoordsDefaults: map[string]string{"bogus": "x"}}
		err := addDimensionsFromDefaults(tb, spec, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "bogus")
		require.Contains(t, err.Error(), SecCatsPrefix)
	})

	t.Run("additional allowed names", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{CoordsDefaults: map[string]string{"time": "2010"}}
		require.Error(t, addDimensionsFromDefaults(tb, spec, nil))
		tb = stepTable(t)
		require.NoError(t, addDimensionsFromDefaults(tb, spec, []string{"time"}))
	})
}

func TestRenameColumns(t *testing.T) {
	t.Parallel()

	tb := stepTable(t)
	require.NoError(t, tb.AddConstColumn("sec_cats__Class", "TOTAL"))
	require.NoError(t, tb.AddConstColumn("class_name", "Total emissions"))
	spec := &Spec{
		CoordsCols: map[string]string{
			"area":            "country",
			"entity":          "gas",
			"unit":            "unit",
			"sec_cats__Class": "sec_cats__Class",
		},
		CoordsDefaults: map[string]string{"category": "0"},
		CoordsTerminologies: map[string]string{
			"area":            "ISO3",
			"category":        "IPCC2006",
			"entity":          "primap2",
			"sec_cats__Class": "class",
		},
		Meta: map[string]string{"references": "doi:10.5281/test"},
	}
	require.NoError(t, tb.AddConstColumn("category", "0"))
	spec.AddCoordsCols = map[string]AddCoord{
		"category_name": {Column: "class_name", Dimension: "category"},
	}

	attrs, err := renameColumns(tb, spec)
	require.NoError(t, err)

	require.True(t, tb.HasColumn("area (ISO3)"))
	require.True(t, tb.HasColumn("category (IPCC2006)"))
	require.True(t, tb.HasColumn("entity (primap2)"))
	require.True(t, tb.HasColumn("unit"))
	require.True(t, tb.HasColumn("Class (class)"))
	require.True(t, tb.HasColumn("category_name"))
	require.False(t, tb.HasColumn("country"))

	require.Equal(t, "area (ISO3)", attrs.Area)
	require.Equal(t, "category (IPCC2006)", attrs.Cat)
	require.Equal(t, "primap2", attrs.EntityTerminology)
	require.Equal(t, []string{"Class (class)"}, attrs.SecCats)
	require.Equal(t, map[string]string{"references": "doi:10.5281/test"}, attrs.Meta)
}

func TestMapMetadata(t *testing.T) {
	t.Parallel()

	t.Run("literal", func(t *testing.T) {
		t.Parallel()
		tb := interchange.NewTable()
		require.NoError(t, tb.AddColumn(&interchange.Column{
			Name: "entity", Str: []string{"CO2", "CH4", "CO2"}}))
		spec := &Spec{ValueMapping: map[string]ValueMapping{
			"entity": Literal{"CO2": "carbon dioxide"},
		}}
		attrs := &interchange.Attrs{}
		require.NoError(t, mapMetadata(tb, spec, attrs))
		require.Equal(t, []string{"carbon dioxide", "CH4", "carbon dioxide"}, tb.Column("entity").Str)
	})

	t.Run("primap1 preset entity before unit", func(t *testing.T) {
		t.Parallel()
		tb := interchange.NewTable()
		require.NoError(t, tb.AddColumn(&interchange.Column{
			Name: "entity", Str: []string{"KYOTOGHGAR4", "CH4"}}))
		require.NoError(t, tb.AddColumn(&interchange.Column{
			Name: "unit", Str: []string{"GgCO2eq", "Mt"}}))
		require.NoError(t, tb.AddColumn(&interchange.Column{
			Name: "category", Str: []string{"IPC1A2", "IPCMAG"}}))
		spec := &Spec{ValueMapping: map[string]ValueMapping{
			"entity":   PRIMAP1,
			"unit":     PRIMAP1,
			"category": PRIMAP1,
		}}
		attrs := &interchange.Attrs{}
		require.NoError(t, mapMetadata(tb, spec, attrs))
		require.Equal(t, []string{"KYOTOGHG (AR4GWP100)", "CH4"}, tb.Column("entity").Str)
		require.Equal(t, []string{"Gg CO2 / yr", "Mt CH4 / yr"}, tb.Column("unit").Str)
		require.Equal(t, []string{"1.A.2", "M.AG"}, tb.Column("category").Str)
	})

	t.Run("mapping function with extra columns", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{ValueMapping: map[string]ValueMapping{
			"country": Func{
				Fn: func(values ...string) (string, error) {
					return values[0] + "-" + values[1], nil
				},
				ExtraCols: []string{"gas"},
			},
		}}
		attrs := &interchange.Attrs{}
		require.NoError(t, mapMetadata(tb, spec, attrs))
		require.Equal(t, []string{"DEU-CO2", "DEU-CH4", "FRA-CO2"}, tb.Column("country").Str)
	})

	t.Run("unknown preset", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{ValueMapping: map[string]ValueMapping{
			"gas": Preset("PRIMAP7"),
		}}
		err := mapMetadata(tb, spec, &interchange.Attrs{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "PRIMAP7")
	})

	t.Run("preset for unsupported column", func(t *testing.T) {
		t.Parallel()
		tb := stepTable(t)
		spec := &Spec{ValueMapping: map[string]ValueMapping{
			"country": PRIMAP1,
		}}
		require.Error(t, mapMetadata(tb, spec, &interchange.Attrs{}))
	})

	t.Run("alias resolution through attrs", func(t *testing.T) {
		t.Parallel()
		tb := interchange.NewTable()
		require.NoError(t, tb.AddColumn(&interchange.Column{
			Name: "area (ISO3)", Str: []string{"DEU"}}))
		spec := &Spec{ValueMapping: map[string]ValueMapping{
			"area": Literal{"DEU": "276"},
		}}
		attrs := &interchange.Attrs{Area: "area (ISO3)"}
		require.NoError(t, mapMetadata(tb, spec, attrs))
		require.Equal(t, []string{"276"}, tb.Column("area (ISO3)").Str)
	})
}

func TestFillFromOtherCol(t *testing.T) {
	t.Parallel()

	tb := stepTable(t)
	spec := &Spec{ValueFilling: []FillSpec{
		{Target: "country", Source: "gas", Mapping: map[string]string{"CH4": "MARKED"}},
	}}
	require.NoError(t, fillFromOtherCol(tb, spec, &interchange.Attrs{}))
	require.Equal(t, []string{"DEU", "MARKED", "FRA"}, tb.Column("country").Str)

	bad := &Spec{ValueFilling: []FillSpec{
		{Target: "missing", Source: "gas", Mapping: map[string]string{}},
	}}
	require.Error(t, fillFromOtherCol(tb, bad, &interchange.Attrs{}))
}

func TestHarmonizeUnits(t *testing.T) {
	t.Parallel()

	tb := interchange.NewTable()
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "entity", Str: []string{"CO2", "CO2", "CH4"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "unit", Str: []string{"Gg", "Mg", "Mg"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "2010", Num: []float64{1, 2000, 5}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "2011", Num: []float64{2, math.NaN(), 6}}))

	spec := &Spec{}
	require.NoError(t, harmonizeUnits(tb, &interchange.Attrs{}, spec.converter(), []string{"2010", "2011"}))

	// CO2 converts to its first-encountered unit, CH4 keeps its only unit
	require.Equal(t, []string{"Gg", "Gg", "Mg"}, tb.Column("unit").Str)
	require.Equal(t, 1.0, tb.Column("2010").Num[0])
	require.InEpsilon(t, 2.0, tb.Column("2010").Num[1], 1e-12)
	require.Equal(t, 5.0, tb.Column("2010").Num[2])
	require.True(t, math.IsNaN(tb.Column("2011").Num[1]))
}

func TestHarmonizeUnitsIncompatible(t *testing.T) {
	t.Parallel()

	tb := interchange.NewTable()
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "entity", Str: []string{"CO2", "CO2"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "unit", Str: []string{"Gg CO2 / yr", "Gg CH4 / yr"}}))
	require.NoError(t, tb.AddColumn(&interchange.Column{
		Name: "2010", Num: []float64{1, 2}}))

	spec := &Spec{}
	err := harmonizeUnits(tb, &interchange.Attrs{}, spec.converter(), []string{"2010"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "CO2")
}
