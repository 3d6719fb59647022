package interchange

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestArrowRecord(t *testing.T) {
	t.Parallel()

	tb := NewTable()
	require.NoError(t, tb.AddColumn(&Column{Name: "area (ISO3)", Str: []string{"DEU", "FRA"}}))
	require.NoError(t, tb.AddColumn(&Column{Name: "2010", Num: []float64{1.5, math.NaN()}}))
	tb.SetMeta(&Metadata{
		Attrs:      &Attrs{Area: "area (ISO3)"},
		TimeFormat: "%Y",
		Dimensions: []string{"area (ISO3)"},
	})

	rec, err := tb.ArrowRecord(memory.NewGoAllocator())
	require.NoError(t, err)
	defer rec.Release()

	require.EqualValues(t, 2, rec.NumRows())
	require.EqualValues(t, 2, rec.NumCols())

	schema := rec.Schema()
	require.Equal(t, "area (ISO3)", schema.Field(0).Name)
	require.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, schema.Field(0).Type))
	require.Equal(t, "2010", schema.Field(1).Name)
	require.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, schema.Field(1).Type))

	md := schema.Metadata()
	idx := md.FindKey("interchange_format")
	require.GreaterOrEqual(t, idx, 0)
	require.Contains(t, md.Values()[idx], `"time_format":"%Y"`)
	require.Contains(t, md.Values()[idx], `"area (ISO3)"`)

	areas := rec.Column(0).(*array.String)
	require.Equal(t, "DEU", areas.Value(0))
	require.Equal(t, "FRA", areas.Value(1))

	vals := rec.Column(1).(*array.Float64)
	require.Equal(t, 1.5, vals.Value(0))
	require.True(t, vals.IsNull(1))
}

func TestArrowRecordWithoutMetadata(t *testing.T) {
	t.Parallel()

	tb := NewTable()
	require.NoError(t, tb.AddColumn(&Column{Name: "entity", Str: []string{"CO2"}}))

	rec, err := tb.ArrowRecord(nil)
	require.NoError(t, err)
	defer rec.Release()

	require.EqualValues(t, 1, rec.NumRows())
	require.Equal(t, -1, rec.Schema().Metadata().FindKey("interchange_format"))
}
