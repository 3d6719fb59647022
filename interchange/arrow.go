package interchange

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowRecord exports the table as an Arrow record: metadata columns become
// string fields, data columns float64 fields with NaN mapped to null. The
// attached Metadata record, if any, is carried as schema metadata under the
// "interchange_format" key, JSON-encoded. The caller owns the returned record
// and must Release it.
func (t *Table) ArrowRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	fields := make([]arrow.Field, len(t.cols))
	for i, c := range t.cols {
		var typ arrow.DataType = arrow.BinaryTypes.String
		if c.IsData() {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields[i] = arrow.Field{Name: c.Name, Type: typ, Nullable: c.IsData()}
	}

	var md arrow.Metadata
	if t.meta != nil {
		enc, err := json.Marshal(metaJSON(t.meta))
		if err != nil {
			return nil, fmt.Errorf("encoding table metadata: %w", err)
		}
		md = arrow.NewMetadata([]string{"interchange_format"}, []string{string(enc)})
	}
	schema := arrow.NewSchema(fields, &md)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range t.cols {
		if c.IsData() {
			fb := b.Field(i).(*array.Float64Builder)
			for _, v := range c.Num {
				if math.IsNaN(v) {
					fb.AppendNull()
				} else {
					fb.Append(v)
				}
			}
		} else {
			sb := b.Field(i).(*array.StringBuilder)
			for _, v := range c.Str {
				sb.Append(v)
			}
		}
	}

	return b.NewRecord(), nil
}

// metaJSON mirrors the interchange format's on-disk metadata layout:
// {"attrs": {...}, "time_format": ..., "dimensions": {"*": [...]},
// "additional_coordinates": {...}}.
func metaJSON(m *Metadata) map[string]any {
	attrs := map[string]any{}
	if m.Attrs != nil {
		if m.Attrs.Cat != "" {
			attrs["cat"] = m.Attrs.Cat
		}
		if m.Attrs.Scen != "" {
			attrs["scen"] = m.Attrs.Scen
		}
		if m.Attrs.Area != "" {
			attrs["area"] = m.Attrs.Area
		}
		if m.Attrs.EntityTerminology != "" {
			attrs["entity_terminology"] = m.Attrs.EntityTerminology
		}
		if len(m.Attrs.SecCats) > 0 {
			attrs["sec_cats"] = m.Attrs.SecCats
		}
		for k, v := range m.Attrs.Meta {
			attrs[k] = v
		}
	}
	out := map[string]any{
		"attrs":       attrs,
		"time_format": m.TimeFormat,
		"dimensions":  map[string][]string{"*": m.Dimensions},
	}
	if len(m.AdditionalCoordinates) > 0 {
		out["additional_coordinates"] = m.AdditionalCoordinates
	}
	return out
}
