package interchange

// MandatoryColumns are the dimensions every conversion specification must
// cover, through source columns or defaults. Long-layout input additionally
// needs a "data" column and a "time" coordinate.
var MandatoryColumns = []string{"area", "category", "entity", "unit"}

// OptionalColumns are the further metadata columns recognized by the
// interchange format.
var OptionalColumns = []string{"source", "scenario", "provenance", "model"}

// ColumnOrder is the canonical priority order for metadata columns in a
// normalized table. A column matches an entry if it is equal to it or starts
// with "<entry> (" (terminology-qualified variant). Columns matching no entry
// are appended alphabetically, followed by the time columns in ascending
// order.
var ColumnOrder = []string{
	"area",
	"category",
	"scenario",
	"entity",
	"unit",
	"source",
	"provenance",
	"model",
}

// KnownColumn reports whether name is a recognized interchange-format
// metadata column.
func KnownColumn(name string) bool {
	for _, c := range MandatoryColumns {
		if name == c {
			return true
		}
	}
	for _, c := range OptionalColumns {
		if name == c {
			return true
		}
	}
	return false
}
