package interchange

import "strings"

// Attrs is the dataset-wide attributes record built up during ingestion. The
// Cat, Scen and Area fields hold the full, terminology-qualified dimension
// names (e.g. "category (IPCC2006)"); empty means the dimension carries no
// terminology. SecCats lists the secondary category dimensions by their full
// names. Meta holds free-text metadata such as title, references, rights,
// contact, comment, institution and history.
type Attrs struct {
	Cat               string
	Scen              string
	Area              string
	EntityTerminology string
	SecCats           []string
	Meta              map[string]string
}

// EntityColumn returns the name of the entity column: "entity" or
// "entity (<terminology>)" when an entity terminology is recorded.
func (a *Attrs) EntityColumn() string {
	if a != nil && a.EntityTerminology != "" {
		return "entity (" + a.EntityTerminology + ")"
	}
	return "entity"
}

// DimTranslations maps base dimension names to the full column names recorded
// in the attributes: category, scenario and area to their qualified names,
// every secondary category short name to its full name, and, if includeEntity
// is set, entity to its terminology-qualified name.
func (a *Attrs) DimTranslations(includeEntity bool) map[string]string {
	tr := map[string]string{}
	if a == nil {
		return tr
	}
	if a.Cat != "" {
		tr["category"] = a.Cat
	}
	if a.Scen != "" {
		tr["scenario"] = a.Scen
	}
	if a.Area != "" {
		tr["area"] = a.Area
	}
	if includeEntity && a.EntityTerminology != "" {
		tr["entity"] = a.EntityColumn()
	}
	for _, full := range a.SecCats {
		if short, ok := ShortName(full); ok {
			tr[short] = full
		}
	}
	return tr
}

// ShortName splits a terminology-qualified name like "area (ISO3)" into its
// short alias "area". ok is false if the name carries no terminology.
func ShortName(full string) (short string, ok bool) {
	i := strings.Index(full, " (")
	if i < 0 {
		return "", false
	}
	return full[:i], true
}

// Metadata is the record attached to a normalized table: the attributes, the
// strftime-style time format of the data column headers, the ordered list of
// dimension column names (the "*" entry, excluding auxiliary coordinates) and
// the auxiliary coordinate linkage, if any were declared.
type Metadata struct {
	Attrs                 *Attrs
	TimeFormat            string
	Dimensions            []string
	AdditionalCoordinates map[string]string
}
