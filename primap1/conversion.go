// Package primap1 translates PRIMAP1 metadata values (IPCC category codes,
// entity names, unit strings) into their PRIMAP2 equivalents. It backs the
// built-in "PRIMAP1" value-mapping preset of the ingestion pipeline.
//
// Values that cannot be parsed are not fatal: following the original
// behavior, they are returned as "error_<value>" and a warning is logged, so
// broken rows stay identifiable in the output instead of aborting a whole
// conversion.
package primap1

import (
	"log/slog"
	"strings"
)

// massPrefixes are the mass tokens recognized in PRIMAP1 unit strings.
var massPrefixes = map[string]bool{
	"g": true, "kg": true, "t": true, "Mg": true, "kt": true,
	"Gg": true, "Mt": true, "Tg": true, "Gt": true, "Pg": true,
}

// specialCategories maps the non-hierarchical PRIMAP1 "M" codes to their
// PRIMAP2 form.
var specialCategories = map[string]string{
	"MAG":      "M.AG",
	"MAGELV":   "M.AG.ELV",
	"MBK":      "M.BK",
	"MBKA":     "M.BK.A",
	"MBKM":     "M.BK.M",
	"MLULUCF":  "M.LULUCF",
	"MMULTIOP": "M.MULTIOP",
	"M0EL":     "M.0.EL",
}

// gwpEntities are the PRIMAP1 entities that denote CO2-equivalent baskets and
// therefore carry a global warming potential qualifier in PRIMAP2.
var gwpEntities = map[string]bool{
	"KYOTOGHG": true,
	"FGASES":   true,
	"HFCS":     true,
	"PFCS":     true,
}

// gwpSuffixes maps PRIMAP1 entity name suffixes to PRIMAP2 GWP specifiers.
// Entities without a suffix use the SAR values.
var gwpSuffixes = []struct{ suffix, gwp string }{
	{"AR4", "AR4GWP100"},
	{"AR5", "AR5GWP100"},
	{"SAR", "SARGWP100"},
}

// ConvertCategory translates a PRIMAP1 IPCC category code ("IPC1A2", "CAT0",
// "IPCMAG") into PRIMAP2 form ("1.A.2", "0", "M.AG"). Unparsable codes are
// returned as "error_<code>" with a warning.
func ConvertCategory(code string) string {
	c := strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(c, "IPC"):
		c = c[len("IPC"):]
	case strings.HasPrefix(c, "CAT"):
		c = c[len("CAT"):]
	}
	if c == "" {
		return categoryError(code)
	}

	if c[0] == 'M' {
		if out, ok := specialCategories[c]; ok {
			return out
		}
		return categoryError(code)
	}

	// Hierarchical codes alternate digit and letter groups: 1A2 -> 1.A.2.
	var parts []string
	start := 0
	for i := 1; i <= len(c); i++ {
		if i == len(c) || isDigit(c[i]) != isDigit(c[start]) {
			parts = append(parts, c[start:i])
			start = i
		}
	}
	for _, p := range parts {
		for i := 0; i < len(p); i++ {
			if !isDigit(p[i]) && (p[i] < 'A' || p[i] > 'Z') {
				return categoryError(code)
			}
		}
	}
	return strings.Join(parts, ".")
}

func categoryError(code string) string {
	slog.Warn("could not translate PRIMAP1 category code", "code", code)
	return "error_" + code
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ConvertEntity translates a PRIMAP1 entity name into PRIMAP2 form,
// qualifying CO2-equivalent baskets with their GWP specifier:
// "KYOTOGHG" -> "KYOTOGHG (SARGWP100)", "KYOTOGHGAR4" ->
// "KYOTOGHG (AR4GWP100)". Plain gas names pass through unchanged.
func ConvertEntity(entity string) string {
	e := strings.TrimSpace(entity)
	if gwpEntities[e] {
		return e + " (SARGWP100)"
	}
	for _, s := range gwpSuffixes {
		base := strings.TrimSuffix(e, s.suffix)
		if base != e && gwpEntities[base] {
			return base + " (" + s.gwp + ")"
		}
	}
	return e
}

// ConvertUnit translates a PRIMAP1 unit string into the PRIMAP2 unit for the
// given (already translated) entity: "GgCO2eq" -> "Gg CO2 / yr", "Gg" with
// entity "CH4" -> "Gg CH4 / yr". Unparsable units are returned as
// "error_<unit>" with a warning.
func ConvertUnit(unit, entity string) string {
	u := strings.TrimSpace(unit)

	if mass, found := strings.CutSuffix(u, "CO2eq"); found {
		if massPrefixes[mass] {
			return mass + " CO2 / yr"
		}
		return unitError(unit, entity)
	}

	if massPrefixes[u] {
		base := strings.TrimSpace(entity)
		if short, ok := cutQualifier(base); ok {
			base = short
		}
		if base == "" {
			return unitError(unit, entity)
		}
		return u + " " + base + " / yr"
	}

	return unitError(unit, entity)
}

func unitError(unit, entity string) string {
	slog.Warn("could not translate PRIMAP1 unit", "unit", unit, "entity", entity)
	return "error_" + unit
}

// cutQualifier strips a trailing " (...)" qualifier from an entity name.
func cutQualifier(entity string) (string, bool) {
	i := strings.Index(entity, " (")
	if i < 0 {
		return entity, false
	}
	return entity[:i], true
}
