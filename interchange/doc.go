// Package interchange defines the normalized tabular interchange format for
// emissions data: a column-oriented table whose metadata columns identify a
// time series (area, category, entity, unit, ...) and whose data columns hold
// one value per time point, plus the dataset-wide attributes record attached
// to the table after conversion.
package interchange
