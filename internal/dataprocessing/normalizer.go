package dataprocessing

import (
	"strings"

	"lotpulse/pkg/contracts/domain"
)

// columnRenames maps source headers to canonical column names.
// Platz keeps its name; the entry documents that it is consumed.
var columnRenames = map[string]string{
	"Auftraggeber":            domain.ColumnKunde,
	"N / G":                   domain.ColumnFahrzeugart,
	"Fahrzeugeingang":         domain.ColumnEingang,
	"Auslieferung geplant am": domain.ColumnAuslieferung,
	"Platz":                   domain.ColumnPlatz,
}

// RequiredColumns are the canonical columns the views are built from.
var RequiredColumns = []string{
	domain.ColumnKunde,
	domain.ColumnFahrzeugart,
	domain.ColumnEingang,
	domain.ColumnAuslieferung,
	domain.ColumnPlatz,
}

// NormalizeHeaders trims surrounding whitespace from every column name.
func NormalizeHeaders(t *Table) *Table {
	out := t.Clone()
	for i, c := range out.Columns {
		out.Columns[i] = strings.TrimSpace(c)
	}
	return out
}

// Rename applies the fixed source to canonical column mapping.
// Columns without a mapping keep their name.
func Rename(t *Table) *Table {
	out := t.Clone()
	for i, c := range out.Columns {
		if canonical, ok := columnRenames[c]; ok {
			out.Columns[i] = canonical
		}
	}
	return out
}

// MissingColumns lists the required canonical columns absent from a renamed table.
func MissingColumns(t *Table) []string {
	missing := []string{}
	for _, c := range RequiredColumns {
		if t.ColumnIndex(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}
