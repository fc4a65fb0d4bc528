package dataprocessing

import (
	"math"
	"time"

	"lotpulse/pkg/contracts/domain"
)

// FieldIssue is a cell that could not be interpreted during loading.
type FieldIssue = domain.FieldIssue

var canonicalColumns = map[string]bool{
	domain.ColumnKunde:             true,
	domain.ColumnFahrzeugart:       true,
	domain.ColumnEingang:           true,
	domain.ColumnAuslieferung:      true,
	domain.ColumnPlatz:             true,
	domain.ColumnModell:            true,
	domain.ColumnFahrgestellnummer: true,
}

type columnIndices struct {
	kunde, fahrzeugart, eingang, auslieferung, platz, modell, fahrgestellnummer int
	extra                                                                       []int
}

func findColumnIndices(t *Table) columnIndices {
	idx := columnIndices{
		kunde:             t.ColumnIndex(domain.ColumnKunde),
		fahrzeugart:       t.ColumnIndex(domain.ColumnFahrzeugart),
		eingang:           t.ColumnIndex(domain.ColumnEingang),
		auslieferung:      t.ColumnIndex(domain.ColumnAuslieferung),
		platz:             t.ColumnIndex(domain.ColumnPlatz),
		modell:            t.ColumnIndex(domain.ColumnModell),
		fahrgestellnummer: t.ColumnIndex(domain.ColumnFahrgestellnummer),
	}
	for i, c := range t.Columns {
		if !canonicalColumns[c] {
			idx.extra = append(idx.extra, i)
		}
	}
	return idx
}

// ParseDates builds canonical records from a renamed table and parses the
// Eingang and Auslieferung columns. A value that cannot be parsed becomes
// absent and is reported as a FieldIssue; the row itself is always kept.
func ParseDates(t *Table, parser *DateParser) ([]domain.VehicleOrder, []FieldIssue) {
	idx := findColumnIndices(t)
	records := make([]domain.VehicleOrder, 0, len(t.Rows))
	issues := []FieldIssue{}

	for i, row := range t.Rows {
		rowNum := i + 1
		cell := func(col int) *string {
			if col < 0 || col >= len(row) {
				return nil
			}
			return domain.Str(row[col])
		}
		date := func(col int, name string) *time.Time {
			raw := cell(col)
			if raw == nil {
				return nil
			}
			parsed, err := parser.Parse(*raw)
			if err != nil {
				issues = append(issues, FieldIssue{
					Row:    rowNum,
					Column: name,
					Value:  *raw,
					Reason: err.Error(),
				})
				return nil
			}
			return parsed
		}

		record := domain.VehicleOrder{
			Row:               rowNum,
			Kunde:             cell(idx.kunde),
			Fahrzeugart:       cell(idx.fahrzeugart),
			Eingang:           date(idx.eingang, domain.ColumnEingang),
			Auslieferung:      date(idx.auslieferung, domain.ColumnAuslieferung),
			Platz:             cell(idx.platz),
			Modell:            cell(idx.modell),
			Fahrgestellnummer: cell(idx.fahrgestellnummer),
		}
		if len(idx.extra) > 0 {
			record.Extra = make(map[string]string, len(idx.extra))
			for _, col := range idx.extra {
				if col < len(row) {
					record.Extra[t.Columns[col]] = row[col]
				}
			}
		}
		records = append(records, record)
	}

	return records, issues
}

// Derive returns a copy of records with Standzeit and AuslieferungVorhanden
// computed against the calendar date of today.
func Derive(records []domain.VehicleOrder, today time.Time) []domain.VehicleOrder {
	out := make([]domain.VehicleOrder, len(records))
	for i, r := range records {
		r.Standzeit = nil
		if r.Eingang != nil {
			r.Standzeit = domain.Int(Standzeit(*r.Eingang, today))
		}
		r.AuslieferungVorhanden = r.Auslieferung != nil
		out[i] = r
	}
	return out
}

// Standzeit is the number of whole days from eingang to the start of today,
// rounded down. Intake later than today yields a negative value.
func Standzeit(eingang, today time.Time) int {
	start := CalendarDate(today)
	in := time.Date(eingang.Year(), eingang.Month(), eingang.Day(), eingang.Hour(), eingang.Minute(), eingang.Second(), eingang.Nanosecond(), time.UTC)
	return int(math.Floor(start.Sub(in).Hours() / 24))
}

// CalendarDate returns midnight UTC of the date t shows in its own location.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
