package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotpulse/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNormalizeHeaders(t *testing.T) {
	raw := &Table{
		Columns: []string{" Auftraggeber", "N / G ", "\tPlatz\t", "Modell"},
		Rows:    [][]string{{"a", "b", "c", "d"}},
	}

	once := NormalizeHeaders(raw)
	twice := NormalizeHeaders(once)

	assert.Equal(t, []string{"Auftraggeber", "N / G", "Platz", "Modell"}, once.Columns)
	assert.Equal(t, once, twice)
	assert.Equal(t, " Auftraggeber", raw.Columns[0], "input table must not change")
}

func TestRename(t *testing.T) {
	table := &Table{Columns: []string{
		"Auftraggeber", "N / G", "Fahrzeugeingang", "Auslieferung geplant am", "Platz", "Modell", "Bemerkung",
	}}

	renamed := Rename(table)

	assert.Equal(t, []string{
		"Kunde", "Fahrzeugart", "Eingang", "Auslieferung", "Platz", "Modell", "Bemerkung",
	}, renamed.Columns)
	assert.Empty(t, MissingColumns(renamed))
	assert.Equal(t, "Auftraggeber", table.Columns[0])
}

func TestRename_UntrimmedHeadersDoNotMatch(t *testing.T) {
	renamed := Rename(&Table{Columns: []string{" Auftraggeber"}})
	assert.Equal(t, []string{" Auftraggeber"}, renamed.Columns)
}

func TestMissingColumns(t *testing.T) {
	renamed := Rename(&Table{Columns: []string{"Auftraggeber", "Platz"}})
	assert.Equal(t, []string{"Fahrzeugart", "Eingang", "Auslieferung"}, MissingColumns(renamed))
}

func TestParseDates(t *testing.T) {
	table := Rename(&Table{
		Columns: []string{"Auftraggeber", "N / G", "Fahrzeugeingang", "Auslieferung geplant am", "Platz", "Farbe"},
		Rows: [][]string{
			{"Müller", "N", "2024-01-01", "10.01.2024", "A1", "rot"},
			{"Müller", "G", "gestern", "", "", "blau"},
			{"", "X", "", "irgendwann", "A2", ""},
		},
	})

	records, issues := ParseDates(table, NewDateParser(true))
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, "Müller", *first.Kunde)
	assert.Equal(t, "N", *first.Fahrzeugart)
	assert.Equal(t, date(2024, 1, 1), first.Eingang)
	assert.Equal(t, date(2024, 1, 10), first.Auslieferung)
	assert.Equal(t, "A1", *first.Platz)
	assert.Nil(t, first.Modell)
	assert.Equal(t, map[string]string{"Farbe": "rot"}, first.Extra)

	second := records[1]
	assert.Nil(t, second.Eingang, "unparseable date becomes absent")
	assert.Nil(t, second.Auslieferung)
	assert.Nil(t, second.Platz)

	third := records[2]
	assert.Nil(t, third.Kunde)
	assert.Equal(t, "X", *third.Fahrzeugart, "unknown kinds pass through")
	assert.Equal(t, "", third.Extra["Farbe"])

	assert.Equal(t, []FieldIssue{
		{Row: 2, Column: "Eingang", Value: "gestern", Reason: `unrecognized date "gestern"`},
		{Row: 3, Column: "Auslieferung", Value: "irgendwann", Reason: `unrecognized date "irgendwann"`},
	}, issues)
}

func TestParseDates_MissingColumns(t *testing.T) {
	table := Rename(&Table{
		Columns: []string{"Auftraggeber"},
		Rows:    [][]string{{"Müller"}},
	})

	records, issues := ParseDates(table, NewDateParser(true))
	require.Len(t, records, 1)
	assert.Empty(t, issues)
	assert.NotNil(t, issues)
	assert.Nil(t, records[0].Eingang)
	assert.Nil(t, records[0].Platz)
	assert.Nil(t, records[0].Extra)
}

func TestDerive(t *testing.T) {
	today := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	in := []domain.VehicleOrder{
		{Row: 1, Eingang: date(2024, 1, 1), Auslieferung: date(2024, 1, 10)},
		{Row: 2, Eingang: date(2024, 1, 2)},
		{Row: 3, Auslieferung: date(2024, 3, 1)},
		{Row: 4, Eingang: date(2024, 2, 1)},
		{Row: 5, Eingang: date(2024, 2, 3)},
	}

	out := Derive(in, today)
	require.Len(t, out, len(in))

	assert.Equal(t, 31, *out[0].Standzeit)
	assert.True(t, out[0].AuslieferungVorhanden)
	assert.Equal(t, 30, *out[1].Standzeit)
	assert.False(t, out[1].AuslieferungVorhanden)
	assert.Nil(t, out[2].Standzeit, "no intake date, no dwell time")
	assert.True(t, out[2].AuslieferungVorhanden)
	assert.Equal(t, 0, *out[3].Standzeit)
	assert.Equal(t, -2, *out[4].Standzeit)

	assert.Nil(t, in[0].Standzeit, "input records must not change")
	assert.Equal(t, out, Derive(in, today), "derive is deterministic")
}

func TestStandzeit(t *testing.T) {
	tests := []struct {
		name    string
		eingang time.Time
		today   time.Time
		want    int
	}{
		{
			name:    "whole days",
			eingang: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			today:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want:    31,
		},
		{
			name:    "time of today is ignored",
			eingang: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			today:   time.Date(2024, 2, 1, 23, 59, 0, 0, time.UTC),
			want:    31,
		},
		{
			name:    "intake time rounds down",
			eingang: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			today:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want:    30,
		},
		{
			name:    "today uses its own calendar date",
			eingang: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			today:   time.Date(2024, 2, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600)),
			want:    31,
		},
		{
			name:    "future intake rounds towards minus infinity",
			eingang: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
			today:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want:    -1,
		},
		{
			name:    "leap day",
			eingang: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			today:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Standzeit(tt.eingang, tt.today))
		})
	}
}
