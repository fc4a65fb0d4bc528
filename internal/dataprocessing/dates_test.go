package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateParser_Parse(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		dayFirst bool
		input    string
		want     time.Time
	}{
		{name: "iso date", dayFirst: true, input: "2024-01-15", want: day(2024, 1, 15)},
		{name: "iso date with surrounding spaces", dayFirst: true, input: "  2024-01-15 ", want: day(2024, 1, 15)},
		{name: "iso date time", dayFirst: true, input: "2024-01-15 13:45", want: time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC)},
		{name: "iso with seconds", dayFirst: true, input: "2024-01-15T13:45:10", want: time.Date(2024, 1, 15, 13, 45, 10, 0, time.UTC)},
		{name: "rfc3339 keeps wall clock", dayFirst: true, input: "2024-01-15T23:30:00+02:00", want: time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)},
		{name: "iso date without padding", dayFirst: true, input: "2024-1-5", want: day(2024, 1, 5)},
		{name: "iso date time without padding", dayFirst: false, input: "2024-1-5 7:05", want: time.Date(2024, 1, 5, 7, 5, 0, 0, time.UTC)},
		{name: "iso with seconds without padding", dayFirst: true, input: "2024-12-5T13:45:10", want: time.Date(2024, 12, 5, 13, 45, 10, 0, time.UTC)},
		{name: "german dotted", dayFirst: true, input: "15.01.2024", want: day(2024, 1, 15)},
		{name: "german dotted without padding", dayFirst: true, input: "5.1.2024", want: day(2024, 1, 5)},
		{name: "german dotted with time", dayFirst: true, input: "15.01.2024 08:30", want: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)},
		{name: "german dotted two digit year", dayFirst: true, input: "15.01.24", want: day(2024, 1, 15)},
		{name: "slashed day first", dayFirst: true, input: "03/04/2024", want: day(2024, 4, 3)},
		{name: "slashed month first", dayFirst: false, input: "03/04/2024", want: day(2024, 3, 4)},
		{name: "slashed falls back to month first", dayFirst: true, input: "01/15/2024", want: day(2024, 1, 15)},
		{name: "slashed falls back to day first", dayFirst: false, input: "15/01/2024", want: day(2024, 1, 15)},
		{name: "year first slashed", dayFirst: true, input: "2024/01/15", want: day(2024, 1, 15)},
		{name: "compact", dayFirst: true, input: "20240115", want: day(2024, 1, 15)},
		{name: "month name", dayFirst: true, input: "15-Jan-2024", want: day(2024, 1, 15)},
		{name: "month name spaced", dayFirst: true, input: "15 Jan 2024", want: day(2024, 1, 15)},
		{name: "workbook short date", dayFirst: true, input: "01-15-24", want: day(2024, 1, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDateParser(tt.dayFirst).Parse(tt.input)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestDateParser_ParseEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t"} {
		got, err := NewDateParser(true).Parse(input)
		assert.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestDateParser_ParseInvalid(t *testing.T) {
	for _, input := range []string{"morgen", "32.01.2024", "2024-02-30", "15/15/2024", "n/a"} {
		t.Run(input, func(t *testing.T) {
			got, err := NewDateParser(true).Parse(input)
			assert.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), "unrecognized date")
		})
	}
}
