package dataprocessing

import (
	"fmt"
	"strings"
	"time"
)

var (
	leadingLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-1-2",
		"2006-1-2 15:04",
		"2006-1-2 15:04:05",
		"2006-1-2T15:04:05",
		"2.1.2006",
		"2.1.2006 15:04",
		"2.1.2006 15:04:05",
		"2.1.06",
	}
	dayFirstLayouts = []string{
		"2/1/2006",
		"2/1/2006 15:04",
		"2/1/2006 15:04:05",
	}
	monthFirstLayouts = []string{
		"1/2/2006",
		"1/2/2006 15:04",
		"1/2/2006 15:04:05",
	}
	trailingLayouts = []string{
		"2006/01/02",
		"20060102",
		"2-Jan-2006",
		"2 Jan 2006",
		// excelize renderings of the built-in date formats 14 and 22
		"01-02-06",
		"1/2/06 15:04",
		"1/2/06",
	}
)

// DateParser parses the textual dates found in order exports.
type DateParser struct {
	layouts []string
}

// NewDateParser builds a parser. dayFirst decides how ambiguous
// slashed dates such as 03/04/2024 are read.
func NewDateParser(dayFirst bool) *DateParser {
	first, second := dayFirstLayouts, monthFirstLayouts
	if !dayFirst {
		first, second = second, first
	}

	layouts := make([]string, 0, len(leadingLayouts)+len(first)+len(second)+len(trailingLayouts))
	layouts = append(layouts, leadingLayouts...)
	layouts = append(layouts, first...)
	layouts = append(layouts, second...)
	layouts = append(layouts, trailingLayouts...)
	return &DateParser{layouts: layouts}
}

// Parse returns nil without error for an empty value. A parsed value keeps
// its wall clock date and time and is placed in UTC.
func (p *DateParser) Parse(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range p.layouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		return &wall, nil
	}

	return nil, fmt.Errorf("unrecognized date %q", value)
}
