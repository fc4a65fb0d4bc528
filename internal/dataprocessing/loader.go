package dataprocessing

import (
	"bytes"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"

	"lotpulse/pkg/contracts/domain"
)

// Upload formats recognized by the loader.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var zipSignature = []byte("PK\x03\x04")

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Encoding string
	DayFirst bool
}

// DefaultLoaderOptions reads UTF-8 input with day-first dates.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{Encoding: "utf-8", DayFirst: true}
}

// LoadResult is the outcome of a successful load.
type LoadResult struct {
	Table          *domain.OrderTable
	Issues         []FieldIssue
	MissingColumns []string
	Fingerprint    string
	Format         string
}

// Loader runs the ingestion chain from raw bytes to a derived order table.
type Loader struct {
	opts  LoaderOptions
	dates *DateParser
}

// NewLoader creates a loader.
func NewLoader(opts LoaderOptions) *Loader {
	return &Loader{
		opts:  opts,
		dates: NewDateParser(opts.DayFirst),
	}
}

// Load parses, normalizes, renames, parses dates and derives dwell time.
// The only error returned is a *ParseError; cell level problems are in Issues.
func (l *Loader) Load(data []byte, today time.Time) (*LoadResult, error) {
	format := DetectFormat(data)

	var (
		raw *Table
		err error
	)
	switch format {
	case FormatXLSX:
		raw, err = ParseWorkbook(data)
	default:
		raw, err = Parse(data, ParseOptions{Encoding: l.opts.Encoding})
	}
	if err != nil {
		return nil, err
	}

	renamed := Rename(NormalizeHeaders(raw))
	records, issues := ParseDates(renamed, l.dates)

	return &LoadResult{
		Table: &domain.OrderTable{
			Columns: renamed.Columns,
			Records: Derive(records, today),
			Today:   CalendarDate(today),
		},
		Issues:         issues,
		MissingColumns: MissingColumns(renamed),
		Fingerprint:    Fingerprint(data),
		Format:         format,
	}, nil
}

// DetectFormat reports FormatXLSX for zip containers and FormatCSV otherwise.
func DetectFormat(data []byte) string {
	if bytes.HasPrefix(data, zipSignature) {
		return FormatXLSX
	}
	return FormatCSV
}

// Fingerprint returns the xxh3 hash of data as 16 hex digits.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}
