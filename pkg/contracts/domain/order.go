package domain

import (
	"strings"
	"time"
)

// Canonical column names after renaming.
const (
	ColumnKunde             = "Kunde"
	ColumnFahrzeugart       = "Fahrzeugart"
	ColumnEingang           = "Eingang"
	ColumnAuslieferung      = "Auslieferung"
	ColumnPlatz             = "Platz"
	ColumnModell            = "Modell"
	ColumnFahrgestellnummer = "Fahrgestellnummer"
)

// VehicleOrder is one normalized row of a vehicle order export.
// A nil pointer field means the value was absent in the source.
type VehicleOrder struct {
	Row               int        `json:"row"`
	Kunde             *string    `json:"kunde"`
	Fahrzeugart       *string    `json:"fahrzeugart"`
	Eingang           *time.Time `json:"eingang"`
	Auslieferung      *time.Time `json:"auslieferung"`
	Platz             *string    `json:"platz"`
	Modell            *string    `json:"modell,omitempty"`
	Fahrgestellnummer *string    `json:"fahrgestellnummer,omitempty"`

	// Derived at load time
	Standzeit             *int `json:"standzeit"`
	AuslieferungVorhanden bool `json:"auslieferung_vorhanden"`

	// Unmapped source columns, passed through unchanged
	Extra map[string]string `json:"extra,omitempty"`
}

// OrderTable is a loaded and derived set of orders.
type OrderTable struct {
	Columns []string       `json:"columns"`
	Records []VehicleOrder `json:"records"`
	Today   time.Time      `json:"today"`
}

// Len returns the number of records.
func (t *OrderTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// FieldIssue records a single cell that could not be interpreted.
// The row it belongs to is kept with the field set to absent.
type FieldIssue struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}

// Label renders an optional value for display.
func Label(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CompareOptional orders optional strings ascending with absent values last.
func CompareOptional(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return strings.Compare(*a, *b)
}
