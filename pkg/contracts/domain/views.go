package domain

import (
	"fmt"
	"time"
)

// ViewName identifies one of the aggregate views.
type ViewName string

const (
	ViewCategoryCounts ViewName = "category-counts"
	ViewDwellAverages  ViewName = "dwell-averages"
	ViewCustomerTotals ViewName = "customer-totals"
	ViewTopDwellers    ViewName = "top-dwellers"
)

// AllViews lists the views in display order.
var AllViews = []ViewName{
	ViewCategoryCounts,
	ViewDwellAverages,
	ViewCustomerTotals,
	ViewTopDwellers,
}

// ParseViewName validates a view name.
func ParseViewName(s string) (ViewName, error) {
	for _, v := range AllViews {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Title returns the human readable heading of a view.
func (v ViewName) Title() string {
	switch v {
	case ViewCategoryCounts:
		return "Anzahl pro Kunde und Fahrzeugart"
	case ViewDwellAverages:
		return "Durchschnittliche Standzeit nach Auslieferungsstatus"
	case ViewCustomerTotals:
		return "Gesamtanzahl pro Kunde"
	case ViewTopDwellers:
		return "Längste Standzeiten pro Kunde"
	}
	return string(v)
}

// CategoryCount is a row of the count by customer and vehicle kind view.
type CategoryCount struct {
	Kunde       *string `json:"kunde"`
	Fahrzeugart *string `json:"fahrzeugart"`
	Anzahl      int     `json:"anzahl"`
}

// DwellAverage is a row of the average dwell time view.
// Standzeit is nil when no record of the group has a defined dwell time.
type DwellAverage struct {
	Kunde                 *string  `json:"kunde"`
	AuslieferungVorhanden bool     `json:"auslieferung_vorhanden"`
	Standzeit             *float64 `json:"standzeit"`
	Fahrzeuge             int      `json:"fahrzeuge"`
}

// CustomerTotal is a row of the total count per customer view.
type CustomerTotal struct {
	Kunde        *string `json:"kunde"`
	Gesamtanzahl int     `json:"gesamtanzahl"`
}

// TopDweller is a row of the longest dwell per customer view.
type TopDweller struct {
	Rank int `json:"rank"`
	VehicleOrder
}

// ReportViews bundles the four views computed over one filtered table.
type ReportViews struct {
	Today           time.Time       `json:"today"`
	Selection       LotSelection    `json:"selection"`
	AvailableLots   []string        `json:"available_lots"`
	TotalRecords    int             `json:"total_records"`
	FilteredRecords int             `json:"filtered_records"`
	CategoryCounts  []CategoryCount `json:"category_counts"`
	DwellAverages   []DwellAverage  `json:"dwell_averages"`
	CustomerTotals  []CustomerTotal `json:"customer_totals"`
	TopDwellers     []TopDweller    `json:"top_dwellers"`
}
