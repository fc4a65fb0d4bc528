package exporter

import (
	"fmt"
	"strconv"
	"time"

	"lotpulse/pkg/contracts/domain"
)

// DateLayout is used for every date written to an export.
const DateLayout = "2006-01-02"

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatOptional(s *string) string {
	return domain.Label(s)
}

func formatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return formatInt(*i)
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// ViewHeaders returns the column headers of a view.
func ViewHeaders(view domain.ViewName) []string {
	switch view {
	case domain.ViewCategoryCounts:
		return []string{"Kunde", "Fahrzeugart", "Anzahl"}
	case domain.ViewDwellAverages:
		return []string{"Kunde", "Auslieferung vorhanden", "Standzeit"}
	case domain.ViewCustomerTotals:
		return []string{"Kunde", "Gesamtanzahl"}
	case domain.ViewTopDwellers:
		return []string{"Kunde", "Rang", "Standzeit", "Modell", "Fahrgestellnummer", "Eingang", "Auslieferung", "Platz"}
	}
	return nil
}

// ViewRows renders the rows of one view as text.
func ViewRows(views *domain.ReportViews, view domain.ViewName) [][]string {
	rows := [][]string{}
	switch view {
	case domain.ViewCategoryCounts:
		for _, c := range views.CategoryCounts {
			rows = append(rows, []string{formatOptional(c.Kunde), formatOptional(c.Fahrzeugart), formatInt(c.Anzahl)})
		}
	case domain.ViewDwellAverages:
		for _, d := range views.DwellAverages {
			rows = append(rows, []string{formatOptional(d.Kunde), formatBool(d.AuslieferungVorhanden), formatOptionalFloat(d.Standzeit)})
		}
	case domain.ViewCustomerTotals:
		for _, c := range views.CustomerTotals {
			rows = append(rows, []string{formatOptional(c.Kunde), formatInt(c.Gesamtanzahl)})
		}
	case domain.ViewTopDwellers:
		for _, d := range views.TopDwellers {
			rows = append(rows, []string{
				formatOptional(d.Kunde),
				formatInt(d.Rank),
				formatOptionalInt(d.Standzeit),
				formatOptional(d.Modell),
				formatOptional(d.Fahrgestellnummer),
				formatDate(d.Eingang),
				formatDate(d.Auslieferung),
				formatOptional(d.Platz),
			})
		}
	}
	return rows
}

// RecordHeaders are the columns of a full order export.
var RecordHeaders = []string{
	"Kunde", "Fahrzeugart", "Eingang", "Auslieferung", "Platz",
	"Modell", "Fahrgestellnummer", "Standzeit", "Auslieferung vorhanden",
}

// RecordRow renders one order for a full order export.
func RecordRow(r domain.VehicleOrder) []string {
	return []string{
		formatOptional(r.Kunde),
		formatOptional(r.Fahrzeugart),
		formatDate(r.Eingang),
		formatDate(r.Auslieferung),
		formatOptional(r.Platz),
		formatOptional(r.Modell),
		formatOptional(r.Fahrgestellnummer),
		formatOptionalInt(r.Standzeit),
		formatBool(r.AuslieferungVorhanden),
	}
}
