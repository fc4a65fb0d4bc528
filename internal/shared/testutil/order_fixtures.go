package testutil

import (
	"strings"
	"time"
)

// OrderHeader is the header row of an order list export.
const OrderHeader = "Auftraggeber;N / G;Fahrzeugeingang;Auslieferung geplant am;Platz;Modell;Fahrgestellnummer"

// ExampleOrderCSV is a three vehicle export across two lots.
// Against ExampleToday the dwell times are 31, 30 and 29 days.
const ExampleOrderCSV = OrderHeader + "\n" +
	"Müller;N;2024-01-01;2024-01-10;A1;ModelX;VIN1\n" +
	"Müller;G;2024-01-02;;A1;ModelY;VIN2\n" +
	"Schmidt;N;2024-01-03;2024-01-20;A2;ModelZ;VIN3\n"

// ExampleToday is the reference date for ExampleOrderCSV.
var ExampleToday = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

// OrderCSV joins the header and the given data rows into an export.
func OrderCSV(rows ...string) []byte {
	var b strings.Builder
	b.WriteString(OrderHeader)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
