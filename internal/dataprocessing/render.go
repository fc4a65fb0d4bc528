package dataprocessing

import (
	"time"

	"lotpulse/pkg/contracts/domain"
)

// RenderOptions configures RenderViews.
type RenderOptions struct {
	Loader LoaderOptions
	TopN   int
}

// DefaultRenderOptions uses the default loader options and DefaultTopN.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Loader: DefaultLoaderOptions(), TopN: DefaultTopN}
}

// RenderViews loads raw bytes against today and computes the four views for
// the selected lots. A nil selection selects every available lot.
// Field issues are returned alongside the views; only an unreadable upload
// is an error.
func RenderViews(raw []byte, today time.Time, selection *domain.LotSelection, opts RenderOptions) (*domain.ReportViews, []FieldIssue, error) {
	result, err := NewLoader(opts.Loader).Load(raw, today)
	if err != nil {
		return nil, nil, err
	}
	return Aggregate(result.Table, selection, opts.TopN), result.Issues, nil
}

// Aggregate computes the four views of an already loaded table.
func Aggregate(table *domain.OrderTable, selection *domain.LotSelection, topN int) *domain.ReportViews {
	var records []domain.VehicleOrder
	var today time.Time
	if table != nil {
		records = table.Records
		today = table.Today
	}

	lots := AvailableLots(records)
	effective := domain.SelectAll(lots)
	if selection != nil {
		effective = domain.LotSelection{
			Lots:              append([]string{}, selection.Lots...),
			IncludeUnassigned: selection.IncludeUnassigned,
		}
	}

	filtered := Filter(records, effective)
	return &domain.ReportViews{
		Today:           today,
		Selection:       effective,
		AvailableLots:   lots,
		TotalRecords:    len(records),
		FilteredRecords: len(filtered),
		CategoryCounts:  CategoryCounts(filtered),
		DwellAverages:   DwellAverages(filtered),
		CustomerTotals:  CustomerTotals(filtered),
		TopDwellers:     TopDwellers(filtered, topN),
	}
}
