// Package dataprocessing turns vehicle order exports into the four lot reports.
// It holds the ingestion chain and the aggregator that runs over its output.
//
// # Architecture
//
// The package is organized into two stages:
//
// 1. Ingestion: Parse (or ParseWorkbook), NormalizeHeaders, Rename, ParseDates, Derive
// 2. Aggregation: Filter by lot, then CategoryCounts, DwellAverages, CustomerTotals, TopDwellers
//
// Loader runs the ingestion chain and Aggregate runs the second stage.
// RenderViews chains both for a single upload.
//
// # Usage
//
//	loader := dataprocessing.NewLoader(dataprocessing.DefaultLoaderOptions())
//	result, err := loader.Load(data, time.Now())
//	if err != nil {
//	    // *ParseError, errors.Is(err, dataprocessing.ErrUnreadableInput)
//	}
//	views := dataprocessing.Aggregate(result.Table, nil, dataprocessing.DefaultTopN)
//
// # Data Flow
//
//	bytes → Table → renamed Table → []VehicleOrder (+ FieldIssues) → derived OrderTable → ReportViews
//
// # Error Handling
//
// Only failures that leave no table are errors. Cells that cannot be
// interpreted become absent values and are reported as FieldIssue entries,
// so a single bad date never drops a row.
//
// Every function here is pure: the current date is always passed in.
package dataprocessing
