// Package exporter writes report views to CSV and xlsx.
//
// CSVWriter produces semicolon separated files with a UTF-8 BOM so that
// spreadsheet applications in German locales open them directly. It writes
// a single view, the filtered orders, or one file per view into the
// exports directory.
//
// WorkbookWriter produces one workbook holding a summary sheet, a sheet with
// a native column chart for each view, and the filtered orders.
//
// Example usage:
//
//	w := exporter.NewWorkbookWriter(logger)
//	if err := w.Write(resp, views, filtered); err != nil {
//	    return err
//	}
package exporter
