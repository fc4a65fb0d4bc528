package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"lotpulse/internal/config"
	"lotpulse/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer. paths is only needed for ExportViews.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write writes a semicolon separated table to out.
func (w *CSVWriter) Write(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	writer.Comma = config.CSVSeparator

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteView writes a single view.
func (w *CSVWriter) WriteView(out io.Writer, views *domain.ReportViews, view domain.ViewName) error {
	return w.Write(out, WriteOptions{
		Headers:   ViewHeaders(view),
		Records:   ViewRows(views, view),
		BOMPrefix: true,
	})
}

// WriteRecords writes orders with their derived columns.
func (w *CSVWriter) WriteRecords(out io.Writer, records []domain.VehicleOrder) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, RecordRow(r))
	}
	return w.Write(out, WriteOptions{
		Headers:   RecordHeaders,
		Records:   rows,
		BOMPrefix: true,
	})
}

// ExportViews writes one file per view into the exports directory and
// returns the written paths.
func (w *CSVWriter) ExportViews(views *domain.ReportViews, prefix string) ([]string, error) {
	if w.paths == nil {
		return nil, fmt.Errorf("exports directory not configured")
	}
	if prefix == "" {
		prefix = config.ExportCSVPrefix
	}

	written := make([]string, 0, len(domain.AllViews))
	for _, view := range domain.AllViews {
		path := w.paths.GetExportPath(fmt.Sprintf("%s_%s.csv", prefix, view))
		if err := w.writeFile(path, func(f io.Writer) error {
			return w.WriteView(f, views, view)
		}); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (w *CSVWriter) writeFile(path string, write func(io.Writer) error) error {
	w.logger.Info("Writing CSV file", slog.String("file_path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
