package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"lotpulse/pkg/contracts/domain"
)

// Sheet names of the report workbook.
const (
	SheetInfo           = "Info"
	SheetCategoryCounts = "Anzahl"
	SheetDwellAverages  = "Standzeit"
	SheetCustomerTotals = "Gesamtanzahl"
	SheetTopDwellers    = "Top Standzeiten"
	SheetRecords        = "Daten"
)

// emptyLabel stands in for an absent value on chart axes and legends.
const emptyLabel = "(leer)"

// WorkbookWriter renders the four views into an xlsx workbook with one
// sheet and one native column chart per view, plus the filtered orders.
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer.
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// Write builds the workbook and writes it to out.
func (w *WorkbookWriter) Write(out io.Writer, views *domain.ReportViews, records []domain.VehicleOrder) error {
	f, err := w.Build(views, records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to path, creating parent directories.
func (w *WorkbookWriter) Save(path string, views *domain.ReportViews, records []domain.VehicleOrder) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.Write(file, views, records); err != nil {
		file.Close()
		return err
	}
	w.logger.Info("Workbook saved", slog.String("file_path", path), slog.Int("records", len(records)))
	return file.Close()
}

// Build assembles the workbook. The caller owns the returned file.
func (w *WorkbookWriter) Build(views *domain.ReportViews, records []domain.VehicleOrder) (*excelize.File, error) {
	f := excelize.NewFile()
	b := &workbookBuilder{f: f}

	if err := f.SetSheetName(f.GetSheetName(0), SheetInfo); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	steps := []func() error{
		b.styles,
		func() error { return b.info(views) },
		func() error { return b.categoryCounts(views.CategoryCounts) },
		func() error { return b.dwellAverages(views.DwellAverages) },
		func() error { return b.customerTotals(views.CustomerTotals) },
		func() error { return b.topDwellers(views.TopDwellers) },
		func() error { return b.records(records) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

type workbookBuilder struct {
	f         *excelize.File
	bold      int
	dateStyle int
	decimal   int
}

func (b *workbookBuilder) styles() error {
	var err error
	if b.bold, err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dateFmt := "yyyy-mm-dd"
	if b.dateStyle, err = b.f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	if b.decimal, err = b.f.NewStyle(&excelize.Style{NumFmt: 2}); err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}
	return nil
}

func (b *workbookBuilder) info(views *domain.ReportViews) error {
	lots := strings.Join(views.Selection.Lots, ", ")
	if views.Selection.IncludeUnassigned {
		lots = strings.TrimPrefix(lots+", ohne Platz", ", ")
	}
	rows := [][]any{
		{"Stichtag", views.Today.Format(DateLayout)},
		{"Plätze", lots},
		{"Verfügbare Plätze", strings.Join(views.AvailableLots, ", ")},
		{"Fahrzeuge gesamt", views.TotalRecords},
		{"Fahrzeuge gefiltert", views.FilteredRecords},
	}
	if err := b.writeRows(SheetInfo, 1, rows); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(SheetInfo, "A1", fmt.Sprintf("A%d", len(rows)), b.bold); err != nil {
		return err
	}
	return b.f.SetColWidth(SheetInfo, "A", "B", 24)
}

func (b *workbookBuilder) categoryCounts(counts []domain.CategoryCount) error {
	rows := make([][]any, 0, len(counts))
	p := newPivot()
	for _, c := range counts {
		rows = append(rows, []any{cellString(c.Kunde), cellString(c.Fahrzeugart), c.Anzahl})
		p.add(chartLabel(c.Kunde), chartLabel(c.Fahrzeugart), float64(c.Anzahl))
	}
	if err := b.table(SheetCategoryCounts, ViewHeaders(domain.ViewCategoryCounts), rows); err != nil {
		return err
	}
	return b.pivotChart(SheetCategoryCounts, 5, p, excelize.ColStacked, domain.ViewCategoryCounts.Title())
}

func (b *workbookBuilder) dwellAverages(averages []domain.DwellAverage) error {
	rows := make([][]any, 0, len(averages))
	p := newPivot()
	p.cols = []string{"ohne Termin", "mit Termin"}
	for _, d := range averages {
		var avg any
		if d.Standzeit != nil {
			avg = round2(*d.Standzeit)
			series := p.cols[0]
			if d.AuslieferungVorhanden {
				series = p.cols[1]
			}
			p.add(chartLabel(d.Kunde), series, round2(*d.Standzeit))
		} else {
			p.addRow(chartLabel(d.Kunde))
		}
		rows = append(rows, []any{cellString(d.Kunde), d.AuslieferungVorhanden, avg})
	}
	if err := b.table(SheetDwellAverages, ViewHeaders(domain.ViewDwellAverages), rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := b.f.SetCellStyle(SheetDwellAverages, "C2", fmt.Sprintf("C%d", len(rows)+1), b.decimal); err != nil {
			return err
		}
	}
	return b.pivotChart(SheetDwellAverages, 5, p, excelize.Col, domain.ViewDwellAverages.Title())
}

func (b *workbookBuilder) customerTotals(totals []domain.CustomerTotal) error {
	rows := make([][]any, 0, len(totals))
	p := newPivot()
	for _, c := range totals {
		rows = append(rows, []any{cellString(c.Kunde), c.Gesamtanzahl})
		p.add(chartLabel(c.Kunde), "Gesamtanzahl", float64(c.Gesamtanzahl))
	}
	if err := b.table(SheetCustomerTotals, ViewHeaders(domain.ViewCustomerTotals), rows); err != nil {
		return err
	}
	return b.pivotChart(SheetCustomerTotals, 4, p, excelize.Col, domain.ViewCustomerTotals.Title())
}

func (b *workbookBuilder) topDwellers(top []domain.TopDweller) error {
	rows := make([][]any, 0, len(top))
	p := newPivot()
	for _, d := range top {
		rows = append(rows, []any{
			cellString(d.Kunde),
			d.Rank,
			cellInt(d.Standzeit),
			cellString(d.Modell),
			cellString(d.Fahrgestellnummer),
			cellDate(d.Eingang),
			cellDate(d.Auslieferung),
			cellString(d.Platz),
		})
		vehicle := fmt.Sprintf("%s #%d", chartLabel(d.Kunde), d.Rank)
		if d.Fahrgestellnummer != nil {
			vehicle = fmt.Sprintf("%s %s", chartLabel(d.Kunde), *d.Fahrgestellnummer)
		}
		if d.Standzeit != nil {
			p.add(vehicle, "Standzeit", float64(*d.Standzeit))
		} else {
			p.addRow(vehicle)
		}
	}
	if err := b.table(SheetTopDwellers, ViewHeaders(domain.ViewTopDwellers), rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := b.f.SetCellStyle(SheetTopDwellers, "F2", fmt.Sprintf("G%d", len(rows)+1), b.dateStyle); err != nil {
			return err
		}
	}
	return b.pivotChart(SheetTopDwellers, 10, p, excelize.Col, domain.ViewTopDwellers.Title())
}

func (b *workbookBuilder) records(records []domain.VehicleOrder) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			cellString(r.Kunde),
			cellString(r.Fahrzeugart),
			cellDate(r.Eingang),
			cellDate(r.Auslieferung),
			cellString(r.Platz),
			cellString(r.Modell),
			cellString(r.Fahrgestellnummer),
			cellInt(r.Standzeit),
			r.AuslieferungVorhanden,
		})
	}
	if err := b.table(SheetRecords, RecordHeaders, rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		return b.f.SetCellStyle(SheetRecords, "C2", fmt.Sprintf("D%d", len(rows)+1), b.dateStyle)
	}
	return nil
}

// table creates sheet and writes a bold header row followed by rows.
func (b *workbookBuilder) table(sheet string, headers []string, rows [][]any) error {
	if _, err := b.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := b.writeRows(sheet, 1, [][]any{header}); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheet, "A1", last, b.bold); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := b.f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return err
	}
	return b.writeRows(sheet, 2, rows)
}

func (b *workbookBuilder) writeRows(sheet string, startRow int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		if err := b.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, startRow+i, err)
		}
	}
	return nil
}

// pivotChart writes p as a helper block starting at column col and
// anchors a chart next to it. Nothing is drawn for an empty pivot.
func (b *workbookBuilder) pivotChart(sheet string, col int, p *pivot, kind excelize.ChartType, title string) error {
	if len(p.rows) == 0 || len(p.cols) == 0 {
		return nil
	}

	block := make([][]any, 0, len(p.rows)+1)
	header := []any{"Kunde"}
	for _, c := range p.cols {
		header = append(header, c)
	}
	block = append(block, header)
	for _, r := range p.rows {
		line := []any{r}
		for _, c := range p.cols {
			if v, ok := p.values[[2]string{r, c}]; ok {
				line = append(line, v)
			} else {
				line = append(line, nil)
			}
		}
		block = append(block, line)
	}
	for i, line := range block {
		cell, err := excelize.CoordinatesToCellName(col, i+1)
		if err != nil {
			return err
		}
		if err := b.f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("failed to write chart data: %w", err)
		}
	}

	categoryCol, _ := excelize.ColumnNumberToName(col)
	lastRow := len(p.rows) + 1
	series := make([]excelize.ChartSeries, 0, len(p.cols))
	for i := range p.cols {
		valueCol, _ := excelize.ColumnNumberToName(col + 1 + i)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, valueCol),
			Categories: fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, categoryCol, categoryCol, lastRow),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, valueCol, valueCol, lastRow),
		})
	}

	anchor, err := excelize.CoordinatesToCellName(col+len(p.cols)+2, 2)
	if err != nil {
		return err
	}
	if err := b.f.AddChart(sheet, anchor, &excelize.Chart{
		Type:      kind,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: title}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 400},
	}); err != nil {
		return fmt.Errorf("failed to add chart to %s: %w", sheet, err)
	}
	return nil
}

// pivot lays out chart data with one row per category and one column per series.
type pivot struct {
	rows   []string
	cols   []string
	values map[[2]string]float64
}

func newPivot() *pivot {
	return &pivot{values: make(map[[2]string]float64)}
}

func (p *pivot) addRow(row string) {
	for _, r := range p.rows {
		if r == row {
			return
		}
	}
	p.rows = append(p.rows, row)
}

func (p *pivot) add(row, col string, value float64) {
	p.addRow(row)
	found := false
	for _, c := range p.cols {
		if c == col {
			found = true
			break
		}
	}
	if !found {
		p.cols = append(p.cols, col)
	}
	p.values[[2]string{row, col}] += value
}

func chartLabel(s *string) string {
	if s == nil {
		return emptyLabel
	}
	return *s
}

func cellString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func cellInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func cellDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
