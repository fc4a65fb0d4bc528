package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"lotpulse/internal/config"
	"lotpulse/internal/dataprocessing"
	apperrors "lotpulse/internal/errors"
	"lotpulse/internal/exporter"
	"lotpulse/internal/infrastructure"
	"lotpulse/internal/sessions"
	api "lotpulse/pkg/contracts/api/v1"
	"lotpulse/pkg/contracts/domain"
)

// Export content types
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// Clock supplies the current time. Today's date is taken from it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// ReportOptions configures a ReportService.
type ReportOptions struct {
	Loader         dataprocessing.LoaderOptions
	TopN           int
	MaxUploadBytes int64
	// Location decides which calendar date counts as today
	Location *time.Location
}

// ReportOptionsFrom builds ReportOptions from the application configuration.
func ReportOptionsFrom(cfg *config.Config) ReportOptions {
	return ReportOptions{
		Loader: dataprocessing.LoaderOptions{
			Encoding: cfg.Ingest.Encoding,
			DayFirst: cfg.Ingest.DayFirst,
		},
		TopN:           cfg.Report.TopN,
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
		Location:       cfg.Report.Location(),
	}
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReportService owns uploaded order lists and renders their views
type ReportService struct {
	store   sessions.Store
	loader  *dataprocessing.Loader
	csv     *exporter.CSVWriter
	xlsx    *exporter.WorkbookWriter
	opts    ReportOptions
	clock   Clock
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger

	// active mirrors store.Len() for the active_sessions gauge
	mu     sync.Mutex
	active int
}

// NewReportService creates a report service. providers and metrics may be nil.
func NewReportService(store sessions.Store, opts ReportOptions, providers *infrastructure.OTelProviders, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TopN <= 0 {
		opts.TopN = dataprocessing.DefaultTopN
	}

	var tracer trace.Tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)
	if providers != nil && providers.Tracer != nil {
		tracer = providers.Tracer
	}

	return &ReportService{
		store:   store,
		loader:  dataprocessing.NewLoader(opts.Loader),
		csv:     exporter.NewCSVWriter(nil, logger),
		xlsx:    exporter.NewWorkbookWriter(logger),
		opts:    opts,
		clock:   ClockFunc(time.Now),
		tracer:  tracer,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "report_service"),
	}
}

// WithClock replaces the clock used to decide today's date.
func (s *ReportService) WithClock(clock Clock) *ReportService {
	s.clock = clock
	return s
}

// Upload loads data into a new session.
func (s *ReportService) Upload(ctx context.Context, name string, data []byte) (*api.SessionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "report.upload", trace.WithAttributes(
		attribute.String("file.name", name),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	upload, err := s.load(ctx, name, data, s.today())
	if err != nil {
		return nil, err
	}

	session, err := s.store.Create(*upload)
	if err != nil {
		if errors.Is(err, sessions.ErrStoreFull) {
			err = ErrSessionLimit
		}
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Session could not be created", slog.String("error", err.Error()))
		return nil, err
	}
	s.syncActiveSessions(ctx)

	span.SetAttributes(attribute.String("session.id", session.ID))
	s.logger.InfoContext(ctx, "Order list uploaded",
		slog.String("session_id", session.ID),
		slog.String("file_name", upload.FileName),
		slog.String("format", upload.Format),
		slog.Int("rows", upload.Table.Len()),
		slog.Int("issues", len(upload.Issues)))

	return summarize(session), nil
}

// Replace loads data and swaps it in as the table of an existing session.
func (s *ReportService) Replace(ctx context.Context, id, name string, data []byte) (*api.SessionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "report.replace", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("file.name", name),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	upload, err := s.load(ctx, name, data, s.today())
	if err != nil {
		return nil, err
	}

	session, err := s.store.Replace(id, *upload)
	if err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "Order list replaced",
		slog.String("session_id", id),
		slog.String("file_name", upload.FileName),
		slog.Int("rows", upload.Table.Len()),
		slog.Int("issues", len(upload.Issues)))

	return summarize(session), nil
}

// Session returns the summary of one session.
func (s *ReportService) Session(ctx context.Context, id string) (*api.SessionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "report.session", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return summarize(session), nil
}

// List returns the summaries of all live sessions, oldest first.
func (s *ReportService) List(ctx context.Context) []*api.SessionSummary {
	_, span := s.tracer.Start(ctx, "report.list")
	defer span.End()

	list := s.store.List()
	result := make([]*api.SessionSummary, 0, len(list))
	for _, session := range list {
		result = append(result, summarize(session))
	}
	span.SetAttributes(attribute.Int("sessions", len(result)))
	return result
}

// Delete removes a session.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "report.delete", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if err := s.store.Delete(id); err != nil {
		return s.storeError(ctx, err)
	}
	s.syncActiveSessions(ctx)

	s.logger.InfoContext(ctx, "Session deleted", slog.String("session_id", id))
	return nil
}

// Lots returns the distinct lots of a session for the filter control.
func (s *ReportService) Lots(ctx context.Context, id string) (*api.LotsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "report.lots", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var records []domain.VehicleOrder
	if session.Upload.Table != nil {
		records = session.Upload.Table.Records
	}
	unassigned := 0
	for _, r := range records {
		if r.Platz == nil {
			unassigned++
		}
	}
	return &api.LotsResponse{
		Lots:            dataprocessing.AvailableLots(records),
		UnassignedCount: unassigned,
	}, nil
}

// Views renders all four views of a session for the queried lots.
// Dwell times are recomputed when the calendar date moved on since upload.
func (s *ReportService) Views(ctx context.Context, id string, q api.ViewQuery) (*domain.ReportViews, error) {
	ctx, span := s.tracer.Start(ctx, "report.views", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	views, _, err := s.sessionViews(ctx, id, q, "all")
	return views, err
}

// View renders a single named view of a session.
func (s *ReportService) View(ctx context.Context, id, name string, q api.ViewQuery) (any, error) {
	ctx, span := s.tracer.Start(ctx, "report.view", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("view", name),
	))
	defer span.End()

	view, err := domain.ParseViewName(name)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	views, _, err := s.sessionViews(ctx, id, q, string(view))
	if err != nil {
		return nil, err
	}

	switch view {
	case domain.ViewCategoryCounts:
		return views.CategoryCounts, nil
	case domain.ViewDwellAverages:
		return views.DwellAverages, nil
	case domain.ViewCustomerTotals:
		return views.CustomerTotals, nil
	default:
		return views.TopDwellers, nil
	}
}

// Export renders the session views as an xlsx workbook or as csv. A csv
// export without a view carries the filtered orders.
func (s *ReportService) Export(ctx context.Context, id string, q api.ExportQuery) (*ExportFile, error) {
	ctx, span := s.tracer.Start(ctx, "report.export", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("export.format", q.Format),
		attribute.String("export.view", q.View),
	))
	defer span.End()

	if q.Format != dataprocessing.FormatXLSX && q.Format != dataprocessing.FormatCSV {
		err := fmt.Errorf("%w: %q", ErrUnsupportedFormat, q.Format)
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	var view domain.ViewName
	if q.View != "" {
		v, err := domain.ParseViewName(q.View)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
		view = v
	}

	views, records, err := s.sessionViews(ctx, id, q.ViewQuery, "export")
	if err != nil {
		return nil, err
	}
	filtered := dataprocessing.Filter(records, views.Selection)
	stamp := views.Today.Format(exporter.DateLayout)

	var (
		buf  bytes.Buffer
		file = &ExportFile{}
	)
	switch {
	case q.Format == dataprocessing.FormatXLSX:
		err = s.xlsx.Write(&buf, views, filtered)
		file.Name = fmt.Sprintf("%s_%s.xlsx", config.ExportCSVPrefix, stamp)
		file.ContentType = ContentTypeXLSX
	case view != "":
		err = s.csv.WriteView(&buf, views, view)
		file.Name = fmt.Sprintf("%s_%s_%s.csv", config.ExportCSVPrefix, view, stamp)
		file.ContentType = ContentTypeCSV
	default:
		err = s.csv.WriteRecords(&buf, filtered)
		file.Name = fmt.Sprintf("%s_%s.csv", config.ExportCSVPrefix, stamp)
		file.ContentType = ContentTypeCSV
	}
	if err != nil {
		err = apperrors.NewExportError(fmt.Sprintf("%s export failed", q.Format), err).
			WithContext("session_id", id)
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "Export failed", slog.String("session_id", id), slog.String("error", err.Error()))
		return nil, err
	}
	file.Data = buf.Bytes()

	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", q.Format)))
	}
	s.logger.InfoContext(ctx, "Report exported",
		slog.String("session_id", id),
		slog.String("file_name", file.Name),
		slog.Int("bytes", len(file.Data)),
		slog.Int("records", len(filtered)))

	return file, nil
}

// Render loads data without creating a session and renders its views.
// q.AsOf overrides today's date.
func (s *ReportService) Render(ctx context.Context, data []byte, q api.RenderQuery) (*api.RenderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "report.render", trace.WithAttributes(
		attribute.String("file.name", q.FileName),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	today := s.today()
	if q.AsOf != "" {
		asOf, err := time.Parse(exporter.DateLayout, q.AsOf)
		if err != nil {
			err = fmt.Errorf("%w: as_of: %v", ErrInvalidQuery, err)
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
		today = asOf
	}

	upload, err := s.load(ctx, q.FileName, data, today)
	if err != nil {
		return nil, err
	}

	views := s.aggregate(ctx, upload.Table, q.ViewQuery, "all")
	return &api.RenderResponse{
		Views:          views,
		Issues:         upload.Issues,
		MissingColumns: upload.MissingColumns,
	}, nil
}

// SweepSessions evicts idle sessions and returns how many were removed.
func (s *ReportService) SweepSessions(ctx context.Context) int {
	ctx, span := s.tracer.Start(ctx, "report.sweep")
	defer span.End()

	removed := s.store.Sweep(s.clock.Now())
	s.syncActiveSessions(ctx)

	span.SetAttributes(attribute.Int("sessions.removed", removed))
	if removed > 0 {
		if s.metrics != nil {
			s.metrics.SessionsExpired.Add(ctx, int64(removed))
		}
		s.logger.InfoContext(ctx, "Idle sessions evicted",
			slog.Int("removed", removed),
			slog.Int("remaining", s.store.Len()))
	}
	return removed
}

// SessionCount returns the number of live sessions.
func (s *ReportService) SessionCount() int {
	return s.store.Len()
}

func (s *ReportService) today() time.Time {
	return s.clock.Now().In(s.opts.Location)
}

// load validates and parses one upload.
func (s *ReportService) load(ctx context.Context, name string, data []byte, today time.Time) (*sessions.Upload, error) {
	switch {
	case len(data) == 0:
		infrastructure.RecordError(ctx, ErrEmptyUpload)
		return nil, ErrEmptyUpload
	case s.opts.MaxUploadBytes > 0 && int64(len(data)) > s.opts.MaxUploadBytes:
		infrastructure.RecordError(ctx, ErrUploadTooLarge)
		return nil, ErrUploadTooLarge
	}

	format := dataprocessing.DetectFormat(data)
	start := time.Now()
	result, err := s.loader.Load(data, today)
	duration := time.Since(start)

	if err != nil {
		infrastructure.RecordLoadMetrics(ctx, s.metrics, format, len(data), 0, 0, duration, err)
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Upload could not be read",
			slog.String("file_name", name),
			slog.String("format", format),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("load %s: %w", displayName(name, format), err)
	}
	infrastructure.RecordLoadMetrics(ctx, s.metrics, format, len(data), result.Table.Len(), len(result.Issues), duration, nil)

	if len(result.Issues) > 0 {
		s.logger.DebugContext(ctx, "Upload has unreadable fields",
			slog.String("file_name", name),
			slog.Int("issues", len(result.Issues)))
	}

	return &sessions.Upload{
		FileName:       displayName(name, format),
		Format:         result.Format,
		Fingerprint:    result.Fingerprint,
		Size:           len(data),
		Table:          result.Table,
		Issues:         result.Issues,
		MissingColumns: result.MissingColumns,
	}, nil
}

// sessionViews renders a session as of today and also returns the
// re-derived records the views were computed from.
func (s *ReportService) sessionViews(ctx context.Context, id string, q api.ViewQuery, label string) (*domain.ReportViews, []domain.VehicleOrder, error) {
	session, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	table := asOf(session.Upload.Table, s.today())
	views := s.aggregate(ctx, table, q, label)
	var records []domain.VehicleOrder
	if table != nil {
		records = table.Records
	}
	return views, records, nil
}

func (s *ReportService) aggregate(ctx context.Context, table *domain.OrderTable, q api.ViewQuery, label string) *domain.ReportViews {
	var records []domain.VehicleOrder
	if table != nil {
		records = table.Records
	}
	topN := q.Top
	if topN <= 0 {
		topN = s.opts.TopN
	}

	start := time.Now()
	views := dataprocessing.Aggregate(table, selectionFor(q, dataprocessing.AvailableLots(records)), topN)
	infrastructure.RecordRenderMetrics(ctx, s.metrics, label, views.FilteredRecords, time.Since(start))
	return views
}

func (s *ReportService) get(ctx context.Context, id string) (*sessions.Session, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, s.storeError(ctx, err)
	}
	return session, nil
}

func (s *ReportService) storeError(ctx context.Context, err error) error {
	if errors.Is(err, sessions.ErrNotFound) {
		err = ErrSessionNotFound
		// an expired session may just have been dropped
		s.syncActiveSessions(ctx)
	}
	infrastructure.RecordError(ctx, err)
	return err
}

func (s *ReportService) syncActiveSessions(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.store.Len()
	if delta := n - s.active; delta != 0 && s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, int64(delta))
	}
	s.active = n
}

// selectionFor turns a query into a lot selection. No lots means all lots.
func selectionFor(q api.ViewQuery, available []string) *domain.LotSelection {
	if len(q.Platz) == 0 {
		selection := domain.SelectAll(available)
		selection.IncludeUnassigned = q.Unassigned
		return &selection
	}
	return &domain.LotSelection{Lots: q.Platz, IncludeUnassigned: q.Unassigned}
}

// asOf re-derives dwell times when today is another calendar date than the
// one the table was derived against.
func asOf(table *domain.OrderTable, today time.Time) *domain.OrderTable {
	day := dataprocessing.CalendarDate(today)
	if table == nil || table.Today.Equal(day) {
		return table
	}
	return &domain.OrderTable{
		Columns: table.Columns,
		Records: dataprocessing.Derive(table.Records, day),
		Today:   day,
	}
}

func displayName(name, format string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "upload." + format
	}
	return name
}
