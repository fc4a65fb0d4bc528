package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"lotpulse/internal/dataprocessing"
	"lotpulse/internal/infrastructure"
	"lotpulse/internal/sessions"
	"lotpulse/internal/shared/testutil"
	api "lotpulse/pkg/contracts/api/v1"
	"lotpulse/pkg/contracts/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testutil.ExampleToday.Add(8 * time.Hour)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceFixture struct {
	svc     *ReportService
	clock   *fakeClock
	logs    *testutil.BufferedSlogHandler
	reader  *sdkmetric.ManualReader
	metrics *infrastructure.BusinessMetrics
}

func newFixture(t *testing.T, storeOpts sessions.Options, opts ReportOptions) *serviceFixture {
	t.Helper()

	clock := newFakeClock()
	storeOpts.Now = clock.Now
	logger, handler := testutil.NewTestLogger(t)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := infrastructure.CreateBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Loader == (dataprocessing.LoaderOptions{}) {
		opts.Loader = dataprocessing.DefaultLoaderOptions()
	}

	svc := NewReportService(sessions.NewMemoryStore(storeOpts), opts, infrastructure.NoopProviders(logger), metrics, logger).
		WithClock(clock)
	return &serviceFixture{svc: svc, clock: clock, logs: handler, reader: reader, metrics: metrics}
}

func (f *serviceFixture) upload(t *testing.T) *api.SessionSummary {
	t.Helper()
	summary, err := f.svc.Upload(context.Background(), "orders.csv", []byte(testutil.ExampleOrderCSV))
	require.NoError(t, err)
	return summary
}

// int64Sum returns the current value of an integer sum instrument.
func (f *serviceFixture) int64Sum(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestReportService_Upload(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})

	summary := f.upload(t)

	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, "orders.csv", summary.FileName)
	assert.Equal(t, dataprocessing.FormatCSV, summary.Format)
	assert.Len(t, summary.Fingerprint, 16)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, []string{"A1", "A2"}, summary.AvailableLots)
	assert.Equal(t, testutil.ExampleToday, summary.Today)
	assert.Zero(t, summary.IssueCount)
	assert.Empty(t, summary.MissingColumns)

	testutil.AssertLogContains(t, f.logs, slog.LevelInfo, "Order list uploaded")
	testutil.AssertLogAttr(t, f.logs, "session_id", summary.ID)
	assert.Equal(t, int64(1), f.int64Sum(t, "active_sessions"))
	assert.Equal(t, int64(3), f.int64Sum(t, "rows_loaded_total"))
}

func TestReportService_UploadRejected(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "empty", data: "", wantErr: ErrEmptyUpload},
		{name: "too large", data: strings.Repeat("x", 2048), wantErr: ErrUploadTooLarge},
		{name: "unreadable", data: "A;B\n1;2;3\n", wantErr: dataprocessing.ErrUnreadableInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, sessions.Options{}, ReportOptions{MaxUploadBytes: 1024})

			summary, err := f.svc.Upload(context.Background(), "orders.csv", []byte(tt.data))
			assert.Nil(t, summary)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.svc.SessionCount())
		})
	}
}

func TestReportService_UploadUnreadableKeepsParseError(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})

	_, err := f.svc.Upload(context.Background(), "orders.csv", []byte("A;B\n1;2;3\n"))
	var parseErr *dataprocessing.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, int64(1), f.int64Sum(t, "parse_failures_total"))
}

func TestReportService_UploadSessionLimit(t *testing.T) {
	f := newFixture(t, sessions.Options{MaxSessions: 1}, ReportOptions{})
	f.upload(t)

	_, err := f.svc.Upload(context.Background(), "second.csv", []byte(testutil.ExampleOrderCSV))
	assert.ErrorIs(t, err, ErrSessionLimit)
	assert.Equal(t, 1, f.svc.SessionCount())
}

func TestReportService_UploadDefaultName(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})

	summary, err := f.svc.Upload(context.Background(), "", []byte(testutil.ExampleOrderCSV))
	require.NoError(t, err)
	assert.Equal(t, "upload.csv", summary.FileName)

	summary, err = f.svc.Upload(context.Background(), "../../etc/orders.csv", []byte(testutil.ExampleOrderCSV))
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", summary.FileName)
}

func TestReportService_SessionNotFound(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	ctx := context.Background()

	_, err := f.svc.Session(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Lots(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Views(ctx, "missing", api.ViewQuery{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Export(ctx, "missing", api.ExportQuery{Format: "csv"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Replace(ctx, "missing", "x.csv", []byte(testutil.ExampleOrderCSV))
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "missing"), ErrSessionNotFound)
}

func TestReportService_Views(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	id := f.upload(t).ID

	tests := []struct {
		name      string
		query     api.ViewQuery
		wantTotal []domain.CustomerTotal
		wantLots  []string
	}{
		{
			name:  "all lots by default",
			query: api.ViewQuery{},
			wantTotal: []domain.CustomerTotal{
				{Kunde: domain.Str("Müller"), Gesamtanzahl: 2},
				{Kunde: domain.Str("Schmidt"), Gesamtanzahl: 1},
			},
			wantLots: []string{"A1", "A2"},
		},
		{
			name:      "single lot",
			query:     api.ViewQuery{Platz: []string{"A2"}},
			wantTotal: []domain.CustomerTotal{{Kunde: domain.Str("Schmidt"), Gesamtanzahl: 1}},
			wantLots:  []string{"A2"},
		},
		{
			name:      "unknown lot",
			query:     api.ViewQuery{Platz: []string{"Z9"}},
			wantTotal: []domain.CustomerTotal{},
			wantLots:  []string{"Z9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.svc.Views(context.Background(), id, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, views.CustomerTotals)
			assert.Equal(t, tt.wantLots, views.Selection.Lots)
			assert.Equal(t, 3, views.TotalRecords)
		})
	}
}

func TestReportService_ViewsTopN(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{TopN: 1})
	id := f.upload(t).ID

	views, err := f.svc.Views(context.Background(), id, api.ViewQuery{})
	require.NoError(t, err)
	assert.Len(t, views.TopDwellers, 2, "one per customer")

	views, err = f.svc.Views(context.Background(), id, api.ViewQuery{Top: 5})
	require.NoError(t, err)
	assert.Len(t, views.TopDwellers, 3)
}

func TestReportService_ViewsFollowCalendarDate(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	id := f.upload(t).ID

	dwell := func() []int {
		views, err := f.svc.Views(context.Background(), id, api.ViewQuery{})
		require.NoError(t, err)
		var days []int
		for _, d := range views.TopDwellers {
			days = append(days, *d.Standzeit)
		}
		return days
	}

	assert.Equal(t, []int{31, 30, 29}, dwell())

	f.clock.Advance(2 * time.Hour)
	assert.Equal(t, []int{31, 30, 29}, dwell(), "same calendar date")

	f.clock.Advance(24 * time.Hour)
	assert.Equal(t, []int{32, 31, 30}, dwell())

	summary, err := f.svc.Session(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, testutil.ExampleToday, summary.Today, "stored table is left untouched")
}

func TestReportService_View(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	id := f.upload(t).ID
	ctx := context.Background()

	rows, err := f.svc.View(ctx, id, "customer-totals", api.ViewQuery{Platz: []string{"A1"}})
	require.NoError(t, err)
	assert.Equal(t, []domain.CustomerTotal{{Kunde: domain.Str("Müller"), Gesamtanzahl: 2}}, rows)

	rows, err = f.svc.View(ctx, id, "top-dwellers", api.ViewQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = f.svc.View(ctx, id, "pivot", api.ViewQuery{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestReportService_Lots(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	data := testutil.OrderCSV(
		"Müller;N;2024-01-01;;B7;ModelX;VIN1",
		"Müller;N;2024-01-01;;;ModelX;VIN2",
		"Schmidt;G;2024-01-01;;A1;ModelX;VIN3",
		"Schmidt;G;2024-01-01;;B7;ModelX;VIN4",
	)
	summary, err := f.svc.Upload(context.Background(), "orders.csv", data)
	require.NoError(t, err)

	lots, err := f.svc.Lots(context.Background(), summary.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B7"}, lots.Lots)
	assert.Equal(t, 1, lots.UnassignedCount)

	views, err := f.svc.Views(context.Background(), summary.ID, api.ViewQuery{Unassigned: true})
	require.NoError(t, err)
	assert.Equal(t, 4, views.FilteredRecords)

	views, err = f.svc.Views(context.Background(), summary.ID, api.ViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, views.FilteredRecords)
}

func TestReportService_Replace(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	first := f.upload(t)

	f.clock.Advance(time.Minute)
	replaced, err := f.svc.Replace(context.Background(), first.ID, "next.csv", testutil.OrderCSV(
		"Weber;N;2024-01-15;;C3;ModelQ;VIN9",
	))
	require.NoError(t, err)

	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, "next.csv", replaced.FileName)
	assert.Equal(t, 1, replaced.Rows)
	assert.Equal(t, []string{"C3"}, replaced.AvailableLots)
	assert.Equal(t, first.CreatedAt, replaced.CreatedAt)
	assert.True(t, replaced.UpdatedAt.After(first.UpdatedAt))
	assert.NotEqual(t, first.Fingerprint, replaced.Fingerprint)
}

func TestReportService_ReplaceUnreadableKeepsTable(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	first := f.upload(t)

	_, err := f.svc.Replace(context.Background(), first.ID, "bad.csv", []byte("A;B\n1;2;3\n"))
	assert.ErrorIs(t, err, dataprocessing.ErrUnreadableInput)

	summary, err := f.svc.Session(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
}

func TestReportService_ListAndDelete(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	a := f.upload(t)
	f.clock.Advance(time.Second)
	b := f.upload(t)

	list := f.svc.List(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	require.NoError(t, f.svc.Delete(context.Background(), a.ID))
	_, err := f.svc.Session(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Len(t, f.svc.List(context.Background()), 1)
	assert.Equal(t, int64(1), f.int64Sum(t, "active_sessions"))
}

func TestReportService_Export(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	id := f.upload(t).ID

	tests := []struct {
		name        string
		query       api.ExportQuery
		wantName    string
		wantType    string
		wantContent string
		wantPrefix  []byte
	}{
		{
			name:       "workbook",
			query:      api.ExportQuery{Format: "xlsx"},
			wantName:   "lotreport_2024-02-01.xlsx",
			wantType:   ContentTypeXLSX,
			wantPrefix: []byte("PK\x03\x04"),
		},
		{
			name:        "single view csv",
			query:       api.ExportQuery{Format: "csv", View: "customer-totals"},
			wantName:    "lotreport_customer-totals_2024-02-01.csv",
			wantType:    ContentTypeCSV,
			wantContent: "Kunde;Gesamtanzahl\nMüller;2\nSchmidt;1\n",
			wantPrefix:  []byte{0xEF, 0xBB, 0xBF},
		},
		{
			name:        "filtered orders csv",
			query:       api.ExportQuery{ViewQuery: api.ViewQuery{Platz: []string{"A2"}}, Format: "csv"},
			wantName:    "lotreport_2024-02-01.csv",
			wantType:    ContentTypeCSV,
			wantContent: "Schmidt;N;2024-01-03;2024-01-20;A2;ModelZ;VIN3;29;true\n",
			wantPrefix:  []byte{0xEF, 0xBB, 0xBF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := f.svc.Export(context.Background(), id, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, file.Name)
			assert.Equal(t, tt.wantType, file.ContentType)
			assert.True(t, bytes.HasPrefix(file.Data, tt.wantPrefix))
			if tt.wantContent != "" {
				assert.Contains(t, string(file.Data), tt.wantContent)
			}
		})
	}

	assert.Equal(t, int64(3), f.int64Sum(t, "exports_total"))
}

func TestReportService_ExportInvalid(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})
	id := f.upload(t).ID

	_, err := f.svc.Export(context.Background(), id, api.ExportQuery{Format: "pdf"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = f.svc.Export(context.Background(), id, api.ExportQuery{Format: "csv", View: "pivot"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestReportService_Render(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})

	resp, err := f.svc.Render(context.Background(), []byte(testutil.ExampleOrderCSV), api.RenderQuery{
		ViewQuery: api.ViewQuery{Platz: []string{"A1"}},
		AsOf:      "2024-02-11",
	})
	require.NoError(t, err)

	require.Len(t, resp.Views.TopDwellers, 2)
	assert.Equal(t, 41, *resp.Views.TopDwellers[0].Standzeit)
	assert.Equal(t, time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), resp.Views.Today)
	assert.Empty(t, resp.Issues)
	assert.Empty(t, resp.MissingColumns)
	assert.Zero(t, f.svc.SessionCount(), "render does not create a session")
}

func TestReportService_RenderReportsProblems(t *testing.T) {
	f := newFixture(t, sessions.Options{}, ReportOptions{})

	resp, err := f.svc.Render(context.Background(), []byte("Auftraggeber;Fahrzeugeingang\nMüller;kaputt\n"), api.RenderQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fahrzeugart", "Auslieferung", "Platz"}, resp.MissingColumns)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "Eingang", resp.Issues[0].Column)

	_, err = f.svc.Render(context.Background(), []byte(testutil.ExampleOrderCSV), api.RenderQuery{AsOf: "01.02.2024"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = f.svc.Render(context.Background(), nil, api.RenderQuery{})
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestReportService_SweepSessions(t *testing.T) {
	f := newFixture(t, sessions.Options{TTL: time.Hour}, ReportOptions{})
	idle := f.upload(t)

	f.clock.Advance(45 * time.Minute)
	active := f.upload(t)
	assert.Zero(t, f.svc.SweepSessions(context.Background()))

	f.clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, f.svc.SweepSessions(context.Background()))

	_, err := f.svc.Session(context.Background(), idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Session(context.Background(), active.ID)
	assert.NoError(t, err)

	assert.Equal(t, int64(1), f.int64Sum(t, "sessions_expired_total"))
	assert.Equal(t, int64(1), f.int64Sum(t, "active_sessions"))
	testutil.AssertLogContains(t, f.logs, slog.LevelInfo, "Idle sessions evicted")
}

func TestReportService_NilDependencies(t *testing.T) {
	svc := NewReportService(sessions.NewMemoryStore(sessions.Options{}), ReportOptions{Loader: dataprocessing.DefaultLoaderOptions()}, nil, nil, nil)

	summary, err := svc.Upload(context.Background(), "orders.csv", []byte(testutil.ExampleOrderCSV))
	require.NoError(t, err)
	_, err = svc.Views(context.Background(), summary.ID, api.ViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.SweepSessions(context.Background()))
}

func TestSelectionFor(t *testing.T) {
	available := []string{"A1", "A2"}

	all := selectionFor(api.ViewQuery{}, available)
	assert.Equal(t, &domain.LotSelection{Lots: []string{"A1", "A2"}}, all)

	available[0] = "changed"
	assert.Equal(t, "A1", all.Lots[0], "selection owns its lots")

	assert.Equal(t,
		&domain.LotSelection{Lots: []string{"B"}, IncludeUnassigned: true},
		selectionFor(api.ViewQuery{Platz: []string{"B"}, Unassigned: true}, available))
}
