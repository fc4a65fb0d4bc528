package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotpulse/internal/shared/testutil"
	"lotpulse/pkg/contracts/domain"
)

func TestRenderViews_Example(t *testing.T) {
	views, issues, err := RenderViews([]byte(testutil.ExampleOrderCSV), testutil.ExampleToday, nil, DefaultRenderOptions())
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, []string{"A1", "A2"}, views.AvailableLots)
	assert.Equal(t, []string{"A1", "A2"}, views.Selection.Lots)
	assert.Equal(t, 3, views.TotalRecords)
	assert.Equal(t, 3, views.FilteredRecords)

	assert.Equal(t, []domain.CustomerTotal{
		{Kunde: domain.Str("Müller"), Gesamtanzahl: 2},
		{Kunde: domain.Str("Schmidt"), Gesamtanzahl: 1},
	}, views.CustomerTotals)

	assert.ElementsMatch(t, []domain.CategoryCount{
		{Kunde: domain.Str("Müller"), Fahrzeugart: domain.Str("N"), Anzahl: 1},
		{Kunde: domain.Str("Müller"), Fahrzeugart: domain.Str("G"), Anzahl: 1},
		{Kunde: domain.Str("Schmidt"), Fahrzeugart: domain.Str("N"), Anzahl: 1},
	}, views.CategoryCounts)

	require.Len(t, views.TopDwellers, 3)
	var standzeit []int
	var planned []bool
	for _, d := range views.TopDwellers {
		standzeit = append(standzeit, *d.Standzeit)
		planned = append(planned, d.AuslieferungVorhanden)
	}
	assert.Equal(t, []int{31, 30, 29}, standzeit)
	assert.Equal(t, []bool{true, false, true}, planned)

	require.Len(t, views.DwellAverages, 3)
	assert.Equal(t, 30.0, *views.DwellAverages[0].Standzeit)
	assert.False(t, views.DwellAverages[0].AuslieferungVorhanden)
}

func TestRenderViews_Selection(t *testing.T) {
	raw := []byte(testutil.ExampleOrderCSV)

	views, _, err := RenderViews(raw, testutil.ExampleToday, &domain.LotSelection{Lots: []string{"A2"}}, DefaultRenderOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, views.FilteredRecords)
	assert.Equal(t, []domain.CustomerTotal{{Kunde: domain.Str("Schmidt"), Gesamtanzahl: 1}}, views.CustomerTotals)
	assert.Equal(t, []string{"A1", "A2"}, views.AvailableLots)
}

func TestRenderViews_EmptySelection(t *testing.T) {
	views, _, err := RenderViews([]byte(testutil.ExampleOrderCSV), testutil.ExampleToday, &domain.LotSelection{}, DefaultRenderOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, views.FilteredRecords)
	assert.Equal(t, []domain.CategoryCount{}, views.CategoryCounts)
	assert.Equal(t, []domain.DwellAverage{}, views.DwellAverages)
	assert.Equal(t, []domain.CustomerTotal{}, views.CustomerTotals)
	assert.Equal(t, []domain.TopDweller{}, views.TopDwellers)
}

func TestRenderViews_Unreadable(t *testing.T) {
	views, issues, err := RenderViews([]byte("A;B\n1;2;3\n"), testutil.ExampleToday, nil, DefaultRenderOptions())
	assert.ErrorIs(t, err, ErrUnreadableInput)
	assert.Nil(t, views)
	assert.Nil(t, issues)
}

func TestRenderViews_FieldIssuesDoNotFail(t *testing.T) {
	raw := testutil.OrderCSV(
		"Müller;N;nie;2024-01-10;A1;ModelX;VIN1",
		"Müller;N;2024-01-11;bald;A1;ModelY;VIN2",
	)

	views, issues, err := RenderViews(raw, testutil.ExampleToday, nil, DefaultRenderOptions())
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	assert.Equal(t, []domain.CustomerTotal{{Kunde: domain.Str("Müller"), Gesamtanzahl: 2}}, views.CustomerTotals)
	require.Len(t, views.DwellAverages, 2)
	assert.Equal(t, 21.0, *views.DwellAverages[0].Standzeit)
	assert.Nil(t, views.DwellAverages[1].Standzeit, "the only planned vehicle has no intake date")
}

func TestAggregate_FullSelectionMatchesUnfiltered(t *testing.T) {
	raw := testutil.OrderCSV(
		"Müller;N;2024-01-01;2024-01-10;A1;ModelX;VIN1",
		"Müller;G;2024-01-02;;A2;ModelY;VIN2",
		"Schmidt;N;2024-01-03;2024-01-20;A3;ModelZ;VIN3",
		"Schmidt;G;2023-12-24;;A1;ModelZ;VIN4",
		";N;2023-11-11;;A3;ModelA;VIN5",
	)
	result, err := NewLoader(DefaultLoaderOptions()).Load(raw, testutil.ExampleToday)
	require.NoError(t, err)

	filtered := Aggregate(result.Table, nil, DefaultTopN)
	records := result.Table.Records

	assert.Equal(t, CategoryCounts(records), filtered.CategoryCounts)
	assert.Equal(t, DwellAverages(records), filtered.DwellAverages)
	assert.Equal(t, CustomerTotals(records), filtered.CustomerTotals)
	assert.Equal(t, TopDwellers(records, DefaultTopN), filtered.TopDwellers)
}

func TestAggregate_LotNamesAreMatchedVerbatim(t *testing.T) {
	raw := testutil.OrderCSV(
		"Müller;N;2024-01-01;2024-01-10;A1 ;ModelX;VIN1",
		"Müller;G;2024-01-02;;A1;ModelY;VIN2",
		"Schmidt;N;2024-01-03;2024-01-20;Halle 1, Reihe 2;ModelZ;VIN3",
		"Bauer;G;2023-12-24;; B7;ModelZ;VIN4",
	)
	result, err := NewLoader(DefaultLoaderOptions()).Load(raw, testutil.ExampleToday)
	require.NoError(t, err)

	lots := AvailableLots(result.Table.Records)
	require.Equal(t, []string{" B7", "A1", "A1 ", "Halle 1, Reihe 2"}, lots)

	for _, lot := range lots {
		views := Aggregate(result.Table, &domain.LotSelection{Lots: []string{lot}}, DefaultTopN)
		assert.Equal(t, 1, views.FilteredRecords, "lot %q", lot)
	}

	all := Aggregate(result.Table, &domain.LotSelection{Lots: lots}, DefaultTopN)
	records := result.Table.Records
	assert.Equal(t, len(records), all.FilteredRecords)
	assert.Equal(t, CategoryCounts(records), all.CategoryCounts)
	assert.Equal(t, DwellAverages(records), all.DwellAverages)
	assert.Equal(t, CustomerTotals(records), all.CustomerTotals)
	assert.Equal(t, TopDwellers(records, DefaultTopN), all.TopDwellers)
}

func TestAggregate_NilTable(t *testing.T) {
	views := Aggregate(nil, nil, 0)
	assert.Equal(t, 0, views.TotalRecords)
	assert.Equal(t, []string{}, views.AvailableLots)
	assert.Empty(t, views.TopDwellers)
	assert.True(t, views.Today.IsZero())
}

func TestRenderViews_Deterministic(t *testing.T) {
	raw := []byte(testutil.ExampleOrderCSV)
	today := time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC)

	a, _, err := RenderViews(raw, today, nil, DefaultRenderOptions())
	require.NoError(t, err)
	b, _, err := RenderViews(raw, today, nil, DefaultRenderOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, testutil.ExampleToday, a.Today)
}
