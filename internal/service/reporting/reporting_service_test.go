package reporting

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/ppe-coverage/internal/dataset"
	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/geo"
	"github.com/mamadbah2/ppe-coverage/internal/service/coverage"
)

const boundariesDoc = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"name": "Kyiv"}, "geometry": {"type": "Point", "coordinates": [30.52, 50.45]}},
  {"type": "Feature", "properties": {"name": "Lviv"}, "geometry": {"type": "Point", "coordinates": [24.03, 49.84]}},
  {"type": "Feature", "properties": {"name": "Odesa"}, "geometry": {"type": "Point", "coordinates": [30.72, 46.48]}}
]}`

const stockCSV = `Region_Name,Product_Name,Year_Of_Manufacture,Quantity,Required_Quantity
Київ,Respirator,2023,30,40
Київ,Gloves,2024,10,0
Львів,Respirator,2023,12,20
Херсон,Gloves,2024,7,5
Одеса,Respirator,oops,1,1
`

type recorder struct {
	regions  int
	unmapped int
	calls    int
}

func (r *recorder) ObserveReport(regions []models.RegionSummary, unmapped int) {
	r.regions = len(regions)
	r.unmapped = unmapped
	r.calls++
}

func newTestService(t *testing.T, csv string) (*Service, *recorder, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stock.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	boundaries, err := geo.Decode([]byte(boundariesDoc))
	require.NoError(t, err)

	nameMap, err := coverage.RegionNameMapFromPairs(map[string]string{
		"Київ":  "Kyiv",
		"Львів": "Lviv",
		"Одеса": "Odesa",
	})
	require.NoError(t, err)

	rec := &recorder{}
	svc := NewService(dataset.NewCache(dataset.FileSource{Path: path}, nil), boundaries, nameMap, rec, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return svc, rec, path
}

func TestBuildReport(t *testing.T) {
	svc, rec, _ := newTestService(t, stockCSV)

	report, err := svc.BuildReport(context.Background(), models.Filter{})
	require.NoError(t, err)

	require.Len(t, report.Regions, 3)
	kyiv := report.Regions[0]
	assert.Equal(t, "Київ", kyiv.Region)
	assert.Equal(t, 40, kyiv.TotalQuantity)
	assert.Equal(t, 100.0, kyiv.CoveragePercent)
	assert.Equal(t, models.TierSufficient, kyiv.Tier)

	lviv := report.Regions[1]
	assert.Equal(t, 60.0, lviv.CoveragePercent)
	assert.Equal(t, 8, lviv.Shortage)
	assert.Equal(t, models.TierCritical, lviv.Tier)

	odesa := report.Regions[2]
	assert.Zero(t, odesa.TotalQuantity)

	assert.Len(t, report.Table, 4)
	assert.Equal(t, []string{"Херсон"}, report.Unmapped())
	assert.Equal(t, []string{"Львів", "Одеса"}, report.Critical())

	var invalid int
	for _, d := range report.Diagnostics {
		if d.Kind == models.DiagnosticInvalidRow {
			invalid++
			assert.Equal(t, 6, d.Row)
		}
	}
	assert.Equal(t, 1, invalid)

	assert.Equal(t, 52, report.KPIs.TotalQuantity)
	assert.Equal(t, 1, report.KPIs.TierCounts[models.TierSufficient])
	assert.Equal(t, 2, report.KPIs.TierCounts[models.TierCritical])
	assert.Equal(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), report.GeneratedAt)

	require.Len(t, report.Products, 2)
	assert.Equal(t, "Gloves", report.Products[0].Name)
	assert.Equal(t, 17, report.Products[0].Quantity)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 3, rec.regions)
	assert.Equal(t, 1, rec.unmapped)
}

func TestBuildReportFiltered(t *testing.T) {
	svc, _, _ := newTestService(t, stockCSV)

	report, err := svc.BuildReport(context.Background(), models.Filter{Products: []string{"respirator"}, Years: []int{2023}})
	require.NoError(t, err)

	assert.Equal(t, 30, report.Regions[0].TotalQuantity)
	assert.Equal(t, 75.0, report.Regions[0].CoveragePercent)
	assert.Empty(t, report.Unmapped())
	assert.Len(t, report.Regions, 3)
}

func TestFilteredReportLeavesMetricsAlone(t *testing.T) {
	svc, rec, _ := newTestService(t, stockCSV)
	ctx := context.Background()

	_, err := svc.BuildReport(ctx, models.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, rec.calls)

	_, err = svc.BuildReport(ctx, models.Filter{Products: []string{"Respirator"}})
	require.NoError(t, err)
	_, err = svc.BuildReport(ctx, models.Filter{Years: []int{2024}})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1, rec.unmapped)
	assert.Equal(t, 3, rec.regions)
}

func TestBuildReportSchemaError(t *testing.T) {
	svc, _, _ := newTestService(t, "region_name,quantity\nКиїв,3\n")

	_, err := svc.BuildReport(context.Background(), models.Filter{})
	var schemaErr *models.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestGeoJSON(t *testing.T) {
	svc, _, _ := newTestService(t, stockCSV)

	fc, report, err := svc.GeoJSON(context.Background(), models.Filter{}, geo.MetricQuantity)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, 40.0, fc.Features[0].Properties["quantity"])
	assert.Equal(t, 0.0, fc.Features[2].Properties["quantity"])
}

func TestExportXLSX(t *testing.T) {
	svc, _, _ := newTestService(t, stockCSV)

	var first, second bytes.Buffer
	require.NoError(t, svc.ExportXLSX(context.Background(), models.Filter{}, &first))
	require.NoError(t, svc.ExportXLSX(context.Background(), models.Filter{}, &second))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestReplaceAndReloadRecords(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, stockCSV)

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	err = svc.ReplaceRecords([]models.StockRecord{{Region: " ", Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	err = svc.ReplaceRecords([]models.StockRecord{{Region: "Київ", Quantity: -1}})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	require.NoError(t, svc.ReplaceRecords([]models.StockRecord{{Region: " Одеса ", Product: "Mask", Quantity: 9, Required: 9}}))

	report, err := svc.BuildReport(ctx, models.Filter{})
	require.NoError(t, err)
	assert.True(t, report.Edited)
	assert.Equal(t, 9, report.Regions[2].TotalQuantity)
	assert.Zero(t, report.Regions[0].TotalQuantity)

	reloaded, err := svc.ReloadIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded)

	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	records, err = svc.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestReloadIfStale(t *testing.T) {
	ctx := context.Background()
	svc, _, path := newTestService(t, stockCSV)

	_, err := svc.BuildReport(ctx, models.Filter{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(stockCSV+"Одеса,Mask,2024,50,10\n"), 0o600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	reloaded, err := svc.ReloadIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)

	report, err := svc.BuildReport(ctx, models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 50, report.Regions[2].TotalQuantity)
}

func TestSheetRows(t *testing.T) {
	rows := SheetRows(&Report{Table: []models.RegionSummary{{Region: "Київ", TotalQuantity: 3, TotalRequired: 4, Shortage: 1, CoveragePercent: 75, Tier: models.TierWarning}}})
	require.Len(t, rows, 2)
	assert.Equal(t, "region", rows[0][0])
	assert.Equal(t, []interface{}{"Київ", 4, 3, 1, 0, 75.0, "warning"}, rows[1])
}

func TestInvalidateDropsEditsAndRereadsSource(t *testing.T) {
	svc, _, path := newTestService(t, stockCSV)
	ctx := context.Background()

	require.NoError(t, svc.ReplaceRecords([]models.StockRecord{{Region: "Київ", Product: "Gloves", Quantity: 1}}))
	require.NoError(t, os.WriteFile(path, []byte("region_name,product_name,year_of_manufacture,quantity\nЛьвів,Gloves,2024,9\n"), 0o600))

	svc.Invalidate()

	report, err := svc.BuildReport(ctx, models.Filter{})
	require.NoError(t, err)
	assert.False(t, report.Edited)
	assert.False(t, report.HasRequired)
	assert.Equal(t, 9, report.Regions[1].TotalQuantity)
	assert.Equal(t, 100.0, report.Regions[1].SharePercent)
}
