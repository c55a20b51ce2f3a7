package coverage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

func TestComputeCoverage(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		required int
		percent  float64
		shortage int
		surplus  int
	}{
		{"nothing required", 0, 0, 0, 0, 0},
		{"half covered", 50, 100, 50.0, 50, 0},
		{"over covered", 150, 100, 150.0, 0, 50},
		{"stock without requirement", 40, 0, 0, 0, 40},
		{"rounded to one decimal", 2, 3, 66.7, 1, 0},
		{"exactly covered", 40, 40, 100.0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			percent, shortage, surplus := ComputeCoverage(tc.quantity, tc.required)
			assert.Equal(t, tc.percent, percent)
			assert.Equal(t, tc.shortage, shortage)
			assert.Equal(t, tc.surplus, surplus)
		})
	}
}

func TestClassifyCoverage(t *testing.T) {
	assert.Equal(t, models.TierSufficient, ClassifyCoverage(100.0))
	assert.Equal(t, models.TierSufficient, ClassifyCoverage(250.0))
	assert.Equal(t, models.TierWarning, ClassifyCoverage(99.9))
	assert.Equal(t, models.TierWarning, ClassifyCoverage(75.0))
	assert.Equal(t, models.TierCritical, ClassifyCoverage(74.9))
	assert.Equal(t, models.TierCritical, ClassifyCoverage(0.0))
	assert.Equal(t, models.TierCritical, ClassifyCoverage(math.NaN()))
}

func TestSharePercent(t *testing.T) {
	assert.Equal(t, 0.0, SharePercent(10, 0))
	assert.Equal(t, 100.0, SharePercent(80, 80))
	assert.Equal(t, 25.0, SharePercent(20, 80))
}

func TestComputeKPIs(t *testing.T) {
	regions := []models.RegionSummary{
		{Region: "A", TotalQuantity: 40, TotalRequired: 40, CoveragePercent: 100, SharePercent: 100, Tier: models.TierSufficient},
		{Region: "B", TotalQuantity: 0, TotalRequired: 0, CoveragePercent: 0, SharePercent: 0, Tier: models.TierCritical},
		{Region: "C", TotalQuantity: 20, TotalRequired: 25, CoveragePercent: 80, SharePercent: 50, Tier: models.TierWarning},
	}

	kpis := ComputeKPIs(regions)

	assert.Equal(t, 60, kpis.TotalQuantity)
	assert.Equal(t, 65, kpis.TotalRequired)
	assert.Equal(t, 60.0, kpis.MeanCoverage)
	assert.Equal(t, 50.0, kpis.MeanShare)
	assert.Equal(t, map[models.Tier]int{
		models.TierSufficient: 1,
		models.TierWarning:    1,
		models.TierCritical:   1,
	}, kpis.TierCounts)
}

func TestComputeKPIsEmpty(t *testing.T) {
	kpis := ComputeKPIs(nil)
	assert.Zero(t, kpis.MeanCoverage)
	assert.Len(t, kpis.TierCounts, 3)
}
