package coverage

import "github.com/mamadbah2/ppe-coverage/internal/domain/models"

// ComputeKPIs summarises the geographic rows of a reconciliation.
func ComputeKPIs(regions []models.RegionSummary) models.KPIs {
	kpis := models.KPIs{
		TierCounts: map[models.Tier]int{
			models.TierSufficient: 0,
			models.TierWarning:    0,
			models.TierCritical:   0,
		},
	}
	if len(regions) == 0 {
		return kpis
	}

	var coverageSum, shareSum float64
	for _, region := range regions {
		kpis.TotalQuantity += region.TotalQuantity
		kpis.TotalRequired += region.TotalRequired
		kpis.TierCounts[region.Tier]++
		coverageSum += region.CoveragePercent
		shareSum += region.SharePercent
	}

	n := float64(len(regions))
	kpis.MeanCoverage = round1(coverageSum / n)
	kpis.MeanShare = round1(shareSum / n)
	return kpis
}
