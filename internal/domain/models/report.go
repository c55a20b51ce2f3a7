package models

import "time"

// Tier is the severity bucket derived from a coverage percentage.
type Tier string

const (
	TierSufficient Tier = "sufficient"
	TierWarning    Tier = "warning"
	TierCritical   Tier = "critical"
)

// RegionSummary holds aggregated stock figures for one administrative region.
type RegionSummary struct {
	Region          string  `json:"region"`
	BoundaryID      string  `json:"boundary_id,omitempty"`
	Mapped          bool    `json:"mapped"`
	TotalQuantity   int     `json:"available"`
	TotalRequired   int     `json:"required"`
	Shortage        int     `json:"shortage"`
	Surplus         int     `json:"surplus"`
	CoveragePercent float64 `json:"coverage_percent"`
	SharePercent    float64 `json:"share_percent"`
	Tier            Tier    `json:"tier"`
}

// KPIs summarises the regions that take part in the map join.
type KPIs struct {
	TotalQuantity int          `json:"total_quantity" bson:"total_quantity"`
	TotalRequired int          `json:"total_required" bson:"total_required"`
	MeanCoverage  float64      `json:"mean_coverage" bson:"mean_coverage"`
	MeanShare     float64      `json:"mean_share" bson:"mean_share"`
	TierCounts    map[Tier]int `json:"tier_counts" bson:"tier_counts"`
}

// CoverageSnapshot is the KPI document stored after each scheduled run.
type CoverageSnapshot struct {
	ID          string    `bson:"_id" json:"id"`
	Source      string    `bson:"source" json:"source"`
	Fingerprint string    `bson:"fingerprint" json:"fingerprint"`
	KPIs        KPIs      `bson:"kpis" json:"kpis"`
	Critical    []string  `bson:"critical" json:"critical"`
	Unmapped    []string  `bson:"unmapped" json:"unmapped"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
