package reporting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/dataset"
	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/export"
	"github.com/mamadbah2/ppe-coverage/internal/geo"
	"github.com/mamadbah2/ppe-coverage/internal/service/coverage"
)

// ErrInvalidRecord indicates an edited record that cannot enter the working copy.
var ErrInvalidRecord = errors.New("invalid stock record")

// MetricsRecorder receives the outcome of every unfiltered report build.
type MetricsRecorder interface {
	ObserveReport(regions []models.RegionSummary, unmapped int)
}

// Report is the reconciled view of the stock dataset under one filter.
type Report struct {
	Source      string                 `json:"source"`
	Fingerprint string                 `json:"fingerprint"`
	Edited      bool                   `json:"edited"`
	HasRequired bool                   `json:"has_required"`
	Filter      models.Filter          `json:"filter"`
	Regions     []models.RegionSummary `json:"regions"`
	Table       []models.RegionSummary `json:"table"`
	Products    []coverage.Total       `json:"products"`
	KPIs        models.KPIs            `json:"kpis"`
	Diagnostics []models.Diagnostic    `json:"diagnostics"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Critical lists mapped regions in the critical tier.
func (r *Report) Critical() []string {
	var names []string
	for _, region := range r.Regions {
		if region.Tier == models.TierCritical {
			names = append(names, region.Region)
		}
	}
	return names
}

// Unmapped lists tabular regions excluded from the map join.
func (r *Report) Unmapped() []string {
	var names []string
	for _, d := range r.Diagnostics {
		if d.Kind == models.DiagnosticUnmappedRegion {
			names = append(names, d.Region)
		}
	}
	return names
}

// Service builds coverage reports from the cached dataset and static reference data.
type Service struct {
	cache      *dataset.Cache
	boundaries *geo.Boundaries
	nameMap    *coverage.RegionNameMap
	metrics    MetricsRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires a new reporting service instance. metrics may be nil.
func NewService(cache *dataset.Cache, boundaries *geo.Boundaries, nameMap *coverage.RegionNameMap, metrics MetricsRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:      cache,
		boundaries: boundaries,
		nameMap:    nameMap,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// BuildReport filters, aggregates and reconciles the current working copy.
// Schema errors are returned; every other condition lands in Diagnostics.
func (s *Service) BuildReport(ctx context.Context, filter models.Filter) (*Report, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	records := coverage.ApplyFilter(filter, ds.Records)
	result := coverage.Reconcile(coverage.Aggregate(records), s.nameMap, s.boundaries.IDs)

	report := &Report{
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		Edited:      ds.Edited,
		HasRequired: ds.HasRequired,
		Filter:      filter,
		Regions:     result.Regions,
		Table:       result.Table(),
		Products:    coverage.AggregateBy(records, coverage.GroupByProduct),
		KPIs:        coverage.ComputeKPIs(result.Regions),
		GeneratedAt: s.now().UTC(),
	}
	report.Diagnostics = append(report.Diagnostics, ds.Diagnostics...)
	report.Diagnostics = append(report.Diagnostics, result.Diagnostics...)

	if len(result.Unmapped) > 0 {
		s.logger.Warn("regions excluded from map join", zap.Strings("regions", report.Unmapped()))
	}
	s.logger.Debug("report built",
		zap.Int("records", len(records)),
		zap.Int("regions", len(report.Regions)),
		zap.Int("diagnostics", len(report.Diagnostics)))

	// Gauges describe the whole dataset; filtered views must not replace them.
	if s.metrics != nil && filter.IsEmpty() {
		s.metrics.ObserveReport(report.Regions, len(result.Unmapped))
	}

	return report, nil
}

// GeoJSON returns the boundary collection joined with the report for the chosen metric.
func (s *Service) GeoJSON(ctx context.Context, filter models.Filter, metric geo.Metric) (*geojson.FeatureCollection, *Report, error) {
	report, err := s.BuildReport(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return geo.Join(s.boundaries.Collection, report.Regions, metric), report, nil
}

// ExportXLSX writes the tabular summary as a single-sheet workbook.
func (s *Service) ExportXLSX(ctx context.Context, filter models.Filter, w io.Writer) error {
	report, err := s.BuildReport(ctx, filter)
	if err != nil {
		return err
	}
	if err := export.WriteXLSX(w, report.Table, report.KPIs); err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}
	return nil
}

// Records returns the current working copy.
func (s *Service) Records(ctx context.Context) ([]models.StockRecord, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return append([]models.StockRecord(nil), ds.Records...), nil
}

// ReplaceRecords swaps the working copy for edited records until the next reload.
func (s *Service) ReplaceRecords(records []models.StockRecord) error {
	cleaned := make([]models.StockRecord, len(records))
	for i, record := range records {
		record.Region = strings.TrimSpace(record.Region)
		record.Product = strings.TrimSpace(record.Product)
		switch {
		case record.Region == "":
			return fmt.Errorf("record %d: empty region: %w", i, ErrInvalidRecord)
		case record.Quantity < 0 || record.Required < 0 || record.Year < 0:
			return fmt.Errorf("record %d: negative value: %w", i, ErrInvalidRecord)
		}
		cleaned[i] = record
	}
	s.cache.Replace(cleaned)
	return nil
}

// Reload rereads the source, dropping any working-copy edits.
func (s *Service) Reload(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := s.cache.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload dataset: %w", err)
	}
	return ds, nil
}

// Invalidate drops the cached dataset and any edits; the next request reloads the source.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

// ReloadIfStale reloads only when the source fingerprint changed.
func (s *Service) ReloadIfStale(ctx context.Context) (bool, error) {
	stale, err := s.cache.Stale(ctx)
	if err != nil {
		return false, err
	}
	if !stale {
		return false, nil
	}
	if _, err := s.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// SheetRows renders the report table in the export column order, header first.
func SheetRows(report *Report) [][]interface{} {
	rows := make([][]interface{}, 0, len(report.Table)+1)
	rows = append(rows, []interface{}{"region", "required", "available", "shortage", "surplus", "coverage_percent", "tier"})
	for _, row := range report.Table {
		rows = append(rows, []interface{}{
			row.Region,
			row.TotalRequired,
			row.TotalQuantity,
			row.Shortage,
			row.Surplus,
			row.CoveragePercent,
			string(row.Tier),
		})
	}
	return rows
}
