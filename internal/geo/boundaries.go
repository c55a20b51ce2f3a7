package geo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/service/coverage"
)

// NameProperty is the feature property used as the join key.
const NameProperty = "name"

// ErrUnknownMetric indicates an unsupported choropleth metric.
var ErrUnknownMetric = errors.New("unknown metric")

// Metric selects the numeric property injected into each feature.
type Metric string

const (
	MetricQuantity Metric = "quantity"
	MetricCoverage Metric = "coverage"
	MetricShare    Metric = "share"
)

// ParseMetric validates a metric name; empty defaults to coverage.
func ParseMetric(value string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(value))) {
	case "", MetricCoverage:
		return MetricCoverage, nil
	case MetricQuantity:
		return MetricQuantity, nil
	case MetricShare:
		return MetricShare, nil
	default:
		return "", fmt.Errorf("%q: %w", value, ErrUnknownMetric)
	}
}

// Boundaries is a loaded FeatureCollection together with its region identifiers.
type Boundaries struct {
	Collection *geojson.FeatureCollection
	IDs        []string
	// Unnamed counts features without a usable name property.
	Unnamed int
}

// Load reads a FeatureCollection from disk.
func Load(path string) (*Boundaries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode parses a FeatureCollection document.
func Decode(raw []byte) (*Boundaries, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode boundaries: %w", err)
	}
	ids, unnamed := KnownRegionIDs(fc)
	return &Boundaries{Collection: fc, IDs: ids, Unnamed: unnamed}, nil
}

// KnownRegionIDs lists the distinct feature names in document order and counts
// features that have none.
func KnownRegionIDs(fc *geojson.FeatureCollection) ([]string, int) {
	if fc == nil {
		return nil, 0
	}

	seen := make(map[string]bool, len(fc.Features))
	ids := make([]string, 0, len(fc.Features))
	unnamed := 0
	for _, feature := range fc.Features {
		name := featureName(feature)
		if name == "" {
			unnamed++
			continue
		}
		key := coverage.CanonicalKey(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, name)
	}
	return ids, unnamed
}

// Join returns a copy of the collection with the selected metric, tier and
// region name injected into every feature's properties. Features without a
// matching mapped row get zero. The input collection is left untouched.
func Join(fc *geojson.FeatureCollection, rows []models.RegionSummary, metric Metric) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	out.BBox = fc.BBox

	byBoundary := make(map[string]models.RegionSummary, len(rows))
	for _, row := range rows {
		if !row.Mapped {
			continue
		}
		byBoundary[coverage.CanonicalKey(row.BoundaryID)] = row
	}

	for _, feature := range fc.Features {
		joined := &geojson.Feature{
			ID:         feature.ID,
			Type:       feature.Type,
			BBox:       feature.BBox,
			Geometry:   feature.Geometry,
			Properties: feature.Properties.Clone(),
		}
		if joined.Properties == nil {
			joined.Properties = geojson.Properties{}
		}

		row, ok := byBoundary[coverage.CanonicalKey(featureName(feature))]
		if !ok {
			row = models.RegionSummary{Tier: models.TierCritical}
		}
		joined.Properties[string(metric)] = metricValue(row, metric)
		joined.Properties["tier"] = string(row.Tier)
		if row.Region != "" {
			joined.Properties["region"] = row.Region
		}

		out.Append(joined)
	}

	return out
}

func metricValue(row models.RegionSummary, metric Metric) float64 {
	switch metric {
	case MetricQuantity:
		return float64(row.TotalQuantity)
	case MetricShare:
		return row.SharePercent
	default:
		return row.CoveragePercent
	}
}

func featureName(feature *geojson.Feature) string {
	if feature == nil || feature.Properties == nil {
		return ""
	}
	name, _ := feature.Properties[NameProperty].(string)
	return strings.TrimSpace(name)
}
