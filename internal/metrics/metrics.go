package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// Collector exposes coverage gauges on a private registry.
type Collector struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	coverage *prometheus.GaugeVec
	quantity *prometheus.GaugeVec
	unmapped prometheus.Gauge
	reports  prometheus.Counter
}

// New registers the coverage metrics together with the Go runtime collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ppe",
			Name:      "region_coverage_percent",
			Help:      "Coverage percentage per region from the latest report.",
		}, []string{"region", "tier"}),
		quantity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ppe",
			Name:      "region_available_quantity",
			Help:      "Available quantity per region from the latest report.",
		}, []string{"region"}),
		unmapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ppe",
			Name:      "unmapped_regions",
			Help:      "Tabular regions without a boundary counterpart in the latest report.",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ppe",
			Name:      "reports_built_total",
			Help:      "Number of coverage reports built.",
		}),
	}

	c.registry.MustRegister(
		c.coverage,
		c.quantity,
		c.unmapped,
		c.reports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveReport replaces the per-region gauges with the given rows.
func (c *Collector) ObserveReport(regions []models.RegionSummary, unmapped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.coverage.Reset()
	c.quantity.Reset()
	for _, region := range regions {
		c.coverage.WithLabelValues(region.Region, string(region.Tier)).Set(region.CoveragePercent)
		c.quantity.WithLabelValues(region.Region).Set(float64(region.TotalQuantity))
	}
	c.unmapped.Set(float64(unmapped))
	c.reports.Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
