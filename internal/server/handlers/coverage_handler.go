package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/dataset"
	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/export"
	"github.com/mamadbah2/ppe-coverage/internal/geo"
	"github.com/mamadbah2/ppe-coverage/internal/service/reporting"
)

// ReportService describes the operations the HTTP layer can perform.
type ReportService interface {
	BuildReport(ctx context.Context, filter models.Filter) (*reporting.Report, error)
	GeoJSON(ctx context.Context, filter models.Filter, metric geo.Metric) (*geojson.FeatureCollection, *reporting.Report, error)
	ExportXLSX(ctx context.Context, filter models.Filter, w io.Writer) error
	Records(ctx context.Context) ([]models.StockRecord, error)
	ReplaceRecords(records []models.StockRecord) error
	Reload(ctx context.Context) (*dataset.Dataset, error)
	Invalidate()
}

// CoverageHandler serves coverage reports over HTTP.
type CoverageHandler struct {
	svc    ReportService
	logger *zap.Logger
}

// NewCoverageHandler constructs the HTTP handler adapter.
func NewCoverageHandler(svc ReportService, logger *zap.Logger) *CoverageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverageHandler{svc: svc, logger: logger}
}

// Summary returns the reconciled report for the requested filter.
func (h *CoverageHandler) Summary(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	report, err := h.svc.BuildReport(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "failed building summary", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Diagnostics returns only the warnings of the report.
func (h *CoverageHandler) Diagnostics(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	report, err := h.svc.BuildReport(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "failed building diagnostics", err)
		return
	}

	diagnostics := report.Diagnostics
	if diagnostics == nil {
		diagnostics = []models.Diagnostic{}
	}
	c.JSON(http.StatusOK, gin.H{"diagnostics": diagnostics, "unmapped": report.Unmapped()})
}

// GeoJSON returns the boundary collection joined with the selected metric.
func (h *CoverageHandler) GeoJSON(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	metric, err := geo.ParseMetric(c.Query("metric"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fc, report, err := h.svc.GeoJSON(c.Request.Context(), filter, metric)
	if err != nil {
		h.fail(c, "failed joining boundaries", err)
		return
	}

	body, err := json.Marshal(fc)
	if err != nil {
		h.fail(c, "failed encoding geojson", err)
		return
	}

	c.Header("X-Unmapped-Regions", strconv.Itoa(len(report.Unmapped())))
	c.Data(http.StatusOK, "application/geo+json", body)
}

// Export streams the summary as an XLSX workbook.
func (h *CoverageHandler) Export(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(c.Request.Context(), filter, &buf); err != nil {
		h.fail(c, "failed exporting workbook", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="ppe-coverage.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// ListRecords returns the working copy of stock records.
func (h *CoverageHandler) ListRecords(c *gin.Context) {
	records, err := h.svc.Records(c.Request.Context())
	if err != nil {
		h.fail(c, "failed listing records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ReplaceRecords swaps the working copy for the submitted records.
func (h *CoverageHandler) ReplaceRecords(c *gin.Context) {
	var records []models.StockRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		h.logger.Warn("invalid records payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.ReplaceRecords(records); err != nil {
		h.fail(c, "failed replacing records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": len(records)})
}

// Reload rereads the stock source and drops working-copy edits.
func (h *CoverageHandler) Reload(c *gin.Context) {
	ds, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		h.fail(c, "failed reloading dataset", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source":       ds.Source,
		"records":      len(ds.Records),
		"invalid_rows": len(ds.Diagnostics),
	})
}

// Invalidate drops the cached dataset without reading the source.
func (h *CoverageHandler) Invalidate(c *gin.Context) {
	h.svc.Invalidate()
	c.Status(http.StatusNoContent)
}

func (h *CoverageHandler) bindFilter(c *gin.Context) (models.Filter, bool) {
	filter := models.Filter{
		Products: splitQuery(c.QueryArray("product")),
		Regions:  splitQuery(c.QueryArray("region")),
	}

	for _, raw := range splitQuery(c.QueryArray("year")) {
		year, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid year %q", raw)})
			return models.Filter{}, false
		}
		filter.Years = append(filter.Years, year)
	}

	return filter, true
}

func (h *CoverageHandler) fail(c *gin.Context, msg string, err error) {
	var schemaErr *models.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		h.logger.Warn(msg, zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "dataset schema mismatch", "missing_columns": schemaErr.Missing})
	case errors.Is(err, reporting.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// splitQuery accepts both repeated parameters and comma-separated values.
func splitQuery(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
