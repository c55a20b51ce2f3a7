package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// SheetName is the single worksheet of the export.
const SheetName = "Coverage"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Fixed document timestamp so identical input yields identical bytes.
const documentTimestamp = "2000-01-01T00:00:00Z"

var header = []interface{}{"region", "required", "available", "shortage", "surplus", "coverage_percent", "tier"}

var tierFills = map[models.Tier]string{
	models.TierSufficient: "#C6EFCE",
	models.TierWarning:    "#FFEB9C",
	models.TierCritical:   "#FFC7CE",
}

// WriteXLSX renders the summary rows (already ordered by the caller) and the
// KPI footer into a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []models.RegionSummary, kpis models.KPIs) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Created:  documentTimestamp,
		Modified: documentTimestamp,
		Creator:  "ppe-coverage",
		Title:    "PPE coverage by region",
	}); err != nil {
		return fmt.Errorf("set document properties: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	tierStyles := make(map[models.Tier]int, len(tierFills))
	for _, tier := range []models.Tier{models.TierSufficient, models.TierWarning, models.TierCritical} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{tierFills[tier]}},
		})
		if err != nil {
			return fmt.Errorf("create tier style: %w", err)
		}
		tierStyles[tier] = style
	}

	for i, row := range rows {
		line := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, line)
		values := []interface{}{
			row.Region,
			row.TotalRequired,
			row.TotalQuantity,
			row.Shortage,
			row.Surplus,
			row.CoveragePercent,
			string(row.Tier),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", line, err)
		}
		if style, ok := tierStyles[row.Tier]; ok {
			tierCell, _ := excelize.CoordinatesToCellName(7, line)
			if err := f.SetCellStyle(SheetName, tierCell, tierCell, style); err != nil {
				return fmt.Errorf("style row %d: %w", line, err)
			}
		}
	}

	footer := len(rows) + 3
	kpiRows := [][]interface{}{
		{"total_available", kpis.TotalQuantity},
		{"total_required", kpis.TotalRequired},
		{"mean_coverage_percent", kpis.MeanCoverage},
	}
	for i, kpi := range kpiRows {
		cell, _ := excelize.CoordinatesToCellName(1, footer+i)
		if err := f.SetSheetRow(SheetName, cell, &kpi); err != nil {
			return fmt.Errorf("write kpi: %w", err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "G", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return repack(w, buf.Bytes())
}

// repack rewrites the archive with entries sorted by name and no timestamps;
// excelize does not guarantee entry order between runs.
func repack(w io.Writer, archive []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open workbook archive: %w", err)
	}

	files := append([]*zip.File(nil), reader.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	zw := zip.NewWriter(w)
	for _, file := range files {
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("read %s: %w", file.Name, err)
		}
		dst, err := zw.CreateHeader(&zip.FileHeader{Name: file.Name, Method: zip.Deflate})
		if err != nil {
			src.Close()
			return fmt.Errorf("create %s: %w", file.Name, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return fmt.Errorf("copy %s: %w", file.Name, err)
		}
		src.Close()
	}
	return zw.Close()
}
