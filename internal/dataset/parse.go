package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/service/coverage"
)

// Dataset is a parsed stock source. Callers must treat Records as read-only.
type Dataset struct {
	Source      string
	Fingerprint string
	Records     []models.StockRecord
	Diagnostics []models.Diagnostic
	HasRequired bool
	Edited      bool
}

// Parse converts raw rows into stock records. A missing required column is fatal
// and returned as *models.SchemaError; malformed rows are skipped and reported
// as invalid_row diagnostics.
func Parse(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, &models.SchemaError{Missing: append([]string(nil), coverage.RequiredColumns...)}
	}

	normalized, err := coverage.NormalizeColumns(rows[0])
	if err != nil {
		return nil, err
	}
	index := coverage.ColumnIndex(normalized)
	requiredIdx, hasRequired := index[coverage.ColumnRequired]

	ds := &Dataset{HasRequired: hasRequired}

	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}

		record := models.StockRecord{
			Region:  strings.TrimSpace(cell(row, index[coverage.ColumnRegion])),
			Product: strings.TrimSpace(cell(row, index[coverage.ColumnProduct])),
		}
		if record.Region == "" {
			ds.Diagnostics = append(ds.Diagnostics, invalidRow(line, coverage.ColumnRegion, "region name is empty"))
			continue
		}

		year, err := parseCount(cell(row, index[coverage.ColumnYear]), true)
		if err != nil {
			ds.Diagnostics = append(ds.Diagnostics, invalidRow(line, coverage.ColumnYear, err.Error()))
			continue
		}
		record.Year = year

		quantity, err := parseCount(cell(row, index[coverage.ColumnQuantity]), false)
		if err != nil {
			ds.Diagnostics = append(ds.Diagnostics, invalidRow(line, coverage.ColumnQuantity, err.Error()))
			continue
		}
		record.Quantity = quantity

		if hasRequired {
			required, err := parseCount(cell(row, requiredIdx), true)
			if err != nil {
				ds.Diagnostics = append(ds.Diagnostics, invalidRow(line, coverage.ColumnRequired, err.Error()))
				continue
			}
			record.Required = required
		}

		ds.Records = append(ds.Records, record)
	}

	return ds, nil
}

func invalidRow(line int, column, message string) models.Diagnostic {
	return models.Diagnostic{
		Kind:    models.DiagnosticInvalidRow,
		Row:     line,
		Column:  column,
		Message: message,
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blank(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

var digitGrouping = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "_", "")

// parseCount accepts non-negative integers, tolerating digit grouping and
// integral decimals such as "12.0".
func parseCount(raw string, emptyIsZero bool) (int, error) {
	value := digitGrouping.Replace(strings.TrimSpace(raw))
	if value == "" {
		if emptyIsZero {
			return 0, nil
		}
		return 0, fmt.Errorf("empty numeric value")
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("%q is not a whole number", raw)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("%q is negative", raw)
	}
	return n, nil
}
