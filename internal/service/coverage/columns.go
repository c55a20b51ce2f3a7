package coverage

import (
	"strings"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// Logical column names recognised in tabular stock sources.
const (
	ColumnRegion   = "region_name"
	ColumnProduct  = "product_name"
	ColumnYear     = "year_of_manufacture"
	ColumnQuantity = "quantity"
	ColumnRequired = "required_quantity"
)

// RequiredColumns lists the logical columns every stock source must carry.
var RequiredColumns = []string{ColumnRegion, ColumnProduct, ColumnYear, ColumnQuantity}

var columnAliases = map[string]string{
	"region":       ColumnRegion,
	"oblast":       ColumnRegion,
	"product":      ColumnProduct,
	"item":         ColumnProduct,
	"year":         ColumnYear,
	"qty":          ColumnQuantity,
	"required":     ColumnRequired,
	"required_qty": ColumnRequired,
	"need":         ColumnRequired,
	"needed":       ColumnRequired,
}

// NormalizeColumns trims and lower-cases headers so differently formatted sources
// resolve to the same logical columns. It returns a *models.SchemaError naming
// every required column that is still absent afterwards.
func NormalizeColumns(headers []string) ([]string, error) {
	normalized := make([]string, len(headers))
	present := make(map[string]bool, len(headers))

	for i, header := range headers {
		name := normalizeHeader(header)
		normalized[i] = name
		present[name] = true
	}

	var missing []string
	for _, column := range RequiredColumns {
		if !present[column] {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return normalized, &models.SchemaError{Missing: missing}
	}

	return normalized, nil
}

// ColumnIndex maps each normalized header to its position. The first occurrence wins.
func ColumnIndex(normalized []string) map[string]int {
	index := make(map[string]int, len(normalized))
	for i, name := range normalized {
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return index
}

func normalizeHeader(header string) string {
	name := strings.TrimPrefix(header, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	if alias, ok := columnAliases[name]; ok {
		return alias
	}
	return name
}
