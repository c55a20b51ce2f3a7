package coverage

import (
	"strings"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// ApplyFilter returns the records matching every non-empty filter dimension.
func ApplyFilter(filter models.Filter, records []models.StockRecord) []models.StockRecord {
	products := keySet(filter.Products)
	regions := keySet(filter.Regions)
	years := make(map[int]bool, len(filter.Years))
	for _, year := range filter.Years {
		years[year] = true
	}

	out := make([]models.StockRecord, 0, len(records))
	for _, record := range records {
		if len(products) > 0 && !products[CanonicalKey(record.Product)] {
			continue
		}
		if len(regions) > 0 && !regions[CanonicalKey(record.Region)] {
			continue
		}
		if len(years) > 0 && !years[record.Year] {
			continue
		}
		out = append(out, record)
	}
	return out
}

func keySet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		set[CanonicalKey(value)] = true
	}
	return set
}
