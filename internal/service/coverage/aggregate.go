package coverage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// GroupKey selects the record dimension Aggregate groups by.
type GroupKey string

const (
	GroupByRegion  GroupKey = ColumnRegion
	GroupByProduct GroupKey = ColumnProduct
	GroupByYear    GroupKey = ColumnYear
)

// Total is the per-group sum produced by Aggregate.
type Total struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Quantity int    `json:"available"`
	Required int    `json:"required"`
	Rows     int    `json:"rows"`
}

// Aggregate groups records by region and sums quantity and required quantity.
func Aggregate(records []models.StockRecord) []Total {
	return AggregateBy(records, GroupByRegion)
}

// AggregateBy groups records by the given dimension. Rows for the same group are
// additive and the result does not depend on input order: totals are sorted by
// key and the display name is the smallest spelling seen for the group.
// Records with a blank group value are skipped.
func AggregateBy(records []models.StockRecord, group GroupKey) []Total {
	groups := make(map[string]*Total)

	for _, record := range records {
		name := strings.TrimSpace(groupValue(record, group))
		if name == "" {
			continue
		}

		key := CanonicalKey(name)
		total, ok := groups[key]
		if !ok {
			total = &Total{Key: key, Name: name}
			groups[key] = total
		} else if name < total.Name {
			total.Name = name
		}

		total.Quantity += record.Quantity
		total.Required += record.Required
		total.Rows++
	}

	totals := make([]Total, 0, len(groups))
	for _, total := range groups {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Key < totals[j].Key })

	return totals
}

func groupValue(record models.StockRecord, group GroupKey) string {
	switch group {
	case GroupByProduct:
		return record.Product
	case GroupByYear:
		if record.Year == 0 {
			return ""
		}
		return strconv.Itoa(record.Year)
	default:
		return record.Region
	}
}
