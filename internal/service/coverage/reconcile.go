package coverage

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// Result is the outcome of reconciling aggregated totals with the boundary dataset.
type Result struct {
	// Regions holds exactly one row per known boundary identifier, in boundary order.
	Regions []models.RegionSummary
	// Unmapped holds tabular regions that cannot be joined to any boundary.
	Unmapped    []models.RegionSummary
	Diagnostics []models.Diagnostic
}

// Table returns every row, mapped or not, ordered by region name in
// Ukrainian alphabetical order.
func (r Result) Table() []models.RegionSummary {
	rows := make([]models.RegionSummary, 0, len(r.Regions)+len(r.Unmapped))
	rows = append(rows, r.Regions...)
	rows = append(rows, r.Unmapped...)

	// A Collator is not safe for concurrent use.
	collator := collate.New(language.Ukrainian, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := CanonicalKey(rows[i].Region), CanonicalKey(rows[j].Region)
		if cmp := collator.CompareString(a, b); cmp != 0 {
			return cmp < 0
		}
		return a < b
	})
	return rows
}

// Reconcile joins per-region totals onto the known boundary identifiers. Known
// regions missing from the data are zero-filled. Totals whose name has no
// mapping, or whose mapped boundary is not known, produce one
// unmapped_region diagnostic each and are kept only in Unmapped.
func Reconcile(partial []Total, nameMap *RegionNameMap, knownIDs []string) Result {
	known := make(map[string]string, len(knownIDs))
	order := make([]string, 0, len(knownIDs))
	for _, id := range knownIDs {
		key := CanonicalKey(id)
		if key == "" {
			continue
		}
		if _, dup := known[key]; dup {
			continue
		}
		known[key] = id
		order = append(order, key)
	}

	var result Result
	byBoundary := make(map[string]Total, len(partial))
	maxQuantity := 0

	for _, total := range partial {
		maxQuantity = max(maxQuantity, total.Quantity)

		boundary, ok := nameMap.Lookup(total.Name)
		var reason string
		switch {
		case !ok:
			reason = fmt.Sprintf("region %q has no boundary mapping", total.Name)
		case known[CanonicalKey(boundary)] == "":
			reason = fmt.Sprintf("region %q maps to %q which is not in the boundary dataset", total.Name, boundary)
		}
		if reason != "" {
			result.Unmapped = append(result.Unmapped, buildSummary(total.Name, "", false, total.Quantity, total.Required))
			result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
				Kind:    models.DiagnosticUnmappedRegion,
				Region:  total.Name,
				Message: reason,
			})
			continue
		}

		key := CanonicalKey(boundary)
		merged := byBoundary[key]
		merged.Quantity += total.Quantity
		merged.Required += total.Required
		merged.Rows += total.Rows
		byBoundary[key] = merged
	}

	for _, key := range order {
		id := known[key]
		name, ok := nameMap.CanonicalName(id)
		if !ok {
			name = id
		}
		total := byBoundary[key]
		result.Regions = append(result.Regions, buildSummary(name, id, true, total.Quantity, total.Required))
	}

	for i := range result.Regions {
		result.Regions[i].SharePercent = SharePercent(result.Regions[i].TotalQuantity, maxQuantity)
	}
	for i := range result.Unmapped {
		result.Unmapped[i].SharePercent = SharePercent(result.Unmapped[i].TotalQuantity, maxQuantity)
	}

	result.Diagnostics = append(result.Diagnostics, emptyDenominators(result.Table(), len(partial) == 0)...)
	return result
}

func buildSummary(region, boundaryID string, mapped bool, quantity, required int) models.RegionSummary {
	percent, shortage, surplus := ComputeCoverage(quantity, required)
	return models.RegionSummary{
		Region:          region,
		BoundaryID:      boundaryID,
		Mapped:          mapped,
		TotalQuantity:   quantity,
		TotalRequired:   required,
		Shortage:        shortage,
		Surplus:         surplus,
		CoveragePercent: percent,
		Tier:            ClassifyCoverage(percent),
	}
}

func emptyDenominators(rows []models.RegionSummary, noRecords bool) []models.Diagnostic {
	var diagnostics []models.Diagnostic
	if noRecords {
		diagnostics = append(diagnostics, models.Diagnostic{
			Kind:    models.DiagnosticEmptyDataset,
			Message: "no stock records matched; every region reported at 0%",
		})
	}
	for _, row := range rows {
		if row.TotalRequired > 0 {
			continue
		}
		diagnostics = append(diagnostics, models.Diagnostic{
			Kind:    models.DiagnosticEmptyDataset,
			Region:  row.Region,
			Message: "required quantity is zero; coverage reported as 0%",
		})
	}
	return diagnostics
}
