package coverage

import (
	"math"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

const (
	sufficientThreshold = 100.0
	warningThreshold    = 75.0
)

// ComputeCoverage derives coverage, shortage and surplus for one region.
// Coverage is 0 when nothing is required.
func ComputeCoverage(quantity, required int) (percent float64, shortage, surplus int) {
	shortage = max(0, required-quantity)
	surplus = max(0, quantity-required)

	if required <= 0 {
		return 0, shortage, surplus
	}

	percent = round1(100 * float64(quantity) / float64(required))
	if percent < 0 {
		percent = 0
	}
	return percent, shortage, surplus
}

// ClassifyCoverage buckets a coverage percentage. Lower bounds are inclusive.
func ClassifyCoverage(percent float64) models.Tier {
	switch {
	case percent >= sufficientThreshold:
		return models.TierSufficient
	case percent >= warningThreshold:
		return models.TierWarning
	default:
		return models.TierCritical
	}
}

// SharePercent expresses quantity relative to the best-stocked region.
func SharePercent(quantity, maxQuantity int) float64 {
	if maxQuantity <= 0 || quantity <= 0 {
		return 0
	}
	return round1(100 * float64(quantity) / float64(maxQuantity))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
