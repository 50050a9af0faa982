package balance

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero at two fraction digits. The float is
// first taken at its shortest decimal representation, so 2.675 rounds to
// 2.68 even though its binary value sits just below.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Add2 returns Round2(a + b) with the addition done in decimal space.
func Add2(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Delta2 returns Round2(total + next - prev) as a single step.
func Delta2(total, prev, next float64) float64 {
	return decimal.NewFromFloat(total).
		Add(decimal.NewFromFloat(next)).
		Sub(decimal.NewFromFloat(prev)).
		Round(2).
		InexactFloat64()
}
