package sizing

import (
	"math"

	"github.com/alphagate/alphagate/internal/decision"
)

// CheckCorrelation finds the maximum absolute correlation between the
// candidate and any existing holding and compares it to the ceiling. The
// result is recorded on the decision for audit whether or not it is safe.
// An empty portfolio is always safe.
func CheckCorrelation(holdings []Holding, ceiling float64) decision.CorrelationCheck {
	check := decision.CorrelationCheck{Safe: true}
	for _, h := range holdings {
		corr := math.Abs(h.Correlation)
		if corr > check.MaxCorrelation {
			check.MaxCorrelation = corr
			check.PeerSymbol = h.Symbol
		}
	}
	if ceiling > 0 && check.MaxCorrelation > ceiling {
		check.Safe = false
	}
	return check
}
