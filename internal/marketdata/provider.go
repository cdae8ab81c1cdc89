package marketdata

import (
	"errors"
	"time"
)

// ErrUnavailable signals that a quote exists in principle but could not
// be produced. Callers must treat this distinctly from a zero price.
var ErrUnavailable = errors.New("market data unavailable")

// OHLCV is one bar of market data.
type OHLCV struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
