package backtest

import (
	"math/rand"
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
)

// Regime is one drift/volatility phase of generated price history.
type Regime struct {
	Bars  int
	Drift float64 // per-bar fractional drift
	Vol   float64 // per-bar fractional noise scale
}

// GenerateBars produces regime-switching daily bars from a seeded random
// walk. The same seed and regimes always yield the same series.
func GenerateBars(start time.Time, startPrice float64, seed int64, regimes ...Regime) []market.Bar {
	rng := rand.New(rand.NewSource(seed))
	var bars []market.Bar

	price := startPrice
	ts := start
	for _, regime := range regimes {
		for i := 0; i < regime.Bars; i++ {
			open := price
			change := regime.Drift + regime.Vol*rng.NormFloat64()
			close := open * (1 + change)
			if close <= 0 {
				close = open * 0.9
			}

			high, low := close, open
			if open > close {
				high, low = open, close
			}
			high *= 1 + 0.002*rng.Float64()
			low *= 1 - 0.002*rng.Float64()
			if low <= 0 {
				low = close * 0.9
			}

			volume := 1_000_000 * (0.6 + 0.8*rng.Float64())
			bars = append(bars, market.Bar{
				Ts:     ts,
				Open:   open,
				High:   high,
				Low:    low,
				Close:  close,
				Volume: volume,
			})
			price = close
			ts = ts.Add(24 * time.Hour)
		}
	}
	return bars
}
