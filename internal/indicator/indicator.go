// Package indicator computes rolling technical indicators over bar history.
//
// Every value carries an explicit Valid flag. A window that has not filled
// yet yields an invalid reading, never a zero, so downstream code cannot
// mistake missing data for a crossover.
package indicator

import (
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
)

// Reading is one indicator value plus its availability.
type Reading struct {
	Value float64
	Valid bool
}

// Snapshot bundles every indicator reading for a single bar.
type Snapshot struct {
	Symbol      string
	Ts          time.Time
	Close       float64
	SMAShort    Reading
	SMAMedium   Reading
	SMALong     Reading
	RSI         Reading
	VolumeRatio Reading
	ATR         Reading
}

// Periods configures the three SMA windows.
type Periods struct {
	Short  int
	Medium int
	Long   int
}

// DefaultPeriods is the classic 20/50/200 configuration.
var DefaultPeriods = Periods{Short: 20, Medium: 50, Long: 200}

const (
	rsiPeriod    = 14
	atrPeriod    = 14
	volumePeriod = 20
)

// Engine derives a Snapshot per bar from a trailing window recomputation.
// Recompute is O(N) per bar, which keeps the arithmetic bit-identical to a
// full-window pass with no incremental drift to document.
type Engine struct {
	periods Periods
}

// New builds an indicator engine, filling unset periods with the defaults.
func New(p Periods) *Engine {
	if p.Short <= 0 {
		p.Short = DefaultPeriods.Short
	}
	if p.Medium <= 0 {
		p.Medium = DefaultPeriods.Medium
	}
	if p.Long <= 0 {
		p.Long = DefaultPeriods.Long
	}
	return &Engine{periods: p}
}

// Periods returns the configured SMA windows.
func (e *Engine) Periods() Periods { return e.periods }

// Compute produces the snapshot for the latest bar in the series.
func (e *Engine) Compute(s *market.Series) Snapshot {
	bars := s.Bars()
	snap := Snapshot{Symbol: s.Symbol()}
	if len(bars) == 0 {
		return snap
	}
	last := bars[len(bars)-1]
	snap.Ts = last.Ts
	snap.Close = last.Close

	snap.SMAShort = sma(bars, e.periods.Short)
	snap.SMAMedium = sma(bars, e.periods.Medium)
	snap.SMALong = sma(bars, e.periods.Long)
	snap.RSI = rsi(bars, rsiPeriod)
	snap.VolumeRatio = volumeRatio(bars, volumePeriod)
	snap.ATR = atr(bars, atrPeriod)
	return snap
}

// sma is the arithmetic mean of close over the trailing n bars.
func sma(bars []market.Bar, n int) Reading {
	if n <= 0 || len(bars) < n {
		return Reading{}
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Close
	}
	return Reading{Value: sum / float64(n), Valid: true}
}

// rsi is the standard Wilder RSI: simple seed over the first n changes,
// then smoothed average gain/loss for the remainder of the history.
func rsi(bars []market.Bar, n int) Reading {
	if len(bars) < n+1 {
		return Reading{}
	}
	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)

	for i := n + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
	}

	if avgLoss == 0 {
		return Reading{Value: 100, Valid: true}
	}
	rs := avgGain / avgLoss
	return Reading{Value: 100 - 100/(1+rs), Valid: true}
}

// volumeRatio compares the latest bar's volume against the trailing n-bar average.
func volumeRatio(bars []market.Bar, n int) Reading {
	if len(bars) < n {
		return Reading{}
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Volume
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return Reading{}
	}
	return Reading{Value: bars[len(bars)-1].Volume / avg, Valid: true}
}

// atr is the simple average of true range over the trailing n bars.
// True range needs the prior close, so n+1 bars of history are required.
func atr(bars []market.Bar, n int) Reading {
	if len(bars) < n+1 {
		return Reading{}
	}
	var sum float64
	for i := len(bars) - n; i < len(bars); i++ {
		sum += trueRange(bars[i], bars[i-1].Close)
	}
	return Reading{Value: sum / float64(n), Valid: true}
}

func trueRange(b market.Bar, prevClose float64) float64 {
	tr := b.High - b.Low
	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
