// Package strategy contains the triple SMA trend classification logic.
package strategy

import (
	"math"
	"sync"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
)

// Filters configures the optional confirmations layered on the base rule.
// Each enabled filter can only narrow a directional call to NEUTRAL.
type Filters struct {
	Trend      bool
	RSI        bool
	Volume     bool
	Volatility bool

	TrendMinSeparation float64 // |smaShort-smaLong|/smaLong floor, default 0.02
	RSILow             float64 // default 30
	RSIHigh            float64 // default 70
	MinVolumeRatio     float64 // default 1.2
	MaxVolatility      float64 // ceiling on ATR/close, only used when Volatility is set

	// ConfirmationBars requires the unfiltered base rule to have held in the
	// same direction on this many immediately preceding bars. Zero disables
	// the persistence check.
	ConfirmationBars int
}

func (f Filters) withDefaults() Filters {
	if f.TrendMinSeparation <= 0 {
		f.TrendMinSeparation = 0.02
	}
	if f.RSILow <= 0 {
		f.RSILow = 30
	}
	if f.RSIHigh <= 0 {
		f.RSIHigh = 70
	}
	if f.MinVolumeRatio <= 0 {
		f.MinVolumeRatio = 1.2
	}
	return f
}

// Classifier turns indicator snapshots into directional signals. It retains a
// short per-symbol history of unfiltered base-rule outputs to implement the
// persistence confirmation.
type Classifier struct {
	filters Filters
	mu      sync.Mutex
	base    map[string][]signal.Direction
}

// NewClassifier builds a classifier with defaults filled in.
func NewClassifier(f Filters) *Classifier {
	return &Classifier{
		filters: f.withDefaults(),
		base:    make(map[string][]signal.Direction),
	}
}

// OnSnapshot classifies the latest bar. Missing SMA readings yield NEUTRAL.
func (c *Classifier) OnSnapshot(snap indicator.Snapshot) signal.Signal {
	base := baseRule(snap)

	c.mu.Lock()
	confirmed := c.persisted(snap.Symbol, base)
	c.record(snap.Symbol, base)
	c.mu.Unlock()

	dir := base
	if !confirmed {
		dir = signal.Neutral
	}
	if dir != signal.Neutral {
		dir = c.applyFilters(dir, snap)
	}

	return signal.Signal{
		Symbol:    snap.Symbol,
		Direction: dir,
		Strength:  Strength(snap),
		Ts:        snap.Ts,
	}
}

// baseRule is the raw triple SMA alignment: LONG iff close > s20 > s50 > s200,
// SHORT on the mirrored ordering, NEUTRAL otherwise or when any SMA is missing.
func baseRule(snap indicator.Snapshot) signal.Direction {
	s, m, l := snap.SMAShort, snap.SMAMedium, snap.SMALong
	if !s.Valid || !m.Valid || !l.Valid {
		return signal.Neutral
	}
	switch {
	case snap.Close > s.Value && s.Value > m.Value && m.Value > l.Value:
		return signal.Long
	case snap.Close < s.Value && s.Value < m.Value && m.Value < l.Value:
		return signal.Short
	default:
		return signal.Neutral
	}
}

// persisted reports whether the base rule already held in this direction on
// the preceding ConfirmationBars bars. Caller holds the mutex.
func (c *Classifier) persisted(symbol string, dir signal.Direction) bool {
	k := c.filters.ConfirmationBars
	if k <= 0 || dir == signal.Neutral {
		return true
	}
	prev := c.base[symbol]
	if len(prev) < k {
		return false
	}
	for _, d := range prev[len(prev)-k:] {
		if d != dir {
			return false
		}
	}
	return true
}

func (c *Classifier) record(symbol string, dir signal.Direction) {
	k := c.filters.ConfirmationBars
	if k <= 0 {
		k = 1
	}
	hist := append(c.base[symbol], dir)
	if len(hist) > k {
		hist = hist[len(hist)-k:]
	}
	c.base[symbol] = hist
}

// applyFilters narrows a directional call to NEUTRAL when any enabled
// confirmation fails. Filters are AND-combined; a filter whose input reading
// is unavailable fails rather than passing by default.
func (c *Classifier) applyFilters(dir signal.Direction, snap indicator.Snapshot) signal.Direction {
	f := c.filters
	if f.Trend {
		if !snap.SMAShort.Valid || !snap.SMALong.Valid || snap.SMALong.Value == 0 {
			return signal.Neutral
		}
		sep := math.Abs(snap.SMAShort.Value-snap.SMALong.Value) / snap.SMALong.Value
		if sep < f.TrendMinSeparation {
			return signal.Neutral
		}
	}
	if f.RSI {
		if !snap.RSI.Valid || snap.RSI.Value < f.RSILow || snap.RSI.Value > f.RSIHigh {
			return signal.Neutral
		}
	}
	if f.Volume {
		if !snap.VolumeRatio.Valid || snap.VolumeRatio.Value < f.MinVolumeRatio {
			return signal.Neutral
		}
	}
	if f.Volatility {
		if !snap.ATR.Valid || snap.Close <= 0 {
			return signal.Neutral
		}
		if snap.ATR.Value/snap.Close >= f.MaxVolatility {
			return signal.Neutral
		}
	}
	return dir
}

// Strength scores the snapshot 0-100: 40% SMA separation, 30% RSI distance
// from the midpoint, 30% volume-ratio excess. Unavailable readings score zero
// for their component. Reporting only; direction is decided elsewhere.
func Strength(snap indicator.Snapshot) float64 {
	var smaComp, rsiComp, volComp float64

	if snap.SMAShort.Valid && snap.SMALong.Valid && snap.SMALong.Value != 0 {
		sep := math.Abs(snap.SMAShort.Value-snap.SMALong.Value) / snap.SMALong.Value
		smaComp = clamp(sep/0.05) * 100
	}
	if snap.RSI.Valid {
		rsiComp = clamp(math.Abs(snap.RSI.Value-50) / 50) * 100
	}
	if snap.VolumeRatio.Valid {
		volComp = clamp(math.Max(snap.VolumeRatio.Value-1, 0)) * 100
	}
	return 0.4*smaComp + 0.3*rsiComp + 0.3*volComp
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
