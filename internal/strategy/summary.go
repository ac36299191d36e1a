package strategy

import (
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
)

// Summary condenses the latest bar for reporting: the classified direction,
// its strength, and how far the close sits from each moving average.
type Summary struct {
	Symbol    string
	Ts        time.Time
	Close     float64
	Direction signal.Direction
	Strength  float64

	// Fractional distance of the close from each SMA, positive when the
	// close is above it. Invalid while the window is still filling.
	DistShort  indicator.Reading
	DistMedium indicator.Reading
	DistLong   indicator.Reading
}

// Summarize pairs an indicator snapshot with its classified signal.
func Summarize(snap indicator.Snapshot, sig signal.Signal) Summary {
	return Summary{
		Symbol:     snap.Symbol,
		Ts:         snap.Ts,
		Close:      snap.Close,
		Direction:  sig.Direction,
		Strength:   sig.Strength,
		DistShort:  distance(snap.Close, snap.SMAShort),
		DistMedium: distance(snap.Close, snap.SMAMedium),
		DistLong:   distance(snap.Close, snap.SMALong),
	}
}

func distance(close float64, sma indicator.Reading) indicator.Reading {
	if !sma.Valid || sma.Value == 0 {
		return indicator.Reading{}
	}
	return indicator.Reading{Value: close/sma.Value - 1, Valid: true}
}
